// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Package ux provides terminal output styling for the soil assistant CLI.
package ux

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Field palette: loam browns with a leaf green accent.
var (
	ColorLeaf    = lipgloss.Color("#5DBB63") // Leaf green - highlights, success
	ColorLoam    = lipgloss.Color("#A0522D") // Loam - main brand color
	ColorClay    = lipgloss.Color("#C2703D") // Clay - borders, accents
	ColorSilt    = lipgloss.Color("#6B5B4B") // Silt - muted text
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Styles provides pre-configured lipgloss styles.
var Styles = struct {
	Title    lipgloss.Style
	Question lipgloss.Style
	Muted    lipgloss.Style
	Success  lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
	Box      lipgloss.Style
}{
	Title:    lipgloss.NewStyle().Bold(true).Foreground(ColorLeaf),
	Question: lipgloss.NewStyle().Bold(true).Foreground(ColorLoam),
	Muted:    lipgloss.NewStyle().Foreground(ColorSilt),
	Success:  lipgloss.NewStyle().Foreground(ColorLeaf),
	Warning:  lipgloss.NewStyle().Foreground(ColorWarning),
	Error:    lipgloss.NewStyle().Foreground(ColorError),
	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorClay).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
)

// =============================================================================
// Printer
// =============================================================================

// Printer writes styled output to a single writer.
//
// # Description
//
// A plain Printer writes unstyled lines with OK/WARN/ERROR prefixes so the
// output stays greppable when piped. NewPrinter picks plain mode whenever
// the writer is not a terminal.
//
// # Thread Safety
//
// Not safe for concurrent use.
type Printer struct {
	w     io.Writer
	plain bool
}

// NewPrinter returns a Printer that styles output only on a terminal.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plain: !IsTerminal(w)}
}

// NewPlainPrinter returns a Printer that never styles output.
func NewPlainPrinter(w io.Writer) *Printer {
	return &Printer{w: w, plain: true}
}

// IsTerminal reports whether w is a file attached to a terminal.
func IsTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Plain reports whether styling is off.
func (p *Printer) Plain() bool {
	return p.plain
}

// Title prints a styled title.
func (p *Printer) Title(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "== %s ==\n", text)
		return
	}
	fmt.Fprintln(p.w, Styles.Title.Render(text))
}

// Question prints a questionnaire prompt with its step counter.
func (p *Printer) Question(step, total int, text string) {
	counter := fmt.Sprintf("[%d/%d]", step, total)
	if p.plain {
		fmt.Fprintf(p.w, "%s %s\n", counter, text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Muted.Render(counter), Styles.Question.Render(text))
}

// Success prints a success message with checkmark.
func (p *Printer) Success(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "OK: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Success.Render(string(IconSuccess)), Styles.Success.Render(text))
}

// Warning prints a warning message.
func (p *Printer) Warning(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "WARN: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Warning.Render(string(IconWarning)), Styles.Warning.Render(text))
}

// Error prints an error message.
func (p *Printer) Error(text string) {
	if p.plain {
		fmt.Fprintf(p.w, "ERROR: %s\n", text)
		return
	}
	fmt.Fprintf(p.w, "%s %s\n", Styles.Error.Render(string(IconError)), Styles.Error.Render(text))
}

// Muted prints secondary text.
func (p *Printer) Muted(text string) {
	if p.plain {
		fmt.Fprintln(p.w, text)
		return
	}
	fmt.Fprintln(p.w, Styles.Muted.Render(text))
}

// Box prints text in a rounded box.
func (p *Printer) Box(title, content string) {
	if p.plain {
		fmt.Fprintf(p.w, "%s: %s\n", title, content)
		return
	}
	titleLine := Styles.Title.Render(title)
	fmt.Fprintln(p.w, Styles.Box.Width(60).Render(titleLine+"\n"+content))
}

// Table prints aligned key/value rows. Missing values print as "-".
func (p *Printer) Table(rows [][2]string) {
	width := 0
	for _, r := range rows {
		width = max(width, len(r[0]))
	}
	for _, r := range rows {
		value := r[1]
		if value == "" {
			value = "-"
		}
		key := r[0] + strings.Repeat(" ", width-len(r[0]))
		if p.plain {
			fmt.Fprintf(p.w, "%s  %s\n", key, value)
			continue
		}
		fmt.Fprintf(p.w, "%s %s  %s\n", IconBullet, Styles.Muted.Render(key), value)
	}
}

// ProgressBar renders a simple progress bar.
func (p *Printer) ProgressBar(current, total, width int) string {
	if p.plain || total <= 0 {
		return fmt.Sprintf("%d/%d", current, total)
	}
	pct := float64(current) / float64(total)
	filled := int(pct * float64(width))
	bar := Styles.Success.Render(strings.Repeat("█", filled)) +
		Styles.Muted.Render(strings.Repeat("░", max(width-filled, 0)))
	return fmt.Sprintf("%s %3.0f%%", bar, pct*100)
}
