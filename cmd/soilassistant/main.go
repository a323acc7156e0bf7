// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

// Command soilassistant runs the soil test questionnaire as an HTTP service
// or as a text chat in the terminal.
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/Shreyashgol/agrovers/pkg/config"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:   "soilassistant",
		Short: "Voice and text assistant that walks farmers through a soil test",
		Long: `soilassistant asks the eight soil test questions one at a time,
records answers it is confident about and explains the question when it is not.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"path to the YAML config (default ~/.agrovers/soilassistant.yaml when present)")
	rootCmd.AddCommand(newServeCmd(), newChatCmd(), newConfigCmd(), newIngestCmd())
}

// loadConfig resolves --config, falling back to the default path only when
// that file exists. Without a file the built-in defaults and environment
// apply.
func loadConfig() (config.SoilAssistantConfig, error) {
	path := configPath
	if path == "" {
		if p, err := config.DefaultPath(); err == nil {
			if _, statErr := os.Stat(p); statErr == nil {
				path = p
			} else if !errors.Is(statErr, fs.ErrNotExist) {
				return config.SoilAssistantConfig{}, statErr
			}
		}
	}
	return config.Load(path)
}
