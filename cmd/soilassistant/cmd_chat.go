// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Shreyashgol/agrovers/pkg/logging"
	"github.com/Shreyashgol/agrovers/pkg/ux"
	"github.com/Shreyashgol/agrovers/services/assistant"
	"github.com/Shreyashgol/agrovers/services/assistant/datatypes"
	"github.com/Shreyashgol/agrovers/services/assistant/handlers"
	"github.com/Shreyashgol/agrovers/services/assistant/questionnaire"
	"github.com/Shreyashgol/agrovers/services/assistant/session"
)

var quitWords = map[string]bool{"/quit": true, "/exit": true, "exit": true, "quit": true}

func newChatCmd() *cobra.Command {
	var (
		language string
		offline  bool
	)
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Answer the soil test questionnaire in the terminal",
		Long: `Runs the questionnaire in-process with typed answers. Speech is
disabled; clarifications use the configured LLM unless --offline is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lang, err := datatypes.ParseLanguage(language)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cfg.Speech.Backend = "none"

			logger, err := logging.New(logging.Config{Level: logging.LevelWarn, File: cfg.Logging.File, Quiet: true})
			if err != nil {
				return err
			}
			defer logger.Close()
			slog.SetDefault(logger.Slog())

			var opts []assistant.Option
			if offline {
				opts = append(opts, assistant.WithoutLLM())
			}
			svc, err := assistant.New(cfg, opts...)
			if err != nil {
				return err
			}
			defer svc.Close()

			chat := &chatSession{
				repo:    svc.Sessions(),
				engine:  svc.Engine(),
				printer: ux.NewPrinter(cmd.OutOrStdout()),
			}
			return chat.Run(contextOrBackground(cmd.Context()), lang, cmd.InOrStdin())
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "en", "questionnaire language (en or hi)")
	cmd.Flags().BoolVar(&offline, "offline", false, "do not call an LLM for clarifications")
	return cmd
}

// =============================================================================
// Chat Loop
// =============================================================================

// chatSession drives one questionnaire session from line-oriented input.
type chatSession struct {
	repo    session.Repository
	engine  handlers.TurnEngine
	printer *ux.Printer
}

// Run creates a session, then feeds each input line to the engine until the
// questionnaire completes, the input ends or the user quits.
func (c *chatSession) Run(ctx context.Context, lang datatypes.Language, in io.Reader) error {
	state, err := c.repo.Create(ctx, lang)
	if err != nil {
		return err
	}
	c.printer.Title("Soil test")
	c.printer.Muted("Type your answer and press Enter. /quit to stop.")
	res := c.engine.Start(ctx, state)
	c.render(res)
	if res.IsComplete {
		return nil
	}

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if quitWords[strings.ToLower(line)] {
			c.printer.Warning(fmt.Sprintf("Stopped with %d of %d answers.", res.Answers.Filled(), datatypes.TotalSteps))
			return nil
		}

		_, err := c.repo.Update(ctx, state.SessionID, func(cur datatypes.SessionState) (datatypes.SessionState, error) {
			var next datatypes.SessionState
			res, next = c.engine.HandleTurn(ctx, cur, questionnaire.TurnInput{Text: line})
			return next, nil
		})
		if err != nil {
			return err
		}
		c.render(res)
		if res.IsComplete {
			return nil
		}
	}
	return scanner.Err()
}

func (c *chatSession) render(res datatypes.TurnResult) {
	p := c.printer
	switch res.Outcome {
	case datatypes.OutcomeAutoFilled:
		p.Success("Recorded.")
	case datatypes.OutcomeSkipped:
		p.Warning("Skipped.")
	case datatypes.OutcomeComplete:
		p.Success("All questions answered.")
		p.Table(answerRows(res.Answers))
		return
	}
	if res.HelperText != nil {
		p.Box("Help", *res.HelperText)
	}
	if res.Question != nil {
		p.Question(res.StepNumber, res.TotalSteps, *res.Question)
	}
}

func answerRows(a datatypes.AnswerRecord) [][2]string {
	var rows [][2]string
	for _, param := range datatypes.ParameterOrder() {
		v, _ := a.Get(param)
		rows = append(rows, [2]string{param.String(), v})
	}
	return rows
}
