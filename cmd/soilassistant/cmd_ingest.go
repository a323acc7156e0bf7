// Copyright (C) 2026 The agrovers Authors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See <https://www.gnu.org/licenses/> for the full license text.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Shreyashgol/agrovers/pkg/ux"
	"github.com/Shreyashgol/agrovers/services/assistant"
	"github.com/Shreyashgol/agrovers/services/retrieval"
)

func newIngestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ingest [dir]",
		Short: "Load soil knowledge snippets into Weaviate",
		Long: `Embeds every snippet file in dir (default retrieval.knowledge_dir)
and stores it in the configured Weaviate class.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			rc := cfg.Retrieval
			dir := rc.KnowledgeDir
			if len(args) == 1 {
				dir = args[0]
			}
			if dir == "" {
				return errors.New("no knowledge directory given")
			}
			if rc.WeaviateURL == "" {
				return errors.New("retrieval.weaviate_url is not configured")
			}

			snippets, err := retrieval.LoadSnippets(dir)
			if err != nil {
				return err
			}
			client, err := assistant.NewWeaviateClient(rc.WeaviateURL)
			if err != nil {
				return err
			}
			embedder, err := assistant.NewEmbedder(rc)
			if err != nil {
				return err
			}
			ctx := contextOrBackground(cmd.Context())
			if err := retrieval.EnsureSchema(ctx, client, rc.ClassName); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}

			p := ux.NewPrinter(cmd.OutOrStdout())
			n, err := retrieval.NewRetriever(client, embedder, rc.ClassName).Ingest(ctx, snippets)
			if err != nil {
				p.Error(fmt.Sprintf("Stored %d of %d snippets", n, len(snippets)))
				return err
			}
			p.Success(fmt.Sprintf("Stored %d snippets in %s", n, rc.ClassName))
			return nil
		},
	}
}
