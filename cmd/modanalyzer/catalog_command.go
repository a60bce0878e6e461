package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/catalog"
)

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the reference catalog",
	}
	catalogCmd.AddCommand(newCatalogStatsCommand(ctx))
	return catalogCmd
}

func newCatalogStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Load the catalog and report index counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			index, err := catalog.NewLoader(cfg.Catalog.Path, cfg.Catalog.Version).Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("load catalog: %w", err)
			}
			stats := index.Stats()
			if ctx.jsonOutput() {
				return writeJSON(cmd, stats)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Catalog:            %s\n", cfg.Catalog.Path)
			fmt.Fprintf(out, "Version:            %s\n", stats.Version)
			fmt.Fprintf(out, "Entries:            %d\n", stats.Entries)
			fmt.Fprintf(out, "With URL:           %d\n", stats.WithURL)
			fmt.Fprintf(out, "Lookup keys:        %d\n", stats.LookupKeys)
			fmt.Fprintf(out, "Duplicate URL keys: %d\n", stats.DuplicateURLKeys)
			fmt.Fprintf(out, "Shared slugs:       %d\n", stats.SharedSlugs)
			fmt.Fprintf(out, "Policy version:     %s\n", cfg.PolicyVersion())
			return nil
		},
	}
}
