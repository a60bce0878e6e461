package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/thebossrrpg/Thesims4modanalyzer/internal/cache"
	"github.com/thebossrrpg/Thesims4modanalyzer/internal/pipeline"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the decision cache",
	}

	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	cacheCmd.AddCommand(newCachePruneCommand(ctx))

	return cacheCmd
}

// withStore opens the cache stamped with the current catalog and policy
// versions, so stale partitions are already discarded when fn runs.
func withStore(cmd *cobra.Command, ctx *commandContext, fn func(*cache.Store) error) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}
	_, store, err := pipeline.OpenStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show entry counts per cache partition",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, ctx, func(store *cache.Store) error {
				stats := store.Stats()
				if ctx.jsonOutput() {
					return writeJSON(cmd, stats)
				}
				const stampLayout = "2006-01-02 15:04"
				rows := make([][]string, 0, len(stats))
				for _, s := range stats {
					saved := "never"
					if !s.SavedAt.IsZero() {
						saved = s.SavedAt.Local().Format(stampLayout)
					}
					rows = append(rows, []string{string(s.Partition), fmt.Sprintf("%d", s.Entries), saved, s.Path})
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Cache: %s\n", store.Dir())
				fmt.Fprintln(out, renderTable([]string{"Partition", "Entries", "Saved", "File"}, rows,
					[]columnAlignment{alignLeft, alignRight}))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear [partition]",
		Short: "Empty one cache partition (url, evidence, live_entity) or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var partitions []cache.Partition
			if len(args) == 1 {
				p, ok := cache.ParsePartition(args[0])
				if !ok {
					return fmt.Errorf("unknown cache partition %q (want url, evidence, or live_entity)", args[0])
				}
				partitions = append(partitions, p)
			}
			return withStore(cmd, ctx, func(store *cache.Store) error {
				if err := store.Clear(partitions...); err != nil {
					return err
				}
				cleared := "all partitions"
				if len(partitions) == 1 {
					cleared = string(partitions[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", cleared)
				return nil
			})
		},
	}
}

func newCachePruneCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "prune",
		Short: "Drop expired live entity snapshots",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(cmd, ctx, func(store *cache.Store) error {
				removed, err := store.PruneLiveEntities()
				if err != nil {
					return err
				}
				noun := "snapshots"
				if removed == 1 {
					noun = "snapshot"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Pruned %d live entity %s\n", removed, noun)
				return nil
			})
		},
	}
}
