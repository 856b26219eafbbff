package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the artifact caches",
	}
	cacheCmd.AddCommand(newCacheStatsCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatsCommand(ctx *commandContext) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show artifact counts and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := selectedCaches(ctx, kind)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(stores))
			var totalCount int
			var totalBytes int64
			for _, s := range stores {
				stats, err := s.store.Stats()
				if err != nil {
					return fmt.Errorf("%s cache stats: %w", s.name, err)
				}
				totalCount += stats.Count
				totalBytes += stats.TotalBytes
				rows = append(rows, []string{
					s.name,
					fmt.Sprintf("%d", stats.Count),
					humanize.Bytes(uint64(stats.TotalBytes)),
					s.store.Dir(),
				})
			}
			table := tableSpec{
				Headers: []string{"Cache", "Artifacts", "Size", "Directory"},
				Rows:    rows,
				Aligns:  []columnAlignment{alignLeft, alignRight, alignRight, alignLeft},
			}
			if len(rows) > 1 {
				table.Footer = []string{"Total", fmt.Sprintf("%d", totalCount), humanize.Bytes(uint64(totalBytes)), ""}
			}
			fmt.Fprintln(cmd.OutOrStdout(), table.render())
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", kindAll, "Cache to inspect: images, audio, or all")
	return cmd
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove cached artifacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			stores, err := selectedCaches(ctx, kind)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, s := range stores {
				before, _ := s.store.Stats()
				if err := s.store.Clear(cmd.Context()); err != nil {
					return fmt.Errorf("clear %s cache: %w", s.name, err)
				}
				fmt.Fprintf(out, "Cleared %s cache: %d artifact(s), %s\n",
					s.name, before.Count, humanize.Bytes(uint64(before.TotalBytes)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&kind, "kind", kindAll, "Cache to clear: images, audio, or all")
	return cmd
}

func selectedCaches(ctx *commandContext, kind string) ([]namedStore, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, err
	}
	stores, err := openCaches(cfg, logger)
	if err != nil {
		return nil, err
	}
	return stores.selected(kind)
}
