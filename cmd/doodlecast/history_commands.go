package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"doodlecast/internal/manifest"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recent generation runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			runs, err := ledger.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					shortID(run.ID),
					humanize.Time(run.StartedAt),
					run.Title,
					run.Quality,
					titleCase(string(run.Status)),
					fmt.Sprintf("%d", run.FailedCount),
					formatElapsed(run),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Title", "Quality", "Status", "Failed", "Elapsed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show the artifacts recorded for a run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := openLedger(ctx)
			if err != nil {
				return err
			}
			defer ledger.Close()

			run, err := ledger.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			assets, err := ledger.RunAssets(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run: %s\n", run.ID)
			fmt.Fprintf(out, "Script: %s\n", run.ScriptPath)
			fmt.Fprintf(out, "Title: %s\n", run.Title)
			fmt.Fprintf(out, "Quality: %s\n", run.Quality)
			fmt.Fprintf(out, "Status: %s\n", titleCase(string(run.Status)))
			fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Local().Format(time.DateTime))
			fmt.Fprintf(out, "Elapsed: %s\n", formatElapsed(run))

			rows := make([][]string, 0, len(assets))
			for _, asset := range assets {
				source := asset.Source
				if asset.Failed() {
					source = "failed"
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", asset.SceneID),
					asset.Kind,
					source,
					asset.CacheStatus,
					asset.Fingerprint,
					fmt.Sprintf("%d", len(asset.Attempts)),
					formatSeconds(asset.DurationSeconds),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Scene", "Kind", "Source", "Cache", "Fingerprint", "Attempts", "Duration"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			for _, asset := range assets {
				if asset.Failed() {
					fmt.Fprintf(out, "Scene %d %s: %s\n", asset.SceneID, asset.Kind, asset.Error)
				}
			}
			return nil
		},
	}
}

func openLedger(ctx *commandContext) (*manifest.Ledger, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, err
	}
	return manifest.Open(cfg.Paths.ManifestPath)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func formatElapsed(run manifest.Run) string {
	if !run.Finished() {
		return "-"
	}
	return run.Elapsed().Round(time.Second).String()
}
