package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"doodlecast/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check directories, backends, and the Piper install",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.Run(cmd.Context(), cfg)
			rows := make([][]string, 0, len(results))
			for _, r := range results {
				rows = append(rows, []string{r.Name, strings.ToUpper(string(r.Status)), r.Detail})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable([]string{"Check", "Status", "Detail"}, rows, nil))
			fmt.Fprintf(out, "Config: %s (file present: %s)\n", ctx.configPath, yesNo(ctx.configExists))
			if failed := preflight.Failed(results); failed > 0 {
				return fmt.Errorf("%d preflight check(s) failed", failed)
			}
			fmt.Fprintln(out, "All required checks passed")
			return nil
		},
	}
}
