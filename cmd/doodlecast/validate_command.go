package main

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"doodlecast/internal/script"
	"doodlecast/internal/scriptload"
)

const cellWidth = 40

func newValidateCommand() *cobra.Command {
	var showSchema bool
	cmd := &cobra.Command{
		Use:         "validate PATH",
		Short:       "Load and validate a script without generating anything",
		Args:        cobra.MaximumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if showSchema {
				fmt.Fprintln(out, strings.TrimSpace(scriptload.SchemaDocument()))
				return nil
			}
			if len(args) != 1 {
				return errors.New("validate requires a script path or --schema")
			}
			s, report, err := scriptload.New(nil).LoadFile(cmd.Context(), args[0])
			printDroppedBlocks(out, report.Dropped)
			if err != nil {
				return err
			}
			printScript(out, s, report)
			return nil
		},
	}
	cmd.Flags().BoolVar(&showSchema, "schema", false, "Print the JSON Schema for structured scripts and exit")
	return cmd
}

func printScript(w io.Writer, s *script.Script, report scriptload.Report) {
	fmt.Fprintf(w, "Title: %s\n", s.Title)
	if tag, ok := script.LanguageTag(s.Language); ok {
		fmt.Fprintf(w, "Language: %s (%s)\n", s.Language, tag)
	} else {
		fmt.Fprintf(w, "Language: %s (unrecognized)\n", s.Language)
	}
	fmt.Fprintf(w, "Voice: %s\n", s.Voice)
	fmt.Fprintf(w, "Format: %s\n", report.Format)

	rows := make([][]string, 0, len(s.Scenes))
	for _, scene := range s.Scenes {
		reference := "-"
		if scene.ReferenceImage != "" {
			reference = filepath.Base(scene.ReferenceImage)
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", scene.ID),
			truncate(scene.Narration, cellWidth),
			truncate(scene.VisualDescription, cellWidth),
			scene.Duration.String(),
			fmt.Sprintf("%d", scene.WordCount()),
			reference,
		})
	}
	fmt.Fprintln(w, renderTable(
		[]string{"Scene", "Narration", "Visual", "Duration", "Words", "Reference"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))

	for _, warning := range s.Warnings {
		fmt.Fprintf(w, "Warning: %s\n", warning)
	}
	for _, problem := range scriptload.ValidateReferenceImages(s) {
		fmt.Fprintf(w, "Reference: %s\n", problem)
	}
	fmt.Fprintf(w, "Script valid: %d scene(s)\n", s.TotalScenes())
}

func printDroppedBlocks(w io.Writer, dropped []scriptload.DroppedBlock) {
	for _, block := range dropped {
		fmt.Fprintf(w, "Dropped block %d (line %d): missing %s\n",
			block.Ordinal, block.Line, strings.Join(block.Missing, ", "))
	}
}

func truncate(value string, limit int) string {
	value = strings.Join(strings.Fields(value), " ")
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit-1]) + "…"
}
