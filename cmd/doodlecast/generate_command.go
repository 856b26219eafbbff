package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"doodlecast/internal/config"
	"doodlecast/internal/logging"
	"doodlecast/internal/manifest"
	"doodlecast/internal/preflight"
	"doodlecast/internal/script"
	"doodlecast/internal/scriptload"
	"doodlecast/internal/services"
	"doodlecast/internal/textutil"
	"doodlecast/internal/workflow"
)

type generateOptions struct {
	input   string
	output  string
	quality string
	preview bool
}

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var opts generateOptions

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate scene images and narration for a script",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, ctx, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "", "Script file (.json, .md, .markdown)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "Output directory (default: <output_dir>/<script name>)")
	cmd.Flags().StringVarP(&opts.quality, "quality", "q", "", "Image quality preset: fast, balanced, or high")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "Generate images only")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runGenerate(cmd *cobra.Command, ctx *commandContext, opts generateOptions) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	quality := cfg.Image.Quality
	if q := strings.ToLower(strings.TrimSpace(opts.quality)); q != "" {
		if !config.ValidQuality(q) {
			return fmt.Errorf("invalid --quality %q (want fast, balanced, or high)", opts.quality)
		}
		quality = q
	}

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, _, err := scriptload.New(logger).LoadFile(runCtx, opts.input)
	if err != nil {
		return fmt.Errorf("load script: %w", err)
	}
	for _, problem := range scriptload.ValidateReferenceImages(s) {
		logging.WarnWithContext(logger, "reference image problem", "reference_image_problem",
			logging.String("detail", problem),
			logging.String(logging.FieldErrorHint, "fix the path or use a .jpg, .png, or .webp file"),
			logging.String(logging.FieldImpact, "scene renders without composition guidance"),
		)
	}
	warnPreflight(runCtx, cfg, logger)

	stores, err := openCaches(cfg, logger)
	if err != nil {
		return err
	}
	images, err := newImagePipeline(cfg, stores.images, quality, logger)
	if err != nil {
		return err
	}
	defer images.Unload()

	var narration workflow.SpeechResolver
	if !opts.preview {
		pipeline, err := newSpeechPipeline(cfg, stores.audio, logger)
		if err != nil {
			return err
		}
		defer pipeline.Unload()
		narration = pipeline
	}

	outputDir, err := resolveOutputDir(cfg, opts.output, s.Source)
	if err != nil {
		return err
	}

	runnerOpts := []workflow.Option{workflow.WithLogger(logger)}
	ledger, run := beginLedgerRun(runCtx, cfg, s, quality, logger)
	if ledger != nil {
		defer ledger.Close()
		runnerOpts = append(runnerOpts, workflow.WithRecorder(ledger))
	}
	if bar := newSceneProgress(cmd.ErrOrStderr(), s.TotalScenes()); bar != nil {
		defer bar.Finish()
		runnerOpts = append(runnerOpts, workflow.WithProgress(func(p workflow.Progress) {
			_ = bar.Set(p.Done)
		}))
	}

	runner := workflow.NewRunner(images, narration, runnerOpts...)
	report, runErr := runner.Run(services.WithRunID(runCtx, run.ID), s, workflow.Options{
		OutputDir: outputDir,
		Preview:   opts.preview,
		RunID:     run.ID,
		Quality:   quality,
	})
	if ledger != nil {
		finishLedgerRun(runCtx, ledger, run.ID, report, runErr, logger)
	}

	if report != nil {
		printGenerateSummary(cmd.OutOrStdout(), report)
	}
	if runErr != nil {
		return runErr
	}
	if failed := report.Failed(); failed > 0 {
		return fmt.Errorf("%d artifact(s) failed; see %s", failed, filepath.Join(report.OutputDir, workflow.StoryboardFile))
	}
	return nil
}

func warnPreflight(ctx context.Context, cfg *config.Config, logger *slog.Logger) {
	for _, result := range preflight.Run(ctx, cfg) {
		if result.Passed() {
			continue
		}
		logging.WarnWithContext(logger, "preflight check did not pass", "preflight_"+string(result.Status),
			logging.String("check", result.Name),
			logging.String("detail", result.Detail),
			logging.String(logging.FieldErrorHint, "run doodlecast doctor for the full report"),
			logging.String(logging.FieldImpact, "affected artifacts may fall back or fail"),
		)
	}
}

// resolveOutputDir picks the explicit directory or a per-script directory
// under paths.output_dir.
func resolveOutputDir(cfg *config.Config, flagValue, source string) (string, error) {
	if dir := strings.TrimSpace(flagValue); dir != "" {
		expanded, err := config.ExpandPath(dir)
		if err != nil {
			return "", fmt.Errorf("resolve output directory: %w", err)
		}
		return expanded, nil
	}
	name := textutil.Slug(strings.TrimSuffix(filepath.Base(source), filepath.Ext(source)))
	if name == "" {
		name = "storyboard"
	}
	return filepath.Join(cfg.Paths.OutputDir, name), nil
}

// beginLedgerRun opens the ledger and starts a run. Ledger problems are
// logged and generation proceeds unrecorded.
func beginLedgerRun(ctx context.Context, cfg *config.Config, s *script.Script, quality string, logger *slog.Logger) (*manifest.Ledger, manifest.Run) {
	ledger, err := manifest.Open(cfg.Paths.ManifestPath)
	if err != nil {
		warnLedger(logger, "open", err)
		return nil, manifest.Run{}
	}
	run, err := ledger.BeginRun(ctx, manifest.RunInput{
		ScriptPath: s.Source,
		Title:      s.Title,
		Quality:    quality,
	})
	if err != nil {
		warnLedger(logger, "begin run", err)
		_ = ledger.Close()
		return nil, manifest.Run{}
	}
	return ledger, run
}

func finishLedgerRun(ctx context.Context, ledger *manifest.Ledger, runID string, report *workflow.Report, runErr error, logger *slog.Logger) {
	status := manifest.RunFailed
	failed := 0
	if report != nil {
		status = report.Status()
		failed = report.Failed()
	}
	if errors.Is(runErr, context.Canceled) {
		status = manifest.RunCanceled
	}
	if err := ledger.FinishRun(context.WithoutCancel(ctx), runID, status, failed); err != nil {
		warnLedger(logger, "finish run", err)
	}
}

func warnLedger(logger *slog.Logger, operation string, err error) {
	logging.WarnWithContext(logger, "run ledger unavailable", "ledger_unavailable",
		logging.String("operation", operation),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check paths.manifest_path"),
		logging.String(logging.FieldImpact, "run will not appear in history"),
	)
}

func newSceneProgress(w io.Writer, total int) *progressbar.ProgressBar {
	if total <= 0 || !isTerminal(w) {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("scenes"),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)
}

func printGenerateSummary(w io.Writer, report *workflow.Report) {
	rows := make([][]string, 0, len(report.Scenes))
	for _, scene := range report.Scenes {
		rows = append(rows, []string{
			fmt.Sprintf("%d", scene.SceneID),
			artifactCell(scene.Image),
			artifactCell(scene.Audio),
			formatSeconds(scene.DurationSeconds),
		})
	}
	title := report.Title
	if title == "" {
		title = "Storyboard"
	}
	fmt.Fprintln(w, tableSpec{
		Title:   title,
		Headers: []string{"Scene", "Image", "Audio", "Duration"},
		Rows:    rows,
		Aligns:  []columnAlignment{alignRight, alignLeft, alignLeft, alignRight},
		Footer: []string{
			"Total",
			fmt.Sprintf("%d cached", report.CacheHits()),
			fmt.Sprintf("%d failed", report.Failed()),
			formatSeconds(report.TotalSeconds()),
		},
	}.render())

	for _, scene := range report.Scenes {
		for _, a := range []*workflow.ArtifactReport{scene.Image, scene.Audio} {
			if a.Failed() {
				fmt.Fprintf(w, "Scene %d %s: %s\n", scene.SceneID, a.Kind, a.Error)
			}
		}
	}
	fmt.Fprintf(w, "Status: %s\n", titleCase(string(report.Status())))
	fmt.Fprintf(w, "Storyboard: %s\n", filepath.Join(report.OutputDir, workflow.StoryboardFile))
	if report.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", report.RunID)
	}
}

func artifactCell(a *workflow.ArtifactReport) string {
	switch {
	case a == nil:
		return "-"
	case a.Failed():
		return "failed"
	case a.CacheStatus == workflow.CacheHit:
		return "cache"
	case a.CacheStatus == workflow.CacheDegraded:
		return a.Source + " (not cached)"
	default:
		return a.Source
	}
}

func formatSeconds(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fs", seconds)
}

func titleCase(value string) string {
	return cases.Title(language.English).String(value)
}
