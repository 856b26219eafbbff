package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"doodlecast/internal/fallback"
	"doodlecast/internal/fileutil"
	"doodlecast/internal/imagegen"
	"doodlecast/internal/logging"
	"doodlecast/internal/manifest"
	"doodlecast/internal/media/wav"
	"doodlecast/internal/script"
	"doodlecast/internal/services"
	"doodlecast/internal/speech"
)

// StoryboardFile is the report written into the output directory.
const StoryboardFile = "storyboard.json"

// ImageResolver produces scene images.
type ImageResolver interface {
	Resolve(ctx context.Context, scene script.Scene) (fallback.Result, error)
}

// SpeechResolver produces scene narration.
type SpeechResolver interface {
	Resolve(ctx context.Context, req speech.Request) (fallback.Result, error)
}

// AssetRecorder receives artifact outcomes, normally a *manifest.Ledger.
type AssetRecorder interface {
	RecordAsset(ctx context.Context, asset manifest.Asset) error
}

// Progress is reported after each scene.
type Progress struct {
	Done    int
	Total   int
	SceneID int
	Failed  int
}

// Runner generates every scene of a script.
type Runner struct {
	images   ImageResolver
	speech   SpeechResolver
	recorder AssetRecorder
	progress func(Progress)
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes a Runner.
type Option func(*Runner)

// WithRecorder appends artifact outcomes to a run ledger.
func WithRecorder(recorder AssetRecorder) Option {
	return func(r *Runner) { r.recorder = recorder }
}

// WithProgress registers a callback invoked after each scene.
func WithProgress(fn func(Progress)) Option {
	return func(r *Runner) { r.progress = fn }
}

// WithLogger routes runner logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) { r.logger = logger }
}

// NewRunner builds a runner. speech may be nil when only previews are run.
func NewRunner(images ImageResolver, speech SpeechResolver, opts ...Option) *Runner {
	r := &Runner{images: images, speech: speech, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "workflow")
	return r
}

// Options controls one run.
type Options struct {
	OutputDir string
	// Preview skips narration.
	Preview bool
	RunID   string
	Quality string
}

// Run generates every scene and writes the storyboard. The returned error is
// non-nil only when the run could not proceed (output directory, storyboard,
// cancellation); per-artifact failures are in the Report.
func (r *Runner) Run(ctx context.Context, s *script.Script, opts Options) (*Report, error) {
	if s == nil {
		return nil, errors.New("workflow: script required")
	}
	if r.images == nil {
		return nil, errors.New("workflow: image pipeline required")
	}
	if !opts.Preview && r.speech == nil {
		return nil, errors.New("workflow: speech pipeline required unless previewing")
	}
	if opts.OutputDir == "" {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "run", "output directory required", nil)
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	ctx = services.WithRunID(ctx, opts.RunID)
	logger := logging.WithContext(ctx, r.logger)
	report := &Report{
		RunID:     opts.RunID,
		Title:     s.Title,
		Language:  s.Language,
		Voice:     s.Voice,
		Quality:   opts.Quality,
		Preview:   opts.Preview,
		OutputDir: opts.OutputDir,
		StartedAt: r.now().UTC(),
		Metadata:  s.MetadataCopy(),
		Scenes:    make([]SceneReport, 0, len(s.Scenes)),
	}
	logger.Info("run started",
		logging.String("title", s.Title),
		logging.Int("scenes", len(s.Scenes)),
		logging.Bool("preview", opts.Preview),
		logging.String("output_dir", opts.OutputDir),
		logging.String(logging.FieldEventType, "run_started"),
	)

	var runErr error
	for i, scene := range s.Scenes {
		if err := ctx.Err(); err != nil {
			report.Canceled = true
			runErr = err
			logging.WarnWithContext(logger, "run canceled", "run_canceled",
				logging.Int("completed_scenes", i),
				logging.Int("remaining_scenes", len(s.Scenes)-i),
				logging.String(logging.FieldErrorHint, "rerun the same command; finished scenes are cached"),
				logging.String(logging.FieldImpact, "remaining scenes were not generated"),
			)
			break
		}
		sceneReport := r.runScene(ctx, s, scene, opts)
		report.Scenes = append(report.Scenes, sceneReport)
		if r.progress != nil {
			r.progress(Progress{Done: i + 1, Total: len(s.Scenes), SceneID: scene.ID, Failed: report.Failed()})
		}
	}
	report.FinishedAt = r.now().UTC()

	if err := fileutil.WriteJSONAtomic(filepath.Join(opts.OutputDir, StoryboardFile), report); err != nil {
		return report, errors.Join(runErr, fmt.Errorf("write storyboard: %w", err))
	}
	logger.Info("run finished",
		logging.Int("scenes", len(report.Scenes)),
		logging.Int("failed_artifacts", report.Failed()),
		logging.Int("cache_hits", report.CacheHits()),
		logging.Float64("total_seconds", report.TotalSeconds()),
		logging.String(logging.FieldEventType, "run_finished"),
	)
	return report, runErr
}

func (r *Runner) runScene(ctx context.Context, s *script.Script, scene script.Scene, opts Options) SceneReport {
	ctx = services.WithSceneID(ctx, scene.ID)
	out := SceneReport{
		SceneID:   scene.ID,
		Narration: scene.Narration,
		Visual:    scene.VisualDescription,
	}

	imgRes, err := r.images.Resolve(ctx, scene)
	out.Image = newArtifactReport(imagegen.Kind, imgRes, err)
	if err == nil {
		r.publish(ctx, out.Image, imgRes.Artifact, filepath.Join(opts.OutputDir, fmt.Sprintf("scene_%03d.png", scene.ID)))
	}
	r.record(ctx, opts.RunID, scene.ID, out.Image, 0)

	if !opts.Preview {
		audioRes, err := r.speech.Resolve(ctx, speech.Request{Scene: scene, Language: s.Language, Voice: s.Voice})
		out.Audio = newArtifactReport(speech.Kind, audioRes, err)
		if err == nil {
			if d, derr := wav.Duration(audioRes.Artifact); derr == nil {
				out.AudioSeconds = d.Seconds()
			}
			r.publish(ctx, out.Audio, audioRes.Artifact, filepath.Join(opts.OutputDir, fmt.Sprintf("scene_%03d.wav", scene.ID)))
		}
		r.record(ctx, opts.RunID, scene.ID, out.Audio, out.AudioSeconds)
	}

	if scene.Duration.IsAuto() {
		out.DurationSeconds = out.AudioSeconds
	} else {
		out.DurationSeconds = scene.Duration.Seconds()
	}
	return out
}

func (r *Runner) publish(ctx context.Context, a *ArtifactReport, data []byte, path string) {
	if err := fileutil.WriteAtomic(path, data, 0o644); err != nil {
		a.Error = fmt.Sprintf("publish: %v", err)
		logging.ErrorWithContext(logging.WithContext(ctx, r.logger), "artifact not published", "publish_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the output directory"),
		)
		return
	}
	a.Path = path
}

func (r *Runner) record(ctx context.Context, runID string, sceneID int, a *ArtifactReport, seconds float64) {
	if r.recorder == nil || runID == "" {
		return
	}
	if err := r.recorder.RecordAsset(ctx, a.ledgerAsset(runID, sceneID, seconds)); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "ledger write failed", "ledger_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.manifest_path"),
			logging.String(logging.FieldImpact, "history for this run is incomplete"),
		)
	}
}
