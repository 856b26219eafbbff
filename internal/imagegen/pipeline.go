package imagegen

import (
	"context"
	"errors"
	"log/slog"

	"doodlecast/internal/engine"
	"doodlecast/internal/fallback"
	"doodlecast/internal/fingerprint"
	"doodlecast/internal/logging"
	"doodlecast/internal/script"
	"doodlecast/internal/services"
	"doodlecast/internal/services/diffusion"
)

const (
	// Kind labels image artifacts in logs, errors, and the run ledger.
	Kind = "image"
	// ProducerDiffusion names the only image producer.
	ProducerDiffusion = "diffusion"
)

// Generator is the loaded image backend.
type Generator interface {
	Generate(ctx context.Context, req diffusion.Request) ([]byte, error)
}

// ClientLoader loads client, failing when no backend URL is configured.
func ClientLoader(client *diffusion.Client) engine.Loader[Generator] {
	return func(context.Context) (Generator, error) {
		if !client.Configured() {
			return nil, services.Wrap(services.ErrConfiguration, "imagegen", "load backend",
				"image.backend_url is not set", nil)
		}
		return client, nil
	}
}

// Options configures a Pipeline.
type Options struct {
	Quality       string
	Seed          *int64
	InFlightGuard bool
	Logger        *slog.Logger
}

// Pipeline resolves scene images through the cache and the diffusion backend.
type Pipeline struct {
	preset       Preset
	seed         *int64
	backend      *engine.Slot[Generator]
	orchestrator *fallback.Orchestrator
	logger       *slog.Logger
}

// New builds a pipeline. The preset is resolved here and fixed for the
// pipeline's lifetime.
func New(cache fallback.Cache, load engine.Loader[Generator], opts Options) (*Pipeline, error) {
	if cache == nil {
		return nil, errors.New("imagegen: cache required")
	}
	preset, err := PresetFor(opts.Quality)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "imagegen", "resolve preset", err.Error(), nil)
	}
	logger := logging.NewComponentLogger(opts.Logger, "imagegen")
	var seed *int64
	if opts.Seed != nil {
		v := *opts.Seed
		seed = &v
	}
	return &Pipeline{
		preset:  preset,
		seed:    seed,
		backend: engine.NewSlot("diffusion", load, nil),
		orchestrator: fallback.New(Kind, cache,
			fallback.WithInFlightGuard(opts.InFlightGuard),
			fallback.WithLogger(opts.Logger),
		),
		logger: logger,
	}, nil
}

// Preset returns the resolved parameter set.
func (p *Pipeline) Preset() Preset { return p.preset }

// BackendState reports whether the backend handle is loaded.
func (p *Pipeline) BackendState() engine.State { return p.backend.State() }

// Unload releases the backend handle.
func (p *Pipeline) Unload() error { return p.backend.Unload() }

// Fingerprint identifies the image a scene would produce with this pipeline.
func (p *Pipeline) Fingerprint(scene script.Scene) fingerprint.Fingerprint {
	b := fingerprint.New(Kind).
		Int("scene_id", int64(scene.ID)).
		String("visual_description", scene.VisualDescription).
		String("quality", p.preset.Name).
		Int("steps", int64(p.preset.Steps)).
		Int("width", int64(p.preset.Width)).
		Int("height", int64(p.preset.Height))
	if p.seed != nil {
		b.Int("seed", *p.seed)
	}
	if scene.ReferenceImage != "" {
		b.File("reference_image", scene.ReferenceImage)
	}
	return b.Sum()
}

// Resolve returns the scene's PNG from the cache or the backend.
func (p *Pipeline) Resolve(ctx context.Context, scene script.Scene) (fallback.Result, error) {
	ctx = services.WithSceneID(ctx, scene.ID)
	fp := p.Fingerprint(scene)
	return p.orchestrator.Resolve(ctx, fp, []fallback.Producer{{
		Name:    ProducerDiffusion,
		Produce: func(ctx context.Context) ([]byte, error) { return p.generate(ctx, scene) },
	}})
}

func (p *Pipeline) generate(ctx context.Context, scene script.Scene) ([]byte, error) {
	backend, err := p.backend.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	logger := logging.WithContext(ctx, p.logger)
	control, err := ControlImage(scene.ReferenceImage, p.preset.Width, p.preset.Height)
	if control == nil {
		return nil, err
	}
	if err != nil {
		logging.WarnWithContext(logger, "reference image unusable", "reference_unusable",
			logging.String("reference_image", scene.ReferenceImage),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "use a readable png, jpeg, or webp file"),
			logging.String(logging.FieldImpact, "generating without composition guidance"),
		)
	}
	prompt := Prompt(scene.VisualDescription)
	logger.Debug("requesting image", logging.String("prompt", prompt), logging.String("preset", p.preset.Name))
	data, err := backend.Generate(ctx, diffusion.Request{
		Prompt:            prompt,
		NegativePrompt:    NegativePrompt,
		ControlImage:      control,
		Steps:             p.preset.Steps,
		GuidanceScale:     p.preset.GuidanceScale,
		ConditioningScale: p.preset.ConditioningScale,
		Width:             p.preset.Width,
		Height:            p.preset.Height,
		Scheduler:         p.preset.Scheduler,
		Quantized:         p.preset.Quantized,
		Seed:              p.seed,
	})
	if err != nil {
		return nil, err
	}
	return normalizePNG(data)
}
