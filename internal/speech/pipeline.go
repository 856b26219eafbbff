package speech

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"doodlecast/internal/engine"
	"doodlecast/internal/fallback"
	"doodlecast/internal/fingerprint"
	"doodlecast/internal/logging"
	"doodlecast/internal/media/wav"
	"doodlecast/internal/script"
	"doodlecast/internal/services"
	"doodlecast/internal/services/melotts"
	"doodlecast/internal/services/piper"
)

const (
	// Kind labels audio artifacts in logs, errors, and the run ledger.
	Kind = "audio"

	ProducerMeloTTS     = "melotts"
	ProducerPiper       = "piper"
	ProducerPlaceholder = "placeholder"

	defaultSampleRate = 22050
)

// Neural is the loaded neural speech backend.
type Neural interface {
	Synthesize(ctx context.Context, req melotts.Request) ([]byte, error)
}

// Local is the loaded Piper synthesizer.
type Local interface {
	Synthesize(ctx context.Context, text, model string, speed float64) ([]byte, error)
}

// MeloTTSLoader loads client, failing when no backend URL is configured.
func MeloTTSLoader(client *melotts.Client) engine.Loader[Neural] {
	return func(context.Context) (Neural, error) {
		if !client.Configured() {
			return nil, services.Wrap(services.ErrConfiguration, "speech", "load melotts",
				"speech.backend_url is not set", nil)
		}
		return client, nil
	}
}

// PiperLoader loads svc, failing when the binary is not on PATH.
func PiperLoader(svc *piper.Service) engine.Loader[Local] {
	return func(context.Context) (Local, error) {
		if !svc.Available() {
			return nil, services.Wrap(services.ErrNotFound, "speech", "load piper",
				fmt.Sprintf("%q not found on PATH", svc.Binary()), nil)
		}
		return svc, nil
	}
}

// Backends supplies the producer loaders. A nil loader leaves that producer
// out of the chain.
type Backends struct {
	Neural engine.Loader[Neural]
	Local  engine.Loader[Local]
}

// Options configures a Pipeline.
type Options struct {
	// Voice overrides the script's voice when set.
	Voice         string
	Speed         float64
	SampleRate    int
	Placeholder   bool
	InFlightGuard bool
	Logger        *slog.Logger
}

// Request is one scene's narration in the context of its script.
type Request struct {
	Scene    script.Scene
	Language string
	Voice    string
}

// Pipeline resolves scene narration through the cache and speech producers.
type Pipeline struct {
	opts         Options
	neural       *engine.Slot[Neural]
	local        *engine.Slot[Local]
	orchestrator *fallback.Orchestrator
	logger       *slog.Logger
}

// New builds a pipeline.
func New(cache fallback.Cache, backends Backends, opts Options) (*Pipeline, error) {
	if cache == nil {
		return nil, errors.New("speech: cache required")
	}
	if opts.Speed <= 0 {
		opts.Speed = 1.0
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = defaultSampleRate
	}
	opts.Voice = strings.ToLower(strings.TrimSpace(opts.Voice))
	if backends.Neural == nil && backends.Local == nil && !opts.Placeholder {
		return nil, services.Wrap(services.ErrConfiguration, "speech", "build chain",
			"no speech producer configured", nil)
	}
	p := &Pipeline{
		opts: opts,
		orchestrator: fallback.New(Kind, cache,
			fallback.WithInFlightGuard(opts.InFlightGuard),
			fallback.WithLogger(opts.Logger),
		),
		logger: logging.NewComponentLogger(opts.Logger, "speech"),
	}
	if backends.Neural != nil {
		p.neural = engine.NewSlot(ProducerMeloTTS, backends.Neural, nil)
	}
	if backends.Local != nil {
		p.local = engine.NewSlot(ProducerPiper, backends.Local, nil)
	}
	return p, nil
}

// SampleRate is the rate of every clip the pipeline returns.
func (p *Pipeline) SampleRate() int { return p.opts.SampleRate }

// Producers lists the chain in the order it is tried.
func (p *Pipeline) Producers() []string {
	names := make([]string, 0, 3)
	if p.neural != nil {
		names = append(names, ProducerMeloTTS)
	}
	if p.local != nil {
		names = append(names, ProducerPiper)
	}
	if p.opts.Placeholder {
		names = append(names, ProducerPlaceholder)
	}
	return names
}

// Unload releases any loaded backend handles.
func (p *Pipeline) Unload() error {
	var errs []error
	if p.neural != nil {
		errs = append(errs, p.neural.Unload())
	}
	if p.local != nil {
		errs = append(errs, p.local.Unload())
	}
	return errors.Join(errs...)
}

// Voice resolves the voice used for req, applying the configured override.
func (p *Pipeline) Voice(req Request) (Voice, bool) {
	name := req.Voice
	if p.opts.Voice != "" {
		name = p.opts.Voice
	}
	return ResolveVoice(name)
}

// Fingerprint identifies the audio req would produce with this pipeline.
func (p *Pipeline) Fingerprint(req Request) fingerprint.Fingerprint {
	voice, _ := p.Voice(req)
	return p.fingerprint(req, voice)
}

func (p *Pipeline) fingerprint(req Request, voice Voice) fingerprint.Fingerprint {
	return fingerprint.New(Kind).
		Int("scene_id", int64(req.Scene.ID)).
		String("narration", req.Scene.Narration).
		String("language", strings.ToLower(req.Language)).
		String("voice", voice.Name).
		Float("speed", p.opts.Speed).
		Int("sample_rate", int64(p.opts.SampleRate)).
		Sum()
}

// Resolve returns the scene's WAVE audio from the cache or the first
// producer that succeeds.
func (p *Pipeline) Resolve(ctx context.Context, req Request) (fallback.Result, error) {
	ctx = services.WithSceneID(ctx, req.Scene.ID)
	voice, known := p.Voice(req)
	if !known {
		attrs := append([]logging.Attr{
			logging.String("requested_voice", req.Voice),
			logging.String(logging.FieldErrorHint, "choose one of: "+strings.Join(Voices(), ", ")),
			logging.String(logging.FieldImpact, "narration uses the default voice"),
		}, logging.DecisionAttrs("voice", voice.Name, "requested voice is not in the voice table")...)
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "unknown voice", "voice_fallback", attrs...)
	}
	return p.orchestrator.Resolve(ctx, p.fingerprint(req, voice), p.producers(req, voice))
}

func (p *Pipeline) producers(req Request, voice Voice) []fallback.Producer {
	chain := make([]fallback.Producer, 0, 3)
	text := req.Scene.Narration
	if p.neural != nil {
		chain = append(chain, fallback.Producer{
			Name: ProducerMeloTTS,
			Produce: func(ctx context.Context) ([]byte, error) {
				backend, err := p.neural.Acquire(ctx)
				if err != nil {
					return nil, err
				}
				data, err := backend.Synthesize(ctx, melotts.Request{
					Text:     text,
					Speaker:  voice.MeloSpeaker,
					Language: voice.MeloLanguage,
					Speed:    p.opts.Speed,
				})
				if err != nil {
					return nil, err
				}
				return p.normalize(data)
			},
		})
	}
	if p.local != nil {
		chain = append(chain, fallback.Producer{
			Name: ProducerPiper,
			Produce: func(ctx context.Context) ([]byte, error) {
				backend, err := p.local.Acquire(ctx)
				if err != nil {
					return nil, err
				}
				data, err := backend.Synthesize(ctx, text, voice.PiperModel, p.opts.Speed)
				if err != nil {
					return nil, err
				}
				return p.normalize(data)
			},
		})
	}
	if p.opts.Placeholder {
		words := req.Scene.WordCount()
		chain = append(chain, fallback.Producer{
			Name:      ProducerPlaceholder,
			Ephemeral: true,
			Produce: func(ctx context.Context) ([]byte, error) {
				logging.WarnWithContext(logging.WithContext(ctx, p.logger), "using placeholder narration", "placeholder_audio",
					logging.Float64("seconds", PlaceholderSeconds(words, p.opts.Speed)),
					logging.String(logging.FieldErrorHint, "configure speech.backend_url or install piper"),
					logging.String(logging.FieldImpact, "scene has a tone instead of speech"),
				)
				return Placeholder(words, p.opts.Speed, p.opts.SampleRate), nil
			},
		})
	}
	return chain
}

// normalize re-encodes producer output as mono 16-bit at the pipeline rate.
func (p *Pipeline) normalize(data []byte) ([]byte, error) {
	clip, err := wav.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	if len(clip.Samples) == 0 {
		return nil, errors.New("synthesized audio is empty")
	}
	return wav.Encode(wav.Resample(clip, p.opts.SampleRate)), nil
}
