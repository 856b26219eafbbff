package main

import (
	"fmt"
	"log/slog"
	"strings"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/config"
	"doodlecast/internal/imagegen"
	"doodlecast/internal/logging"
	"doodlecast/internal/media/wav"
	"doodlecast/internal/services/diffusion"
	"doodlecast/internal/services/melotts"
	"doodlecast/internal/services/piper"
	"doodlecast/internal/speech"
)

const (
	kindImages = "images"
	kindAudio  = "audio"
	kindAll    = "all"
)

type caches struct {
	images *artifactcache.Store
	audio  *artifactcache.Store
}

func openCaches(cfg *config.Config, logger *slog.Logger) (caches, error) {
	images, err := artifactcache.Open(cfg.ImagesCacheDir(), ".png",
		artifactcache.WithValidator(imagegen.ValidatePNG),
		artifactcache.WithLogger(logger),
	)
	if err != nil {
		return caches{}, fmt.Errorf("open image cache: %w", err)
	}
	audio, err := artifactcache.Open(cfg.AudioCacheDir(), ".wav",
		artifactcache.WithValidator(wav.Validate),
		artifactcache.WithLogger(logger),
	)
	if err != nil {
		return caches{}, fmt.Errorf("open audio cache: %w", err)
	}
	return caches{images: images, audio: audio}, nil
}

// selected returns the stores named by kind in display order.
func (c caches) selected(kind string) ([]namedStore, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case kindImages:
		return []namedStore{{kindImages, c.images}}, nil
	case kindAudio:
		return []namedStore{{kindAudio, c.audio}}, nil
	case kindAll, "":
		return []namedStore{{kindImages, c.images}, {kindAudio, c.audio}}, nil
	default:
		return nil, fmt.Errorf("unknown cache kind %q (want images, audio, or all)", kind)
	}
}

type namedStore struct {
	name  string
	store *artifactcache.Store
}

func newImagePipeline(cfg *config.Config, cache *artifactcache.Store, quality string, logger *slog.Logger) (*imagegen.Pipeline, error) {
	client := diffusion.NewClient(diffusion.Config{
		BaseURL:        cfg.Image.BackendURL,
		APIKey:         cfg.Image.APIKey,
		TimeoutSeconds: cfg.Image.TimeoutSeconds,
	})
	return imagegen.New(cache, imagegen.ClientLoader(client), imagegen.Options{
		Quality:       quality,
		Seed:          cfg.Image.Seed,
		InFlightGuard: cfg.Cache.InFlightGuard,
		Logger:        logger,
	})
}

// newSpeechPipeline chains the producers that are usable with cfg: the neural
// backend when a URL is set, Piper when its binary resolves, then the
// placeholder when enabled.
func newSpeechPipeline(cfg *config.Config, cache *artifactcache.Store, logger *slog.Logger) (*speech.Pipeline, error) {
	var backends speech.Backends
	if strings.TrimSpace(cfg.Speech.BackendURL) != "" {
		backends.Neural = speech.MeloTTSLoader(melotts.NewClient(melotts.Config{
			BaseURL:        cfg.Speech.BackendURL,
			APIKey:         cfg.Speech.APIKey,
			TimeoutSeconds: cfg.Speech.TimeoutSeconds,
		}))
	}
	svc := piper.NewService(cfg.Speech.PiperBinary, cfg.Speech.PiperModelDir)
	if svc.Available() {
		backends.Local = speech.PiperLoader(svc)
	} else {
		logger.Debug("piper not available; skipping local speech producer",
			logging.String("binary", svc.Binary()),
		)
	}
	return speech.New(cache, backends, speech.Options{
		Voice:         cfg.Speech.Voice,
		Speed:         cfg.Speech.Speed,
		SampleRate:    cfg.Speech.SampleRate,
		Placeholder:   cfg.Speech.PlaceholderFallback,
		InFlightGuard: cfg.Cache.InFlightGuard,
		Logger:        logger,
	})
}
