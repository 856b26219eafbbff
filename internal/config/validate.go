package config

import (
	"errors"
	"fmt"
	"strings"
)

// Qualities lists the accepted image.quality values in ascending cost order.
var Qualities = []string{"fast", "balanced", "high"}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateSpeech(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		return errors.New("paths.cache_dir must be set")
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		return errors.New("paths.output_dir must be set")
	}
	return nil
}

// ValidQuality reports whether value names a known image preset.
func ValidQuality(value string) bool {
	for _, q := range Qualities {
		if q == value {
			return true
		}
	}
	return false
}

func (c *Config) validateImage() error {
	if !ValidQuality(c.Image.Quality) {
		return fmt.Errorf("image.quality must be one of %s, got %q", strings.Join(Qualities, ", "), c.Image.Quality)
	}
	if c.Image.Seed != nil && *c.Image.Seed < 0 {
		return errors.New("image.seed must be >= 0")
	}
	return ensurePositiveMap(map[string]int{
		"image.timeout_seconds": c.Image.TimeoutSeconds,
	})
}

func (c *Config) validateSpeech() error {
	if c.Speech.Speed < 0.5 || c.Speech.Speed > 2.0 {
		return fmt.Errorf("speech.speed must be between 0.5 and 2.0, got %g", c.Speech.Speed)
	}
	if c.Speech.SampleRate < 8000 || c.Speech.SampleRate > 48000 {
		return fmt.Errorf("speech.sample_rate must be between 8000 and 48000, got %d", c.Speech.SampleRate)
	}
	if strings.TrimSpace(c.Speech.BackendURL) == "" && strings.TrimSpace(c.Speech.PiperBinary) == "" && !c.Speech.PlaceholderFallback {
		return errors.New("speech has no producer: set speech.backend_url, speech.piper_binary, or enable speech.placeholder_fallback")
	}
	return ensurePositiveMap(map[string]int{
		"speech.timeout_seconds": c.Speech.TimeoutSeconds,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
