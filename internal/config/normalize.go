package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeImage()
	if err := c.normalizeSpeech(); err != nil {
		return err
	}
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.CacheDir) == "" {
		c.Paths.CacheDir = defaultCacheDir()
	}
	if c.Paths.CacheDir, err = expandPath(c.Paths.CacheDir); err != nil {
		return fmt.Errorf("paths.cache_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.OutputDir) == "" {
		c.Paths.OutputDir = defaultOutputDir
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.ManifestPath, err = expandPath(c.Paths.ManifestPath); err != nil {
		return fmt.Errorf("paths.manifest_path: %w", err)
	}
	return nil
}

func (c *Config) normalizeImage() {
	c.Image.Quality = strings.ToLower(strings.TrimSpace(c.Image.Quality))
	if c.Image.Quality == "" {
		c.Image.Quality = defaultImageQuality
	}
	c.Image.BackendURL = strings.TrimRight(strings.TrimSpace(c.Image.BackendURL), "/")
	if value, ok := os.LookupEnv(imageAPIKeyEnv); ok && strings.TrimSpace(value) != "" {
		c.Image.APIKey = value
	}
	c.Image.APIKey = strings.TrimSpace(c.Image.APIKey)
	if c.Image.TimeoutSeconds <= 0 {
		c.Image.TimeoutSeconds = defaultImageTimeoutSeconds
	}
}

func (c *Config) normalizeSpeech() error {
	c.Speech.Voice = strings.ToLower(strings.TrimSpace(c.Speech.Voice))
	if c.Speech.Speed == 0 {
		c.Speech.Speed = defaultSpeechSpeed
	}
	if c.Speech.SampleRate <= 0 {
		c.Speech.SampleRate = defaultSpeechSampleRate
	}
	c.Speech.BackendURL = strings.TrimRight(strings.TrimSpace(c.Speech.BackendURL), "/")
	if value, ok := os.LookupEnv(speechAPIKeyEnv); ok && strings.TrimSpace(value) != "" {
		c.Speech.APIKey = value
	}
	c.Speech.APIKey = strings.TrimSpace(c.Speech.APIKey)
	if c.Speech.TimeoutSeconds <= 0 {
		c.Speech.TimeoutSeconds = defaultSpeechTimeout
	}
	c.Speech.PiperBinary = strings.TrimSpace(c.Speech.PiperBinary)
	if c.Speech.PiperBinary == "" {
		c.Speech.PiperBinary = defaultPiperBinary
	}
	var err error
	if c.Speech.PiperModelDir, err = expandPath(c.Speech.PiperModelDir); err != nil {
		return fmt.Errorf("speech.piper_model_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
