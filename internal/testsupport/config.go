package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"doodlecast/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// Backend URLs are cleared so nothing reaches the network unless a test opts in.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.CacheDir = filepath.Join(base, "cache")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.ManifestPath = filepath.Join(base, "runs.db")
	cfgVal.Image.BackendURL = ""
	cfgVal.Speech.BackendURL = ""
	cfgVal.Speech.PiperBinary = filepath.Join(base, "bin", "piper-missing")
	cfgVal.Speech.PiperModelDir = filepath.Join(base, "piper")
	cfgVal.Logging.RetentionDays = 0

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithImageBackend points the image pipeline at url.
func WithImageBackend(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.BackendURL = url
	}
}

// WithSpeechBackend points the neural speech producer at url.
func WithSpeechBackend(url string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Speech.BackendURL = url
	}
}

// WithQuality selects the image preset.
func WithQuality(quality string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Image.Quality = quality
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, piper is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"piper"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
			if name == "piper" {
				b.cfg.Speech.PiperBinary = "piper"
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}
