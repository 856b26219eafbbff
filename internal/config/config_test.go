package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"doodlecast/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("XDG_CACHE_HOME", "")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	if want := filepath.Join(tempHome, ".cache", "doodlecast"); cfg.Paths.CacheDir != want {
		t.Fatalf("unexpected cache dir: got %q want %q", cfg.Paths.CacheDir, want)
	}
	if want := filepath.Join(tempHome, ".local", "share", "doodlecast", "logs"); cfg.Paths.LogDir != want {
		t.Fatalf("unexpected log dir: got %q want %q", cfg.Paths.LogDir, want)
	}
	if !filepath.IsAbs(cfg.Paths.OutputDir) {
		t.Fatalf("expected absolute output dir, got %q", cfg.Paths.OutputDir)
	}
	if cfg.Image.Quality != "balanced" {
		t.Fatalf("unexpected default quality %q", cfg.Image.Quality)
	}
	if cfg.Image.Seed != nil {
		t.Fatalf("expected no default seed, got %d", *cfg.Image.Seed)
	}
	if cfg.Speech.SampleRate != 22050 || cfg.Speech.Speed != 1.0 {
		t.Fatalf("unexpected speech defaults: %+v", cfg.Speech)
	}
	if !cfg.Speech.PlaceholderFallback || !cfg.Cache.InFlightGuard {
		t.Fatal("expected placeholder fallback and in-flight guard enabled by default")
	}

	cfg.Paths.OutputDir = filepath.Join(tempHome, "out")
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.CacheDir, cfg.Paths.LogDir, cfg.Paths.OutputDir, filepath.Dir(cfg.Paths.ManifestPath)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
}

func TestLoadCustomPath(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "doodlecast.toml")

	contents := `
[paths]
cache_dir = "` + filepath.Join(tempDir, "cache") + `"

[image]
quality = "HIGH"
seed = 42

[speech]
voice = "Male_UK"
speed = 1.5
`
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected exists to be true")
	}
	if resolved != configPath {
		t.Fatalf("unexpected resolved path: got %q want %q", resolved, configPath)
	}
	if cfg.Paths.CacheDir != filepath.Join(tempDir, "cache") {
		t.Fatalf("unexpected cache dir %q", cfg.Paths.CacheDir)
	}
	if cfg.Image.Quality != "high" {
		t.Fatalf("expected normalized quality, got %q", cfg.Image.Quality)
	}
	if cfg.Image.Seed == nil || *cfg.Image.Seed != 42 {
		t.Fatalf("expected seed 42, got %v", cfg.Image.Seed)
	}
	if cfg.Speech.Voice != "male_uk" {
		t.Fatalf("expected normalized voice, got %q", cfg.Speech.Voice)
	}
	if cfg.Speech.Speed != 1.5 {
		t.Fatalf("expected speed 1.5, got %g", cfg.Speech.Speed)
	}
	if cfg.ImagesCacheDir() != filepath.Join(tempDir, "cache", "images") {
		t.Fatalf("unexpected images dir %q", cfg.ImagesCacheDir())
	}
	if cfg.AudioCacheDir() != filepath.Join(tempDir, "cache", "audio") {
		t.Fatalf("unexpected audio dir %q", cfg.AudioCacheDir())
	}
}

func TestEnvVarOverridesConfigFileForAPIKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "doodlecast.toml")

	type payload struct {
		Image struct {
			APIKey string `toml:"api_key"`
		} `toml:"image"`
		Speech struct {
			APIKey string `toml:"api_key"`
		} `toml:"speech"`
	}
	custom := payload{}
	custom.Image.APIKey = "file-image"
	custom.Speech.APIKey = "file-speech"
	data, err := toml.Marshal(custom)
	if err != nil {
		t.Fatalf("marshal custom config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write custom config: %v", err)
	}

	t.Setenv("DOODLECAST_IMAGE_API_KEY", "env-image")
	t.Setenv("DOODLECAST_SPEECH_API_KEY", "env-speech")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Image.APIKey != "env-image" {
		t.Errorf("expected image key from env, got %q", cfg.Image.APIKey)
	}
	if cfg.Speech.APIKey != "env-speech" {
		t.Errorf("expected speech key from env, got %q", cfg.Speech.APIKey)
	}
}

func TestDotEnvNextToConfigSuppliesKeys(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "doodlecast.toml")
	if err := os.WriteFile(configPath, []byte("[image]\nquality = \"fast\"\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tempDir, ".env"), []byte("DOODLECAST_SPEECH_API_KEY=from-dotenv\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// Register cleanup for a variable godotenv will set.
	t.Setenv("DOODLECAST_SPEECH_API_KEY", "")
	os.Unsetenv("DOODLECAST_SPEECH_API_KEY")

	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Speech.APIKey != "from-dotenv" {
		t.Fatalf("expected key from .env, got %q", cfg.Speech.APIKey)
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(contents), "DOODLECAST_IMAGE_API_KEY") {
		t.Fatalf("sample config missing env hint: %s", contents)
	}

	var cfg config.Config
	if err := toml.Unmarshal(contents, &cfg); err != nil {
		t.Fatalf("unmarshal sample: %v", err)
	}
	if cfg.Image.Quality != "balanced" {
		t.Fatalf("expected sample quality balanced, got %q", cfg.Image.Quality)
	}
	if !strings.Contains(cfg.Paths.CacheDir, "doodlecast") {
		t.Fatalf("expected cache dir to contain doodlecast, got %q", cfg.Paths.CacheDir)
	}
}

func TestEncodeRoundTripsSections(t *testing.T) {
	cfg := config.Default()
	data, err := cfg.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	for _, section := range []string{"[paths]", "[image]", "[speech]", "[cache]", "[logging]"} {
		if !strings.Contains(string(data), section) {
			t.Fatalf("expected %s in encoded config:\n%s", section, data)
		}
	}
}

func TestValidateDetectsInvalidValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"unknown quality", func(c *config.Config) { c.Image.Quality = "ultra" }},
		{"negative seed", func(c *config.Config) { s := int64(-1); c.Image.Seed = &s }},
		{"speed too slow", func(c *config.Config) { c.Speech.Speed = 0.1 }},
		{"speed too fast", func(c *config.Config) { c.Speech.Speed = 3 }},
		{"sample rate", func(c *config.Config) { c.Speech.SampleRate = 100 }},
		{"no speech producer", func(c *config.Config) {
			c.Speech.BackendURL = ""
			c.Speech.PiperBinary = ""
			c.Speech.PlaceholderFallback = false
		}},
		{"image timeout", func(c *config.Config) { c.Image.TimeoutSeconds = 0 }},
		{"log level", func(c *config.Config) { c.Logging.Level = "chatty" }},
		{"empty cache dir", func(c *config.Config) { c.Paths.CacheDir = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}
