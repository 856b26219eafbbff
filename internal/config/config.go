package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and ledger locations.
type Paths struct {
	CacheDir     string `toml:"cache_dir"`
	LogDir       string `toml:"log_dir"`
	OutputDir    string `toml:"output_dir"`
	ManifestPath string `toml:"manifest_path"`
}

// Image contains configuration for the doodle image pipeline.
type Image struct {
	// Quality selects the preset: fast, balanced, or high.
	Quality string `toml:"quality"`
	// Seed pins the diffusion sampler. Nil lets the backend choose.
	Seed           *int64 `toml:"seed"`
	BackendURL     string `toml:"backend_url"`
	APIKey         string `toml:"api_key"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Speech contains configuration for the narration pipeline.
type Speech struct {
	// Voice overrides the script voice when set.
	Voice               string  `toml:"voice"`
	Speed               float64 `toml:"speed"`
	SampleRate          int     `toml:"sample_rate"`
	BackendURL          string  `toml:"backend_url"`
	APIKey              string  `toml:"api_key"`
	TimeoutSeconds      int     `toml:"timeout_seconds"`
	PiperBinary         string  `toml:"piper_binary"`
	PiperModelDir       string  `toml:"piper_model_dir"`
	PlaceholderFallback bool    `toml:"placeholder_fallback"`
}

// Cache contains configuration for the artifact cache.
type Cache struct {
	// InFlightGuard serializes producers for the same fingerprint across
	// processes using a lock file.
	InFlightGuard bool `toml:"in_flight_guard"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for doodlecast.
//
// Configuration sections by subsystem:
//   - Paths: cache, log, output directories and the run ledger
//   - Image: preset selection and the diffusion backend
//   - Speech: voice, rate, the neural backend, and the Piper fallback
//   - Cache: in-flight guard for concurrent runs
//   - Logging: log format, level, and retention
type Config struct {
	Paths   Paths   `toml:"paths"`
	Image   Image   `toml:"image"`
	Speech  Speech  `toml:"speech"`
	Cache   Cache   `toml:"cache"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	loadDotEnv(resolvedPath)

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

// loadDotEnv reads .env files next to the config and in the working
// directory. Variables already present in the environment win.
func loadDotEnv(configPath string) {
	candidates := []string{}
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if cwd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(cwd, ".env"))
	}
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		if info, err := os.Stat(candidate); err != nil || info.IsDir() {
			continue
		}
		_ = godotenv.Load(candidate)
	}
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("doodlecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the cache, log, and output directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.CacheDir, c.Paths.LogDir, c.Paths.OutputDir}
	if c.Paths.ManifestPath != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.ManifestPath))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// ImagesCacheDir returns the directory holding cached PNG artifacts.
func (c *Config) ImagesCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "images")
}

// AudioCacheDir returns the directory holding cached WAV artifacts.
func (c *Config) AudioCacheDir() string {
	return filepath.Join(c.Paths.CacheDir, "audio")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

func defaultCacheDir() string {
	if base, ok := os.LookupEnv("XDG_CACHE_HOME"); ok && strings.TrimSpace(base) != "" {
		return filepath.Join(base, "doodlecast")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "~/.cache/doodlecast"
	}
	return filepath.Join(home, ".cache", "doodlecast")
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// Encode renders the configuration as TOML.
func (c *Config) Encode() ([]byte, error) {
	data, err := toml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("encode config: %w", err)
	}
	return data, nil
}
