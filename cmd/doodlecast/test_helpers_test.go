package main

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"doodlecast/internal/config"
	"doodlecast/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	homeDir := filepath.Join(base, "home")
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		t.Fatalf("mkdir home: %v", err)
	}
	t.Setenv("HOME", homeDir)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(base, "xdg-cache"))
	t.Setenv("DOODLECAST_IMAGE_API_KEY", "")
	t.Setenv("DOODLECAST_SPEECH_API_KEY", "")

	cfg := testsupport.NewConfig(t, opts...)
	configPath := filepath.Join(homeDir, ".config", "doodlecast", "config.toml")
	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		t.Fatalf("mkdir config dir: %v", err)
	}
	writeTestConfig(t, configPath, cfg)

	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
cache_dir = %q
log_dir = %q
output_dir = %q
manifest_path = %q

[image]
quality = %q
backend_url = %q

[speech]
backend_url = %q
piper_binary = %q
piper_model_dir = %q
placeholder_fallback = true

[logging]
level = "error"
`,
		cfg.Paths.CacheDir,
		cfg.Paths.LogDir,
		cfg.Paths.OutputDir,
		cfg.Paths.ManifestPath,
		cfg.Image.Quality,
		cfg.Image.BackendURL,
		cfg.Speech.BackendURL,
		cfg.Speech.PiperBinary,
		cfg.Speech.PiperModelDir,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// fakeDiffusion serves /health and answers /v1/generate with a PNG, or with
// status when it is non-zero.
type fakeDiffusion struct {
	server   *httptest.Server
	requests atomic.Int32
}

func newFakeDiffusion(t *testing.T, status int) *fakeDiffusion {
	t.Helper()
	png := testsupport.PNGBytes(t, 8, 8)
	f := &fakeDiffusion{}
	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.WriteHeader(http.StatusOK)
		case "/v1/generate":
			f.requests.Add(1)
			if status != 0 {
				http.Error(w, `{"error":"model rejected prompt"}`, status)
				return
			}
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(f.server.Close)
	return f
}

func writeScriptFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	return testsupport.WriteText(t, filepath.Join(dir, name), contents)
}

func assertContains(t *testing.T, output string, want ...string) {
	t.Helper()
	for _, w := range want {
		if !strings.Contains(output, w) {
			t.Fatalf("expected output to contain %q, got:\n%s", w, output)
		}
	}
}
