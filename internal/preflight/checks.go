package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"doodlecast/internal/config"
	"doodlecast/internal/services/diffusion"
	"doodlecast/internal/services/httpapi"
	"doodlecast/internal/services/melotts"
)

const healthTimeout = 5 * time.Second

// CheckDirectoryAccess verifies that the directory is readable and writable.
// A missing directory is a warning because it is created on first use.
func CheckDirectoryAccess(name, path string) Result {
	if strings.TrimSpace(path) == "" {
		return Result{Name: name, Status: StatusFail, Detail: "not configured"}
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Status: StatusWarn, Detail: fmt.Sprintf("%s (does not exist yet; created on first run)", path)}
		}
		return Result{Name: name, Status: StatusFail, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Status: StatusFail, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Status: StatusFail, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckImageBackend verifies the diffusion backend is configured and answers
// its health endpoint. Without it every image fails.
func CheckImageBackend(ctx context.Context, cfg config.Image) Result {
	const name = "Image backend"
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return Result{Name: name, Status: StatusFail, Detail: "image.backend_url not set"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	client := diffusion.NewClient(diffusion.Config{
		BaseURL:        cfg.BackendURL,
		APIKey:         cfg.APIKey,
		TimeoutSeconds: int(healthTimeout / time.Second),
	}, httpapi.WithRetryMaxAttempts(1))
	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Status: StatusFail, Detail: summarizeHealthError(cfg.BackendURL, err)}
	}
	return Result{Name: name, Status: StatusOK, Detail: cfg.BackendURL + " (reachable)"}
}

// CheckSpeechBackend verifies the neural speech backend. Problems are
// warnings because Piper and the placeholder can still narrate.
func CheckSpeechBackend(ctx context.Context, cfg config.Speech) Result {
	const name = "Speech backend"
	if strings.TrimSpace(cfg.BackendURL) == "" {
		return Result{Name: name, Status: StatusWarn, Detail: "speech.backend_url not set (using fallbacks)"}
	}
	checkCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()
	client := melotts.NewClient(melotts.Config{
		BaseURL:        cfg.BackendURL,
		APIKey:         cfg.APIKey,
		TimeoutSeconds: int(healthTimeout / time.Second),
	}, httpapi.WithRetryMaxAttempts(1))
	if err := client.Health(checkCtx); err != nil {
		return Result{Name: name, Status: StatusWarn, Detail: summarizeHealthError(cfg.BackendURL, err)}
	}
	return Result{Name: name, Status: StatusOK, Detail: cfg.BackendURL + " (reachable)"}
}

// CheckPiper verifies the Piper binary resolves on PATH and the model
// directory exists.
func CheckPiper(cfg config.Speech) Result {
	const name = "Piper"
	binary := strings.TrimSpace(cfg.PiperBinary)
	if binary == "" {
		return Result{Name: name, Status: StatusWarn, Detail: "speech.piper_binary not set"}
	}
	resolved, err := exec.LookPath(binary)
	if err != nil {
		return Result{Name: name, Status: StatusWarn, Detail: fmt.Sprintf("%s not found on PATH", binary)}
	}
	models, _ := filepath.Glob(filepath.Join(cfg.PiperModelDir, "*.onnx"))
	if len(models) == 0 {
		return Result{Name: name, Status: StatusWarn, Detail: fmt.Sprintf("%s found, but no voice models in %s", resolved, cfg.PiperModelDir)}
	}
	return Result{Name: name, Status: StatusOK, Detail: fmt.Sprintf("%s (%d voice models)", resolved, len(models))}
}

func summarizeHealthError(url string, err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return url + " (health check timed out)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return url + " (health check timed out)"
	}
	return fmt.Sprintf("%s (unreachable: %v)", url, err)
}
