package preflight

import (
	"context"

	"doodlecast/internal/config"
)

// Status is the outcome of one check.
type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Status Status
	Detail string
}

// Passed reports whether the check is ok.
func (r Result) Passed() bool { return r.Status == StatusOK }

// Run executes every preflight check for cfg.
func Run(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}
	return []Result{
		CheckDirectoryAccess("Cache directory", cfg.Paths.CacheDir),
		CheckDirectoryAccess("Output directory", cfg.Paths.OutputDir),
		CheckDirectoryAccess("Log directory", cfg.Paths.LogDir),
		CheckImageBackend(ctx, cfg.Image),
		CheckSpeechBackend(ctx, cfg.Speech),
		CheckPiper(cfg.Speech),
	}
}

// Failed counts results with StatusFail.
func Failed(results []Result) int {
	n := 0
	for _, r := range results {
		if r.Status == StatusFail {
			n++
		}
	}
	return n
}
