package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// pruneLogs removes files in dir matching pattern whose modification time is
// older than retentionDays. keep is never removed. Zero days disables pruning.
func pruneLogs(logger *slog.Logger, dir, pattern, keep string, retentionDays int, now time.Time) {
	if retentionDays <= 0 || dir == "" {
		return
	}
	matches, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	for _, path := range matches {
		if path == keep {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.IsDir() || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "old log not removed", "log_retention_failed",
				String("path", path),
				Error(err),
				String(FieldErrorHint, "check ownership of paths.log_dir"),
				String(FieldImpact, "old log file stays on disk"),
			)
			continue
		}
		logger.Debug("log pruned", String("path", path), String(FieldEventType, "log_pruned"))
	}
}
