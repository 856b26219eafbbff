package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"doodlecast/internal/config"
)

// Options describes logger construction parameters.
type Options struct {
	// Level is debug, info, warn, or error. Unknown values mean info.
	Level string
	// Format is console or json.
	Format string
	// OutputPaths lists "stdout", "stderr", or file paths. Empty means stderr.
	OutputPaths []string
	// Source adds file:line to every record. Implied at debug level.
	Source bool
}

// New constructs a slog logger using the provided options.
func New(opts Options) (*slog.Logger, error) {
	level := new(slog.LevelVar)
	level.Set(parseLevel(opts.Level))

	w, err := openOutputs(opts.OutputPaths)
	if err != nil {
		return nil, err
	}
	addSource := opts.Source || level.Level() <= slog.LevelDebug

	switch format := strings.ToLower(strings.TrimSpace(opts.Format)); format {
	case "", "console":
		return slog.New(newPrettyHandler(w, level, addSource)), nil
	case "json":
		return slog.New(newJSONHandler(w, level, addSource)), nil
	default:
		return nil, fmt.Errorf("log format: unsupported value %q", opts.Format)
	}
}

// NewFromConfig creates the CLI logger. Output goes to stderr and, when a log
// directory is configured, to a daily file there; files older than
// logging.retention_days are pruned.
func NewFromConfig(cfg *config.Config) (*slog.Logger, error) {
	if cfg == nil {
		return New(Options{})
	}
	now := time.Now()
	outputs := []string{"stderr"}
	logFile := ""
	if dir := cfg.Paths.LogDir; dir != "" {
		logFile = DailyLogPath(dir, now)
		outputs = append(outputs, logFile)
	}
	logger, err := New(Options{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: outputs,
	})
	if err != nil {
		return nil, err
	}
	if logFile != "" {
		pruneLogs(logger, cfg.Paths.LogDir, "doodlecast-*.log", logFile, cfg.Logging.RetentionDays, now)
	}
	return logger, nil
}

// DailyLogPath returns the log file used for the day containing now.
func DailyLogPath(dir string, now time.Time) string {
	return filepath.Join(dir, "doodlecast-"+now.Format("20060102")+".log")
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// openOutputs opens each distinct output once. Files are created with their
// parent directory and opened for append.
func openOutputs(paths []string) (io.Writer, error) {
	var names []string
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" && !slices.Contains(names, p) {
			names = append(names, p)
		}
	}
	if len(names) == 0 {
		return os.Stderr, nil
	}

	writers := make([]io.Writer, 0, len(names))
	for _, name := range names {
		switch name {
		case "stdout":
			writers = append(writers, os.Stdout)
		case "stderr":
			writers = append(writers, os.Stderr)
		default:
			if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
				return nil, fmt.Errorf("create log directory for %s: %w", name, err)
			}
			file, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return nil, fmt.Errorf("open log file %s: %w", name, err)
			}
			writers = append(writers, file)
		}
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return io.MultiWriter(writers...), nil
}
