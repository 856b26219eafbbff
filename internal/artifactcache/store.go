package artifactcache

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/flock"

	"doodlecast/internal/fileutil"
	"doodlecast/internal/fingerprint"
	"doodlecast/internal/logging"
)

const lockRetryDelay = 50 * time.Millisecond

// Validator rejects stored bytes that do not decode as the expected format.
type Validator func(data []byte) error

// PutStatus reports whether an artifact reached the cache.
type PutStatus string

const (
	PutStored   PutStatus = "stored"
	PutDegraded PutStatus = "degraded"
	// PutSkipped marks artifacts the caller chose not to cache.
	PutSkipped PutStatus = "skipped"
)

// PutResult is the outcome of Put. Err is set only when Status is PutDegraded.
type PutResult struct {
	Status PutStatus
	Path   string
	Err    error
}

// Stored reports whether the artifact was persisted.
func (r PutResult) Stored() bool { return r.Status == PutStored }

// Stats summarizes the artifacts held by a Store.
type Stats struct {
	Count      int
	TotalBytes int64
}

// Store is a directory of artifacts addressed by fingerprint.
type Store struct {
	dir       string
	lockDir   string
	ext       string
	validate  Validator
	logger    *slog.Logger
	createTmp fileutil.TempFunc
}

// Option customizes a Store.
type Option func(*Store)

// WithValidator checks artifacts on read; failures are treated as misses.
func WithValidator(v Validator) Option {
	return func(s *Store) { s.validate = v }
}

// WithLogger routes cache warnings to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open prepares a store rooted at dir holding files with extension ext
// (for example ".png").
func Open(dir, ext string, opts ...Option) (*Store, error) {
	dir = filepath.Clean(strings.TrimSpace(dir))
	if dir == "." || dir == "" {
		return nil, errors.New("artifact cache directory is required")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	s := &Store{
		dir:       dir,
		lockDir:   dir + ".locks",
		ext:       ext,
		createTmp: os.CreateTemp,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "artifactcache")
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact cache dir: %w", err)
	}
	return s, nil
}

// Dir returns the directory holding artifacts.
func (s *Store) Dir() string { return s.dir }

// Path returns where the artifact for fp lives.
func (s *Store) Path(fp fingerprint.Fingerprint) string {
	return filepath.Join(s.dir, string(fp)+s.ext)
}

// Get returns the artifact for fp. Missing, unreadable, empty, or invalid
// files all report a miss; the latter are logged and removed.
func (s *Store) Get(ctx context.Context, fp fingerprint.Fingerprint) ([]byte, bool) {
	path := s.Path(fp)
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.warn(ctx, fp, "cached artifact unreadable; treating as miss", "cache_read_failed", err,
				"check permissions on the cache directory")
		}
		return nil, false
	}
	if len(data) == 0 {
		s.discard(ctx, fp, path, errors.New("artifact is empty"))
		return nil, false
	}
	if s.validate != nil {
		if err := s.validate(data); err != nil {
			s.discard(ctx, fp, path, err)
			return nil, false
		}
	}
	return data, true
}

func (s *Store) discard(ctx context.Context, fp fingerprint.Fingerprint, path string, cause error) {
	s.warn(ctx, fp, "cached artifact corrupt; treating as miss", "cache_corrupt", cause,
		"the artifact will be regenerated")
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.warn(ctx, fp, "corrupt artifact could not be removed", "cache_remove_failed", err,
			"remove the file manually or run 'doodlecast cache clear'")
	}
}

// Put writes data for fp atomically. Failures are logged and returned as a
// degraded result; they never abort the caller.
func (s *Store) Put(ctx context.Context, fp fingerprint.Fingerprint, data []byte) PutResult {
	path := s.Path(fp)
	if err := s.write(path, data); err != nil {
		s.warn(ctx, fp, "artifact not cached", "cache_write_failed", err,
			"check free space and permissions on the cache directory")
		return PutResult{Status: PutDegraded, Path: path, Err: err}
	}
	logging.WithContext(ctx, s.logger).Debug("artifact cached",
		logging.String(logging.FieldFingerprint, string(fp)),
		logging.String("path", path),
		logging.Int("bytes", len(data)),
	)
	return PutResult{Status: PutStored, Path: path}
}

func (s *Store) write(path string, data []byte) error {
	if len(data) == 0 {
		return errors.New("refusing to cache empty artifact")
	}
	return fileutil.WriteAtomicWith(path, data, 0o644, s.createTmp)
}

// Clear deletes every artifact and recreates an empty directory. Errors are
// logged and returned for reporting; the store stays usable.
func (s *Store) Clear(ctx context.Context) error {
	logger := logging.WithContext(ctx, s.logger)
	var errs []error
	if err := os.RemoveAll(s.dir); err != nil {
		errs = append(errs, fmt.Errorf("remove %s: %w", s.dir, err))
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		errs = append(errs, fmt.Errorf("recreate %s: %w", s.dir, err))
	}
	if err := errors.Join(errs...); err != nil {
		logging.WarnWithContext(logger, "cache clear incomplete", "cache_clear_failed",
			logging.Error(err),
			logging.String("dir", s.dir),
			logging.String(logging.FieldErrorHint, "check permissions on the cache directory"),
			logging.String(logging.FieldImpact, "some cached artifacts may remain"),
		)
		return err
	}
	logger.Info("cache cleared",
		logging.String("dir", s.dir),
		logging.String(logging.FieldEventType, "cache_cleared"),
	)
	return nil
}

// Stats counts artifacts and their total size. Temporary files are skipped.
func (s *Store) Stats() (Stats, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Stats{}, nil
		}
		return Stats{}, fmt.Errorf("read cache dir: %w", err)
	}
	var stats Stats
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".tmp-") || !strings.HasSuffix(name, s.ext) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Count++
		stats.TotalBytes += info.Size()
	}
	return stats, nil
}

// Lock blocks until this process holds the cross-process lock for fp or ctx
// ends. The returned function releases it.
func (s *Store) Lock(ctx context.Context, fp fingerprint.Fingerprint) (func(), error) {
	if err := os.MkdirAll(s.lockDir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock dir: %w", err)
	}
	lock := flock.New(filepath.Join(s.lockDir, string(fp)+".lock"))
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquire artifact lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("acquire artifact lock: %w", ctx.Err())
	}
	return func() {
		if err := lock.Unlock(); err != nil {
			s.warn(ctx, fp, "artifact lock release failed", "cache_unlock_failed", err,
				"stale lock files are harmless and can be deleted")
		}
	}, nil
}

func (s *Store) warn(ctx context.Context, fp fingerprint.Fingerprint, msg, event string, err error, hint string) {
	logging.WarnWithContext(logging.WithContext(ctx, s.logger), msg, event,
		logging.String(logging.FieldFingerprint, string(fp)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, hint),
		logging.String(logging.FieldImpact, "artifact cache degraded; generation continues"),
	)
}
