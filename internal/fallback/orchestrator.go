package fallback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/fingerprint"
	"doodlecast/internal/logging"
	"doodlecast/internal/services"
)

// SourceCache is the Result.Source of a cache hit.
const SourceCache = "cache"

// Cache is the storage the orchestrator reads and writes.
type Cache interface {
	Get(ctx context.Context, fp fingerprint.Fingerprint) ([]byte, bool)
	Put(ctx context.Context, fp fingerprint.Fingerprint, data []byte) artifactcache.PutResult
}

// Locker is implemented by caches that can serialize work on one fingerprint.
type Locker interface {
	Lock(ctx context.Context, fp fingerprint.Fingerprint) (func(), error)
}

// Producer is one named way of creating an artifact.
type Producer struct {
	Name    string
	Produce func(ctx context.Context) ([]byte, error)
	// Ephemeral output is returned but never cached, so the next resolve
	// tries the chain again.
	Ephemeral bool
}

// Attempt records one producer invocation.
type Attempt struct {
	Producer string
	Err      error
	Elapsed  time.Duration
}

// OK reports whether the attempt produced the artifact.
func (a Attempt) OK() bool { return a.Err == nil }

// Result is a resolved artifact.
type Result struct {
	Fingerprint fingerprint.Fingerprint
	Artifact    []byte
	// Source is SourceCache or the name of the producer that succeeded.
	Source   string
	Attempts []Attempt
	// Put is the cache write outcome; zero for cache hits.
	Put artifactcache.PutResult
}

// CacheHit reports whether the artifact came from the cache.
func (r Result) CacheHit() bool { return r.Source == SourceCache }

// GenerationError reports that every producer failed.
type GenerationError struct {
	Kind        string
	Fingerprint fingerprint.Fingerprint
	Attempts    []Attempt
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "generate %s %s: ", e.Kind, e.Fingerprint)
	if len(e.Attempts) == 0 {
		b.WriteString("no producers configured")
		return b.String()
	}
	fmt.Fprintf(&b, "all %d producers failed", len(e.Attempts))
	for _, attempt := range e.Attempts {
		fmt.Fprintf(&b, "; %s: %v", attempt.Producer, attempt.Err)
	}
	return b.String()
}

// Is classifies the failure as an external tool error.
func (e *GenerationError) Is(target error) bool {
	return target == services.ErrExternalTool
}

// Unwrap exposes each attempt's error.
func (e *GenerationError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, attempt := range e.Attempts {
		if attempt.Err != nil {
			errs = append(errs, attempt.Err)
		}
	}
	return errs
}

// Orchestrator resolves artifacts of one kind.
type Orchestrator struct {
	kind   string
	cache  Cache
	guard  bool
	logger *slog.Logger
	now    func() time.Time
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithInFlightGuard makes concurrent resolves of the same fingerprint run the
// producer chain once, when the cache implements Locker.
func WithInFlightGuard(enabled bool) Option {
	return func(o *Orchestrator) { o.guard = enabled }
}

// WithLogger routes orchestration logs to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// New builds an orchestrator for artifacts of kind (used in logs and errors).
func New(kind string, cache Cache, opts ...Option) *Orchestrator {
	o := &Orchestrator{kind: kind, cache: cache, now: time.Now}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = logging.NewComponentLogger(o.logger, "fallback")
	return o
}

// Resolve returns the artifact for fp from the cache, or from the first
// producer that succeeds. Producers are never retried within one call.
func (o *Orchestrator) Resolve(ctx context.Context, fp fingerprint.Fingerprint, producers []Producer) (Result, error) {
	ctx = services.WithAssetKind(ctx, o.kind)
	logger := logging.WithContext(ctx, o.logger).With(logging.String(logging.FieldFingerprint, string(fp)))

	if data, ok := o.cache.Get(ctx, fp); ok {
		logger.Debug("cache hit", logging.String(logging.FieldEventType, "cache_hit"))
		return Result{Fingerprint: fp, Artifact: data, Source: SourceCache}, nil
	}

	if locker, ok := o.cache.(Locker); ok && o.guard {
		unlock, err := locker.Lock(ctx, fp)
		switch {
		case err == nil:
			defer unlock()
			if data, ok := o.cache.Get(ctx, fp); ok {
				logger.Debug("cache filled while waiting", logging.String(logging.FieldEventType, "cache_hit"))
				return Result{Fingerprint: fp, Artifact: data, Source: SourceCache}, nil
			}
		case ctx.Err() == nil:
			logging.WarnWithContext(logger, "in-flight guard unavailable", "cache_lock_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check permissions on the cache directory"),
				logging.String(logging.FieldImpact, "concurrent runs may duplicate work"),
			)
		}
	}

	attempts := make([]Attempt, 0, len(producers))
	for _, producer := range producers {
		attempt := o.run(ctx, producer)
		attempts = append(attempts, attempt.Attempt)
		if !attempt.OK() {
			logging.WarnWithContext(logger, "producer failed", "producer_failed",
				logging.String(logging.FieldProducer, producer.Name),
				logging.Duration("elapsed", attempt.Elapsed),
				logging.Error(attempt.Err),
				logging.String(logging.FieldErrorHint, "check the backend named by producer"),
				logging.String(logging.FieldImpact, "falling back to the next producer"),
			)
			continue
		}

		put := artifactcache.PutResult{Status: artifactcache.PutSkipped}
		if !producer.Ephemeral {
			put = o.cache.Put(ctx, fp, attempt.data)
		}
		logger.Info("artifact produced",
			logging.String(logging.FieldProducer, producer.Name),
			logging.Int("attempts", len(attempts)),
			logging.Duration("elapsed", attempt.Elapsed),
			logging.String("cache", string(put.Status)),
			logging.String(logging.FieldEventType, "artifact_produced"),
		)
		return Result{
			Fingerprint: fp,
			Artifact:    attempt.data,
			Source:      producer.Name,
			Attempts:    attempts,
			Put:         put,
		}, nil
	}

	genErr := &GenerationError{Kind: o.kind, Fingerprint: fp, Attempts: attempts}
	logging.ErrorWithContext(logger, "all producers failed", "generation_failed",
		logging.Int("attempts", len(attempts)),
		logging.Error(genErr),
	)
	return Result{Fingerprint: fp, Attempts: attempts}, genErr
}

type producedAttempt struct {
	Attempt
	data []byte
}

func (o *Orchestrator) run(ctx context.Context, producer Producer) producedAttempt {
	name := producer.Name
	if name == "" {
		name = "unnamed"
	}
	attempt := producedAttempt{Attempt: Attempt{Producer: name}}
	if err := ctx.Err(); err != nil {
		attempt.Err = fmt.Errorf("not started: %w", err)
		return attempt
	}
	if producer.Produce == nil {
		attempt.Err = errors.New("producer has no implementation")
		return attempt
	}

	start := o.now()
	data, err := producer.Produce(ctx)
	attempt.Elapsed = o.now().Sub(start)
	switch {
	case err != nil:
		attempt.Err = err
	case len(data) == 0:
		attempt.Err = errors.New("producer returned an empty artifact")
	default:
		attempt.data = data
	}
	return attempt
}
