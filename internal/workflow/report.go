package workflow

import (
	"time"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/fallback"
	"doodlecast/internal/manifest"
)

// Cache status values reported per artifact.
const (
	CacheHit      = "hit"
	CacheStored   = "stored"
	CacheDegraded = "degraded"
	CacheSkipped  = "skipped"
)

// AttemptReport is one producer invocation.
type AttemptReport struct {
	Producer  string `json:"producer"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// ArtifactReport is the outcome for one image or audio artifact.
type ArtifactReport struct {
	Kind        string          `json:"kind"`
	Fingerprint string          `json:"fingerprint"`
	Source      string          `json:"source,omitempty"`
	CacheStatus string          `json:"cache_status,omitempty"`
	Attempts    []AttemptReport `json:"attempts,omitempty"`
	Path        string          `json:"path,omitempty"`
	Error       string          `json:"error,omitempty"`
}

// Failed reports whether the artifact could not be produced or published.
func (a *ArtifactReport) Failed() bool {
	return a != nil && a.Error != ""
}

// SceneReport is the outcome for one scene.
type SceneReport struct {
	SceneID   int             `json:"scene_id"`
	Narration string          `json:"narration"`
	Visual    string          `json:"visual_description"`
	Image     *ArtifactReport `json:"image,omitempty"`
	Audio     *ArtifactReport `json:"audio,omitempty"`
	// AudioSeconds is the narration clip length.
	AudioSeconds float64 `json:"audio_seconds,omitempty"`
	// DurationSeconds is the scene's screen time: the script duration when
	// numeric, otherwise the narration length.
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// Report summarizes a run.
type Report struct {
	RunID      string         `json:"run_id,omitempty"`
	Title      string         `json:"title"`
	Language   string         `json:"language"`
	Voice      string         `json:"voice"`
	Quality    string         `json:"quality,omitempty"`
	Preview    bool           `json:"preview"`
	OutputDir  string         `json:"output_dir"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Canceled   bool           `json:"canceled,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Scenes     []SceneReport  `json:"scenes"`
}

// Failed counts failed artifacts.
func (r *Report) Failed() int {
	n := 0
	for _, s := range r.Scenes {
		if s.Image.Failed() {
			n++
		}
		if s.Audio.Failed() {
			n++
		}
	}
	return n
}

// CacheHits counts artifacts served from the cache.
func (r *Report) CacheHits() int {
	n := 0
	for _, s := range r.Scenes {
		for _, a := range []*ArtifactReport{s.Image, s.Audio} {
			if a != nil && a.CacheStatus == CacheHit {
				n++
			}
		}
	}
	return n
}

// TotalSeconds sums the effective scene durations.
func (r *Report) TotalSeconds() float64 {
	var total float64
	for _, s := range r.Scenes {
		total += s.DurationSeconds
	}
	return total
}

// Status maps the report onto a ledger run status.
func (r *Report) Status() manifest.RunStatus {
	switch {
	case r.Canceled:
		return manifest.RunCanceled
	case r.Failed() > 0:
		return manifest.RunFailed
	default:
		return manifest.RunCompleted
	}
}

func newArtifactReport(kind string, res fallback.Result, err error) *ArtifactReport {
	a := &ArtifactReport{
		Kind:        kind,
		Fingerprint: string(res.Fingerprint),
		Source:      res.Source,
	}
	switch {
	case err != nil:
		a.Error = err.Error()
	case res.CacheHit():
		a.CacheStatus = CacheHit
	case res.Put.Stored():
		a.CacheStatus = CacheStored
	case res.Put.Status == artifactcache.PutSkipped:
		a.CacheStatus = CacheSkipped
	default:
		a.CacheStatus = CacheDegraded
	}
	for _, attempt := range res.Attempts {
		ar := AttemptReport{Producer: attempt.Producer, ElapsedMS: attempt.Elapsed.Milliseconds()}
		if attempt.Err != nil {
			ar.Error = attempt.Err.Error()
		}
		a.Attempts = append(a.Attempts, ar)
	}
	return a
}

func (a *ArtifactReport) ledgerAsset(runID string, sceneID int, seconds float64) manifest.Asset {
	asset := manifest.Asset{
		RunID:           runID,
		SceneID:         sceneID,
		Kind:            a.Kind,
		Fingerprint:     a.Fingerprint,
		Source:          a.Source,
		CacheStatus:     a.CacheStatus,
		Error:           a.Error,
		DurationSeconds: seconds,
	}
	for _, attempt := range a.Attempts {
		asset.Attempts = append(asset.Attempts, manifest.AttemptRecord{
			Producer:  attempt.Producer,
			Error:     attempt.Error,
			ElapsedMS: attempt.ElapsedMS,
		})
	}
	return asset
}
