package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// AttemptRecord is one producer invocation as stored in the ledger.
type AttemptRecord struct {
	Producer  string `json:"producer"`
	Error     string `json:"error,omitempty"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// Asset is one resolved (or failed) artifact within a run.
type Asset struct {
	RunID           string
	SceneID         int
	Kind            string
	Fingerprint     string
	Source          string
	CacheStatus     string
	Attempts        []AttemptRecord
	Error           string
	DurationSeconds float64
}

// Failed reports whether the artifact could not be produced.
func (a Asset) Failed() bool {
	return a.Error != ""
}

// RecordAsset appends an artifact outcome to its run.
func (l *Ledger) RecordAsset(ctx context.Context, asset Asset) error {
	attempts := asset.Attempts
	if attempts == nil {
		attempts = []AttemptRecord{}
	}
	encoded, err := json.Marshal(attempts)
	if err != nil {
		return fmt.Errorf("encode attempts: %w", err)
	}
	var duration any
	if asset.DurationSeconds > 0 {
		duration = asset.DurationSeconds
	}
	_, err = l.execWithRetry(ctx,
		`INSERT INTO assets (
            run_id, scene_id, kind, fingerprint, source, cache_status,
            attempts_json, error, duration_seconds
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		asset.RunID,
		asset.SceneID,
		asset.Kind,
		asset.Fingerprint,
		nullableString(asset.Source),
		nullableString(asset.CacheStatus),
		string(encoded),
		nullableString(asset.Error),
		duration,
	)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// RunAssets lists a run's artifacts ordered by scene then kind.
func (l *Ledger) RunAssets(ctx context.Context, runID string) ([]Asset, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT run_id, scene_id, kind, fingerprint, source, cache_status, attempts_json, error, duration_seconds
         FROM assets WHERE run_id = ? ORDER BY scene_id, kind, id`, runID)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []Asset
	for rows.Next() {
		var (
			asset       Asset
			source      sql.NullString
			cacheStatus sql.NullString
			attempts    string
			errText     sql.NullString
			duration    sql.NullFloat64
		)
		if err := rows.Scan(&asset.RunID, &asset.SceneID, &asset.Kind, &asset.Fingerprint,
			&source, &cacheStatus, &attempts, &errText, &duration); err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		asset.Source = source.String
		asset.CacheStatus = cacheStatus.String
		asset.Error = errText.String
		asset.DurationSeconds = duration.Float64
		if err := json.Unmarshal([]byte(attempts), &asset.Attempts); err != nil {
			return nil, fmt.Errorf("decode attempts for scene %d: %w", asset.SceneID, err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return assets, nil
}
