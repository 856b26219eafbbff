package testsupport

import (
	"testing"

	"doodlecast/internal/config"
	"doodlecast/internal/manifest"
)

// MustOpenLedger opens the run ledger at cfg.Paths.ManifestPath and registers cleanup.
func MustOpenLedger(t testing.TB, cfg *config.Config) *manifest.Ledger {
	t.Helper()

	ledger, err := manifest.Open(cfg.Paths.ManifestPath)
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() {
		ledger.Close()
	})
	return ledger
}
