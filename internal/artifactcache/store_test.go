package artifactcache_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"doodlecast/internal/artifactcache"
	"doodlecast/internal/fingerprint"
)

const fp = fingerprint.Fingerprint("0123456789abcdef")

func openStore(t *testing.T, opts ...artifactcache.Option) *artifactcache.Store {
	t.Helper()
	store, err := artifactcache.Open(filepath.Join(t.TempDir(), "images"), ".png", opts...)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return store
}

func TestGetMissThenPutThenHit(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	if _, ok := store.Get(ctx, fp); ok {
		t.Fatal("expected miss on empty store")
	}
	res := store.Put(ctx, fp, []byte("artifact"))
	if !res.Stored() || res.Err != nil {
		t.Fatalf("Put = %+v", res)
	}
	if res.Path != filepath.Join(store.Dir(), string(fp)+".png") {
		t.Fatalf("unexpected path %q", res.Path)
	}
	data, ok := store.Get(ctx, fp)
	if !ok || !bytes.Equal(data, []byte("artifact")) {
		t.Fatalf("Get = %q, %v", data, ok)
	}

	entries, err := os.ReadDir(store.Dir())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected only the published artifact, found %d entries", len(entries))
	}
}

func TestPutOverwritesAtomically(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	store.Put(ctx, fp, []byte("first"))
	store.Put(ctx, fp, []byte("second"))
	data, ok := store.Get(ctx, fp)
	if !ok || string(data) != "second" {
		t.Fatalf("Get = %q, %v", data, ok)
	}
}

func TestPutRejectsEmptyArtifact(t *testing.T) {
	res := openStore(t).Put(context.Background(), fp, nil)
	if res.Stored() || res.Err == nil {
		t.Fatalf("expected degraded result, got %+v", res)
	}
}

func TestGetTreatsCorruptArtifactAsMiss(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, artifactcache.WithValidator(func(data []byte) error {
		if !bytes.HasPrefix(data, []byte("OK")) {
			return errors.New("bad magic")
		}
		return nil
	}))

	if err := os.WriteFile(store.Path(fp), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(ctx, fp); ok {
		t.Fatal("corrupt artifact should be a miss")
	}
	if _, err := os.Stat(store.Path(fp)); !os.IsNotExist(err) {
		t.Fatalf("corrupt artifact should be removed, stat err=%v", err)
	}

	if err := os.WriteFile(store.Path(fp), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(ctx, fp); ok {
		t.Fatal("empty artifact should be a miss")
	}

	store.Put(ctx, fp, []byte("OK data"))
	if _, ok := store.Get(ctx, fp); !ok {
		t.Fatal("valid artifact should hit")
	}
}

func TestGetUnreadableArtifactIsMiss(t *testing.T) {
	store := openStore(t)
	if err := os.MkdirAll(store.Path(fp), 0o755); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Get(context.Background(), fp); ok {
		t.Fatal("directory in place of artifact should be a miss")
	}
}

func TestStatsAndClear(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	store.Put(ctx, "aaaaaaaaaaaaaaaa", []byte("12345"))
	store.Put(ctx, "bbbbbbbbbbbbbbbb", []byte("123"))
	if err := os.WriteFile(filepath.Join(store.Dir(), ".tmp-123.png"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(store.Dir(), "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	stats, err := store.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 2 || stats.TotalBytes != 8 {
		t.Fatalf("Stats = %+v", stats)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	stats, err = store.Stats()
	if err != nil {
		t.Fatalf("Stats after clear: %v", err)
	}
	if stats.Count != 0 {
		t.Fatalf("expected empty store, got %+v", stats)
	}
	if info, err := os.Stat(store.Dir()); err != nil || !info.IsDir() {
		t.Fatalf("clear should recreate the directory: %v", err)
	}
	if res := store.Put(ctx, fp, []byte("again")); !res.Stored() {
		t.Fatalf("store unusable after clear: %+v", res)
	}
}

func TestOpenRequiresDirectory(t *testing.T) {
	if _, err := artifactcache.Open("  ", ".png"); err == nil {
		t.Fatal("expected error for empty directory")
	}
	store, err := artifactcache.Open(filepath.Join(t.TempDir(), "audio"), "wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if !strings.HasSuffix(store.Path(fp), ".wav") {
		t.Fatalf("extension not normalized: %q", store.Path(fp))
	}
}

func TestLockSerializesSameFingerprint(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)

	var active, maxActive atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := store.Lock(ctx, fp)
			if err != nil {
				t.Errorf("Lock: %v", err)
				return
			}
			defer unlock()
			n := active.Add(1)
			for {
				cur := maxActive.Load()
				if n <= cur || maxActive.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(20 * time.Millisecond)
			active.Add(-1)
		}()
	}
	wg.Wait()
	if maxActive.Load() != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxActive.Load())
	}
}

func TestLockHonoursContext(t *testing.T) {
	store := openStore(t)
	unlock, err := store.Lock(context.Background(), fp)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if _, err := store.Lock(ctx, fp); err == nil {
		t.Fatal("expected second lock to time out")
	}
}

func TestLocksSurviveClear(t *testing.T) {
	ctx := context.Background()
	store := openStore(t)
	unlock, err := store.Lock(ctx, fp)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	defer unlock()
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(filepath.Join(store.Dir()+".locks", string(fp)+".lock")); err != nil {
		t.Fatalf("lock file should live outside the cleared directory: %v", err)
	}
}
