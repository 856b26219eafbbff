// Package fileutil publishes files atomically so readers never observe a
// partially written output.
package fileutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// TempFunc creates the temp file a write is staged in. os.CreateTemp matches.
type TempFunc func(dir, pattern string) (*os.File, error)

// WriteAtomic writes data to a temp file beside dst, syncs it, and renames it
// over dst. dst is left untouched on failure.
func WriteAtomic(dst string, data []byte, mode os.FileMode) error {
	return WriteAtomicWith(dst, data, mode, os.CreateTemp)
}

// WriteAtomicWith is WriteAtomic with a custom temp file factory. Temp names
// start with ".tmp-" so directory scans can skip them.
func WriteAtomicWith(dst string, data []byte, mode os.FileMode, createTemp TempFunc) error {
	if createTemp == nil {
		createTemp = os.CreateTemp
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	tmp, err := createTemp(dir, ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return fmt.Errorf("sync %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close %s: %w", dst, err)
	}
	if err := os.Chmod(tmpName, mode); err != nil {
		cleanup()
		return fmt.Errorf("chmod %s: %w", dst, err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		cleanup()
		return fmt.Errorf("publish %s: %w", dst, err)
	}
	return nil
}

// WriteJSONAtomic encodes v as indented JSON and writes it with WriteAtomic.
func WriteJSONAtomic(dst string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(dst), err)
	}
	return WriteAtomic(dst, append(data, '\n'), 0o644)
}
