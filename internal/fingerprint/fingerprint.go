// Package fingerprint derives deterministic cache keys from the inputs that
// shape a generated artifact.
package fingerprint

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Length is the number of hex characters in a fingerprint.
const Length = 16

// Fingerprint names one artifact in the cache.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// Valid reports whether s looks like a fingerprint produced by Sum.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for _, r := range s {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return false
		}
	}
	return true
}

type field struct {
	key   string
	value string
}

// Builder accumulates keyed fields. Field order does not affect the result.
type Builder struct {
	fields []field
}

// New starts a fingerprint namespaced by kind, so identical inputs for
// different artifact kinds never collide.
func New(kind string) *Builder {
	b := &Builder{}
	return b.add("kind", kind)
}

func (b *Builder) add(key, value string) *Builder {
	b.fields = append(b.fields, field{key: key, value: value})
	return b
}

// String adds a text field. Text is NFC normalized so visually identical
// input hashes identically.
func (b *Builder) String(key, value string) *Builder {
	return b.add(key, norm.NFC.String(value))
}

// Int adds an integer field.
func (b *Builder) Int(key string, value int64) *Builder {
	return b.add(key, strconv.FormatInt(value, 10))
}

// Float adds a floating point field using the shortest exact representation.
func (b *Builder) Float(key string, value float64) *Builder {
	return b.add(key, strconv.FormatFloat(value, 'g', -1, 64))
}

// Bool adds a boolean field.
func (b *Builder) Bool(key string, value bool) *Builder {
	return b.add(key, strconv.FormatBool(value))
}

// File adds path and its modification time. A file that cannot be stat'ed is
// recorded as unavailable so the key stays stable until it appears.
func (b *Builder) File(key, path string) *Builder {
	if strings.TrimSpace(path) == "" {
		return b
	}
	clean := filepath.Clean(path)
	b.add(key+".path", clean)
	info, err := os.Stat(clean)
	if err != nil {
		return b.add(key+".mtime", "unavailable")
	}
	return b.add(key+".mtime", strconv.FormatInt(info.ModTime().UnixNano(), 10))
}

// Sum hashes the accumulated fields.
func (b *Builder) Sum() Fingerprint {
	fields := slices.Clone(b.fields)
	slices.SortStableFunc(fields, func(a, c field) int { return strings.Compare(a.key, c.key) })

	h := sha256.New()
	var buf []byte
	for _, f := range fields {
		buf = buf[:0]
		buf = binary.AppendUvarint(buf, uint64(len(f.key)))
		buf = append(buf, f.key...)
		buf = binary.AppendUvarint(buf, uint64(len(f.value)))
		buf = append(buf, f.value...)
		h.Write(buf)
	}
	return Fingerprint(hex.EncodeToString(h.Sum(nil))[:Length])
}
