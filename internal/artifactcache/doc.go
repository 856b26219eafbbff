// Package artifactcache stores generated artifacts on disk keyed by
// fingerprint.
//
// Each Store owns one directory and one file extension (images/*.png,
// audio/*.wav). Writes land in a temporary file that is synced and renamed
// into place, so readers never observe a partial artifact. Cache faults are
// never fatal: Get treats unreadable or corrupt files as misses and Put
// reports a degraded PutResult instead of an error. Lock provides a
// cross-process per-fingerprint guard backed by lock files kept beside the
// cache directory so Clear never removes a held lock.
package artifactcache
