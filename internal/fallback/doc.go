// Package fallback resolves an artifact by fingerprint: it returns the cached
// copy when present and otherwise walks an ordered producer chain until one
// succeeds, caching the winner.
//
// Producers are tried once each in the order given. Every attempt is recorded
// with its outcome, and when the whole chain fails Resolve returns a
// *GenerationError carrying those attempts. Cache writes are best effort and
// surface only as the PutResult on the returned Result.
package fallback
