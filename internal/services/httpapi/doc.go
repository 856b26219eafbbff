// Package httpapi is the JSON-over-HTTP transport shared by the image and
// speech backend clients.
//
// It owns request construction, bearer authentication, and the retry policy:
// HTTP 408/429/5xx responses and network timeouts are retried with
// exponential backoff (base 1s, max 10s, 3 attempts by default), honouring
// Retry-After. Context cancellation aborts retries immediately.
//
// Entry points:
//   - New: construct a client for one backend base URL.
//   - Client.PostJSON: send a JSON body and return the raw response.
//   - Client.Get: simple GET used for health probes.
package httpapi
