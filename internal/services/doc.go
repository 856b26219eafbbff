// Package services defines shared utilities consumed by the generation
// pipelines and their external backend integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, scene IDs, and asset kinds for
//     logging and tracing.
//   - Structured error markers plus the Wrap helper so backend failures,
//     validation problems, and missing files classify consistently in the CLI
//     and the run ledger.
//
// Backend clients live in subpackages and should wrap their failures with
// these markers. httpapi is the shared JSON client with retry; diffusion and
// melotts speak to the image and speech backends through it; piper shells out
// to the local Piper binary.
package services
