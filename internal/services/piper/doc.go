// Package piper wraps the Piper command-line speech synthesizer, the
// lightweight narration fallback.
//
// Piper reads text on stdin and, with --output-raw, writes signed 16-bit mono
// PCM to stdout at the voice model's native rate. The rate is read from the
// model's sidecar <model>.onnx.json (audio.sample_rate), defaulting to
// 22050 Hz. The service wraps the raw stream into a WAVE container.
//
// A custom command runner can be injected for tests.
package piper
