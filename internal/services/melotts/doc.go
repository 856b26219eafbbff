// Package melotts is the HTTP client for the neural speech backend (a
// MeloTTS server). It is the primary narration producer.
//
// Synthesize posts {text, speaker, language, speed} to /v1/tts and returns
// the WAVE bytes from either an audio/* body or a JSON envelope with a base64
// "audio" field. Failures wrap services.ErrExternalTool.
package melotts
