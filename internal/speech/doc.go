// Package speech turns scene narration into cached mono 16-bit WAVE audio.
//
// A Pipeline configures the fallback orchestrator with up to three producers
// tried in order:
//
//  1. melotts: the neural speech backend over HTTP.
//  2. piper: the local Piper binary.
//  3. placeholder: a quiet tone whose length follows the narration's word
//     count, so scene timing stays plausible when no engine is available.
//
// Voices resolve once through a fixed table into a MeloTTS speaker and a
// Piper model; an unknown voice falls back to female_us with a warning. Audio
// from any producer is decoded, downmixed, and resampled to the configured
// rate before it is cached, so every cached clip shares one format.
//
// Fingerprints cover the scene id, narration, language, resolved voice, and
// speed.
package speech
