// Package wav reads and writes uncompressed PCM WAVE files.
//
// Narration artifacts are always mono 16-bit little-endian PCM. Decode
// accepts mono or stereo 16-bit input (stereo is averaged down to mono) so
// backend output can be normalized before caching.
//
// Key types:
//   - Clip: decoded mono samples plus their sample rate
//
// Primary entry points:
//   - Encode / Decode: convert between Clip and WAVE bytes
//   - Duration: playback length of encoded bytes
//   - Resample: linear sample-rate conversion
package wav
