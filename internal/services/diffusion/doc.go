// Package diffusion talks to the image synthesis backend: a Stable Diffusion
// pipeline with a scribble ControlNet exposed over HTTP.
//
// The client posts one JSON generation request per scene (prompt, negative
// prompt, base64 PNG control image, step count, guidance and conditioning
// scales, resolution, scheduler, optional seed) and accepts either a raw
// image/* body or a JSON envelope carrying a base64 image. Failures are
// wrapped with services.ErrExternalTool so callers can classify them.
package diffusion
