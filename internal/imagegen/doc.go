// Package imagegen turns a scene's visual description into a cached doodle
// image.
//
// A Pipeline is a thin configuration of the fallback orchestrator for PNG
// artifacts. The quality preset is resolved once at construction from a fixed
// table (fast, balanced, high) into step count, guidance, resolution, and
// scheduler. Each scene is fingerprinted from its id, visual description,
// preset parameters, optional seed, and the reference image path plus
// modification time.
//
// The single producer calls the diffusion backend with the description plus a
// fixed doodle style suffix, a fixed negative prompt, and a control image.
// The control image is a Sobel edge map of the reference resized to the
// preset resolution, or a blank white canvas when there is no usable
// reference. There is no secondary producer: when the backend fails, the
// scene's image fails.
//
// The backend handle lives in an engine.Slot so it is loaded on first use and
// can be released explicitly.
package imagegen
