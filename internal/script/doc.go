// Package script defines the in-memory script model: a titled, ordered list of
// scenes, each pairing narration text with a visual description.
//
// Scenes and scripts are built through NewScene and NewScript, which validate
// every field and return a ValidationError naming the scene and field at
// fault. Values are treated as read-only once constructed; accessors return
// copies of mutable metadata.
package script
