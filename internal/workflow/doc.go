// Package workflow drives a validated script through the image and speech
// pipelines and publishes the results.
//
// Runner.Run visits scenes in ascending id order. For each scene it resolves
// the image, then (unless previewing) the narration, and copies each artifact
// atomically into the output directory as scene_NNN.png and scene_NNN.wav. A
// generation failure aborts only that artifact: it is recorded in the Report
// and the run moves on to the next scene. Cancellation is checked between
// scenes.
//
// The finished Report is written to <output>/storyboard.json and, when a
// ledger is attached, every artifact outcome is appended to the run ledger.
// Ledger and storyboard problems are logged; only output directory failures
// and cancellation end a run early.
package workflow
