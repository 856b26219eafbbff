// Package scriptload reads script documents from disk and turns them into
// validated script.Script values.
//
// Two forms are understood. Structured documents (.json) are checked against
// a JSON Schema before any field is interpreted, so violations report the
// JSON pointer of the offending value. Markup documents (.md, .markdown) carry
// a YAML front matter header followed by "## Scene" sections with
// "**Field:** value" lines; blocks missing narration or a visual description
// are dropped and counted in the returned Report.
//
// Relative reference image paths are resolved against the document's
// directory in both forms.
package scriptload
