// Package preflight provides readiness checks for the filesystem paths and
// backends doodlecast depends on.
//
// These checks run in two contexts:
//   - `doodlecast generate` runs them before the first scene and logs every
//     non-ok result as a warning; generation proceeds regardless.
//   - `doodlecast doctor` prints the full report and exits non-zero when a
//     check fails.
//
// Results are three-state: ok, warn (degraded but usable, e.g. no neural
// speech backend while Piper is available), and fail (a scene artifact is
// certain to fail, e.g. no image backend).
package preflight
