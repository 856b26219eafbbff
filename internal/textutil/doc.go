// Package textutil provides filename helpers shared by the CLI and the
// workflow runner.
package textutil
