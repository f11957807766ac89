// Package core is the orchestration layer.  It composes the resolver,
// the deadline connector, statistics and reporting into a complete
// probe run, and provides a builder that assembles that run from a
// Config.
//
// Architecture layers (bottom → top):
//
//	resolve, transport  →  stats, metrics, report  →  core  →  cmd (CLI)
package core

import "context"

// Mode is a complete, runnable zing operation.  It owns its full
// lifecycle from the first resolution to the final summary.
type Mode interface {
	Run(ctx context.Context) error
}
