// Package solveports defines the boundary types and interfaces between
// the solve service and its collaborators (engine, journal, tracer).
package solveports

import (
	"context"
	"time"
)

// Part is one named block of program text handed to the solving engine.
// Parts are ordered: resolved fragments first, in content-hash order,
// with the synthetic main-query part last.
type Part struct {
	Name string
	Text string
}

// Diagnostics carries the engine's messages split by severity.
type Diagnostics struct {
	Errors   []string
	Warnings []string
}

// Timing is the per-phase elapsed time breakdown of one solve.
type Timing struct {
	Prepare time.Duration // fragment resolution + fingerprinting
	Submit  time.Duration // handing parts to the engine
	Ground  time.Duration // grounding, including external function calls
	Solve   time.Duration // model enumeration
}

// Total returns the sum of all phases.
func (t Timing) Total() time.Duration {
	return t.Prepare + t.Submit + t.Ground + t.Solve
}

// Result is the outcome of one query, either computed by the engine or
// served from the result cache.
type Result struct {
	SolveID       string   // correlation id for tracing and the journal
	Answers       []string // one entry per answer set, atoms newline-joined
	Diagnostics   Diagnostics
	Timing        Timing
	OffendingPart string    // part responsible for an engine failure, if known
	ValidUntil    time.Time // zero means the result never expires
	Cached        bool      // true when served from the result cache
}

// EngineResult is the raw engine outcome before service bookkeeping. On
// failure the diagnostics and offending part are still populated and
// accompany the returned error.
type EngineResult struct {
	Answers         []string
	Diagnostics     Diagnostics
	Submit          time.Duration
	Ground          time.Duration
	Solve           time.Duration
	UsedCurrentDate bool // a date-dependent grounding function was invoked
	OffendingPart   string
}

// Engine grounds and solves one assembled query per invocation.
type Engine interface {
	Solve(ctx context.Context, parts []Part) (EngineResult, error)
}
