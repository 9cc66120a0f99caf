package solveports

import (
	"context"
	"time"
)

// JournalEntry is one recorded solve execution.
type JournalEntry struct {
	SolveID     string
	Fingerprint uint64
	Status      string // "ok" or "error"
	Cached      bool
	Timing      Timing
	AnswerCount int
	Diagnostics Diagnostics
	CreatedAt   time.Time
}

// SolveJournal records solve executions for observability. It is an
// append-only telemetry sink; cached results are never reconstructed
// from it.
type SolveJournal interface {
	Record(ctx context.Context, entry JournalEntry) error
	LoadRecent(ctx context.Context, limit int) ([]JournalEntry, error)
}
