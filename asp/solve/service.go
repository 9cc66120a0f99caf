// Package solve coordinates query preparation, result caching and
// engine execution behind a single service surface.
package solve

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hornetworks/aspcache/asp/fragment"
	"github.com/hornetworks/aspcache/asp/query"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// ResultCache is what the service needs from a result cache.
type ResultCache interface {
	Lookup(fingerprint uint64) (ports.Result, bool)
	Insert(fingerprint uint64, res ports.Result)
}

// Service executes queries against a fragment store, consulting the
// result cache before the engine and journaling every execution.
type Service struct {
	store      *fragment.Store
	cache      ResultCache
	engine     ports.Engine
	journal    ports.SolveJournal
	tracer     ports.Tracer
	metrics    *Metrics
	batchLimit int
	logger     zerolog.Logger
}

// NewService wires a service from its collaborators. Use the factory
// for no-op fallbacks when a collaborator is not configured. A
// non-positive batchConcurrency falls back to DefaultBatchConcurrency.
func NewService(
	store *fragment.Store,
	cache ResultCache,
	engine ports.Engine,
	journal ports.SolveJournal,
	tracer ports.Tracer,
	metrics *Metrics,
	batchConcurrency int,
	logger zerolog.Logger,
) *Service {
	if batchConcurrency <= 0 {
		batchConcurrency = DefaultBatchConcurrency
	}
	return &Service{
		store:      store,
		cache:      cache,
		engine:     engine,
		journal:    journal,
		tracer:     tracer,
		metrics:    metrics,
		batchLimit: batchConcurrency,
		logger:     logger.With().Str("component", "solve_service").Logger(),
	}
}

// Store exposes the fragment store backing this service.
func (s *Service) Store() *fragment.Store { return s.store }

// Metrics exposes the collector recording this service's executions.
func (s *Service) Metrics() *Metrics { return s.metrics }

// Solve resolves refs, consults the cache and, on a miss, runs the
// engine. Successful results enter the cache; failures never do.
func (s *Service) Solve(ctx context.Context, queryText string, refs []string) (ports.Result, error) {
	solveID := uuid.NewString()

	ctx, finish := s.tracer.StartSpan(ctx, "solve", map[string]any{
		"solve_id": solveID,
		"refs":     len(refs),
	})

	res, err := s.solve(ctx, solveID, queryText, refs)
	finish(err)
	return res, err
}

func (s *Service) solve(ctx context.Context, solveID, queryText string, refs []string) (ports.Result, error) {
	prepareStart := time.Now()
	q, err := query.Prepare(queryText, refs, s.store)
	if err != nil {
		s.metrics.RecordError()
		return ports.Result{}, fmt.Errorf("failed to prepare query: %w", err)
	}
	prepare := time.Since(prepareStart)

	if cached, ok := s.cache.Lookup(q.Fingerprint()); ok {
		s.tracer.Event(ctx, "cache_hit", map[string]any{
			"fingerprint": fmt.Sprintf("%016x", q.Fingerprint()),
		})

		// The stored timings describe the solve that produced the
		// entry; only preparation happened on this call.
		cached.SolveID = solveID
		cached.Cached = true
		cached.Timing.Prepare = prepare
		s.metrics.RecordHit(cached.Timing)
		s.recordJournal(ctx, solveID, q.Fingerprint(), "ok", true, cached.Timing, len(cached.Answers), cached.Diagnostics)
		return cached, nil
	}

	engineRes, err := s.engine.Solve(ctx, q.Parts())
	timing := ports.Timing{
		Prepare: prepare,
		Submit:  engineRes.Submit,
		Ground:  engineRes.Ground,
		Solve:   engineRes.Solve,
	}

	if err != nil {
		res := ports.Result{
			SolveID:       solveID,
			Diagnostics:   engineRes.Diagnostics,
			Timing:        timing,
			OffendingPart: engineRes.OffendingPart,
		}
		s.metrics.RecordError()
		s.recordJournal(ctx, solveID, q.Fingerprint(), "error", false, timing, 0, engineRes.Diagnostics)
		return res, fmt.Errorf("failed to solve query: %w", err)
	}

	res := ports.Result{
		SolveID:     solveID,
		Answers:     engineRes.Answers,
		Diagnostics: engineRes.Diagnostics,
		Timing:      timing,
	}
	if engineRes.UsedCurrentDate {
		res.ValidUntil = nextLocalMidnight(time.Now())
	}

	s.cache.Insert(q.Fingerprint(), res)
	s.metrics.RecordMiss(timing)
	s.recordJournal(ctx, solveID, q.Fingerprint(), "ok", false, timing, len(res.Answers), res.Diagnostics)
	return res, nil
}

// Assemble returns the complete program text a query would submit,
// without executing it.
func (s *Service) Assemble(queryText string, refs []string) (string, error) {
	q, err := query.Prepare(queryText, refs, s.store)
	if err != nil {
		return "", fmt.Errorf("failed to prepare query: %w", err)
	}
	return q.Assembled(), nil
}

// recordJournal appends a journal entry. Journal failures are traced
// but never fail the solve.
func (s *Service) recordJournal(
	ctx context.Context,
	solveID string,
	fingerprint uint64,
	status string,
	cached bool,
	timing ports.Timing,
	answerCount int,
	diags ports.Diagnostics,
) {
	entry := ports.JournalEntry{
		SolveID:     solveID,
		Fingerprint: fingerprint,
		Status:      status,
		Cached:      cached,
		Timing:      timing,
		AnswerCount: answerCount,
		Diagnostics: diags,
		CreatedAt:   time.Now(),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		s.tracer.Event(ctx, "journal_error", map[string]any{"error": err.Error()})
	}
}

// nextLocalMidnight returns the first instant of the next calendar day
// in now's location.
func nextLocalMidnight(now time.Time) time.Time {
	year, month, day := now.Date()
	return time.Date(year, month, day+1, 0, 0, 0, 0, now.Location())
}
