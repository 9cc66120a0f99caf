package solve

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"github.com/hornetworks/aspcache/asp/cache"
	"github.com/hornetworks/aspcache/asp/config"
	"github.com/hornetworks/aspcache/asp/fragment"
	"github.com/hornetworks/aspcache/asp/solve/adapters"
	"github.com/hornetworks/aspcache/asp/solve/funcs"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// Factory creates and wires solve components from configuration.
type Factory struct {
	cfg    *config.ASPConfig
	db     *sql.DB // optional, enables the solve journal
	logger zerolog.Logger
}

// NewFactory creates a factory. Pass a nil db to disable journaling.
func NewFactory(cfg *config.ASPConfig, db *sql.DB, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		db:     db,
		logger: logger,
	}
}

// CreateService builds a fully wired Service: fragment store with the
// configured resolution policy, result cache, mangle engine with the
// built-in function registry, and tracer/journal/metrics per config.
func (f *Factory) CreateService() (*Service, error) {
	policy := fragment.ResolvePermissive
	if f.cfg.StrictReferences {
		policy = fragment.ResolveStrict
	}
	store := fragment.NewStore(policy)

	engine := adapters.NewMangleEngine(funcs.Builtins(), f.cfg.FactLimit, f.logger)
	metrics := NewMetrics(f.cfg.EnableMetrics)

	service := NewService(
		store,
		f.createCache(),
		engine,
		f.createJournal(),
		f.createTracer(),
		metrics,
		f.cfg.BatchConcurrency,
		f.logger,
	)

	return service, nil
}

func (f *Factory) createCache() ResultCache {
	if !f.cfg.CacheEnabled {
		return &noOpCache{}
	}
	return cache.New(f.cfg.CacheCapacityBytes, f.logger)
}

func (f *Factory) createTracer() ports.Tracer {
	if !f.cfg.EnableTracing {
		return &noOpTracer{}
	}
	return adapters.NewZerologTracer(f.logger)
}

func (f *Factory) createJournal() ports.SolveJournal {
	if f.db == nil || !f.cfg.Journal.Enabled {
		return &noOpJournal{}
	}
	return adapters.NewLibSQLSolveJournal(f.db)
}

// noOpCache never holds anything; every lookup misses.
type noOpCache struct{}

func (c *noOpCache) Lookup(fingerprint uint64) (ports.Result, bool) { return ports.Result{}, false }
func (c *noOpCache) Insert(fingerprint uint64, res ports.Result)    {}

// noOpTracer discards spans and events.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// noOpJournal drops every entry.
type noOpJournal struct{}

func (j *noOpJournal) Record(ctx context.Context, entry ports.JournalEntry) error { return nil }

func (j *noOpJournal) LoadRecent(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	return nil, nil
}

// Ensure all no-op types implement their interfaces.
var (
	_ ResultCache        = (*noOpCache)(nil)
	_ ports.Tracer       = (*noOpTracer)(nil)
	_ ports.SolveJournal = (*noOpJournal)(nil)
)
