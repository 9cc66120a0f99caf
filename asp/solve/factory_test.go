package solve

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hornetworks/aspcache/asp/config"
	"github.com/hornetworks/aspcache/asp/fragment"
)

func defaultTestConfig() *config.ASPConfig {
	return &config.ASPConfig{
		CacheEnabled:       true,
		CacheCapacityBytes: 1 << 20,
		FactLimit:          10000,
		BatchConcurrency:   2,
		EnableTracing:      true,
		EnableMetrics:      true,
	}
}

func TestFactory_CreateServiceSolvesEndToEnd(t *testing.T) {
	service, err := NewFactory(defaultTestConfig(), nil, zerolog.Nop()).CreateService()
	require.NoError(t, err)

	require.NoError(t, service.Store().SetFragment("facts", "p(1).\np(2).", []string{"base"}))

	res, err := service.Solve(context.Background(), "q(X) :- p(X).", []string{"base"})
	require.NoError(t, err)
	require.Len(t, res.Answers, 1)
	assert.Contains(t, res.Answers[0], "q(1)")
	assert.Contains(t, res.Answers[0], "q(2)")
	assert.False(t, res.Cached)

	again, err := service.Solve(context.Background(), "q(X) :- p(X).", []string{"base"})
	require.NoError(t, err)
	assert.True(t, again.Cached)

	summary := service.Metrics().GetSummary()
	assert.Equal(t, int64(2), summary.Solves)
	assert.Equal(t, int64(1), summary.Hits)
	assert.Equal(t, int64(1), summary.Misses)
}

func TestFactory_DisabledCollaboratorsUseNoOps(t *testing.T) {
	cfg := &config.ASPConfig{
		CacheEnabled:  false,
		EnableTracing: false,
		EnableMetrics: false,
		FactLimit:     10000,
	}
	service, err := NewFactory(cfg, nil, zerolog.Nop()).CreateService()
	require.NoError(t, err)

	require.NoError(t, service.Store().SetFragment("facts", "p(1).", nil))

	_, err = service.Solve(context.Background(), "q(X) :- p(X).", []string{"facts"})
	require.NoError(t, err)

	res, err := service.Solve(context.Background(), "q(X) :- p(X).", []string{"facts"})
	require.NoError(t, err)
	assert.False(t, res.Cached, "disabled cache must never serve hits")

	assert.Equal(t, Summary{}, service.Metrics().GetSummary())
}

func TestFactory_StrictReferencePolicy(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.StrictReferences = true
	service, err := NewFactory(cfg, nil, zerolog.Nop()).CreateService()
	require.NoError(t, err)

	_, err = service.Solve(context.Background(), "q(1).", []string{"missing"})
	require.Error(t, err)
	assert.ErrorIs(t, err, fragment.ErrUnknownReference)
}
