package solve

import (
	"context"

	"github.com/sourcegraph/conc/pool"

	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// DefaultBatchConcurrency bounds batch fan-out when the configured
// limit is unset or non-positive.
const DefaultBatchConcurrency = 4

// BatchRequest pairs a query text with its fragment references.
type BatchRequest struct {
	QueryText string
	Refs      []string
}

// BatchResult carries one query's outcome within a batch.
type BatchResult struct {
	Result ports.Result
	Err    error
}

// SolveBatch solves independent queries concurrently, bounded by the
// service's configured batch concurrency. Each query goes through the
// same prepare, cache and engine path as a single Solve call; the
// engine is never handed more than one query per invocation. Results
// are positionally aligned with requests.
func (s *Service) SolveBatch(ctx context.Context, requests []BatchRequest) []BatchResult {
	results := make([]BatchResult, len(requests))
	p := pool.New().WithMaxGoroutines(s.batchLimit)
	for i, req := range requests {
		p.Go(func() {
			res, err := s.Solve(ctx, req.QueryText, req.Refs)
			results[i] = BatchResult{Result: res, Err: err}
		})
	}
	p.Wait()

	return results
}
