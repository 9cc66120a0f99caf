//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"

	"github.com/rs/zerolog"

	"github.com/hornetworks/aspcache/asp/config"
	"github.com/hornetworks/aspcache/asp/solve"
)

func must(err error, msg string) {
	if err != nil {
		log.Fatalf("%s: %v", msg, err)
	}
}

// RunSmokeSolve exercises the whole solve pipeline: fragment
// registration, reference resolution, engine evaluation, result caching,
// and the date-dependent expiry path.
func RunSmokeSolve() {
	fmt.Println("Smoke test: solve pipeline")

	cfg := &config.ASPConfig{
		CacheEnabled:       true,
		CacheCapacityBytes: 16 << 20,
		FactLimit:          500000,
		EnableMetrics:      true,
	}
	service, err := solve.NewFactory(cfg, nil, zerolog.Nop()).CreateService()
	must(err, "create service")

	store := service.Store()
	must(store.SetFragment("family/base", "parent(/alice, /bob).\nparent(/bob, /carol).", []string{"family"}), "register base facts")
	must(store.SetFragment("family/rules", "ancestor(X, Y) :- parent(X, Y).\nancestor(X, Z) :- parent(X, Y), ancestor(Y, Z).", []string{"family"}), "register rules")

	ctx := context.Background()
	queryText := "query(X) :- ancestor(/alice, X)."

	first, err := service.Solve(ctx, queryText, []string{"family"})
	must(err, "first solve")
	if first.Cached {
		log.Fatalf("first solve unexpectedly cached")
	}
	if len(first.Answers) != 1 {
		log.Fatalf("expected one answer set, got %d", len(first.Answers))
	}
	fmt.Printf("OK: first solve (ground=%v solve=%v)\n", first.Timing.Ground, first.Timing.Solve)

	second, err := service.Solve(ctx, queryText, []string{"family"})
	must(err, "second solve")
	if !second.Cached {
		log.Fatalf("second solve missed the cache")
	}
	if second.Answers[0] != first.Answers[0] {
		log.Fatalf("cached answers diverge from computed ones")
	}
	fmt.Println("OK: second solve served from cache")

	dated, err := service.Solve(ctx, "stamp(@today()).", nil)
	must(err, "date-dependent solve")
	if dated.ValidUntil.IsZero() {
		log.Fatalf("date-dependent result has no expiry")
	}
	fmt.Printf("OK: date-dependent result expires %v\n", dated.ValidUntil)

	summary := service.Metrics().GetSummary()
	if summary.Solves != 3 || summary.Hits != 1 {
		log.Fatalf("unexpected metrics: solves=%d hits=%d", summary.Solves, summary.Hits)
	}
	fmt.Printf("OK: metrics (solves=%d hits=%d misses=%d)\n", summary.Solves, summary.Hits, summary.Misses)

	fmt.Println("Smoke checks completed.")
}
