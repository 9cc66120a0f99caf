//go:build integration
// +build integration

package scripts

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/hornetworks/aspcache/asp/db"
	"github.com/hornetworks/aspcache/asp/solve/adapters"
	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// RunSmokeJournal verifies the embedded libsql build end to end: connect,
// migrate, write journal rows, and read them back.
func RunSmokeJournal() {
	fmt.Println("Smoke test: solve journal on embedded libsql")

	tmpDir, err := os.MkdirTemp("", "aspcache-smoke-*")
	must(err, "create temp dir")
	defer os.RemoveAll(tmpDir)

	dbconn, err := db.Connect(filepath.Join(tmpDir, "journal.db"))
	must(err, "connect")
	defer dbconn.Close()

	// Basic
	var v int
	err = dbconn.QueryRow("SELECT 1").Scan(&v)
	must(err, "basic SELECT")
	if v != 1 {
		log.Fatalf("basic SELECT returned %v", v)
	}
	fmt.Println("OK: basic SQL")

	// Migrations created the journal table
	var name string
	err = dbconn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='solve_journal'").Scan(&name)
	must(err, "solve_journal table lookup")
	fmt.Println("OK: migrations applied")

	// JSON1 backs the diagnostics column
	var jsonRes string
	err = dbconn.QueryRow(`SELECT json_extract('{"test":"value"}', '$.test')`).Scan(&jsonRes)
	must(err, "JSON1 query")
	if jsonRes != "value" {
		log.Fatalf("JSON1 returned unexpected: %v", jsonRes)
	}
	fmt.Println("OK: JSON1")

	// Journal roundtrip
	ctx := context.Background()
	journal := adapters.NewLibSQLSolveJournal(dbconn)
	base := time.Now().Add(-time.Minute)
	for i := 0; i < 3; i++ {
		entry := ports.JournalEntry{
			SolveID:     fmt.Sprintf("smoke-%d", i),
			Fingerprint: uint64(i + 1),
			Status:      "ok",
			Cached:      i == 2,
			Timing: ports.Timing{
				Prepare: 10 * time.Microsecond,
				Ground:  250 * time.Microsecond,
				Solve:   1200 * time.Microsecond,
			},
			AnswerCount: 1,
			CreatedAt:   base.Add(time.Duration(i) * time.Second),
		}
		must(journal.Record(ctx, entry), "record journal entry")
	}

	entries, err := journal.LoadRecent(ctx, 2)
	must(err, "load recent entries")
	if len(entries) != 2 {
		log.Fatalf("expected 2 journal entries, got %d", len(entries))
	}
	if entries[0].SolveID != "smoke-1" || entries[1].SolveID != "smoke-2" {
		log.Fatalf("journal entries out of order: %s, %s", entries[0].SolveID, entries[1].SolveID)
	}
	if !entries[1].Cached {
		log.Fatalf("cached flag lost in roundtrip")
	}
	if entries[1].Timing.Solve != 1200*time.Microsecond {
		log.Fatalf("timing lost in roundtrip: %v", entries[1].Timing.Solve)
	}
	fmt.Println("OK: journal roundtrip")

	fmt.Println("Smoke checks completed.")
}
