package adapters

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	ports "github.com/hornetworks/aspcache/asp/solve/ports"
)

// LibSQLSolveJournal implements the SolveJournal port on an embedded
// libsql database. One row per solve execution; fingerprints are stored
// as 16-digit hex so the full uint64 range survives the trip through
// SQLite's signed integers, and timestamps as Unix microseconds.
type LibSQLSolveJournal struct {
	db *sql.DB
}

// NewLibSQLSolveJournal creates a journal writing to db. The schema is
// managed by the db package's migrations.
func NewLibSQLSolveJournal(db *sql.DB) *LibSQLSolveJournal {
	return &LibSQLSolveJournal{db: db}
}

// Record appends one journal row.
func (s *LibSQLSolveJournal) Record(ctx context.Context, entry ports.JournalEntry) error {
	diagJSON, err := json.Marshal(entry.Diagnostics)
	if err != nil {
		return fmt.Errorf("failed to marshal diagnostics: %w", err)
	}

	query := `
		INSERT INTO solve_journal
			(id, fingerprint, status, cached, prepare_us, submit_us, ground_us, solve_us, answer_count, diagnostics, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx, query,
		entry.SolveID,
		fmt.Sprintf("%016x", entry.Fingerprint),
		entry.Status,
		entry.Cached,
		entry.Timing.Prepare.Microseconds(),
		entry.Timing.Submit.Microseconds(),
		entry.Timing.Ground.Microseconds(),
		entry.Timing.Solve.Microseconds(),
		entry.AnswerCount,
		string(diagJSON),
		createdAt.UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to record solve: %w", err)
	}

	return nil
}

// LoadRecent returns the latest limit entries in chronological order,
// oldest first.
func (s *LibSQLSolveJournal) LoadRecent(ctx context.Context, limit int) ([]ports.JournalEntry, error) {
	query := `
		SELECT id, fingerprint, status, cached, prepare_us, submit_us, ground_us, solve_us, answer_count, diagnostics, created_at
		FROM solve_journal
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query journal: %w", err)
	}
	defer rows.Close()

	var entries []ports.JournalEntry
	for rows.Next() {
		var (
			entry       ports.JournalEntry
			fingerprint string
			prepareUS   int64
			submitUS    int64
			groundUS    int64
			solveUS     int64
			diagJSON    string
			createdUS   int64
		)
		if err := rows.Scan(
			&entry.SolveID, &fingerprint, &entry.Status, &entry.Cached,
			&prepareUS, &submitUS, &groundUS, &solveUS,
			&entry.AnswerCount, &diagJSON, &createdUS,
		); err != nil {
			return nil, fmt.Errorf("failed to scan journal row: %w", err)
		}
		entry.CreatedAt = time.UnixMicro(createdUS)

		entry.Fingerprint, err = strconv.ParseUint(fingerprint, 16, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse fingerprint %q: %w", fingerprint, err)
		}
		if err := json.Unmarshal([]byte(diagJSON), &entry.Diagnostics); err != nil {
			return nil, fmt.Errorf("failed to unmarshal diagnostics: %w", err)
		}
		entry.Timing = ports.Timing{
			Prepare: time.Duration(prepareUS) * time.Microsecond,
			Submit:  time.Duration(submitUS) * time.Microsecond,
			Ground:  time.Duration(groundUS) * time.Microsecond,
			Solve:   time.Duration(solveUS) * time.Microsecond,
		}

		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating journal rows: %w", err)
	}

	// Reverse to chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

var _ ports.SolveJournal = (*LibSQLSolveJournal)(nil)
