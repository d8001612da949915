package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/brokersim/internal/model"
)

const selectRunSQL = `
	SELECT r.id, r.name, r.source, r.started_at, r.finished_at, r.final_digest,
		(SELECT COUNT(*) FROM events e WHERE e.run_id = r.id)
	FROM runs r
`

// ListRuns returns every journaled run, oldest first.
// Returns an empty slice (not nil) if the journal is empty.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRunSQL+` ORDER BY r.id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id int64) (Run, error) {
	row := s.db.QueryRowContext(ctx, selectRunSQL+` WHERE r.id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %d: %w", id, ErrRunNotFound)
	}
	return r, err
}

// LatestRun returns the most recently started run, optionally restricted
// to runs with the given name.
func (s *Store) LatestRun(ctx context.Context, name string) (Run, error) {
	query := selectRunSQL
	var args []any
	if name != "" {
		query += ` WHERE r.name = ?`
		args = append(args, name)
	}
	query += ` ORDER BY r.id DESC LIMIT 1`

	r, err := scanRun(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		if name != "" {
			return Run{}, fmt.Errorf("run %q: %w", name, ErrRunNotFound)
		}
		return Run{}, ErrRunNotFound
	}
	return r, err
}

// ReadEvents returns a run's journaled events in seq order, oldest first.
// Returns an empty slice (not nil) if nothing matches.
func (s *Store) ReadEvents(ctx context.Context, runID int64, f EventFilter) ([]model.Event, error) {
	var (
		where = []string{"run_id = ?"}
		args  = []any{runID}
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := `
		SELECT seq, event_id, type, timestamp, description, details
		FROM events
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY seq ASC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// LatestSnapshot returns the newest stored snapshot of a run and its digest.
func (s *Store) LatestSnapshot(ctx context.Context, runID int64) (model.Snapshot, string, error) {
	var digest, doc string
	err := s.db.QueryRowContext(ctx, `
		SELECT digest, document
		FROM snapshots
		WHERE run_id = ?
		ORDER BY seq DESC
		LIMIT 1
	`, runID).Scan(&digest, &doc)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Snapshot{}, "", fmt.Errorf("run %d has no snapshot: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return model.Snapshot{}, "", fmt.Errorf("query snapshot: %w", err)
	}

	snap, err := unmarshalSnapshot(doc)
	if err != nil {
		return model.Snapshot{}, "", err
	}
	return snap, digest, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
		digest     sql.NullString
	)
	if err := row.Scan(&r.ID, &r.Name, &r.Source, &startedAt, &finishedAt, &digest, &r.EventCount); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = fromMillis(startedAt)
	if finishedAt.Valid {
		r.FinishedAt = fromMillis(finishedAt.Int64)
	}
	r.FinalDigest = digest.String
	return r, nil
}

func scanEvent(row rowScanner) (model.Event, error) {
	var (
		ev      model.Event
		typ     string
		ts      int64
		details sql.NullString
	)
	if err := row.Scan(&ev.Seq, &ev.ID, &typ, &ts, &ev.Description, &details); err != nil {
		return model.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Type = model.EventType(typ)
	ev.Timestamp = fromMillis(ts)

	d, err := unmarshalDetails(details)
	if err != nil {
		return model.Event{}, fmt.Errorf("event %d: %w", ev.Seq, err)
	}
	ev.Details = d
	return ev, nil
}
