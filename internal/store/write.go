package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/brokersim/internal/model"
)

const upsertSnapshotSQL = `
	INSERT INTO snapshots (run_id, seq, digest, document)
	VALUES (?, ?, ?, ?)
	ON CONFLICT(run_id, seq) DO UPDATE SET
		digest = excluded.digest,
		document = excluded.document
`

// BeginRun records the start of a run and returns its id.
// source names where the topology came from (a demo, a scenario file).
func (s *Store) BeginRun(ctx context.Context, name, source string, startedAt time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (name, source, started_at)
		VALUES (?, ?, ?)
	`, name, source, toMillis(startedAt))
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("begin run: %w", err)
	}
	return id, nil
}

// WriteEvent appends an event to a run's journal.
// Uses ON CONFLICT DO NOTHING: an event is identified by (run, seq), so
// writing the same event twice is a no-op.
func (s *Store) WriteEvent(ctx context.Context, runID int64, ev model.Event) error {
	details, err := marshalDetails(ev.Details)
	if err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(run_id, seq, event_id, type, timestamp, description, details)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, seq) DO NOTHING
	`,
		runID,
		ev.Seq,
		ev.ID,
		string(ev.Type),
		toMillis(ev.Timestamp),
		ev.Description,
		details,
	)
	if err != nil {
		return fmt.Errorf("write event %d: %w", ev.Seq, err)
	}
	return nil
}

// WriteSnapshot stores the full state at its newest event seq and returns
// the snapshot digest. A later snapshot at the same seq replaces the
// earlier one, since flows and queues change without emitting events.
func (s *Store) WriteSnapshot(ctx context.Context, runID int64, snap model.Snapshot) (string, error) {
	digest, err := model.Digest(snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	doc, err := marshalSnapshot(snap)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}

	_, err = s.db.ExecContext(ctx, upsertSnapshotSQL, runID, latestSeq(snap), digest, doc)
	if err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return digest, nil
}

// FinishRun writes the final snapshot and marks the run finished.
func (s *Store) FinishRun(ctx context.Context, runID int64, finishedAt time.Time, final model.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("finish run: begin tx: %w", err)
	}
	defer tx.Rollback()

	digest, err := model.Digest(final)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	doc, err := marshalSnapshot(final)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, final_digest = ?
		WHERE id = ?
	`, toMillis(finishedAt), digest, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %d: %w", runID, ErrRunNotFound)
	}

	if _, err := tx.ExecContext(ctx, upsertSnapshotSQL, runID, latestSeq(final), digest, doc); err != nil {
		return fmt.Errorf("finish run: write snapshot: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("finish run: commit: %w", err)
	}
	return nil
}
