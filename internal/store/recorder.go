package store

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/brokersim/internal/model"
)

// Recorder journals engine events as they happen. Its Record method has
// the shape of an engine event listener:
//
//	rec := store.NewRecorder(ctx, st, runID, logger)
//	eng.OnEvent(rec.Record)
//
// The listener sees every event, including those that never reach a
// snapshot because the capped log overflowed within one operation. Events
// at or below the last written seq are skipped, so replaying a listener is
// harmless. The first write failure is kept and later events are ignored.
type Recorder struct {
	ctx    context.Context
	store  *Store
	runID  int64
	logger *slog.Logger

	mu      sync.Mutex
	lastSeq int64
	written int
	err     error
}

// NewRecorder creates a recorder for an existing run.
func NewRecorder(ctx context.Context, s *Store, runID int64, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{ctx: ctx, store: s, runID: runID, logger: logger}
}

// Record writes ev unless it is not newer than the last recorded seq.
func (r *Recorder) Record(ev model.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil || ev.Seq <= r.lastSeq {
		return
	}
	if err := r.store.WriteEvent(r.ctx, r.runID, ev); err != nil {
		r.err = err
		r.logger.Warn("journal write failed", "run", r.runID, "seq", ev.Seq, "error", err)
		return
	}
	r.lastSeq = ev.Seq
	r.written++
}

// Written returns how many events have been journaled.
func (r *Recorder) Written() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.written
}

// LastSeq returns the seq of the newest journaled event.
func (r *Recorder) LastSeq() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastSeq
}

// Err returns the first write failure, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
