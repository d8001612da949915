package engine

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/roach88/brokersim/internal/model"
)

// Export serializes the full state as a versioned JSON document.
func (e *Engine) Export() ([]byte, error) {
	doc := model.Document{
		FormatVersion: model.FormatVersion,
		State:         e.state.Clone(),
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	return data, nil
}

// Import replaces the state with a document produced by Export.
// On error the current state is left untouched.
func (e *Engine) Import(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	var doc model.Document
	if err := dec.Decode(&doc); err != nil {
		return NewInvalidArgumentError("import: decode document: %v", err)
	}
	if doc.FormatVersion != model.FormatVersion {
		return NewInvalidArgumentError("import: unsupported format_version %q (want %q)",
			doc.FormatVersion, model.FormatVersion)
	}

	if err := checkSnapshot(doc.State); err != nil {
		return err
	}

	e.Load(doc.State)
	return nil
}

// checkSnapshot enforces the invariants the create operations guarantee:
// unique ids and names within each kind and known exchange types. Dangling
// references are tolerated, as they are after deletes.
func checkSnapshot(s model.Snapshot) error {
	exIDs, exNames := map[string]bool{}, map[string]bool{}
	for _, ex := range s.Exchanges {
		if !ex.Type.Valid() {
			return NewInvalidArgumentError("import: exchange %q has unknown type %q", ex.Name, ex.Type)
		}
		if err := claim(exIDs, exNames, kindExchange, ex.ID, ex.Name); err != nil {
			return err
		}
	}
	qIDs, qNames := map[string]bool{}, map[string]bool{}
	for _, q := range s.Queues {
		if err := claim(qIDs, qNames, kindQueue, q.ID, q.Name); err != nil {
			return err
		}
	}
	cIDs, cNames := map[string]bool{}, map[string]bool{}
	for _, c := range s.Consumers {
		if err := claim(cIDs, cNames, kindConsumer, c.ID, c.Name); err != nil {
			return err
		}
	}
	return nil
}

func claim(ids, names map[string]bool, kind, id, name string) error {
	if ids[id] {
		return NewInvalidArgumentError("import: duplicate %s id %q", kind, id)
	}
	if names[name] {
		return NewInvalidArgumentError("import: duplicate %s name %q", kind, name)
	}
	ids[id], names[name] = true, true
	return nil
}

// Load replaces all collections at once. The logical clock is raised past
// every loaded event so new events keep strictly increasing seq numbers.
// No event is appended.
func (e *Engine) Load(s model.Snapshot) {
	next := s.Clone()
	normalizeSnapshotTimes(&next)
	if len(next.Events) > e.eventLogCap {
		next.Events = next.Events[:e.eventLogCap]
	}

	for _, ev := range next.Events {
		e.clock.AdvanceTo(ev.Seq)
	}
	e.state = next

	e.logger.Debug("state loaded",
		"exchanges", len(next.Exchanges),
		"queues", len(next.Queues),
		"events", len(next.Events),
	)
	e.notify()
}

func normalizeSnapshotTimes(s *model.Snapshot) {
	for i := range s.Messages {
		s.Messages[i].Timestamp = normalizeTime(s.Messages[i].Timestamp)
	}
	for qi := range s.Queues {
		for mi := range s.Queues[qi].Messages {
			m := &s.Queues[qi].Messages[mi]
			m.Timestamp = normalizeTime(m.Timestamp)
		}
	}
	for i := range s.Events {
		s.Events[i].Timestamp = normalizeTime(s.Events[i].Timestamp)
	}
}
