package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/brokersim/internal/model"
)

// marshalDetails encodes event details as canonical JSON.
// Empty details are stored as NULL.
func marshalDetails(d map[string]string) (sql.NullString, error) {
	if len(d) == 0 {
		return sql.NullString{}, nil
	}
	data, err := model.MarshalCanonical(d)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("marshal details: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func unmarshalDetails(s sql.NullString) (map[string]string, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var d map[string]string
	if err := json.Unmarshal([]byte(s.String), &d); err != nil {
		return nil, fmt.Errorf("unmarshal details: %w", err)
	}
	return d, nil
}

// marshalSnapshot encodes a snapshot in the export document format.
func marshalSnapshot(s model.Snapshot) (string, error) {
	data, err := json.Marshal(model.Document{FormatVersion: model.FormatVersion, State: s})
	if err != nil {
		return "", fmt.Errorf("marshal snapshot: %w", err)
	}
	return string(data), nil
}

func unmarshalSnapshot(doc string) (model.Snapshot, error) {
	var d model.Document
	if err := json.Unmarshal([]byte(doc), &d); err != nil {
		return model.Snapshot{}, fmt.Errorf("unmarshal snapshot: %w", err)
	}
	if d.FormatVersion != model.FormatVersion {
		return model.Snapshot{}, fmt.Errorf("unmarshal snapshot: unsupported format_version %q", d.FormatVersion)
	}
	d.State.Normalize()
	return d.State, nil
}

// Timestamps are stored as epoch milliseconds.
func toMillis(t time.Time) int64 { return t.UnixMilli() }

func fromMillis(ms int64) time.Time { return time.UnixMilli(ms).UTC() }

// latestSeq returns the seq of the newest retained event, or 0.
func latestSeq(s model.Snapshot) int64 {
	var seq int64
	for _, ev := range s.Events {
		seq = max(seq, ev.Seq)
	}
	return seq
}
