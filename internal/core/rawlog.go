package core

import (
	"context"
	"time"
)

// RawLog is the unconditional audit trail of every ingested record.
type RawLog struct {
	store Store
	now   func() time.Time
}

// NewRawLog creates a raw capture log backed by store.
func NewRawLog(store Store) *RawLog {
	return &RawLog{store: store, now: time.Now}
}

// Append canonicalizes every record of batch and writes one entry per record
// in a single transaction. Nothing is deduplicated or validated. Returns the
// number of entries written.
func (l *RawLog) Append(ctx context.Context, runID, source string, batch Batch) (int, error) {
	if batch.Len() == 0 {
		return 0, nil
	}

	capturedAt := l.now().UTC()
	events := make([]RawEvent, 0, batch.Len())
	for _, rec := range batch.Records {
		c, err := Canonicalize(rec, batch.Columns)
		if err != nil {
			return 0, err
		}
		events = append(events, RawEvent{
			RunID:      runID,
			Source:     source,
			Payload:    c.Payload,
			Hash:       c.Hash,
			CapturedAt: capturedAt,
		})
	}

	if err := l.store.AppendRawEvents(ctx, events); err != nil {
		return 0, storageErr("append raw events", err)
	}
	return len(events), nil
}
