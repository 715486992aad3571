package core

import (
	"context"
)

// StagingStats counts how a batch was reduced before the upsert.
type StagingStats struct {
	Input      int `json:"input"`
	MissingKey int `json:"missingKey"` // Missing id, owner, timestamp or amount
	Negative   int `json:"negative"`
	Duplicate  int `json:"duplicate"` // Repeated id within the batch
	Staged     int `json:"staged"`    // Survivors sent to the upsert
	Changed    int `json:"changed"`   // Rows inserted or updated
}

// PrepareOrders applies the staging preconditions in order: drop records
// missing any key field, drop negative amounts, then keep the first record
// per id. Input order is preserved.
func PrepareOrders(norm []NormalizedRecord) ([]Order, StagingStats) {
	stats := StagingStats{Input: len(norm)}
	seen := make(map[string]struct{}, len(norm))
	orders := make([]Order, 0, len(norm))

	for _, r := range norm {
		if r.ID == nil || r.Owner == nil || r.Timestamp == nil || r.Amount == nil {
			stats.MissingKey++
			continue
		}
		if *r.Amount < 0 {
			stats.Negative++
			continue
		}
		if _, dup := seen[*r.ID]; dup {
			stats.Duplicate++
			continue
		}
		seen[*r.ID] = struct{}{}

		o := Order{
			ID:         *r.ID,
			CustomerID: *r.Owner,
			OrderTS:    *r.Timestamp,
			Amount:     *r.Amount,
		}
		if r.Status != nil {
			o.Status = *r.Status
		}
		orders = append(orders, o)
	}

	stats.Staged = len(orders)
	return orders, stats
}

// Merger is the only writer of staged orders.
type Merger struct {
	store  Store
	fields FieldMap
}

// NewMerger creates a staging merger.
func NewMerger(store Store, fields FieldMap) *Merger {
	return &Merger{store: store, fields: fields}
}

// Stage normalizes batch, applies the preconditions and upserts every
// survivor by id in one transaction. An existing order is overwritten in
// full by the incoming record.
func (m *Merger) Stage(ctx context.Context, batch Batch) (StagingStats, error) {
	orders, stats := PrepareOrders(NormalizeBatch(batch, m.fields))
	if len(orders) == 0 {
		return stats, nil
	}

	changed, err := m.store.UpsertOrders(ctx, orders)
	if err != nil {
		return stats, storageErr("upsert orders", err)
	}
	stats.Changed = changed
	return stats, nil
}
