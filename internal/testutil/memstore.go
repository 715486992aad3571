// Package testutil holds in-memory doubles shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JonMunkholm/featureprep/internal/core"
)

type featureKey struct {
	version  string
	entity   string
	snapshot time.Time
}

// MemStore is an in-memory core.Store. Methods named in Fail return the
// injected error instead of touching state.
type MemStore struct {
	mu sync.Mutex

	RawEvents []core.RawEvent
	Orders    map[string]core.Order

	features []core.FeatureRow
	featKeys map[featureKey]struct{}
	lineage  map[string]core.LineageEntry
	splits   map[featureKey]core.SplitLabel
	runs     map[string]core.RunRecord
	runOrder []string

	failures map[string]error
}

var _ core.Store = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore {
	return &MemStore{
		Orders:   make(map[string]core.Order),
		featKeys: make(map[featureKey]struct{}),
		lineage:  make(map[string]core.LineageEntry),
		splits:   make(map[featureKey]core.SplitLabel),
		runs:     make(map[string]core.RunRecord),
		failures: make(map[string]error),
	}
}

// Fail makes the named method return err until cleared with a nil err.
func (m *MemStore) Fail(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

func (m *MemStore) failure(method string) error {
	return m.failures[method]
}

func (m *MemStore) AppendRawEvents(_ context.Context, events []core.RawEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("AppendRawEvents"); err != nil {
		return err
	}
	m.RawEvents = append(m.RawEvents, events...)
	return nil
}

func (m *MemStore) UpsertOrders(_ context.Context, orders []core.Order) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("UpsertOrders"); err != nil {
		return 0, err
	}
	changed := 0
	for _, o := range orders {
		if prev, ok := m.Orders[o.ID]; ok && sameOrder(prev, o) {
			continue
		}
		m.Orders[o.ID] = o
		changed++
	}
	return changed, nil
}

func sameOrder(a, b core.Order) bool {
	return a.CustomerID == b.CustomerID && a.OrderTS.Equal(b.OrderTS) &&
		a.Amount == b.Amount && a.Status == b.Status
}

func (m *MemStore) InsertFeatureRows(_ context.Context, rows []core.FeatureRow) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertFeatureRows"); err != nil {
		return 0, err
	}
	inserted := 0
	for _, r := range rows {
		k := featureKey{r.Version, r.EntityID, r.SnapshotTime.UTC()}
		if _, ok := m.featKeys[k]; ok {
			continue
		}
		m.featKeys[k] = struct{}{}
		m.features = append(m.features, r)
		inserted++
	}
	return inserted, nil
}

func (m *MemStore) ListFeatureRows(_ context.Context, version string) ([]core.FeatureRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListFeatureRows"); err != nil {
		return nil, err
	}
	var out []core.FeatureRow
	for _, r := range m.features {
		if r.Version == version {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SnapshotTime.Equal(out[j].SnapshotTime) {
			return out[i].SnapshotTime.Before(out[j].SnapshotTime)
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

func (m *MemStore) InsertLineage(_ context.Context, entry core.LineageEntry) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertLineage"); err != nil {
		return false, err
	}
	if _, ok := m.lineage[entry.FeatureVersion]; ok {
		return false, nil
	}
	m.lineage[entry.FeatureVersion] = entry
	return true, nil
}

func (m *MemStore) GetLineage(_ context.Context, version string) (*core.LineageEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("GetLineage"); err != nil {
		return nil, err
	}
	entry, ok := m.lineage[version]
	if !ok {
		return nil, core.ErrNotFound
	}
	return &entry, nil
}

func (m *MemStore) InsertSplits(_ context.Context, splits []core.SplitAssignment) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertSplits"); err != nil {
		return 0, err
	}
	inserted := 0
	for _, s := range splits {
		k := featureKey{s.Version, s.EntityID, s.SnapshotTime.UTC()}
		if _, ok := m.splits[k]; ok {
			continue
		}
		m.splits[k] = s.Split
		inserted++
	}
	return inserted, nil
}

func (m *MemStore) CountSplits(_ context.Context, version string) (core.SplitCounts, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("CountSplits"); err != nil {
		return core.SplitCounts{}, err
	}
	var c core.SplitCounts
	for k, label := range m.splits {
		if k.version != version {
			continue
		}
		switch label {
		case core.SplitTrain:
			c.Train++
		case core.SplitVal:
			c.Val++
		case core.SplitTest:
			c.Test++
		}
	}
	return c, nil
}

func (m *MemStore) RecordRun(_ context.Context, run core.RunRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("RecordRun"); err != nil {
		return err
	}
	if _, ok := m.runs[run.RunID]; !ok {
		m.runOrder = append(m.runOrder, run.RunID)
	}
	m.runs[run.RunID] = run
	return nil
}

func (m *MemStore) ListRuns(_ context.Context, limit int) ([]core.RunRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("ListRuns"); err != nil {
		return nil, err
	}
	var out []core.RunRecord
	for i := len(m.runOrder) - 1; i >= 0; i-- {
		if limit > 0 && len(out) == limit {
			break
		}
		out = append(out, m.runs[m.runOrder[i]])
	}
	return out, nil
}

// LineageCount returns the number of registered versions.
func (m *MemStore) LineageCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lineage)
}

// FeatureRowCount returns the number of stored feature rows across versions.
func (m *MemStore) FeatureRowCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.features)
}

// Run returns the stored history row for runID.
func (m *MemStore) Run(runID string) (core.RunRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.runs[runID]
	return r, ok
}

// CustomerFeatures computes per-customer order_count and total_amount from
// the staged orders, snapshotted at each customer's latest order.
func (m *MemStore) CustomerFeatures() core.FeatureSource {
	return core.FeatureFunc(func(ctx context.Context) ([]core.FeatureRow, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.failure("CustomerFeatures"); err != nil {
			return nil, err
		}

		byCustomer := make(map[string]*core.FeatureRow)
		for _, o := range m.Orders {
			row, ok := byCustomer[o.CustomerID]
			if !ok {
				row = &core.FeatureRow{EntityID: o.CustomerID, Values: map[string]float64{}}
				byCustomer[o.CustomerID] = row
			}
			row.Values["order_count"]++
			row.Values["total_amount"] += o.Amount
			if o.OrderTS.After(row.SnapshotTime) {
				row.SnapshotTime = o.OrderTS
			}
		}

		out := make([]core.FeatureRow, 0, len(byCustomer))
		for _, r := range byCustomer {
			out = append(out, *r)
		}
		sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
		return out, nil
	})
}

// MemReportStore keeps reports in memory with the same write-once rule as
// core.FileReportStore.
type MemReportStore struct {
	mu      sync.Mutex
	reports map[string]core.ValidationReport
}

var _ core.ReportStore = (*MemReportStore)(nil)

func NewMemReportStore() *MemReportStore {
	return &MemReportStore{reports: make(map[string]core.ValidationReport)}
}

func (s *MemReportStore) WriteReport(_ context.Context, report core.ValidationReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[report.RunID]; ok {
		return core.ErrReportExists
	}
	s.reports[report.RunID] = report
	return nil
}

func (s *MemReportStore) ReadReport(_ context.Context, runID string) (core.ValidationReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.reports[runID]
	if !ok {
		return core.ValidationReport{}, core.ErrNotFound
	}
	return r, nil
}

// Len returns the number of stored reports.
func (s *MemReportStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.reports)
}
