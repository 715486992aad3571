package core

import (
	"context"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// Record is one tabular input row. A missing key and a nil value both mean
// the field is null.
type Record map[string]any

// Batch is one finite, in-memory input batch.
type Batch struct {
	Columns []string // Header column names, in input order
	Records []Record
}

// Len returns the number of records in the batch.
func (b Batch) Len() int {
	return len(b.Records)
}

// HasColumn reports whether the batch header contains name.
func (b Batch) HasColumn(name string) bool {
	for _, c := range b.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// FieldMap names the input columns that carry each staged order attribute.
type FieldMap struct {
	ID        string `yaml:"id"`
	Owner     string `yaml:"owner"`
	Timestamp string `yaml:"timestamp"`
	Amount    string `yaml:"amount"`
	Status    string `yaml:"status"`
}

// RawEvent is one immutable entry of the raw capture log.
type RawEvent struct {
	RunID      string
	Source     string
	Payload    string // Canonical JSON serialization
	Hash       string // Hex SHA-256 of Payload
	CapturedAt time.Time
}

// Order is a staged entity keyed by its natural order id.
type Order struct {
	ID         string
	CustomerID string
	OrderTS    time.Time
	Amount     float64
	Status     string // Normalized; empty when the input status was null
}

// FeatureRow is one row produced by the external feature computation.
// Values holds the numeric aggregates; null aggregates are omitted.
type FeatureRow struct {
	EntityID     string
	SnapshotTime time.Time
	Version      string
	Values       map[string]float64
}

// FeatureNames returns the aggregate names in sorted order.
func (r FeatureRow) FeatureNames() []string {
	names := make([]string, 0, len(r.Values))
	for k := range r.Values {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// LineageEntry binds a feature version to its provenance and quality verdict.
type LineageEntry struct {
	FeatureVersion   string    `json:"featureVersion"`
	CodeSHA          string    `json:"codeSha"`
	SourceHash       string    `json:"sourceHash"`
	RowCount         int       `json:"rowCount"`
	ValidationPassed bool      `json:"validationPassed"`
	CreatedAt        time.Time `json:"createdAt"`
}

// SplitLabel is a dataset partition name.
type SplitLabel string

const (
	SplitTrain SplitLabel = "train"
	SplitVal   SplitLabel = "val"
	SplitTest  SplitLabel = "test"
)

// SplitAssignment places one feature row into a partition.
type SplitAssignment struct {
	EntityID     string
	SnapshotTime time.Time
	Version      string
	Split        SplitLabel
}

// SplitCounts holds the number of rows per partition for one version.
type SplitCounts struct {
	Train int `json:"train"`
	Val   int `json:"val"`
	Test  int `json:"test"`
}

// Total returns the number of assigned rows.
func (c SplitCounts) Total() int {
	return c.Train + c.Val + c.Test
}

func (c *SplitCounts) add(label SplitLabel, n int) {
	switch label {
	case SplitTrain:
		c.Train += n
	case SplitVal:
		c.Val += n
	case SplitTest:
		c.Test += n
	}
}

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the history row kept for every pipeline run.
type RunRecord struct {
	RunID            string     `json:"runId"`
	FeatureVersion   string     `json:"featureVersion"`
	Source           string     `json:"source"`
	Status           RunStatus  `json:"status"`
	ValidationPassed bool       `json:"validationPassed"`
	RawEvents        int        `json:"rawEvents"`
	StagedOrders     int        `json:"stagedOrders"`
	FeatureRows      int        `json:"featureRows"`
	Error            string     `json:"error,omitempty"`
	StartedAt        time.Time  `json:"startedAt"`
	FinishedAt       *time.Time `json:"finishedAt,omitempty"`
}

// Store is the persistence boundary of the pipeline. Each write method
// commits its whole slice in one transaction and is safe to repeat.
type Store interface {
	// AppendRawEvents appends to the raw capture log. No dedup.
	AppendRawEvents(ctx context.Context, events []RawEvent) error

	// UpsertOrders inserts or updates on key collision. Returns the number
	// of rows inserted or changed.
	UpsertOrders(ctx context.Context, orders []Order) (int, error)

	// InsertFeatureRows inserts or ignores on key collision.
	InsertFeatureRows(ctx context.Context, rows []FeatureRow) (int, error)

	// ListFeatureRows returns all rows for a version ordered by snapshot time.
	ListFeatureRows(ctx context.Context, version string) ([]FeatureRow, error)

	// InsertLineage inserts or ignores on key collision. Reports whether
	// a row was created.
	InsertLineage(ctx context.Context, entry LineageEntry) (bool, error)

	// GetLineage returns ErrNotFound when the version is unknown.
	GetLineage(ctx context.Context, version string) (*LineageEntry, error)

	// InsertSplits inserts or ignores on key collision.
	InsertSplits(ctx context.Context, splits []SplitAssignment) (int, error)

	CountSplits(ctx context.Context, version string) (SplitCounts, error)

	// RecordRun inserts or updates the run history row.
	RecordRun(ctx context.Context, run RunRecord) error

	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
}
