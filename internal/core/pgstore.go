package core

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	db "github.com/JonMunkholm/featureprep/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore implements Store on the raw, stg, feats and meta schemas.
// Every write method runs in its own transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a store backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Pool returns the underlying connection pool.
func (s *PostgresStore) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(db.New(s.pool).WithTx(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *PostgresStore) AppendRawEvents(ctx context.Context, events []RawEvent) error {
	if len(events) == 0 {
		return nil
	}
	params := make([]db.InsertRawEventParams, len(events))
	for i, e := range events {
		params[i] = db.InsertRawEventParams{
			RunID:       e.RunID,
			Source:      e.Source,
			PayloadJson: e.Payload,
			PayloadHash: e.Hash,
			CapturedAt:  toPgTimestamptz(e.CapturedAt),
		}
	}
	return s.inTx(ctx, func(q *db.Queries) error {
		n, err := q.CopyRawEvents(ctx, params)
		if err != nil {
			return err
		}
		if int(n) != len(params) {
			return fmt.Errorf("copied %d of %d raw events", n, len(params))
		}
		return nil
	})
}

func (s *PostgresStore) UpsertOrders(ctx context.Context, orders []Order) (int, error) {
	if len(orders) == 0 {
		return 0, nil
	}
	params := make([]db.UpsertOrderParams, len(orders))
	for i, o := range orders {
		amount, err := toPgNumeric(o.Amount)
		if err != nil {
			return 0, fmt.Errorf("order %s: %w", o.ID, err)
		}
		params[i] = db.UpsertOrderParams{
			OrderID:    o.ID,
			CustomerID: o.CustomerID,
			OrderTs:    toPgTimestamptz(o.OrderTS),
			Amount:     amount,
			Status:     toPgText(o.Status),
		}
	}

	var changed int64
	err := s.inTx(ctx, func(q *db.Queries) error {
		var err error
		changed, err = q.UpsertOrders(ctx, params)
		return err
	})
	return int(changed), err
}

func (s *PostgresStore) InsertFeatureRows(ctx context.Context, rows []FeatureRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	params := make([]db.InsertFeatureRowParams, len(rows))
	for i, r := range rows {
		params[i] = db.InsertFeatureRowParams{
			EntityID:       r.EntityID,
			FeatureTime:    toPgTimestamptz(r.SnapshotTime),
			FeatureVersion: r.Version,
			Features:       r.Values,
		}
	}

	var inserted int64
	err := s.inTx(ctx, func(q *db.Queries) error {
		var err error
		inserted, err = q.InsertFeatureRows(ctx, params)
		return err
	})
	return int(inserted), err
}

func (s *PostgresStore) ListFeatureRows(ctx context.Context, version string) ([]FeatureRow, error) {
	rows, err := db.New(s.pool).ListFeatureRowsByVersion(ctx, version)
	if err != nil {
		return nil, err
	}
	out := make([]FeatureRow, len(rows))
	for i, r := range rows {
		out[i] = FeatureRow{
			EntityID:     r.EntityID,
			SnapshotTime: r.FeatureTime.Time.UTC(),
			Version:      r.FeatureVersion,
			Values:       r.Features,
		}
	}
	return out, nil
}

func (s *PostgresStore) InsertLineage(ctx context.Context, entry LineageEntry) (bool, error) {
	var affected int64
	err := s.inTx(ctx, func(q *db.Queries) error {
		var err error
		affected, err = q.InsertLineage(ctx, db.InsertLineageParams{
			FeatureVersion:   entry.FeatureVersion,
			CodeSha:          entry.CodeSHA,
			SourceHash:       entry.SourceHash,
			RowCount:         int32(entry.RowCount),
			ValidationPassed: entry.ValidationPassed,
			CreatedAt:        toPgTimestamptz(entry.CreatedAt),
		})
		return err
	})
	return affected > 0, err
}

func (s *PostgresStore) GetLineage(ctx context.Context, version string) (*LineageEntry, error) {
	row, err := db.New(s.pool).GetLineage(ctx, version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &LineageEntry{
		FeatureVersion:   row.FeatureVersion,
		CodeSHA:          row.CodeSha,
		SourceHash:       row.SourceHash,
		RowCount:         int(row.RowCount),
		ValidationPassed: row.ValidationPassed,
		CreatedAt:        row.CreatedAt.Time.UTC(),
	}, nil
}

func (s *PostgresStore) InsertSplits(ctx context.Context, splits []SplitAssignment) (int, error) {
	if len(splits) == 0 {
		return 0, nil
	}
	params := make([]db.InsertSplitParams, len(splits))
	for i, sp := range splits {
		params[i] = db.InsertSplitParams{
			EntityID:       sp.EntityID,
			FeatureTime:    toPgTimestamptz(sp.SnapshotTime),
			FeatureVersion: sp.Version,
			Split:          string(sp.Split),
		}
	}

	var inserted int64
	err := s.inTx(ctx, func(q *db.Queries) error {
		var err error
		inserted, err = q.InsertSplits(ctx, params)
		return err
	})
	return int(inserted), err
}

func (s *PostgresStore) CountSplits(ctx context.Context, version string) (SplitCounts, error) {
	rows, err := db.New(s.pool).CountSplitsByVersion(ctx, version)
	if err != nil {
		return SplitCounts{}, err
	}
	var c SplitCounts
	for _, r := range rows {
		c.add(SplitLabel(r.Split), int(r.Count))
	}
	return c, nil
}

func (s *PostgresStore) RecordRun(ctx context.Context, run RunRecord) error {
	params := db.UpsertPipelineRunParams{
		RunID:            run.RunID,
		FeatureVersion:   run.FeatureVersion,
		Source:           run.Source,
		Status:           string(run.Status),
		ValidationPassed: run.ValidationPassed,
		RawEvents:        int32(run.RawEvents),
		StagedOrders:     int32(run.StagedOrders),
		FeatureRows:      int32(run.FeatureRows),
		Error:            toPgText(run.Error),
		StartedAt:        toPgTimestamptz(run.StartedAt),
	}
	if run.FinishedAt != nil {
		params.FinishedAt = toPgTimestamptz(*run.FinishedAt)
	}
	return s.inTx(ctx, func(q *db.Queries) error {
		return q.UpsertPipelineRun(ctx, params)
	})
}

func (s *PostgresStore) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.New(s.pool).ListPipelineRuns(ctx, int32(limit))
	if err != nil {
		return nil, err
	}
	out := make([]RunRecord, len(rows))
	for i, r := range rows {
		rec := RunRecord{
			RunID:            r.RunID,
			FeatureVersion:   r.FeatureVersion,
			Source:           r.Source,
			Status:           RunStatus(r.Status),
			ValidationPassed: r.ValidationPassed,
			RawEvents:        int(r.RawEvents),
			StagedOrders:     int(r.StagedOrders),
			FeatureRows:      int(r.FeatureRows),
			Error:            r.Error.String,
			StartedAt:        r.StartedAt.Time.UTC(),
		}
		if r.FinishedAt.Valid {
			t := r.FinishedAt.Time.UTC()
			rec.FinishedAt = &t
		}
		out[i] = rec
	}
	return out, nil
}

// GetOrder returns a staged order, or ErrNotFound.
func (s *PostgresStore) GetOrder(ctx context.Context, id string) (*Order, error) {
	row, err := db.New(s.pool).GetOrder(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	amount, err := row.Amount.Float64Value()
	if err != nil {
		return nil, fmt.Errorf("order %s amount: %w", id, err)
	}
	return &Order{
		ID:         row.OrderID,
		CustomerID: row.CustomerID,
		OrderTS:    row.OrderTs.Time.UTC(),
		Amount:     amount.Float64,
		Status:     row.Status.String,
	}, nil
}

func toPgTimestamptz(t time.Time) pgtype.Timestamptz {
	if t.IsZero() {
		return pgtype.Timestamptz{Valid: false}
	}
	return pgtype.Timestamptz{Time: t.UTC(), Valid: true}
}

// toPgText maps the empty string to NULL.
func toPgText(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func toPgNumeric(f float64) (pgtype.Numeric, error) {
	var n pgtype.Numeric
	if err := n.Scan(strconv.FormatFloat(f, 'f', -1, 64)); err != nil {
		return pgtype.Numeric{}, fmt.Errorf("invalid number %v: %w", f, err)
	}
	return n, nil
}

// Ping checks connectivity to the database.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}
