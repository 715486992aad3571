package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const upsertPipelineRun = `-- name: UpsertPipelineRun :exec
INSERT INTO meta.pipeline_runs (
    run_id, feature_version, source, status, validation_passed,
    raw_events, staged_orders, feature_rows, error, started_at, finished_at
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (run_id) DO UPDATE SET
    feature_version   = EXCLUDED.feature_version,
    status            = EXCLUDED.status,
    validation_passed = EXCLUDED.validation_passed,
    raw_events        = EXCLUDED.raw_events,
    staged_orders     = EXCLUDED.staged_orders,
    feature_rows      = EXCLUDED.feature_rows,
    error             = EXCLUDED.error,
    finished_at       = EXCLUDED.finished_at
`

type UpsertPipelineRunParams struct {
	RunID            string
	FeatureVersion   string
	Source           string
	Status           string
	ValidationPassed bool
	RawEvents        int32
	StagedOrders     int32
	FeatureRows      int32
	Error            pgtype.Text
	StartedAt        pgtype.Timestamptz
	FinishedAt       pgtype.Timestamptz
}

func (q *Queries) UpsertPipelineRun(ctx context.Context, arg UpsertPipelineRunParams) error {
	_, err := q.db.Exec(ctx, upsertPipelineRun,
		arg.RunID,
		arg.FeatureVersion,
		arg.Source,
		arg.Status,
		arg.ValidationPassed,
		arg.RawEvents,
		arg.StagedOrders,
		arg.FeatureRows,
		arg.Error,
		arg.StartedAt,
		arg.FinishedAt,
	)
	return err
}

const listPipelineRuns = `-- name: ListPipelineRuns :many
SELECT run_id, feature_version, source, status, validation_passed,
       raw_events, staged_orders, feature_rows, error, started_at, finished_at
FROM meta.pipeline_runs
ORDER BY started_at DESC, run_id DESC
LIMIT $1
`

type MetaPipelineRun struct {
	RunID            string
	FeatureVersion   string
	Source           string
	Status           string
	ValidationPassed bool
	RawEvents        int32
	StagedOrders     int32
	FeatureRows      int32
	Error            pgtype.Text
	StartedAt        pgtype.Timestamptz
	FinishedAt       pgtype.Timestamptz
}

func (q *Queries) ListPipelineRuns(ctx context.Context, limit int32) ([]MetaPipelineRun, error) {
	rows, err := q.db.Query(ctx, listPipelineRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MetaPipelineRun
	for rows.Next() {
		var i MetaPipelineRun
		if err := rows.Scan(
			&i.RunID,
			&i.FeatureVersion,
			&i.Source,
			&i.Status,
			&i.ValidationPassed,
			&i.RawEvents,
			&i.StagedOrders,
			&i.FeatureRows,
			&i.Error,
			&i.StartedAt,
			&i.FinishedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
