package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

type InsertRawEventParams struct {
	RunID       string
	Source      string
	PayloadJson string
	PayloadHash string
	CapturedAt  pgtype.Timestamptz
}

// CopyRawEvents bulk-loads capture log entries with COPY.
func (q *Queries) CopyRawEvents(ctx context.Context, arg []InsertRawEventParams) (int64, error) {
	return q.db.CopyFrom(ctx,
		pgx.Identifier{"raw", "raw_events"},
		[]string{"run_id", "source", "payload_json", "payload_hash", "captured_at"},
		pgx.CopyFromSlice(len(arg), func(i int) ([]any, error) {
			return []any{arg[i].RunID, arg[i].Source, arg[i].PayloadJson, arg[i].PayloadHash, arg[i].CapturedAt}, nil
		}),
	)
}

const countRawEventsByRun = `-- name: CountRawEventsByRun :one
SELECT count(*) FROM raw.raw_events WHERE run_id = $1
`

func (q *Queries) CountRawEventsByRun(ctx context.Context, runID string) (int64, error) {
	row := q.db.QueryRow(ctx, countRawEventsByRun, runID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listRawEventsByRun = `-- name: ListRawEventsByRun :many
SELECT run_id, source, payload_json, payload_hash, captured_at
FROM raw.raw_events
WHERE run_id = $1
ORDER BY id
`

type RawEvent struct {
	RunID       string
	Source      string
	PayloadJson string
	PayloadHash string
	CapturedAt  pgtype.Timestamptz
}

func (q *Queries) ListRawEventsByRun(ctx context.Context, runID string) ([]RawEvent, error) {
	rows, err := q.db.Query(ctx, listRawEventsByRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RawEvent
	for rows.Next() {
		var i RawEvent
		if err := rows.Scan(
			&i.RunID,
			&i.Source,
			&i.PayloadJson,
			&i.PayloadHash,
			&i.CapturedAt,
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
