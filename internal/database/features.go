package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertFeatureRow = `-- name: InsertFeatureRow :exec
INSERT INTO feats.feature_rows (entity_id, feature_time, feature_version, features)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entity_id, feature_time, feature_version) DO NOTHING
`

type InsertFeatureRowParams struct {
	EntityID       string
	FeatureTime    pgtype.Timestamptz
	FeatureVersion string
	Features       map[string]float64
}

// InsertFeatureRows inserts every row in one batch, ignoring existing keys.
func (q *Queries) InsertFeatureRows(ctx context.Context, arg []InsertFeatureRowParams) (int64, error) {
	b := &pgx.Batch{}
	for _, r := range arg {
		features := r.Features
		if features == nil {
			features = map[string]float64{}
		}
		b.Queue(insertFeatureRow, r.EntityID, r.FeatureTime, r.FeatureVersion, features)
	}
	return q.execBatch(ctx, b)
}

// Ties on feature_time are ordered by entity_id so retrieval is repeatable.
const listFeatureRowsByVersion = `-- name: ListFeatureRowsByVersion :many
SELECT entity_id, feature_time, feature_version, features
FROM feats.feature_rows
WHERE feature_version = $1
ORDER BY feature_time, entity_id
`

type FeatsFeatureRow struct {
	EntityID       string
	FeatureTime    pgtype.Timestamptz
	FeatureVersion string
	Features       map[string]float64
}

func (q *Queries) ListFeatureRowsByVersion(ctx context.Context, featureVersion string) ([]FeatsFeatureRow, error) {
	rows, err := q.db.Query(ctx, listFeatureRowsByVersion, featureVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FeatsFeatureRow
	for rows.Next() {
		var i FeatsFeatureRow
		if err := rows.Scan(
			&i.EntityID,
			&i.FeatureTime,
			&i.FeatureVersion,
			&i.Features,
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
