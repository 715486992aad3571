package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const insertSplit = `-- name: InsertSplit :exec
INSERT INTO meta.dataset_splits (entity_id, feature_time, feature_version, split)
VALUES ($1, $2, $3, $4)
ON CONFLICT (entity_id, feature_time, feature_version) DO NOTHING
`

type InsertSplitParams struct {
	EntityID       string
	FeatureTime    pgtype.Timestamptz
	FeatureVersion string
	Split          string
}

// InsertSplits writes every assignment in one batch, ignoring existing keys.
func (q *Queries) InsertSplits(ctx context.Context, arg []InsertSplitParams) (int64, error) {
	b := &pgx.Batch{}
	for _, s := range arg {
		b.Queue(insertSplit, s.EntityID, s.FeatureTime, s.FeatureVersion, s.Split)
	}
	return q.execBatch(ctx, b)
}

const countSplitsByVersion = `-- name: CountSplitsByVersion :many
SELECT split, count(*)
FROM meta.dataset_splits
WHERE feature_version = $1
GROUP BY split
`

type CountSplitsByVersionRow struct {
	Split string
	Count int64
}

func (q *Queries) CountSplitsByVersion(ctx context.Context, featureVersion string) ([]CountSplitsByVersionRow, error) {
	rows, err := q.db.Query(ctx, countSplitsByVersion, featureVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountSplitsByVersionRow
	for rows.Next() {
		var i CountSplitsByVersionRow
		if err := rows.Scan(&i.Split, &i.Count); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const listSplitsByVersion = `-- name: ListSplitsByVersion :many
SELECT entity_id, feature_time, feature_version, split
FROM meta.dataset_splits
WHERE feature_version = $1
ORDER BY feature_time, entity_id
`

type MetaDatasetSplit struct {
	EntityID       string
	FeatureTime    pgtype.Timestamptz
	FeatureVersion string
	Split          string
}

func (q *Queries) ListSplitsByVersion(ctx context.Context, featureVersion string) ([]MetaDatasetSplit, error) {
	rows, err := q.db.Query(ctx, listSplitsByVersion, featureVersion)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []MetaDatasetSplit
	for rows.Next() {
		var i MetaDatasetSplit
		if err := rows.Scan(
			&i.EntityID,
			&i.FeatureTime,
			&i.FeatureVersion,
			&i.Split,
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
