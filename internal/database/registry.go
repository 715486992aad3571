package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

const insertLineage = `-- name: InsertLineage :execrows
INSERT INTO meta.feature_registry (feature_version, code_sha, source_hash, row_count, validation_passed, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (feature_version) DO NOTHING
`

type InsertLineageParams struct {
	FeatureVersion   string
	CodeSha          string
	SourceHash       string
	RowCount         int32
	ValidationPassed bool
	CreatedAt        pgtype.Timestamptz
}

// InsertLineage returns 0 when the version was already registered.
func (q *Queries) InsertLineage(ctx context.Context, arg InsertLineageParams) (int64, error) {
	result, err := q.db.Exec(ctx, insertLineage,
		arg.FeatureVersion,
		arg.CodeSha,
		arg.SourceHash,
		arg.RowCount,
		arg.ValidationPassed,
		arg.CreatedAt,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}

const getLineage = `-- name: GetLineage :one
SELECT feature_version, code_sha, source_hash, row_count, validation_passed, created_at
FROM meta.feature_registry
WHERE feature_version = $1
`

type MetaFeatureRegistry struct {
	FeatureVersion   string
	CodeSha          string
	SourceHash       string
	RowCount         int32
	ValidationPassed bool
	CreatedAt        pgtype.Timestamptz
}

func (q *Queries) GetLineage(ctx context.Context, featureVersion string) (MetaFeatureRegistry, error) {
	row := q.db.QueryRow(ctx, getLineage, featureVersion)
	var i MetaFeatureRegistry
	err := row.Scan(
		&i.FeatureVersion,
		&i.CodeSha,
		&i.SourceHash,
		&i.RowCount,
		&i.ValidationPassed,
		&i.CreatedAt,
	)
	return i, err
}
