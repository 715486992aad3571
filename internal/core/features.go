package core

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// FeatureSource is the external feature computation. It reads the staged
// orders and returns one row per (entity, snapshot time). The pipeline
// stamps the version on the rows it receives.
type FeatureSource interface {
	Compute(ctx context.Context) ([]FeatureRow, error)
}

// FeatureFunc adapts a function to FeatureSource.
type FeatureFunc func(ctx context.Context) ([]FeatureRow, error)

// Compute calls f.
func (f FeatureFunc) Compute(ctx context.Context) ([]FeatureRow, error) {
	return f(ctx)
}

// SQLFeatureSource runs an externally supplied query against the staging
// schema. The entity and time columns key each row; every other column is
// a numeric aggregate.
type SQLFeatureSource struct {
	db           DBTX
	query        string
	entityColumn string
	timeColumn   string
}

// NewSQLFeatureSource creates a feature source for query.
func NewSQLFeatureSource(db DBTX, query, entityColumn, timeColumn string) (*SQLFeatureSource, error) {
	if strings.TrimSpace(query) == "" {
		return nil, newConfigError("feature query is empty")
	}
	if entityColumn == "" || timeColumn == "" {
		return nil, newConfigError("feature query needs entity and time column names")
	}
	return &SQLFeatureSource{
		db:           db,
		query:        query,
		entityColumn: entityColumn,
		timeColumn:   timeColumn,
	}, nil
}

// LoadSQLFeatureSource reads the feature query from a file.
func LoadSQLFeatureSource(db DBTX, path, entityColumn, timeColumn string) (*SQLFeatureSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, newConfigError("read feature query %s: %v", path, err)
	}
	return NewSQLFeatureSource(db, string(data), entityColumn, timeColumn)
}

// Compute runs the query and maps each result row.
func (s *SQLFeatureSource) Compute(ctx context.Context) ([]FeatureRow, error) {
	rows, err := s.db.Query(ctx, s.query)
	if err != nil {
		return nil, fmt.Errorf("run feature query: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}

	var out []FeatureRow
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("read feature row: %w", err)
		}
		row, err := s.mapRow(names, values)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature rows: %w", err)
	}
	return out, nil
}

func (s *SQLFeatureSource) mapRow(names []string, values []any) (FeatureRow, error) {
	row := FeatureRow{Values: make(map[string]float64, len(names))}
	var haveEntity, haveTime bool

	for i, name := range names {
		v := values[i]
		switch name {
		case s.entityColumn:
			id, ok := StringValue(v)
			if !ok {
				return FeatureRow{}, fmt.Errorf("feature row has null %s", name)
			}
			row.EntityID, haveEntity = id, true
		case s.timeColumn:
			ts, ok := ParseTimestamp(v)
			if !ok {
				return FeatureRow{}, fmt.Errorf("feature row has invalid %s: %v", name, v)
			}
			row.SnapshotTime, haveTime = ts, true
		default:
			f, ok, err := featureValue(v)
			if err != nil {
				return FeatureRow{}, fmt.Errorf("feature column %s: %w", name, err)
			}
			if ok {
				row.Values[name] = f
			}
		}
	}

	if !haveEntity || !haveTime {
		return FeatureRow{}, fmt.Errorf("feature query must return columns %s and %s", s.entityColumn, s.timeColumn)
	}
	return row, nil
}

// featureValue converts a query value to float64. ok is false for nulls.
func featureValue(v any) (float64, bool, error) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false, nil
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case int16:
		f = float64(x)
	case int:
		f = float64(x)
	case pgtype.Numeric:
		if !x.Valid {
			return 0, false, nil
		}
		f8, err := x.Float64Value()
		if err != nil {
			return 0, false, err
		}
		if !f8.Valid {
			return 0, false, nil
		}
		f = f8.Float64
	case time.Time:
		return 0, false, fmt.Errorf("unexpected timestamp value")
	default:
		return 0, false, fmt.Errorf("non-numeric value of type %T", v)
	}
	if math.IsNaN(f) {
		return 0, false, nil
	}
	if math.IsInf(f, 0) {
		return 0, false, fmt.Errorf("infinite value")
	}
	return f, true, nil
}
