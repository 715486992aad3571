package database_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JonMunkholm/featureprep/internal/core"
	"github.com/JonMunkholm/featureprep/internal/database"
)

// setupTestDatabase starts a PostgreSQL container, applies the embedded
// migrations and returns a store on a fresh pool.
func setupTestDatabase(t *testing.T) (*core.PostgresStore, string) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("featureprep_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	require.NoError(t, err, "start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	version, err := database.MigrateUp(connStr)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return core.NewPostgresStore(pool), connStr
}

func TestPostgresStore_Pipeline(t *testing.T) {
	store, _ := setupTestDatabase(t)
	ctx := context.Background()

	features, err := core.LoadSQLFeatureSource(store.Pool(), "../../sql/marts.sql", "customer_id", "feature_time")
	require.NoError(t, err)

	svc, err := core.NewService(store, core.NewFileReportStore(t.TempDir()), features, core.ServiceConfig{
		Fields: core.FieldMap{ID: "order_id", Owner: "customer_id", Timestamp: "order_ts", Amount: "amount", Status: "status"},
		Rules: core.RuleSet{
			RequiredColumns: []string{"order_id", "customer_id", "order_ts", "amount", "status"},
			Unique:          []string{"order_id"},
		},
		FailOnError: true,
		Splits:      core.SplitConfig{TrainRatio: 0.6, ValRatio: 0.2},
	})
	require.NoError(t, err)

	cols := []string{"order_id", "customer_id", "order_ts", "amount", "status"}
	batch := core.Batch{Columns: cols}
	for i, c := range []string{"C1", "C2", "C3", "C4", "C5"} {
		batch.Records = append(batch.Records, core.Record{
			"order_id":    string(rune('a' + i)),
			"customer_id": c,
			"order_ts":    time.Date(2024, 3, i+1, 9, 0, 0, 0, time.UTC).Format(time.RFC3339),
			"amount":      float64(10 * (i + 1)),
			"status":      "Shipped",
		})
	}

	in := core.RunInput{Source: "orders_csv", Batch: batch, SourceHash: "hash", CodeSHA: "sha", FeatureVersion: "v-it"}
	first, err := svc.Run(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 5, first.RawEvents)
	assert.Equal(t, 5, first.Staging.Changed)
	assert.Equal(t, 5, first.FeatureRows)
	assert.Equal(t, core.SplitCounts{Train: 3, Val: 1, Test: 1}, first.Splits)

	second, err := svc.Run(ctx, in)
	require.NoError(t, err)
	assert.False(t, second.LineageCreated)
	assert.Equal(t, 0, second.Staging.Changed)

	rows, err := store.ListFeatureRows(ctx, "v-it")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, "C1", rows[0].EntityID)
	assert.Equal(t, 1.0, rows[0].Values["orders_7d"])
	assert.Equal(t, 1.0, rows[0].Values["orders_30d"])
	assert.Equal(t, 10.0, rows[0].Values["revenue_30d"])
	assert.Equal(t, 4.0, rows[0].Values["days_since_last_order"])
	assert.Equal(t, 0.0, rows[4].Values["days_since_last_order"])

	counts, err := store.CountSplits(ctx, "v-it")
	require.NoError(t, err)
	assert.Equal(t, 5, counts.Total())

	entry, err := store.GetLineage(ctx, "v-it")
	require.NoError(t, err)
	assert.Equal(t, 5, entry.RowCount)
	assert.Equal(t, "sha", entry.CodeSHA)

	order, err := store.GetOrder(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "shipped", order.Status)
	assert.Equal(t, 10.0, order.Amount)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second.RunID, runs[0].RunID)
	assert.Equal(t, core.RunSucceeded, runs[0].Status)
}

func TestPostgresStore_UpsertLastWriteWins(t *testing.T) {
	store, _ := setupTestDatabase(t)
	ctx := context.Background()
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	n, err := store.UpsertOrders(ctx, []core.Order{{ID: "1", CustomerID: "C1", OrderTS: ts, Amount: 5, Status: "pending"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.UpsertOrders(ctx, []core.Order{{ID: "1", CustomerID: "C1", OrderTS: ts, Amount: 7.25, Status: "shipped"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = store.UpsertOrders(ctx, []core.Order{{ID: "1", CustomerID: "C1", OrderTS: ts, Amount: 7.25, Status: "shipped"}})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	order, err := store.GetOrder(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, 7.25, order.Amount)
	assert.Equal(t, "shipped", order.Status)

	_, err = store.GetOrder(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestMigrateDown(t *testing.T) {
	_, connStr := setupTestDatabase(t)

	version, err := database.MigrateDown(connStr, 1)
	require.NoError(t, err)
	assert.Equal(t, uint(0), version)

	version, err = database.MigrateUp(connStr)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
