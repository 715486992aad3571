package commands

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/featureprep/internal/config"
	"github.com/JonMunkholm/featureprep/internal/core"
	"github.com/JonMunkholm/featureprep/internal/ingest"
)

const testRules = `orders:
  required_columns: [order_id, customer_id, order_ts, amount, status]
  non_null: [order_id, customer_id]
  unique: [order_id]
  ranges:
    amount:
      min: 0
  allowed_values:
    status: [pending, shipped]
`

type fixture struct {
	dir     string
	rules   string
	reports string
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	f := fixture{
		dir:     dir,
		rules:   filepath.Join(dir, "expectations.yaml"),
		reports: filepath.Join(dir, "reports"),
	}
	require.NoError(t, os.WriteFile(f.rules, []byte(testRules), 0o644))
	t.Setenv("REPORTS_DIR", f.reports)
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_URL", "")
	return f
}

func (f fixture) csv(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f fixture) reportFiles(t *testing.T) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(f.reports, "*.json"))
	require.NoError(t, err)
	return matches
}

func execute(args ...string) (string, error) {
	root := NewRootCmd("test")
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, ExitOK},
		{"config", &core.ConfigurationError{Problems: []string{"x"}}, ExitConfig},
		{"database required", config.ErrDatabaseRequired, ExitConfig},
		{"missing file", fmt.Errorf("open input: %w", os.ErrNotExist), ExitConfig},
		{"structural", &core.StructuralValidationError{Missing: []string{"amount"}}, ExitValidation},
		{"content", fmt.Errorf("run failed: %w", &core.ContentValidationError{}), ExitValidation},
		{"empty csv", ingest.ErrEmptyFile, ExitValidation},
		{"storage", fmt.Errorf("run failed: %w", &core.StorageError{Op: "insert", Err: errors.New("boom")}), ExitStorage},
		{"unexpected", errors.New("boom"), ExitUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestValidate_Passes(t *testing.T) {
	f := newFixture(t)
	input := f.csv(t, "orders.csv", "order_id,customer_id,order_ts,amount,status\n"+
		"o1,c1,2024-01-01T00:00:00Z,10.5,pending\n"+
		"o2,c2,2024-01-02T00:00:00Z,3,shipped\n")

	_, err := execute("validate", "--input", input, "--rules", f.rules)
	require.NoError(t, err)
	assert.Len(t, f.reportFiles(t), 1)
}

func TestValidate_ContentFailure(t *testing.T) {
	f := newFixture(t)
	input := f.csv(t, "orders.csv", "order_id,customer_id,order_ts,amount,status\n"+
		"o1,c1,2024-01-01T00:00:00Z,-1,pending\n"+
		"o1,c2,2024-01-02T00:00:00Z,3,lost\n")

	_, err := execute("validate", "--input", input, "--rules", f.rules)
	require.Error(t, err)

	var ce *core.ContentValidationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, ExitValidation, ExitCode(err))
	assert.Len(t, ce.Report.Errors, 3)

	files := f.reportFiles(t)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), `"validation_passed": false`)
}

func TestValidate_StructuralFailure(t *testing.T) {
	f := newFixture(t)
	input := f.csv(t, "orders.csv", "order_id,customer_id,order_ts\no1,c1,2024-01-01\n")

	_, err := execute("validate", "--input", input, "--rules", f.rules)

	var se *core.StructuralValidationError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, []string{"amount", "status"}, se.Missing)
	assert.Equal(t, ExitValidation, ExitCode(err))
}

func TestValidate_ConfigErrors(t *testing.T) {
	f := newFixture(t)
	input := f.csv(t, "orders.csv", "order_id\no1\n")

	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{"validate", "--rules", f.rules}},
		{"unknown dataset", []string{"validate", "--input", input, "--rules", f.rules, "--dataset", "invoices"}},
		{"dataset missing from rules", []string{"validate", "--input", input, "--rules", f.rules, "--dataset", "shop_transactions"}},
		{"missing input file", []string{"validate", "--input", filepath.Join(f.dir, "nope.csv"), "--rules", f.rules}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitConfig, ExitCode(err), "error: %v", err)
		})
	}
}

func TestRun_RequiresDatabase(t *testing.T) {
	f := newFixture(t)
	input := f.csv(t, "orders.csv", "order_id,customer_id,order_ts,amount,status\n")

	_, err := execute("run", "--input", input, "--rules", f.rules)
	require.ErrorIs(t, err, config.ErrDatabaseRequired)
	assert.Equal(t, ExitConfig, ExitCode(err))
}

func TestSeedThenValidate(t *testing.T) {
	f := newFixture(t)
	out := filepath.Join(f.dir, "seed.csv")

	_, err := execute("seed", "--out", out, "--rows", "50", "--customers", "5", "--seed", "7")
	require.NoError(t, err)

	// Seeded statuses include values outside this test's whitelist.
	rules := f.csv(t, "rules.yaml", strings.Replace(testRules, "[pending, shipped]",
		"[pending, shipped, delivered, cancelled, returned]", 1))

	_, err = execute("validate", "--input", out, "--rules", rules)
	require.NoError(t, err)
}

func TestSeed_Stdout(t *testing.T) {
	out, err := execute("seed", "--rows", "3", "--customers", "2")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "order_id,customer_id,order_ts,amount,status", lines[0])
}

func TestDatasets(t *testing.T) {
	out, err := execute("datasets")
	require.NoError(t, err)
	assert.Contains(t, out, "orders")
	assert.Contains(t, out, "transaction_id")
}
