package core

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

var testFields = FieldMap{
	ID:        "order_id",
	Owner:     "customer_id",
	Timestamp: "order_ts",
	Amount:    "amount",
	Status:    "status",
}

func orderRules() RuleSet {
	return RuleSet{
		RequiredColumns: []string{"order_id", "customer_id", "order_ts", "amount", "status"},
		NonNull:         []string{"order_id", "customer_id", "order_ts"},
		Unique:          []string{"order_id"},
		Ranges:          map[string]Range{"amount": {Min: ptr(0), Max: ptr(10000)}},
		AllowedValues:   map[string][]string{"status": {"pending", "shipped", "delivered", "cancelled"}},
	}
}

var orderColumns = []string{"order_id", "customer_id", "order_ts", "amount", "status"}

func order(id any, cust any, ts any, amount any, status any) Record {
	return Record{"order_id": id, "customer_id": cust, "order_ts": ts, "amount": amount, "status": status}
}

func newTestValidator(t *testing.T, rules RuleSet) *Validator {
	t.Helper()
	v, err := NewValidator(rules, testFields)
	require.NoError(t, err)
	return v
}

func TestValidate_CleanBatchPasses(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", "10.00", "Shipped"),
		order("2", "C2", "2024-03-02", 25.5, "pending"),
	}}

	report := v.Validate(context.Background(), "run-1", batch)

	assert.True(t, report.Passed)
	assert.NotNil(t, report.Errors)
	assert.Empty(t, report.Errors)
	assert.Equal(t, "run-1", report.RunID)
	assert.False(t, report.Structural())
}

func TestValidate_MissingColumnsShortCircuit(t *testing.T) {
	v := newTestValidator(t, orderRules())
	// Content defects are present too but must not be reported.
	batch := Batch{
		Columns: []string{"order_id", "customer_id", "order_ts"},
		Records: []Record{
			{"order_id": nil, "customer_id": "C1", "order_ts": "bad"},
			{"order_id": nil, "customer_id": "C1", "order_ts": "bad"},
		},
	}

	report := v.Validate(context.Background(), "run-2", batch)

	assert.False(t, report.Passed)
	assert.True(t, report.Structural())
	assert.Equal(t, []string{"Missing column: amount", "Missing column: status"}, report.Errors)
	assert.Equal(t, []string{"amount", "status"}, report.Missing)
}

func TestValidate_AccumulatesIndependentDefects(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", 10, "shipped"),
		order("1", "C2", "2024-03-02", 11, "shipped"),
		order(nil, "C3", "2024-03-03", 12, "shipped"),
	}}

	report := v.Validate(context.Background(), "run-3", batch)

	assert.False(t, report.Passed)
	assert.Equal(t, []string{
		"order_id has 1 null(s)",
		"order_id has 1 duplicate(s)",
	}, report.Errors)
}

func TestValidate_ContentChecksInFixedOrder(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", 10, "shipped"),
		order("2", "C2", "yesterday", "abc", "Lost"),
		order("3", "C3", "2024-03-02", -5, "pending"),
		order("4", "C4", "2024-03-03", 20000, "DELIVERED"),
	}}

	report := v.Validate(context.Background(), "run-4", batch)

	assert.Equal(t, []string{
		"order_ts has 1 invalid timestamp(s)",
		"amount has 1 non-numeric value(s)",
		"amount has 1 < 0",
		"amount has 1 > 10000",
		"status has 1 invalid value(s)",
	}, report.Errors)
}

func TestValidate_Nulls(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "  ", nil, 10, nil),
		order("2", "C2", "2024-03-02", nil, "shipped"),
	}}

	report := v.Validate(context.Background(), "run-5", batch)

	assert.Equal(t, []string{
		"customer_id has 1 null(s)",
		"order_ts has 1 null(s)",
		"order_ts has 1 invalid timestamp(s)",
		"amount has 1 non-numeric value(s)",
		"status has 1 invalid value(s)",
	}, report.Errors)
}

func TestValidate_NumericAndStringIDsCollide(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order(1001.0, "C1", "2024-03-01", 10, "shipped"),
		order("1001", "C1", "2024-03-01", 10, "shipped"),
	}}

	report := v.Validate(context.Background(), "run-6", batch)

	assert.Equal(t, []string{"order_id has 1 duplicate(s)"}, report.Errors)
}

func TestValidate_NonNullOnAbsentOptionalColumn(t *testing.T) {
	rules := orderRules()
	rules.NonNull = append(rules.NonNull, "coupon")
	rules.Unique = append(rules.Unique, "coupon")
	v := newTestValidator(t, rules)

	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", 10, "shipped"),
		order("2", "C2", "2024-03-01", 10, "shipped"),
	}}

	report := v.Validate(context.Background(), "run-7", batch)

	assert.Equal(t, []string{"coupon has 2 null(s)"}, report.Errors)
}

func TestValidate_RangeOnSecondaryField(t *testing.T) {
	rules := orderRules()
	rules.RequiredColumns = append(rules.RequiredColumns, "quantity")
	rules.Ranges["quantity"] = Range{Min: ptr(1)}
	v := newTestValidator(t, rules)

	cols := append(append([]string{}, orderColumns...), "quantity")
	r1 := order("1", "C1", "2024-03-01", 10, "shipped")
	r1["quantity"] = "0"
	r2 := order("2", "C2", "2024-03-01", 10, "shipped")
	r2["quantity"] = 0.5
	r3 := order("3", "C3", "2024-03-01", 10, "shipped")
	r3["quantity"] = "lots"

	report := v.Validate(context.Background(), "run-8", Batch{Columns: cols, Records: []Record{r1, r2, r3}})

	assert.Equal(t, []string{"quantity has 2 < 1"}, report.Errors)
}

func TestValidate_EmptyBatch(t *testing.T) {
	v := newTestValidator(t, orderRules())

	report := v.Validate(context.Background(), "run-9", Batch{Columns: orderColumns})

	assert.True(t, report.Passed)
	assert.Empty(t, report.Errors)
}

func TestValidate_FormattedAmountsAreNonNumeric(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", "$1,000", "shipped"),
		order("2", "C1", "2024-03-02", "(12.50)", "shipped"),
		order("3", "C2", "2024-03-03", "=5", "shipped"),
		order("4", "C2", "2024-03-04", "€3", "shipped"),
		order("5", "C3", "2024-03-05", "'7'", "shipped"),
		order("6", "C3", "2024-03-06", " 8.25 ", "shipped"),
	}}

	report := v.Validate(context.Background(), "run-10", batch)

	assert.False(t, report.Passed)
	assert.Equal(t, []string{"amount has 5 non-numeric value(s)"}, report.Errors)

	orders, stats := PrepareOrders(NormalizeBatch(batch, testFields))
	assert.Equal(t, 5, stats.MissingKey)
	assert.Zero(t, stats.Negative)
	require.Len(t, orders, 1)
	assert.Equal(t, "6", orders[0].ID)
	assert.Equal(t, 8.25, orders[0].Amount)
}

func TestValidate_CancelledContextFails(t *testing.T) {
	v := newTestValidator(t, orderRules())
	batch := Batch{Columns: orderColumns, Records: []Record{
		order("1", "C1", "2024-03-01", "10.00", "shipped"),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	report := v.Validate(ctx, "run-11", batch)

	assert.False(t, report.Passed)
	assert.Equal(t, []string{"validation interrupted: context canceled"}, report.Errors)
}

func TestNewValidator_RejectsBadRules(t *testing.T) {
	rules := orderRules()
	rules.Ranges["amount"] = Range{Min: ptr(10), Max: ptr(1)}

	_, err := NewValidator(rules, testFields)

	var cfgErr *ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Contains(t, cfgErr.Error(), "ranges.amount")
}
