package core

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalize_SortedKeysAndNulls(t *testing.T) {
	rec := Record{
		"status":   "Paid",
		"amount":   math.NaN(),
		"order_id": "A-1",
		"qty":      int64(3),
	}

	got, err := Canonicalize(rec, []string{"order_id", "customer_id", "amount", "status", "qty"})
	require.NoError(t, err)

	assert.Equal(t, `{"amount":null,"customer_id":null,"order_id":"A-1","qty":3,"status":"Paid"}`, got.Payload)
	assert.Len(t, got.Hash, 64)
	assert.Equal(t, HashBytes([]byte(got.Payload)), got.Hash)
}

func TestCanonicalize_FieldOrderIndependent(t *testing.T) {
	cols := []string{"a", "b", "c", "d"}
	base := Record{"a": "x", "b": 1.5, "c": nil, "d": true}

	want, err := Canonicalize(base, cols)
	require.NoError(t, err)

	// Every permutation of the header yields the same hash, and so does
	// building the record in a different insertion order.
	perms := [][]string{
		{"d", "c", "b", "a"},
		{"b", "a", "d", "c"},
		{"c", "d", "a", "b"},
	}
	for _, p := range perms {
		rec := Record{}
		for _, k := range p {
			rec[k] = base[k]
		}
		got, err := Canonicalize(rec, p)
		require.NoError(t, err)
		assert.Equal(t, want.Hash, got.Hash, "permutation %v", p)
	}
}

func TestCanonicalize_AbsentEqualsNil(t *testing.T) {
	cols := []string{"id", "note"}
	a, err := Canonicalize(Record{"id": "1"}, cols)
	require.NoError(t, err)
	b, err := Canonicalize(Record{"id": "1", "note": nil}, cols)
	require.NoError(t, err)
	c, err := Canonicalize(Record{"id": "1", "note": math.NaN()}, cols)
	require.NoError(t, err)

	assert.Equal(t, a.Hash, b.Hash)
	assert.Equal(t, a.Hash, c.Hash)
}

func TestCanonicalize_NaNNeverFails(t *testing.T) {
	rec := Record{
		"f64": math.NaN(),
		"f32": float32(math.NaN()),
		"neg": -0.5,
	}
	_, err := Canonicalize(rec, []string{"f64", "f32", "neg"})
	assert.NoError(t, err)
}

func TestCanonicalize_NonPrimitiveStringified(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	rec := Record{
		"ts":   ts,
		"tags": []string{"a", "b"},
		"html": "<b>&</b>",
	}

	got, err := Canonicalize(rec, nil)
	require.NoError(t, err)
	assert.Equal(t, `{"html":"<b>&</b>","tags":"[a b]","ts":"2024-03-01T14:30:00Z"}`, got.Payload)
}

func TestCanonicalize_InfinityIsSerializationError(t *testing.T) {
	_, err := Canonicalize(Record{"amount": math.Inf(1)}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSerialization))
}
