package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Canonical is the deterministic serialization of one record and its
// content hash.
type Canonical struct {
	Payload string
	Hash    string
}

// Canonicalize serializes rec as JSON with sorted keys. Every name in
// columns is present in the output; absent, nil and NaN values become null.
// Values that are not JSON primitives are stringified. Field order never
// affects the result.
//
// Returns ErrSerialization for values with no representation (±Inf).
func Canonicalize(rec Record, columns []string) (Canonical, error) {
	norm := make(map[string]any, len(rec)+len(columns))
	for _, c := range columns {
		norm[c] = nil
	}
	for k, v := range rec {
		cv, err := canonicalValue(v)
		if err != nil {
			return Canonical{}, fmt.Errorf("%w: field %q: %v", ErrSerialization, k, err)
		}
		norm[k] = cv
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// encoding/json writes map keys in sorted order.
	if err := enc.Encode(norm); err != nil {
		return Canonical{}, fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	payload := bytes.TrimRight(buf.Bytes(), "\n")

	return Canonical{
		Payload: string(payload),
		Hash:    HashBytes(payload),
	}, nil
}

// HashBytes returns the hex SHA-256 digest of b.
func HashBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func canonicalValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case float64:
		return canonicalFloat(x)
	case float32:
		return canonicalFloat(float64(x))
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return x, nil
	case json.Number:
		return x, nil
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), nil
	case *time.Time:
		if x == nil {
			return nil, nil
		}
		return x.UTC().Format(time.RFC3339Nano), nil
	case fmt.Stringer:
		return x.String(), nil
	default:
		return fmt.Sprintf("%v", x), nil
	}
}

func canonicalFloat(f float64) (any, error) {
	if math.IsNaN(f) {
		return nil, nil
	}
	if math.IsInf(f, 0) {
		return nil, fmt.Errorf("infinite value %v", f)
	}
	return f, nil
}
