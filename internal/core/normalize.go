package core

// normalize.go interprets raw record values for validation and staging.
//
// Both consumers go through NormalizeRecord so a raw value is never read two
// different ways:
//   - Timestamps accept RFC 3339 and common date/time layouts; values without
//     an offset are taken as UTC.
//   - Amounts accept currency symbols, thousands separators and accounting
//     negatives "(12.50)".
//   - Labels are lowercased with '-', '_' and whitespace removed.
//
// Null means absent, nil, NaN, or a blank string.

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"1/2/2006 15:04:05",
	"1/2/2006 15:04",
	"1/2/2006",
	"01/02/2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	"20060102",
}

// NormalizedRecord is the typed view of one record. A nil field is null or
// could not be parsed.
type NormalizedRecord struct {
	ID        *string
	Owner     *string
	Timestamp *time.Time
	Amount    *float64
	Status    *string
}

// NormalizeRecord extracts the mapped fields of rec.
func NormalizeRecord(rec Record, fields FieldMap) NormalizedRecord {
	var n NormalizedRecord
	if s, ok := StringValue(rec[fields.ID]); ok {
		n.ID = &s
	}
	if s, ok := StringValue(rec[fields.Owner]); ok {
		n.Owner = &s
	}
	if ts, ok := ParseTimestamp(rec[fields.Timestamp]); ok {
		n.Timestamp = &ts
	}
	if amt, ok := ParseAmount(rec[fields.Amount]); ok {
		n.Amount = &amt
	}
	if s, ok := StringValue(rec[fields.Status]); ok {
		label := NormalizeLabel(s)
		n.Status = &label
	}
	return n
}

// NormalizeBatch applies NormalizeRecord to every record, preserving order.
func NormalizeBatch(batch Batch, fields FieldMap) []NormalizedRecord {
	out := make([]NormalizedRecord, len(batch.Records))
	for i, rec := range batch.Records {
		out[i] = NormalizeRecord(rec, fields)
	}
	return out
}

// IsNull reports whether v counts as a missing value.
func IsNull(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case float64:
		return math.IsNaN(x)
	case float32:
		return math.IsNaN(float64(x))
	case string:
		return strings.TrimSpace(x) == ""
	case *string:
		return x == nil
	case *time.Time:
		return x == nil
	case *float64:
		return x == nil
	}
	return false
}

// StringValue renders a scalar as the string used for keys and labels.
// Integral floats drop their fraction so 1001.0 and 1001 agree.
func StringValue(v any) (string, bool) {
	if IsNull(v) {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return CleanCell(x), true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case int32:
		return strconv.FormatInt(int64(x), 10), true
	case bool:
		return strconv.FormatBool(x), true
	case time.Time:
		return x.UTC().Format(time.RFC3339Nano), true
	}
	c, err := canonicalValue(v)
	if err != nil || c == nil {
		return "", false
	}
	return fmt.Sprint(c), true
}

// ParseTimestamp coerces v to a UTC instant.
func ParseTimestamp(v any) (time.Time, bool) {
	if IsNull(v) {
		return time.Time{}, false
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), true
	case *time.Time:
		return x.UTC(), true
	case string:
		return parseTimestampString(CleanCell(x))
	case int, int32, int64:
		// Compact dates such as 20240301 arrive as integers.
		s, _ := StringValue(x)
		return parseTimestampString(s)
	}
	return time.Time{}, false
}

func parseTimestampString(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		// time.Parse yields UTC for layouts without a zone.
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// ParseAmount coerces v to a finite float.
func ParseAmount(v any) (float64, bool) {
	if IsNull(v) {
		return 0, false
	}
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case *float64:
		f = *x
	case string:
		parsed, ok := parseAmountString(x)
		if !ok {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// parseAmountString accepts plain numeric text only. Currency symbols,
// thousands separators, accounting parentheses and spreadsheet wrappers
// make the value non-numeric.
func parseAmountString(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if !numericRegex.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// NormalizeLabel lowercases s and strips separator characters.
func NormalizeLabel(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r == '-' || r == '_' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// CleanCell removes common spreadsheet artifacts from a cell value:
// surrounding whitespace, the Excel formula wrapper (="..."), and
// surrounding quotes.
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
