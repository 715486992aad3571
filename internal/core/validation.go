package core

// validation.go evaluates a RuleSet against a batch.
//
// Validation happens in two phases:
//  1. Structural: every required column is present. Any miss ends validation
//     and the report carries only the missing-column messages.
//  2. Content: every check runs and every violation is accumulated, in this
//     order: non-null, duplicates, timestamp parse, amount parse, ranges,
//     allowed values.
//
// Messages carry counts, never row numbers.

import (
	"context"
	"fmt"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// ValidationReport is the verdict for one run. Passed is true iff Errors
// is empty.
type ValidationReport struct {
	RunID  string   `json:"run_id"`
	Passed bool     `json:"validation_passed"`
	Errors []string `json:"errors"`

	// Missing lists absent required columns when phase 1 failed.
	Missing []string `json:"-"`
}

// Structural reports whether the batch failed the column check.
func (r ValidationReport) Structural() bool {
	return len(r.Missing) > 0
}

func newReport(runID string, errs []string) ValidationReport {
	if errs == nil {
		errs = []string{}
	}
	return ValidationReport{RunID: runID, Passed: len(errs) == 0, Errors: errs}
}

// Validator applies a rule set using a field mapping to locate the
// timestamp, amount and status columns.
type Validator struct {
	rules  RuleSet
	fields FieldMap
}

// NewValidator returns a validator for rules. The rule set is checked first.
func NewValidator(rules RuleSet, fields FieldMap) (*Validator, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Validator{rules: rules, fields: fields}, nil
}

// Validate runs both phases over batch and returns the report.
func (v *Validator) Validate(ctx context.Context, runID string, batch Batch) ValidationReport {
	var missing []string
	for _, c := range v.rules.RequiredColumns {
		if !batch.HasColumn(c) {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		errs := make([]string, len(missing))
		for i, c := range missing {
			errs[i] = "Missing column: " + c
		}
		report := newReport(runID, errs)
		report.Missing = missing
		return report
	}

	norm := NormalizeBatch(batch, v.fields)

	checks := []func() []string{
		func() []string { return v.checkNonNull(batch) },
		func() []string { return v.checkDuplicates(batch) },
		func() []string { return v.checkTimestamps(batch, norm) },
		func() []string { return v.checkAmounts(batch, norm) },
		func() []string { return v.checkRanges(batch, norm) },
		func() []string { return v.checkAllowed(batch, norm) },
	}

	// Each check writes only its own slot; the report order stays fixed.
	results := make([][]string, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	for i, check := range checks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = check()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// An interrupted validation never passes.
		return newReport(runID, []string{"validation interrupted: " + err.Error()})
	}

	var errs []string
	for _, r := range results {
		errs = append(errs, r...)
	}
	return newReport(runID, errs)
}

func (v *Validator) checkNonNull(batch Batch) []string {
	var out []string
	for _, f := range v.rules.NonNull {
		n := 0
		for _, rec := range batch.Records {
			if IsNull(rec[f]) {
				n++
			}
		}
		if n > 0 {
			out = append(out, fmt.Sprintf("%s has %d null(s)", f, n))
		}
	}
	return out
}

// checkDuplicates counts occurrences beyond the first. Nulls compare equal.
func (v *Validator) checkDuplicates(batch Batch) []string {
	var out []string
	for _, f := range v.rules.Unique {
		if !batch.HasColumn(f) {
			continue
		}
		seen := make(map[string]struct{}, batch.Len())
		dups := 0
		for _, rec := range batch.Records {
			key := "\x00null"
			if s, ok := StringValue(rec[f]); ok {
				key = s
			}
			if _, ok := seen[key]; ok {
				dups++
				continue
			}
			seen[key] = struct{}{}
		}
		if dups > 0 {
			out = append(out, fmt.Sprintf("%s has %d duplicate(s)", f, dups))
		}
	}
	return out
}

// checkTimestamps counts values that do not coerce to an instant, nulls
// included.
func (v *Validator) checkTimestamps(batch Batch, norm []NormalizedRecord) []string {
	f := v.fields.Timestamp
	if f == "" || !batch.HasColumn(f) {
		return nil
	}
	n := 0
	for _, r := range norm {
		if r.Timestamp == nil {
			n++
		}
	}
	if n > 0 {
		return []string{fmt.Sprintf("%s has %d invalid timestamp(s)", f, n)}
	}
	return nil
}

func (v *Validator) checkAmounts(batch Batch, norm []NormalizedRecord) []string {
	f := v.fields.Amount
	if f == "" || !batch.HasColumn(f) {
		return nil
	}
	n := 0
	for _, r := range norm {
		if r.Amount == nil {
			n++
		}
	}
	if n > 0 {
		return []string{fmt.Sprintf("%s has %d non-numeric value(s)", f, n)}
	}
	return nil
}

// checkRanges bounds every parsed value of each ranged field. Unparsed
// values are left to checkAmounts.
func (v *Validator) checkRanges(batch Batch, norm []NormalizedRecord) []string {
	var out []string
	for _, f := range sortedKeys(v.rules.Ranges) {
		if !batch.HasColumn(f) {
			continue
		}
		rg := v.rules.Ranges[f]
		low, high := 0, 0
		for i, rec := range batch.Records {
			var val float64
			if f == v.fields.Amount {
				if norm[i].Amount == nil {
					continue
				}
				val = *norm[i].Amount
			} else {
				parsed, ok := ParseAmount(rec[f])
				if !ok {
					continue
				}
				val = parsed
			}
			if rg.Min != nil && val < *rg.Min {
				low++
			}
			if rg.Max != nil && val > *rg.Max {
				high++
			}
		}
		if low > 0 {
			out = append(out, fmt.Sprintf("%s has %d < %s", f, low, formatBound(*rg.Min)))
		}
		if high > 0 {
			out = append(out, fmt.Sprintf("%s has %d > %s", f, high, formatBound(*rg.Max)))
		}
	}
	return out
}

// checkAllowed tests normalized labels against the normalized whitelist.
// A null label is not a member.
func (v *Validator) checkAllowed(batch Batch, norm []NormalizedRecord) []string {
	var out []string
	for _, f := range sortedKeys(v.rules.AllowedValues) {
		if !batch.HasColumn(f) {
			continue
		}
		allowed := v.rules.allowedSet(f)
		n := 0
		for i, rec := range batch.Records {
			var label *string
			if f == v.fields.Status {
				label = norm[i].Status
			} else if s, ok := StringValue(rec[f]); ok {
				l := NormalizeLabel(s)
				label = &l
			}
			if label == nil {
				n++
				continue
			}
			if _, ok := allowed[*label]; !ok {
				n++
			}
		}
		if n > 0 {
			out = append(out, fmt.Sprintf("%s has %d invalid value(s)", f, n))
		}
	}
	return out
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
