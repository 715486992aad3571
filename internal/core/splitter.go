package core

import (
	"context"
	"fmt"
	"math"
	"sort"
)

// SplitConfig holds the partition ratios. They need not sum to 1; any
// remainder goes to test.
type SplitConfig struct {
	TrainRatio float64 `yaml:"train_ratio" mapstructure:"train_ratio"`
	ValRatio   float64 `yaml:"val_ratio" mapstructure:"val_ratio"`
}

// DefaultSplitConfig returns 70/15/15.
func DefaultSplitConfig() SplitConfig {
	return SplitConfig{TrainRatio: 0.7, ValRatio: 0.15}
}

// Validate checks that both ratios lie in [0, 1].
func (c SplitConfig) Validate() error {
	var problems []string
	for _, r := range []struct {
		name string
		val  float64
	}{{"train_ratio", c.TrainRatio}, {"val_ratio", c.ValRatio}} {
		if math.IsNaN(r.val) || r.val < 0 || r.val > 1 {
			problems = append(problems, fmt.Sprintf("%s must be within [0, 1], got %v", r.name, r.val))
		}
	}
	if len(problems) > 0 {
		return &ConfigurationError{Problems: problems}
	}
	return nil
}

// Bounds returns the exclusive rank bounds of train and val for n rows.
func (c SplitConfig) Bounds(n int) (trainEnd, valEnd int) {
	trainEnd = min(int(math.Floor(float64(n)*c.TrainRatio)), n)
	valEnd = min(int(math.Floor(float64(n)*(c.TrainRatio+c.ValRatio))), n)
	return trainEnd, valEnd
}

// AssignSplits orders rows by snapshot time and labels each by rank:
// [0, trainEnd) train, [trainEnd, valEnd) val, [valEnd, n) test.
// Rows with equal times keep their input order.
func AssignSplits(rows []FeatureRow, cfg SplitConfig) []SplitAssignment {
	n := len(rows)
	if n == 0 {
		return nil
	}

	sorted := make([]FeatureRow, n)
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].SnapshotTime.Before(sorted[j].SnapshotTime)
	})

	trainEnd, valEnd := cfg.Bounds(n)
	out := make([]SplitAssignment, n)
	for i, row := range sorted {
		label := SplitTest
		switch {
		case i < trainEnd:
			label = SplitTrain
		case i < valEnd:
			label = SplitVal
		}
		out[i] = SplitAssignment{
			EntityID:     row.EntityID,
			SnapshotTime: row.SnapshotTime,
			Version:      row.Version,
			Split:        label,
		}
	}
	return out
}

// CountAssignments tallies assignments per label.
func CountAssignments(splits []SplitAssignment) SplitCounts {
	var c SplitCounts
	for _, s := range splits {
		c.add(s.Split, 1)
	}
	return c
}

// Splitter reads feature rows and writes their split assignments. It never
// modifies feature rows.
type Splitter struct {
	store Store
	cfg   SplitConfig
}

// NewSplitter validates cfg and returns a splitter.
func NewSplitter(store Store, cfg SplitConfig) (*Splitter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Splitter{store: store, cfg: cfg}, nil
}

// Split assigns every row of version and writes the assignments in one
// transaction. Existing assignments are left untouched. A version with no
// rows is a successful no-op.
func (s *Splitter) Split(ctx context.Context, version string) (SplitCounts, error) {
	rows, err := s.store.ListFeatureRows(ctx, version)
	if err != nil {
		return SplitCounts{}, storageErr("list feature rows", err)
	}
	if len(rows) == 0 {
		return SplitCounts{}, nil
	}

	splits := AssignSplits(rows, s.cfg)
	if _, err := s.store.InsertSplits(ctx, splits); err != nil {
		return SplitCounts{}, storageErr("insert splits", err)
	}
	return CountAssignments(splits), nil
}
