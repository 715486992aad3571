package core

import (
	"errors"
	"testing"
	"time"
)

func rowsAt(version string, hours ...int) []FeatureRow {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rows := make([]FeatureRow, len(hours))
	for i, h := range hours {
		rows[i] = FeatureRow{
			EntityID:     string(rune('a' + i)),
			SnapshotTime: base.Add(time.Duration(h) * time.Hour),
			Version:      version,
		}
	}
	return rows
}

func TestAssignSplits_TemporalOrder(t *testing.T) {
	// Input shuffled: entity a is t3, b is t1, c is t5, d is t2, e is t4.
	rows := rowsAt("v1", 3, 1, 5, 2, 4)
	cfg := SplitConfig{TrainRatio: 0.6, ValRatio: 0.2}

	got := AssignSplits(rows, cfg)

	want := []struct {
		entity string
		split  SplitLabel
	}{
		{"b", SplitTrain},
		{"d", SplitTrain},
		{"a", SplitTrain},
		{"e", SplitVal},
		{"c", SplitTest},
	}
	if len(got) != len(want) {
		t.Fatalf("AssignSplits() returned %d rows, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].EntityID != w.entity || got[i].Split != w.split {
			t.Errorf("rank %d = (%s, %s), want (%s, %s)", i, got[i].EntityID, got[i].Split, w.entity, w.split)
		}
		if got[i].Version != "v1" {
			t.Errorf("rank %d version = %q, want v1", i, got[i].Version)
		}
	}

	// The input slice is not reordered.
	if rows[0].EntityID != "a" {
		t.Error("AssignSplits reordered its input")
	}
}

func TestAssignSplits_NoLeakage(t *testing.T) {
	rows := rowsAt("v1", 9, 2, 7, 4, 1, 8, 3, 6, 5, 0)
	got := AssignSplits(rows, SplitConfig{TrainRatio: 0.5, ValRatio: 0.3})

	latest := map[SplitLabel]time.Time{}
	earliest := map[SplitLabel]time.Time{}
	for _, a := range got {
		if t0, ok := earliest[a.Split]; !ok || a.SnapshotTime.Before(t0) {
			earliest[a.Split] = a.SnapshotTime
		}
		if a.SnapshotTime.After(latest[a.Split]) {
			latest[a.Split] = a.SnapshotTime
		}
	}
	if !latest[SplitTrain].Before(earliest[SplitVal]) {
		t.Errorf("train ends %v, val starts %v", latest[SplitTrain], earliest[SplitVal])
	}
	if !latest[SplitVal].Before(earliest[SplitTest]) {
		t.Errorf("val ends %v, test starts %v", latest[SplitVal], earliest[SplitTest])
	}
}

func TestAssignSplits_TiesKeepRetrievalOrder(t *testing.T) {
	rows := rowsAt("v1", 1, 1, 1, 1)
	got := AssignSplits(rows, SplitConfig{TrainRatio: 0.5, ValRatio: 0.25})

	order := ""
	for _, a := range got {
		order += a.EntityID
	}
	if order != "abcd" {
		t.Errorf("tie order = %q, want abcd", order)
	}
	if c := CountAssignments(got); c != (SplitCounts{Train: 2, Val: 1, Test: 1}) {
		t.Errorf("counts = %+v", c)
	}
}

func TestAssignSplits_Empty(t *testing.T) {
	if got := AssignSplits(nil, DefaultSplitConfig()); len(got) != 0 {
		t.Errorf("AssignSplits(nil) = %v, want empty", got)
	}
}

func TestSplitConfigBounds(t *testing.T) {
	tests := []struct {
		name      string
		cfg       SplitConfig
		n         int
		wantTrain int
		wantVal   int
	}{
		{"five rows", SplitConfig{0.6, 0.2}, 5, 3, 4},
		{"remainder goes to test", SplitConfig{0.5, 0.1}, 10, 5, 6},
		{"ratios over one empty test", SplitConfig{0.8, 0.5}, 10, 8, 10},
		{"all train", SplitConfig{1, 0}, 4, 4, 4},
		{"zero rows", SplitConfig{0.6, 0.2}, 0, 0, 0},
		{"single row", SplitConfig{0.6, 0.2}, 1, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			train, val := tt.cfg.Bounds(tt.n)
			if train != tt.wantTrain || val != tt.wantVal {
				t.Errorf("Bounds(%d) = (%d, %d), want (%d, %d)", tt.n, train, val, tt.wantTrain, tt.wantVal)
			}
		})
	}
}

func TestSplitConfigValidate(t *testing.T) {
	if err := DefaultSplitConfig().Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}

	err := SplitConfig{TrainRatio: -0.1, ValRatio: 1.5}.Validate()
	var cfgErr *ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("Validate() = %v, want *ConfigurationError", err)
	}
	if len(cfgErr.Problems) != 2 {
		t.Errorf("Problems = %v, want 2", cfgErr.Problems)
	}
}
