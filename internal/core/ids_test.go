package core

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

func TestNewRunID(t *testing.T) {
	id, err := NewRunID()
	if err != nil {
		t.Fatalf("NewRunID() error = %v", err)
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("run id %q is not a uuid: %v", id, err)
	}
	if parsed.Version() != 7 {
		t.Errorf("run id version = %d, want 7", parsed.Version())
	}
	if !runIDPattern.MatchString(id) {
		t.Errorf("run id %q is not usable as a report name", id)
	}
}

func TestVersionMinter_UniqueWithinSameInstant(t *testing.T) {
	m := NewVersionMinter()
	frozen := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return frozen }

	prev := ""
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		v, err := m.Mint()
		if err != nil {
			t.Fatalf("Mint() error = %v", err)
		}
		if !strings.HasPrefix(v, "v") {
			t.Fatalf("version %q lacks v prefix", v)
		}
		if seen[v] {
			t.Fatalf("version %q minted twice", v)
		}
		if v <= prev {
			t.Fatalf("version %q not greater than %q", v, prev)
		}
		seen[v] = true
		prev = v

		id, err := ulid.ParseStrict(strings.TrimPrefix(v, "v"))
		if err != nil {
			t.Fatalf("version %q does not carry a ulid: %v", v, err)
		}
		if !ulid.Time(id.Time()).Equal(frozen) {
			t.Errorf("version time = %v, want %v", ulid.Time(id.Time()), frozen)
		}
	}
}
