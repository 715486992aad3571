package core

import (
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewRunID returns a time-ordered UUIDv7 run identifier.
func NewRunID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate run id: %w", err)
	}
	return id.String(), nil
}

// VersionMinter issues feature version tokens. Tokens minted by one minter
// are strictly increasing even within the same millisecond.
type VersionMinter struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// NewVersionMinter creates a minter seeded from crypto/rand.
func NewVersionMinter() *VersionMinter {
	return &VersionMinter{
		entropy: ulid.Monotonic(rand.Reader, 0),
		now:     time.Now,
	}
}

// Mint returns a new version token of the form "v<ULID>".
func (m *VersionMinter) Mint() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(m.now()), m.entropy)
	if err != nil {
		return "", fmt.Errorf("mint feature version: %w", err)
	}
	return "v" + id.String(), nil
}
