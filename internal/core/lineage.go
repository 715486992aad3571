package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Registry binds feature versions to their provenance. Entries are
// immutable: the first registration of a version wins.
type Registry struct {
	store Store
	now   func() time.Time
}

// NewRegistry creates a lineage registry backed by store.
func NewRegistry(store Store) *Registry {
	return &Registry{store: store, now: time.Now}
}

// Register inserts entry keyed by its version. If the version is already
// registered the call changes nothing and reports created=false.
func (r *Registry) Register(ctx context.Context, entry LineageEntry) (bool, error) {
	if strings.TrimSpace(entry.FeatureVersion) == "" {
		return false, newConfigError("lineage entry needs a feature version")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.now().UTC()
	}

	created, err := r.store.InsertLineage(ctx, entry)
	if err != nil {
		return false, storageErr("register lineage", err)
	}
	return created, nil
}

// Lookup returns the entry for version, or ErrNotFound.
func (r *Registry) Lookup(ctx context.Context, version string) (*LineageEntry, error) {
	entry, err := r.store.GetLineage(ctx, version)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("feature version %s: %w", version, ErrNotFound)
		}
		return nil, storageErr("lookup lineage", err)
	}
	return entry, nil
}

// Exists reports whether version is already registered.
func (r *Registry) Exists(ctx context.Context, version string) (bool, error) {
	_, err := r.store.GetLineage(ctx, version)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, storageErr("lookup lineage", err)
	}
}
