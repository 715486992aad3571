package core

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// DatasetInfo describes a registered dataset.
type DatasetInfo struct {
	Key         string // Rule set key and CLI name, e.g. "orders"
	Label       string
	Description string
}

// DatasetDefinition is everything the pipeline needs to know about one
// input shape: which columns carry the order attributes.
type DatasetDefinition struct {
	Info   DatasetInfo
	Fields FieldMap
}

var (
	datasets   = make(map[string]DatasetDefinition)
	datasetsMu sync.RWMutex
)

// Register adds a dataset definition to the registry.
// Panics if the key is empty, already registered, or the field map lacks a
// required column.
func Register(def DatasetDefinition) {
	datasetsMu.Lock()
	defer datasetsMu.Unlock()

	key := strings.TrimSpace(def.Info.Key)
	if key == "" {
		panic("dataset key is required")
	}
	if _, exists := datasets[key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", key))
	}
	f := def.Fields
	if f.ID == "" || f.Owner == "" || f.Timestamp == "" || f.Amount == "" {
		panic(fmt.Sprintf("dataset %s: field map needs id, owner, timestamp and amount", key))
	}
	if def.Info.Label == "" {
		def.Info.Label = key
	}

	def.Info.Key = key
	datasets[key] = def
}

// Get returns a dataset definition by key.
// Returns false if not found.
func Get(key string) (DatasetDefinition, bool) {
	datasetsMu.RLock()
	defer datasetsMu.RUnlock()

	def, ok := datasets[key]
	return def, ok
}

// MustGet returns the dataset for key or a ConfigurationError naming the
// registered keys.
func MustGet(key string) (DatasetDefinition, error) {
	if def, ok := Get(key); ok {
		return def, nil
	}
	return DatasetDefinition{}, newConfigError("unknown dataset %q (registered: %s)",
		key, strings.Join(Keys(), ", "))
}

// All returns all registered dataset definitions sorted by key.
func All() []DatasetDefinition {
	datasetsMu.RLock()
	defer datasetsMu.RUnlock()

	result := make([]DatasetDefinition, 0, len(datasets))
	for _, def := range datasets {
		result = append(result, def)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Info.Key < result[j].Info.Key
	})

	return result
}

// Keys returns the registered dataset keys, sorted.
func Keys() []string {
	all := All()
	keys := make([]string, len(all))
	for i, def := range all {
		keys[i] = def.Info.Key
	}
	return keys
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	datasetsMu.Lock()
	defer datasetsMu.Unlock()
	datasets = make(map[string]DatasetDefinition)
}
