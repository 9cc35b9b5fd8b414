package core

import (
	"fmt"
	"slices"
	"sync"
)

var (
	registry   = make(map[string]registered)
	registryMu sync.RWMutex
	nextOrder  int
)

type registered struct {
	def   DatasetDefinition
	order int
}

// Register adds a dataset definition to the registry.
// Panics if a dataset with the same key is already registered.
func Register(def DatasetDefinition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Key]; exists {
		panic(fmt.Sprintf("dataset already registered: %s", def.Key))
	}

	// Every form field is searchable unless search fields are given.
	if len(def.SearchFields) == 0 {
		for _, f := range def.FormFields {
			def.SearchFields = append(def.SearchFields, f.Name)
		}
	}

	registry[def.Key] = registered{def: def, order: nextOrder}
	nextOrder++
}

// Get returns a dataset definition by key.
// Returns false if not found.
func Get(key string) (DatasetDefinition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	r, ok := registry[key]
	return r.def, ok
}

// All returns all registered datasets in registration order.
func All() []DatasetDefinition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	entries := make([]registered, 0, len(registry))
	for _, r := range registry {
		entries = append(entries, r)
	}
	slices.SortFunc(entries, func(a, b registered) int { return a.order - b.order })

	result := make([]DatasetDefinition, len(entries))
	for i, r := range entries {
		result[i] = r.def
	}
	return result
}

// Keys returns the registered dataset keys in registration order.
func Keys() []string {
	defs := All()
	keys := make([]string, len(defs))
	for i, d := range defs {
		keys[i] = d.Key
	}
	return keys
}

// Count returns the number of registered datasets.
func Count() int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return len(registry)
}

// Clear removes all registered datasets.
// Primarily useful for testing.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[string]registered)
	nextOrder = 0
}
