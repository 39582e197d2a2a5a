package importer

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownImportType is returned for import types with no registered validator.
var ErrUnknownImportType = errors.New("unsupported import type")

// Definition describes one import domain.
type Definition struct {
	Type     string
	Label    string
	Columns  []string // headers the validator reads, required ones first
	Required []string
	Validate Validator
}

var (
	registry   = make(map[string]Definition)
	registryMu sync.RWMutex
)

// Register adds an import definition. It panics on a duplicate type,
// since registration happens from init functions.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Type]; exists {
		panic(fmt.Sprintf("import type already registered: %s", def.Type))
	}
	if def.Validate == nil {
		panic(fmt.Sprintf("import type %s has no validator", def.Type))
	}
	registry[def.Type] = def
}

// Lookup returns the definition for an import type.
func Lookup(importType string) (Definition, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[importType]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownImportType, importType)
	}
	return def, nil
}

// Definitions returns every registered definition sorted by type.
func Definitions() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	defs := make([]Definition, 0, len(registry))
	for _, def := range registry {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Type < defs[j].Type })
	return defs
}
