// Package dataset loads seed entities from YAML files and applies them to
// a store.
package dataset

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	store "github.com/entgraph/entgraph/internal/store"
)

// File is the on-disk shape of one dataset: an ordered list of entity
// writes.
type File struct {
	Entities []Entry `yaml:"entities"`
}

// Entry is one write. Remove entries drop the entity instead of setting it,
// so later dataset files can retract earlier seeds.
type Entry struct {
	Type   string         `yaml:"type"`
	ID     string         `yaml:"id"`
	Data   map[string]any `yaml:"data"`
	Remove bool           `yaml:"remove"`
}

// Load parses the dataset at path into store operations.
func Load(path string) ([]store.Op, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	ops := make([]store.Op, 0, len(f.Entities))
	for i, e := range f.Entities {
		if e.Type == "" || e.ID == "" {
			return nil, fmt.Errorf("%s: entity %d is missing type or id", path, i)
		}
		ops = append(ops, store.Op{Type: e.Type, ID: e.ID, Data: e.Data, Remove: e.Remove})
	}
	return ops, nil
}

// Apply loads every file and applies the combined operations in order.
func Apply(ctx context.Context, st *store.Store, paths []string) error {
	for _, path := range paths {
		ops, err := Load(path)
		if err != nil {
			return err
		}
		if err := st.Apply(ctx, ops); err != nil {
			return fmt.Errorf("apply %s: %w", path, err)
		}
	}
	return nil
}
