package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	schema "github.com/entgraph/entgraph/internal/schema"
	store "github.com/entgraph/entgraph/internal/store"
)

const testSDL = `
type Animal @entity {
  id: ID!
  name: String!
  legs: Int!
}
`

func writeDataset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeDataset(t, `
entities:
  - type: Animal
    id: a1
    data:
      name: cow
      legs: 4
  - type: Animal
    id: a2
    remove: true
`)
	ops, err := Load(path)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	require.Equal(t, store.Op{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}}, ops[0])
	require.Equal(t, store.Op{Type: "Animal", ID: "a2", Remove: true}, ops[1])
}

func TestLoadMissingID(t *testing.T) {
	path := writeDataset(t, "entities:\n  - type: Animal\n")
	_, err := Load(path)
	require.ErrorContains(t, err, "missing type or id")
}

func TestApply(t *testing.T) {
	sch, err := schema.Load("test", testSDL)
	require.NoError(t, err)
	st := store.New(sch)

	path := writeDataset(t, `
entities:
  - type: Animal
    id: a1
    data: {name: cow, legs: 4}
`)
	require.NoError(t, Apply(context.Background(), st, []string{path}))

	e, ok := st.Get(context.Background(), "Animal", "a1")
	require.True(t, ok)
	require.Equal(t, "cow", e["name"])
}
