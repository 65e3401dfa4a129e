package store

import (
	"context"
	"testing"

	schema "github.com/entgraph/entgraph/internal/schema"
	"github.com/stretchr/testify/require"
)

const zooSDL = `
interface Legged {
  id: ID!
  legs: Int!
}

type Animal implements Legged @entity {
  id: ID!
  name: String!
  legs: Int!
  home: Forest
}

type Furniture implements Legged @entity {
  id: ID!
  legs: Int!
}

type Forest @entity {
  id: ID!
  dwellers: [Animal!]! @derivedFrom(field: "home")
}
`

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := schema.Load("test", zooSDL)
	require.NoError(t, err)
	return New(s)
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Set(ctx, "Animal", "a1", map[string]any{"name": "Rex", "legs": 4}))

	e, ok := st.Get(ctx, "Animal", "a1")
	require.True(t, ok)
	require.Equal(t, "a1", e["id"])
	require.Equal(t, "Animal", e["__typename"])
	require.Equal(t, "Rex", e["name"])

	// Returned entities are copies.
	e["name"] = "mutated"
	e2, _ := st.Get(ctx, "Animal", "a1")
	require.Equal(t, "Rex", e2["name"])

	_, ok = st.Get(ctx, "Animal", "missing")
	require.False(t, ok)
}

func TestSetRejectsNonEntityType(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.Error(t, st.Set(ctx, "Legged", "1", nil))
	require.Error(t, st.Set(ctx, "Nope", "1", nil))
}

func TestInterfaceIDCollision(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	require.NoError(t, st.Set(ctx, "Animal", "1", map[string]any{"name": "Rex", "legs": 4}))

	err := st.Set(ctx, "Furniture", "1", map[string]any{"legs": 3})
	require.EqualError(t, err,
		"tried to set entity of type `Furniture` with ID \"1\" but an entity of type `Animal`, which has an interface in common with `Furniture`, exists with the same ID")
	var conflict *ErrConflictingID
	require.ErrorAs(t, err, &conflict)
	require.Equal(t, "Animal", conflict.Existing)

	// Forest shares no interface with Animal; the same id is fine.
	require.NoError(t, st.Set(ctx, "Forest", "1", nil))

	// Overwriting the entity itself is fine too.
	require.NoError(t, st.Set(ctx, "Animal", "1", map[string]any{"name": "Rexa", "legs": 4}))

	// After removal the id is free for interface-sharing types.
	st.Remove(ctx, "Animal", "1")
	require.NoError(t, st.Set(ctx, "Furniture", "1", map[string]any{"legs": 3}))
}

func TestGetMany(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	for _, id := range []string{"a1", "a2", "a3"} {
		require.NoError(t, st.Set(ctx, "Animal", id, map[string]any{"name": id, "legs": 4}))
	}

	got := st.GetMany(ctx, "Animal", []string{"a3", "missing", "a1"})
	require.Len(t, got, 2)
	require.Equal(t, "a3", got[0]["id"])
	require.Equal(t, "a1", got[1]["id"])
}

func TestFindFilterOrderWindow(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	seed := []Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "ant", "legs": 6}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "bird", "legs": 2}},
		{Type: "Animal", ID: "a3", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Animal", ID: "a4", Data: map[string]any{"name": "dog", "legs": 4}},
	}
	require.NoError(t, st.Apply(ctx, seed))

	ids := func(es []Entity) []string {
		out := make([]string, len(es))
		for i, e := range es {
			out[i] = e["id"].(string)
		}
		return out
	}

	got, err := st.Find(ctx, "Animal", Query{OrderBy: "legs"})
	require.NoError(t, err)
	// Equal legs break the tie by id.
	require.Equal(t, []string{"a2", "a3", "a4", "a1"}, ids(got))

	got, err = st.Find(ctx, "Animal", Query{OrderBy: "legs", Descending: true})
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a4", "a3", "a2"}, ids(got))

	got, err = st.Find(ctx, "Animal", Query{
		Where: []Condition{{Field: "legs", Op: OpEq, Value: 4}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a3", "a4"}, ids(got))

	got, err = st.Find(ctx, "Animal", Query{
		Where: []Condition{{Field: "name", Op: OpIn, Value: []any{"ant", "dog", "emu"}}},
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a1", "a4"}, ids(got))

	got, err = st.Find(ctx, "Animal", Query{Skip: 1, First: 2})
	require.NoError(t, err)
	require.Equal(t, []string{"a2", "a3"}, ids(got))

	got, err = st.Find(ctx, "Animal", Query{Skip: 10})
	require.NoError(t, err)
	require.Empty(t, got)

	_, err = st.Find(ctx, "Animal", Query{
		Where: []Condition{{Field: "legs", Op: CondOp("like"), Value: 4}},
	})
	require.Error(t, err)
}
