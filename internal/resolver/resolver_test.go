package resolver

import (
	"context"
	"fmt"
	"testing"

	executor "github.com/entgraph/entgraph/internal/executor"
	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
	store "github.com/entgraph/entgraph/internal/store"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

const testSDL = `
interface Legged {
  id: ID!
  legs: Int!
  home: Forest
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
  home: Forest
}

type Forest @entity {
  id: ID!
  dwellers: [Animal!]! @derivedFrom(field: "home")
}

type Zoo @entity {
  id: ID!
  name: String!
  animals: [Animal!]!
}

interface Event {
  id: ID!
  transaction: Transaction
}

type BuyEvent implements Event @entity {
  id: ID!
  transaction: Transaction
}

type SellEvent implements Event @entity {
  id: ID!
  transaction: Transaction
}

type GiftEvent implements Event @entity {
  id: ID!
  transaction: Transaction
}

type Transaction @entity {
  id: ID!
  buyEvent: BuyEvent!
  sellEvents: [SellEvent!]!
  giftEvent: [GiftEvent!]! @derivedFrom(field: "transaction")
}
`

func setup(t *testing.T, seed []store.Op) *executor.Executor {
	t.Helper()
	s, err := schema.Load("test", testSDL)
	require.NoError(t, err)
	st := store.New(s)
	require.NoError(t, st.Apply(context.Background(), seed))
	return executor.New(New(st), s)
}

func run(t *testing.T, exec *executor.Executor, query string, vars map[string]any) *executor.Result {
	t.Helper()
	doc, err := language.ParseQuery(query)
	require.NoError(t, err)
	return exec.Execute(context.Background(), doc, "", vars)
}

func requireData(t *testing.T, result *executor.Result, want map[string]any) {
	t.Helper()
	require.Empty(t, result.Errors)
	if diff := cmp.Diff(want, result.Data); diff != "" {
		t.Fatalf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestInterfaceCollection(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "1", Data: map[string]any{"name": "cow", "legs": 3}},
	})

	result := run(t, exec, `{ leggeds(first: 100) { legs } }`, nil)
	requireData(t, result, map[string]any{
		"leggeds": []any{map[string]any{"legs": 3}},
	})
}

func TestInterfaceCollectionGlobalOrdering(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "bird", "legs": 2}},
		{Type: "Furniture", ID: "f1", Data: map[string]any{"legs": 3}},
		{Type: "Furniture", ID: "f2", Data: map[string]any{"legs": 4}},
	})

	// Implementors interleave by the order key instead of concatenating.
	result := run(t, exec, `{ leggeds(orderBy: legs) { __typename legs } }`, nil)
	requireData(t, result, map[string]any{
		"leggeds": []any{
			map[string]any{"__typename": "Animal", "legs": 2},
			map[string]any{"__typename": "Furniture", "legs": 3},
			map[string]any{"__typename": "Animal", "legs": 4},
			map[string]any{"__typename": "Furniture", "legs": 4},
		},
	})
}

func TestInterfaceCollectionWindowSpansTypes(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "BuyEvent", ID: "b1"},
		{Type: "BuyEvent", ID: "b3"},
		{Type: "SellEvent", ID: "b2"},
		{Type: "SellEvent", ID: "b4"},
	})

	result := run(t, exec, `{ events(orderBy: id, first: 2, skip: 1) { __typename id } }`, nil)
	requireData(t, result, map[string]any{
		"events": []any{
			map[string]any{"__typename": "SellEvent", "id": "b2"},
			map[string]any{"__typename": "BuyEvent", "id": "b3"},
		},
	})
}

func TestFragmentsOnInterface(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Furniture", ID: "f1", Data: map[string]any{"legs": 3}},
	})

	result := run(t, exec, `{
		leggeds(orderBy: id) {
			legs
			... on Animal { name }
		}
	}`, nil)
	requireData(t, result, map[string]any{
		"leggeds": []any{
			map[string]any{"legs": 4, "name": "cow"},
			map[string]any{"legs": 3},
		},
	})
}

func TestForwardSingleRelation(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Forest", ID: "f1"},
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4, "home": "f1"}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "bird", "legs": 2}},
	})

	result := run(t, exec, `{
		animals(orderBy: id) {
			name
			home { id }
		}
	}`, nil)
	requireData(t, result, map[string]any{
		"animals": []any{
			map[string]any{"name": "cow", "home": map[string]any{"id": "f1"}},
			map[string]any{"name": "bird", "home": nil},
		},
	})
}

func TestForwardListRelationKeepsStoredOrder(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "bird", "legs": 2}},
		{Type: "Zoo", ID: "z1", Data: map[string]any{"name": "central", "animals": []any{"a2", "a1", "missing"}}},
	})

	result := run(t, exec, `{ zoo(id: "z1") { animals { name } } }`, nil)
	requireData(t, result, map[string]any{
		"zoo": map[string]any{
			"animals": []any{
				map[string]any{"name": "bird"},
				map[string]any{"name": "cow"},
			},
		},
	})

	// An explicit orderBy overrides the stored order.
	result = run(t, exec, `{ zoo(id: "z1") { animals(orderBy: name, orderDirection: desc) { name } } }`, nil)
	requireData(t, result, map[string]any{
		"zoo": map[string]any{
			"animals": []any{
				map[string]any{"name": "cow"},
				map[string]any{"name": "bird"},
			},
		},
	})
}

func TestDerivedRelationPerParentWindow(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Forest", ID: "f1"},
		{Type: "Forest", ID: "f2"},
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4, "home": "f1"}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "ant", "legs": 6, "home": "f1"}},
		{Type: "Animal", ID: "a3", Data: map[string]any{"name": "bird", "legs": 2, "home": "f2"}},
	})

	result := run(t, exec, `{
		forests(orderBy: id) {
			id
			dwellers(orderBy: name, first: 1) { name }
		}
	}`, nil)
	requireData(t, result, map[string]any{
		"forests": []any{
			map[string]any{"id": "f1", "dwellers": []any{map[string]any{"name": "ant"}}},
			map[string]any{"id": "f2", "dwellers": []any{map[string]any{"name": "bird"}}},
		},
	})
}

func TestWhereFilter(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "bird", "legs": 2}},
		{Type: "Animal", ID: "a3", Data: map[string]any{"name": "dog", "legs": 4}},
	})

	result := run(t, exec, `{ animals(where: {legs: 4}, orderBy: id) { name } }`, nil)
	requireData(t, result, map[string]any{
		"animals": []any{
			map[string]any{"name": "cow"},
			map[string]any{"name": "dog"},
		},
	})

	result = run(t, exec, `{ animals(where: {name_in: ["bird", "dog"]}, orderBy: name) { name } }`, nil)
	requireData(t, result, map[string]any{
		"animals": []any{
			map[string]any{"name": "bird"},
			map[string]any{"name": "dog"},
		},
	})

	result = run(t, exec, `{ animals(where: {feathers: true}) { name } }`, nil)
	require.Nil(t, result.Data)
	require.Len(t, result.Errors, 1)
	require.Equal(t, executor.KindValidation, result.Errors[0].Kind)
}

func TestNestedInterfaceFanOut(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Forest", ID: "f1"},
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4, "home": "f1"}},
		{Type: "Furniture", ID: "c1", Data: map[string]any{"legs": 3}},
	})

	result := run(t, exec, `{
		leggeds(orderBy: id) {
			... on Animal {
				home {
					dwellers { name }
				}
			}
		}
	}`, nil)
	requireData(t, result, map[string]any{
		"leggeds": []any{
			map[string]any{"home": map[string]any{"dwellers": []any{map[string]any{"name": "cow"}}}},
			map[string]any{},
		},
	})
}

func TestFragmentWidenedRelationAcrossImplementors(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Forest", ID: "fo1"},
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4, "home": "fo1"}},
		{Type: "Furniture", ID: "c1", Data: map[string]any{"legs": 3, "home": "fo1"}},
	})

	query := `{
		leggeds(orderBy: id, orderDirection: %s) {
			__typename
			home { id }
			... on Animal { home { dwellers { name } } }
		}
	}`
	animal := map[string]any{
		"__typename": "Animal",
		"home": map[string]any{
			"id":       "fo1",
			"dwellers": []any{map[string]any{"name": "cow"}},
		},
	}
	furniture := map[string]any{
		"__typename": "Furniture",
		"home":       map[string]any{"id": "fo1"},
	}

	// The fragment widens home for Animal only. Whichever implementor
	// resolves first, Animal keeps dwellers and Furniture never gains it.
	result := run(t, exec, fmt.Sprintf(query, "asc"), nil)
	requireData(t, result, map[string]any{"leggeds": []any{animal, furniture}})

	result = run(t, exec, fmt.Sprintf(query, "desc"), nil)
	requireData(t, result, map[string]any{"leggeds": []any{furniture, animal}})
}

func TestEventsResolveSharedTransaction(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Transaction", ID: "t1", Data: map[string]any{"buyEvent": "e1", "sellEvents": []any{"e2", "e3"}}},
		{Type: "BuyEvent", ID: "e1", Data: map[string]any{"transaction": "t1"}},
		{Type: "SellEvent", ID: "e2", Data: map[string]any{"transaction": "t1"}},
		{Type: "SellEvent", ID: "e3", Data: map[string]any{"transaction": "t1"}},
		{Type: "GiftEvent", ID: "e4", Data: map[string]any{"transaction": "t1"}},
	})

	result := run(t, exec, `{ events(orderBy: id) { id transaction { id } } }`, nil)
	tx := map[string]any{"id": "t1"}
	requireData(t, result, map[string]any{
		"events": []any{
			map[string]any{"id": "e1", "transaction": tx},
			map[string]any{"id": "e2", "transaction": tx},
			map[string]any{"id": "e3", "transaction": tx},
			map[string]any{"id": "e4", "transaction": tx},
		},
	})

	// The transaction side reaches the same events forward and derived.
	result = run(t, exec, `{
		transaction(id: "t1") {
			buyEvent { id }
			sellEvents { id }
			giftEvent { id }
		}
	}`, nil)
	requireData(t, result, map[string]any{
		"transaction": map[string]any{
			"buyEvent":   map[string]any{"id": "e1"},
			"sellEvents": []any{map[string]any{"id": "e2"}, map[string]any{"id": "e3"}},
			"giftEvent":  []any{map[string]any{"id": "e4"}},
		},
	})
}

func TestEmptyInterfaceCollection(t *testing.T) {
	exec := setup(t, nil)

	result := run(t, exec, `{ events { id } }`, nil)
	requireData(t, result, map[string]any{"events": []any{}})
}

func TestUnknownFieldAbortsPrefetch(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
		{Type: "Animal", ID: "a2", Data: map[string]any{"name": "dog", "legs": 4}},
	})

	result := run(t, exec, `{ leggeds { paws } }`, nil)
	require.Nil(t, result.Data)
	require.Len(t, result.Errors, 1)
	require.Equal(t, executor.KindUnknownField, result.Errors[0].Kind)
	require.Equal(t, "Type `Legged` has no field `paws`", result.Errors[0].Message)
}

func TestConflictingArgumentsAbortPrefetch(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
	})

	result := run(t, exec, `{
		a: animal(id: "a1") { id }
		a: animal(id: "a2") { id }
	}`, nil)
	require.Nil(t, result.Data)
	require.Len(t, result.Errors, 1)
	require.Equal(t, executor.KindConflictingArguments, result.Errors[0].Kind)
}

func TestGetByIDThroughInterface(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Furniture", ID: "x1", Data: map[string]any{"legs": 3}},
	})

	result := run(t, exec, `{ legged(id: "x1") { __typename legs } }`, nil)
	requireData(t, result, map[string]any{
		"legged": map[string]any{"__typename": "Furniture", "legs": 3},
	})

	result = run(t, exec, `{ legged(id: "nope") { legs } }`, nil)
	requireData(t, result, map[string]any{"legged": nil})
}

func TestVariablesAndAliases(t *testing.T) {
	exec := setup(t, []store.Op{
		{Type: "Animal", ID: "a1", Data: map[string]any{"name": "cow", "legs": 4}},
	})

	result := run(t, exec, `query($id: ID!) {
		beast: animal(id: $id) {
			nick: name
		}
	}`, map[string]any{"id": "a1"})
	requireData(t, result, map[string]any{
		"beast": map[string]any{"nick": "cow"},
	})
}
