package executor

import (
	"testing"

	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// mustParseQuery parses a GraphQL query and fails the test on error.
func mustParseQuery(t *testing.T, q string) *language.QueryDocument {
	t.Helper()
	d, err := language.ParseQuery(q)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return d
}

// mustLoadSchema builds a schema from entity SDL, generated API included.
func mustLoadSchema(t *testing.T, sdl string) *schema.Schema {
	t.Helper()
	s, err := schema.Load("test", sdl)
	if err != nil {
		t.Fatalf("schema load error: %v", err)
	}
	return s
}

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
