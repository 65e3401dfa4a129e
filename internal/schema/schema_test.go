package schema

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	language "github.com/entgraph/entgraph/internal/language"
)

const zooSDL = `
interface Legged { id: ID!, legs: Int }
type Animal implements Legged @entity { id: ID!, name: String, legs: Int }
type Furniture implements Legged @entity { id: ID!, legs: Int }
type Forest @entity { id: ID!, dwellers: [Legged!]! @derivedFrom(field: "home") }
`

func TestLoadBuildsInterfaceIndex(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	impls, ok := s.TypesForInterface("Legged")
	require.True(t, ok)
	require.Equal(t, []string{"Animal", "Furniture"}, impls)

	_, ok = s.TypesForInterface("Winged")
	require.False(t, ok)

	require.Equal(t, []string{"Animal", "Furniture"}, s.Types["Legged"].PossibleTypes)
	require.True(t, s.Types["Animal"].IsEntity)
	require.True(t, s.SharesInterface("Animal", "Furniture"))
	require.False(t, s.SharesInterface("Animal", "Forest"))
}

func TestLoadZeroImplementorInterfaceIsKnown(t *testing.T) {
	s, err := Load("empty", `interface Winged { id: ID! } type Rock @entity { id: ID! }`)
	require.NoError(t, err)

	impls, ok := s.TypesForInterface("Winged")
	require.True(t, ok)
	require.Empty(t, impls)
}

func TestObjectOrInterface(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	obj := Object(s.Types["Animal"])
	require.True(t, obj.IsObject())
	require.Equal(t, "Animal", obj.Name())
	require.NotNil(t, obj.Field("legs"))
	require.Nil(t, obj.Field("wings"))
	require.Len(t, obj.ObjectTypes(s), 1)
	require.True(t, obj.Matches("Animal", s))
	require.False(t, obj.Matches("Furniture", s))

	iface := Interface(s.Types["Legged"])
	require.True(t, iface.IsInterface())
	types := iface.ObjectTypes(s)
	require.Len(t, types, 2)
	require.Equal(t, "Animal", types[0].Name)
	require.True(t, iface.Matches("Furniture", s))
	require.False(t, iface.Matches("Forest", s))
}

func TestMatchesPanicsOnUnregisteredInterface(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	rogue := Interface(&Type{Name: "Ghost", Kind: TypeKindInterface})
	require.Panics(t, func() { rogue.Matches("Animal", s) })
}

func TestDerivedFromField(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	f := s.Types["Forest"].Field("dwellers")
	require.True(t, f.IsDerived())
	require.Equal(t, "home", f.DerivedFrom)
	require.False(t, s.Types["Animal"].Field("legs").IsDerived())
}

func TestGeneratedAPI(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	q := s.GetQueryType()
	require.NotNil(t, q)

	one := q.Field("legged")
	require.NotNil(t, one)
	require.Equal(t, "Legged", one.Type.GetNamedType())
	require.NotNil(t, one.Argument("id"))

	many := q.Field("leggeds")
	require.NotNil(t, many)
	require.True(t, many.Type.IsList())
	require.Equal(t, DefaultFirst, many.Argument("first").DefaultValue)
	require.NotNil(t, many.Argument("orderBy"))
	require.NotNil(t, many.Argument("where"))

	orderBy := s.Types["Legged_orderBy"]
	require.NotNil(t, orderBy)
	names := make([]string, len(orderBy.EnumValues))
	for i, ev := range orderBy.EnumValues {
		names[i] = ev.Name
	}
	require.Equal(t, []string{"id", "legs"}, names)

	filter := s.Types["Animal_filter"]
	require.NotNil(t, filter)
	require.NotNil(t, inputField(filter, "legs"))
	require.NotNil(t, inputField(filter, "legs_in"))

	// List relation fields pick up collection arguments.
	dwellers := s.Types["Forest"].Field("dwellers")
	require.NotNil(t, dwellers.Argument("first"))
	require.NotNil(t, dwellers.Argument("orderBy"))
}

func inputField(t *Type, name string) *InputValue {
	for _, f := range t.InputFields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func TestLoadErrors(t *testing.T) {
	cases := []struct {
		name string
		sdl  string
		want string
	}{
		{"missing id", `type Animal @entity { legs: Int }`, "must declare an id field"},
		{"unknown field type", `type Animal @entity { id: ID!, home: Burrow }`, "unknown type"},
		{"declared query", `type Query { ok: Boolean }`, "generated"},
		{"derivedFrom without field", `type A @entity { id: ID!, bs: [B!]! @derivedFrom }
			type B @entity { id: ID! }`, "missing its field argument"},
		{"derivedFrom on scalar", `type A @entity { id: ID!, n: Int @derivedFrom(field: "a") }`, "requires an object or interface"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.name, tc.sdl)
			require.Error(t, err)
			require.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestRenderRoundTrips(t *testing.T) {
	s, err := Load("zoo", zooSDL)
	require.NoError(t, err)

	out := Render(s)
	require.Contains(t, out, "type Animal implements Legged @entity {")
	require.Contains(t, out, `dwellers(first: Int = 100, skip: Int = 0, orderBy: Legged_orderBy, orderDirection: OrderDirection = asc, where: Legged_filter): [Legged!]! @derivedFrom(field: "home")`)

	// Rendered SDL stays parseable.
	reparsed, err := Build(mustParseSDL(t, out))
	require.NoError(t, err)
	require.NotNil(t, reparsed.Types["Animal"])
}

func mustParseSDL(t *testing.T, src string) *language.SchemaDocument {
	t.Helper()
	doc, err := language.ParseSchema("rendered", src)
	if err != nil {
		t.Fatalf("parse rendered SDL: %v", err)
	}
	return doc
}

func TestLowerCamelAndPlural(t *testing.T) {
	for in, want := range map[string]string{
		"Legged":   "legged",
		"IFoo":     "ifoo",
		"BuyEvent": "buyEvent",
		"ID":       "id",
	} {
		require.Equal(t, want, lowerCamel(in))
	}
	require.Equal(t, "leggeds", plural("legged"))
	require.Equal(t, "buses", plural("bus"))
}

func TestBuildRejectsDuplicateTypes(t *testing.T) {
	_, err := Load("dupe", `type A @entity { id: ID! } type A @entity { id: ID! }`)
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "more than once") || strings.Contains(err.Error(), "defined"))
}
