package introspection

import (
	"context"
	"testing"

	executor "github.com/entgraph/entgraph/internal/executor"
	language "github.com/entgraph/entgraph/internal/language"
	resolverpkg "github.com/entgraph/entgraph/internal/resolver"
	schema "github.com/entgraph/entgraph/internal/schema"
	store "github.com/entgraph/entgraph/internal/store"
)

const testSDL = `
interface Legged {
  id: ID!
  legs: Int!
}

type Animal implements Legged @entity {
  id: ID!
  name: String!
  legs: Int!
}
`

func buildExecutor(t *testing.T) (*executor.Executor, *store.Store) {
	t.Helper()
	sch, err := schema.Load("test", testSDL)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	st := store.New(sch)
	w := Wrap(resolverpkg.New(st), sch)
	return executor.New(w.Resolver, w.Schema), st
}

func execute(t *testing.T, exec *executor.Executor, query string) map[string]any {
	t.Helper()
	doc, err := language.ParseQuery(query)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	res := exec.Execute(context.Background(), doc, "", nil)
	if len(res.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", res.Errors)
	}
	return res.Data
}

func TestSchemaIntrospection(t *testing.T) {
	exec, _ := buildExecutor(t)
	data := execute(t, exec, `{__schema{queryType{name} types{name}}}`)

	schData := data["__schema"].(map[string]any)
	qt := schData["queryType"].(map[string]any)
	if qt["name"] != "Query" {
		t.Fatalf("queryType.name = %v", qt["name"])
	}

	names := map[string]bool{}
	for _, v := range schData["types"].([]any) {
		names[v.(map[string]any)["name"].(string)] = true
	}
	for _, want := range []string{"Animal", "Legged", "Animal_orderBy", "__Schema", "__Type", "String"} {
		if !names[want] {
			t.Fatalf("types is missing %q", want)
		}
	}
}

func TestTypeIntrospection(t *testing.T) {
	exec, _ := buildExecutor(t)
	data := execute(t, exec, `{
		__type(name: "Animal") {
			kind
			name
			fields { name type { kind name ofType { kind name } } }
			interfaces { name }
		}
	}`)

	typ := data["__type"].(map[string]any)
	if typ["kind"] != "OBJECT" || typ["name"] != "Animal" {
		t.Fatalf("got %v %v", typ["kind"], typ["name"])
	}

	ifaces := typ["interfaces"].([]any)
	if len(ifaces) != 1 || ifaces[0].(map[string]any)["name"] != "Legged" {
		t.Fatalf("interfaces = %v", ifaces)
	}

	fields := map[string]map[string]any{}
	for _, v := range typ["fields"].([]any) {
		f := v.(map[string]any)
		fields[f["name"].(string)] = f["type"].(map[string]any)
	}
	id := fields["id"]
	if id["kind"] != "NON_NULL" || id["name"] != nil {
		t.Fatalf("id type = %v", id)
	}
	inner := id["ofType"].(map[string]any)
	if inner["kind"] != "SCALAR" || inner["name"] != "ID" {
		t.Fatalf("id inner type = %v", inner)
	}
}

func TestTypeIntrospectionInterface(t *testing.T) {
	exec, _ := buildExecutor(t)
	data := execute(t, exec, `{__type(name: "Legged") {kind possibleTypes {name}}}`)

	typ := data["__type"].(map[string]any)
	if typ["kind"] != "INTERFACE" {
		t.Fatalf("kind = %v", typ["kind"])
	}
	possible := typ["possibleTypes"].([]any)
	if len(possible) != 1 || possible[0].(map[string]any)["name"] != "Animal" {
		t.Fatalf("possibleTypes = %v", possible)
	}
}

func TestTypeIntrospectionUnknownType(t *testing.T) {
	exec, _ := buildExecutor(t)
	data := execute(t, exec, `{__type(name: "Nope") {name}}`)
	if data["__type"] != nil {
		t.Fatalf("__type = %v, want null", data["__type"])
	}
}

func TestFieldArgumentsAndDefaults(t *testing.T) {
	exec, _ := buildExecutor(t)
	data := execute(t, exec, `{
		__type(name: "Query") {
			fields { name args { name defaultValue } }
		}
	}`)

	typ := data["__type"].(map[string]any)
	var collection map[string]any
	for _, v := range typ["fields"].([]any) {
		f := v.(map[string]any)
		if f["name"] == "animals" {
			collection = f
		}
		if f["name"] == "__schema" || f["name"] == "__type" {
			t.Fatalf("introspection field %v leaked into fields", f["name"])
		}
	}
	if collection == nil {
		t.Fatal("Query has no animals field")
	}

	defaults := map[string]any{}
	for _, v := range collection["args"].([]any) {
		arg := v.(map[string]any)
		defaults[arg["name"].(string)] = arg["defaultValue"]
	}
	if defaults["first"] != "100" || defaults["skip"] != "0" {
		t.Fatalf("pagination defaults = %v", defaults)
	}
	if defaults["orderDirection"] != "asc" {
		t.Fatalf("orderDirection default = %v", defaults["orderDirection"])
	}
}

func TestIntrospectionAlongsideEntityData(t *testing.T) {
	exec, st := buildExecutor(t)
	if err := st.Set(context.Background(), "Animal", "a1", store.Entity{"name": "cow", "legs": 4}); err != nil {
		t.Fatalf("set: %v", err)
	}

	data := execute(t, exec, `{
		animals(first: 100) { id name }
		__schema { queryType { name } }
	}`)

	animals := data["animals"].([]any)
	if len(animals) != 1 || animals[0].(map[string]any)["id"] != "a1" {
		t.Fatalf("animals = %v", animals)
	}
	schData := data["__schema"].(map[string]any)
	if schData["queryType"].(map[string]any)["name"] != "Query" {
		t.Fatalf("__schema = %v", schData)
	}
}

func TestWrapDoesNotMutateOriginalSchema(t *testing.T) {
	sch, err := schema.Load("test", testSDL)
	if err != nil {
		t.Fatalf("load schema: %v", err)
	}
	w := Wrap(resolverpkg.New(store.New(sch)), sch)

	if sch.GetNamedType("__Schema") != nil {
		t.Fatal("introspection types leaked into the original schema")
	}
	if sch.GetQueryType().Field("__schema") != nil {
		t.Fatal("__schema field leaked into the original query type")
	}
	if w.Schema.GetNamedType("__Schema") == nil {
		t.Fatal("extended schema is missing __Schema")
	}
}
