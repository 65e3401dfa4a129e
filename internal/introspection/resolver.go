// Package introspection layers the GraphQL introspection surface over a
// resolver: it extends a schema with the __Schema/__Type type family and
// intercepts the __schema and __type fields on the query type. Every other
// field passes through to the wrapped resolver untouched.
package introspection

import (
	"context"
	"sort"
	"strings"

	executor "github.com/entgraph/entgraph/internal/executor"
	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// Wrapper bundles the introspection-aware resolver with the extended schema
// it serves. Hand both to the executor together: the resolver answers
// __schema and __type against the same extended schema the engine plans
// against.
type Wrapper struct {
	Resolver executor.Resolver
	Schema   *schema.Schema
}

// Wrap extends sch with the introspection types and returns a resolver that
// serves them on top of base.
func Wrap(base executor.Resolver, sch *schema.Schema) Wrapper {
	extended := extendSchemaWithIntrospection(sch)
	return Wrapper{
		Resolver: &resolver{Resolver: base, sch: extended},
		Schema:   extended,
	}
}

type resolver struct {
	executor.Resolver
	sch *schema.Schema
}

func (r *resolver) ResolveObject(ctx context.Context, ectx *executor.ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *executor.Error) {
	if prefetched == nil {
		switch def.Name {
		case "__schema":
			return &schemaNode{sch: r.sch}, nil
		case "__type":
			name, _ := args["name"].(string)
			if named := r.sch.GetNamedType(name); named != nil {
				return namedTypeNode(r.sch, named), nil
			}
			return nil, nil
		}
	}
	return r.Resolver.ResolveObject(ctx, ectx, prefetched, field, def, t, args)
}

// schemaNode serves a __Schema selection. Types and directives are listed
// in name order so responses are deterministic.
type schemaNode struct {
	sch *schema.Schema
}

func (n *schemaNode) Field(name string) (any, bool) {
	s := n.sch
	switch name {
	case "description":
		return nullableString(s.Description), true
	case "types":
		names := make([]string, 0, len(s.Types))
		for typeName := range s.Types {
			names = append(names, typeName)
		}
		sort.Strings(names)
		out := make([]any, 0, len(names))
		for _, typeName := range names {
			out = append(out, namedTypeNode(s, s.Types[typeName]))
		}
		return out, true
	case "queryType":
		return typeOrNil(s, s.GetQueryType()), true
	case "mutationType":
		return typeOrNil(s, s.GetMutationType()), true
	case "subscriptionType":
		return typeOrNil(s, s.GetSubscriptionType()), true
	case "directives":
		names := make([]string, 0, len(s.Directives))
		for directiveName := range s.Directives {
			names = append(names, directiveName)
		}
		sort.Strings(names)
		out := make([]any, 0, len(names))
		for _, directiveName := range names {
			out = append(out, &directiveNode{sch: s, def: s.Directives[directiveName]})
		}
		return out, true
	}
	return nil, false
}

// typeNode serves a __Type selection. A node wraps either a named type or a
// LIST/NON_NULL reference; only the wrappers expose ofType, named types
// never do.
type typeNode struct {
	sch   *schema.Schema
	named *schema.Type
	ref   *schema.TypeRef
}

func namedTypeNode(s *schema.Schema, t *schema.Type) *typeNode {
	return &typeNode{sch: s, named: t}
}

func typeNodeOf(s *schema.Schema, ref *schema.TypeRef) *typeNode {
	switch ref.Kind {
	case schema.TypeRefKindList, schema.TypeRefKindNonNull:
		return &typeNode{sch: s, ref: ref}
	default:
		return namedTypeNode(s, s.GetNamedType(ref.Named))
	}
}

func typeOrNil(s *schema.Schema, t *schema.Type) any {
	if t == nil {
		return nil
	}
	return namedTypeNode(s, t)
}

func (n *typeNode) Field(name string) (any, bool) {
	if n.named == nil {
		return n.wrapperField(name)
	}
	t := n.named
	switch name {
	case "kind":
		return string(t.Kind), true
	case "name":
		return t.Name, true
	case "description":
		return nullableString(t.Description), true
	case "fields":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := make([]any, 0, len(t.Fields))
		for _, f := range t.Fields {
			if strings.HasPrefix(f.Name, "__") {
				continue
			}
			out = append(out, &fieldNode{sch: n.sch, def: f})
		}
		return out, true
	case "interfaces":
		if t.Kind != schema.TypeKindObject && t.Kind != schema.TypeKindInterface {
			return nil, true
		}
		out := make([]any, 0, len(t.Interfaces))
		for _, ifaceName := range t.Interfaces {
			if iface := n.sch.GetNamedType(ifaceName); iface != nil {
				out = append(out, namedTypeNode(n.sch, iface))
			}
		}
		return out, true
	case "possibleTypes":
		var names []string
		switch t.Kind {
		case schema.TypeKindInterface:
			names, _ = n.sch.TypesForInterface(t.Name)
		case schema.TypeKindUnion:
			names = t.PossibleTypes
		default:
			return nil, true
		}
		out := make([]any, 0, len(names))
		for _, typeName := range names {
			if impl := n.sch.GetNamedType(typeName); impl != nil {
				out = append(out, namedTypeNode(n.sch, impl))
			}
		}
		return out, true
	case "enumValues":
		if t.Kind != schema.TypeKindEnum {
			return nil, true
		}
		out := make([]any, 0, len(t.EnumValues))
		for _, v := range t.EnumValues {
			out = append(out, &enumValueNode{def: v})
		}
		return out, true
	case "inputFields":
		if t.Kind != schema.TypeKindInputObject {
			return nil, true
		}
		out := make([]any, 0, len(t.InputFields))
		for _, iv := range t.InputFields {
			out = append(out, &inputValueNode{sch: n.sch, def: iv})
		}
		return out, true
	case "ofType":
		return nil, true
	case "specifiedByURL":
		return nil, true
	case "isOneOf":
		if t.Kind == schema.TypeKindInputObject {
			return false, true
		}
		return nil, true
	}
	return nil, false
}

func (n *typeNode) wrapperField(name string) (any, bool) {
	switch name {
	case "kind":
		if n.ref.Kind == schema.TypeRefKindList {
			return "LIST", true
		}
		return "NON_NULL", true
	case "ofType":
		return typeNodeOf(n.sch, n.ref.OfType), true
	case "name", "description", "fields", "interfaces", "possibleTypes",
		"enumValues", "inputFields", "specifiedByURL", "isOneOf":
		return nil, true
	}
	return nil, false
}

type fieldNode struct {
	sch *schema.Schema
	def *schema.Field
}

func (n *fieldNode) Field(name string) (any, bool) {
	switch name {
	case "name":
		return n.def.Name, true
	case "description":
		return nullableString(n.def.Description), true
	case "args":
		out := make([]any, 0, len(n.def.Arguments))
		for _, arg := range n.def.Arguments {
			out = append(out, &inputValueNode{sch: n.sch, def: arg})
		}
		return out, true
	case "type":
		return typeNodeOf(n.sch, n.def.Type), true
	case "isDeprecated":
		return false, true
	case "deprecationReason":
		return nil, true
	}
	return nil, false
}

type inputValueNode struct {
	sch *schema.Schema
	def *schema.InputValue
}

func (n *inputValueNode) Field(name string) (any, bool) {
	switch name {
	case "name":
		return n.def.Name, true
	case "description":
		return nullableString(n.def.Description), true
	case "type":
		return typeNodeOf(n.sch, n.def.Type), true
	case "defaultValue":
		if n.def.DefaultValue == nil {
			return nil, true
		}
		return schema.RenderValue(n.def.DefaultValue), true
	case "isDeprecated":
		return false, true
	case "deprecationReason":
		return nil, true
	}
	return nil, false
}

type enumValueNode struct {
	def *schema.EnumValue
}

func (n *enumValueNode) Field(name string) (any, bool) {
	switch name {
	case "name":
		return n.def.Name, true
	case "description":
		return nullableString(n.def.Description), true
	case "isDeprecated":
		return false, true
	case "deprecationReason":
		return nil, true
	}
	return nil, false
}

type directiveNode struct {
	sch *schema.Schema
	def *schema.Directive
}

func (n *directiveNode) Field(name string) (any, bool) {
	switch name {
	case "name":
		return n.def.Name, true
	case "description":
		return nullableString(n.def.Description), true
	case "isRepeatable":
		return n.def.IsRepeatable, true
	case "locations":
		out := make([]any, 0, len(n.def.Locations))
		for _, loc := range n.def.Locations {
			out = append(out, loc)
		}
		return out, true
	case "args":
		out := make([]any, 0, len(n.def.Arguments))
		for _, arg := range n.def.Arguments {
			out = append(out, &inputValueNode{sch: n.sch, def: arg})
		}
		return out, true
	}
	return nil, false
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
