package executor

import (
	"context"
	"fmt"

	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// ExecContext carries the read-only inputs of one query execution: the
// schema, the parsed document (for named fragment lookups) and the coerced
// variable values. It is shared between the engine and the resolver.
type ExecContext struct {
	Schema    *schema.Schema
	Document  *language.QueryDocument
	Variables map[string]any
}

// Resolver is the pluggable fetch strategy consumed by the Executor. One
// implementation exists per store backend; all methods are read-only with
// respect to the backend and must be safe for concurrent use across query
// executions.
//
// Object values exchanged with the engine are map[string]any trees (or
// ObjectSource implementations); every object produced at an interface or
// union position must carry a __typename entry naming its concrete type.
type Resolver interface {
	// Cacheable declares whether results from this resolver may be cached
	// by callers. The value is part of the contract and must be constant
	// for a given implementation.
	Cacheable() bool

	// Prefetch attempts to satisfy the whole selection set in batched
	// store queries, returning a materialized value tree keyed by response
	// key. Returning (nil, nil) falls back to per-field resolution.
	// Validation errors discovered while planning the fetch abort the
	// execution and are returned together.
	Prefetch(ctx context.Context, ectx *ExecContext, sel language.SelectionSet) (map[string]any, []*Error)

	// ResolveObjects resolves a to-many relation as an ordered list
	// honoring the field's pagination and order arguments. When prefetched
	// is non-nil it was already computed by an ancestor's Prefetch batch
	// and must be reused rather than fetched again.
	ResolveObjects(ctx context.Context, ectx *ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *Error)

	// ResolveObject is the singular counterpart of ResolveObjects.
	ResolveObject(ctx context.Context, ectx *ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *Error)

	// ResolveEnumValue coerces an already-fetched raw value for an enum
	// field. The default passes the value through.
	ResolveEnumValue(enumType *schema.Type, field *language.Field, value any) (any, *Error)

	// ResolveEnumValues is the list counterpart of ResolveEnumValue.
	ResolveEnumValues(enumType *schema.Type, field *language.Field, value any) (any, *Error)

	// ResolveScalarValue coerces an already-fetched raw value for a scalar
	// field. The default passes the value through.
	ResolveScalarValue(parent schema.ObjectOrInterface, field *language.Field, scalarType *schema.Type, value any, args map[string]any) (any, *Error)

	// ResolveScalarValues is the list counterpart of ResolveScalarValue.
	ResolveScalarValues(parent schema.ObjectOrInterface, field *language.Field, scalarType *schema.Type, value any) (any, *Error)

	// ResolveAbstractType maps an object value at an interface or union
	// position to its concrete object-type definition via the value's
	// __typename tag. A missing tag or an unknown type name is an
	// invariant violation (the value was produced by code that stamps the
	// tag) and panics rather than erroring.
	ResolveAbstractType(s *schema.Schema, abstract *schema.Type, value any) *schema.Type

	// ResolveFieldStream exposes a live-update stream for a field.
	// Query-only resolvers return ErrNotSupported.
	ResolveFieldStream(ctx context.Context, ectx *ExecContext, parent *schema.Type, field *language.Field) (<-chan any, *Error)
}

// ObjectSource lets non-map object values expose fields to the engine.
// Introspection nodes implement it; entity values use plain maps.
type ObjectSource interface {
	Field(name string) (any, bool)
}

// DefaultResolver provides the pass-through behaviors shared by most
// resolvers. Embed it and override the fetch methods.
type DefaultResolver struct{}

func (DefaultResolver) ResolveEnumValue(enumType *schema.Type, field *language.Field, value any) (any, *Error) {
	return value, nil
}

func (DefaultResolver) ResolveEnumValues(enumType *schema.Type, field *language.Field, value any) (any, *Error) {
	return value, nil
}

func (DefaultResolver) ResolveScalarValue(parent schema.ObjectOrInterface, field *language.Field, scalarType *schema.Type, value any, args map[string]any) (any, *Error) {
	return value, nil
}

func (DefaultResolver) ResolveScalarValues(parent schema.ObjectOrInterface, field *language.Field, scalarType *schema.Type, value any) (any, *Error) {
	return value, nil
}

func (DefaultResolver) ResolveAbstractType(s *schema.Schema, abstract *schema.Type, value any) *schema.Type {
	name, ok := typenameOf(value)
	if !ok {
		panic(fmt.Sprintf("executor: value at abstract position %s carries no __typename tag", abstract.Name))
	}
	t := s.GetNamedType(name)
	if t == nil || t.Kind != schema.TypeKindObject {
		panic(fmt.Sprintf("executor: __typename %q at abstract position %s does not name an object type", name, abstract.Name))
	}
	return t
}

func (DefaultResolver) ResolveFieldStream(ctx context.Context, ectx *ExecContext, parent *schema.Type, field *language.Field) (<-chan any, *Error) {
	return nil, ErrNotSupported("resolving field streams")
}

// typenameOf extracts the concrete-type tag from an object value.
func typenameOf(value any) (string, bool) {
	raw, ok := rawFieldValue(value, "__typename")
	if !ok {
		return "", false
	}
	name, ok := raw.(string)
	return name, ok
}

// rawFieldValue reads the raw value stored under name on an object value.
func rawFieldValue(objectValue any, name string) (any, bool) {
	switch src := objectValue.(type) {
	case nil:
		return nil, false
	case map[string]any:
		v, ok := src[name]
		return v, ok
	case ObjectSource:
		return src.Field(name)
	default:
		return nil, false
	}
}
