package schema

import "fmt"

// ObjectOrInterface is a read-only handle over a named type that may be
// addressed at a query position: either a concrete object type or an
// interface type. It is a two-case tagged value, never mutated after schema
// load.
type ObjectOrInterface struct {
	def *Type
}

// Object wraps a concrete object type.
func Object(t *Type) ObjectOrInterface {
	if t == nil || t.Kind != TypeKindObject {
		panic(fmt.Sprintf("schema: Object called with non-object type %v", t))
	}
	return ObjectOrInterface{def: t}
}

// Interface wraps an interface type.
func Interface(t *Type) ObjectOrInterface {
	if t == nil || t.Kind != TypeKindInterface {
		panic(fmt.Sprintf("schema: Interface called with non-interface type %v", t))
	}
	return ObjectOrInterface{def: t}
}

// AsObjectOrInterface wraps a named type of object or interface kind.
// The second return is false for any other kind.
func AsObjectOrInterface(t *Type) (ObjectOrInterface, bool) {
	if t == nil {
		return ObjectOrInterface{}, false
	}
	switch t.Kind {
	case TypeKindObject, TypeKindInterface:
		return ObjectOrInterface{def: t}, true
	default:
		return ObjectOrInterface{}, false
	}
}

func (oi ObjectOrInterface) IsObject() bool    { return oi.def != nil && oi.def.Kind == TypeKindObject }
func (oi ObjectOrInterface) IsInterface() bool {
	return oi.def != nil && oi.def.Kind == TypeKindInterface
}

func (oi ObjectOrInterface) Name() string { return oi.def.Name }

// Def returns the underlying type definition.
func (oi ObjectOrInterface) Def() *Type { return oi.def }

// Fields returns the declared fields of the wrapped type.
func (oi ObjectOrInterface) Fields() []*Field { return oi.def.Fields }

// Directives returns the directive uses on the wrapped type definition.
func (oi ObjectOrInterface) Directives() []*AppliedDirective { return oi.def.Applied }

// Field returns the declared field with the given name, or nil.
func (oi ObjectOrInterface) Field(name string) *Field { return oi.def.Field(name) }

// ObjectTypes returns the concrete object types reachable at this position:
// the type itself for an object, or the implementor list for an interface.
// Returns nil for an interface the schema does not know about.
func (oi ObjectOrInterface) ObjectTypes(s *Schema) []*Type {
	if oi.IsObject() {
		return []*Type{oi.def}
	}
	impls, ok := s.TypesForInterface(oi.def.Name)
	if !ok {
		return nil
	}
	out := make([]*Type, 0, len(impls))
	for _, name := range impls {
		out = append(out, s.Types[name])
	}
	return out
}

// Matches reports whether the concrete type named typename can appear at this
// position: same name for an object, or a registered implementor for an
// interface. An unregistered interface here is an invariant violation (the
// schema was validated at load time), so it panics rather than erroring.
func (oi ObjectOrInterface) Matches(typename string, s *Schema) bool {
	if oi.IsObject() {
		return oi.def.Name == typename
	}
	impls, ok := s.TypesForInterface(oi.def.Name)
	if !ok {
		panic(fmt.Sprintf("schema: interface %q is not registered in the interface index", oi.def.Name))
	}
	for _, name := range impls {
		if name == typename {
			return true
		}
	}
	return false
}
