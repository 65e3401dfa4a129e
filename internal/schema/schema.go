package schema

// Schema is the complete, immutable type registry for one entity namespace.
// It is built once at load time and shared read-only across query executions.
type Schema struct {
	QueryType        string
	MutationType     string
	SubscriptionType string
	Types            map[string]*Type // All named types keyed by name
	Directives       map[string]*Directive
	Description      string

	// typesForInterface maps an interface name to its implementor object
	// types, in schema declaration order.
	typesForInterface map[string][]string
	// typeOrder preserves declaration order for deterministic iteration.
	typeOrder []string
}

// GetQueryType returns the root query type (may be nil if absent)
func (s *Schema) GetQueryType() *Type { return s.Types[s.QueryType] }

// GetMutationType returns the root mutation type (may be nil if absent)
func (s *Schema) GetMutationType() *Type { return s.Types[s.MutationType] }

// GetSubscriptionType returns the root subscription type (may be nil if absent)
func (s *Schema) GetSubscriptionType() *Type { return s.Types[s.SubscriptionType] }

// GetNamedType returns the named type, or nil if it is not registered.
func (s *Schema) GetNamedType(name string) *Type { return s.Types[name] }

// TypesForInterface returns the implementor object-type names for the given
// interface, in declaration order. The second return is false for interfaces
// the schema does not know about.
func (s *Schema) TypesForInterface(name string) ([]string, bool) {
	impls, ok := s.typesForInterface[name]
	return impls, ok
}

// SharesInterface reports whether two object types implement at least one
// interface in common. Used by the store's id-collision integrity check.
func (s *Schema) SharesInterface(a, b string) bool {
	ta, tb := s.Types[a], s.Types[b]
	if ta == nil || tb == nil {
		return false
	}
	for _, ia := range ta.Interfaces {
		for _, ib := range tb.Interfaces {
			if ia == ib {
				return true
			}
		}
	}
	return false
}

// EntityTypes returns the names of object types marked @entity, in
// declaration order.
func (s *Schema) EntityTypes() []string {
	var out []string
	for _, name := range s.typeOrder {
		t := s.Types[name]
		if t.Kind == TypeKindObject && t.IsEntity {
			out = append(out, name)
		}
	}
	return out
}

// InterfaceTypes returns the names of interface types, in declaration order.
func (s *Schema) InterfaceTypes() []string {
	var out []string
	for _, name := range s.typeOrder {
		if s.Types[name].Kind == TypeKindInterface {
			out = append(out, name)
		}
	}
	return out
}

// Clone returns a shallow copy of the schema with its own Types map, so
// callers can register additional types without mutating the original.
// Type definitions and the interface index are shared.
func (s *Schema) Clone() *Schema {
	out := *s
	out.Types = make(map[string]*Type, len(s.Types))
	for name, t := range s.Types {
		out.Types[name] = t
	}
	return &out
}

func (s *Schema) addTypeOrdered(t *Type) {
	if _, ok := s.Types[t.Name]; !ok {
		s.typeOrder = append(s.typeOrder, t.Name)
	}
	s.Types[t.Name] = t
}

// Type is a named GraphQL type (object, interface, union, scalar, enum, input)
type Type struct {
	Name          string
	Kind          TypeKind
	Description   string
	Fields        []*Field      // For OBJECT and INTERFACE
	Interfaces    []string      // For OBJECT (implemented interfaces)
	PossibleTypes []string      // For INTERFACE and UNION
	EnumValues    []*EnumValue  // For ENUM
	InputFields   []*InputValue // For INPUT_OBJECT
	IsEntity      bool          // For OBJECT: declared with @entity, rows live in the store
	Applied       []*AppliedDirective
}

// AppliedDirective records a directive use on a type definition, e.g.
// @entity on an object type.
type AppliedDirective struct {
	Name string
	Args map[string]any
}

// Field returns the declared field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	for _, f := range t.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Implements reports whether the object type declares the given interface.
func (t *Type) Implements(iface string) bool {
	for _, i := range t.Interfaces {
		if i == iface {
			return true
		}
	}
	return false
}

// Field represents a field on an object or interface
type Field struct {
	Name        string
	Description string
	Type        *TypeRef
	Arguments   []*InputValue

	// DerivedFrom names the field on the referenced entity type that points
	// back at the parent. Empty for stored (forward) references.
	DerivedFrom string
}

// Argument returns the declared argument with the given name, or nil.
func (f *Field) Argument(name string) *InputValue {
	for _, a := range f.Arguments {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// IsDerived reports whether the field's value is computed by a reverse lookup
// instead of being stored on the entity.
func (f *Field) IsDerived() bool { return f.DerivedFrom != "" }

// TypeKind represents the kind of GraphQL type
type TypeKind string

const (
	TypeKindScalar      TypeKind = "SCALAR"
	TypeKindObject      TypeKind = "OBJECT"
	TypeKindInterface   TypeKind = "INTERFACE"
	TypeKindUnion       TypeKind = "UNION"
	TypeKindEnum        TypeKind = "ENUM"
	TypeKindInputObject TypeKind = "INPUT_OBJECT"
)

// TypeRef represents a reference to a type (can be wrapped)
type TypeRef struct {
	Kind   TypeRefKind
	OfType *TypeRef // For List and NonNull
	Named  string   // For named types
}

type TypeRefKind string

const (
	TypeRefKindNamed   TypeRefKind = "NAMED"
	TypeRefKindList    TypeRefKind = "LIST"
	TypeRefKindNonNull TypeRefKind = "NON_NULL"
)

func (t *TypeRef) IsNonNull() bool {
	return t != nil && t.Kind == TypeRefKindNonNull
}

func (t *TypeRef) IsList() bool {
	if t == nil {
		return false
	}
	if t.Kind == TypeRefKindList {
		return true
	}
	if t.Kind == TypeRefKindNonNull && t.OfType != nil {
		return t.OfType.Kind == TypeRefKindList
	}
	return false
}

func (t *TypeRef) Unwrap() *TypeRef {
	if t.Kind == TypeRefKindNonNull || t.Kind == TypeRefKindList {
		return t.OfType
	}
	return t
}

func (t *TypeRef) GetNamedType() string {
	current := t
	for current != nil {
		if current.Named != "" {
			return current.Named
		}
		current = current.OfType
	}
	return ""
}

type EnumValue struct {
	Name        string
	Description string
}

type InputValue struct {
	Name         string
	Description  string
	Type         *TypeRef
	DefaultValue any
}

type Directive struct {
	Name         string
	Description  string
	Locations    []string
	Arguments    []*InputValue
	IsRepeatable bool
}

func NonNullType(t *TypeRef) *TypeRef { return &TypeRef{Kind: TypeRefKindNonNull, OfType: t} }
func ListType(t *TypeRef) *TypeRef    { return &TypeRef{Kind: TypeRefKindList, OfType: t} }
func NamedType(name string) *TypeRef  { return &TypeRef{Kind: TypeRefKindNamed, Named: name} }

// IsNonNull reports whether the type is wrapped with Non-Null.
func IsNonNull(t *TypeRef) bool { return t != nil && t.IsNonNull() }

// IsList reports whether the type is (or is wrapped by) a list type.
func IsList(t *TypeRef) bool { return t != nil && t.IsList() }

// Unwrap removes one layer of Non-Null or List wrapping and returns the inner type.
func Unwrap(t *TypeRef) *TypeRef { return t.Unwrap() }

// GetNamedType returns the innermost named type for the given reference.
func GetNamedType(t *TypeRef) string { return t.GetNamedType() }
