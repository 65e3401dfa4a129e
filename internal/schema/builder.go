package schema

import (
	"fmt"
	"strconv"

	language "github.com/entgraph/entgraph/internal/language"
)

// Load parses an SDL document, builds the type registry and interface index,
// validates the result, and extends it with the generated query API
// (collection and get-by-id fields per entity type and interface).
func Load(name, source string) (*Schema, error) {
	doc, err := language.ParseSchema(name, source)
	if err != nil {
		return nil, err
	}
	s, err := Build(doc)
	if err != nil {
		return nil, err
	}
	if err := generateAPI(s); err != nil {
		return nil, err
	}
	return s, nil
}

// Build constructs a Schema from a parsed SDL document without the generated
// query API. Exposed separately for tools that only need the raw registry.
func Build(doc *language.SchemaDocument) (*Schema, error) {
	s := &Schema{
		Types:             map[string]*Type{},
		Directives:        map[string]*Directive{},
		typesForInterface: map[string][]string{},
	}
	for _, t := range []*Type{stringType, intType, floatType, booleanType, idType} {
		s.addTypeOrdered(t)
	}
	s.Directives[includeDirective.Name] = includeDirective
	s.Directives[skipDirective.Name] = skipDirective
	s.Directives[entityDirective.Name] = entityDirective
	s.Directives[derivedFromDirective.Name] = derivedFromDirective

	for _, def := range doc.Definitions {
		t, err := buildDefinition(def)
		if err != nil {
			return nil, err
		}
		if prev := s.Types[t.Name]; prev != nil {
			return nil, fmt.Errorf("schema: type %q defined more than once", t.Name)
		}
		s.addTypeOrdered(t)
	}

	if err := buildInterfaceIndex(s); err != nil {
		return nil, err
	}
	if err := validate(s); err != nil {
		return nil, err
	}
	return s, nil
}

func buildDefinition(def *language.Definition) (*Type, error) {
	switch def.Kind {
	case language.Object:
		t := &Type{Name: def.Name, Kind: TypeKindObject, Description: def.Description}
		t.Interfaces = append(t.Interfaces, def.Interfaces...)
		for _, d := range def.Directives {
			t.Applied = append(t.Applied, buildAppliedDirective(d))
			if d.Name == "entity" {
				t.IsEntity = true
			}
		}
		for _, fd := range def.Fields {
			f, err := buildField(def.Name, fd)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
		return t, nil
	case language.Interface:
		t := &Type{Name: def.Name, Kind: TypeKindInterface, Description: def.Description}
		for _, d := range def.Directives {
			t.Applied = append(t.Applied, buildAppliedDirective(d))
		}
		for _, fd := range def.Fields {
			f, err := buildField(def.Name, fd)
			if err != nil {
				return nil, err
			}
			t.Fields = append(t.Fields, f)
		}
		return t, nil
	case language.Enum:
		t := &Type{Name: def.Name, Kind: TypeKindEnum, Description: def.Description}
		for _, ev := range def.EnumValues {
			t.EnumValues = append(t.EnumValues, &EnumValue{Name: ev.Name, Description: ev.Description})
		}
		return t, nil
	case language.Scalar:
		return &Type{Name: def.Name, Kind: TypeKindScalar, Description: def.Description}, nil
	case language.Union:
		t := &Type{Name: def.Name, Kind: TypeKindUnion, Description: def.Description}
		t.PossibleTypes = append(t.PossibleTypes, def.Types...)
		return t, nil
	case language.InputObject:
		t := &Type{Name: def.Name, Kind: TypeKindInputObject, Description: def.Description}
		for _, fd := range def.Fields {
			t.InputFields = append(t.InputFields, &InputValue{
				Name:        fd.Name,
				Description: fd.Description,
				Type:        typeRefFromAST(fd.Type),
			})
		}
		return t, nil
	default:
		return nil, fmt.Errorf("schema: unsupported definition kind %s for %q", def.Kind, def.Name)
	}
}

func buildField(owner string, fd *language.FieldDefinition) (*Field, error) {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        typeRefFromAST(fd.Type),
	}
	for _, arg := range fd.Arguments {
		f.Arguments = append(f.Arguments, &InputValue{
			Name:         arg.Name,
			Description:  arg.Description,
			Type:         typeRefFromAST(arg.Type),
			DefaultValue: constValue(arg.DefaultValue),
		})
	}
	if d := fd.Directives.ForName("derivedFrom"); d != nil {
		arg := d.Arguments.ForName("field")
		if arg == nil || arg.Value == nil || arg.Value.Raw == "" {
			return nil, fmt.Errorf("schema: @derivedFrom on %s.%s is missing its field argument", owner, fd.Name)
		}
		f.DerivedFrom = arg.Value.Raw
	}
	return f, nil
}

func buildAppliedDirective(d *language.Directive) *AppliedDirective {
	out := &AppliedDirective{Name: d.Name}
	if len(d.Arguments) > 0 {
		out.Args = make(map[string]any, len(d.Arguments))
		for _, arg := range d.Arguments {
			out.Args[arg.Name] = constValue(arg.Value)
		}
	}
	return out
}

// buildInterfaceIndex derives the interface -> implementors mapping from the
// object types' declared interfaces, preserving object declaration order.
func buildInterfaceIndex(s *Schema) error {
	for _, name := range s.typeOrder {
		t := s.Types[name]
		if t.Kind != TypeKindInterface {
			continue
		}
		// Known interface, possibly with zero implementors.
		s.typesForInterface[name] = nil
	}
	for _, name := range s.typeOrder {
		t := s.Types[name]
		if t.Kind != TypeKindObject {
			continue
		}
		for _, iface := range t.Interfaces {
			it := s.Types[iface]
			if it == nil || it.Kind != TypeKindInterface {
				return fmt.Errorf("schema: type %q implements unknown interface %q", t.Name, iface)
			}
			s.typesForInterface[iface] = append(s.typesForInterface[iface], t.Name)
		}
	}
	for iface, impls := range s.typesForInterface {
		it := s.Types[iface]
		it.PossibleTypes = append([]string(nil), impls...)
	}
	return nil
}

func validate(s *Schema) error {
	for _, name := range s.typeOrder {
		t := s.Types[name]
		switch t.Kind {
		case TypeKindObject, TypeKindInterface:
			for _, f := range t.Fields {
				named := f.Type.GetNamedType()
				ft := s.Types[named]
				if ft == nil {
					return fmt.Errorf("schema: field %s.%s references unknown type %q", t.Name, f.Name, named)
				}
				if f.DerivedFrom != "" {
					if ft.Kind != TypeKindObject && ft.Kind != TypeKindInterface {
						return fmt.Errorf("schema: @derivedFrom on %s.%s requires an object or interface type, got %s", t.Name, f.Name, ft.Kind)
					}
				}
			}
			if t.Kind == TypeKindObject && t.IsEntity {
				idf := t.Field("id")
				if idf == nil || idf.Type.GetNamedType() != "ID" {
					return fmt.Errorf("schema: entity type %q must declare an id field of type ID", t.Name)
				}
			}
		case TypeKindUnion:
			for _, pt := range t.PossibleTypes {
				mt := s.Types[pt]
				if mt == nil || mt.Kind != TypeKindObject {
					return fmt.Errorf("schema: union %q member %q is not an object type", t.Name, pt)
				}
			}
		}
	}
	// Every name in an implementor list must name an object type declaring
	// the interface.
	for iface, impls := range s.typesForInterface {
		for _, impl := range impls {
			t := s.Types[impl]
			if t == nil || t.Kind != TypeKindObject || !t.Implements(iface) {
				return fmt.Errorf("schema: interface %q lists implementor %q which does not declare it", iface, impl)
			}
		}
	}
	return nil
}

func typeRefFromAST(t *language.Type) *TypeRef {
	if t == nil {
		return nil
	}
	if t.NonNull {
		inner := *t
		inner.NonNull = false
		return NonNullType(typeRefFromAST(&inner))
	}
	if t.NamedType != "" {
		return NamedType(t.NamedType)
	}
	return ListType(typeRefFromAST(t.Elem))
}

// constValue converts a constant AST value (no variables) to a Go value.
func constValue(v *language.Value) any {
	if v == nil {
		return nil
	}
	switch v.Kind {
	case language.IntValue:
		iv, _ := strconv.Atoi(v.Raw)
		return iv
	case language.FloatValue:
		fv, _ := strconv.ParseFloat(v.Raw, 64)
		return fv
	case language.StringValue, language.BlockValue, language.EnumValue:
		return v.Raw
	case language.BooleanValue:
		return v.Raw == "true"
	case language.ListValue:
		out := make([]any, len(v.Children))
		for i, c := range v.Children {
			out[i] = constValue(c.Value)
		}
		return out
	case language.ObjectValue:
		m := make(map[string]any, len(v.Children))
		for _, c := range v.Children {
			m[c.Name] = constValue(c.Value)
		}
		return m
	default:
		return nil
	}
}
