package schema

import (
	"fmt"
	"strings"
)

// Collection argument defaults used by the generated API.
const (
	DefaultFirst = 100
	DefaultSkip  = 0
)

// generateAPI extends a raw entity schema with its queryable surface:
//   - an OrderDirection enum,
//   - per-type orderBy enums and where filter inputs,
//   - collection arguments on every list-valued relation field,
//   - a Query type with a get-by-id and a collection field per entity type
//     and per interface.
func generateAPI(s *Schema) error {
	if s.Types["Query"] != nil {
		return fmt.Errorf("schema: the Query type is generated and must not be declared")
	}
	s.addTypeOrdered(orderDirectionType())

	query := &Type{Name: "Query", Kind: TypeKindObject, Description: "The generated entry points into the entity store."}

	var queryable []string
	queryable = append(queryable, s.EntityTypes()...)
	queryable = append(queryable, s.InterfaceTypes()...)

	for _, name := range queryable {
		t := s.Types[name]
		orderBy := orderByEnum(t)
		filter := filterInput(t)
		if orderBy != nil {
			s.addTypeOrdered(orderBy)
		}
		if filter != nil {
			s.addTypeOrdered(filter)
		}
		query.Fields = append(query.Fields,
			&Field{
				Name:        lowerCamel(name),
				Description: fmt.Sprintf("Look up a %s by id.", name),
				Type:        NamedType(name),
				Arguments:   []*InputValue{{Name: "id", Type: NonNullType(NamedType("ID"))}},
			},
			&Field{
				Name:        plural(lowerCamel(name)),
				Description: fmt.Sprintf("Query the %s collection.", name),
				Type:        NonNullType(ListType(NonNullType(NamedType(name)))),
				Arguments:   collectionArguments(t, orderBy, filter),
			},
		)
	}

	// List-valued relation fields take the same collection arguments as the
	// root collection field of their element type.
	for _, name := range s.typeOrder {
		t := s.Types[name]
		if t.Kind != TypeKindObject && t.Kind != TypeKindInterface {
			continue
		}
		for _, f := range t.Fields {
			if !f.Type.IsList() {
				continue
			}
			elem := s.Types[f.Type.GetNamedType()]
			if elem == nil || (elem.Kind != TypeKindObject && elem.Kind != TypeKindInterface) {
				continue
			}
			if len(f.Arguments) > 0 {
				continue
			}
			f.Arguments = collectionArguments(elem, s.Types[elem.Name+"_orderBy"], s.Types[elem.Name+"_filter"])
		}
	}

	s.addTypeOrdered(query)
	s.QueryType = "Query"
	return nil
}

func collectionArguments(t *Type, orderBy, filter *Type) []*InputValue {
	args := []*InputValue{
		{Name: "first", Type: NamedType("Int"), DefaultValue: DefaultFirst},
		{Name: "skip", Type: NamedType("Int"), DefaultValue: DefaultSkip},
	}
	if orderBy != nil {
		args = append(args,
			&InputValue{Name: "orderBy", Type: NamedType(orderBy.Name)},
			&InputValue{Name: "orderDirection", Type: NamedType("OrderDirection"), DefaultValue: "asc"},
		)
	}
	if filter != nil {
		args = append(args, &InputValue{Name: "where", Type: NamedType(filter.Name)})
	}
	return args
}

// orderByEnum lists the sortable (leaf-valued, non-list) fields of t.
// Returns nil when t has none.
func orderByEnum(t *Type) *Type {
	e := &Type{Name: t.Name + "_orderBy", Kind: TypeKindEnum}
	for _, f := range t.Fields {
		if f.Type.IsList() || !isLeafNamed(f.Type.GetNamedType()) {
			continue
		}
		e.EnumValues = append(e.EnumValues, &EnumValue{Name: f.Name})
	}
	if len(e.EnumValues) == 0 {
		return nil
	}
	return e
}

// filterInput builds the where input for t: an equality and an _in condition
// per leaf field. Returns nil when t has none.
func filterInput(t *Type) *Type {
	in := &Type{Name: t.Name + "_filter", Kind: TypeKindInputObject}
	for _, f := range t.Fields {
		if f.Type.IsList() || !isLeafNamed(f.Type.GetNamedType()) {
			continue
		}
		named := f.Type.GetNamedType()
		in.InputFields = append(in.InputFields,
			&InputValue{Name: f.Name, Type: NamedType(named)},
			&InputValue{Name: f.Name + "_in", Type: ListType(NonNullType(NamedType(named)))},
		)
	}
	if len(in.InputFields) == 0 {
		return nil
	}
	return in
}

// isLeafNamed reports whether the named type is a built-in scalar. Enum and
// custom scalar leaves are resolved per schema at call sites that have one;
// the generated filter surface covers the built-ins.
func isLeafNamed(name string) bool {
	switch name {
	case "String", "Int", "Float", "Boolean", "ID":
		return true
	default:
		return false
	}
}

func orderDirectionType() *Type {
	return &Type{
		Name:        "OrderDirection",
		Kind:        TypeKindEnum,
		Description: "Sort direction for collection queries.",
		EnumValues:  []*EnumValue{{Name: "asc"}, {Name: "desc"}},
	}
}

// lowerCamel lowercases the leading run of uppercase letters, so Legged
// becomes legged and IFoo becomes ifoo.
func lowerCamel(name string) string {
	if name == "" {
		return name
	}
	runes := []rune(name)
	i := 0
	for i < len(runes) && runes[i] >= 'A' && runes[i] <= 'Z' {
		i++
	}
	if i == 0 {
		return name
	}
	return strings.ToLower(string(runes[:i])) + string(runes[i:])
}

func plural(name string) string {
	if strings.HasSuffix(name, "s") {
		return name + "es"
	}
	return name + "s"
}
