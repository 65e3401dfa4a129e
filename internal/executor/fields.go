package executor

import (
	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// CollectedField is one entry of a resolution plan: a response key with the
// document fields that were merged onto it and the field definition that
// declared it. Def is nil for the __typename meta field.
type CollectedField struct {
	ResponseKey string
	Fields      []*language.Field
	Def         *schema.Field
}

// CollectFields flattens a selection set into the ordered, deduplicated
// field list to fetch for one concrete type. scope is the declared type of
// the position (the interface when selecting through an interface), used to
// validate unconditional fields and to name types in errors; concrete is the
// object type actually present, used to match fragment type conditions.
//
// Fields requested more than once under the same response key are merged
// into a single entry, first occurrence deciding the position. Inline
// fragments and named spreads contribute their selections only when the
// concrete type satisfies their type condition. Validation problems
// (unknown fields, conflicting arguments) are collected and returned
// together, never one at a time.
func CollectFields(ectx *ExecContext, scope schema.ObjectOrInterface, concrete *schema.Type, sel language.SelectionSet) ([]CollectedField, []*Error) {
	c := &fieldCollector{
		ectx:     ectx,
		concrete: concrete,
		grouped:  &collectedFieldMap{index: map[string]int{}},
		visited:  map[string]bool{},
		reported: map[string]bool{},
	}
	c.collect(scope, sel)
	return c.grouped.fields, c.errs
}

// collectedFieldMap preserves field order from the original query.
type collectedFieldMap struct {
	fields []CollectedField
	index  map[string]int
}

func (cfm *collectedFieldMap) lookup(responseKey string) *CollectedField {
	if idx, ok := cfm.index[responseKey]; ok {
		return &cfm.fields[idx]
	}
	return nil
}

func (cfm *collectedFieldMap) add(responseKey string, field *language.Field, def *schema.Field) {
	cfm.index[responseKey] = len(cfm.fields)
	cfm.fields = append(cfm.fields, CollectedField{
		ResponseKey: responseKey,
		Fields:      []*language.Field{field},
		Def:         def,
	})
}

type fieldCollector struct {
	ectx     *ExecContext
	concrete *schema.Type
	grouped  *collectedFieldMap
	visited  map[string]bool
	reported map[string]bool
	errs     []*Error
}

func (c *fieldCollector) collect(scope schema.ObjectOrInterface, sel language.SelectionSet) {
	for _, selection := range sel {
		switch s := selection.(type) {
		case *language.Field:
			if !shouldIncludeNode(c.ectx.Variables, s.Directives) {
				continue
			}
			c.field(scope, s)

		case *language.InlineFragment:
			if !shouldIncludeNode(c.ectx.Variables, s.Directives) {
				continue
			}
			if next, ok := c.matchCondition(scope, s.TypeCondition); ok {
				c.collect(next, s.SelectionSet)
			}

		case *language.FragmentSpread:
			if !shouldIncludeNode(c.ectx.Variables, s.Directives) {
				continue
			}
			if c.visited[s.Name] {
				continue
			}
			c.visited[s.Name] = true
			def := c.ectx.Document.Fragments.ForName(s.Name)
			if def == nil {
				c.addErr(ErrValidation("unknown fragment %q", s.Name))
				continue
			}
			if !shouldIncludeNode(c.ectx.Variables, def.Directives) {
				continue
			}
			if next, ok := c.matchCondition(scope, def.TypeCondition); ok {
				c.collect(next, def.SelectionSet)
			}
		}
	}
}

func (c *fieldCollector) field(scope schema.ObjectOrInterface, f *language.Field) {
	responseKey := f.Alias
	if responseKey == "" {
		responseKey = f.Name
	}

	var def *schema.Field
	if f.Name != typenameField {
		def = scope.Field(f.Name)
		if def == nil {
			c.addErr(ErrUnknownField(scope.Name(), f.Name))
			return
		}
	}

	if existing := c.grouped.lookup(responseKey); existing != nil {
		if !argumentsEqual(existing.Fields[0].Arguments, f.Arguments) {
			c.addErr(ErrConflictingArguments(scope.Name(), responseKey))
			return
		}
		existing.Fields = append(existing.Fields, f)
		return
	}
	c.grouped.add(responseKey, f, def)
}

// matchCondition resolves a fragment's type condition against the concrete
// type being planned. It returns the scope for the fragment's selections and
// whether the fragment applies at all.
func (c *fieldCollector) matchCondition(scope schema.ObjectOrInterface, condition string) (schema.ObjectOrInterface, bool) {
	if condition == "" {
		return scope, true
	}
	t := c.ectx.Schema.GetNamedType(condition)
	if t == nil {
		c.addErr(ErrValidation("unknown type %q in fragment condition", condition))
		return scope, false
	}
	switch t.Kind {
	case schema.TypeKindObject:
		if t.Name == c.concrete.Name {
			return schema.Object(t), true
		}
	case schema.TypeKindInterface:
		if c.concrete.Implements(t.Name) {
			return schema.Interface(t), true
		}
	case schema.TypeKindUnion:
		for _, pt := range t.PossibleTypes {
			if pt == c.concrete.Name {
				return schema.Object(c.concrete), true
			}
		}
	default:
		c.addErr(ErrValidation("fragment condition %q is not a composite type", condition))
	}
	return scope, false
}

// addErr records an error once per distinct message within this plan.
func (c *fieldCollector) addErr(err *Error) {
	if c.reported[err.Message] {
		return
	}
	c.reported[err.Message] = true
	c.errs = append(c.errs, err)
}

const typenameField = "__typename"

// shouldIncludeNode applies the @skip and @include directives.
func shouldIncludeNode(variables map[string]any, directives language.DirectiveList) bool {
	if skip := directives.ForName("skip"); skip != nil {
		if v, ok := directiveArgument(variables, skip, "if").(bool); ok && v {
			return false
		}
	}
	if include := directives.ForName("include"); include != nil {
		if v, ok := directiveArgument(variables, include, "if").(bool); ok && !v {
			return false
		}
	}
	return true
}

func directiveArgument(variables map[string]any, d *language.Directive, name string) any {
	for _, arg := range d.Arguments {
		if arg.Name == name {
			return valueFromASTWithVars(arg.Value, variables)
		}
	}
	return nil
}

// argumentsEqual compares two argument lists structurally, independent of
// argument order.
func argumentsEqual(a, b language.ArgumentList) bool {
	if len(a) != len(b) {
		return false
	}
	byName := make(map[string]string, len(a))
	for _, arg := range a {
		byName[arg.Name] = arg.Value.String()
	}
	for _, arg := range b {
		v, ok := byName[arg.Name]
		if !ok || v != arg.Value.String() {
			return false
		}
	}
	return true
}

// mergeSelectionSets unions the nested selections of fields merged under one
// response key.
func mergeSelectionSets(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}
