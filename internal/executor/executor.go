package executor

import (
	"context"
	"fmt"
	"reflect"

	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// Executor drives query resolution against a Resolver. It holds no per-query
// state and is safe for concurrent use.
type Executor struct {
	resolver Resolver
	schema   *schema.Schema
}

func New(resolver Resolver, sch *schema.Schema) *Executor {
	return &Executor{resolver: resolver, schema: sch}
}

// Cacheable reports whether results produced through this executor may be
// cached by callers. It mirrors the resolver's declaration.
func (e *Executor) Cacheable() bool { return e.resolver.Cacheable() }

// Execute runs one operation of the parsed document and returns the ordered
// result value tree together with every error collected during planning and
// resolution. Partial data accompanies a non-empty error list.
func (e *Executor) Execute(ctx context.Context, doc *language.QueryDocument, operationName string, variables map[string]any) *Result {
	operation := getOperation(doc, operationName)
	if operation == nil {
		return &Result{Errors: []*Error{ErrValidation("operation not found")}}
	}
	switch operation.Operation {
	case language.Query:
	case language.Subscription:
		return &Result{Errors: []*Error{ErrNotSupported("subscription operations")}}
	default:
		return &Result{Errors: []*Error{ErrNotSupported("mutation operations")}}
	}

	coerced, err := coerceVariableValues(e.schema, operation, variables)
	if err != nil {
		return &Result{Errors: []*Error{ErrValidation("%s", err.Error())}}
	}

	rootType := e.schema.GetQueryType()
	if rootType == nil {
		return &Result{Errors: []*Error{ErrValidation("schema has no query type")}}
	}

	state := &executionState{
		ctx:      ctx,
		resolver: e.resolver,
		ectx: &ExecContext{
			Schema:    e.schema,
			Document:  doc,
			Variables: coerced,
		},
		planSeen:  map[string]bool{},
		planCache: map[planKey]planEntry{},
	}

	// Whole-tree prefetch first; planning errors found there abort the
	// execution as a unit.
	prefetched, perrs := e.resolver.Prefetch(ctx, state.ectx, operation.SelectionSet)
	if len(perrs) > 0 {
		return &Result{Errors: perrs}
	}

	data := executeSelectionSet(state, schema.Object(rootType), rootType, operation.SelectionSet, prefetched, Path{})
	return &Result{Data: data, Errors: state.errors}
}

// executionState holds the mutable state of one execution.
type executionState struct {
	ctx      context.Context
	resolver Resolver
	ectx     *ExecContext
	errors   []*Error

	// planSeen dedupes planning errors so an offending reference is
	// reported once, not once per matching entity.
	planSeen map[string]bool
	// planCache shares resolution plans between entities of the same
	// concrete type at the same position.
	planCache map[planKey]planEntry
}

type planKey struct {
	sel      string
	scope    string
	concrete string
}

type planEntry struct {
	fields []CollectedField
	errs   []*Error
}

// plan returns the resolution plan for one concrete type at one position,
// computing it at most once per (selection set, concrete type) pair. The
// key covers the whole selection set: at an interface position two concrete
// types produce different merged sets that share a leading node.
func (s *executionState) plan(scope schema.ObjectOrInterface, concrete *schema.Type, sel language.SelectionSet) ([]CollectedField, []*Error) {
	if len(sel) == 0 {
		return nil, nil
	}
	key := planKey{sel: language.SelectionKey(sel), scope: scope.Name(), concrete: concrete.Name}
	if entry, ok := s.planCache[key]; ok {
		return entry.fields, entry.errs
	}
	fields, errs := CollectFields(s.ectx, scope, concrete, sel)
	s.planCache[key] = planEntry{fields: fields, errs: errs}
	return fields, errs
}

func (s *executionState) addError(err *Error) {
	s.errors = append(s.errors, err)
}

func (s *executionState) addPlanErrors(errs []*Error, path Path) {
	for _, err := range errs {
		if s.planSeen[err.Message] {
			continue
		}
		s.planSeen[err.Message] = true
		s.errors = append(s.errors, err.WithPath(path))
	}
}

// hasErrorAtPath reports whether an error with the given path already exists.
func (s *executionState) hasErrorAtPath(path Path) bool {
	for _, err := range s.errors {
		if reflect.DeepEqual(err.Path, path) {
			return true
		}
	}
	return false
}

// executeSelectionSet resolves the planned fields of one object value.
// Returns nil when a non-null violation must propagate to the parent.
func executeSelectionSet(state *executionState, scope schema.ObjectOrInterface, concrete *schema.Type, sel language.SelectionSet, objectValue any, path Path) map[string]any {
	plan, errs := state.plan(scope, concrete, sel)
	state.addPlanErrors(errs, path)

	result := make(map[string]any, len(plan))
	for _, cf := range plan {
		fieldPath := appendPath(path, cf.ResponseKey)

		if cf.Def == nil {
			// __typename is always resolvable.
			result[cf.ResponseKey] = concrete.Name
			continue
		}

		value := resolveField(state, concrete, objectValue, cf, fieldPath)

		if schema.IsNonNull(cf.Def.Type) && isNullish(value) {
			if len(path) > 0 {
				return nil
			}
			result[cf.ResponseKey] = nil
			continue
		}
		if isNullish(value) {
			result[cf.ResponseKey] = nil
		} else {
			result[cf.ResponseKey] = value
		}
	}
	return result
}

// resolveField fetches one field's value through the resolver and completes
// it against the field's declared type.
func resolveField(state *executionState, concrete *schema.Type, objectValue any, cf CollectedField, path Path) any {
	def := cf.Def
	field := cf.Fields[0]
	args := coerceArgumentValues(def, field.Arguments, state.ectx.Variables, state, path)

	named := state.ectx.Schema.GetNamedType(schema.GetNamedType(def.Type))
	if named == nil {
		state.addError(ErrValidation("unknown type %q", schema.GetNamedType(def.Type)).WithPath(path))
		return nil
	}

	switch named.Kind {
	case schema.TypeKindObject, schema.TypeKindInterface:
		oi, _ := schema.AsObjectOrInterface(named)
		prefetched, present := rawFieldValue(objectValue, cf.ResponseKey)
		if !present && cf.ResponseKey != def.Name {
			// ObjectSource values key by field name, not response key.
			if _, ok := objectValue.(ObjectSource); ok {
				prefetched, present = rawFieldValue(objectValue, def.Name)
			}
		}
		if present && isNullish(prefetched) {
			// The prefetch already determined the relation is null.
			return completeValue(state, def.Type, cf.Fields, nil, path)
		}
		var value any
		var rerr *Error
		if def.Type.IsList() {
			value, rerr = state.resolver.ResolveObjects(state.ctx, state.ectx, prefetched, field, def, oi, args)
		} else {
			value, rerr = state.resolver.ResolveObject(state.ctx, state.ectx, prefetched, field, def, oi, args)
		}
		if rerr != nil {
			state.addError(rerr.WithPath(path))
			return nil
		}
		return completeValue(state, def.Type, cf.Fields, value, path)

	case schema.TypeKindUnion:
		// Union values are only reachable through prefetched trees; they
		// are completed via their __typename tag.
		prefetched, _ := rawFieldValue(objectValue, cf.ResponseKey)
		return completeValue(state, def.Type, cf.Fields, prefetched, path)

	case schema.TypeKindEnum:
		raw, _ := rawFieldValue(objectValue, def.Name)
		var value any
		var rerr *Error
		if def.Type.IsList() {
			value, rerr = state.resolver.ResolveEnumValues(named, field, raw)
		} else {
			value, rerr = state.resolver.ResolveEnumValue(named, field, raw)
		}
		if rerr != nil {
			state.addError(rerr.WithPath(path))
			return nil
		}
		return completeValue(state, def.Type, cf.Fields, value, path)

	case schema.TypeKindScalar:
		raw, _ := rawFieldValue(objectValue, def.Name)
		var value any
		var rerr *Error
		if def.Type.IsList() {
			value, rerr = state.resolver.ResolveScalarValues(schema.Object(concrete), field, named, raw)
		} else {
			value, rerr = state.resolver.ResolveScalarValue(schema.Object(concrete), field, named, raw, args)
		}
		if rerr != nil {
			state.addError(rerr.WithPath(path))
			return nil
		}
		return completeValue(state, def.Type, cf.Fields, value, path)

	default:
		state.addError(ErrValidation("cannot resolve field of %s type %q", named.Kind, named.Name).WithPath(path))
		return nil
	}
}

// completeValue completes a resolved value against its declared type,
// applying non-null and list rules and recursing into object values.
func completeValue(state *executionState, fieldType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	if schema.IsNonNull(fieldType) {
		if isNullish(result) {
			if !state.hasErrorAtPath(path) {
				state.addError(&Error{
					Kind:    KindResolution,
					Message: fmt.Sprintf("Cannot return null for non-nullable field %s", pathToString(path)),
					Path:    path,
				})
			}
			return nil
		}
		completed := completeValue(state, schema.Unwrap(fieldType), fields, result, path)
		if isNullish(completed) {
			// Error already recorded at the original path; propagate only.
			return nil
		}
		return completed
	}

	if isNullish(result) {
		return nil
	}

	if schema.IsList(fieldType) {
		return completeListValue(state, fieldType, fields, result, path)
	}

	namedName := schema.GetNamedType(fieldType)
	named := state.ectx.Schema.GetNamedType(namedName)
	if named == nil {
		state.addError(ErrValidation("unknown type %q", namedName).WithPath(path))
		return nil
	}

	switch named.Kind {
	case schema.TypeKindScalar, schema.TypeKindEnum:
		// Leaf values were already passed through the resolver.
		return result
	case schema.TypeKindObject:
		sub := mergeSelectionSets(fields)
		return executeSelectionSet(state, schema.Object(named), named, sub, result, path)
	case schema.TypeKindInterface, schema.TypeKindUnion:
		concrete := state.resolver.ResolveAbstractType(state.ectx.Schema, named, result)
		scope, ok := schema.AsObjectOrInterface(named)
		if !ok {
			scope = schema.Object(concrete)
		}
		sub := mergeSelectionSets(fields)
		return executeSelectionSet(state, scope, concrete, sub, result, path)
	default:
		state.addError(ErrValidation("cannot complete value of %s type %q", named.Kind, named.Name).WithPath(path))
		return nil
	}
}

func completeListValue(state *executionState, listType *schema.TypeRef, fields []*language.Field, result any, path Path) any {
	var items []any
	if direct, ok := result.([]any); ok {
		items = direct
	} else {
		rv := reflect.ValueOf(result)
		if rv.Kind() != reflect.Slice {
			state.addError(ErrValidation("expected list value, got %T", result).WithPath(path))
			return nil
		}
		items = make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			items[i] = rv.Index(i).Interface()
		}
	}

	inner := schema.Unwrap(listType)
	completed := make([]any, len(items))
	for i, item := range items {
		p := appendPath(path, i)
		v := completeValue(state, inner, fields, item, p)
		if schema.IsNonNull(inner) && isNullish(v) {
			// A null element nullifies the whole list; the element error
			// was already recorded.
			return nil
		}
		completed[i] = v
	}
	return completed
}

func getOperation(document *language.QueryDocument, operationName string) *language.OperationDefinition {
	if operationName == "" && len(document.Operations) == 1 {
		return document.Operations[0]
	}
	for _, op := range document.Operations {
		if op.Name == operationName {
			return op
		}
	}
	return nil
}

func appendPath(path Path, elem PathElement) Path {
	newPath := make(Path, len(path)+1)
	copy(newPath, path)
	newPath[len(path)] = elem
	return newPath
}

func pathToString(path Path) string {
	result := ""
	for i, elem := range path {
		switch v := elem.(type) {
		case string:
			if i > 0 {
				result += "."
			}
			result += v
		case int:
			result += fmt.Sprintf("[%d]", v)
		}
	}
	return result
}

// isNullish returns true for nil interfaces and typed nils.
func isNullish(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Interface, reflect.Ptr, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return rv.IsNil()
	default:
		return false
	}
}
