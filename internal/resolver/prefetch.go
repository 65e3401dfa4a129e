package resolver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	executor "github.com/entgraph/entgraph/internal/executor"
	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
	store "github.com/entgraph/entgraph/internal/store"
	"golang.org/x/sync/errgroup"
)

// node is one materialized object awaiting relation resolution. Its value
// map is shared with the result tree, so assignments to it are visible in
// the final result.
type node struct {
	value    map[string]any
	scope    schema.ObjectOrInterface
	concrete *schema.Type
	sel      language.SelectionSet
	root     bool
}

// prefetcher walks a selection set breadth-first. Each level issues one
// batched store call per (relation position, target entity type) pair, so
// the number of store round trips grows with query depth, never with the
// number of entities.
type prefetcher struct {
	resolver *StoreResolver
	ectx     *executor.ExecContext
	errs     []*executor.Error
	seen     map[string]bool
	plans    map[planKey]planEntry
}

type planKey struct {
	sel      string
	scope    string
	concrete string
}

type planEntry struct {
	fields []executor.CollectedField
	errs   []*executor.Error
}

func newPrefetcher(r *StoreResolver, ectx *executor.ExecContext) *prefetcher {
	return &prefetcher{
		resolver: r,
		ectx:     ectx,
		seen:     map[string]bool{},
		plans:    map[planKey]planEntry{},
	}
}

func (p *prefetcher) run(ctx context.Context, sel language.SelectionSet) (map[string]any, []*executor.Error) {
	query := p.ectx.Schema.GetQueryType()
	if query == nil {
		return nil, []*executor.Error{executor.ErrValidation("schema has no query type")}
	}
	root := map[string]any{}
	level := []*node{{
		value:    root,
		scope:    schema.Object(query),
		concrete: query,
		sel:      sel,
		root:     true,
	}}
	for len(level) > 0 {
		next, ok := p.processLevel(ctx, level)
		if !ok {
			return nil, p.errs
		}
		level = next
	}
	if len(p.errs) > 0 {
		return nil, p.errs
	}
	return root, nil
}

func (p *prefetcher) plan(scope schema.ObjectOrInterface, concrete *schema.Type, sel language.SelectionSet) ([]executor.CollectedField, []*executor.Error) {
	if len(sel) == 0 {
		return nil, nil
	}
	key := planKey{sel: language.SelectionKey(sel), scope: scope.Name(), concrete: concrete.Name}
	if entry, ok := p.plans[key]; ok {
		return entry.fields, entry.errs
	}
	fields, errs := executor.CollectFields(p.ectx, scope, concrete, sel)
	p.plans[key] = planEntry{fields: fields, errs: errs}
	return fields, errs
}

func (p *prefetcher) addErr(err *executor.Error) {
	if p.seen[err.Message] {
		return
	}
	p.seen[err.Message] = true
	p.errs = append(p.errs, err)
}

func (p *prefetcher) addErrs(errs []*executor.Error) {
	for _, err := range errs {
		p.addErr(err)
	}
}

// group is one relation position of the current level with every parent
// that selects it. All parents share the same leading AST field node,
// hence the same arguments; their planned field lists can still differ per
// concrete type when fragments widen the position, so the group's
// sub-selection is the union of every parent's fields. Over-fetching is
// harmless: the engine only emits the fields planned for each concrete
// type.
type group struct {
	cf        executor.CollectedField
	fields    []*language.Field
	fieldSeen map[*language.Field]bool
	named     *schema.Type
	oi        schema.ObjectOrInterface
	args      map[string]any
	root      bool
	parents   []*node
}

func (g *group) addFields(fields []*language.Field) {
	for _, f := range fields {
		if g.fieldSeen[f] {
			continue
		}
		g.fieldSeen[f] = true
		g.fields = append(g.fields, f)
	}
}

type assignment struct {
	parent *node
	key    string
	value  any
}

type groupResult struct {
	assignments []assignment
	children    []*node
}

// processLevel plans every node of the level, fetches the level's relation
// groups concurrently, then applies the results and returns the next level.
// Returns ok=false when planning errors abort the prefetch.
func (p *prefetcher) processLevel(ctx context.Context, level []*node) ([]*node, bool) {
	var order []language.Selection
	groups := map[language.Selection]*group{}

	for _, n := range level {
		fields, errs := p.plan(n.scope, n.concrete, n.sel)
		p.addErrs(errs)
		for _, cf := range fields {
			if cf.Def == nil {
				continue
			}
			named := p.ectx.Schema.GetNamedType(schema.GetNamedType(cf.Def.Type))
			if named == nil {
				p.addErr(executor.ErrValidation("unknown type %q", schema.GetNamedType(cf.Def.Type)))
				continue
			}
			switch named.Kind {
			case schema.TypeKindObject, schema.TypeKindInterface:
			case schema.TypeKindUnion:
				p.addErr(executor.ErrNotSupported("union-typed entity fields"))
				continue
			default:
				// Leaf attributes are already present in the entity map.
				continue
			}

			oi, ok := schema.AsObjectOrInterface(named)
			if !ok {
				continue
			}
			if len(entityTargets(p.ectx.Schema, oi)) == 0 {
				// Non-entity object fields (introspection among them) are
				// left absent so the engine falls back to per-field
				// resolution.
				continue
			}

			key := language.Selection(cf.Fields[0])
			g := groups[key]
			if g == nil {
				args, argErrs := executor.CoerceArgumentValues(cf.Def, cf.Fields[0].Arguments, p.ectx.Variables)
				p.addErrs(argErrs)
				g = &group{cf: cf, fieldSeen: map[*language.Field]bool{}, named: named, oi: oi, args: args, root: n.root}
				groups[key] = g
				order = append(order, key)
			}
			g.addFields(cf.Fields)
			g.parents = append(g.parents, n)
		}
	}

	if len(p.errs) > 0 {
		return nil, false
	}

	results := make([]groupResult, len(order))
	eg, gctx := errgroup.WithContext(ctx)
	for i, key := range order {
		i, g := i, groups[key]
		eg.Go(func() error {
			res, err := p.fetchGroup(gctx, g)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		p.addErr(executor.ErrResolution(err))
		return nil, false
	}

	// Apply sequentially: groups may share parent maps.
	var next []*node
	for i := range results {
		for _, a := range results[i].assignments {
			a.parent.value[a.key] = a.value
		}
		next = append(next, results[i].children...)
	}
	return next, true
}

func (p *prefetcher) fetchGroup(ctx context.Context, g *group) (groupResult, error) {
	def := g.cf.Def
	sub := mergeSelections(g.fields)
	spec, errs := p.collectionSpecFromArgs(g.named, g.args)
	if len(errs) > 0 {
		return groupResult{}, errs[0]
	}

	switch {
	case g.root && def.Type.IsList():
		return p.fetchRootCollection(ctx, g, sub, spec)
	case g.root:
		return p.fetchRootByID(ctx, g, sub)
	case def.IsDerived():
		return p.fetchDerived(ctx, g, sub, spec)
	case def.Type.IsList():
		return p.fetchForwardList(ctx, g, sub, spec)
	default:
		return p.fetchForwardSingle(ctx, g, sub)
	}
}

// fetchRootCollection serves generated collection fields: one Find per
// target entity type, merged and ordered globally before windowing.
func (p *prefetcher) fetchRootCollection(ctx context.Context, g *group, sub language.SelectionSet, spec collectionSpec) (groupResult, error) {
	items, err := p.fetchCollection(ctx, g.oi, spec)
	if err != nil {
		return groupResult{}, err
	}
	var res groupResult
	values := make([]any, len(items))
	for i, e := range items {
		child := p.childNode(map[string]any(e), g.oi, sub)
		values[i] = child.value
		res.children = append(res.children, child)
	}
	for _, parent := range g.parents {
		res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: values})
	}
	return res, nil
}

func (p *prefetcher) fetchRootByID(ctx context.Context, g *group, sub language.SelectionSet) (groupResult, error) {
	var res groupResult
	var value any
	id, _ := g.args["id"].(string)
	if id != "" {
		if e, ok := p.resolver.getByID(ctx, p.ectx.Schema, g.oi, id); ok {
			child := p.childNode(map[string]any(e), g.oi, sub)
			value = child.value
			res.children = append(res.children, child)
		}
	}
	for _, parent := range g.parents {
		res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: value})
	}
	return res, nil
}

// fetchForwardSingle resolves relations stored as an id attribute on the
// parent. All parent references are satisfied by one batch per target type.
func (p *prefetcher) fetchForwardSingle(ctx context.Context, g *group, sub language.SelectionSet) (groupResult, error) {
	def := g.cf.Def
	var ids []string
	for _, parent := range g.parents {
		if id, ok := parent.value[def.Name].(string); ok {
			ids = append(ids, id)
		}
	}
	index, err := p.fetchByIDs(ctx, g.oi, ids)
	if err != nil {
		return groupResult{}, err
	}

	var res groupResult
	attached := map[string]*node{}
	for _, parent := range g.parents {
		var value any
		if id, ok := parent.value[def.Name].(string); ok {
			if e, found := index[id]; found {
				child := attached[id]
				if child == nil {
					child = p.childNode(map[string]any(e), g.oi, sub)
					attached[id] = child
					res.children = append(res.children, child)
				}
				value = child.value
			}
		}
		res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: value})
	}
	return res, nil
}

// fetchForwardList resolves relations stored as a list of ids on the
// parent, preserving the stored order unless an explicit orderBy is given.
func (p *prefetcher) fetchForwardList(ctx context.Context, g *group, sub language.SelectionSet, spec collectionSpec) (groupResult, error) {
	def := g.cf.Def
	var all []string
	perParent := make([][]string, len(g.parents))
	for i, parent := range g.parents {
		refs := idList(parent.value[def.Name])
		perParent[i] = refs
		all = append(all, refs...)
	}
	index, err := p.fetchByIDs(ctx, g.oi, all)
	if err != nil {
		return groupResult{}, err
	}

	filter := store.Query{Where: spec.conds}
	var res groupResult
	attached := map[string]*node{}
	for i, parent := range g.parents {
		items := make([]store.Entity, 0, len(perParent[i]))
		for _, id := range perParent[i] {
			e, found := index[id]
			if !found {
				continue
			}
			ok, merr := filter.Matches(e)
			if merr != nil {
				return groupResult{}, merr
			}
			if ok {
				items = append(items, e)
			}
		}
		if spec.orderBy != "" {
			store.SortEntities(items, spec.orderBy, spec.desc)
		}
		items = windowEntities(items, spec)

		values := make([]any, len(items))
		for j, e := range items {
			id, _ := e["id"].(string)
			child := attached[id]
			if child == nil {
				child = p.childNode(map[string]any(e), g.oi, sub)
				attached[id] = child
				res.children = append(res.children, child)
			}
			values[j] = child.value
		}
		res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: values})
	}
	return res, nil
}

// fetchDerived resolves reverse relations: one Find per target type over
// every parent id at once, distributed per parent afterwards.
func (p *prefetcher) fetchDerived(ctx context.Context, g *group, sub language.SelectionSet, spec collectionSpec) (groupResult, error) {
	def := g.cf.Def

	parentIDs := make([]any, 0, len(g.parents))
	seen := map[string]bool{}
	for _, parent := range g.parents {
		if id, ok := parent.value["id"].(string); ok && !seen[id] {
			seen[id] = true
			parentIDs = append(parentIDs, id)
		}
	}

	conds := append([]store.Condition{{Field: def.DerivedFrom, Op: store.OpIn, Value: parentIDs}}, spec.conds...)
	byParent := map[string][]store.Entity{}
	for _, target := range entityTargets(p.ectx.Schema, g.oi) {
		items, err := p.resolver.store.Find(ctx, target.Name, store.Query{Where: conds})
		if err != nil {
			return groupResult{}, executor.ErrResolution(err)
		}
		for _, e := range items {
			if id, ok := e[def.DerivedFrom].(string); ok {
				byParent[id] = append(byParent[id], e)
			}
		}
	}

	var res groupResult
	for _, parent := range g.parents {
		parentID, _ := parent.value["id"].(string)
		items := byParent[parentID]
		store.SortEntities(items, spec.orderBy, spec.desc)
		items = windowEntities(items, spec)

		if !def.Type.IsList() {
			var value any
			if len(items) > 0 {
				child := p.childNode(map[string]any(items[0]), g.oi, sub)
				value = child.value
				res.children = append(res.children, child)
			}
			res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: value})
			continue
		}

		values := make([]any, len(items))
		for j, e := range items {
			child := p.childNode(map[string]any(e), g.oi, sub)
			values[j] = child.value
			res.children = append(res.children, child)
		}
		res.assignments = append(res.assignments, assignment{parent: parent, key: g.cf.ResponseKey, value: values})
	}
	return res, nil
}

// fetchCollection merges a Find over every entity type behind oi and orders
// the union globally, so interface collections interleave their
// implementors instead of concatenating them.
func (p *prefetcher) fetchCollection(ctx context.Context, oi schema.ObjectOrInterface, spec collectionSpec) ([]store.Entity, *executor.Error) {
	var merged []store.Entity
	for _, target := range entityTargets(p.ectx.Schema, oi) {
		items, err := p.resolver.store.Find(ctx, target.Name, store.Query{Where: spec.conds})
		if err != nil {
			return nil, executor.ErrResolution(err)
		}
		merged = append(merged, items...)
	}
	store.SortEntities(merged, spec.orderBy, spec.desc)
	return windowEntities(merged, spec), nil
}

// fetchByIDs loads ids across the entity types behind oi, one GetMany per
// type. The write-time integrity rule guarantees each id resolves to at
// most one entity.
func (p *prefetcher) fetchByIDs(ctx context.Context, oi schema.ObjectOrInterface, ids []string) (map[string]store.Entity, error) {
	unique := make([]string, 0, len(ids))
	seen := map[string]bool{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	index := make(map[string]store.Entity, len(unique))
	if len(unique) == 0 {
		return index, nil
	}
	for _, target := range entityTargets(p.ectx.Schema, oi) {
		for _, e := range p.resolver.store.GetMany(ctx, target.Name, unique) {
			if id, ok := e["id"].(string); ok {
				index[id] = e
			}
		}
	}
	return index, nil
}

func (p *prefetcher) childNode(value map[string]any, oi schema.ObjectOrInterface, sel language.SelectionSet) *node {
	concrete := oi.Def()
	if oi.IsInterface() {
		if name, ok := value["__typename"].(string); ok {
			if t := p.ectx.Schema.GetNamedType(name); t != nil {
				concrete = t
			}
		}
	}
	return &node{value: value, scope: oi, concrete: concrete, sel: sel}
}

// collectionSpec is the store-level reading of one field's collection
// arguments.
type collectionSpec struct {
	conds   []store.Condition
	orderBy string
	desc    bool
	skip    int
	first   int
}

func (p *prefetcher) collectionSpecFromArgs(named *schema.Type, args map[string]any) (collectionSpec, []*executor.Error) {
	var spec collectionSpec
	var errs []*executor.Error

	if where, ok := args["where"].(map[string]any); ok {
		keys := make([]string, 0, len(where))
		for k := range where {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, key := range keys {
			field := key
			op := store.OpEq
			if strings.HasSuffix(key, "_in") {
				field = strings.TrimSuffix(key, "_in")
				op = store.OpIn
			}
			if named.Field(field) == nil {
				errs = append(errs, executor.ErrValidation("type `%s` has no field `%s` to filter on", named.Name, field))
				continue
			}
			spec.conds = append(spec.conds, store.Condition{Field: field, Op: op, Value: where[key]})
		}
	}

	if orderBy, ok := args["orderBy"].(string); ok {
		if named.Field(orderBy) == nil {
			errs = append(errs, executor.ErrValidation("type `%s` has no field `%s` to order by", named.Name, orderBy))
		} else {
			spec.orderBy = orderBy
		}
	}
	spec.desc = args["orderDirection"] == "desc"
	spec.skip = toInt(args["skip"])
	spec.first = toInt(args["first"])
	return spec, errs
}

func windowEntities(items []store.Entity, spec collectionSpec) []store.Entity {
	if spec.skip > 0 {
		if spec.skip >= len(items) {
			return nil
		}
		items = items[spec.skip:]
	}
	if spec.first > 0 && spec.first < len(items) {
		items = items[:spec.first]
	}
	return items
}

// entityTargets lists the concrete entity types a fetch through oi fans
// out over.
func entityTargets(s *schema.Schema, oi schema.ObjectOrInterface) []*schema.Type {
	if oi.IsObject() {
		if oi.Def().IsEntity {
			return []*schema.Type{oi.Def()}
		}
		return nil
	}
	names, _ := s.TypesForInterface(oi.Name())
	targets := make([]*schema.Type, 0, len(names))
	for _, name := range names {
		if t := s.GetNamedType(name); t != nil && t.IsEntity {
			targets = append(targets, t)
		}
	}
	return targets
}

func idList(v any) []string {
	switch refs := v.(type) {
	case []string:
		return refs
	case []any:
		out := make([]string, 0, len(refs))
		for _, ref := range refs {
			if id, ok := ref.(string); ok {
				out = append(out, id)
			}
		}
		return out
	default:
		return nil
	}
}

func toInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

func mergeSelections(fields []*language.Field) language.SelectionSet {
	if len(fields) == 1 {
		return fields[0].SelectionSet
	}
	var merged language.SelectionSet
	for _, f := range fields {
		merged = append(merged, f.SelectionSet...)
	}
	return merged
}

func toValueList(items []store.Entity) []any {
	out := make([]any, len(items))
	for i, e := range items {
		out[i] = map[string]any(e)
	}
	return out
}

func errNeedsPrefetch(name string) error {
	return fmt.Errorf("field %q requires prefetched data", name)
}
