// Package resolver implements the store-backed resolver: queries are
// satisfied ahead of execution by walking the selection set level by level
// and fetching each level's relations in batched store calls.
package resolver

import (
	"context"

	executor "github.com/entgraph/entgraph/internal/executor"
	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
	store "github.com/entgraph/entgraph/internal/store"
)

// StoreResolver resolves queries against an in-memory entity store. Results
// are pure functions of the store contents, so they are cacheable.
type StoreResolver struct {
	executor.DefaultResolver
	store *store.Store
}

func New(st *store.Store) *StoreResolver {
	return &StoreResolver{store: st}
}

func (r *StoreResolver) Cacheable() bool { return true }

// Prefetch materializes the whole selection set from the store. See
// prefetch.go for the level-batched walk.
func (r *StoreResolver) Prefetch(ctx context.Context, ectx *executor.ExecContext, sel language.SelectionSet) (map[string]any, []*executor.Error) {
	return newPrefetcher(r, ectx).run(ctx, sel)
}

// ResolveObjects returns the slice materialized by Prefetch. Without a
// prefetched value it can only serve root collection fields, where no
// parent entity is needed.
func (r *StoreResolver) ResolveObjects(ctx context.Context, ectx *executor.ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *executor.Error) {
	if prefetched != nil {
		return prefetched, nil
	}
	if !r.isRootField(ectx, def) {
		return nil, executor.ErrResolution(errNeedsPrefetch(field.Name))
	}
	p := newPrefetcher(r, ectx)
	spec, errs := p.collectionSpecFromArgs(t.Def(), args)
	if len(errs) > 0 {
		return nil, errs[0]
	}
	items, err := p.fetchCollection(ctx, t, spec)
	if err != nil {
		return nil, err
	}
	return toValueList(items), nil
}

// ResolveObject is the singular counterpart; without a prefetched value it
// serves root get-by-id fields.
func (r *StoreResolver) ResolveObject(ctx context.Context, ectx *executor.ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *executor.Error) {
	if prefetched != nil {
		return prefetched, nil
	}
	if !r.isRootField(ectx, def) {
		return nil, executor.ErrResolution(errNeedsPrefetch(field.Name))
	}
	id, _ := args["id"].(string)
	if id == "" {
		return nil, executor.ErrValidation("field %q requires an id argument", field.Name)
	}
	e, ok := r.getByID(ctx, ectx.Schema, t, id)
	if !ok {
		return nil, nil
	}
	return map[string]any(e), nil
}

func (r *StoreResolver) isRootField(ectx *executor.ExecContext, def *schema.Field) bool {
	query := ectx.Schema.GetQueryType()
	if query == nil {
		return false
	}
	for _, f := range query.Fields {
		if f == def {
			return true
		}
	}
	return false
}

// getByID looks an id up across the entity types behind t. The write-time
// integrity rule guarantees at most one implementor holds the id.
func (r *StoreResolver) getByID(ctx context.Context, s *schema.Schema, t schema.ObjectOrInterface, id string) (store.Entity, bool) {
	for _, target := range entityTargets(s, t) {
		if e, ok := r.store.Get(ctx, target.Name, id); ok {
			return e, true
		}
	}
	return nil, false
}
