package executor

import (
	"context"
	"fmt"
	"sync"

	language "github.com/entgraph/entgraph/internal/language"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// MockFieldFunc resolves one relation field in tests.
type MockFieldFunc func(ctx context.Context, prefetched any, args map[string]any) (any, error)

// Call records a single relation resolution for assertions.
type Call struct {
	ObjectType string
	Field      string
	List       bool
	Args       map[string]any
}

// MockResolver is a Resolver for engine tests. When Root is set, Prefetch
// returns it and relation fields read from the materialized tree; otherwise
// relation fields dispatch to Funcs keyed by field name.
type MockResolver struct {
	DefaultResolver

	Root         map[string]any
	PrefetchErrs []*Error
	Funcs        map[string]MockFieldFunc
	NotCacheable bool

	mu    sync.Mutex
	calls []Call
}

func (m *MockResolver) Cacheable() bool { return !m.NotCacheable }

func (m *MockResolver) Prefetch(ctx context.Context, ectx *ExecContext, sel language.SelectionSet) (map[string]any, []*Error) {
	if len(m.PrefetchErrs) > 0 {
		return nil, m.PrefetchErrs
	}
	return m.Root, nil
}

func (m *MockResolver) ResolveObjects(ctx context.Context, ectx *ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *Error) {
	return m.resolve(ctx, prefetched, field, t, args, true)
}

func (m *MockResolver) ResolveObject(ctx context.Context, ectx *ExecContext, prefetched any, field *language.Field, def *schema.Field, t schema.ObjectOrInterface, args map[string]any) (any, *Error) {
	return m.resolve(ctx, prefetched, field, t, args, false)
}

func (m *MockResolver) resolve(ctx context.Context, prefetched any, field *language.Field, t schema.ObjectOrInterface, args map[string]any, list bool) (any, *Error) {
	m.mu.Lock()
	m.calls = append(m.calls, Call{
		ObjectType: t.Name(),
		Field:      field.Name,
		List:       list,
		Args:       args,
	})
	m.mu.Unlock()

	if prefetched != nil {
		return prefetched, nil
	}
	if m.Root != nil {
		// The tree is authoritative; an absent key is a null relation.
		return nil, nil
	}
	if fn, ok := m.Funcs[field.Name]; ok {
		v, err := fn(ctx, prefetched, args)
		if err != nil {
			return nil, ErrResolution(err)
		}
		return v, nil
	}
	return nil, ErrResolution(fmt.Errorf("no mock for field %q on %q", field.Name, t.Name()))
}

// Calls returns a copy of the recorded relation resolutions.
func (m *MockResolver) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}
