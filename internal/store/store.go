package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/entgraph/entgraph/internal/eventbus"
	"github.com/entgraph/entgraph/internal/events"
	schema "github.com/entgraph/entgraph/internal/schema"
)

// Entity is one stored record: attribute values keyed by field name, plus
// the id and __typename attributes stamped on write.
type Entity map[string]any

// Op is one write in a batch.
type Op struct {
	Type   string
	ID     string
	Data   map[string]any
	Remove bool
}

// ErrConflictingID reports a write rejected because another entity type that
// shares an interface with the written type already holds the same id.
type ErrConflictingID struct {
	Type     string
	Existing string
	ID       string
}

func (e *ErrConflictingID) Error() string {
	return fmt.Sprintf("tried to set entity of type `%s` with ID %q but an entity of type `%s`, which has an interface in common with `%s`, exists with the same ID",
		e.Type, e.ID, e.Existing, e.Type)
}

// Store is an in-memory entity store partitioned by entity type. Writes
// enforce the schema's interface integrity rule: two entities whose types
// share an interface may not use the same id, because a query through that
// interface could otherwise return both.
type Store struct {
	schema *schema.Schema

	mu       sync.RWMutex
	entities map[string]map[string]Entity
}

func New(s *schema.Schema) *Store {
	return &Store{
		schema:   s,
		entities: make(map[string]map[string]Entity),
	}
}

// Set writes one entity, replacing any previous version.
func (s *Store) Set(ctx context.Context, typeName, id string, data map[string]any) error {
	t := s.schema.GetNamedType(typeName)
	if t == nil || !t.IsEntity {
		return fmt.Errorf("store: %q is not an entity type", typeName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if other := s.collidingType(typeName, id); other != "" {
		return &ErrConflictingID{Type: typeName, Existing: other, ID: id}
	}

	e := make(Entity, len(data)+2)
	for k, v := range data {
		e[k] = v
	}
	e["id"] = id
	e["__typename"] = typeName

	if s.entities[typeName] == nil {
		s.entities[typeName] = make(map[string]Entity)
	}
	s.entities[typeName][id] = e

	eventbus.Publish(ctx, events.StoreWrite{EntityType: typeName, ID: id})
	return nil
}

// collidingType returns the name of an interface-sharing entity type that
// already holds id, or "". Caller holds the lock.
func (s *Store) collidingType(typeName, id string) string {
	for other, byID := range s.entities {
		if other == typeName {
			continue
		}
		if _, ok := byID[id]; !ok {
			continue
		}
		if s.schema.SharesInterface(typeName, other) {
			return other
		}
	}
	return ""
}

// Remove deletes one entity. Removing an absent entity is a no-op.
func (s *Store) Remove(ctx context.Context, typeName, id string) {
	s.mu.Lock()
	delete(s.entities[typeName], id)
	s.mu.Unlock()
	eventbus.Publish(ctx, events.StoreWrite{EntityType: typeName, ID: id, Removed: true})
}

// Apply runs a batch of writes, stopping at the first failure.
func (s *Store) Apply(ctx context.Context, ops []Op) error {
	for _, op := range ops {
		if op.Remove {
			s.Remove(ctx, op.Type, op.ID)
			continue
		}
		if err := s.Set(ctx, op.Type, op.ID, op.Data); err != nil {
			return err
		}
	}
	return nil
}

// Get returns a copy of one entity.
func (s *Store) Get(ctx context.Context, typeName, id string) (Entity, bool) {
	start := time.Now()
	eventbus.Publish(ctx, events.StoreQueryStart{EntityType: typeName, Kind: "get", BatchSize: 1})

	s.mu.RLock()
	e, ok := s.entities[typeName][id]
	s.mu.RUnlock()

	returned := 0
	if ok {
		e = e.clone()
		returned = 1
	}
	eventbus.Publish(ctx, events.StoreQueryFinish{
		EntityType: typeName, Kind: "get", BatchSize: 1,
		Returned: returned, Duration: time.Since(start),
	})
	return e, ok
}

// GetMany returns copies of the entities with the given ids, in id order.
// Absent ids are skipped.
func (s *Store) GetMany(ctx context.Context, typeName string, ids []string) []Entity {
	start := time.Now()
	eventbus.Publish(ctx, events.StoreQueryStart{EntityType: typeName, Kind: "many", BatchSize: len(ids)})

	s.mu.RLock()
	out := make([]Entity, 0, len(ids))
	for _, id := range ids {
		if e, ok := s.entities[typeName][id]; ok {
			out = append(out, e.clone())
		}
	}
	s.mu.RUnlock()

	eventbus.Publish(ctx, events.StoreQueryFinish{
		EntityType: typeName, Kind: "many", BatchSize: len(ids),
		Returned: len(out), Duration: time.Since(start),
	})
	return out
}

// Find returns copies of the entities of one type matching q, sorted and
// windowed per q.
func (s *Store) Find(ctx context.Context, typeName string, q Query) ([]Entity, error) {
	start := time.Now()
	eventbus.Publish(ctx, events.StoreQueryStart{EntityType: typeName, Kind: "find", BatchSize: 1})

	s.mu.RLock()
	matched := make([]Entity, 0, len(s.entities[typeName]))
	for _, e := range s.entities[typeName] {
		ok, err := q.Matches(e)
		if err != nil {
			s.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, e.clone())
		}
	}
	s.mu.RUnlock()

	SortEntities(matched, q.OrderBy, q.Descending)
	matched = window(matched, q.Skip, q.First)

	eventbus.Publish(ctx, events.StoreQueryFinish{
		EntityType: typeName, Kind: "find", BatchSize: 1,
		Returned: len(matched), Duration: time.Since(start),
	})
	return matched, nil
}

func (e Entity) clone() Entity {
	c := make(Entity, len(e))
	for k, v := range e {
		c[k] = v
	}
	return c
}

func window(items []Entity, skip, first int) []Entity {
	if skip > 0 {
		if skip >= len(items) {
			return nil
		}
		items = items[skip:]
	}
	if first > 0 && first < len(items) {
		items = items[:first]
	}
	return items
}
