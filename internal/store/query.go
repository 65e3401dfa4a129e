package store

import (
	"fmt"
	"sort"
)

// Op identifiers for filter conditions.
type CondOp string

const (
	OpEq CondOp = "eq"
	OpIn CondOp = "in"
)

// Condition is one attribute predicate.
type Condition struct {
	Field string
	Op    CondOp
	Value any
}

// Query selects, orders and windows entities of one type.
type Query struct {
	Where      []Condition
	OrderBy    string
	Descending bool
	Skip       int
	First      int // <= 0 means no limit
}

// Matches reports whether e satisfies every condition of q.
func (q Query) Matches(e Entity) (bool, error) {
	for _, c := range q.Where {
		v := e[c.Field]
		switch c.Op {
		case OpEq:
			if Compare(v, c.Value) != 0 {
				return false, nil
			}
		case OpIn:
			if !valueIn(v, c.Value) {
				return false, nil
			}
		default:
			return false, fmt.Errorf("store: unknown condition op %q", c.Op)
		}
	}
	return true, nil
}

func valueIn(v, set any) bool {
	switch s := set.(type) {
	case []any:
		for _, candidate := range s {
			if Compare(v, candidate) == 0 {
				return true
			}
		}
	case []string:
		for _, candidate := range s {
			if Compare(v, candidate) == 0 {
				return true
			}
		}
	}
	return false
}

// SortEntities orders by the given attribute with id as tiebreaker, so
// result order is deterministic regardless of map iteration.
func SortEntities(items []Entity, orderBy string, descending bool) {
	if orderBy == "" {
		orderBy = "id"
	}
	sort.SliceStable(items, func(i, j int) bool {
		c := Compare(items[i][orderBy], items[j][orderBy])
		if c == 0 {
			c = Compare(items[i]["id"], items[j]["id"])
		}
		if descending {
			return c > 0
		}
		return c < 0
	})
}

// Compare orders attribute values: nil first, then numerics, booleans
// and strings within their kind. Mixed kinds fall back to string form.
func Compare(a, b any) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}

	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	as, bs := stringify(a), stringify(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func stringify(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
