package events

import "time"

// StoreQueryStart is emitted before a batched store query.
type StoreQueryStart struct {
	EntityType string
	Kind       string // "get", "many", "find"
	BatchSize  int
}

// StoreQueryFinish is emitted after a batched store query completes.
type StoreQueryFinish struct {
	EntityType string
	Kind       string
	BatchSize  int
	Returned   int
	Duration   time.Duration
}

// StoreWrite is emitted after an entity write is applied.
type StoreWrite struct {
	EntityType string
	ID         string
	Removed    bool
}
