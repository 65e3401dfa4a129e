package executor

// Path locates a value in the response tree: field response keys (string)
// and list indexes (int).
type Path []PathElement

type PathElement any

// Result is the outcome of executing one operation: an ordered value tree
// plus every error collected along the way. Data may be partially populated
// when Errors is non-empty.
type Result struct {
	Data   map[string]any `json:"data"`
	Errors []*Error       `json:"errors,omitempty"`
}
