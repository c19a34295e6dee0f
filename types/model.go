package types

// Node is a grounded observation subject: one NodeId maps to exactly one
// EntityId for the lifetime of the graph.
type Node struct {
	ID     NodeId
	Entity EntityId
}

// Edge is a directed, weighted association between two nodes. At most one
// Edge exists per ordered (From, To) pair.
type Edge struct {
	From   NodeId
	To     NodeId
	Weight EdgeWeight
}

// Signal is the sole ingestion unit: a raw (entity, attribute, value)
// triple. Validate must succeed before any of its fields are written to
// storage.
type Signal struct {
	EntityID  EntityId
	Attribute string
	Value     string
}

// Validate checks the signal's attribute and value lengths. It is pure: it
// touches no storage and returns the same *Error for the same input
// regardless of backend.
func (s Signal) Validate() error {
	if _, err := NewAttribute(s.Attribute); err != nil {
		return err
	}
	if _, err := NewValue(s.Value); err != nil {
		return err
	}
	return nil
}

// Artifact is the uniform result of every Compositor query: an ordered node
// path plus an optional ordered edge list. Subgraph is nil for queries with
// no edge concept (Lookup, Intersect) and for a StrongestPath that finds no
// path; Compose, ComposeFiltered and RelatedContext always return a
// non-nil, possibly empty slice.
type Artifact struct {
	Path     []NodeId
	Subgraph []Edge
}

// WithPath builds an Artifact carrying only a node path (no subgraph).
func WithPath(path []NodeId) Artifact {
	return Artifact{Path: path}
}

// WithSubgraph builds an Artifact carrying both a node path and the edges
// traversed to produce it.
func WithSubgraph(path []NodeId, subgraph []Edge) Artifact {
	return Artifact{Path: path, Subgraph: subgraph}
}
