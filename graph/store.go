// Package graph defines the GraphStore contract every backend implements
// (spec §4.b) and provides the in-memory implementation (spec §4.c). The
// persistent implementation lives in package kvgraph; both satisfy
// GraphStore so Ingestor and Compositor never need to know which backend
// they're driving.
package graph

import "kremis-core/types"

// PropertyEntry is one attribute's ordered value sequence for a node, as
// returned by GetProperties. Values preserve insertion order; duplicates
// are never deduplicated.
type PropertyEntry struct {
	Attribute types.Attribute
	Values    []types.Value
}

// Neighbor is one outgoing edge target and its current weight, as returned
// by Neighbors.
type Neighbor struct {
	To     types.NodeId
	Weight types.EdgeWeight
}

// NodeProperties is one (node, attribute) property record in a Snapshot.
type NodeProperties struct {
	Node      types.NodeId
	Attribute types.Attribute
	Values    []types.Value
}

// Snapshot is a fully materialized, deterministically ordered image of a
// graph: every field is sorted in the natural order of its key, matching
// the ordering invariant spec §3 demands of all observable iteration. It is
// the shape both the canonical and persistence codecs serialize and the
// shape Snapshot() returns regardless of backend.
type Snapshot struct {
	Nodes      []types.Node       // sorted by NodeId
	Edges      []types.Edge       // sorted by (From, To)
	NextNodeID uint64
	Properties []NodeProperties // sorted by (NodeId, Attribute)
}

// GraphStore is the uniform contract both backends implement (spec §4.b).
// Every method's semantics — including iteration order — must be identical
// across implementations: the same signal sequence fed to two backends
// must produce byte-identical canonical exports.
type GraphStore interface {
	// UpsertNode returns the existing NodeId for entity if one was already
	// assigned, or mints and assigns the next NodeId otherwise. Idempotent.
	UpsertNode(entity types.EntityId) (types.NodeId, error)

	// AppendProperty appends value to the ordered sequence at (node, attr),
	// creating the bucket if absent. Never deduplicates. Fails with
	// NodeNotFound if node does not exist.
	AppendProperty(node types.NodeId, attr types.Attribute, value types.Value) error

	// GetProperties returns every attribute recorded for node, sorted by
	// attribute, each with its values in append order. found is false if
	// node does not exist.
	GetProperties(node types.NodeId) (entries []PropertyEntry, found bool, err error)

	// IncrementEdge creates the edge (from, to) at weight 1 if absent, or
	// saturating-adds 1 to its current weight. Fails with NodeNotFound if
	// either endpoint does not exist.
	IncrementEdge(from, to types.NodeId) (types.EdgeWeight, error)

	// SetEdge materializes the edge (from, to) at exactly weight, creating
	// the key if absent, in one operation. Unlike IncrementEdge/
	// DecrementEdge it does not accumulate: it is the primitive a snapshot
	// replay (codec import) uses to reproduce an edge's exact recorded
	// weight, including 0, without N saturating mutations. Fails with
	// NodeNotFound if either endpoint does not exist.
	SetEdge(from, to types.NodeId, weight types.EdgeWeight) error

	// DecrementEdge saturating-subtracts 1 from the edge's weight, floored
	// at 0; the edge key is retained. Fails with EdgeNotFound if the edge
	// does not exist.
	DecrementEdge(from, to types.NodeId) (types.EdgeWeight, error)

	// Neighbors returns node's outgoing edges sorted by target NodeId.
	Neighbors(node types.NodeId) ([]Neighbor, error)

	// GetEdgeWeight returns the weight of edge (from, to), if it exists.
	GetEdgeWeight(from, to types.NodeId) (weight types.EdgeWeight, found bool, err error)

	// Lookup performs a constant-time index lookup from entity to its
	// assigned NodeId, if any.
	Lookup(entity types.EntityId) (node types.NodeId, found bool, err error)

	// ContainsNode reports whether node has been assigned.
	ContainsNode(node types.NodeId) (bool, error)

	// NodeCount, EdgeCount, StableEdgeCount report the current graph size.
	// StableEdgeCount counts only edges with weight >= StableEdgeThreshold.
	NodeCount() (uint64, error)
	EdgeCount() (uint64, error)
	StableEdgeCount() (uint64, error)

	// Snapshot returns a fully materialized, deterministically ordered
	// image of the whole graph, used by the codecs.
	Snapshot() (*Snapshot, error)

	// BatchIngest validates and applies every signal's (upsert-node,
	// append-property) effects atomically: either every signal's effects
	// become visible or none do. It does not create edges; sequence
	// association is done by ingestor.IngestSequence, which ingests signal
	// by signal and does not call BatchIngest.
	BatchIngest(signals []types.Signal) ([]types.NodeId, error)
}
