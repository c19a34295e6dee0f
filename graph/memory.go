package graph

import (
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"kremis-core/types"
)

// uint64Comparator orders keys the way every NodeId/EntityId-keyed treemap
// in this package needs: ascending, with no wraparound surprises at the
// int64 boundary the way a naive subtraction comparator would have.
func uint64Comparator(a, b interface{}) int {
	x, y := a.(uint64), b.(uint64)
	switch {
	case x < y:
		return -1
	case x > y:
		return 1
	default:
		return 0
	}
}

func newUint64Map() *treemap.Map { return treemap.NewWith(uint64Comparator) }

// newAttributeMap builds the inner per-node map keyed by Attribute
// (string), ordered byte-lexicographically — the same order kvgraph uses
// for its attribute sort (kvgraph/ops.go's insertionSortAttributes).
// uint64Comparator cannot key this map: its type assertion panics the
// first time two string keys are compared, i.e. on a node's second
// distinct attribute.
func newAttributeMap() *treemap.Map { return treemap.NewWith(utils.StringComparator) }

// propertyBucket is the mutable, ordered value sequence behind one
// (node, attribute) pair. It is a thin wrapper so treemap values stay
// pointer-identical across Get/Put round-trips inside AppendProperty.
type propertyBucket struct {
	values []types.Value
}

// Graph is the in-memory GraphStore (spec §4.c). It holds its containers
// as gods treemaps rather than the language's built-in map type, because
// built-in map iteration order is randomized per process: every place this
// package walks a container (Snapshot, Neighbors, GetProperties) exists
// because Compositor and the codecs depend on that walk being the same
// sequence every time, on every machine, forever.
//
// Graph performs no internal locking. Per the concurrency model, a single
// Session owns at most one backend at a time and serializes access itself;
// Graph assumes exclusive-access discipline rather than enforcing it.
type Graph struct {
	nodes       *treemap.Map // NodeId(uint64) -> types.Node
	entityIndex *treemap.Map // EntityId(uint64) -> NodeId(uint64)
	properties  *treemap.Map // NodeId(uint64) -> *treemap.Map (Attribute(string) -> *propertyBucket)
	adjacency   *treemap.Map // NodeId(uint64) -> *treemap.Map (NodeId(uint64) -> types.EdgeWeight)
	edgeCount   uint64
	nextNodeID  uint64
}

var _ GraphStore = (*Graph)(nil)

// NewGraph returns an empty in-memory graph, NodeIds starting at 0.
func NewGraph() *Graph {
	return &Graph{
		nodes:       newUint64Map(),
		entityIndex: newUint64Map(),
		properties:  newUint64Map(),
		adjacency:   newUint64Map(),
	}
}

func (g *Graph) UpsertNode(entity types.EntityId) (types.NodeId, error) {
	if existing, ok := g.entityIndex.Get(uint64(entity)); ok {
		return types.NodeId(existing.(uint64)), nil
	}
	id := types.NodeId(g.nextNodeID)
	g.nextNodeID++
	g.nodes.Put(uint64(id), types.Node{ID: id, Entity: entity})
	g.entityIndex.Put(uint64(entity), uint64(id))
	g.properties.Put(uint64(id), newAttributeMap())
	g.adjacency.Put(uint64(id), newUint64Map())
	return id, nil
}

func (g *Graph) AppendProperty(node types.NodeId, attr types.Attribute, value types.Value) error {
	rawBucket, ok := g.properties.Get(uint64(node))
	if !ok {
		return types.NewNodeNotFound(node)
	}
	byAttr := rawBucket.(*treemap.Map)
	if existing, ok := byAttr.Get(string(attr)); ok {
		b := existing.(*propertyBucket)
		b.values = append(b.values, value)
		return nil
	}
	byAttr.Put(string(attr), &propertyBucket{values: []types.Value{value}})
	return nil
}

func (g *Graph) GetProperties(node types.NodeId) ([]PropertyEntry, bool, error) {
	rawBucket, ok := g.properties.Get(uint64(node))
	if !ok {
		return nil, false, nil
	}
	byAttr := rawBucket.(*treemap.Map)
	entries := make([]PropertyEntry, 0, byAttr.Size())
	it := byAttr.Iterator()
	for it.Next() {
		b := it.Value().(*propertyBucket)
		values := make([]types.Value, len(b.values))
		copy(values, b.values)
		entries = append(entries, PropertyEntry{Attribute: types.Attribute(it.Key().(string)), Values: values})
	}
	return entries, true, nil
}

func (g *Graph) neighborMap(node types.NodeId) (*treemap.Map, bool) {
	raw, ok := g.adjacency.Get(uint64(node))
	if !ok {
		return nil, false
	}
	return raw.(*treemap.Map), true
}

func (g *Graph) IncrementEdge(from, to types.NodeId) (types.EdgeWeight, error) {
	if _, ok := g.nodes.Get(uint64(from)); !ok {
		return 0, types.NewNodeNotFound(from)
	}
	if _, ok := g.nodes.Get(uint64(to)); !ok {
		return 0, types.NewNodeNotFound(to)
	}
	out, _ := g.neighborMap(from)
	var next types.EdgeWeight
	if existing, ok := out.Get(uint64(to)); ok {
		next = existing.(types.EdgeWeight).Increment()
	} else {
		next = types.NewEdgeWeight(1)
		g.edgeCount++
	}
	out.Put(uint64(to), next)
	return next, nil
}

// SetEdge materializes (from, to) at exactly weight in one step, without
// going through Increment/Decrement. Used by snapshot replay so an edge's
// recorded weight (including 0) is reproduced exactly, not accumulated.
func (g *Graph) SetEdge(from, to types.NodeId, weight types.EdgeWeight) error {
	if _, ok := g.nodes.Get(uint64(from)); !ok {
		return types.NewNodeNotFound(from)
	}
	if _, ok := g.nodes.Get(uint64(to)); !ok {
		return types.NewNodeNotFound(to)
	}
	out, _ := g.neighborMap(from)
	if _, existed := out.Get(uint64(to)); !existed {
		g.edgeCount++
	}
	out.Put(uint64(to), weight)
	return nil
}

func (g *Graph) DecrementEdge(from, to types.NodeId) (types.EdgeWeight, error) {
	out, ok := g.neighborMap(from)
	if !ok {
		return 0, types.NewEdgeNotFound(from, to)
	}
	existing, ok := out.Get(uint64(to))
	if !ok {
		return 0, types.NewEdgeNotFound(from, to)
	}
	next := existing.(types.EdgeWeight).Decrement()
	out.Put(uint64(to), next)
	return next, nil
}

func (g *Graph) Neighbors(node types.NodeId) ([]Neighbor, error) {
	out, ok := g.neighborMap(node)
	if !ok {
		return nil, types.NewNodeNotFound(node)
	}
	neighbors := make([]Neighbor, 0, out.Size())
	it := out.Iterator()
	for it.Next() {
		neighbors = append(neighbors, Neighbor{
			To:     types.NodeId(it.Key().(uint64)),
			Weight: it.Value().(types.EdgeWeight),
		})
	}
	return neighbors, nil
}

func (g *Graph) GetEdgeWeight(from, to types.NodeId) (types.EdgeWeight, bool, error) {
	out, ok := g.neighborMap(from)
	if !ok {
		return 0, false, nil
	}
	existing, ok := out.Get(uint64(to))
	if !ok {
		return 0, false, nil
	}
	return existing.(types.EdgeWeight), true, nil
}

func (g *Graph) Lookup(entity types.EntityId) (types.NodeId, bool, error) {
	raw, ok := g.entityIndex.Get(uint64(entity))
	if !ok {
		return 0, false, nil
	}
	return types.NodeId(raw.(uint64)), true, nil
}

func (g *Graph) ContainsNode(node types.NodeId) (bool, error) {
	_, ok := g.nodes.Get(uint64(node))
	return ok, nil
}

func (g *Graph) NodeCount() (uint64, error) { return uint64(g.nodes.Size()), nil }

func (g *Graph) EdgeCount() (uint64, error) { return g.edgeCount, nil }

func (g *Graph) StableEdgeCount() (uint64, error) {
	var count uint64
	outer := g.adjacency.Iterator()
	for outer.Next() {
		out := outer.Value().(*treemap.Map)
		it := out.Iterator()
		for it.Next() {
			if it.Value().(types.EdgeWeight).IsStable() {
				count++
			}
		}
	}
	return count, nil
}

func (g *Graph) Snapshot() (*Snapshot, error) {
	snap := &Snapshot{NextNodeID: g.nextNodeID}

	nodeIt := g.nodes.Iterator()
	for nodeIt.Next() {
		snap.Nodes = append(snap.Nodes, nodeIt.Value().(types.Node))
	}

	adjIt := g.adjacency.Iterator()
	for adjIt.Next() {
		from := types.NodeId(adjIt.Key().(uint64))
		out := adjIt.Value().(*treemap.Map)
		it := out.Iterator()
		for it.Next() {
			snap.Edges = append(snap.Edges, types.Edge{
				From:   from,
				To:     types.NodeId(it.Key().(uint64)),
				Weight: it.Value().(types.EdgeWeight),
			})
		}
	}

	propIt := g.properties.Iterator()
	for propIt.Next() {
		node := types.NodeId(propIt.Key().(uint64))
		byAttr := propIt.Value().(*treemap.Map)
		it := byAttr.Iterator()
		for it.Next() {
			b := it.Value().(*propertyBucket)
			values := make([]types.Value, len(b.values))
			copy(values, b.values)
			snap.Properties = append(snap.Properties, NodeProperties{
				Node:      node,
				Attribute: types.Attribute(it.Key().(string)),
				Values:    values,
			})
		}
	}

	return snap, nil
}

// BatchIngest applies every signal's (upsert-node, append-property) effects
// in order. The in-memory backend has no partial-write hazard — each step
// is a single Go statement with no I/O that can fail midway — so atomicity
// reduces to validating every signal before mutating anything.
func (g *Graph) BatchIngest(signals []types.Signal) ([]types.NodeId, error) {
	for _, s := range signals {
		if err := s.Validate(); err != nil {
			return nil, err
		}
	}

	ids := make([]types.NodeId, len(signals))
	for i, s := range signals {
		node, _ := g.UpsertNode(s.EntityID)
		attr, _ := types.NewAttribute(s.Attribute)
		value, _ := types.NewValue(s.Value)
		if err := g.AppendProperty(node, attr, value); err != nil {
			return nil, err
		}
		ids[i] = node
	}
	return ids, nil
}
