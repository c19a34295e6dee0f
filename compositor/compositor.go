// Package compositor implements the read-only traversal algorithms (spec
// §4.f) over any GraphStore: bounded BFS, Dijkstra-style strongest path,
// neighbor-set intersection, and property lookup. Every algorithm returns
// a types.Artifact and is deterministic: the same graph and query always
// produce the same result, byte for byte.
package compositor

import (
	"math"
	"strconv"

	"github.com/emirpasic/gods/maps/treemap"

	"kremis-core/graph"
	"kremis-core/types"
)

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

func clampDepth(depth int) (int, error) {
	if depth < 0 || depth > types.MaxTraversalDepth {
		return 0, types.NewInvalidSignal(boundsReason(depth))
	}
	return depth, nil
}

func boundsReason(depth int) string {
	return "depth exceeds maximum " + strconv.Itoa(types.MaxTraversalDepth) + ", got " + strconv.Itoa(depth)
}

// Compose performs breadth-first exploration from start up to depth hops
// (0..=100). path is the discovery order; subgraph is every traversed edge
// in traversal order. Returns NodeNotFound if start does not exist.
func Compose(backend graph.GraphStore, start types.NodeId, depth int) (types.Artifact, error) {
	return composeFiltered(backend, start, depth, 0)
}

// ComposeFiltered is Compose with edges weighted below minWeight treated
// as absent: they contribute to neither path nor subgraph.
func ComposeFiltered(backend graph.GraphStore, start types.NodeId, depth int, minWeight types.EdgeWeight) (types.Artifact, error) {
	return composeFiltered(backend, start, depth, minWeight)
}

func composeFiltered(backend graph.GraphStore, start types.NodeId, depth int, minWeight types.EdgeWeight) (types.Artifact, error) {
	bounded, err := clampDepth(depth)
	if err != nil {
		return types.Artifact{}, err
	}
	exists, err := backend.ContainsNode(start)
	if err != nil {
		return types.Artifact{}, err
	}
	if !exists {
		return types.Artifact{}, types.NewNodeNotFound(start)
	}

	type frame struct {
		node  types.NodeId
		depth int
	}

	visited := map[types.NodeId]bool{start: true}
	queue := []frame{{node: start, depth: 0}}
	path := []types.NodeId{start}
	subgraph := []types.Edge{}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		if current.depth >= bounded {
			continue
		}

		neighbors, err := backend.Neighbors(current.node)
		if err != nil {
			return types.Artifact{}, err
		}
		for _, n := range neighbors {
			if n.Weight.Value() < minWeight.Value() {
				continue
			}
			subgraph = append(subgraph, types.Edge{From: current.node, To: n.To, Weight: n.Weight})
			if !visited[n.To] {
				visited[n.To] = true
				path = append(path, n.To)
				queue = append(queue, frame{node: n.To, depth: current.depth + 1})
			}
		}
	}

	return types.WithSubgraph(path, subgraph), nil
}

// RelatedContext is a semantic alias of Compose: it calls Compose directly
// so the two can never drift apart.
func RelatedContext(backend graph.GraphStore, start types.NodeId, depth int) (types.Artifact, error) {
	return Compose(backend, start, depth)
}

// Properties returns node's attributes sorted by attribute, each with its
// values in append order, exactly as graph.GraphStore.GetProperties reports
// them; it builds no Artifact. found is false when node does not exist.
func Properties(backend graph.GraphStore, node types.NodeId) (entries []graph.PropertyEntry, found bool, err error) {
	return backend.GetProperties(node)
}

// StrongestPath finds the path from start to end minimizing cumulative
// cost, where cost(edge) = math.MaxInt64 - weight: higher-weight edges are
// cheaper, so the "strongest" (highest-weight) path is the shortest one
// under this inversion. Ties in cumulative cost resolve to the lower
// NodeId. Returns an empty path if start or end does not exist, or if end
// is unreachable from start.
func StrongestPath(backend graph.GraphStore, start, end types.NodeId) (types.Artifact, error) {
	startExists, err := backend.ContainsNode(start)
	if err != nil {
		return types.Artifact{}, err
	}
	endExists, err := backend.ContainsNode(end)
	if err != nil {
		return types.Artifact{}, err
	}
	if !startExists || !endExists {
		return types.WithSubgraph(nil, nil), nil
	}
	if start == end {
		return types.WithSubgraph([]types.NodeId{start}, []types.Edge{}), nil
	}

	dist := treemap.NewWith(uint64Comparator) // NodeId(uint64) -> int64 cumulative cost
	prev := treemap.NewWith(uint64Comparator) // NodeId(uint64) -> NodeId(uint64)
	visited := map[types.NodeId]bool{}

	dist.Put(uint64(start), int64(0))

	for {
		current, found := minUnvisited(dist, visited)
		if !found {
			break
		}
		if current == end {
			break
		}
		visited[current] = true
		rawDist, _ := dist.Get(uint64(current))
		currentDist := rawDist.(int64)

		neighbors, err := backend.Neighbors(current)
		if err != nil {
			return types.Artifact{}, err
		}
		for _, n := range neighbors {
			if visited[n.To] {
				continue
			}
			edgeCost := saturatingSub(math.MaxInt64, n.Weight.Value())
			newDist := saturatingAdd(currentDist, edgeCost)

			existing, has := dist.Get(uint64(n.To))
			if !has || newDist < existing.(int64) {
				dist.Put(uint64(n.To), newDist)
				prev.Put(uint64(n.To), uint64(current))
			}
		}
	}

	if _, has := prev.Get(uint64(end)); !has {
		return types.WithSubgraph(nil, nil), nil
	}

	var path []types.NodeId
	current := end
	for current != start {
		path = append(path, current)
		p, has := prev.Get(uint64(current))
		if !has {
			return types.WithSubgraph(nil, nil), nil
		}
		current = types.NodeId(p.(uint64))
	}
	path = append(path, start)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	edges := make([]types.Edge, 0, len(path)-1)
	for i := 0; i < len(path)-1; i++ {
		weight, _, err := backend.GetEdgeWeight(path[i], path[i+1])
		if err != nil {
			return types.Artifact{}, err
		}
		edges = append(edges, types.Edge{From: path[i], To: path[i+1], Weight: weight})
	}

	return types.WithSubgraph(path, edges), nil
}

// minUnvisited scans dist in ascending NodeId order and returns the
// unvisited node with the smallest cost, breaking ties toward the lower
// NodeId by keeping the first minimum encountered during the ascending
// walk.
func minUnvisited(dist *treemap.Map, visited map[types.NodeId]bool) (types.NodeId, bool) {
	var best types.NodeId
	var bestCost int64
	found := false

	it := dist.Iterator()
	for it.Next() {
		node := types.NodeId(it.Key().(uint64))
		if visited[node] {
			continue
		}
		cost := it.Value().(int64)
		if !found || cost < bestCost {
			best, bestCost, found = node, cost, true
		}
	}
	return best, found
}

func saturatingSub(a, b int64) int64 {
	if b > a {
		return 0
	}
	return a - b
}

func saturatingAdd(a, b int64) int64 {
	sum := a + b
	if sum < a { // overflow
		return math.MaxInt64
	}
	return sum
}

// Intersect returns the ordered sequence of NodeIds present in every one of
// nodes' outgoing neighbor sets, in NodeId order. Input longer than 100
// elements fails with InvalidSignal; empty input returns an empty result.
func Intersect(backend graph.GraphStore, nodes []types.NodeId) (types.Artifact, error) {
	if len(nodes) > types.MaxIntersectNodes {
		return types.Artifact{}, types.NewInvalidSignal(
			"intersect node count exceeds maximum " + strconv.Itoa(types.MaxIntersectNodes) + ", got " + strconv.Itoa(len(nodes)))
	}
	if len(nodes) == 0 {
		return types.WithPath(nil), nil
	}

	working, err := neighborSet(backend, nodes[0])
	if err != nil {
		return types.Artifact{}, err
	}
	for _, n := range nodes[1:] {
		next, err := neighborSet(backend, n)
		if err != nil {
			return types.Artifact{}, err
		}
		working = intersectSets(working, next)
	}

	result := make([]types.NodeId, 0, working.Size())
	it := working.Iterator()
	for it.Next() {
		result = append(result, types.NodeId(it.Key().(uint64)))
	}
	return types.WithPath(result), nil
}

func neighborSet(backend graph.GraphStore, node types.NodeId) (*treemap.Map, error) {
	neighbors, err := backend.Neighbors(node)
	if err != nil {
		return nil, err
	}
	set := treemap.NewWith(uint64Comparator)
	for _, n := range neighbors {
		set.Put(uint64(n.To), struct{}{})
	}
	return set, nil
}

func intersectSets(a, b *treemap.Map) *treemap.Map {
	result := treemap.NewWith(uint64Comparator)
	it := a.Iterator()
	for it.Next() {
		if _, ok := b.Get(it.Key()); ok {
			result.Put(it.Key(), struct{}{})
		}
	}
	return result
}
