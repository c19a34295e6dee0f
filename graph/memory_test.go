package graph

import (
	"testing"

	"kremis-core/types"
)

func TestUpsertNodeIsIdempotent(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(42)
	b, _ := g.UpsertNode(42)
	if a != b {
		t.Fatalf("expected same NodeId for repeated entity, got %d and %d", a, b)
	}
	c, _ := g.UpsertNode(43)
	if c == a {
		t.Fatalf("expected distinct NodeId for distinct entity")
	}
}

func TestAppendPropertyPreservesOrderAndDuplicates(t *testing.T) {
	g := NewGraph()
	node, _ := g.UpsertNode(1)
	attr, _ := types.NewAttribute("tag")
	for _, v := range []string{"a", "b", "a"} {
		value, _ := types.NewValue(v)
		if err := g.AppendProperty(node, attr, value); err != nil {
			t.Fatalf("append property: %v", err)
		}
	}
	entries, found, err := g.GetProperties(node)
	if err != nil || !found {
		t.Fatalf("expected properties, found=%v err=%v", found, err)
	}
	if len(entries) != 1 || len(entries[0].Values) != 3 {
		t.Fatalf("expected 1 attribute with 3 values, got %+v", entries)
	}
	want := []types.Value{"a", "b", "a"}
	for i, v := range want {
		if entries[0].Values[i] != v {
			t.Fatalf("value %d: want %q, got %q", i, v, entries[0].Values[i])
		}
	}
}

func TestAppendPropertyRecordsTwoDistinctAttributes(t *testing.T) {
	g := NewGraph()
	node, _ := g.UpsertNode(1)
	a, _ := types.NewAttribute("a")
	b, _ := types.NewAttribute("b")
	va, _ := types.NewValue("1")
	vb, _ := types.NewValue("2")
	if err := g.AppendProperty(node, a, va); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := g.AppendProperty(node, b, vb); err != nil {
		t.Fatalf("append b: %v", err)
	}
	entries, found, err := g.GetProperties(node)
	if err != nil || !found {
		t.Fatalf("expected properties, found=%v err=%v", found, err)
	}
	if len(entries) != 2 || entries[0].Attribute != "a" || entries[1].Attribute != "b" {
		t.Fatalf("expected [a, b] in order, got %+v", entries)
	}
}

func TestAppendPropertyUnknownNode(t *testing.T) {
	g := NewGraph()
	attr, _ := types.NewAttribute("tag")
	value, _ := types.NewValue("x")
	err := g.AppendProperty(999, attr, value)
	if !types.IsKind(err, types.KindNodeNotFound) {
		t.Fatalf("expected NodeNotFound, got %v", err)
	}
}

func TestIncrementEdgeCreatesAndAccumulates(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)
	for i := 0; i < 3; i++ {
		if _, err := g.IncrementEdge(a, b); err != nil {
			t.Fatalf("increment edge: %v", err)
		}
	}
	weight, found, err := g.GetEdgeWeight(a, b)
	if err != nil || !found {
		t.Fatalf("expected edge, found=%v err=%v", found, err)
	}
	if weight.Value() != 3 {
		t.Fatalf("expected weight 3, got %d", weight.Value())
	}
	count, _ := g.EdgeCount()
	if count != 1 {
		t.Fatalf("expected 1 distinct edge, got %d", count)
	}
}

func TestIncrementEdgeUnknownNode(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	if _, err := g.IncrementEdge(a, 999); !types.IsKind(err, types.KindNodeNotFound) {
		t.Fatalf("expected NodeNotFound, got %v", err)
	}
}

func TestDecrementEdgeFloorsAtZeroAndRetainsKey(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)
	g.IncrementEdge(a, b)
	w, _ := g.DecrementEdge(a, b)
	if w.Value() != 0 {
		t.Fatalf("expected weight 0, got %d", w.Value())
	}
	w, _ = g.DecrementEdge(a, b)
	if w.Value() != 0 {
		t.Fatalf("expected weight to stay at 0, got %d", w.Value())
	}
	if _, found, _ := g.GetEdgeWeight(a, b); !found {
		t.Fatalf("expected edge to still exist at weight 0")
	}
}

func TestDecrementEdgeNotFound(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)
	if _, err := g.DecrementEdge(a, b); !types.IsKind(err, types.KindEdgeNotFound) {
		t.Fatalf("expected EdgeNotFound, got %v", err)
	}
}

func TestSetEdgeMaterializesExactWeightIncludingZero(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)

	if err := g.SetEdge(a, b, types.NewEdgeWeight(0)); err != nil {
		t.Fatalf("set edge: %v", err)
	}
	weight, found, err := g.GetEdgeWeight(a, b)
	if err != nil || !found {
		t.Fatalf("expected a zero-weight edge to be retained, found=%v err=%v", found, err)
	}
	if weight.Value() != 0 {
		t.Fatalf("expected weight 0, got %d", weight.Value())
	}
	count, _ := g.EdgeCount()
	if count != 1 {
		t.Fatalf("expected 1 distinct edge, got %d", count)
	}

	if err := g.SetEdge(a, b, types.NewEdgeWeight(5)); err != nil {
		t.Fatalf("set edge again: %v", err)
	}
	weight, _, _ = g.GetEdgeWeight(a, b)
	if weight.Value() != 5 {
		t.Fatalf("expected weight 5 after overwrite, got %d", weight.Value())
	}
	count, _ = g.EdgeCount()
	if count != 1 {
		t.Fatalf("expected edge count to stay at 1 on overwrite, got %d", count)
	}
}

func TestSetEdgeUnknownNode(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	if err := g.SetEdge(a, 999, types.NewEdgeWeight(1)); !types.IsKind(err, types.KindNodeNotFound) {
		t.Fatalf("expected NodeNotFound, got %v", err)
	}
}

func TestNeighborsOrderedByTarget(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)
	c, _ := g.UpsertNode(3)
	g.IncrementEdge(a, c)
	g.IncrementEdge(a, b)
	neighbors, err := g.Neighbors(a)
	if err != nil {
		t.Fatalf("neighbors: %v", err)
	}
	if len(neighbors) != 2 || neighbors[0].To != b || neighbors[1].To != c {
		t.Fatalf("expected neighbors ordered [%d, %d], got %+v", b, c, neighbors)
	}
}

func TestStableEdgeCount(t *testing.T) {
	g := NewGraph()
	a, _ := g.UpsertNode(1)
	b, _ := g.UpsertNode(2)
	for i := 0; i < types.StableEdgeThreshold; i++ {
		g.IncrementEdge(a, b)
	}
	count, _ := g.StableEdgeCount()
	if count != 1 {
		t.Fatalf("expected 1 stable edge, got %d", count)
	}
}

func TestSnapshotIsDeterministicallyOrdered(t *testing.T) {
	g := NewGraph()
	c, _ := g.UpsertNode(3)
	a, _ := g.UpsertNode(1)
	g.IncrementEdge(c, a)
	g.IncrementEdge(a, c)
	attr, _ := types.NewAttribute("k")
	value, _ := types.NewValue("v")
	g.AppendProperty(c, attr, value)
	g.AppendProperty(a, attr, value)

	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Nodes) != 2 || snap.Nodes[0].ID != c || snap.Nodes[1].ID != a {
		t.Fatalf("expected nodes sorted by NodeId, got %+v", snap.Nodes)
	}
	if len(snap.Edges) != 2 || snap.Edges[0].From != c || snap.Edges[1].From != a {
		t.Fatalf("expected edges sorted by From, got %+v", snap.Edges)
	}
	if len(snap.Properties) != 2 || snap.Properties[0].Node != c || snap.Properties[1].Node != a {
		t.Fatalf("expected properties sorted by NodeId, got %+v", snap.Properties)
	}
}

func TestBatchIngestAtomicOnInvalidSignal(t *testing.T) {
	g := NewGraph()
	signals := []types.Signal{
		{EntityID: 1, Attribute: "name", Value: "Alice"},
		{EntityID: 2, Attribute: "", Value: "bad"},
	}
	if _, err := g.BatchIngest(signals); !types.IsKind(err, types.KindInvalidSignal) {
		t.Fatalf("expected InvalidSignal, got %v", err)
	}
	count, _ := g.NodeCount()
	if count != 0 {
		t.Fatalf("expected no nodes to survive a rejected batch, got %d", count)
	}
}

func TestBatchIngestAppliesInOrder(t *testing.T) {
	g := NewGraph()
	signals := []types.Signal{
		{EntityID: 1, Attribute: "name", Value: "Alice"},
		{EntityID: 1, Attribute: "name", Value: "Bob"},
	}
	ids, err := g.BatchIngest(signals)
	if err != nil {
		t.Fatalf("batch ingest: %v", err)
	}
	if ids[0] != ids[1] {
		t.Fatalf("expected same node for repeated entity")
	}
	entries, _, _ := g.GetProperties(ids[0])
	if len(entries) != 1 || len(entries[0].Values) != 2 {
		t.Fatalf("expected 2 appended values, got %+v", entries)
	}
}
