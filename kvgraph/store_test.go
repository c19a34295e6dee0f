package kvgraph

import (
	"path/filepath"
	"testing"

	"kremis-core/types"
)

func openTemp(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "graph.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertNodeIdempotentAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a, err := s1.UpsertNode(42)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	b, err := s2.UpsertNode(42)
	if err != nil {
		t.Fatalf("upsert after reopen: %v", err)
	}
	if a != b {
		t.Fatalf("expected same NodeId across reopen, got %d and %d", a, b)
	}
}

func TestSecondOpenFailsWithBackendLocked(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.db")

	s1, err := Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s1.Close()

	_, err = Open(path)
	if !types.IsKind(err, types.KindBackendLocked) {
		t.Fatalf("expected BackendLocked, got %v", err)
	}
}

func TestAppendPropertyPreservesOrder(t *testing.T) {
	s := openTemp(t)
	node, err := s.UpsertNode(1)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	attr, _ := types.NewAttribute("tag")
	for _, v := range []string{"a", "b", "a"} {
		value, _ := types.NewValue(v)
		if err := s.AppendProperty(node, attr, value); err != nil {
			t.Fatalf("append property: %v", err)
		}
	}
	entries, found, err := s.GetProperties(node)
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

func TestIncrementDecrementEdge(t *testing.T) {
	s := openTemp(t)
	a, _ := s.UpsertNode(1)
	b, _ := s.UpsertNode(2)
	for i := 0; i < 3; i++ {
		if _, err := s.IncrementEdge(a, b); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	weight, found, err := s.GetEdgeWeight(a, b)
	if err != nil || !found || weight.Value() != 3 {
		t.Fatalf("expected weight 3, found=%v weight=%v err=%v", found, weight, err)
	}
	if _, err := s.DecrementEdge(a, b); err != nil {
		t.Fatalf("decrement: %v", err)
	}
	weight, _, _ = s.GetEdgeWeight(a, b)
	if weight.Value() != 2 {
		t.Fatalf("expected weight 2 after decrement, got %d", weight.Value())
	}
}

func TestSetEdgeMaterializesExactWeightIncludingZero(t *testing.T) {
	s := openTemp(t)
	a, _ := s.UpsertNode(1)
	b, _ := s.UpsertNode(2)

	if err := s.SetEdge(a, b, types.NewEdgeWeight(0)); err != nil {
		t.Fatalf("set edge: %v", err)
	}
	weight, found, err := s.GetEdgeWeight(a, b)
	if err != nil || !found || weight.Value() != 0 {
		t.Fatalf("expected a retained zero-weight edge, found=%v weight=%v err=%v", found, weight, err)
	}

	if err := s.SetEdge(a, b, types.NewEdgeWeight(7)); err != nil {
		t.Fatalf("set edge again: %v", err)
	}
	weight, _, _ = s.GetEdgeWeight(a, b)
	if weight.Value() != 7 {
		t.Fatalf("expected weight 7 after overwrite, got %d", weight.Value())
	}
	count, _ := s.EdgeCount()
	if count != 1 {
		t.Fatalf("expected edge count to stay at 1 on overwrite, got %d", count)
	}
}

func TestBatchIngestRollsBackOnInvalidSignal(t *testing.T) {
	s := openTemp(t)
	signals := []types.Signal{
		{EntityID: 1, Attribute: "name", Value: "Alice"},
		{EntityID: 2, Attribute: "", Value: "bad"},
	}
	if _, err := s.BatchIngest(signals); !types.IsKind(err, types.KindInvalidSignal) {
		t.Fatalf("expected InvalidSignal, got %v", err)
	}
	count, _ := s.NodeCount()
	if count != 0 {
		t.Fatalf("expected no nodes to survive a rejected batch, got %d", count)
	}
}

func TestBatchIngestCommitsAllOrNothing(t *testing.T) {
	s := openTemp(t)
	signals := []types.Signal{
		{EntityID: 1, Attribute: "name", Value: "Alice"},
		{EntityID: 1, Attribute: "name", Value: "Bob"},
		{EntityID: 2, Attribute: "name", Value: "Carol"},
	}
	ids, err := s.BatchIngest(signals)
	if err != nil {
		t.Fatalf("batch ingest: %v", err)
	}
	if ids[0] != ids[1] {
		t.Fatalf("expected repeated entity to resolve to same node")
	}
	count, _ := s.NodeCount()
	if count != 2 {
		t.Fatalf("expected 2 nodes, got %d", count)
	}
}

func TestSnapshotMatchesInMemoryOrdering(t *testing.T) {
	s := openTemp(t)
	c, _ := s.UpsertNode(3)
	a, _ := s.UpsertNode(1)
	if _, err := s.IncrementEdge(c, a); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if _, err := s.IncrementEdge(a, c); err != nil {
		t.Fatalf("increment: %v", err)
	}

	snap, err := s.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if len(snap.Nodes) != 2 || snap.Nodes[0].ID != c || snap.Nodes[1].ID != a {
		t.Fatalf("expected nodes sorted by NodeId, got %+v", snap.Nodes)
	}
	if len(snap.Edges) != 2 || snap.Edges[0].From != c || snap.Edges[1].From != a {
		t.Fatalf("expected edges sorted by From, got %+v", snap.Edges)
	}
}
