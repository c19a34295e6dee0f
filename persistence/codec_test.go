package persistence

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"kremis-core/graph"
	"kremis-core/ingestor"
	"kremis-core/types"
)

func buildSampleGraph(t *testing.T) *graph.Snapshot {
	t.Helper()
	g := graph.NewGraph()
	signals := []types.Signal{
		{EntityID: 1, Attribute: "a", Value: "x"},
		{EntityID: 2, Attribute: "a", Value: "y"},
		{EntityID: 1, Attribute: "a", Value: "z"},
	}
	if _, err := ingestor.IngestSequence(g, signals); err != nil {
		t.Fatalf("ingest: %v", err)
	}
	snap, err := g.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return snap
}

func TestExportImportRoundTrip(t *testing.T) {
	snap := buildSampleGraph(t)
	exported := Export(snap)
	imported, err := Import(exported)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if diff := cmp.Diff(snap, imported); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportRejectsBadMagic(t *testing.T) {
	snap := buildSampleGraph(t)
	exported := Export(snap)
	exported[0] = 'X'
	if _, err := Import(exported); !types.IsKind(err, types.KindSerialization) {
		t.Fatalf("expected Serialization error, got %v", err)
	}
}

func TestImportRejectsOversizedPayload(t *testing.T) {
	oversized := make([]byte, types.MaxPersistencePayloadBytes+1)
	if _, err := Import(oversized); !types.IsKind(err, types.KindPayloadTooLarge) {
		t.Fatalf("expected PayloadTooLarge, got %v", err)
	}
}

func TestCompressedRoundTrip(t *testing.T) {
	snap := buildSampleGraph(t)
	compressed, err := ExportCompressed(snap)
	if err != nil {
		t.Fatalf("export compressed: %v", err)
	}
	imported, err := ImportCompressed(compressed)
	if err != nil {
		t.Fatalf("import compressed: %v", err)
	}
	if diff := cmp.Diff(snap, imported); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestImportCompressedRejectsGarbage(t *testing.T) {
	if _, err := ImportCompressed([]byte("not a zstd frame")); !types.IsKind(err, types.KindSerialization) {
		t.Fatalf("expected Serialization error, got %v", err)
	}
}
