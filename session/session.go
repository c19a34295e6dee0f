// Package session is the single entry point external callers use (spec
// §4.i): it owns exactly one GraphStore backend, routes writes through
// ingestor and reads through compositor, and keeps a small volatile
// diagnostics buffer that is never serialized and never consulted by any
// core operation. Grounded on the teacher's command-to-library wiring
// (ivcs/cmd/ivcs, kai-cli/cmd/kai): one owned store per process, explicit
// Open/Close, everything else delegated to library packages.
package session

import (
	"github.com/google/uuid"

	"kremis-core/canonical"
	"kremis-core/compositor"
	"kremis-core/graph"
	"kremis-core/ingestor"
	"kremis-core/kvgraph"
	"kremis-core/persistence"
	"kremis-core/stage"
	"kremis-core/types"
)

// recentQueriesCapacity bounds the diagnostics ring buffer. It is a fixed,
// small size: the buffer is an operator convenience, not a queryable log.
const recentQueriesCapacity = 32

// Session owns one backend and dispatches every ingest/query/export
// operation to it. It is single-owner: concurrent use from multiple
// goroutines requires external serialization, matching the core's
// synchronous scheduling model.
type Session struct {
	// ID identifies this process's session for diagnostics only. It is
	// generated fresh on every New/Open/Create call and never persisted.
	ID uuid.UUID

	backend graph.GraphStore
	store   *kvgraph.Store // non-nil only for a persistent session; owns Close

	recent []types.Artifact
}

// New opens an in-memory session. The backend has no exclusivity lock and
// is not safe for concurrent use.
func New() *Session {
	return &Session{ID: uuid.New(), backend: graph.NewGraph()}
}

// Open opens (or creates) a persistent session backed by the database at
// path, after acquiring an exclusive process-level file lock. A second
// process attempting to open the same path fails with BackendLocked.
func Open(path string) (*Session, error) {
	store, err := kvgraph.Open(path)
	if err != nil {
		return nil, err
	}
	return &Session{ID: uuid.New(), backend: store, store: store}, nil
}

// Create opens path as a persistent session; if force is true, any
// existing database at path is truncated first.
func Create(path string, force bool) (*Session, error) {
	store, err := kvgraph.Create(path, force)
	if err != nil {
		return nil, err
	}
	return &Session{ID: uuid.New(), backend: store, store: store}, nil
}

// Close releases the underlying backend's resources. It is a no-op for an
// in-memory session.
func (s *Session) Close() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}

// Ingest validates and writes one signal, returning its NodeId.
func (s *Session) Ingest(signal types.Signal) (types.NodeId, error) {
	return ingestor.IngestSignal(s.backend, signal)
}

// IngestBatch ingests a sequence of signals, creating sliding-window
// association edges between temporally adjacent signals.
func (s *Session) IngestBatch(signals []types.Signal) ([]types.NodeId, error) {
	return ingestor.IngestSequence(s.backend, signals)
}

// Lookup resolves entity to its assigned NodeId, wrapped as an Artifact
// carrying a single-element path (or an empty path if not found).
func (s *Session) Lookup(entity types.EntityId) (types.Artifact, error) {
	node, found, err := s.backend.Lookup(entity)
	if err != nil {
		return types.Artifact{}, err
	}
	if !found {
		return types.WithPath(nil), nil
	}
	result := types.WithPath([]types.NodeId{node})
	s.record(result)
	return result, nil
}

// Traverse runs Compose from start to the given depth.
func (s *Session) Traverse(start types.NodeId, depth int) (types.Artifact, error) {
	result, err := compositor.Compose(s.backend, start, depth)
	if err != nil {
		return types.Artifact{}, err
	}
	s.record(result)
	return result, nil
}

// TraverseFiltered runs ComposeFiltered from start to the given depth,
// ignoring edges weighted below minWeight.
func (s *Session) TraverseFiltered(start types.NodeId, depth int, minWeight types.EdgeWeight) (types.Artifact, error) {
	result, err := compositor.ComposeFiltered(s.backend, start, depth, minWeight)
	if err != nil {
		return types.Artifact{}, err
	}
	s.record(result)
	return result, nil
}

// StrongestPath finds the minimum-cost path (by the weight-inversion rule)
// from start to end.
func (s *Session) StrongestPath(start, end types.NodeId) (types.Artifact, error) {
	result, err := compositor.StrongestPath(s.backend, start, end)
	if err != nil {
		return types.Artifact{}, err
	}
	s.record(result)
	return result, nil
}

// Intersect returns the common outgoing neighbors of nodes.
func (s *Session) Intersect(nodes []types.NodeId) (types.Artifact, error) {
	result, err := compositor.Intersect(s.backend, nodes)
	if err != nil {
		return types.Artifact{}, err
	}
	s.record(result)
	return result, nil
}

// RelatedContext is an alias of Traverse, per spec's related_context query.
func (s *Session) RelatedContext(start types.NodeId, depth int) (types.Artifact, error) {
	result, err := compositor.RelatedContext(s.backend, start, depth)
	if err != nil {
		return types.Artifact{}, err
	}
	s.record(result)
	return result, nil
}

// Properties returns node's recorded attributes and their ordered values.
func (s *Session) Properties(node types.NodeId) ([]graph.PropertyEntry, bool, error) {
	return compositor.Properties(s.backend, node)
}

// Status is the snapshot of graph size and density a session reports.
type Status struct {
	NodeCount         uint64
	EdgeCount         uint64
	StableEdges       uint64
	DensityMillionths uint64
}

// DensityPerThousand converts DensityMillionths to parts-per-thousand.
func (st Status) DensityPerThousand() uint64 {
	return stage.DensityPerThousand(st.DensityMillionths)
}

// Status reports the current node/edge counts and density. Density is
// floor(edges * 1_000_000 / max(1, nodes * (nodes - 1))), integer division
// only.
func (s *Session) Status() (Status, error) {
	nodes, err := s.backend.NodeCount()
	if err != nil {
		return Status{}, err
	}
	edges, err := s.backend.EdgeCount()
	if err != nil {
		return Status{}, err
	}
	stable, err := s.backend.StableEdgeCount()
	if err != nil {
		return Status{}, err
	}

	denominator := nodes * (nodes - 1)
	if nodes == 0 {
		denominator = 0
	}
	if denominator < 1 {
		denominator = 1
	}
	density := (edges * 1_000_000) / denominator

	return Status{NodeCount: nodes, EdgeCount: edges, StableEdges: stable, DensityMillionths: density}, nil
}

// Stage reports the session's developmental stage progress, derived
// solely from the current stable edge count. Informational only.
func (s *Session) Stage() (stage.Progress, error) {
	stable, err := s.backend.StableEdgeCount()
	if err != nil {
		return stage.Progress{}, err
	}
	return stage.Assess(stable), nil
}

// ExportCanonical serializes the session's current graph to the
// verification codec (KREX).
func (s *Session) ExportCanonical() ([]byte, error) {
	snap, err := s.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	return canonical.Encode(snap), nil
}

// ImportCanonical replaces the session's graph with the one decoded from
// data, which must be in canonical (KREX) form. The backend is rebuilt by
// replaying the decoded nodes, properties and edges (UpsertNode,
// AppendProperty, SetEdge) so both in-memory and persistent sessions end up
// byte-identical to the source.
func (s *Session) ImportCanonical(data []byte) error {
	snap, err := canonical.Decode(data)
	if err != nil {
		return err
	}
	return s.loadSnapshot(snap)
}

// ExportPersistence serializes the session's current graph to the on-disk
// snapshot format (KREM).
func (s *Session) ExportPersistence() ([]byte, error) {
	snap, err := s.backend.Snapshot()
	if err != nil {
		return nil, err
	}
	return persistence.Export(snap), nil
}

// ImportPersistence replaces the session's graph with the one decoded from
// data, which must be in persistence (KREM) form.
func (s *Session) ImportPersistence(data []byte) error {
	snap, err := persistence.Import(data)
	if err != nil {
		return err
	}
	return s.loadSnapshot(snap)
}

// Hash returns the BLAKE3 digest of the session's canonical export: a
// stable fingerprint of the graph's current content.
func (s *Session) Hash() ([32]byte, error) {
	snap, err := s.backend.Snapshot()
	if err != nil {
		return [32]byte{}, err
	}
	return canonical.Hash(snap), nil
}

// RecentQueries returns the session's volatile diagnostics buffer: the
// most recent query Artifacts, oldest first, capped at a small fixed
// size. It is never serialized and never read back by any core operation.
func (s *Session) RecentQueries() []types.Artifact {
	out := make([]types.Artifact, len(s.recent))
	copy(out, s.recent)
	return out
}

func (s *Session) record(a types.Artifact) {
	s.recent = append(s.recent, a)
	if len(s.recent) > recentQueriesCapacity {
		s.recent = s.recent[len(s.recent)-recentQueriesCapacity:]
	}
}

// loadSnapshot rebuilds the backend's state to match snap exactly: nodes
// by entity (preserving NodeId assignment order), properties in their
// recorded append order, then edges.
func (s *Session) loadSnapshot(snap *graph.Snapshot) error {
	fresh := graph.NewGraph()
	if err := replaySnapshot(fresh, snap); err != nil {
		return err
	}

	if s.store == nil {
		s.backend = fresh
		return nil
	}

	path := s.store.Path()
	if err := s.store.Close(); err != nil {
		return err
	}
	store, err := kvgraph.Create(path, true)
	if err != nil {
		return err
	}
	if err := replaySnapshot(store, snap); err != nil {
		store.Close()
		return err
	}
	s.backend = store
	s.store = store
	return nil
}

// replaySnapshot applies snap's nodes, properties, and edges to backend in
// NodeId order, so UpsertNode mints NodeIds in the same sequence snap
// recorded them.
func replaySnapshot(backend graph.GraphStore, snap *graph.Snapshot) error {
	for _, n := range snap.Nodes {
		if _, err := backend.UpsertNode(n.Entity); err != nil {
			return err
		}
	}
	for _, p := range snap.Properties {
		for _, v := range p.Values {
			if err := backend.AppendProperty(p.Node, p.Attribute, v); err != nil {
				return err
			}
		}
	}
	for _, e := range snap.Edges {
		if err := backend.SetEdge(e.From, e.To, e.Weight); err != nil {
			return err
		}
	}
	return nil
}
