// Package ingestor drives the write path (spec §4.e): validating signals,
// upserting their nodes, appending their properties, and — for a sequence —
// incrementing the edge between temporally adjacent observations.
package ingestor

import (
	"kremis-core/graph"
	"kremis-core/types"
)

// IngestSignal validates s, upserts its node, appends its property, and
// returns the resulting NodeId. Validation happens before any state
// touches backend, so a rejected signal leaves the graph untouched.
func IngestSignal(backend graph.GraphStore, s types.Signal) (types.NodeId, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	node, err := backend.UpsertNode(s.EntityID)
	if err != nil {
		return 0, err
	}
	attr, err := types.NewAttribute(s.Attribute)
	if err != nil {
		return 0, err
	}
	value, err := types.NewValue(s.Value)
	if err != nil {
		return 0, err
	}
	if err := backend.AppendProperty(node, attr, value); err != nil {
		return 0, err
	}
	return node, nil
}

// IngestSequence ingests every signal in order and, as each one is
// ingested, increments the edge from the previous signal's node to its own:
// a window of size ASSOCIATION_WINDOW+1 (2) over the resulting NodeIds, so
// each adjacent pair (n[i], n[i+1]) gets its edge incremented. A failure
// stops the walk; signals and edges already applied stay in place. A
// signal whose entity equals its neighbor's produces a self-loop; repeated
// adjacent pairs across calls accrue weight up to saturation.
func IngestSequence(backend graph.GraphStore, signals []types.Signal) ([]types.NodeId, error) {
	ids := make([]types.NodeId, 0, len(signals))
	for _, s := range signals {
		node, err := IngestSignal(backend, s)
		if err != nil {
			return nil, err
		}
		ids = append(ids, node)

		if len(ids) > types.AssociationWindow {
			prev := ids[len(ids)-types.AssociationWindow-1]
			if _, err := backend.IncrementEdge(prev, node); err != nil {
				return nil, err
			}
		}
	}
	return ids, nil
}
