package kvgraph

import (
	"database/sql"

	"kremis-core/diagnostics"
	"kremis-core/graph"
	"kremis-core/types"
)

func (s *Store) recorder() diagnostics.Recorder {
	if s.Recorder != nil {
		return s.Recorder
	}
	return diagnostics.NopRecorder{}
}

func (s *Store) UpsertNode(entity types.EntityId) (types.NodeId, error) {
	if existing, ok := s.entityIdx[entity]; ok {
		return existing, nil
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, types.NewBackendIO("begin transaction", err)
	}
	node, nextID, created, err := upsertNodeTx(tx, s.entityIdx, s.nextNodeID, entity)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, types.NewTxnConflict(err.Error())
	}
	if created {
		s.entityIdx[entity] = node
		s.nextNodeID = nextID
	}
	return node, nil
}

// upsertNodeTx performs the insert within tx, consulting entityIdx/nextNodeID
// (the caller's view of the cache, possibly a scratch copy during a batch)
// without mutating either: the caller decides when a successful commit
// makes the result visible to the live Store.
func upsertNodeTx(tx *sql.Tx, entityIdx map[types.EntityId]types.NodeId, nextNodeID uint64, entity types.EntityId) (node types.NodeId, newNextNodeID uint64, created bool, err error) {
	if existing, ok := entityIdx[entity]; ok {
		return existing, nextNodeID, false, nil
	}
	id := nextNodeID
	if _, err := tx.Exec(`INSERT INTO nodes (node_id, entity_id) VALUES (?, ?)`, id, uint64(entity)); err != nil {
		return 0, 0, false, types.NewBackendIO("inserting node", err)
	}
	if _, err := tx.Exec(`INSERT INTO entity_index (entity_id, node_id) VALUES (?, ?)`, uint64(entity), id); err != nil {
		return 0, 0, false, types.NewBackendIO("inserting entity index", err)
	}
	nextID := id + 1
	if _, err := tx.Exec(`INSERT INTO metadata (name, value) VALUES (?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, nextNodeIDKey, nextID); err != nil {
		return 0, 0, false, types.NewBackendIO("updating next_node_id", err)
	}
	return types.NodeId(id), nextID, true, nil
}

func (s *Store) AppendProperty(node types.NodeId, attr types.Attribute, value types.Value) error {
	if !s.nodeExists(node) {
		return types.NewNodeNotFound(node)
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return types.NewBackendIO("begin transaction", err)
	}
	if err := s.appendPropertyTx(tx, node, attr, value); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return types.NewTxnConflict(err.Error())
	}
	return nil
}

func (s *Store) appendPropertyTx(tx *sql.Tx, node types.NodeId, attr types.Attribute, value types.Value) error {
	digest := attributeDigest(string(attr))
	// attr_digest is a signed 64-bit INTEGER column and the driver rejects
	// uint64 arguments with the high bit set, so the digest is bound by its
	// int64 bit pattern.
	digestKey := int64(digest)

	var blob []byte
	var primaryAttr string
	err := tx.QueryRow(`SELECT attribute, values_blob FROM properties WHERE node_id = ? AND attr_digest = ?`,
		uint64(node), digestKey).Scan(&primaryAttr, &blob)

	if err == sql.ErrNoRows {
		groups := []propertyGroup{{attribute: attr, values: []types.Value{value}}}
		_, err := tx.Exec(`INSERT INTO properties (node_id, attr_digest, attribute, values_blob) VALUES (?, ?, ?, ?)`,
			uint64(node), digestKey, string(attr), encodeGroups(groups))
		if err != nil {
			return types.NewBackendIO("inserting property", err)
		}
		return nil
	}
	if err != nil {
		return types.NewBackendIO("querying property", err)
	}

	groups, decodeErr := decodeGroups(blob)
	if decodeErr != nil {
		return decodeErr
	}

	found := false
	for i := range groups {
		if groups[i].attribute == attr {
			groups[i].values = append(groups[i].values, value)
			found = true
			break
		}
	}
	if !found {
		s.recorder().Note("attr_digest_collision", "node", uint64(node), "digest", digest,
			"existing_attribute", primaryAttr, "new_attribute", string(attr))
		groups = append(groups, propertyGroup{attribute: attr, values: []types.Value{value}})
	}

	if _, err := tx.Exec(`UPDATE properties SET values_blob = ? WHERE node_id = ? AND attr_digest = ?`,
		encodeGroups(groups), uint64(node), digestKey); err != nil {
		return types.NewBackendIO("updating property", err)
	}
	return nil
}

func (s *Store) GetProperties(node types.NodeId) ([]graph.PropertyEntry, bool, error) {
	if !s.nodeExists(node) {
		return nil, false, nil
	}
	rows, err := s.conn.Query(`SELECT values_blob FROM properties WHERE node_id = ?`, uint64(node))
	if err != nil {
		return nil, false, types.NewBackendIO("querying properties", err)
	}
	defer rows.Close()

	byAttr := map[types.Attribute][]types.Value{}
	for rows.Next() {
		var blob []byte
		if err := rows.Scan(&blob); err != nil {
			return nil, false, types.NewBackendIO("scanning property row", err)
		}
		groups, err := decodeGroups(blob)
		if err != nil {
			return nil, false, err
		}
		for _, g := range groups {
			byAttr[g.attribute] = append(byAttr[g.attribute], g.values...)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, false, types.NewBackendIO("iterating properties", err)
	}

	entries := sortedPropertyEntries(byAttr)
	return entries, true, nil
}

func (s *Store) IncrementEdge(from, to types.NodeId) (types.EdgeWeight, error) {
	if !s.nodeExists(from) {
		return 0, types.NewNodeNotFound(from)
	}
	if !s.nodeExists(to) {
		return 0, types.NewNodeNotFound(to)
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, types.NewBackendIO("begin transaction", err)
	}
	weight, err := s.incrementEdgeTx(tx, from, to)
	if err != nil {
		tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, types.NewTxnConflict(err.Error())
	}
	return weight, nil
}

func (s *Store) incrementEdgeTx(tx *sql.Tx, from, to types.NodeId) (types.EdgeWeight, error) {
	var current int64
	err := tx.QueryRow(`SELECT weight FROM edges WHERE from_id = ? AND to_id = ?`, uint64(from), uint64(to)).Scan(&current)
	var next types.EdgeWeight
	if err == sql.ErrNoRows {
		next = types.NewEdgeWeight(1)
		if _, err := tx.Exec(`INSERT INTO edges (from_id, to_id, weight) VALUES (?, ?, ?)`,
			uint64(from), uint64(to), int64(next)); err != nil {
			return 0, types.NewBackendIO("inserting edge", err)
		}
		return next, nil
	}
	if err != nil {
		return 0, types.NewBackendIO("querying edge", err)
	}
	next = types.NewEdgeWeight(current).Increment()
	if _, err := tx.Exec(`UPDATE edges SET weight = ? WHERE from_id = ? AND to_id = ?`,
		int64(next), uint64(from), uint64(to)); err != nil {
		return 0, types.NewBackendIO("updating edge", err)
	}
	return next, nil
}

// SetEdge materializes (from, to) at exactly weight in one transaction,
// without reading the current value first. Used by snapshot replay so an
// edge's recorded weight (including 0) is reproduced exactly rather than
// through a loop of saturating increments.
func (s *Store) SetEdge(from, to types.NodeId, weight types.EdgeWeight) error {
	if !s.nodeExists(from) {
		return types.NewNodeNotFound(from)
	}
	if !s.nodeExists(to) {
		return types.NewNodeNotFound(to)
	}
	tx, err := s.conn.Begin()
	if err != nil {
		return types.NewBackendIO("begin transaction", err)
	}
	_, err = tx.Exec(`INSERT INTO edges (from_id, to_id, weight) VALUES (?, ?, ?)
		ON CONFLICT(from_id, to_id) DO UPDATE SET weight = excluded.weight`,
		uint64(from), uint64(to), int64(weight))
	if err != nil {
		tx.Rollback()
		return types.NewBackendIO("setting edge", err)
	}
	if err := tx.Commit(); err != nil {
		return types.NewTxnConflict(err.Error())
	}
	return nil
}

func (s *Store) DecrementEdge(from, to types.NodeId) (types.EdgeWeight, error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return 0, types.NewBackendIO("begin transaction", err)
	}
	var current int64
	err = tx.QueryRow(`SELECT weight FROM edges WHERE from_id = ? AND to_id = ?`, uint64(from), uint64(to)).Scan(&current)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return 0, types.NewEdgeNotFound(from, to)
	}
	if err != nil {
		tx.Rollback()
		return 0, types.NewBackendIO("querying edge", err)
	}
	next := types.NewEdgeWeight(current).Decrement()
	if _, err := tx.Exec(`UPDATE edges SET weight = ? WHERE from_id = ? AND to_id = ?`,
		int64(next), uint64(from), uint64(to)); err != nil {
		tx.Rollback()
		return 0, types.NewBackendIO("updating edge", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, types.NewTxnConflict(err.Error())
	}
	return next, nil
}

func (s *Store) Neighbors(node types.NodeId) ([]graph.Neighbor, error) {
	if !s.nodeExists(node) {
		return nil, types.NewNodeNotFound(node)
	}
	rows, err := s.conn.Query(`SELECT to_id, weight FROM edges WHERE from_id = ? ORDER BY to_id ASC`, uint64(node))
	if err != nil {
		return nil, types.NewBackendIO("querying neighbors", err)
	}
	defer rows.Close()

	var neighbors []graph.Neighbor
	for rows.Next() {
		var to uint64
		var weight int64
		if err := rows.Scan(&to, &weight); err != nil {
			return nil, types.NewBackendIO("scanning neighbor row", err)
		}
		neighbors = append(neighbors, graph.Neighbor{To: types.NodeId(to), Weight: types.NewEdgeWeight(weight)})
	}
	return neighbors, rows.Err()
}

func (s *Store) GetEdgeWeight(from, to types.NodeId) (types.EdgeWeight, bool, error) {
	var weight int64
	err := s.conn.QueryRow(`SELECT weight FROM edges WHERE from_id = ? AND to_id = ?`, uint64(from), uint64(to)).Scan(&weight)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, types.NewBackendIO("querying edge weight", err)
	}
	return types.NewEdgeWeight(weight), true, nil
}

func (s *Store) Lookup(entity types.EntityId) (types.NodeId, bool, error) {
	node, ok := s.entityIdx[entity]
	return node, ok, nil
}

func (s *Store) ContainsNode(node types.NodeId) (bool, error) {
	return s.nodeExists(node), nil
}

func (s *Store) nodeExists(node types.NodeId) bool {
	return uint64(node) < s.nextNodeID
}

func (s *Store) NodeCount() (uint64, error) { return s.nextNodeID, nil }

func (s *Store) EdgeCount() (uint64, error) {
	var count uint64
	if err := s.conn.QueryRow(`SELECT COUNT(*) FROM edges`).Scan(&count); err != nil {
		return 0, types.NewBackendIO("counting edges", err)
	}
	return count, nil
}

func (s *Store) StableEdgeCount() (uint64, error) {
	var count uint64
	err := s.conn.QueryRow(`SELECT COUNT(*) FROM edges WHERE weight >= ?`, types.StableEdgeThreshold).Scan(&count)
	if err != nil {
		return 0, types.NewBackendIO("counting stable edges", err)
	}
	return count, nil
}

func (s *Store) Snapshot() (*graph.Snapshot, error) {
	snap := &graph.Snapshot{NextNodeID: s.nextNodeID}

	nodeRows, err := s.conn.Query(`SELECT node_id, entity_id FROM nodes ORDER BY node_id ASC`)
	if err != nil {
		return nil, types.NewBackendIO("querying nodes", err)
	}
	for nodeRows.Next() {
		var id, entity uint64
		if err := nodeRows.Scan(&id, &entity); err != nil {
			nodeRows.Close()
			return nil, types.NewBackendIO("scanning node row", err)
		}
		snap.Nodes = append(snap.Nodes, types.Node{ID: types.NodeId(id), Entity: types.EntityId(entity)})
	}
	if err := nodeRows.Err(); err != nil {
		nodeRows.Close()
		return nil, types.NewBackendIO("iterating nodes", err)
	}
	nodeRows.Close()

	edgeRows, err := s.conn.Query(`SELECT from_id, to_id, weight FROM edges ORDER BY from_id ASC, to_id ASC`)
	if err != nil {
		return nil, types.NewBackendIO("querying edges", err)
	}
	for edgeRows.Next() {
		var from, to uint64
		var weight int64
		if err := edgeRows.Scan(&from, &to, &weight); err != nil {
			edgeRows.Close()
			return nil, types.NewBackendIO("scanning edge row", err)
		}
		snap.Edges = append(snap.Edges, types.Edge{From: types.NodeId(from), To: types.NodeId(to), Weight: types.NewEdgeWeight(weight)})
	}
	if err := edgeRows.Err(); err != nil {
		edgeRows.Close()
		return nil, types.NewBackendIO("iterating edges", err)
	}
	edgeRows.Close()

	propRows, err := s.conn.Query(`SELECT node_id, values_blob FROM properties ORDER BY node_id ASC`)
	if err != nil {
		return nil, types.NewBackendIO("querying properties", err)
	}
	perNode := map[types.NodeId]map[types.Attribute][]types.Value{}
	var nodeOrder []types.NodeId
	for propRows.Next() {
		var nodeID uint64
		var blob []byte
		if err := propRows.Scan(&nodeID, &blob); err != nil {
			propRows.Close()
			return nil, types.NewBackendIO("scanning property row", err)
		}
		groups, err := decodeGroups(blob)
		if err != nil {
			propRows.Close()
			return nil, err
		}
		node := types.NodeId(nodeID)
		byAttr, ok := perNode[node]
		if !ok {
			byAttr = map[types.Attribute][]types.Value{}
			perNode[node] = byAttr
			nodeOrder = append(nodeOrder, node)
		}
		for _, g := range groups {
			byAttr[g.attribute] = append(byAttr[g.attribute], g.values...)
		}
	}
	if err := propRows.Err(); err != nil {
		propRows.Close()
		return nil, types.NewBackendIO("iterating properties", err)
	}
	propRows.Close()

	for _, node := range nodeOrder {
		for _, entry := range sortedPropertyEntries(perNode[node]) {
			snap.Properties = append(snap.Properties, graph.NodeProperties{
				Node: node, Attribute: entry.Attribute, Values: entry.Values,
			})
		}
	}

	return snap, nil
}

// BatchIngest applies every signal's (upsert-node, append-property) effects
// inside one transaction. It tracks node assignments in a scratch copy of
// the entity index so a mid-batch failure can roll back without the live
// cache ever having observed the aborted work.
func (s *Store) BatchIngest(signals []types.Signal) ([]types.NodeId, error) {
	for _, sig := range signals {
		if err := sig.Validate(); err != nil {
			return nil, err
		}
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return nil, types.NewBackendIO("begin transaction", err)
	}

	scratch := make(map[types.EntityId]types.NodeId, len(s.entityIdx))
	for k, v := range s.entityIdx {
		scratch[k] = v
	}
	nextID := s.nextNodeID

	ids := make([]types.NodeId, len(signals))
	for i, sig := range signals {
		node, advanced, created, err := upsertNodeTx(tx, scratch, nextID, sig.EntityID)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if created {
			scratch[sig.EntityID] = node
			nextID = advanced
		}

		attr, _ := types.NewAttribute(sig.Attribute)
		value, _ := types.NewValue(sig.Value)
		if err := s.appendPropertyTx(tx, node, attr, value); err != nil {
			tx.Rollback()
			return nil, err
		}
		ids[i] = node
	}

	if err := tx.Commit(); err != nil {
		return nil, types.NewTxnConflict(err.Error())
	}

	s.entityIdx = scratch
	s.nextNodeID = nextID
	return ids, nil
}

func sortedPropertyEntries(byAttr map[types.Attribute][]types.Value) []graph.PropertyEntry {
	attrs := make([]types.Attribute, 0, len(byAttr))
	for a := range byAttr {
		attrs = append(attrs, a)
	}
	insertionSortAttributes(attrs)

	entries := make([]graph.PropertyEntry, 0, len(attrs))
	for _, a := range attrs {
		entries = append(entries, graph.PropertyEntry{Attribute: a, Values: byAttr[a]})
	}
	return entries
}

// insertionSortAttributes sorts a short attribute slice ascending. A plain
// insertion sort is plenty: a single node's distinct attribute count is
// small in practice, and it avoids pulling in sort.Slice's reflection for
// what is otherwise a tight, allocation-free loop.
func insertionSortAttributes(attrs []types.Attribute) {
	for i := 1; i < len(attrs); i++ {
		for j := i; j > 0 && attrs[j-1] > attrs[j]; j-- {
			attrs[j-1], attrs[j] = attrs[j], attrs[j-1]
		}
	}
}
