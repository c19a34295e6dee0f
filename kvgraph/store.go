// Package kvgraph is the persistent GraphStore backend (spec §4.d): an
// embedded ACID key-value store, opened exclusively per process, with an
// in-memory entity index cache mirroring the on-disk ENTITY_INDEX table.
//
// It is grounded on the teacher's own SQLite wiring (kailab/store/sqlite.go,
// ivcs/internal/graph/graph.go): open the file, apply pragmas, apply schema,
// run every mutation inside one transaction.
package kvgraph

import (
	"database/sql"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"kremis-core/diagnostics"
	"kremis-core/graph"
	"kremis-core/types"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS nodes       (node_id INTEGER PRIMARY KEY, entity_id INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS edges       (from_id INTEGER NOT NULL, to_id INTEGER NOT NULL, weight INTEGER NOT NULL, PRIMARY KEY (from_id, to_id));
CREATE TABLE IF NOT EXISTS entity_index(entity_id INTEGER PRIMARY KEY, node_id INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS metadata    (name TEXT PRIMARY KEY, value INTEGER NOT NULL);
CREATE TABLE IF NOT EXISTS properties  (node_id INTEGER NOT NULL, attr_digest INTEGER NOT NULL, attribute TEXT NOT NULL, values_blob BLOB NOT NULL, PRIMARY KEY (node_id, attr_digest));
CREATE INDEX IF NOT EXISTS edges_from_idx ON edges(from_id);
CREATE INDEX IF NOT EXISTS properties_node_idx ON properties(node_id);
`

var pragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA synchronous=NORMAL",
	"PRAGMA foreign_keys=ON",
}

const nextNodeIDKey = "next_node_id"

// Store is the persistent GraphStore implementation.
type Store struct {
	conn       *sql.DB
	lockFile   *os.File
	path       string
	entityIdx  map[types.EntityId]types.NodeId
	nextNodeID uint64

	// Recorder receives non-fatal diagnostics (e.g. an attribute digest
	// collision). nil behaves as diagnostics.NopRecorder.
	Recorder diagnostics.Recorder
}

var _ graph.GraphStore = (*Store)(nil)

// Open opens (creating if absent) the database at path, after acquiring an
// exclusive process-level lock on a sibling "<path>.lock" file. A second
// process attempting to open the same path fails immediately with
// BackendLocked; there is no retry or wait.
func Open(path string) (*Store, error) {
	lockFile, err := acquireLock(path)
	if err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		releaseLock(lockFile, path)
		return nil, types.NewBackendIO("opening sqlite database", err)
	}

	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close()
			releaseLock(lockFile, path)
			return nil, types.NewBackendIO(fmt.Sprintf("applying pragma %q", pragma), err)
		}
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		releaseLock(lockFile, path)
		return nil, types.NewBackendIO("applying schema", err)
	}

	s := &Store{conn: conn, lockFile: lockFile, path: path, entityIdx: map[types.EntityId]types.NodeId{}}
	if err := s.loadEntityIndex(); err != nil {
		conn.Close()
		releaseLock(lockFile, path)
		return nil, err
	}
	if err := s.loadNextNodeID(); err != nil {
		conn.Close()
		releaseLock(lockFile, path)
		return nil, err
	}
	return s, nil
}

// Create opens path as a fresh database. If force is true and a file
// already exists at path, it is truncated first.
func Create(path string, force bool) (*Store, error) {
	if force {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, types.NewBackendIO("removing existing database for force-create", err)
		}
	}
	return Open(path)
}

// Path returns the filesystem path this store was opened with.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle and the process-exclusive lock.
func (s *Store) Close() error {
	err := s.conn.Close()
	releaseLock(s.lockFile, s.path)
	return err
}

func acquireLock(path string) (*os.File, error) {
	lockPath := path + ".lock"
	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, types.NewBackendIO("opening lock file", err)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		f.Close()
		return nil, types.NewBackendLocked(path)
	}
	return f, nil
}

func releaseLock(f *os.File, path string) {
	unix.Flock(int(f.Fd()), unix.LOCK_UN)
	f.Close()
	if info, err := os.Stat(path + ".lock"); err == nil && info.Size() == 0 {
		os.Remove(path + ".lock")
	}
}

func (s *Store) loadEntityIndex() error {
	rows, err := s.conn.Query(`SELECT entity_id, node_id FROM entity_index`)
	if err != nil {
		return types.NewBackendIO("loading entity index", err)
	}
	defer rows.Close()
	for rows.Next() {
		var entity, node uint64
		if err := rows.Scan(&entity, &node); err != nil {
			return types.NewBackendIO("scanning entity index row", err)
		}
		s.entityIdx[types.EntityId(entity)] = types.NodeId(node)
	}
	return rows.Err()
}

func (s *Store) loadNextNodeID() error {
	var value uint64
	err := s.conn.QueryRow(`SELECT value FROM metadata WHERE name = ?`, nextNodeIDKey).Scan(&value)
	if err == sql.ErrNoRows {
		s.nextNodeID = 0
		return nil
	}
	if err != nil {
		return types.NewBackendIO("loading next_node_id", err)
	}
	s.nextNodeID = value
	return nil
}
