// Package persistence implements the disk snapshot format (spec §4.h): a
// short magic+version header wrapping the same sorted-body record layout
// the canonical codec uses, without a checksum or length-prefixed header —
// durability here comes from the store, not from self-verification.
package persistence

import (
	"encoding/binary"

	"kremis-core/canonical"
	"kremis-core/graph"
	"kremis-core/types"
)

// Magic is the 4-byte tag every persistence payload begins with.
var Magic = [4]byte{'K', 'R', 'E', 'M'}

// Version is the current persistence format version byte.
const Version byte = 2

// frameLen is magic(4) + version(1) + node_count(8) + edge_count(8).
const frameLen = 4 + 1 + 8 + 8

// Export serializes snap into the persistence byte layout. Payloads larger
// than MaxPersistencePayloadBytes are rejected by Import, never by Export:
// a caller always gets to see what it produced.
func Export(snap *graph.Snapshot) []byte {
	body := canonical.EncodeBody(snap)

	out := make([]byte, frameLen, frameLen+len(body))
	copy(out[0:4], Magic[:])
	out[4] = Version
	binary.LittleEndian.PutUint64(out[5:13], uint64(len(snap.Nodes)))
	binary.LittleEndian.PutUint64(out[13:21], uint64(len(snap.Edges)))
	out = append(out, body...)
	return out
}

// Import parses a persistence payload back into a Snapshot. Payloads
// exceeding MaxPersistencePayloadBytes fail with PayloadTooLarge before any
// parsing is attempted.
func Import(data []byte) (*graph.Snapshot, error) {
	if len(data) > types.MaxPersistencePayloadBytes {
		return nil, types.NewPayloadTooLarge(len(data), types.MaxPersistencePayloadBytes)
	}
	if len(data) < frameLen {
		return nil, types.NewSerialization("payload shorter than frame header")
	}
	if data[0] != Magic[0] || data[1] != Magic[1] || data[2] != Magic[2] || data[3] != Magic[3] {
		return nil, types.NewSerialization("bad magic")
	}
	version := data[4]
	if version != Version {
		return nil, types.NewVersionUnsupported(uint32(version))
	}
	nodeCount := binary.LittleEndian.Uint64(data[5:13])
	edgeCount := binary.LittleEndian.Uint64(data[13:21])

	return canonical.DecodeBody(data[frameLen:], nodeCount, edgeCount, uint32(version))
}
