// Package canonical implements the verification serialization format (spec
// §4.g): a length-prefixed header carrying a checksum over a deterministic
// body. Two backends fed the same signal sequence must produce
// byte-identical output from Encode — that is the whole point of the
// format, and why every loop below walks pre-sorted slices rather than any
// backend-native container.
package canonical

import (
	"bytes"
	"encoding/binary"
	"hash/fnv"
	"io"
	"math/bits"

	"kremis-core/graph"
	"kremis-core/types"
)

// Magic is the 4-byte tag every canonical payload begins its header with.
var Magic = [4]byte{'K', 'R', 'E', 'X'}

// Version is the current canonical format version. Version 1 (no
// properties field) is still accepted on import; it decodes to an empty
// property store.
const Version uint32 = 2

const versionOneNoProperties uint32 = 1

// headerLen is the fixed byte length of the header that follows the
// 4-byte header_len prefix: magic(4) + version(4) + node_count(8) +
// edge_count(8) + checksum(8).
const headerLen = 4 + 4 + 8 + 8 + 8

// Encode serializes snap into the canonical format: header_len (u32 LE),
// header, body. The body is built from snap's fields exactly as Snapshot
// returns them — already sorted by key — so Encode itself does no
// sorting; sortedness is the backend's contract, not the codec's.
func Encode(snap *graph.Snapshot) []byte {
	body := EncodeBody(snap)
	checksum := computeChecksum(snap)

	header := make([]byte, headerLen)
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint32(header[4:8], Version)
	binary.LittleEndian.PutUint64(header[8:16], uint64(len(snap.Nodes)))
	binary.LittleEndian.PutUint64(header[16:24], uint64(len(snap.Edges)))
	binary.LittleEndian.PutUint64(header[24:32], checksum)

	out := make([]byte, 0, 4+len(header)+len(body))
	var lenPrefix [4]byte
	binary.LittleEndian.PutUint32(lenPrefix[:], uint32(len(header)))
	out = append(out, lenPrefix[:]...)
	out = append(out, header...)
	out = append(out, body...)
	return out
}

// Decode parses a canonical payload back into a Snapshot, verifying the
// checksum and enforcing the import size limits. A version-1 payload is
// accepted and decodes with an empty Properties slice, per spec.md's
// explicit "do not synthesize them" instruction.
func Decode(data []byte) (*graph.Snapshot, error) {
	if len(data) < 4 {
		return nil, types.NewSerialization("payload shorter than length prefix")
	}
	hdrLen := binary.LittleEndian.Uint32(data[0:4])
	if len(data) < int(4+hdrLen) {
		return nil, types.NewSerialization("payload shorter than declared header length")
	}
	header := data[4 : 4+hdrLen]
	body := data[4+hdrLen:]

	if hdrLen < headerLen || !bytes.Equal(header[0:4], Magic[:]) {
		return nil, types.NewSerialization("bad magic")
	}
	version := binary.LittleEndian.Uint32(header[4:8])
	if version != Version && version != versionOneNoProperties {
		return nil, types.NewVersionUnsupported(version)
	}
	nodeCount := binary.LittleEndian.Uint64(header[8:16])
	edgeCount := binary.LittleEndian.Uint64(header[16:24])
	wantChecksum := binary.LittleEndian.Uint64(header[24:32])

	if nodeCount > types.MaxImportNodeCount {
		return nil, types.NewImportTooLarge("node", nodeCount, types.MaxImportNodeCount)
	}
	if edgeCount > types.MaxImportEdgeCount {
		return nil, types.NewImportTooLarge("edge", edgeCount, types.MaxImportEdgeCount)
	}

	snap, err := DecodeBody(body, nodeCount, edgeCount, version)
	if err != nil {
		return nil, err
	}

	if got := computeChecksum(snap); got != wantChecksum {
		return nil, types.NewChecksumMismatch(wantChecksum, got)
	}

	return snap, nil
}

// EncodeBody serializes snap's nodes, edges, next_node_id, and properties
// (but not node/edge counts, which the caller already knows from its own
// framing) into a flat byte sequence. Exported so package persistence can
// share the exact same record layout; only the outer framing differs
// between the two codecs.
func EncodeBody(snap *graph.Snapshot) []byte {
	var buf bytes.Buffer

	for _, n := range snap.Nodes {
		writeUint64(&buf, uint64(n.ID))
		writeUint64(&buf, uint64(n.Entity))
	}
	for _, e := range snap.Edges {
		writeUint64(&buf, uint64(e.From))
		writeUint64(&buf, uint64(e.To))
		writeUint64(&buf, uint64(e.Weight.Value()))
	}
	writeUint64(&buf, snap.NextNodeID)

	writeUint64(&buf, uint64(len(snap.Properties)))
	for _, p := range snap.Properties {
		writeUint64(&buf, uint64(p.Node))
		writeBytes(&buf, []byte(p.Attribute))
		writeUint64(&buf, uint64(len(p.Values)))
		for _, v := range p.Values {
			writeBytes(&buf, []byte(v))
		}
	}

	return buf.Bytes()
}

// DecodeBody is EncodeBody's inverse, given the node/edge counts the
// caller's own framing already carried.
func DecodeBody(body []byte, nodeCount, edgeCount uint64, version uint32) (*graph.Snapshot, error) {
	r := bytes.NewReader(body)
	snap := &graph.Snapshot{}

	for i := uint64(0); i < nodeCount; i++ {
		id, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		entity, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		snap.Nodes = append(snap.Nodes, types.Node{ID: types.NodeId(id), Entity: types.EntityId(entity)})
	}

	for i := uint64(0); i < edgeCount; i++ {
		from, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		to, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		weight, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		snap.Edges = append(snap.Edges, types.Edge{
			From: types.NodeId(from), To: types.NodeId(to), Weight: types.NewEdgeWeight(int64(weight)),
		})
	}

	nextNodeID, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	snap.NextNodeID = nextNodeID

	if version == versionOneNoProperties {
		return snap, nil
	}

	propCount, err := readUint64(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < propCount; i++ {
		node, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		attr, err := readBytes(r)
		if err != nil {
			return nil, err
		}
		valueCount, err := readUint64(r)
		if err != nil {
			return nil, err
		}
		values := make([]types.Value, 0, valueCount)
		for j := uint64(0); j < valueCount; j++ {
			v, err := readBytes(r)
			if err != nil {
				return nil, err
			}
			values = append(values, types.Value(v))
		}
		snap.Properties = append(snap.Properties, graph.NodeProperties{
			Node:      types.NodeId(node),
			Attribute: types.Attribute(attr),
			Values:    values,
		})
	}

	return snap, nil
}

// computeChecksum reproduces the XOR-fold-with-rotation polynomial this
// codec commits to on disk: per-field rotation constants 13/7 for nodes,
// 17/11/5 for edges, 19/23/29 for properties, 3 for next_node_id. The
// combinator is XOR, so it does not matter that the per-record mixes are
// folded in sorted order rather than some other order — each record's
// contribution is independent of its neighbors'.
func computeChecksum(snap *graph.Snapshot) uint64 {
	var acc uint64

	for _, n := range snap.Nodes {
		acc ^= bits.RotateLeft64(uint64(n.ID), 13) ^ bits.RotateLeft64(uint64(n.Entity), 7)
	}
	for _, e := range snap.Edges {
		acc ^= bits.RotateLeft64(uint64(e.From), 17) ^
			bits.RotateLeft64(uint64(e.To), 11) ^
			bits.RotateLeft64(uint64(e.Weight.Value()), 5)
	}
	for _, p := range snap.Properties {
		acc ^= bits.RotateLeft64(uint64(p.Node), 19) ^
			bits.RotateLeft64(hashBytes([]byte(p.Attribute)), 23) ^
			bits.RotateLeft64(hashOrderedValues(p.Values), 29)
	}
	acc ^= bits.RotateLeft64(snap.NextNodeID, 3)

	return acc
}

// hashBytes is the FNV-1a digest used throughout this codec for mixing
// variable-length fields into the fixed-width checksum. It is the same
// algorithm kvgraph uses for its attribute digest, chosen for the same
// reason: a fixed, non-randomized, reproducible-across-processes function.
func hashBytes(b []byte) uint64 {
	h := fnv.New64a()
	h.Write(b)
	return h.Sum64()
}

// hashOrderedValues folds a value sequence's FNV-1a digests together in a
// way sensitive to their order, since the property-append-order invariant
// is part of what this checksum must protect.
func hashOrderedValues(values []types.Value) uint64 {
	acc := uint64(14695981039346656037) // FNV offset basis
	for _, v := range values {
		acc = bits.RotateLeft64(acc, 1) ^ hashBytes([]byte(v))
	}
	return acc
}

func writeUint64(buf *bytes.Buffer, v uint64) {
	var tmp [8]byte
	binary.LittleEndian.PutUint64(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBytes(buf *bytes.Buffer, b []byte) {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf.Write(lenBuf[:])
	buf.Write(b)
}

func readUint64(r *bytes.Reader) (uint64, error) {
	var tmp [8]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, types.NewSerialization("truncated uint64 field")
	}
	return binary.LittleEndian.Uint64(tmp[:]), nil
}

func readBytes(r *bytes.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, types.NewSerialization("truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(lenBuf[:])
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, types.NewSerialization("truncated byte field")
		}
	}
	return out, nil
}

// Hash returns the canonical export's stable fingerprint, used by
// session.Session.Hash().
func Hash(snap *graph.Snapshot) [32]byte {
	return blake3Sum(Encode(snap))
}
