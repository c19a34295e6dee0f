package kvgraph

import (
	"bytes"
	"encoding/binary"
	"io"

	"kremis-core/types"
)

// propertyGroup is one attribute's ordered value sequence, as stored
// inside a properties row's values_blob. A row can hold more than one
// group when two distinct attributes collide on the same attr_digest for
// the same node; that is the entire collision-resolution mechanism.
type propertyGroup struct {
	attribute types.Attribute
	values    []types.Value
}

func encodeGroups(groups []propertyGroup) []byte {
	var buf bytes.Buffer
	writeU32(&buf, uint32(len(groups)))
	for _, g := range groups {
		writeBlob(&buf, []byte(g.attribute))
		writeU32(&buf, uint32(len(g.values)))
		for _, v := range g.values {
			writeBlob(&buf, []byte(v))
		}
	}
	return buf.Bytes()
}

func decodeGroups(data []byte) ([]propertyGroup, error) {
	r := bytes.NewReader(data)
	count, err := readU32(r)
	if err != nil {
		return nil, err
	}
	groups := make([]propertyGroup, 0, count)
	for i := uint32(0); i < count; i++ {
		attr, err := readBlob(r)
		if err != nil {
			return nil, err
		}
		valueCount, err := readU32(r)
		if err != nil {
			return nil, err
		}
		values := make([]types.Value, 0, valueCount)
		for j := uint32(0); j < valueCount; j++ {
			v, err := readBlob(r)
			if err != nil {
				return nil, err
			}
			values = append(values, types.Value(v))
		}
		groups = append(groups, propertyGroup{attribute: types.Attribute(attr), values: values})
	}
	return groups, nil
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	buf.Write(tmp[:])
}

func writeBlob(buf *bytes.Buffer, b []byte) {
	writeU32(buf, uint32(len(b)))
	buf.Write(b)
}

func readU32(r *bytes.Reader) (uint32, error) {
	var tmp [4]byte
	if _, err := io.ReadFull(r, tmp[:]); err != nil {
		return 0, types.NewSerialization("truncated property field")
	}
	return binary.LittleEndian.Uint32(tmp[:]), nil
}

func readBlob(r *bytes.Reader) ([]byte, error) {
	n, err := readU32(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if n > 0 {
		if _, err := io.ReadFull(r, out); err != nil {
			return nil, types.NewSerialization("truncated property blob")
		}
	}
	return out, nil
}
