package persistence

import (
	"github.com/klauspost/compress/zstd"

	"kremis-core/graph"
	"kremis-core/types"
)

// ExportCompressed wraps Export's mandatory byte layout in a zstd frame, as
// a storage-size convenience for callers who opt in. It is additive: the
// spec-mandated Export/Import pair above never compresses.
func ExportCompressed(snap *graph.Snapshot) ([]byte, error) {
	encoder, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, types.NewBackendIO("zstd encoder init failed", err)
	}
	defer encoder.Close()
	return encoder.EncodeAll(Export(snap), nil), nil
}

// ImportCompressed is ExportCompressed's inverse. Anything that isn't a
// valid zstd frame fails with Serialization.
func ImportCompressed(data []byte) (*graph.Snapshot, error) {
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, types.NewBackendIO("zstd decoder init failed", err)
	}
	defer decoder.Close()

	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, types.NewSerialization("not a valid zstd frame: " + err.Error())
	}
	return Import(raw)
}
