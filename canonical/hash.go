package canonical

import "lukechampine.com/blake3"

// blake3Sum produces the 32-byte BLAKE3 digest of data, grounded on the
// teacher's content-addressable-storage hasher.
func blake3Sum(data []byte) [32]byte {
	return blake3.Sum256(data)
}
