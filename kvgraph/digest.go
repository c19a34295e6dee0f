package kvgraph

import "hash/fnv"

// attributeDigest is the stable, non-random 64-bit fingerprint the
// properties table keys on, alongside NodeId. FNV-1a rather than a
// language-default hasher: the default Go map hasher is seeded per
// process specifically to randomize iteration order, which is the exact
// failure mode a persistent key must never exhibit.
func attributeDigest(attribute string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(attribute))
	return h.Sum64()
}
