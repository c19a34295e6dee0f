package types

// AssociationWindow is the fixed lookback used when ingesting a sequence to
// decide which adjacent pairs receive an edge increment. It is always 1:
// a signal links only to the signal immediately following it.
const AssociationWindow = 1

// StableEdgeThreshold is the minimum weight an edge must carry to count as
// "stable" for status reporting and the stage system.
const StableEdgeThreshold = 10

// MaxTraversalDepth is the inclusive upper bound accepted by Compose,
// ComposeFiltered, and RelatedContext.
const MaxTraversalDepth = 100

// MaxIntersectNodes is the inclusive upper bound on the number of nodes
// accepted by Intersect.
const MaxIntersectNodes = 100

// MaxImportNodeCount is the inclusive upper bound on nodes in a canonical
// import before it fails with ImportTooLarge.
const MaxImportNodeCount = 1_000_000

// MaxImportEdgeCount is the inclusive upper bound on edges in a canonical
// import before it fails with ImportTooLarge.
const MaxImportEdgeCount = 10_000_000

// MaxPersistencePayloadBytes is the inclusive upper bound on a persistence
// snapshot's total byte length before it fails with PayloadTooLarge.
const MaxPersistencePayloadBytes = 500 * 1024 * 1024
