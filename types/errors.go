package types

import (
	"errors"
	"fmt"
)

// Kind distinguishes the error taxonomy every fallible core operation draws
// from. Every Kind carries a human-readable reason; see Error.
type Kind int

const (
	// KindInvalidSignal means a Signal failed validation before any state
	// touched storage.
	KindInvalidSignal Kind = iota
	// KindNodeNotFound means a referential operation targeted a NodeId that
	// does not exist.
	KindNodeNotFound
	// KindEdgeNotFound means a referential operation targeted an edge that
	// does not exist.
	KindEdgeNotFound
	// KindBackendIO means the underlying storage engine failed.
	KindBackendIO
	// KindTxnConflict means a transaction could not commit.
	KindTxnConflict
	// KindBackendLocked means a persistent backend is already open by
	// another process.
	KindBackendLocked
	// KindChecksumMismatch means a canonical import failed checksum
	// verification.
	KindChecksumMismatch
	// KindVersionUnsupported means a codec encountered an unknown format
	// version.
	KindVersionUnsupported
	// KindImportTooLarge means a canonical import exceeded a size-limit
	// guard.
	KindImportTooLarge
	// KindPayloadTooLarge means a persistence payload exceeded its
	// size-limit guard.
	KindPayloadTooLarge
	// KindSerialization means a codec encountered malformed bytes.
	KindSerialization
)

var kindNames = [...]string{
	KindInvalidSignal:     "InvalidSignal",
	KindNodeNotFound:      "NodeNotFound",
	KindEdgeNotFound:      "EdgeNotFound",
	KindBackendIO:         "BackendIo",
	KindTxnConflict:       "TxnConflict",
	KindBackendLocked:     "BackendLocked",
	KindChecksumMismatch:  "ChecksumMismatch",
	KindVersionUnsupported: "VersionUnsupported",
	KindImportTooLarge:    "ImportTooLarge",
	KindPayloadTooLarge:   "PayloadTooLarge",
	KindSerialization:     "Serialization",
}

// String returns the taxonomy name, e.g. "NodeNotFound".
func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return "Unknown"
	}
	return kindNames[k]
}

// Error is the single error type every core operation returns. Reason is a
// human-readable description; construction helpers below produce
// byte-identical Error() strings across backends for the same condition.
type Error struct {
	Kind   Kind
	Reason string
	Cause  error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
}

// Unwrap exposes the wrapped cause, if any, to errors.Is/errors.As.
func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Kind, so callers can
// write errors.Is(err, types.NewNodeNotFound(0)) style checks, or more
// simply compare with IsKind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// IsKind reports whether err is, or wraps, an *Error of the given Kind.
func IsKind(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// NewInvalidSignal builds a KindInvalidSignal error with the given reason.
func NewInvalidSignal(reason string) *Error {
	return &Error{Kind: KindInvalidSignal, Reason: reason}
}

// NewNodeNotFound builds a KindNodeNotFound error for the given NodeId.
func NewNodeNotFound(id NodeId) *Error {
	return &Error{Kind: KindNodeNotFound, Reason: fmt.Sprintf("node %d not found", id)}
}

// NewEdgeNotFound builds a KindEdgeNotFound error for the given edge.
func NewEdgeNotFound(from, to NodeId) *Error {
	return &Error{Kind: KindEdgeNotFound, Reason: fmt.Sprintf("edge %d -> %d not found", from, to)}
}

// NewBackendIO wraps a storage-engine failure.
func NewBackendIO(reason string, cause error) *Error {
	return &Error{Kind: KindBackendIO, Reason: reason, Cause: cause}
}

// NewTxnConflict builds a KindTxnConflict error.
func NewTxnConflict(reason string) *Error {
	return &Error{Kind: KindTxnConflict, Reason: reason}
}

// NewBackendLocked builds a KindBackendLocked error for the given path.
func NewBackendLocked(path string) *Error {
	return &Error{Kind: KindBackendLocked, Reason: fmt.Sprintf("backend already open: %s", path)}
}

// NewChecksumMismatch builds a KindChecksumMismatch error.
func NewChecksumMismatch(expected, got uint64) *Error {
	return &Error{Kind: KindChecksumMismatch, Reason: fmt.Sprintf("checksum mismatch: expected %d, got %d", expected, got)}
}

// NewVersionUnsupported builds a KindVersionUnsupported error.
func NewVersionUnsupported(version uint32) *Error {
	return &Error{Kind: KindVersionUnsupported, Reason: fmt.Sprintf("unsupported version %d", version)}
}

// NewImportTooLarge builds a KindImportTooLarge error naming which count
// exceeded its bound.
func NewImportTooLarge(what string, got, max uint64) *Error {
	return &Error{Kind: KindImportTooLarge, Reason: fmt.Sprintf("%s count %d exceeds maximum %d", what, got, max)}
}

// NewPayloadTooLarge builds a KindPayloadTooLarge error.
func NewPayloadTooLarge(got, max int) *Error {
	return &Error{Kind: KindPayloadTooLarge, Reason: fmt.Sprintf("payload %d bytes exceeds maximum %d bytes", got, max)}
}

// NewSerialization builds a KindSerialization error.
func NewSerialization(reason string) *Error {
	return &Error{Kind: KindSerialization, Reason: reason}
}
