// Package store implements the append-only per-file change log and
// current-revision pointer described in §4.2: FileStore.getFile,
// FileHandle.currentRevNum/appendChange/getSnapshot/whenPathIsNot, with
// configurable timeout clamping. It is flavor-agnostic: FileStore and
// FileHandle are generic over any OT flavor satisfying
// common.OTValue[D], so the same store code backs body, caret, and
// property change logs alike.
package store

import (
	"context"
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// Timeouts, per §4.2: every blocking op accepts an optional timeout
// clamped into [MinTimeoutMsec, MaxTimeoutMsec]; nil means "the
// configured max, but never longer than one day."
const (
	MinTimeoutMsec = 50
	MaxTimeoutMsec = 24 * 60 * 60 * 1000
)

// ClampTimeout resolves an optional requested timeout against the
// store's configured bounds.
func ClampTimeout(requested *time.Duration, configuredMax time.Duration) time.Duration {
	max := configuredMax
	if max <= 0 || max > MaxTimeoutMsec*time.Millisecond {
		max = MaxTimeoutMsec * time.Millisecond
	}
	if requested == nil {
		return max
	}
	d := *requested
	if d < MinTimeoutMsec*time.Millisecond {
		d = MinTimeoutMsec * time.Millisecond
	}
	if d > max {
		d = max
	}
	return d
}

// StoredChange is a flavor-agnostic form of a Change, with the delta
// pre-encoded by the caller's Codec so the store package itself never
// needs to import an OT flavor. No store in this package uses it;
// BadgerStore persists its own record type.
type StoredChange struct {
	Rev       common.RevisionNumber
	Data      []byte
	AuthorId  *common.AuthorId
	Timestamp *time.Time
}

// Codec adapts a flavor's Delta type to the opaque bytes the store
// persists. body/caret/property's JSON (Un)MarshalJSON methods back the
// default implementation in codec.go.
type Codec[D any] interface {
	Encode(d D) ([]byte, error)
	Decode(data []byte) (D, error)
}

// FileStore resolves FileIds to FileHandles, creating the underlying
// log on first access (§4.2: "creates-on-demand at the storage layer,
// with an exists() probe distinct from creation").
type FileStore[D common.OTValue[D]] interface {
	GetFile(ctx context.Context, fileId common.FileId) (FileHandle[D], error)
	Exists(ctx context.Context, fileId common.FileId) (bool, error)
	Close() error
}

// FileHandle is an append-only, ordered log of Changes for one file,
// plus a mutable pointer to the current revision (§4.2).
type FileHandle[D common.OTValue[D]] interface {
	// CurrentRevNum returns the latest revision number appended, or
	// common.NoRevision if the file has never been written to.
	CurrentRevNum(ctx context.Context, timeout *time.Duration) (common.RevisionNumber, error)

	// AppendChange returns true on success. It returns false *only* on
	// lost-race (another writer appended a change at the same target
	// revNum first); all other failures return a non-nil error.
	AppendChange(ctx context.Context, change common.Change[D], timeout *time.Duration) (bool, error)

	// GetSnapshot materializes the document state at revNum (current
	// revision if nil), failing with common.KindRevisionNotAvailable if
	// revNum predates the retained history or is ahead of current.
	GetSnapshot(ctx context.Context, revNum *common.RevisionNumber, timeout *time.Duration) (*common.Snapshot[D], error)

	// WhenPathIsNot blocks until the current revision differs from
	// knownRev (the store's stand-in for a path/content-hash pair,
	// since the exact on-disk byte layout is store-specific per §6),
	// the timeout elapses (common.KindTimedOut), or ctx is cancelled.
	WhenPathIsNot(ctx context.Context, knownRev common.RevisionNumber, timeout *time.Duration) error
}
