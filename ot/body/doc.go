package body

import "github.com/quillhub/scribe/ot/common"

// Change and Snapshot instantiate the shared generic types from
// ot/common over body.Delta.
type (
	Change   = common.Change[Delta]
	Snapshot = common.Snapshot[Delta]
)

// EmptySnapshot is the canonical starting point for a new body document:
// revision 0 composed with the empty delta is not itself revision 0
// content (§3.4 invariant 3 concerns composing a document delta onto
// EMPTY); EmptySnapshot is the EMPTY value snapshots compose onto.
var EmptySnapshot = &Snapshot{Rev: common.NoRevision, Contents: Empty}

// NewSnapshot validates that contents is a document delta before
// wrapping it.
func NewSnapshot(rev common.RevisionNumber, contents Delta) (*Snapshot, error) {
	return common.NewSnapshot[Delta](rev, contents)
}
