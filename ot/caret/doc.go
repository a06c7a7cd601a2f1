package caret

import "github.com/quillhub/scribe/ot/common"

// Change and Snapshot instantiate the shared generic types from
// ot/common over caret.Delta.
type (
	Change   = common.Change[Delta]
	Snapshot = common.Snapshot[Delta]
)

// EmptySnapshot is a document with no live sessions.
var EmptySnapshot = &Snapshot{Rev: common.NoRevision, Contents: Empty}

// NewSnapshot validates that contents is a document delta before
// wrapping it.
func NewSnapshot(rev common.RevisionNumber, contents Delta) (*Snapshot, error) {
	return common.NewSnapshot[Delta](rev, contents)
}
