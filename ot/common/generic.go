package common

import "time"

// OTValue is the contract every flavor's Delta type satisfies. It is
// deliberately a self-referential generic ("F-bounded") interface: body.Delta
// implements OTValue[body.Delta], caret.Delta implements
// OTValue[caret.Delta], and so on: one generic Change/Snapshot pair,
// parameterized per flavor, instead of per-flavor runtime class
// reflection.
type OTValue[D any] interface {
	// IsDocument reports whether this delta, composed onto the empty
	// snapshot, yields a valid snapshot (§3.2).
	IsDocument() bool

	// IsEmpty reports whether this delta carries no ops at all.
	IsEmpty() bool

	// Compose returns the delta that results from applying other after
	// this one.
	Compose(other D) D

	// Transform rebases this delta (the receiver) so it can be composed
	// onto a document that already has other applied. thisIsFirst breaks
	// ties when both sides touch the same position/field; only Body
	// gives this a non-trivial implementation (§4.1).
	Transform(other D, thisIsFirst bool) D

	// Diff returns the delta that composes this (a document delta) into
	// newer (another document delta of the same flavor). Only legal
	// when both IsDocument.
	Diff(newer D) (D, error)

	// Equal is flavor-specific structural equality, compared in
	// canonical form.
	Equal(other D) bool
}

// Change bundles a delta with the revision number it produces and
// optional authorship/timing metadata (§3.3).
type Change[D any] struct {
	Rev       RevisionNumber
	Delta     D
	Timestamp *time.Time
	Author    *AuthorId
}

// NewChange builds a bare, authorless, timeless Change.
func NewChange[D any](rev RevisionNumber, delta D) Change[D] {
	return Change[D]{Rev: rev, Delta: delta}
}

// WithTimestamp returns a copy of c carrying the given timestamp.
func (c Change[D]) WithTimestamp(t time.Time) Change[D] {
	c.Timestamp = &t
	return c
}

// WithAuthor returns a copy of c carrying the given author id.
func (c Change[D]) WithAuthor(a AuthorId) Change[D] {
	c.Author = &a
	return c
}

// Snapshot is canonical materialized document state: a revision number
// plus the document delta that produced it (§3.4). Snapshot is used by
// pointer so that the "returns the same instance" identity invariants in
// §8 are literally pointer identity, not just structural equality.
type Snapshot[D OTValue[D]] struct {
	Rev      RevisionNumber
	Contents D
}

// NewSnapshot constructs a snapshot, validating that contents is in fact
// a document delta.
func NewSnapshot[D OTValue[D]](rev RevisionNumber, contents D) (*Snapshot[D], error) {
	if !contents.IsDocument() {
		return nil, BadValue("snapshot contents must be a document delta")
	}
	return &Snapshot[D]{Rev: rev, Contents: contents}, nil
}

// Compose applies a Change on top of this snapshot (§3.4 invariant 1).
// An empty delta with an unchanged revision number returns the same
// *Snapshot instance (invariant 4 / §8 round-trip property).
func (s *Snapshot[D]) Compose(c Change[D]) *Snapshot[D] {
	if c.Rev == s.Rev && c.Delta.IsEmpty() {
		return s
	}
	return &Snapshot[D]{Rev: c.Rev, Contents: s.Contents.Compose(c.Delta)}
}

// WithRevNum returns a snapshot with the same contents but a different
// revision number, returning the same instance when rev is unchanged.
func (s *Snapshot[D]) WithRevNum(rev RevisionNumber) *Snapshot[D] {
	if rev == s.Rev {
		return s
	}
	return &Snapshot[D]{Rev: rev, Contents: s.Contents}
}

// Diff returns the Change that, composed onto s, yields newer (§3.4
// invariant 2). The result carries newer's revision number and no
// timestamp/authorId, per §4.1.
func (s *Snapshot[D]) Diff(newer *Snapshot[D]) (Change[D], error) {
	d, err := s.Contents.Diff(newer.Contents)
	if err != nil {
		return Change[D]{}, err
	}
	return Change[D]{Rev: newer.Rev, Delta: d}, nil
}

// Equal compares two snapshots for structural equality (same revision,
// same canonical contents).
func (s *Snapshot[D]) Equal(other *Snapshot[D]) bool {
	if s == other {
		return true
	}
	if s == nil || other == nil {
		return false
	}
	return s.Rev == other.Rev && s.Contents.Equal(other.Contents)
}
