package body

import (
	"testing"

	"github.com/quillhub/scribe/ot/common"
	"github.com/stretchr/testify/require"
)

func mustText(t *testing.T, s string, attrs common.Attrs) Op {
	t.Helper()
	op, err := Text(s, attrs)
	require.NoError(t, err)
	return op
}

func mustRetain(t *testing.T, n int, attrs common.Attrs) Op {
	t.Helper()
	op, err := Retain(n, attrs)
	require.NoError(t, err)
	return op
}

func mustDelete(t *testing.T, n int) Op {
	t.Helper()
	op, err := Delete(n)
	require.NoError(t, err)
	return op
}

func TestComposeIdentity(t *testing.T) {
	d := New(mustText(t, "hello", nil))
	require.True(t, d.Compose(Empty).Equal(d))
	require.True(t, Empty.Compose(d).Equal(d))
}

func TestComposeHelloWorld(t *testing.T) {
	// §8 scenario 3.
	d1 := New(mustText(t, "Hello ", nil))
	d2 := New(mustRetain(t, 6, nil), mustText(t, "world", nil))
	got := Empty.Compose(d1).Compose(d2)
	want := New(mustText(t, "Hello world", nil))
	require.True(t, got.Equal(want), "got %#v want %#v", got.Ops(), want.Ops())
}

func TestComposeAssociative(t *testing.T) {
	a := New(mustText(t, "abc", nil))
	b := New(mustRetain(t, 1, nil), mustDelete(t, 1), mustText(t, "X", nil))
	c := New(mustRetain(t, 2, nil), mustText(t, "!", nil))

	left := a.Compose(b).Compose(c)
	right := a.Compose(b.Compose(c))
	require.True(t, left.Equal(right), "left=%#v right=%#v", left.Ops(), right.Ops())
}

func TestTransformConvergence(t *testing.T) {
	// Two concurrent edits against the same base must converge
	// regardless of application order (§3.2 invariant 3 / §8 property 3).
	base := New(mustText(t, "abcdef", nil))

	a := New(mustRetain(t, 2, nil), mustText(t, "XY", nil))   // insert at pos 2
	bDelta := New(mustRetain(t, 4, nil), mustText(t, "Z", nil)) // insert at pos 4

	left := base.Compose(a).Compose(bDelta.Transform(a, false))
	right := base.Compose(bDelta).Compose(a.Transform(bDelta, true))
	require.True(t, left.Equal(right), "left=%#v right=%#v", left.Ops(), right.Ops())
}

func TestTransformSamePositionPriority(t *testing.T) {
	base := New(mustText(t, "ab", nil))
	a := New(mustRetain(t, 1, nil), mustText(t, "A", nil))
	b := New(mustRetain(t, 1, nil), mustText(t, "B", nil))

	// a has priority (thisIsFirst=true passed to a.Transform(b, true)
	// means a's insert wins the tie and comes first).
	left := base.Compose(a).Compose(b.Transform(a, false))
	right := base.Compose(b).Compose(a.Transform(b, true))
	require.True(t, left.Equal(right))

	got := base.Compose(a).Compose(b.Transform(a, false))
	want := New(mustText(t, "aABb", nil))
	require.True(t, got.Equal(want), "got %#v want %#v", got.Ops(), want.Ops())
}

func TestDeleteAlreadyDeletedIsNoOp(t *testing.T) {
	base := New(mustText(t, "abcdef", nil))
	a := New(mustRetain(t, 1, nil), mustDelete(t, 2)) // delete "bc"
	b := New(mustRetain(t, 1, nil), mustDelete(t, 2)) // also delete "bc"

	bPrime := b.Transform(a, false)
	result := base.Compose(a).Compose(bPrime)
	want := New(mustText(t, "adef", nil))
	require.True(t, result.Equal(want), "got %#v want %#v", result.Ops(), want.Ops())
}

func TestRetainAttributeVsDeleteResolvesToDelete(t *testing.T) {
	base := New(mustText(t, "abcdef", nil))
	del := New(mustRetain(t, 1, nil), mustDelete(t, 2))
	format := New(mustRetain(t, 1, nil), mustRetain(t, 2, common.Attrs{"bold": true}))

	formatPrime := format.Transform(del, false)
	result := base.Compose(del).Compose(formatPrime)
	want := New(mustText(t, "adef", nil))
	require.True(t, result.Equal(want))
}

func TestDiffRoundTrip(t *testing.T) {
	a := New(mustText(t, "hello world", nil))
	b := New(mustText(t, "hello brave world", nil))

	d, err := a.Diff(b)
	require.NoError(t, err)
	got := a.Compose(d)
	require.True(t, got.Equal(b), "got %#v want %#v", got.Ops(), b.Ops())
}

func TestDiffIdenticalIsEmpty(t *testing.T) {
	a := New(mustText(t, "same", nil))
	d, err := a.Diff(a)
	require.NoError(t, err)
	require.True(t, d.IsEmpty())
}

func TestIsDocument(t *testing.T) {
	require.True(t, New(mustText(t, "x", nil)).IsDocument())
	// New drops a trailing attribute-free retain while canonicalizing, so
	// a formatting retain is used to keep a retain op in the delta.
	require.False(t, New(mustRetain(t, 1, common.Attrs{"bold": true})).IsDocument())
	require.False(t, New(mustDelete(t, 1)).IsDocument())
}

func TestInvalidOpArguments(t *testing.T) {
	_, err := Delete(0)
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadValue))

	_, err = Retain(-1, nil)
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadValue))
}

func TestSnapshotComposeSameInstance(t *testing.T) {
	snap, err := NewSnapshot(0, New(mustText(t, "x", nil)))
	require.NoError(t, err)

	same := snap.Compose(common.NewChange[Delta](0, Empty))
	require.Same(t, snap, same)

	withRev := snap.WithRevNum(0)
	require.Same(t, snap, withRev)
}

func TestSnapshotDiffAndCompose(t *testing.T) {
	a, err := NewSnapshot(0, New(mustText(t, "abc", nil)))
	require.NoError(t, err)
	b, err := NewSnapshot(1, New(mustText(t, "abcd", nil)))
	require.NoError(t, err)

	change, err := a.Diff(b)
	require.NoError(t, err)
	require.Equal(t, common.RevisionNumber(1), change.Rev)

	composed := a.Compose(change)
	require.True(t, composed.Equal(b))
}
