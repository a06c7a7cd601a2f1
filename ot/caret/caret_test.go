package caret

import (
	"testing"
	"time"

	"github.com/quillhub/scribe/ot/common"
	"github.com/stretchr/testify/require"
)

func TestIsDocument(t *testing.T) {
	a, err := BeginSession(NewSession("s1"))
	require.NoError(t, err)
	b, err := BeginSession(NewSession("s2"))
	require.NoError(t, err)
	require.True(t, New(a, b).IsDocument())

	dup, err := BeginSession(NewSession("s1"))
	require.NoError(t, err)
	require.False(t, New(a, dup).IsDocument())

	end, err := EndSession("s1")
	require.NoError(t, err)
	require.False(t, New(end).IsDocument())
}

func TestComposeBeginSetEnd(t *testing.T) {
	begin, err := BeginSession(NewSession("s1"))
	require.NoError(t, err)
	base := New(begin)

	set, err := SetField("s1", FieldIndex, 5)
	require.NoError(t, err)
	afterSet := base.Compose(New(set))
	require.True(t, afterSet.IsDocument())
	m := toSessionMap(afterSet)
	require.Equal(t, 5, m["s1"].Index)

	end, err := EndSession("s1")
	require.NoError(t, err)
	afterEnd := afterSet.Compose(New(end))
	require.True(t, afterEnd.IsEmpty())
}

func TestSetFieldAgainstUnknownSession(t *testing.T) {
	set, err := SetField("ghost", FieldIndex, 1)
	require.NoError(t, err)

	// Compose is total: dropped silently.
	result := Empty.Compose(New(set))
	require.True(t, result.IsEmpty())

	// ComposeStrict surfaces badUse.
	_, err = ComposeStrict(Empty, New(set))
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadUse))
}

func TestDiffSingleFieldChange(t *testing.T) {
	// §8 scenario 4: two caret snapshots differing in one session's
	// index field yield a Change containing exactly one set_field op.
	c1 := NewSession("s1")
	c1.Index = 3
	begin1, err := BeginSession(c1)
	require.NoError(t, err)

	c2 := c1
	c2.Index = 7
	begin2, err := BeginSession(c2)
	require.NoError(t, err)

	before := New(begin1)
	after := New(begin2)

	d, err := before.Diff(after)
	require.NoError(t, err)
	require.Len(t, d.Ops(), 1)
	require.Equal(t, OpSetField, d.Ops()[0].Name())
	require.Equal(t, FieldIndex, d.Ops()[0].Field())
	require.Equal(t, 7, d.Ops()[0].Value())
}

func TestDiffAddedAndRemovedSessions(t *testing.T) {
	c1 := NewSession("s1")
	begin1, err := BeginSession(c1)
	require.NoError(t, err)
	before := New(begin1)

	c2 := NewSession("s2")
	begin2, err := BeginSession(c2)
	require.NoError(t, err)
	after := New(begin2)

	d, err := before.Diff(after)
	require.NoError(t, err)
	require.Len(t, d.Ops(), 2)

	var sawBegin, sawEnd bool
	for _, op := range d.Ops() {
		switch op.Name() {
		case OpBeginSession:
			sawBegin = true
			require.Equal(t, common.SessionId("s2"), op.SessionId())
		case OpEndSession:
			sawEnd = true
			require.Equal(t, common.SessionId("s1"), op.SessionId())
		}
	}
	require.True(t, sawBegin)
	require.True(t, sawEnd)
}

func TestRoundTripDiffCompose(t *testing.T) {
	c1 := NewSession("s1")
	c1.Index = 1
	c1.LastActive = time.Unix(1000, 0)
	begin1, err := BeginSession(c1)
	require.NoError(t, err)
	before := New(begin1)

	c2 := c1
	c2.Length = 9
	c2.LastActive = time.Unix(2000, 0)
	begin2, err := BeginSession(c2)
	require.NoError(t, err)
	after := New(begin2)

	d, err := before.Diff(after)
	require.NoError(t, err)

	got := before.Compose(d)
	require.True(t, got.Equal(after), "got %#v want %#v", got.Ops(), after.Ops())
}

func TestInvalidFieldValue(t *testing.T) {
	_, err := SetField("s1", FieldColor, "not-a-color")
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadValue))

	_, err = SetField("s1", FieldIndex, -1)
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadValue))
}
