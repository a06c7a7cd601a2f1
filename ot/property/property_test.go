package property

import (
	"testing"

	"github.com/quillhub/scribe/ot/common"
	"github.com/stretchr/testify/require"
)

func TestIsDocument(t *testing.T) {
	a, err := SetProperty("title", "Doc")
	require.NoError(t, err)
	b, err := SetProperty("locked", true)
	require.NoError(t, err)
	require.True(t, New(a, b).IsDocument())

	dup, err := SetProperty("title", "Other")
	require.NoError(t, err)
	require.False(t, New(a, dup).IsDocument())

	del, err := DeleteProperty("title")
	require.NoError(t, err)
	require.False(t, New(del).IsDocument())
}

func TestComposeLastWriterWins(t *testing.T) {
	set1, err := SetProperty("title", "Draft")
	require.NoError(t, err)
	base := New(set1)

	set2, err := SetProperty("title", "Final")
	require.NoError(t, err)
	got := base.Compose(New(set2))

	want, err := SetProperty("title", "Final")
	require.NoError(t, err)
	require.True(t, got.Equal(New(want)))
}

func TestComposeDelete(t *testing.T) {
	set1, err := SetProperty("title", "Draft")
	require.NoError(t, err)
	base := New(set1)

	del, err := DeleteProperty("title")
	require.NoError(t, err)
	got := base.Compose(New(del))
	require.True(t, got.IsEmpty())
}

func TestDiffMinimalOps(t *testing.T) {
	t1, err := SetProperty("title", "Draft")
	require.NoError(t, err)
	locked1, err := SetProperty("locked", false)
	require.NoError(t, err)
	before := New(t1, locked1)

	t2, err := SetProperty("title", "Final")
	require.NoError(t, err)
	// "locked" unchanged; "owner" newly added.
	owner, err := SetProperty("owner", "alice")
	require.NoError(t, err)
	after := New(t2, locked1, owner)

	d, err := before.Diff(after)
	require.NoError(t, err)
	require.Len(t, d.Ops(), 2)

	names := map[string]bool{}
	for _, op := range d.Ops() {
		require.Equal(t, OpSetProperty, op.Name())
		names[op.Property()] = true
	}
	require.True(t, names["title"])
	require.True(t, names["owner"])
}

func TestRoundTripDiffCompose(t *testing.T) {
	t1, err := SetProperty("title", "Draft")
	require.NoError(t, err)
	before := New(t1)

	t2, err := SetProperty("title", "Final")
	require.NoError(t, err)
	owner, err := SetProperty("owner", "alice")
	require.NoError(t, err)
	after := New(t2, owner)

	d, err := before.Diff(after)
	require.NoError(t, err)
	got := before.Compose(d)
	require.True(t, got.Equal(after), "got %#v want %#v", got.Ops(), after.Ops())
}

func TestInvalidDataValueRejected(t *testing.T) {
	_, err := SetProperty("bad", make(chan int))
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadValue))
}
