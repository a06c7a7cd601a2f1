package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/common"
)

func newTestCoordinator(t *testing.T) *Coordinator[body.Delta] {
	t.Helper()
	ms := store.NewMemStore[body.Delta](body.Empty, store.JSONCodec[body.Delta]{}, store.NewLocalNotifier())
	handle, err := ms.GetFile(context.Background(), common.FileId("doc1"))
	require.NoError(t, err)
	return New[body.Delta](handle, DefaultConfig, nil)
}

func insertOp(t *testing.T, text string) body.Delta {
	t.Helper()
	op, err := body.Text(text, nil)
	require.NoError(t, err)
	return body.New(op)
}

func TestUpdateFromCurrentRevision(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	change, err := c.Update(ctx, common.NoRevision, insertOp(t, "hello"), common.AuthorId("a1"), time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, common.RevisionNumber(0), change.Rev)

	snap, err := c.Snapshot(ctx, nil)
	require.NoError(t, err)
	require.True(t, snap.Contents.Equal(insertOp(t, "hello")))
}

func TestUpdateTransformsAgainstIntervening(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	first, err := c.Update(ctx, common.NoRevision, insertOp(t, "ab"), common.AuthorId("a1"), time.Unix(0, 0))
	require.NoError(t, err)

	// A concurrent writer prepends "c" at revision 1, leaving revision 0 stale.
	_, err = c.Update(ctx, first.Rev, insertOp(t, "c"), common.AuthorId("a3"), time.Unix(0, 0))
	require.NoError(t, err)

	retain, err := body.Retain(1, nil)
	require.NoError(t, err)
	ins, err := body.Text("X", nil)
	require.NoError(t, err)
	staleDelta := body.New(retain, ins) // insert "X" after position 1 of revision 0 ("ab"), now stale

	change, err := c.Update(ctx, first.Rev, staleDelta, common.AuthorId("a2"), time.Unix(0, 0))
	require.NoError(t, err)
	require.Equal(t, common.RevisionNumber(2), change.Rev)

	snap, err := c.Snapshot(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, "caXb", renderText(snap.Contents))
}

func renderText(d body.Delta) string {
	out := ""
	for _, op := range d.Ops() {
		if op.Name() == body.OpText {
			out += op.Text()
		}
	}
	return out
}

func TestDeltaAfterBlocksUntilNewRevision(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	done := make(chan common.Change[body.Delta], 1)
	go func() {
		change, err := c.DeltaAfter(ctx, common.NoRevision, nil)
		require.NoError(t, err)
		done <- change
	}()

	time.Sleep(20 * time.Millisecond)
	_, err := c.Update(ctx, common.NoRevision, insertOp(t, "hi"), common.AuthorId("a1"), time.Unix(0, 0))
	require.NoError(t, err)

	select {
	case change := <-done:
		require.Equal(t, common.RevisionNumber(0), change.Rev)
		require.Equal(t, "hi", renderText(change.Delta))
	case <-time.After(time.Second):
		t.Fatal("deltaAfter did not unblock")
	}
}

func TestStatsSnapshotReportsWaiters(t *testing.T) {
	c := newTestCoordinator(t)
	ctx := context.Background()

	go func() { _, _ = c.DeltaAfter(ctx, common.NoRevision, nil) }()
	time.Sleep(20 * time.Millisecond)

	stats, err := c.StatsSnapshot(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Waiters)
}
