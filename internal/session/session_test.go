package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillhub/scribe/internal/coordinator"
	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/caret"
	"github.com/quillhub/scribe/ot/common"
)

func newTestCoords(t *testing.T, docId common.FileId) CoordinatorPair {
	t.Helper()
	bodyStore := store.NewMemStore[body.Delta](body.Empty, store.JSONCodec[body.Delta]{}, store.NewLocalNotifier())
	caretStore := store.NewMemStore[caret.Delta](caret.Empty, store.JSONCodec[caret.Delta]{}, store.NewLocalNotifier())

	bodyHandle, err := bodyStore.GetFile(context.Background(), docId)
	require.NoError(t, err)
	caretHandle, err := caretStore.GetFile(context.Background(), docId)
	require.NoError(t, err)

	return CoordinatorPair{
		Body:  coordinator.New[body.Delta](bodyHandle, coordinator.DefaultConfig, nil),
		Caret: coordinator.New[caret.Delta](caretHandle, coordinator.DefaultConfig, nil),
	}
}

func TestMintAndRebind(t *testing.T) {
	reg := NewRegistry(nil)
	coords := newTestCoords(t, common.FileId("doc1"))
	access := NewAuthorAccess(common.AuthorId("author1"), reg)

	s := access.Mint(common.DocumentId("doc1"), common.CaretId("caret1"), coords)
	require.NotNil(t, s)

	rebound, ok := access.Rebind(common.DocumentId("doc1"), common.CaretId("caret1"))
	require.True(t, ok)
	require.Same(t, s, rebound)

	_, ok = access.Rebind(common.DocumentId("doc1"), common.CaretId("unknown"))
	require.False(t, ok)
}

func TestSessionEndEmitsEndSessionOp(t *testing.T) {
	coords := newTestCoords(t, common.FileId("doc1"))
	reg := NewRegistry(nil)
	access := NewAuthorAccess(common.AuthorId("author1"), reg)
	s := access.Mint(common.DocumentId("doc1"), common.CaretId("caret1"), coords)

	beginOp, err := caret.BeginSession(caret.NewSession(common.SessionId("caret1")))
	require.NoError(t, err)
	_, err = s.CaretUpdate(context.Background(), caret.New(beginOp))
	require.NoError(t, err)

	require.NoError(t, s.End(context.Background()))

	snap, err := s.CaretSnapshot(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, snap.Contents.IsEmpty() || len(snap.Contents.Ops()) == 0)
}

func TestIdleSweepEndsStaleSessions(t *testing.T) {
	coords := newTestCoords(t, common.FileId("doc1"))
	reg := NewRegistry(nil)
	access := NewAuthorAccess(common.AuthorId("author1"), reg)
	s := access.Mint(common.DocumentId("doc1"), common.CaretId("caret1"), coords)

	beginOp, err := caret.BeginSession(caret.NewSession(common.SessionId("caret1")))
	require.NoError(t, err)
	_, err = s.CaretUpdate(context.Background(), caret.New(beginOp))
	require.NoError(t, err)

	ended := reg.SweepIdle(context.Background(), time.Now().Add(time.Hour))
	require.Len(t, ended, 1)

	_, ok := reg.Get(Key{AuthorId: common.AuthorId("author1"), DocumentId: common.DocumentId("doc1"), CaretId: common.CaretId("caret1")})
	require.False(t, ok)
}
