package store

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/common"
)

func insertChange(t *testing.T, text string) common.Change[body.Delta] {
	t.Helper()
	op, err := body.Text(text, nil)
	require.NoError(t, err)
	return common.NewChange[body.Delta](common.After(common.NoRevision), body.New(op)).
		WithAuthor(common.AuthorId("a1"))
}

// TestMemStoreAppendChangeRace exercises §8 scenario 5: two concurrent
// AppendChange calls racing for the same revNum must split exactly one
// true/one false, with the log left holding only the winner's change.
func TestMemStoreAppendChangeRace(t *testing.T) {
	ms := NewMemStore[body.Delta](body.Empty, JSONCodec[body.Delta]{}, NewLocalNotifier())
	handle, err := ms.GetFile(context.Background(), common.FileId("doc1"))
	require.NoError(t, err)

	raceAppend(t, handle)
}

// TestBadgerStoreAppendChangeRace is the same race run against the
// durable backend, since §4.2's "exactly one returns true" guarantee
// must hold regardless of which FileStore backs the document.
func TestBadgerStoreAppendChangeRace(t *testing.T) {
	dir, err := os.MkdirTemp("", "scribe-badger-race")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	bs, err := NewBadgerStore[body.Delta](dir, body.Empty, JSONCodec[body.Delta]{}, NewLocalNotifier())
	require.NoError(t, err)
	defer bs.Close()

	handle, err := bs.GetFile(context.Background(), common.FileId("doc1"))
	require.NoError(t, err)

	raceAppend(t, handle)
}

// raceAppend fires two concurrent AppendChange calls at the same
// Change.Rev against handle and asserts exactly one wins.
func raceAppend(t *testing.T, handle FileHandle[body.Delta]) {
	t.Helper()
	ctx := context.Background()

	change := insertChange(t, "x")

	var wg sync.WaitGroup
	results := make([]bool, 2)
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			results[i], errs[i] = handle.AppendChange(ctx, change, nil)
		}()
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.NotEqual(t, results[0], results[1], "exactly one of two concurrent AppendChange calls must win")

	rev, err := handle.CurrentRevNum(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, common.RevisionNumber(0), rev)
}
