package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quillhub/scribe/ot/common"
)

func TestMemAuthorityVerifyRoot(t *testing.T) {
	a := NewMemAuthority([]string{"root-secret-1"}, false)
	ctx := context.Background()

	_, ok, err := a.VerifyRoot(ctx, "root-secret-1")
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = a.VerifyRoot(ctx, "wrong")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemAuthorityIssueAndVerifyAuthor(t *testing.T) {
	a := NewMemAuthority(nil, false)
	ctx := context.Background()
	authorId := common.AuthorId("author1")

	secret, err := a.IssueAuthorToken(ctx, authorId)
	require.NoError(t, err)

	ok, err := a.VerifyAuthor(ctx, authorId, secret)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = a.VerifyAuthor(ctx, authorId, "bogus")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestUseTokenRequiresDevMode(t *testing.T) {
	a := NewMemAuthority(nil, false)
	err := a.UseToken(context.Background(), common.AuthorId("author1"), "anything")
	require.Error(t, err)
	require.True(t, common.Is(err, common.KindBadUse))
}

func TestWhenRootTokensChangeWakesOnAdd(t *testing.T) {
	a := NewMemAuthority(nil, false)
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		_ = a.WhenRootTokensChange(ctx, 2*time.Second)
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	a.AddRootToken(ctx, "new-secret")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("whenRootTokensChange did not wake on add")
	}
}

func TestWhenRootTokensChangeRespectsPollInterval(t *testing.T) {
	a := NewMemAuthority(nil, false)
	start := time.Now()
	err := a.WhenRootTokensChange(context.Background(), 30*time.Millisecond)
	require.NoError(t, err)
	require.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}
