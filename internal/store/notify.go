package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quillhub/scribe/ot/common"
)

// ChangeNotifier lets FileHandle.WhenPathIsNot (and the document
// coordinator's deltaAfter, §4.3) wake up as soon as a new revision is
// appended rather than polling. LocalNotifier serves a single process;
// RedisNotifier fans the same signal out across a horizontally scaled
// deployment via go-redis pub/sub, grounded on the same
// publish/subscribe shape used for CRDT patch broadcast.
type ChangeNotifier interface {
	// NotifyChanged wakes any waiter blocked on fileId.
	NotifyChanged(ctx context.Context, fileId common.FileId, rev common.RevisionNumber)

	// Await blocks until a notification for fileId arrives, ctx is
	// cancelled, or timeout elapses (returning a common.KindTimedOut
	// error in the last case).
	Await(ctx context.Context, fileId common.FileId, timeout time.Duration) error
}

// LocalNotifier implements ChangeNotifier with an in-process
// condition-variable-style broadcast: each fileId has a channel that is
// closed (and replaced) on every notification, waking every blocked
// Await call at once.
type LocalNotifier struct {
	mu      sync.Mutex
	waiters map[common.FileId]chan struct{}
}

// NewLocalNotifier builds an empty LocalNotifier.
func NewLocalNotifier() *LocalNotifier {
	return &LocalNotifier{waiters: make(map[common.FileId]chan struct{})}
}

func (n *LocalNotifier) channel(fileId common.FileId) chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	ch, ok := n.waiters[fileId]
	if !ok {
		ch = make(chan struct{})
		n.waiters[fileId] = ch
	}
	return ch
}

func (n *LocalNotifier) NotifyChanged(_ context.Context, fileId common.FileId, _ common.RevisionNumber) {
	n.mu.Lock()
	ch, ok := n.waiters[fileId]
	if ok {
		close(ch)
		delete(n.waiters, fileId)
	}
	n.mu.Unlock()
}

func (n *LocalNotifier) Await(ctx context.Context, fileId common.FileId, timeout time.Duration) error {
	ch := n.channel(fileId)
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return common.TimedOut("timed out waiting for a change on file %q", fileId)
	}
}

// RedisNotifier implements ChangeNotifier on top of Redis pub/sub, so
// waiters on one process wake up when another process's coordinator
// appends a change.
type RedisNotifier struct {
	client *redis.Client
	prefix string
}

// NewRedisNotifier builds a RedisNotifier publishing/subscribing on
// channels named prefix+fileId.
func NewRedisNotifier(client *redis.Client, prefix string) *RedisNotifier {
	return &RedisNotifier{client: client, prefix: prefix}
}

func (n *RedisNotifier) channelName(fileId common.FileId) string {
	return fmt.Sprintf("%schanged:%s", n.prefix, fileId)
}

func (n *RedisNotifier) NotifyChanged(ctx context.Context, fileId common.FileId, rev common.RevisionNumber) {
	n.client.Publish(ctx, n.channelName(fileId), fmt.Sprintf("%d", rev))
}

func (n *RedisNotifier) Await(ctx context.Context, fileId common.FileId, timeout time.Duration) error {
	sub := n.client.Subscribe(ctx, n.channelName(fileId))
	defer sub.Close()

	timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	_, err := sub.ReceiveMessage(timeoutCtx)
	if err != nil {
		if timeoutCtx.Err() != nil {
			return common.TimedOut("timed out waiting for a change on file %q", fileId)
		}
		return err
	}
	return nil
}
