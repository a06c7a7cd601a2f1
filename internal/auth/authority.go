package auth

import (
	"context"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/ot/common"
)

// TokenAuthority verifies presented tokens against stored secrets and
// lets callers watch for root-token changes (§4.5: "refreshed by
// polling... returning a promise-like value that resolves after any
// change or at a configured polling interval, whichever is first").
type TokenAuthority interface {
	// VerifyRoot checks presented against the current root token set.
	VerifyRoot(ctx context.Context, presented string) (RootGrant, bool, error)

	// VerifyAuthor checks presented against the token minted for authorId.
	VerifyAuthor(ctx context.Context, authorId common.AuthorId, presented string) (bool, error)

	// IssueAuthorToken mints (or in dev mode, overrides) the token for authorId.
	IssueAuthorToken(ctx context.Context, authorId common.AuthorId) (string, error)

	// UseToken lets a Root-holding dev override which secret authenticates
	// authorId, per §4.5's "in dev mode... override author-token
	// resolution via useToken(authorId, token)".
	UseToken(ctx context.Context, authorId common.AuthorId, token string) error

	// WhenRootTokensChange blocks until the root token set changes or
	// pollInterval elapses, whichever is first.
	WhenRootTokensChange(ctx context.Context, pollInterval time.Duration) error
}

// rootTokensFileId is the single logical key the shared ChangeNotifier
// watches for root-token set changes; it is not a document, just a
// convenient reuse of the same "wake waiters on change" primitive the
// store package already provides.
const rootTokensFileId = common.FileId("__root_tokens__")

// MemAuthority is an in-process TokenAuthority for single-node/dev
// deployments: all state lives in a mutex-guarded map, and change
// notification is the store package's in-memory LocalNotifier.
type MemAuthority struct {
	mu       sync.RWMutex
	roots    map[string]bool // full root secret -> exists
	authors  map[common.AuthorId]BearerToken
	devMode  bool
	notifier store.ChangeNotifier
}

// NewMemAuthority builds a MemAuthority seeded with the given root token
// secrets (already-minted, out-of-band-distributed credentials).
func NewMemAuthority(rootSecrets []string, devMode bool) *MemAuthority {
	roots := make(map[string]bool, len(rootSecrets))
	for _, s := range rootSecrets {
		roots[s] = true
	}
	return &MemAuthority{
		roots:    roots,
		authors:  make(map[common.AuthorId]BearerToken),
		devMode:  devMode,
		notifier: store.NewLocalNotifier(),
	}
}

func (a *MemAuthority) VerifyRoot(_ context.Context, presented string) (RootGrant, bool, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.roots[presented] {
		return RootGrant{DevMode: a.devMode}, true, nil
	}
	return RootGrant{}, false, nil
}

func (a *MemAuthority) VerifyAuthor(_ context.Context, authorId common.AuthorId, presented string) (bool, error) {
	a.mu.RLock()
	tok, ok := a.authors[authorId]
	a.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return tok.Equal(presented), nil
}

func (a *MemAuthority) IssueAuthorToken(_ context.Context, authorId common.AuthorId) (string, error) {
	tok, secret, err := NewBearerToken(KindAuthor)
	if err != nil {
		return "", err
	}
	a.mu.Lock()
	a.authors[authorId] = tok
	a.mu.Unlock()
	return secret, nil
}

func (a *MemAuthority) UseToken(ctx context.Context, authorId common.AuthorId, token string) error {
	if !a.devMode {
		return common.BadUse("useToken is only permitted in dev mode")
	}
	tok, ok := ParseBearerToken(KindAuthor, token)
	if !ok {
		return common.BadValue("malformed author token")
	}
	a.mu.Lock()
	a.authors[authorId] = tok
	a.mu.Unlock()
	return nil
}

// AddRootToken registers a new root secret and wakes any
// WhenRootTokensChange waiters.
func (a *MemAuthority) AddRootToken(ctx context.Context, secret string) {
	a.mu.Lock()
	a.roots[secret] = true
	a.mu.Unlock()
	a.notifier.NotifyChanged(ctx, rootTokensFileId, 0)
}

func (a *MemAuthority) WhenRootTokensChange(ctx context.Context, pollInterval time.Duration) error {
	err := a.notifier.Await(ctx, rootTokensFileId, pollInterval)
	if err != nil && !common.Is(err, common.KindTimedOut) {
		return err
	}
	return nil
}

// RedisAuthority is the production TokenAuthority: root/author secrets
// live in Redis so every process behind a load balancer shares the same
// set, and root-token-change notification rides the same
// RedisNotifier-over-pub/sub the document stores use for
// whenPathIsNot, per luvjson/crdtsync's peer-discovery-over-Redis
// pattern.
type RedisAuthority struct {
	client   *redis.Client
	prefix   string
	devMode  bool
	notifier store.ChangeNotifier
}

// NewRedisAuthority builds a RedisAuthority. keyPrefix namespaces this
// deployment's keys (e.g. "scribe:auth:").
func NewRedisAuthority(client *redis.Client, keyPrefix string, devMode bool) *RedisAuthority {
	return &RedisAuthority{
		client:   client,
		prefix:   keyPrefix,
		devMode:  devMode,
		notifier: store.NewRedisNotifier(client, keyPrefix),
	}
}

func (a *RedisAuthority) rootsKey() string { return a.prefix + "roots" }
func (a *RedisAuthority) authorKey(authorId common.AuthorId) string {
	return a.prefix + "author:" + string(authorId)
}

func (a *RedisAuthority) VerifyRoot(ctx context.Context, presented string) (RootGrant, bool, error) {
	ok, err := a.client.SIsMember(ctx, a.rootsKey(), presented).Result()
	if err != nil {
		return RootGrant{}, false, err
	}
	return RootGrant{DevMode: a.devMode}, ok, nil
}

func (a *RedisAuthority) VerifyAuthor(ctx context.Context, authorId common.AuthorId, presented string) (bool, error) {
	stored, err := a.client.Get(ctx, a.authorKey(authorId)).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	tok, ok := ParseBearerToken(KindAuthor, stored)
	if !ok {
		return false, nil
	}
	return tok.Equal(presented), nil
}

func (a *RedisAuthority) IssueAuthorToken(ctx context.Context, authorId common.AuthorId) (string, error) {
	_, secret, err := NewBearerToken(KindAuthor)
	if err != nil {
		return "", err
	}
	if err := a.client.Set(ctx, a.authorKey(authorId), secret, 0).Err(); err != nil {
		return "", err
	}
	return secret, nil
}

func (a *RedisAuthority) UseToken(ctx context.Context, authorId common.AuthorId, token string) error {
	if !a.devMode {
		return common.BadUse("useToken is only permitted in dev mode")
	}
	if _, ok := ParseBearerToken(KindAuthor, token); !ok {
		return common.BadValue("malformed author token")
	}
	return a.client.Set(ctx, a.authorKey(authorId), token, 0).Err()
}

// AddRootToken registers a new root secret and publishes a change
// notification to every process watching WhenRootTokensChange.
func (a *RedisAuthority) AddRootToken(ctx context.Context, secret string) error {
	if err := a.client.SAdd(ctx, a.rootsKey(), secret).Err(); err != nil {
		return err
	}
	a.notifier.NotifyChanged(ctx, rootTokensFileId, 0)
	return nil
}

func (a *RedisAuthority) WhenRootTokensChange(ctx context.Context, pollInterval time.Duration) error {
	err := a.notifier.Await(ctx, rootTokensFileId, pollInterval)
	if err != nil && !common.Is(err, common.KindTimedOut) {
		return err
	}
	return nil
}
