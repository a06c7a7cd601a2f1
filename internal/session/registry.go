package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/scribe/internal/coordinator"
	"github.com/quillhub/scribe/ot/body"
	"github.com/quillhub/scribe/ot/caret"
	"github.com/quillhub/scribe/ot/common"
)

// CoordinatorPair is what the registry needs to mint a Session for a
// document: its body and caret coordinators.
type CoordinatorPair struct {
	Body  *coordinator.Coordinator[body.Delta]
	Caret *coordinator.Coordinator[caret.Delta]
}

// Registry holds every live Session, keyed by its binding triple
// (sync.Map-backed per §4.4's addition, since reads vastly outnumber
// writes: every inbound call touches lastActive but sessions are
// created/destroyed comparatively rarely).
type Registry struct {
	sessions sync.Map // Key -> *Session
	log      *zap.Logger
}

// NewRegistry builds an empty Registry.
func NewRegistry(log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{log: log}
}

// Get returns the live session for key, if any.
func (r *Registry) Get(key Key) (*Session, bool) {
	v, ok := r.sessions.Load(key)
	if !ok {
		return nil, false
	}
	return v.(*Session), true
}

// bind creates (or returns the existing) Session for key, bound to the
// given coordinators.
func (r *Registry) bind(key Key, coords CoordinatorPair) *Session {
	if existing, ok := r.Get(key); ok {
		return existing
	}
	s := newSession(key, coords.Body, coords.Caret, r.log)
	actual, loaded := r.sessions.LoadOrStore(key, s)
	if loaded {
		return actual.(*Session)
	}
	return s
}

// Remove drops key from the registry (called after Session.End).
func (r *Registry) Remove(key Key) {
	r.sessions.Delete(key)
}

// Range calls fn for every live session's key, stopping early if fn
// returns false. Used by the monitor/app layer to report a count
// without exposing the underlying sync.Map.
func (r *Registry) Range(fn func(Key) bool) {
	r.sessions.Range(func(k, _ interface{}) bool {
		return fn(k.(Key))
	})
}

// SweepIdle ends every session whose lastActive predates the cutoff,
// returning the keys it ended. Intended to run off a ticker (§5).
func (r *Registry) SweepIdle(ctx context.Context, cutoff time.Time) []Key {
	var ended []Key
	r.sessions.Range(func(k, v interface{}) bool {
		key := k.(Key)
		s := v.(*Session)
		if s.isEnded() || s.LastActive().After(cutoff) {
			return true
		}
		if err := s.End(ctx); err != nil {
			r.log.Warn("idle sweep: failed to end session",
				zap.Any("key", key), zap.Error(err))
			return true
		}
		r.Remove(key)
		ended = append(ended, key)
		return true
	})
	return ended
}

// RunIdleSweep starts a background ticker that sweeps sessions whose
// lastActive is older than idleBound, stopping when ctx is cancelled.
func (r *Registry) RunIdleSweep(ctx context.Context, interval, idleBound time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ended := r.SweepIdle(ctx, time.Now().Add(-idleBound))
			if len(ended) > 0 {
				r.log.Info("idle sweep ended sessions", zap.Int("count", len(ended)))
			}
		}
	}
}

// AuthorAccess is the pre-session capability (§4.4): given an
// authenticated author, it mints new sessions or rebinds to an
// existing (author, doc, caret) triple.
type AuthorAccess struct {
	author   common.AuthorId
	registry *Registry
}

// NewAuthorAccess scopes access to one authenticated author.
func NewAuthorAccess(author common.AuthorId, registry *Registry) *AuthorAccess {
	return &AuthorAccess{author: author, registry: registry}
}

// Mint opens a brand new session on documentId under the caller-supplied
// caretId.
func (a *AuthorAccess) Mint(documentId common.DocumentId, caretId common.CaretId, coords CoordinatorPair) *Session {
	key := Key{AuthorId: a.author, DocumentId: documentId, CaretId: caretId}
	return a.registry.bind(key, coords)
}

// Rebind reattaches to an existing (author, doc, caret) triple. It
// returns (nil, false) rather than an error when the triple is not a
// live session — rebinding to an unknown triple is an expected,
// non-exceptional outcome (§4.4: "fails with a non-throwing null
// return").
func (a *AuthorAccess) Rebind(documentId common.DocumentId, caretId common.CaretId) (*Session, bool) {
	key := Key{AuthorId: a.author, DocumentId: documentId, CaretId: caretId}
	return a.registry.Get(key)
}
