// Package session implements the session layer (§4.4): a Session binds
// (authorId, documentId, caretId) to the body and caret coordinators for
// one document, tracks lastActive for idle sweeping, and AuthorAccess
// mints/rebinds sessions. Grounded on the per-client mutex-guarded
// struct shape of eventsync/websocket_client.go and the
// register/update/cleanup-by-lastSeen idiom of
// crdtserver/peerregistry.go (there Redis-backed; here in-process via
// sync.Map since one coordinator process owns all sessions for its
// documents).
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

// Key identifies a session by its binding triple.
type Key struct {
	AuthorId   common.AuthorId
	DocumentId common.DocumentId
	CaretId    common.CaretId
}

// Session binds one (authorId, documentId, caretId) triple to the
// coordinators serving that document, in both OT flavors a live
// collaborator cares about.
type Session struct {
	key Key

	bodyCoord  *coordinator.Coordinator[body.Delta]
	caretCoord *coordinator.Coordinator[caret.Delta]
	log        *zap.Logger

	mu         sync.Mutex
	lastActive time.Time
	ended      bool
}

func newSession(key Key, bodyCoord *coordinator.Coordinator[body.Delta], caretCoord *coordinator.Coordinator[caret.Delta], log *zap.Logger) *Session {
	return &Session{
		key:        key,
		bodyCoord:  bodyCoord,
		caretCoord: caretCoord,
		log:        log,
		lastActive: time.Now(),
	}
}

func (s *Session) touch() {
	s.mu.Lock()
	s.lastActive = time.Now()
	s.mu.Unlock()
}

// LastActive reports the timestamp of the most recent inbound call.
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) isEnded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ended
}

// BodyUpdate applies delta against baseRevNum (§4.3's update protocol,
// exposed to remote callers per §4.4).
func (s *Session) BodyUpdate(ctx context.Context, baseRevNum common.RevisionNumber, delta body.Delta) (body.Change, error) {
	s.touch()
	return s.bodyCoord.Update(ctx, baseRevNum, delta, s.key.AuthorId, time.Now())
}

func (s *Session) BodySnapshot(ctx context.Context, revNum *common.RevisionNumber) (*body.Snapshot, error) {
	s.touch()
	return s.bodyCoord.Snapshot(ctx, revNum)
}

func (s *Session) BodyDeltaAfter(ctx context.Context, revNum common.RevisionNumber, timeout *time.Duration) (body.Change, error) {
	s.touch()
	return s.bodyCoord.DeltaAfter(ctx, revNum, timeout)
}

// CaretUpdate composes delta into the caret document. Caret's Transform
// is identity (ot/caret/delta.go), so there is no meaningful base
// revision for a caller to supply: the coordinator always rebases
// against whatever is current.
func (s *Session) CaretUpdate(ctx context.Context, delta caret.Delta) (caret.Change, error) {
	s.touch()
	current, err := s.caretCoord.StatsSnapshot(ctx)
	if err != nil {
		return caret.Change{}, err
	}
	return s.caretCoord.Update(ctx, current.SnapshotRev, delta, s.key.AuthorId, time.Now())
}

func (s *Session) CaretSnapshot(ctx context.Context, revNum *common.RevisionNumber) (*caret.Snapshot, error) {
	s.touch()
	return s.caretCoord.Snapshot(ctx, revNum)
}

func (s *Session) CaretDeltaAfter(ctx context.Context, revNum common.RevisionNumber, timeout *time.Duration) (caret.Change, error) {
	s.touch()
	return s.caretCoord.DeltaAfter(ctx, revNum, timeout)
}

// End terminates this session, emitting an end_session caret op to
// peers (§4.4). Calling End twice is a no-op.
func (s *Session) End(ctx context.Context) error {
	s.mu.Lock()
	if s.ended {
		s.mu.Unlock()
		return nil
	}
	s.ended = true
	s.mu.Unlock()

	endOp, err := caret.EndSession(common.SessionId(s.key.CaretId))
	if err != nil {
		return err
	}
	endDelta := caret.New(endOp)
	current, err := s.caretCoord.StatsSnapshot(ctx)
	if err != nil {
		return err
	}
	_, err = s.caretCoord.Update(ctx, current.SnapshotRev, endDelta, s.key.AuthorId, time.Now())
	return err
}
