package store

import (
	"context"
	"sync"
	"time"

	"github.com/quillhub/scribe/ot/common"
)

// MemStore is an in-process FileStore backed by a map, used for tests
// and the dev-mode default (grounded on the MemoryPatchStore shape:
// a mutex-guarded map plus an append-ordered per-key log).
type MemStore[D common.OTValue[D]] struct {
	mu       sync.Mutex
	files    map[common.FileId]*memFile[D]
	empty    D
	codec    Codec[D]
	notifier ChangeNotifier
	maxWait  time.Duration
}

// NewMemStore builds an empty MemStore. emptyDelta is the flavor's
// identity delta (body.Empty, caret.Empty, property.Empty).
func NewMemStore[D common.OTValue[D]](emptyDelta D, codec Codec[D], notifier ChangeNotifier) *MemStore[D] {
	return &MemStore[D]{
		files:    make(map[common.FileId]*memFile[D]),
		empty:    emptyDelta,
		codec:    codec,
		notifier: notifier,
		maxWait:  MaxTimeoutMsec * time.Millisecond,
	}
}

func (s *MemStore[D]) Close() error { return nil }

func (s *MemStore[D]) Exists(_ context.Context, fileId common.FileId) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[fileId]
	return ok, nil
}

func (s *MemStore[D]) GetFile(_ context.Context, fileId common.FileId) (FileHandle[D], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, ok := s.files[fileId]
	if !ok {
		f = &memFile[D]{
			id:       fileId,
			store:    s,
			snapshot: &common.Snapshot[D]{Rev: common.NoRevision, Contents: s.empty},
		}
		s.files[fileId] = f
	}
	return f, nil
}

type memFile[D common.OTValue[D]] struct {
	mu       sync.Mutex
	id       common.FileId
	store    *MemStore[D]
	changes  []common.Change[D]
	snapshot *common.Snapshot[D] // materialized at the latest revision
}

func (f *memFile[D]) CurrentRevNum(_ context.Context, _ *time.Duration) (common.RevisionNumber, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.Rev, nil
}

// AppendChange returns false on lost-race: another writer already holds
// change.Rev (§4.2). The caller (the document coordinator) is
// responsible for retrying with a recomputed revision.
func (f *memFile[D]) AppendChange(ctx context.Context, change common.Change[D], _ *time.Duration) (bool, error) {
	f.mu.Lock()
	expected := common.After(f.snapshot.Rev)
	if change.Rev != expected {
		f.mu.Unlock()
		return false, nil
	}
	f.changes = append(f.changes, change)
	f.snapshot = f.snapshot.Compose(change)
	rev := f.snapshot.Rev
	f.mu.Unlock()

	f.store.notifier.NotifyChanged(ctx, f.id, rev)
	return true, nil
}

func (f *memFile[D]) GetSnapshot(_ context.Context, revNum *common.RevisionNumber, _ *time.Duration) (*common.Snapshot[D], error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if revNum == nil || *revNum == f.snapshot.Rev {
		return f.snapshot, nil
	}
	target := *revNum
	if target < common.NoRevision || target > f.snapshot.Rev {
		return nil, common.RevisionNotAvailable(target)
	}
	snap := &common.Snapshot[D]{Rev: common.NoRevision, Contents: f.store.empty}
	for _, c := range f.changes {
		if c.Rev > target {
			break
		}
		snap = snap.Compose(c)
	}
	return snap, nil
}

func (f *memFile[D]) WhenPathIsNot(ctx context.Context, knownRev common.RevisionNumber, timeout *time.Duration) error {
	for {
		f.mu.Lock()
		current := f.snapshot.Rev
		f.mu.Unlock()
		if current != knownRev {
			return nil
		}
		d := ClampTimeout(timeout, f.store.maxWait)
		if err := f.store.notifier.Await(ctx, f.id, d); err != nil {
			return err
		}
	}
}
