package store

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/quillhub/scribe/ot/common"
)

// BadgerStore is the primary, durable FileStore: an embedded key-value
// database whose keys are prefixed per file (one logical "directory"
// per fileId, matching §6's persisted-state layout) and ordered by
// revision number within that prefix (grounded on the BadgerCache get/
// set/transaction idiom).
type BadgerStore[D common.OTValue[D]] struct {
	db       *badger.DB
	empty    D
	codec    Codec[D]
	notifier ChangeNotifier
	maxWait  time.Duration
}

// NewBadgerStore opens (or creates) a BadgerDB at dir.
func NewBadgerStore[D common.OTValue[D]](dir string, emptyDelta D, codec Codec[D], notifier ChangeNotifier) (*BadgerStore[D], error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store at %q: %w", dir, err)
	}
	return &BadgerStore[D]{
		db:       db,
		empty:    emptyDelta,
		codec:    codec,
		notifier: notifier,
		maxWait:  MaxTimeoutMsec * time.Millisecond,
	}, nil
}

func (s *BadgerStore[D]) Close() error { return s.db.Close() }

// fileDir is the "encodeURIComponent(fileId)" directory name per §6,
// expressed as a key prefix since Badger is a flat keyspace.
func fileDir(fileId common.FileId) string {
	return url.QueryEscape(string(fileId))
}

func changeKey(fileId common.FileId, rev common.RevisionNumber) []byte {
	key := make([]byte, 0, len(fileDir(fileId))+1+8)
	key = append(key, fileDir(fileId)...)
	key = append(key, '/')
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(rev))
	return append(key, buf[:]...)
}

func changePrefix(fileId common.FileId) []byte {
	return append([]byte(fileDir(fileId)), '/')
}

func (s *BadgerStore[D]) Exists(_ context.Context, fileId common.FileId) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := changePrefix(fileId)
		it.Seek(prefix)
		found = it.ValidForPrefix(prefix)
		return nil
	})
	return found, err
}

func (s *BadgerStore[D]) GetFile(_ context.Context, fileId common.FileId) (FileHandle[D], error) {
	return &badgerFile[D]{store: s, id: fileId}, nil
}

type badgerFile[D common.OTValue[D]] struct {
	store *BadgerStore[D]
	id    common.FileId
}

// wireChange is the on-disk record for one revision.
type wireChange struct {
	Rev       int64      `json:"rev"`
	Data      []byte     `json:"data"`
	AuthorId  string     `json:"authorId,omitempty"`
	HasAuthor bool       `json:"hasAuthor,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func (f *badgerFile[D]) currentRevNumLocked() (common.RevisionNumber, error) {
	rev := common.NoRevision
	err := f.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := changePrefix(f.id)
		seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
		it.Seek(seekKey)
		if !it.ValidForPrefix(prefix) {
			return nil
		}
		key := it.Item().KeyCopy(nil)
		rev = common.RevisionNumber(binary.BigEndian.Uint64(key[len(prefix):]))
		return nil
	})
	return rev, err
}

func (f *badgerFile[D]) CurrentRevNum(_ context.Context, _ *time.Duration) (common.RevisionNumber, error) {
	return f.currentRevNumLocked()
}

func (f *badgerFile[D]) AppendChange(ctx context.Context, change common.Change[D], _ *time.Duration) (bool, error) {
	data, err := f.store.codec.Encode(change.Delta)
	if err != nil {
		return false, fmt.Errorf("encode change: %w", err)
	}
	wc := wireChange{Rev: int64(change.Rev), Data: data, Timestamp: change.Timestamp}
	if change.Author != nil {
		wc.HasAuthor = true
		wc.AuthorId = string(*change.Author)
	}
	value, err := json.Marshal(wc)
	if err != nil {
		return false, fmt.Errorf("marshal change: %w", err)
	}

	appended := false
	err = f.store.db.Update(func(txn *badger.Txn) error {
		current, err := f.currentRevNumTxn(txn)
		if err != nil {
			return err
		}
		if change.Rev != common.After(current) {
			return nil // lost race
		}
		// txn.Get folds the target key into this transaction's read
		// set, which the iterator-based current-rev lookup above does
		// not: Badger's SSI only conflict-checks Get'd keys, so without
		// this, two concurrent appends to the same revision could both
		// commit. With it, the loser's commit hits ErrConflict below.
		switch _, err := txn.Get(changeKey(f.id, change.Rev)); {
		case err == nil:
			return nil // lost race
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		appended = true
		return txn.Set(changeKey(f.id, change.Rev), value)
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !appended {
		return false, nil
	}
	f.store.notifier.NotifyChanged(ctx, f.id, change.Rev)
	return true, nil
}

func (f *badgerFile[D]) currentRevNumTxn(txn *badger.Txn) (common.RevisionNumber, error) {
	opts := badger.DefaultIteratorOptions
	opts.PrefetchValues = false
	opts.Reverse = true
	it := txn.NewIterator(opts)
	defer it.Close()

	prefix := changePrefix(f.id)
	seekKey := append(append([]byte{}, prefix...), 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF)
	it.Seek(seekKey)
	if !it.ValidForPrefix(prefix) {
		return common.NoRevision, nil
	}
	key := it.Item().KeyCopy(nil)
	return common.RevisionNumber(binary.BigEndian.Uint64(key[len(prefix):])), nil
}

func (f *badgerFile[D]) GetSnapshot(_ context.Context, revNum *common.RevisionNumber, _ *time.Duration) (*common.Snapshot[D], error) {
	current, err := f.currentRevNumLocked()
	if err != nil {
		return nil, err
	}
	target := current
	if revNum != nil {
		target = *revNum
	}
	if target < common.NoRevision || target > current {
		return nil, common.RevisionNotAvailable(target)
	}

	snap := &common.Snapshot[D]{Rev: common.NoRevision, Contents: f.store.empty}
	err = f.store.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := changePrefix(f.id)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			key := item.Key()
			rev := common.RevisionNumber(binary.BigEndian.Uint64(key[len(prefix):]))
			if rev > target {
				break
			}
			var wc wireChange
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &wc)
			}); err != nil {
				return err
			}
			delta, err := f.store.codec.Decode(wc.Data)
			if err != nil {
				return err
			}
			c := common.NewChange[D](common.RevisionNumber(wc.Rev), delta)
			if wc.HasAuthor {
				c = c.WithAuthor(common.AuthorId(wc.AuthorId))
			}
			if wc.Timestamp != nil {
				c = c.WithTimestamp(*wc.Timestamp)
			}
			snap = snap.Compose(c)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

func (f *badgerFile[D]) WhenPathIsNot(ctx context.Context, knownRev common.RevisionNumber, timeout *time.Duration) error {
	for {
		current, err := f.currentRevNumLocked()
		if err != nil {
			return err
		}
		if current != knownRev {
			return nil
		}
		d := ClampTimeout(timeout, f.store.maxWait)
		if err := f.store.notifier.Await(ctx, f.id, d); err != nil {
			return err
		}
	}
}
