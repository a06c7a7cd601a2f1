// Package coordinator implements the per-document write serializer (§4.3):
// update() with transform-against-intervening-changes and bounded retry,
// and deltaAfter() blocking reads. It keeps no per-author registry of
// live carets.
// Grounded on the load→apply→append retry shape of
// eventsourced/pkg/aggregate/repository.go and the
// mutex-guarded-map-of-subscribers pattern in eventsync/sync_service.go.
package coordinator

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/quillhub/scribe/internal/store"
	"github.com/quillhub/scribe/ot/common"
)

// Config bounds the update retry loop (§4.3: "the retry loop must remain
// bounded by a configurable attempt cap").
type Config struct {
	MaxAttempts int
}

// DefaultConfig is used when no attempt cap is configured explicitly.
var DefaultConfig = Config{MaxAttempts: 25}

// Coordinator serializes update() calls against one document's change
// log and serves deltaAfter()/Stats() reads. One Coordinator instance
// exists per (documentId, flavor) pair.
type Coordinator[D common.OTValue[D]] struct {
	handle store.FileHandle[D]
	cfg    Config
	log    *zap.Logger

	// strictCompose, when set, validates an effective delta against the
	// document's current contents before it is appended, surfacing an
	// error instead of relying on the flavor's otherwise-total Compose
	// to silently drop it (§4.1/§7). Caret wires this to
	// caret.ComposeStrict.
	strictCompose func(current, delta D) error

	// writeMu enforces "exactly one update loop may be in flight per
	// document handle at a time" (§4.3); reads never take it.
	writeMu sync.Mutex

	mu      sync.Mutex
	waiters int
	// cached is the coordinator's own copy of the latest applied
	// snapshot (§2, §4.3: "owns... the latest applied snapshot
	// (cached; rebuildable from the log)"), set on first load and kept
	// current across every successful append. nil until first loaded.
	cached *common.Snapshot[D]
}

// New builds a Coordinator over an already-resolved FileHandle.
func New[D common.OTValue[D]](handle store.FileHandle[D], cfg Config, log *zap.Logger) *Coordinator[D] {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultConfig.MaxAttempts
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator[D]{handle: handle, cfg: cfg, log: log}
}

// WithStrictCompose installs the strict-compose validation hook and
// returns c, for chaining at construction time.
func (c *Coordinator[D]) WithStrictCompose(f func(current, delta D) error) *Coordinator[D] {
	c.strictCompose = f
	return c
}

func (c *Coordinator[D]) cachedSnapshot() *common.Snapshot[D] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

func (c *Coordinator[D]) setCached(snap *common.Snapshot[D]) {
	c.mu.Lock()
	c.cached = snap
	c.mu.Unlock()
}

func (c *Coordinator[D]) invalidateCache() {
	c.setCached(nil)
}

// snapshotAt returns the snapshot at revNum (current if nil), serving
// the cached snapshot directly when it already matches rather than
// asking the store to rebuild it from its change log.
func (c *Coordinator[D]) snapshotAt(ctx context.Context, revNum *common.RevisionNumber) (*common.Snapshot[D], error) {
	if cached := c.cachedSnapshot(); cached != nil && (revNum == nil || *revNum == cached.Rev) {
		return cached, nil
	}
	snap, err := c.handle.GetSnapshot(ctx, revNum, nil)
	if err != nil {
		return nil, err
	}
	if revNum == nil {
		c.setCached(snap)
	}
	return snap, nil
}

// Update is the core write protocol (§4.3 steps 1-3): build a Change
// against baseRevNum, transforming against any intervening changes when
// the caller's view is stale, retrying on lost race up to MaxAttempts.
func (c *Coordinator[D]) Update(ctx context.Context, baseRevNum common.RevisionNumber, delta D, authorId common.AuthorId, timestamp time.Time) (common.Change[D], error) {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	attempt := 0
	for {
		attempt++
		if attempt > c.cfg.MaxAttempts {
			return common.Change[D]{}, common.Conflict("update: exceeded %d attempts", c.cfg.MaxAttempts)
		}

		currentSnap, err := c.snapshotAt(ctx, nil)
		if err != nil {
			return common.Change[D]{}, err
		}
		current := currentSnap.Rev

		effective := delta
		if baseRevNum != current {
			intervening, err := c.interveningDelta(ctx, baseRevNum, currentSnap)
			if err != nil {
				return common.Change[D]{}, err
			}
			// Rebase the caller's delta over the intervening changes;
			// thisIsFirst=false lets the already-applied side win ties.
			effective = delta.Transform(intervening, false)
		}

		if c.strictCompose != nil {
			if err := c.strictCompose(currentSnap.Contents, effective); err != nil {
				return common.Change[D]{}, err
			}
		}

		change := common.NewChange[D](common.After(current), effective).
			WithAuthor(authorId).
			WithTimestamp(timestamp)

		ok, err := c.handle.AppendChange(ctx, change, nil)
		if err != nil {
			return common.Change[D]{}, err
		}
		if ok {
			c.setCached(currentSnap.Compose(change))
			return change, nil
		}

		// Another writer won the race outside this Coordinator's own
		// serialized loop (§8 scenario 5); our cached snapshot no
		// longer reflects the store, so drop it and re-load.
		c.invalidateCache()
		c.log.Debug("update: lost race, retrying",
			zap.Int("attempt", attempt),
			zap.Int64("baseRevNum", int64(baseRevNum)))
	}
}

// interveningDelta composes the changes in (baseRevNum, current] into a
// single delta, via the two snapshots' Diff rather than re-walking the
// raw change log (the log's physical layout is store-specific per §6;
// GetSnapshot/Diff is the one contract every store honors).
func (c *Coordinator[D]) interveningDelta(ctx context.Context, baseRevNum common.RevisionNumber, currentSnap *common.Snapshot[D]) (D, error) {
	var zero D
	base, err := c.snapshotAt(ctx, &baseRevNum)
	if err != nil {
		return zero, err
	}
	change, err := base.Diff(currentSnap)
	if err != nil {
		return zero, err
	}
	return change.Delta, nil
}

// DeltaAfter blocks until current > baseRevNum, then returns the
// composition of (baseRevNum, current] as one synthetic, authorless,
// timestampless Change (§4.3).
func (c *Coordinator[D]) DeltaAfter(ctx context.Context, baseRevNum common.RevisionNumber, timeout *time.Duration) (common.Change[D], error) {
	c.trackWaiter(1)
	defer c.trackWaiter(-1)

	for {
		current, err := c.handle.CurrentRevNum(ctx, nil)
		if err != nil {
			return common.Change[D]{}, err
		}
		if current > baseRevNum {
			currentSnap, err := c.snapshotAt(ctx, &current)
			if err != nil {
				return common.Change[D]{}, err
			}
			delta, err := c.interveningDelta(ctx, baseRevNum, currentSnap)
			if err != nil {
				return common.Change[D]{}, err
			}
			return common.NewChange[D](current, delta), nil
		}
		if err := c.handle.WhenPathIsNot(ctx, current, timeout); err != nil {
			return common.Change[D]{}, err
		}
	}
}

// Snapshot returns the document state at revNum (current if nil).
func (c *Coordinator[D]) Snapshot(ctx context.Context, revNum *common.RevisionNumber) (*common.Snapshot[D], error) {
	return c.snapshotAt(ctx, revNum)
}

func (c *Coordinator[D]) trackWaiter(delta int) {
	c.mu.Lock()
	c.waiters += delta
	c.mu.Unlock()
}

// Stats reports the number of DeltaAfter waiters and the store's current
// revision number; session caret calls use it to learn the current
// revision.
type Stats struct {
	Waiters     int
	SnapshotRev common.RevisionNumber
}

func (c *Coordinator[D]) StatsSnapshot(ctx context.Context) (Stats, error) {
	rev, err := c.handle.CurrentRevNum(ctx, nil)
	if err != nil {
		return Stats{}, err
	}
	c.mu.Lock()
	waiters := c.waiters
	c.mu.Unlock()
	return Stats{Waiters: waiters, SnapshotRev: rev}, nil
}
