package store

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/quillhub/scribe/ot/common"
)

// FileCache memoizes FileHandle lookups with at-most-one-concurrent
// creation per fileId (§5): two callers racing to open the same file
// never open it twice, and every caller sees the same *FileHandle.
type FileCache[D common.OTValue[D]] struct {
	store FileStore[D]
	group singleflight.Group

	// handles keeps every resolved FileHandle, keyed by fileId.
	handles sync.Map
}

// NewFileCache wraps store with singleflight-deduplicated lookups.
func NewFileCache[D common.OTValue[D]](store FileStore[D]) *FileCache[D] {
	return &FileCache[D]{store: store}
}

// GetFile returns the FileHandle for fileId, creating it on first access.
// Concurrent calls for the same fileId block behind a single underlying
// FileStore.GetFile call and share its result.
func (c *FileCache[D]) GetFile(ctx context.Context, fileId common.FileId) (FileHandle[D], error) {
	if h, ok := c.handles.Load(fileId); ok {
		return h.(FileHandle[D]), nil
	}
	v, err, _ := c.group.Do(string(fileId), func() (interface{}, error) {
		h, err := c.store.GetFile(ctx, fileId)
		if err != nil {
			return nil, err
		}
		c.handles.Store(fileId, h)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(FileHandle[D]), nil
}

func (c *FileCache[D]) Exists(ctx context.Context, fileId common.FileId) (bool, error) {
	return c.store.Exists(ctx, fileId)
}

func (c *FileCache[D]) Close() error { return c.store.Close() }
