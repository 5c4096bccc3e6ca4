package cache

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	model "taskgrid.com/taskgrid/internal/models"
)

const defaultMaxEntries = 128

// CachedPage is one memoized query response. Pages are replaced atomically,
// never patched.
type CachedPage struct {
	Rows     []model.Task
	RowCount int
}

// RowCache memoizes (context, window) query responses so the grid asking for
// the same block twice within one render cycle does not recompute it. It is a
// correctness cache; the LRU bound only keeps memory flat.
type RowCache struct {
	entries *lru.Cache[string, CachedPage]
}

func NewRowCache(maxEntries int) *RowCache {
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	entries, err := lru.New[string, CachedPage](maxEntries)
	if err != nil {
		// lru.New only errors on a non-positive size, guarded above.
		panic(err)
	}
	return &RowCache{entries: entries}
}

// Key builds the full cache key: context identity plus the row window.
func Key(qc model.QueryContext, startRow, endRow int) string {
	return fmt.Sprintf("%s|%d:%d", qc.Key(), startRow, endRow)
}

func (c *RowCache) Get(key string) (CachedPage, bool) {
	return c.entries.Get(key)
}

func (c *RowCache) Set(key string, page CachedPage) {
	c.entries.Add(key, page)
}

func (c *RowCache) Clear() {
	c.entries.Purge()
}

func (c *RowCache) Len() int {
	return c.entries.Len()
}
