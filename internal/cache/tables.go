package cache

import (
	"encoding/json"
	"fmt"

	"github.com/ppiankov/bufilter/internal/model"
)

// TableCache stores parsed master tables on top of a byte cache
type TableCache struct {
	store Cache
}

// NewTableCache wraps store; a nil store disables caching
func NewTableCache(store Cache) *TableCache {
	if store == nil {
		store = Nop{}
	}
	return &TableCache{store: store}
}

// Get returns the cached table for key
func (c *TableCache) Get(key string) (*model.MasterTable, bool) {
	data, ok := c.store.Get(key)
	if !ok {
		return nil, false
	}
	var tbl model.MasterTable
	if err := json.Unmarshal(data, &tbl); err != nil {
		_ = c.store.Delete(key)
		return nil, false
	}
	return &tbl, true
}

// Put stores tbl under key with the store's default TTL
func (c *TableCache) Put(key string, tbl *model.MasterTable) error {
	data, err := json.Marshal(tbl)
	if err != nil {
		return fmt.Errorf("marshal table: %w", err)
	}
	return c.store.Set(key, data, 0)
}
