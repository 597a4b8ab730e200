package host

import (
	"github.com/treebridge/treebridge/internal/cache"
	"github.com/treebridge/treebridge/internal/tree"
)

// ItemCache 缓存可缓存节点的定义，实现 tree.ItemEvictor。
type ItemCache struct {
	entries *cache.Cache[tree.ID, tree.ItemDefinition]
}

func newItemCache() *ItemCache {
	return &ItemCache{entries: cache.New[tree.ID, tree.ItemDefinition]()}
}

func (c *ItemCache) Get(id tree.ID) (tree.ItemDefinition, bool) {
	return c.entries.Get(id)
}

// Put 只接受 Cacheable 的定义。
func (c *ItemCache) Put(def tree.ItemDefinition) bool {
	if !def.Cacheable {
		return false
	}
	c.entries.Set(def.ID, def)
	return true
}

// RemoveItem 驱逐单个节点，节点不在缓存中也视为成功。
func (c *ItemCache) RemoveItem(id tree.ID) error {
	c.entries.Delete(id)
	return nil
}

func (c *ItemCache) Len() int { return c.entries.Len() }

type fieldKey struct {
	item     tree.ID
	language tree.Language
	version  int
}

// DataCache 是数据库级别的通用数据缓存，目前保存可缓存节点的字段集合。
type DataCache struct {
	fields *cache.Cache[fieldKey, *tree.FieldList]
}

func newDataCache() *DataCache {
	return &DataCache{fields: cache.New[fieldKey, *tree.FieldList]()}
}

func (c *DataCache) getFields(key fieldKey) (*tree.FieldList, bool) {
	return c.fields.Get(key)
}

func (c *DataCache) putFields(key fieldKey, list *tree.FieldList) {
	c.fields.Set(key, list)
}

// RemoveItem 删除某个节点的全部字段缓存。
func (c *DataCache) RemoveItem(id tree.ID) {
	for _, key := range c.fields.Keys() {
		if key.item == id {
			c.fields.Delete(key)
		}
	}
}

// Clear 丢弃全部缓存数据。
func (c *DataCache) Clear() {
	c.fields.Clear()
}

func (c *DataCache) Len() int { return c.fields.Len() }
