package provider

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/tree"
)

// EvictItem 尽力从宿主 item cache 中移除 id。错误与 panic 都只记录日志，绝不向调用方传播。
func EvictItem(log logrus.FieldLogger, evictor tree.ItemEvictor, id tree.ID) {
	if evictor == nil || id == tree.NullID {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"id":    id.String(),
				"error": fmt.Sprint(r),
			}).Warn("item cache eviction panicked")
		}
	}()
	if err := evictor.RemoveItem(id); err != nil {
		log.WithError(err).WithField("id", id.String()).Warn("item cache eviction failed")
	}
}

// ClearDataCache 清空宿主数据库级数据缓存，同样只记录失败。
func ClearDataCache(log logrus.FieldLogger, cache tree.DataCache) {
	if cache == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			log.WithField("error", fmt.Sprint(r)).Warn("data cache clear panicked")
		}
	}()
	cache.Clear()
}
