package tree

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Chain 按注册顺序依次询问 provider。节点查询取第一个非 Delegate 的结果；
// 目录类查询（发布队列、语言）合并所有 provider 的结果并去重。
type Chain struct {
	providers []Provider
	logger    *logrus.Logger
}

// NewChain 创建 provider 链，logger 为空时 provider panic 不会输出日志。
func NewChain(logger *logrus.Logger, providers ...Provider) *Chain {
	return &Chain{
		providers: append([]Provider(nil), providers...),
		logger:    logger,
	}
}

// Providers 返回链上的 provider 副本，供诊断接口使用。
func (c *Chain) Providers() []Provider {
	if c == nil {
		return nil
	}
	return append([]Provider(nil), c.providers...)
}

func (c *Chain) GetItemDefinition(cc *CallContext, id ID) Result[*ItemDefinition] {
	return first(c, "get_item_definition", func(p Provider) Result[*ItemDefinition] {
		return p.GetItemDefinition(cc, id)
	})
}

func (c *Chain) GetChildIDs(cc *CallContext, item *ItemDefinition) Result[[]ID] {
	return first(c, "get_child_ids", func(p Provider) Result[[]ID] {
		return p.GetChildIDs(cc, item)
	})
}

func (c *Chain) GetParentID(cc *CallContext, item *ItemDefinition) Result[ID] {
	return first(c, "get_parent_id", func(p Provider) Result[ID] {
		return p.GetParentID(cc, item)
	})
}

func (c *Chain) GetItemFields(cc *CallContext, item *ItemDefinition, version VersionURI) Result[*FieldList] {
	return first(c, "get_item_fields", func(p Provider) Result[*FieldList] {
		return p.GetItemFields(cc, item, version)
	})
}

func (c *Chain) GetItemVersions(cc *CallContext, item *ItemDefinition) Result[[]VersionURI] {
	return first(c, "get_item_versions", func(p Provider) Result[[]VersionURI] {
		return p.GetItemVersions(cc, item)
	})
}

func (c *Chain) SaveItem(cc *CallContext, item *ItemDefinition, changes *ItemChanges) Result[bool] {
	return first(c, "save_item", func(p Provider) Result[bool] {
		return p.SaveItem(cc, item, changes)
	})
}

// GetPublishQueue 合并所有 provider 的发布队列。
func (c *Chain) GetPublishQueue(cc *CallContext, from, to time.Time) Result[[]ID] {
	return merge(c, "get_publish_queue", func(p Provider) Result[[]ID] {
		return p.GetPublishQueue(cc, from, to)
	})
}

// GetLanguages 合并所有 provider 贡献的语言。
func (c *Chain) GetLanguages(cc *CallContext) Result[[]Language] {
	return merge(c, "get_languages", func(p Provider) Result[[]Language] {
		return p.GetLanguages(cc)
	})
}

func first[T any](c *Chain, op string, call func(Provider) Result[T]) Result[T] {
	if c == nil {
		return Delegate[T]()
	}
	for _, p := range c.providers {
		res := invoke(c, p, op, call)
		if res.Handled() {
			return res
		}
	}
	return Delegate[T]()
}

func merge[T comparable](c *Chain, op string, call func(Provider) Result[[]T]) Result[[]T] {
	if c == nil {
		return Delegate[[]T]()
	}
	var (
		handled bool
		seen    = make(map[T]struct{})
		out     []T
	)
	for _, p := range c.providers {
		res := invoke(c, p, op, call)
		if !res.Handled() {
			continue
		}
		handled = true
		for _, v := range res.Value {
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}
	if !handled {
		return Delegate[[]T]()
	}
	if len(out) == 0 {
		return Empty[[]T]()
	}
	return Value(out)
}

// invoke 调用单个 provider；panic 被记录并视为 Delegate，避免一个 provider 拖垮整条链。
func invoke[T any](c *Chain, p Provider, op string, call func(Provider) Result[T]) (res Result[T]) {
	defer func() {
		if r := recover(); r != nil {
			c.logPanic(p, op, r)
			res = Delegate[T]()
		}
	}()
	return call(p)
}

func (c *Chain) logPanic(p Provider, op string, recovered interface{}) {
	if c.logger == nil {
		return
	}
	c.logger.WithFields(logrus.Fields{
		"action":   op,
		"provider": p.Name(),
		"error":    "provider_panic",
	}).Error(fmt.Sprintf("panic: %v", recovered))
}
