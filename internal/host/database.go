// Package host 提供一个最小宿主数据库：持有 provider 链、节点缓存与模板，
// 并把树查询转成对链的调用。
package host

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/tree"
)

var (
	// ErrNotFound 表示链上没有 provider 认识该节点。
	ErrNotFound = errors.New("host: item not found")
	// ErrNotHandled 表示没有 provider 接受保存请求。
	ErrNotHandled = errors.New("host: save not handled")
)

// Options 描述数据库的组成。
type Options struct {
	Name      string
	Languages []tree.Language
	Templates *TemplateStore
	Providers []tree.Provider
	Logger    *logrus.Logger
}

// Database 是宿主的一个数据库实例，例如 "master"。
type Database struct {
	name      string
	languages []tree.Language
	chain     *tree.Chain
	items     *ItemCache
	data      *DataCache
	templates *TemplateStore
	logger    *logrus.Logger
}

// New 构建数据库，provider 顺序即链顺序。
func New(opts Options) *Database {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	templates := opts.Templates
	if templates == nil {
		templates = NewTemplateStore()
	}
	name := opts.Name
	if name == "" {
		name = "master"
	}
	return &Database{
		name:      name,
		languages: append([]tree.Language(nil), opts.Languages...),
		chain:     tree.NewChain(logger, opts.Providers...),
		items:     newItemCache(),
		data:      newDataCache(),
		templates: templates,
		logger:    logger,
	}
}

func (d *Database) Name() string              { return d.name }
func (d *Database) Chain() *tree.Chain        { return d.chain }
func (d *Database) ItemCache() *ItemCache     { return d.items }
func (d *Database) DataCache() *DataCache     { return d.data }
func (d *Database) Templates() *TemplateStore { return d.templates }

func (d *Database) HostLanguages() []tree.Language {
	return append([]tree.Language(nil), d.languages...)
}

func (d *Database) callContext(ctx context.Context) *tree.CallContext {
	return &tree.CallContext{
		Context:   ctx,
		Database:  d.name,
		Languages: d.HostLanguages(),
		DataCache: d.data,
		ItemCache: d.items,
		Templates: d.templates,
	}
}

// Item 先查 item cache，未命中时询问链；只有 Cacheable 的定义会被缓存。
func (d *Database) Item(ctx context.Context, id tree.ID) (*tree.ItemDefinition, error) {
	if def, ok := d.items.Get(id); ok {
		return &def, nil
	}
	def, ok := d.chain.GetItemDefinition(d.callContext(ctx), id).Get()
	if !ok || def == nil {
		return nil, ErrNotFound
	}
	d.items.Put(*def)
	return def, nil
}

// Children 返回子节点 ID。子节点列表不缓存，每次都交给链回答。
func (d *Database) Children(ctx context.Context, id tree.ID) ([]tree.ID, error) {
	item, err := d.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	ids, _ := d.chain.GetChildIDs(d.callContext(ctx), item).Get()
	if ids == nil {
		ids = []tree.ID{}
	}
	return ids, nil
}

// Parent 返回父节点 ID；根节点或未知父节点返回 NullID。
func (d *Database) Parent(ctx context.Context, id tree.ID) (tree.ID, error) {
	item, err := d.Item(ctx, id)
	if err != nil {
		return tree.NullID, err
	}
	parent, ok := d.chain.GetParentID(d.callContext(ctx), item).Get()
	if !ok {
		return tree.NullID, nil
	}
	return parent, nil
}

// Fields 返回节点在指定语言与版本下的字段；language 为空时取首个宿主语言，version<=0 时取首版本。
func (d *Database) Fields(ctx context.Context, id tree.ID, language tree.Language, version int) (*tree.FieldList, error) {
	item, err := d.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	if language == "" && len(d.languages) > 0 {
		language = d.languages[0]
	}
	if version <= 0 {
		version = tree.FirstVersion
	}

	key := fieldKey{item: id, language: language, version: version}
	if item.Cacheable {
		if list, ok := d.data.getFields(key); ok {
			return list, nil
		}
	}

	list, ok := d.chain.GetItemFields(d.callContext(ctx), item, tree.VersionURI{Language: language, Version: version}).Get()
	if !ok || list == nil {
		list = tree.NewFieldList()
	}
	if item.Cacheable {
		d.data.putFields(key, list)
	}
	return list, nil
}

// Versions 返回节点的版本列表。
func (d *Database) Versions(ctx context.Context, id tree.ID) ([]tree.VersionURI, error) {
	item, err := d.Item(ctx, id)
	if err != nil {
		return nil, err
	}
	versions, _ := d.chain.GetItemVersions(d.callContext(ctx), item).Get()
	if versions == nil {
		versions = []tree.VersionURI{}
	}
	return versions, nil
}

// PublishQueue 合并所有 provider 的发布候选。
func (d *Database) PublishQueue(ctx context.Context, from, to time.Time) []tree.ID {
	ids, _ := d.chain.GetPublishQueue(d.callContext(ctx), from, to).Get()
	if ids == nil {
		ids = []tree.ID{}
	}
	return ids
}

// Languages 返回宿主语言与 provider 贡献语言的并集，宿主语言在前。
func (d *Database) Languages(ctx context.Context) []tree.Language {
	seen := make(map[tree.Language]struct{}, len(d.languages))
	out := make([]tree.Language, 0, len(d.languages))
	add := func(langs []tree.Language) {
		for _, l := range langs {
			if _, dup := seen[l]; dup || l == "" {
				continue
			}
			seen[l] = struct{}{}
			out = append(out, l)
		}
	}
	add(d.languages)
	extra, _ := d.chain.GetLanguages(d.callContext(ctx)).Get()
	add(extra)
	return out
}

// Save 以当前字段值为基准提交修改。返回 provider 报告的结果；成功后清理该节点的缓存。
func (d *Database) Save(ctx context.Context, id tree.ID, changes []tree.FieldChange) (bool, error) {
	item, err := d.Item(ctx, id)
	if err != nil {
		return false, err
	}
	base, err := d.Fields(ctx, id, "", tree.FirstVersion)
	if err != nil {
		return false, err
	}
	values := make(map[tree.ID]string, base.Len())
	base.Each(func(fid tree.ID, value string) { values[fid] = value })

	res := d.chain.SaveItem(d.callContext(ctx), item, &tree.ItemChanges{
		Item:         *item,
		Values:       values,
		FieldChanges: changes,
	})
	if res.Status == tree.StatusDelegate {
		return false, ErrNotHandled
	}
	ok, _ := res.Get()

	entry := d.logger.WithFields(logrus.Fields{
		"action":   "save_item",
		"database": d.name,
		"id":       id.String(),
		"changes":  len(changes),
	})
	if !ok {
		entry.Warn("save rejected")
		return false, nil
	}
	_ = d.items.RemoveItem(id)
	d.data.RemoveItem(id)
	entry.Info("item saved")
	return true, nil
}
