// Package people 把远端 Person API 暴露为内容树节点：记录挂在配置的父模板节点下，
// 节点 ID 由映射表按记录键生成并持久化。
package people

import (
	"time"

	"github.com/treebridge/treebridge/internal/projection"
	"github.com/treebridge/treebridge/internal/provider"
	"github.com/treebridge/treebridge/internal/remote"
	"github.com/treebridge/treebridge/internal/tree"
)

// TypeKey 是在配置中引用该 provider 的类型名。
const TypeKey = "people"

func init() {
	provider.MustRegister(provider.Kind{
		Key:         TypeKey,
		Description: "remote person records keyed by email",
		Factory: func(opts provider.Options) (tree.Provider, error) {
			return New(opts)
		},
	})
}

// Provider 实现树查询契约，每个操作先过准入判断，不满足时交给链上的下一个 provider。
type Provider struct {
	tree.Base

	svc  *provider.Service
	repo *remote.Repository
}

// New 校验配置并创建 provider。
func New(opts provider.Options) (*Provider, error) {
	svc, err := provider.NewService(opts)
	if err != nil {
		return nil, err
	}
	repo, err := remote.NewRepository(opts.Endpoint, opts.Client, svc.Logger())
	if err != nil {
		return nil, err
	}
	return &Provider{svc: svc, repo: repo}, nil
}

func (p *Provider) Name() string { return p.svc.Name() }

// Service 暴露共享的准入与映射逻辑，供诊断接口使用。
func (p *Provider) Service() *provider.Service { return p.svc }

// Repository 返回底层远端仓库。
func (p *Provider) Repository() *remote.Repository { return p.repo }

// record 通过映射表与查找缓存解析节点对应的记录。
func (p *Provider) record(cc *tree.CallContext, id tree.ID) (string, remote.Person, bool) {
	key, ok := p.svc.Key(cc, id)
	if !ok {
		return "", remote.Person{}, false
	}
	person, ok := p.repo.Get(key)
	return key, person, ok
}

func (p *Provider) GetItemDefinition(cc *tree.CallContext, id tree.ID) tree.Result[*tree.ItemDefinition] {
	if !p.svc.CanProvideItem(cc, id) {
		return tree.Delegate[*tree.ItemDefinition]()
	}
	key, person, ok := p.record(cc, id)
	if !ok {
		// 映射可能已过期（远端记录被删除），交给后续 provider。
		p.svc.Log("item_definition").WithField("key", key).Debug("record not cached, delegating")
		return tree.Delegate[*tree.ItemDefinition]()
	}

	def := &tree.ItemDefinition{
		ID:         id,
		Name:       projection.ItemName(person),
		TemplateID: p.svc.TemplateID(),
		Cacheable:  false,
	}
	provider.EvictItem(p.svc.Log("evict_item"), cc.ItemCache, id)
	return tree.Value(def)
}

func (p *Provider) GetChildIDs(cc *tree.CallContext, item *tree.ItemDefinition) tree.Result[[]tree.ID] {
	if !p.svc.CanProvideChildren(item) {
		return tree.Delegate[[]tree.ID]()
	}

	p.repo.ClearCache()
	people := p.repo.ListAll(cc.Ctx())

	ids := make([]tree.ID, 0, len(people))
	for _, person := range people {
		key := person.Key()
		if key == "" {
			continue
		}
		id, err := p.svc.CreateOrGetID(cc, key, item.ID)
		if err != nil {
			p.svc.Log("children").WithError(err).WithField("key", key).Error("mint id failed")
			continue
		}
		ids = append(ids, id)
	}

	provider.ClearDataCache(p.svc.Log("clear_data_cache"), cc.DataCache)
	return tree.Value(ids)
}

func (p *Provider) GetParentID(cc *tree.CallContext, item *tree.ItemDefinition) tree.Result[tree.ID] {
	if item == nil || item.TemplateID != p.svc.TemplateID() {
		return tree.Delegate[tree.ID]()
	}
	entry, ok := p.svc.Entry(cc, item.ID)
	if !ok {
		return tree.Delegate[tree.ID]()
	}
	if entry.ParentID == tree.NullID {
		return tree.Empty[tree.ID]()
	}
	return tree.Value(entry.ParentID)
}

func (p *Provider) GetItemFields(cc *tree.CallContext, item *tree.ItemDefinition, _ tree.VersionURI) tree.Result[*tree.FieldList] {
	if !p.svc.CanResolve(cc, item) {
		return tree.Delegate[*tree.FieldList]()
	}
	_, person, ok := p.record(cc, item.ID)
	if !ok {
		return tree.Empty[*tree.FieldList]()
	}

	list := tree.NewFieldList()
	for _, field := range p.svc.DataFields(cc, item) {
		list.Add(field.ID, projection.Project(field.Name, person))
	}
	return tree.Value(list)
}

func (p *Provider) GetItemVersions(cc *tree.CallContext, item *tree.ItemDefinition) tree.Result[[]tree.VersionURI] {
	if !p.svc.CanResolve(cc, item) {
		return tree.Delegate[[]tree.VersionURI]()
	}
	versions := make([]tree.VersionURI, 0, len(cc.Languages))
	for _, lang := range cc.Languages {
		versions = append(versions, tree.VersionURI{Language: lang, Version: tree.FirstVersion})
	}
	return tree.Value(versions)
}

// GetPublishQueue 忽略时间范围，返回全部已映射节点：远端记录没有时间戳模型。
func (p *Provider) GetPublishQueue(cc *tree.CallContext, _, _ time.Time) tree.Result[[]tree.ID] {
	ids, err := p.svc.MappedIDs(cc)
	if err != nil {
		p.svc.Log("publish_queue").WithError(err).Error("list mappings failed")
		return tree.Empty[[]tree.ID]()
	}
	return tree.Value(ids)
}

func (p *Provider) SaveItem(cc *tree.CallContext, item *tree.ItemDefinition, changes *tree.ItemChanges) tree.Result[bool] {
	if !p.svc.CanResolve(cc, item) {
		return tree.Delegate[bool]()
	}
	key, person, _ := p.record(cc, item.ID)
	if key == "" {
		return tree.Value(false)
	}

	if changes != nil {
		for fieldID, value := range changes.Values {
			p.assign(cc, item, &person, fieldID, value)
		}
		for _, change := range changes.FieldChanges {
			p.assign(cc, item, &person, change.FieldID, change.Value)
		}
	}
	if person.Email == "" {
		person.Email = key
	}

	log := p.svc.Log("save").WithField("key", key)
	if err := p.repo.Update(cc.Ctx(), key, person); err != nil {
		log.WithError(err).Warn("remote update failed")
		return tree.Value(false)
	}
	log.Info("remote record updated")
	return tree.Value(true)
}

func (p *Provider) assign(cc *tree.CallContext, item *tree.ItemDefinition, person *remote.Person, fieldID tree.ID, value string) {
	field, ok := p.svc.Field(cc, item, fieldID)
	if !ok || !tree.IsDataField(field) {
		return
	}
	projection.Assign(field.Name, person, value)
}

// GetLanguages 不向宿主贡献语言，只消费宿主自己的语言列表。
func (p *Provider) GetLanguages(*tree.CallContext) tree.Result[[]tree.Language] {
	return tree.Delegate[[]tree.Language]()
}
