package tree

import "time"

// Provider 是内容树数据提供者契约，每种查询一个方法。
// 不负责的查询必须返回 Delegate，由 Chain 交给下一个 provider。
type Provider interface {
	Name() string
	GetItemDefinition(cc *CallContext, id ID) Result[*ItemDefinition]
	GetChildIDs(cc *CallContext, item *ItemDefinition) Result[[]ID]
	GetParentID(cc *CallContext, item *ItemDefinition) Result[ID]
	GetItemFields(cc *CallContext, item *ItemDefinition, version VersionURI) Result[*FieldList]
	GetItemVersions(cc *CallContext, item *ItemDefinition) Result[[]VersionURI]
	GetPublishQueue(cc *CallContext, from, to time.Time) Result[[]ID]
	SaveItem(cc *CallContext, item *ItemDefinition, changes *ItemChanges) Result[bool]
	GetLanguages(cc *CallContext) Result[[]Language]
}

// Base 对所有查询返回 Delegate，具体 provider 嵌入后只需覆盖关心的方法。
type Base struct{}

func (Base) Name() string { return "base" }

func (Base) GetItemDefinition(*CallContext, ID) Result[*ItemDefinition] {
	return Delegate[*ItemDefinition]()
}

func (Base) GetChildIDs(*CallContext, *ItemDefinition) Result[[]ID] {
	return Delegate[[]ID]()
}

func (Base) GetParentID(*CallContext, *ItemDefinition) Result[ID] {
	return Delegate[ID]()
}

func (Base) GetItemFields(*CallContext, *ItemDefinition, VersionURI) Result[*FieldList] {
	return Delegate[*FieldList]()
}

func (Base) GetItemVersions(*CallContext, *ItemDefinition) Result[[]VersionURI] {
	return Delegate[[]VersionURI]()
}

func (Base) GetPublishQueue(*CallContext, time.Time, time.Time) Result[[]ID] {
	return Delegate[[]ID]()
}

func (Base) SaveItem(*CallContext, *ItemDefinition, *ItemChanges) Result[bool] {
	return Delegate[bool]()
}

func (Base) GetLanguages(*CallContext) Result[[]Language] {
	return Delegate[[]Language]()
}
