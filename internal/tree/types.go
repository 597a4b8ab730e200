package tree

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

// ID 是节点在内容树中的唯一标识，沿用 UUID 表示。
type ID = uuid.UUID

// NullID 表示“未知/不存在”的节点。
var NullID = uuid.Nil

// NewID 生成一个新的节点标识。
func NewID() ID {
	return uuid.New()
}

// ParseID 解析字符串形式的节点标识，兼容带花括号的写法。
func ParseID(raw string) (ID, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "{")
	raw = strings.TrimSuffix(raw, "}")
	return uuid.Parse(raw)
}

// ItemDefinition 描述一个节点的结构信息，不含字段值。
type ItemDefinition struct {
	ID         ID
	Name       string
	TemplateID ID
	BranchID   ID
	// Cacheable 为 false 时宿主不得把该定义写入 item cache。
	Cacheable bool
}

// Language 是宿主配置的内容语言代码，例如 "en"。
type Language string

// FirstVersion 是每种语言的首个版本号。
const FirstVersion = 1

// VersionURI 定位某个节点在特定语言下的版本。
type VersionURI struct {
	Language Language
	Version  int
}

// TemplateField 是模板声明的一个字段。Standard 字段属于系统/结构字段，不承载数据。
type TemplateField struct {
	ID       ID
	Name     string
	Standard bool
}

// IsDataField 判断字段是否为数据字段（排除系统字段）。
func IsDataField(f TemplateField) bool {
	return !f.Standard && !strings.HasPrefix(f.Name, "__")
}

// Template 描述节点类型及其字段集合。
type Template struct {
	ID     ID
	Name   string
	Fields []TemplateField
}

// DataFields 返回模板中全部数据字段，保持声明顺序。
func (t *Template) DataFields() []TemplateField {
	if t == nil {
		return nil
	}
	result := make([]TemplateField, 0, len(t.Fields))
	for _, f := range t.Fields {
		if IsDataField(f) {
			result = append(result, f)
		}
	}
	return result
}

// Field 按 ID 查找模板字段。
func (t *Template) Field(id ID) (TemplateField, bool) {
	if t == nil {
		return TemplateField{}, false
	}
	for _, f := range t.Fields {
		if f.ID == id {
			return f, true
		}
	}
	return TemplateField{}, false
}

// FieldByName 按名称（大小写不敏感）查找模板字段。
func (t *Template) FieldByName(name string) (TemplateField, bool) {
	if t == nil {
		return TemplateField{}, false
	}
	for _, f := range t.Fields {
		if strings.EqualFold(f.Name, name) {
			return f, true
		}
	}
	return TemplateField{}, false
}

// FieldChange 是一次保存中单个字段的新值。
type FieldChange struct {
	FieldID ID
	Value   string
}

// ItemChanges 汇总一次保存请求：Values 为保存前的字段值，FieldChanges 为被修改的字段。
type ItemChanges struct {
	Item         ItemDefinition
	Values       map[ID]string
	FieldChanges []FieldChange
}

// TemplateSource 提供模板查询能力，通常由宿主数据库实现。
type TemplateSource interface {
	GetTemplate(id ID) (*Template, bool)
}

// DataCache 是数据库级别的通用数据缓存，只暴露整体清空。
type DataCache interface {
	Clear()
}

// ItemEvictor 是宿主 item cache 暴露的窄接口：按 ID 驱逐单个节点。
type ItemEvictor interface {
	RemoveItem(id ID) error
}

// CallContext 随每次树查询传入 provider，携带语言、缓存与模板访问能力。
type CallContext struct {
	Context   context.Context
	Database  string
	Languages []Language
	DataCache DataCache
	ItemCache ItemEvictor
	Templates TemplateSource
}

// Ctx 返回可用于阻塞调用的 context，未设置时回退到 Background。
func (c *CallContext) Ctx() context.Context {
	if c == nil || c.Context == nil {
		return context.Background()
	}
	return c.Context
}

// Template 通过上下文查找模板，Templates 未注入时返回 false。
func (c *CallContext) Template(id ID) (*Template, bool) {
	if c == nil || c.Templates == nil {
		return nil, false
	}
	return c.Templates.GetTemplate(id)
}
