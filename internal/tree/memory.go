package tree

import (
	"sync"
	"time"
)

// MemoryNode 是宿主自身持有的节点，包含结构信息与各语言的字段值。
type MemoryNode struct {
	Definition ItemDefinition
	ParentID   ID
	Fields     map[Language]map[ID]string
}

// MemoryProvider 为宿主原生节点（例如挂载远端记录的文件夹）提供数据，只对自己持有的 ID 负责。
type MemoryProvider struct {
	Base

	name     string
	mu       sync.RWMutex
	nodes    map[ID]*MemoryNode
	children map[ID][]ID
}

// NewMemoryProvider 创建空的内存 provider。
func NewMemoryProvider(name string) *MemoryProvider {
	if name == "" {
		name = "memory"
	}
	return &MemoryProvider{
		name:     name,
		nodes:    make(map[ID]*MemoryNode),
		children: make(map[ID][]ID),
	}
}

func (m *MemoryProvider) Name() string { return m.name }

// AddNode 注册一个原生节点，并把它挂到父节点的子列表末尾。
func (m *MemoryProvider) AddNode(node MemoryNode) {
	m.mu.Lock()
	defer m.mu.Unlock()

	def := node.Definition
	def.Cacheable = true
	node.Definition = def
	if _, exists := m.nodes[def.ID]; !exists && node.ParentID != NullID {
		m.children[node.ParentID] = append(m.children[node.ParentID], def.ID)
	}
	copied := node
	m.nodes[def.ID] = &copied
}

func (m *MemoryProvider) lookup(id ID) (*MemoryNode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	node, ok := m.nodes[id]
	return node, ok
}

func (m *MemoryProvider) GetItemDefinition(_ *CallContext, id ID) Result[*ItemDefinition] {
	node, ok := m.lookup(id)
	if !ok {
		return Delegate[*ItemDefinition]()
	}
	def := node.Definition
	return Value(&def)
}

func (m *MemoryProvider) GetChildIDs(_ *CallContext, item *ItemDefinition) Result[[]ID] {
	if item == nil {
		return Delegate[[]ID]()
	}
	if _, ok := m.lookup(item.ID); !ok {
		return Delegate[[]ID]()
	}
	m.mu.RLock()
	ids := append([]ID(nil), m.children[item.ID]...)
	m.mu.RUnlock()
	if len(ids) == 0 {
		return Empty[[]ID]()
	}
	return Value(ids)
}

func (m *MemoryProvider) GetParentID(_ *CallContext, item *ItemDefinition) Result[ID] {
	if item == nil {
		return Delegate[ID]()
	}
	node, ok := m.lookup(item.ID)
	if !ok {
		return Delegate[ID]()
	}
	if node.ParentID == NullID {
		return Empty[ID]()
	}
	return Value(node.ParentID)
}

func (m *MemoryProvider) GetItemFields(_ *CallContext, item *ItemDefinition, version VersionURI) Result[*FieldList] {
	if item == nil {
		return Delegate[*FieldList]()
	}
	node, ok := m.lookup(item.ID)
	if !ok {
		return Delegate[*FieldList]()
	}
	fields := NewFieldList()
	m.mu.RLock()
	values, ok := node.Fields[version.Language]
	if !ok {
		values = node.Fields[""]
	}
	for id, value := range values {
		fields.Add(id, value)
	}
	m.mu.RUnlock()
	return Value(fields)
}

func (m *MemoryProvider) GetItemVersions(cc *CallContext, item *ItemDefinition) Result[[]VersionURI] {
	if item == nil {
		return Delegate[[]VersionURI]()
	}
	if _, ok := m.lookup(item.ID); !ok {
		return Delegate[[]VersionURI]()
	}
	var versions []VersionURI
	for _, lang := range cc.Languages {
		versions = append(versions, VersionURI{Language: lang, Version: FirstVersion})
	}
	return Value(versions)
}

// GetPublishQueue 原生节点没有修改时间模型，返回空但参与合并。
func (m *MemoryProvider) GetPublishQueue(*CallContext, time.Time, time.Time) Result[[]ID] {
	return Empty[[]ID]()
}

func (m *MemoryProvider) SaveItem(_ *CallContext, item *ItemDefinition, changes *ItemChanges) Result[bool] {
	if item == nil || changes == nil {
		return Delegate[bool]()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	node, ok := m.nodes[item.ID]
	if !ok {
		return Delegate[bool]()
	}
	if node.Fields == nil {
		node.Fields = make(map[Language]map[ID]string)
	}
	// 原生节点不区分语言保存，写入所有已有语言；没有语言时写入空语言槽。
	langs := make([]Language, 0, len(node.Fields))
	for lang := range node.Fields {
		langs = append(langs, lang)
	}
	if len(langs) == 0 {
		langs = append(langs, "")
	}
	for _, lang := range langs {
		if node.Fields[lang] == nil {
			node.Fields[lang] = make(map[ID]string)
		}
		for _, change := range changes.FieldChanges {
			node.Fields[lang][change.FieldID] = change.Value
		}
	}
	return Value(true)
}
