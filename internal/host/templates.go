package host

import (
	"sort"
	"sync"

	"github.com/treebridge/treebridge/internal/tree"
)

// TemplateStore 保存宿主已知的模板，实现 tree.TemplateSource。
type TemplateStore struct {
	mu        sync.RWMutex
	templates map[tree.ID]*tree.Template
}

// NewTemplateStore 以给定模板初始化存储。
func NewTemplateStore(templates ...*tree.Template) *TemplateStore {
	s := &TemplateStore{templates: make(map[tree.ID]*tree.Template, len(templates))}
	for _, tpl := range templates {
		s.Add(tpl)
	}
	return s
}

func (s *TemplateStore) Add(tpl *tree.Template) {
	if tpl == nil {
		return
	}
	s.mu.Lock()
	s.templates[tpl.ID] = tpl
	s.mu.Unlock()
}

func (s *TemplateStore) GetTemplate(id tree.ID) (*tree.Template, bool) {
	if s == nil {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	tpl, ok := s.templates[id]
	return tpl, ok
}

// List 按名称排序返回全部模板。
func (s *TemplateStore) List() []*tree.Template {
	s.mu.RLock()
	out := make([]*tree.Template, 0, len(s.templates))
	for _, tpl := range s.templates {
		out = append(out, tpl)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ResolveField 按字段 ID 或名称查找模板字段。
func (s *TemplateStore) ResolveField(templateID tree.ID, ref string) (tree.TemplateField, bool) {
	tpl, ok := s.GetTemplate(templateID)
	if !ok {
		return tree.TemplateField{}, false
	}
	if id, err := tree.ParseID(ref); err == nil {
		if f, ok := tpl.Field(id); ok {
			return f, true
		}
	}
	return tpl.FieldByName(ref)
}
