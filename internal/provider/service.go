// Package provider 汇集虚拟层级数据提供者的公共能力：准入判断、身份映射、
// 缓存驱逐钩子以及按类型注册的 provider 工厂。具体实现位于子包（例如 people）。
package provider

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/idtable"
	"github.com/treebridge/treebridge/internal/logging"
	"github.com/treebridge/treebridge/internal/tree"
)

// ErrInvalidOptions 表示构造 provider 所需的参数缺失或非法，属于启动期致命错误。
var ErrInvalidOptions = errors.New("provider: invalid options")

// Options 是构造 provider 的静态配置，构造后不再变化。
type Options struct {
	Name             string
	KeyPrefix        string
	TemplateID       tree.ID
	ParentTemplateID tree.ID
	Endpoint         string

	Minter *idtable.Minter
	Client *http.Client
	Logger *logrus.Logger
}

// Validate 检查必填参数。
func (o Options) Validate() error {
	switch {
	case strings.TrimSpace(o.Name) == "":
		return fmt.Errorf("%w: name is required", ErrInvalidOptions)
	case strings.TrimSpace(o.KeyPrefix) == "":
		return fmt.Errorf("%w: key prefix is required", ErrInvalidOptions)
	case o.TemplateID == tree.NullID:
		return fmt.Errorf("%w: template id is required", ErrInvalidOptions)
	case o.ParentTemplateID == tree.NullID:
		return fmt.Errorf("%w: parent template id is required", ErrInvalidOptions)
	case strings.TrimSpace(o.Endpoint) == "":
		return fmt.Errorf("%w: endpoint is required", ErrInvalidOptions)
	case o.Minter == nil:
		return fmt.Errorf("%w: mapping table is required", ErrInvalidOptions)
	}
	return nil
}

// Service 封装与远端类型无关的准入与映射逻辑，供具体 provider 组合使用。
type Service struct {
	opts   Options
	minter *idtable.Minter
	table  idtable.Table
	logger *logrus.Logger
}

// NewService 校验参数并构建 Service。
func NewService(opts Options) (*Service, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Service{
		opts:   opts,
		minter: opts.Minter,
		table:  opts.Minter.Table(),
		logger: logger,
	}, nil
}

func (s *Service) Name() string              { return s.opts.Name }
func (s *Service) Prefix() string            { return s.opts.KeyPrefix }
func (s *Service) TemplateID() tree.ID       { return s.opts.TemplateID }
func (s *Service) ParentTemplateID() tree.ID { return s.opts.ParentTemplateID }
func (s *Service) Options() Options          { return s.opts }
func (s *Service) Logger() *logrus.Logger    { return s.logger }

// Log 返回带 provider 字段的日志入口。
func (s *Service) Log(action string) *logrus.Entry {
	return s.logger.WithFields(logging.ProviderFields(s.opts.Name, s.opts.KeyPrefix, action))
}

// Entry 返回 id 在本前缀下的映射条目。查询失败按“无映射”处理并记录日志。
func (s *Service) Entry(cc *tree.CallContext, id tree.ID) (idtable.Entry, bool) {
	if id == tree.NullID {
		return idtable.Entry{}, false
	}
	entries, err := s.table.GetKeys(cc.Ctx(), s.opts.KeyPrefix, id)
	if err != nil {
		s.Log("mapping_lookup").WithError(err).WithField("id", id.String()).Warn("mapping lookup failed")
		return idtable.Entry{}, false
	}
	if len(entries) == 0 {
		return idtable.Entry{}, false
	}
	return entries[0], true
}

// Key 返回 id 映射的外部键。
func (s *Service) Key(cc *tree.CallContext, id tree.ID) (string, bool) {
	entry, ok := s.Entry(cc, id)
	if !ok {
		return "", false
	}
	return entry.Key, true
}

// CanProvideItem 是身份准入：id 在本前缀下至少有一条映射。
func (s *Service) CanProvideItem(cc *tree.CallContext, id tree.ID) bool {
	_, ok := s.Entry(cc, id)
	return ok
}

// CanProvideChildren 是子节点准入：父节点的模板等于配置的父模板。
func (s *Service) CanProvideChildren(item *tree.ItemDefinition) bool {
	return item != nil && item.TemplateID == s.opts.ParentTemplateID
}

// CanResolve 是节点准入：节点模板等于配置的模板且存在映射。
func (s *Service) CanResolve(cc *tree.CallContext, item *tree.ItemDefinition) bool {
	if item == nil || item.TemplateID != s.opts.TemplateID {
		return false
	}
	return s.CanProvideItem(cc, item.ID)
}

// CreateOrGetID 查找或生成 key 对应的节点 ID，parentID 仅在首次生成时记录。
func (s *Service) CreateOrGetID(cc *tree.CallContext, key string, parentID tree.ID) (tree.ID, error) {
	return s.minter.CreateOrGetID(cc.Ctx(), s.opts.KeyPrefix, key, parentID)
}

// MappedIDs 返回本前缀下全部已映射的节点 ID，按写入顺序。
func (s *Service) MappedIDs(cc *tree.CallContext) ([]tree.ID, error) {
	entries, err := s.table.List(cc.Ctx(), s.opts.KeyPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]tree.ID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// DataFields 返回节点模板的数据字段；模板未知时返回 nil。
func (s *Service) DataFields(cc *tree.CallContext, item *tree.ItemDefinition) []tree.TemplateField {
	tpl, ok := cc.Template(item.TemplateID)
	if !ok {
		s.Log("template_lookup").WithField("template_id", item.TemplateID.String()).Warn("template not found")
		return nil
	}
	return tpl.DataFields()
}

// Field 按 ID 在节点模板中查找字段。
func (s *Service) Field(cc *tree.CallContext, item *tree.ItemDefinition, id tree.ID) (tree.TemplateField, bool) {
	tpl, ok := cc.Template(item.TemplateID)
	if !ok {
		return tree.TemplateField{}, false
	}
	return tpl.Field(id)
}
