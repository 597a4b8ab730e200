package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/treebridge/treebridge/internal/tree"
)

// Duration 提供更灵活的反序列化能力，同时兼容纯秒整数与 Go Duration 字符串。
type Duration time.Duration

// UnmarshalText 使 Viper 可以识别诸如 "30s"、"5m" 或纯数字秒值等配置写法。
func (d *Duration) UnmarshalText(text []byte) error {
	raw := strings.TrimSpace(string(text))
	if raw == "" {
		*d = Duration(0)
		return nil
	}

	if seconds, err := time.ParseDuration(raw); err == nil {
		*d = Duration(seconds)
		return nil
	}

	if intVal, err := parseInt(raw); err == nil {
		*d = Duration(time.Duration(intVal) * time.Second)
		return nil
	}

	return fmt.Errorf("invalid duration value: %s", raw)
}

// DurationValue 返回真实的 time.Duration，便于调用方计算。
func (d Duration) DurationValue() time.Duration {
	return time.Duration(d)
}

// parseInt 支持十进制或 0x 前缀的十六进制字符串解析。
func parseInt(value string) (int64, error) {
	if strings.HasPrefix(value, "0x") || strings.HasPrefix(value, "0X") {
		return strconv.ParseInt(value, 0, 64)
	}
	return strconv.ParseInt(value, 10, 64)
}

const (
	MappingStoreSQLite = "sqlite"
	MappingStoreMemory = "memory"
)

// GlobalConfig 描述全局运行时行为，所有 provider 共享同一份参数。
type GlobalConfig struct {
	ListenPort      int      `mapstructure:"ListenPort"`
	LogLevel        string   `mapstructure:"LogLevel"`
	LogFilePath     string   `mapstructure:"LogFilePath"`
	LogMaxSize      int      `mapstructure:"LogMaxSize"`
	LogMaxBackups   int      `mapstructure:"LogMaxBackups"`
	LogCompress     bool     `mapstructure:"LogCompress"`
	Database        string   `mapstructure:"Database"`
	Languages       []string `mapstructure:"Languages"`
	MappingStore    string   `mapstructure:"MappingStore"`
	MappingPath     string   `mapstructure:"MappingPath"`
	UpstreamTimeout Duration `mapstructure:"UpstreamTimeout"`
}

// TreeLanguages 把配置的语言转换为树语言类型。
func (g GlobalConfig) TreeLanguages() []tree.Language {
	out := make([]tree.Language, 0, len(g.Languages))
	for _, l := range g.Languages {
		out = append(out, tree.Language(l))
	}
	return out
}

// TemplateConfig 声明一个模板。Fields 中的条目可写作 "Name" 或 "Name=ID"。
type TemplateConfig struct {
	ID     string   `mapstructure:"ID"`
	Name   string   `mapstructure:"Name"`
	Fields []string `mapstructure:"Fields"`
}

// NodeConfig 声明宿主自身持有的节点，例如挂载远端记录的文件夹。
type NodeConfig struct {
	ID         string            `mapstructure:"ID"`
	Name       string            `mapstructure:"Name"`
	TemplateID string            `mapstructure:"TemplateID"`
	ParentID   string            `mapstructure:"ParentID"`
	Fields     map[string]string `mapstructure:"Fields"`
}

// ProviderConfig 决定一个虚拟数据提供者的准入条件与远端地址。
type ProviderConfig struct {
	Name             string `mapstructure:"Name"`
	Type             string `mapstructure:"Type"`
	KeyPrefix        string `mapstructure:"KeyPrefix"`
	TemplateID       string `mapstructure:"TemplateID"`
	ParentTemplateID string `mapstructure:"ParentTemplateID"`
	Endpoint         string `mapstructure:"Endpoint"`
}

// Config 是 TOML 文件映射的整体结构。
type Config struct {
	Global    GlobalConfig     `mapstructure:",squash"`
	Templates []TemplateConfig `mapstructure:"Template"`
	Nodes     []NodeConfig     `mapstructure:"Node"`
	Providers []ProviderConfig `mapstructure:"Provider"`
}

// DeriveFieldID 为未显式给出 ID 的字段生成稳定 ID：模板 ID 命名空间下字段名的 UUIDv5。
func DeriveFieldID(templateID tree.ID, name string) tree.ID {
	return uuid.NewSHA1(templateID, []byte(strings.ToLower(strings.TrimSpace(name))))
}

// Build 把模板配置转换为树模板，名称以 "__" 开头的字段视为系统字段。
func (t TemplateConfig) Build() (*tree.Template, error) {
	id, err := tree.ParseID(t.ID)
	if err != nil {
		return nil, newFieldError(templateField(t.Name, "ID"), "不是合法的 UUID")
	}
	tpl := &tree.Template{ID: id, Name: t.Name}
	seen := map[string]struct{}{}
	for _, raw := range t.Fields {
		name, rawID, explicit := strings.Cut(raw, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, newFieldError(templateField(t.Name, "Fields"), "字段名不能为空")
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, newFieldError(templateField(t.Name, "Fields"), "字段重复: "+name)
		}
		seen[key] = struct{}{}

		fieldID := DeriveFieldID(id, name)
		if explicit {
			fieldID, err = tree.ParseID(rawID)
			if err != nil {
				return nil, newFieldError(templateField(t.Name, "Fields"), "字段 ID 不是合法的 UUID: "+name)
			}
		}
		tpl.Fields = append(tpl.Fields, tree.TemplateField{
			ID:       fieldID,
			Name:     name,
			Standard: strings.HasPrefix(name, "__"),
		})
	}
	return tpl, nil
}

// MemoryNode 把节点配置转换为内存节点，字段值按模板字段名解析为字段 ID。
func (n NodeConfig) MemoryNode(templates tree.TemplateSource) (tree.MemoryNode, error) {
	id, err := tree.ParseID(n.ID)
	if err != nil {
		return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "ID"), "不是合法的 UUID")
	}
	node := tree.MemoryNode{Definition: tree.ItemDefinition{ID: id, Name: n.Name}}
	if n.ParentID != "" {
		if node.ParentID, err = tree.ParseID(n.ParentID); err != nil {
			return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "ParentID"), "不是合法的 UUID")
		}
	}
	if n.TemplateID == "" {
		if len(n.Fields) > 0 {
			return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "Fields"), "没有模板的节点不能声明字段")
		}
		return node, nil
	}
	templateID, err := tree.ParseID(n.TemplateID)
	if err != nil {
		return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "TemplateID"), "不是合法的 UUID")
	}
	node.Definition.TemplateID = templateID
	if len(n.Fields) == 0 {
		return node, nil
	}

	tpl, ok := templates.GetTemplate(templateID)
	if !ok {
		return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "TemplateID"), "引用了未声明的模板")
	}
	values := make(map[tree.ID]string, len(n.Fields))
	for name, value := range n.Fields {
		field, ok := tpl.FieldByName(name)
		if !ok {
			return tree.MemoryNode{}, newFieldError(nodeField(n.Name, "Fields"), "模板中没有字段: "+name)
		}
		values[field.ID] = value
	}
	node.Fields = map[tree.Language]map[tree.ID]string{"": values}
	return node, nil
}

// IDs 解析 provider 的模板与父模板 ID。
func (p ProviderConfig) IDs() (templateID, parentTemplateID tree.ID, err error) {
	if templateID, err = tree.ParseID(p.TemplateID); err != nil {
		return tree.NullID, tree.NullID, newFieldError(providerField(p.Name, "TemplateID"), "不是合法的 UUID")
	}
	if parentTemplateID, err = tree.ParseID(p.ParentTemplateID); err != nil {
		return tree.NullID, tree.NullID, newFieldError(providerField(p.Name, "ParentTemplateID"), "不是合法的 UUID")
	}
	return templateID, parentTemplateID, nil
}

// ProviderSummaries 返回所有 provider 的摘要，例如 people:people-api，供启动日志使用。
func ProviderSummaries(providers []ProviderConfig) []string {
	if len(providers) == 0 {
		return nil
	}
	result := make([]string, len(providers))
	for i, p := range providers {
		result[i] = fmt.Sprintf("%s:%s", p.Name, p.KeyPrefix)
	}
	return result
}
