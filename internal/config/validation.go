package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/sirupsen/logrus"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError("Global.ListenPort", "必须在 1-65535")
	}
	if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
		return newFieldError("Global.LogLevel", "无法识别的日志级别")
	}
	if strings.TrimSpace(g.Database) == "" {
		return newFieldError("Global.Database", "不能为空")
	}
	if len(g.Languages) == 0 {
		return newFieldError("Global.Languages", "至少需要一种语言")
	}
	for _, lang := range g.Languages {
		if strings.TrimSpace(lang) == "" {
			return newFieldError("Global.Languages", "语言代码不能为空")
		}
	}
	switch g.MappingStore {
	case MappingStoreSQLite:
		if strings.TrimSpace(g.MappingPath) == "" {
			return newFieldError("Global.MappingPath", "sqlite 映射表需要路径")
		}
	case MappingStoreMemory:
	default:
		return newFieldError("Global.MappingStore", "仅支持 sqlite/memory")
	}
	if g.UpstreamTimeout.DurationValue() <= 0 {
		return newFieldError("Global.UpstreamTimeout", "必须大于 0")
	}

	templateIDs := map[string]struct{}{}
	for _, t := range c.Templates {
		if strings.TrimSpace(t.Name) == "" {
			return newFieldError("Template[].Name", "不能为空")
		}
		tpl, err := t.Build()
		if err != nil {
			return err
		}
		key := tpl.ID.String()
		if _, exists := templateIDs[key]; exists {
			return newFieldError(templateField(t.Name, "ID"), "重复")
		}
		templateIDs[key] = struct{}{}
	}

	nodeIDs := map[string]struct{}{}
	for _, n := range c.Nodes {
		if strings.TrimSpace(n.Name) == "" {
			return newFieldError("Node[].Name", "不能为空")
		}
		if strings.TrimSpace(n.ID) == "" {
			return newFieldError(nodeField(n.Name, "ID"), "不能为空")
		}
		if _, exists := nodeIDs[strings.ToLower(n.ID)]; exists {
			return newFieldError(nodeField(n.Name, "ID"), "重复")
		}
		nodeIDs[strings.ToLower(n.ID)] = struct{}{}
	}

	if len(c.Providers) == 0 {
		return errors.New("至少需要配置一个 Provider")
	}

	seenNames := map[string]struct{}{}
	seenPrefixes := map[string]struct{}{}
	for i := range c.Providers {
		p := &c.Providers[i]
		if p.Name == "" {
			return newFieldError("Provider[].Name", "不能为空")
		}
		if _, exists := seenNames[p.Name]; exists {
			return newFieldError(providerField(p.Name, "Name"), "重复")
		}
		seenNames[p.Name] = struct{}{}

		if p.Type == "" {
			return newFieldError(providerField(p.Name, "Type"), "不能为空")
		}
		if p.KeyPrefix == "" {
			return newFieldError(providerField(p.Name, "KeyPrefix"), "不能为空")
		}
		if _, exists := seenPrefixes[p.KeyPrefix]; exists {
			return newFieldError(providerField(p.Name, "KeyPrefix"), "与其他 Provider 重复")
		}
		seenPrefixes[p.KeyPrefix] = struct{}{}

		if p.TemplateID == "" {
			return newFieldError(providerField(p.Name, "TemplateID"), "不能为空")
		}
		if p.ParentTemplateID == "" {
			return newFieldError(providerField(p.Name, "ParentTemplateID"), "不能为空")
		}
		if _, _, err := p.IDs(); err != nil {
			return err
		}
		if err := validateEndpoint(p.Endpoint); err != nil {
			return fmt.Errorf("%s: %w", providerField(p.Name, "Endpoint"), err)
		}
	}

	return nil
}

func validateEndpoint(raw string) error {
	if raw == "" {
		return errors.New("缺少远端地址")
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("仅支持 http/https，远端: %s", raw)
	}
	if parsed.Host == "" {
		return fmt.Errorf("远端缺少 Host: %s", raw)
	}
	return nil
}
