package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/sirupsen/logrus"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/idtable"
	"github.com/treebridge/treebridge/internal/provider"
	"github.com/treebridge/treebridge/internal/tree"
)

// ProviderRoute 将 Provider 配置与派生属性（解析后的模板 ID、远端 URL、实例）聚合在一起，
// 供数据库组装与诊断接口复用，避免重复解析配置。
type ProviderRoute struct {
	// Config 是用户在 config.toml 中声明的 Provider 字段副本。
	Config config.ProviderConfig
	// Kind 是注册表中解析出的 provider 类型。
	Kind provider.Kind
	// TemplateID/ParentTemplateID 决定准入判断。
	TemplateID       tree.ID
	ParentTemplateID tree.ID
	EndpointURL      *url.URL
	Provider         tree.Provider
}

// ProviderRegistry 按名称与键前缀索引已构建的 provider，保持配置顺序。
type ProviderRegistry struct {
	byName   map[string]*ProviderRoute
	byPrefix map[string]*ProviderRoute
	ordered  []*ProviderRoute
}

// ProviderDeps 是构建 provider 时共享的运行时依赖。
type ProviderDeps struct {
	Minter *idtable.Minter
	Client *http.Client
	Logger *logrus.Logger
}

// NewProviderRegistry 根据配置构建全部 provider。调用方应在启动阶段创建一次并复用。
func NewProviderRegistry(cfg *config.Config, deps ProviderDeps) (*ProviderRegistry, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if deps.Minter == nil {
		return nil, errors.New("mapping table is required")
	}

	registry := &ProviderRegistry{
		byName:   make(map[string]*ProviderRoute, len(cfg.Providers)),
		byPrefix: make(map[string]*ProviderRoute, len(cfg.Providers)),
	}

	for _, pc := range cfg.Providers {
		if _, exists := registry.byName[pc.Name]; exists {
			return nil, fmt.Errorf("duplicate provider name %s", pc.Name)
		}
		if _, exists := registry.byPrefix[pc.KeyPrefix]; exists {
			return nil, fmt.Errorf("duplicate key prefix %s", pc.KeyPrefix)
		}

		route, err := buildProviderRoute(pc, deps)
		if err != nil {
			return nil, err
		}
		registry.byName[pc.Name] = route
		registry.byPrefix[pc.KeyPrefix] = route
		registry.ordered = append(registry.ordered, route)
	}

	return registry, nil
}

func buildProviderRoute(pc config.ProviderConfig, deps ProviderDeps) (*ProviderRoute, error) {
	kind, ok := provider.Resolve(pc.Type)
	if !ok {
		return nil, fmt.Errorf("provider %s: %w: %q", pc.Name, provider.ErrUnknownType, pc.Type)
	}
	templateID, parentTemplateID, err := pc.IDs()
	if err != nil {
		return nil, err
	}
	endpoint, err := url.Parse(pc.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint for provider %s: %w", pc.Name, err)
	}

	instance, err := provider.Build(kind.Key, provider.Options{
		Name:             pc.Name,
		KeyPrefix:        pc.KeyPrefix,
		TemplateID:       templateID,
		ParentTemplateID: parentTemplateID,
		Endpoint:         pc.Endpoint,
		Minter:           deps.Minter,
		Client:           deps.Client,
		Logger:           deps.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &ProviderRoute{
		Config:           pc,
		Kind:             kind,
		TemplateID:       templateID,
		ParentTemplateID: parentTemplateID,
		EndpointURL:      endpoint,
		Provider:         instance,
	}, nil
}

// Lookup 按名称查找 provider。
func (r *ProviderRegistry) Lookup(name string) (*ProviderRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.byName[name]
	return route, ok
}

// LookupPrefix 按映射表键前缀查找 provider。
func (r *ProviderRegistry) LookupPrefix(prefix string) (*ProviderRoute, bool) {
	if r == nil {
		return nil, false
	}
	route, ok := r.byPrefix[prefix]
	return route, ok
}

// List 返回当前注册的 ProviderRoute 列表（按配置定义的顺序），用于诊断输出。
func (r *ProviderRegistry) List() []ProviderRoute {
	if r == nil || len(r.ordered) == 0 {
		return nil
	}
	result := make([]ProviderRoute, len(r.ordered))
	for i, route := range r.ordered {
		result[i] = *route
	}
	return result
}

// Providers 返回按配置顺序排列的 provider 实例。
func (r *ProviderRegistry) Providers() []tree.Provider {
	if r == nil {
		return nil
	}
	out := make([]tree.Provider, 0, len(r.ordered))
	for _, route := range r.ordered {
		out = append(out, route.Provider)
	}
	return out
}
