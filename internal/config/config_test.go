package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/treebridge/treebridge/internal/tree"
)

func TestLoadWithDefaults(t *testing.T) {
	cfgPath := testConfigPath(t, "valid.toml")

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.Database != "master" {
		t.Fatalf("Database 应该自动填充默认值, got %q", cfg.Global.Database)
	}
	if cfg.Global.UpstreamTimeout.DurationValue() != 10*time.Second {
		t.Fatalf("UpstreamTimeout 应当被解析")
	}
	if len(cfg.Global.Languages) != 2 || cfg.Global.TreeLanguages()[1] != "da" {
		t.Fatalf("Languages 解析错误: %v", cfg.Global.Languages)
	}
	if len(cfg.Templates) != 2 || len(cfg.Nodes) != 2 || len(cfg.Providers) != 1 {
		t.Fatalf("段落数量不符: %+v", cfg)
	}
	if cfg.Providers[0].Type != "people" {
		t.Fatalf("Type 应当被规范化为小写, got %q", cfg.Providers[0].Type)
	}
}

func TestLoadResolvesSQLitePath(t *testing.T) {
	cfg := `
MappingStore = "sqlite"
MappingPath = "./data/idtable.db"

[[Provider]]
Name = "people"
Type = "people"
KeyPrefix = "people-api"
TemplateID = "9a7b5f7e-5a7c-4a3e-8a6c-3a2b1f0e9d22"
ParentTemplateID = "6b0c8e2e-3f4a-4a63-9d3e-0f5d7f3c2a11"
Endpoint = "https://people.example.com/api"
`
	loaded, err := Load(writeTempConfig(t, cfg))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if !filepath.IsAbs(loaded.Global.MappingPath) {
		t.Fatalf("MappingPath 应转换为绝对路径: %s", loaded.Global.MappingPath)
	}
	if loaded.Global.Languages[0] != "en" {
		t.Fatalf("Languages 默认应为 en")
	}
}

func TestValidateRejectsBadProvider(t *testing.T) {
	cfgPath := testConfigPath(t, "missing.toml")

	_, err := Load(cfgPath)
	if err == nil {
		t.Fatalf("不合法的配置应返回错误")
	}
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) || fieldErr.Field != "Provider[people].KeyPrefix" {
		t.Fatalf("应当指出缺失的 KeyPrefix, got %v", err)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestProviderRequiredFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(p *ProviderConfig)
	}{
		{"missing name", func(p *ProviderConfig) { p.Name = "" }},
		{"missing type", func(p *ProviderConfig) { p.Type = "" }},
		{"missing prefix", func(p *ProviderConfig) { p.KeyPrefix = "" }},
		{"missing template", func(p *ProviderConfig) { p.TemplateID = "" }},
		{"bad template", func(p *ProviderConfig) { p.TemplateID = "not-a-uuid" }},
		{"missing parent template", func(p *ProviderConfig) { p.ParentTemplateID = "" }},
		{"missing endpoint", func(p *ProviderConfig) { p.Endpoint = "" }},
		{"bad endpoint scheme", func(p *ProviderConfig) { p.Endpoint = "ftp://example.com" }},
		{"endpoint without host", func(p *ProviderConfig) { p.Endpoint = "http:///people" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg.Providers[0])
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestValidateRejectsDuplicates(t *testing.T) {
	cfg := validConfig()
	dup := cfg.Providers[0]
	cfg.Providers = append(cfg.Providers, dup)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("重复的 Provider 名称应报错")
	}

	cfg = validConfig()
	dup = cfg.Providers[0]
	dup.Name = "other"
	cfg.Providers = append(cfg.Providers, dup)
	if err := cfg.Validate(); err == nil {
		t.Fatalf("重复的 KeyPrefix 应报错")
	}
}

func TestValidateGlobalSettings(t *testing.T) {
	testCases := map[string]func(g *GlobalConfig){
		"mapping store": func(g *GlobalConfig) { g.MappingStore = "redis" },
		"mapping path":  func(g *GlobalConfig) { g.MappingStore = MappingStoreSQLite; g.MappingPath = "" },
		"languages":     func(g *GlobalConfig) { g.Languages = nil },
		"log level":     func(g *GlobalConfig) { g.LogLevel = "loud" },
		"timeout":       func(g *GlobalConfig) { g.UpstreamTimeout = 0 },
	}
	for name, mutate := range testCases {
		t.Run(name, func(t *testing.T) {
			cfg := validConfig()
			mutate(&cfg.Global)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestTemplateBuildDerivesStableFieldIDs(t *testing.T) {
	explicit := "0d9e0f1a-2b3c-4d5e-8f70-112233445566"
	tc := TemplateConfig{
		ID:     "9a7b5f7e-5a7c-4a3e-8a6c-3a2b1f0e9d22",
		Name:   "Person",
		Fields: []string{"First Name", "Description=" + explicit, "__Sortorder"},
	}
	first, err := tc.Build()
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	second, _ := tc.Build()
	if first.Fields[0].ID != second.Fields[0].ID {
		t.Fatalf("派生字段 ID 应当稳定")
	}
	if first.Fields[0].ID != DeriveFieldID(first.ID, "first name") {
		t.Fatalf("派生字段 ID 应与大小写无关")
	}
	if first.Fields[1].ID.String() != explicit {
		t.Fatalf("显式字段 ID 应被保留")
	}
	if !first.Fields[2].Standard || len(first.DataFields()) != 2 {
		t.Fatalf("__ 前缀字段应视为系统字段")
	}

	tc.Fields = append(tc.Fields, "first name")
	if _, err := tc.Build(); err == nil {
		t.Fatalf("重复字段应报错")
	}
}

type templateMap map[tree.ID]*tree.Template

func (m templateMap) GetTemplate(id tree.ID) (*tree.Template, bool) {
	tpl, ok := m[id]
	return tpl, ok
}

func TestNodeConfigResolvesFieldNames(t *testing.T) {
	tpl, err := TemplateConfig{ID: "6b0c8e2e-3f4a-4a63-9d3e-0f5d7f3c2a11", Name: "Folder", Fields: []string{"Title"}}.Build()
	if err != nil {
		t.Fatalf("Build 返回错误: %v", err)
	}
	nc := NodeConfig{
		ID:         "2a3b4c5d-6e7f-4801-9234-56789abcdef0",
		Name:       "People",
		TemplateID: tpl.ID.String(),
		ParentID:   "1f2e3d4c-5b6a-4789-8abc-def012345678",
		Fields:     map[string]string{"title": "People"},
	}
	node, err := nc.MemoryNode(templateMap{tpl.ID: tpl})
	if err != nil {
		t.Fatalf("MemoryNode 返回错误: %v", err)
	}
	if node.Fields[""][tpl.Fields[0].ID] != "People" {
		t.Fatalf("字段值应按名称解析: %+v", node.Fields)
	}

	nc.Fields = map[string]string{"missing": "x"}
	if _, err := nc.MemoryNode(templateMap{tpl.ID: tpl}); err == nil {
		t.Fatalf("未知字段应报错")
	}
}

func TestResolvePathPrefersFlag(t *testing.T) {
	t.Setenv(EnvConfigPath, "/etc/treebridge/env.toml")
	if got := ResolvePath("flag.toml"); got != "flag.toml" {
		t.Fatalf("--config 应优先, got %s", got)
	}
	if got := ResolvePath(""); got != "/etc/treebridge/env.toml" {
		t.Fatalf("应使用环境变量, got %s", got)
	}
	t.Setenv(EnvConfigPath, "")
	if got := ResolvePath(""); got != "config.toml" {
		t.Fatalf("应回退默认路径, got %s", got)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:      5000,
			LogLevel:        "info",
			Database:        "master",
			Languages:       []string{"en"},
			MappingStore:    MappingStoreMemory,
			UpstreamTimeout: Duration(time.Second),
		},
		Providers: []ProviderConfig{
			{
				Name:             "people",
				Type:             "people",
				KeyPrefix:        "people-api",
				TemplateID:       "9a7b5f7e-5a7c-4a3e-8a6c-3a2b1f0e9d22",
				ParentTemplateID: "6b0c8e2e-3f4a-4a63-9d3e-0f5d7f3c2a11",
				Endpoint:         "https://people.example.com/api",
			},
		},
	}
}
