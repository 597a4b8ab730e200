package config

import "testing"

func TestLoadFailsWithMissingFields(t *testing.T) {
	if _, err := Load(testConfigPath(t, "missing.toml")); err == nil {
		t.Fatalf("缺失字段的配置应返回错误")
	}
}

func TestLoadFailsWithMissingFile(t *testing.T) {
	if _, err := Load(testConfigPath(t, "absent.toml")); err == nil {
		t.Fatalf("不存在的配置文件应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
UpstreamTimeout = "boom"

[[Provider]]
Name = "people"
Type = "people"
KeyPrefix = "people-api"
TemplateID = "9a7b5f7e-5a7c-4a3e-8a6c-3a2b1f0e9d22"
ParentTemplateID = "6b0c8e2e-3f4a-4a63-9d3e-0f5d7f3c2a11"
Endpoint = "https://people.example.com/api"
`
	path := writeTempConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsNumericDuration(t *testing.T) {
	cfg := `
UpstreamTimeout = 5
MappingStore = "memory"

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
	if loaded.Global.UpstreamTimeout.DurationValue().Seconds() != 5 {
		t.Fatalf("纯数字应按秒解析: %v", loaded.Global.UpstreamTimeout.DurationValue())
	}
}
