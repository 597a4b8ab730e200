package main

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/treebridge/treebridge/internal/config"
	"github.com/treebridge/treebridge/internal/logging"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "--check-config"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" || !opts.checkOnly {
		t.Fatalf("flag 应高于环境变量，得到 %+v", opts)
	}
}

func TestParseCLIFlagsDefaultPath(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")
	opts, err := parseCLIFlags(nil)
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "config.toml" {
		t.Fatalf("默认应为 config.toml，得到 %s", opts.configPath)
	}
	if _, err := parseCLIFlags([]string{"--unknown"}); err == nil {
		t.Fatalf("未知参数应返回错误")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d (stderr=%s)", code, stdErrBuffer().String())
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunCheckConfigRejectsUnknownProviderType(t *testing.T) {
	configPath := writeConfigFile(t, `
MappingStore = "memory"

[[Provider]]
Name = "ldap"
Type = "ldap"
KeyPrefix = "ldap"
TemplateID = "9a7b5f7e-5a7c-4a3e-8a6c-3a2b1f0e9d22"
ParentTemplateID = "6b0c8e2e-3f4a-4a63-9d3e-0f5d7f3c2a11"
Endpoint = "https://ldap.example.com/api"
`)
	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath, checkOnly: true}); code == 0 {
		t.Fatalf("未注册的 provider 类型应返回非零退出码")
	}
	if !strings.Contains(stdErrBuffer().String(), "unknown type") {
		t.Fatalf("stderr 应包含 unknown type，得到 %s", stdErrBuffer().String())
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "treebridge") {
		t.Fatalf("version 输出应包含 treebridge 标识")
	}
}

func TestBuildAppServesNativeTree(t *testing.T) {
	cfg, err := config.Load(configFixture(t, "valid.toml"))
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	app, closeTable, err := buildApp(cfg, logging.Discard())
	if err != nil {
		t.Fatalf("buildApp 失败: %v", err)
	}
	defer closeTable()

	resp, err := app.Test(httptest.NewRequest("GET", "/items/1f2e3d4c-5b6a-4789-8abc-def012345678/children", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("期望 200，得到 %d", resp.StatusCode)
	}

	resp, err = app.Test(httptest.NewRequest("GET", "/-/providers", nil))
	if err != nil {
		t.Fatalf("app.Test failed: %v", err)
	}
	if resp.StatusCode != 200 {
		t.Fatalf("诊断接口应返回 200，得到 %d", resp.StatusCode)
	}
}
