package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvConfigPath 是指定配置文件路径的环境变量，命令行 --config 优先于它。
const EnvConfigPath = "TREEBRIDGE_CONFIG"

const defaultConfigPath = "config.toml"

// ResolvePath 按 --config、环境变量、默认值的顺序决定配置文件路径。
func ResolvePath(flagValue string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvConfigPath)); v != "" {
		return v
	}
	return defaultConfigPath
}

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyGlobalDefaults(&cfg.Global)
	for i := range cfg.Providers {
		applyProviderDefaults(&cfg.Providers[i])
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.Global.MappingStore == MappingStoreSQLite {
		absPath, err := filepath.Abs(cfg.Global.MappingPath)
		if err != nil {
			return nil, fmt.Errorf("无法解析映射表路径: %w", err)
		}
		cfg.Global.MappingPath = absPath
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ListenPort", 5000)
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
	v.SetDefault("Database", "master")
	v.SetDefault("Languages", []string{"en"})
	v.SetDefault("MappingStore", MappingStoreSQLite)
	v.SetDefault("MappingPath", "./data/idtable.db")
	v.SetDefault("UpstreamTimeout", "30s")
}

func applyGlobalDefaults(g *GlobalConfig) {
	if g.ListenPort == 0 {
		g.ListenPort = 5000
	}
	if strings.TrimSpace(g.Database) == "" {
		g.Database = "master"
	}
	if len(g.Languages) == 0 {
		g.Languages = []string{"en"}
	}
	g.MappingStore = strings.ToLower(strings.TrimSpace(g.MappingStore))
	if g.MappingStore == "" {
		g.MappingStore = MappingStoreSQLite
	}
	if g.UpstreamTimeout.DurationValue() == 0 {
		g.UpstreamTimeout = Duration(30 * time.Second)
	}
}

func applyProviderDefaults(p *ProviderConfig) {
	p.Name = strings.TrimSpace(p.Name)
	p.Type = strings.ToLower(strings.TrimSpace(p.Type))
	p.KeyPrefix = strings.TrimSpace(p.KeyPrefix)
	p.Endpoint = strings.TrimSpace(p.Endpoint)
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
