package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// ProviderFields 提供 provider 名称、键前缀与动作字段，供数据提供者日志复用。
func ProviderFields(provider, prefix, action string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"provider":   provider,
		"key_prefix": prefix,
	}
}

// RequestFields 提供请求 ID、方法与路径字段，供 HTTP 访问日志复用。
func RequestFields(requestID, method, path string, status int) logrus.Fields {
	return logrus.Fields{
		"request_id": requestID,
		"method":     method,
		"path":       path,
		"status":     status,
	}
}
