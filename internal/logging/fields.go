package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// EntryFields 描述一次缓存条目访问，hit 仅对读取有意义。
func EntryFields(name, format string, hit bool) logrus.Fields {
	return logrus.Fields{
		"name":      name,
		"format":    format,
		"cache_hit": hit,
	}
}

// RequestFields 提供 HTTP 请求的公共字段。
func RequestFields(method, path, requestID string, status int) logrus.Fields {
	return logrus.Fields{
		"action":     "request",
		"method":     method,
		"path":       path,
		"request_id": requestID,
		"status":     status,
	}
}
