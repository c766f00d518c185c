package config

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dp-cache/filecache/cache"
)

// Validate 针对语义级别做进一步校验，防止非法配置启动服务。
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("配置为空")
	}

	g := c.Global
	if g.ListenPort <= 0 || g.ListenPort > 65535 {
		return newFieldError(globalField("ListenPort"), "必须在 1-65535")
	}
	if g.LogLevel != "" {
		if _, err := logrus.ParseLevel(g.LogLevel); err != nil {
			return newFieldError(globalField("LogLevel"), "无法识别的日志级别: "+g.LogLevel)
		}
	}
	if strings.TrimSpace(g.StoragePath) == "" {
		return newFieldError(globalField("StoragePath"), "不能为空")
	}
	if strings.ContainsAny(g.IndexFile, `/\`) || g.IndexFile == "." || g.IndexFile == ".." {
		return newFieldError(globalField("IndexFile"), "只能是文件名，不允许包含路径")
	}
	if g.DefaultTTL.DurationValue() <= 0 {
		return newFieldError(globalField("DefaultTTL"), "必须大于 0")
	}
	if _, err := cache.LookupCodec(g.DefaultFormat); err != nil {
		return newFieldError(globalField("DefaultFormat"), "仅支持 "+strings.Join(cache.Formats(), "|"))
	}

	return nil
}

// StoreOptions 将配置映射为 cache.Store 的构造参数。
func (c *Config) StoreOptions(logger logrus.FieldLogger) []cache.Option {
	opts := []cache.Option{cache.WithIndexFile(c.Global.IndexFile)}
	if logger != nil {
		opts = append(opts, cache.WithLogger(logger))
	}
	return opts
}
