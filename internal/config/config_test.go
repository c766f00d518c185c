package config

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/dp-cache/filecache/cache"
)

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(fixture("valid.toml"))
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if got := cfg.Global.DefaultTTL.DurationValue(); got != 30*time.Minute {
		t.Fatalf("DefaultTTL 应解析为 30m，得到 %v", got)
	}
	if cfg.Global.DefaultFormat != cache.FormatJSON {
		t.Fatalf("DefaultFormat 应为 json，得到 %s", cfg.Global.DefaultFormat)
	}
	if !filepath.IsAbs(cfg.Global.StoragePath) {
		t.Fatalf("StoragePath 应被转换为绝对路径: %s", cfg.Global.StoragePath)
	}
	if cfg.Global.IndexFile != cache.DefaultIndexFile {
		t.Fatalf("IndexFile 应使用默认值，得到 %q", cfg.Global.IndexFile)
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `StoragePath = "./data"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if cfg.Global.ListenPort != 5000 {
		t.Fatalf("ListenPort 默认应为 5000，得到 %d", cfg.Global.ListenPort)
	}
	if cfg.Global.DefaultTTL.DurationValue() != time.Hour {
		t.Fatalf("DefaultTTL 默认应为 1h，得到 %v", cfg.Global.DefaultTTL.DurationValue())
	}
	if cfg.Global.DefaultFormat != cache.DefaultFormat {
		t.Fatalf("DefaultFormat 默认应为 %s，得到 %s", cache.DefaultFormat, cfg.Global.DefaultFormat)
	}
	if cfg.Global.LogLevel != "info" {
		t.Fatalf("LogLevel 默认应为 info，得到 %s", cfg.Global.LogLevel)
	}
}

func TestLoadRejectsUnsupportedFormat(t *testing.T) {
	_, err := Load(fixture("invalid.toml"))
	var fieldErr FieldError
	if !errors.As(err, &fieldErr) {
		t.Fatalf("期望 FieldError，得到 %v", err)
	}
	if fieldErr.Field != "Global.DefaultFormat" {
		t.Fatalf("字段路径错误: %s", fieldErr.Field)
	}
}

func TestValidateEnforcesListenPortRange(t *testing.T) {
	cfg := validConfig()
	cfg.Global.ListenPort = 70000
	if err := cfg.Validate(); err == nil {
		t.Fatalf("ListenPort 超出范围应当报错")
	}
}

func TestValidateRejectsBadFields(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*GlobalConfig)
		field  string
	}{
		{"empty storage", func(g *GlobalConfig) { g.StoragePath = " " }, "Global.StoragePath"},
		{"index with path", func(g *GlobalConfig) { g.IndexFile = "../index.html" }, "Global.IndexFile"},
		{"zero ttl", func(g *GlobalConfig) { g.DefaultTTL = 0 }, "Global.DefaultTTL"},
		{"bad level", func(g *GlobalConfig) { g.LogLevel = "loud" }, "Global.LogLevel"},
		{"bad format", func(g *GlobalConfig) { g.DefaultFormat = "xml" }, "Global.DefaultFormat"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(&cfg.Global)
			err := cfg.Validate()
			var fieldErr FieldError
			if !errors.As(err, &fieldErr) {
				t.Fatalf("expected FieldError, got %v", err)
			}
			if fieldErr.Field != tc.field {
				t.Fatalf("expected field %s, got %s", tc.field, fieldErr.Field)
			}
		})
	}
}

func TestValidateAllowsEmptyIndexFile(t *testing.T) {
	cfg := validConfig()
	cfg.Global.IndexFile = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("空 IndexFile 表示不写占位文件，不应报错: %v", err)
	}
}

func TestDurationUnmarshalText(t *testing.T) {
	testCases := []struct {
		raw  string
		want time.Duration
	}{
		{"90s", 90 * time.Second},
		{"3600", time.Hour},
		{"0x10", 16 * time.Second},
		{"", 0},
		{"-5s", -5 * time.Second},
	}
	for _, tc := range testCases {
		var d Duration
		if err := d.UnmarshalText([]byte(tc.raw)); err != nil {
			t.Fatalf("解析 %q 失败: %v", tc.raw, err)
		}
		if d.DurationValue() != tc.want {
			t.Fatalf("解析 %q 期望 %v，得到 %v", tc.raw, tc.want, d.DurationValue())
		}
	}

	var d Duration
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Fatalf("非法 Duration 应返回错误")
	}
}

func TestStoreOptionsBuildStore(t *testing.T) {
	cfg := validConfig()
	cfg.Global.StoragePath = t.TempDir()
	cfg.Global.IndexFile = "placeholder.html"

	store, err := cache.NewStore(cfg.Global.StoragePath, cfg.StoreOptions(nil)...)
	if err != nil {
		t.Fatalf("构建 Store 失败: %v", err)
	}
	if err := store.Set("settings_page", "ok", time.Minute, cfg.Global.DefaultFormat); err != nil {
		t.Fatalf("写入失败: %v", err)
	}
	if _, err := store.Inspect("settings_page", cfg.Global.DefaultFormat); err != nil {
		t.Fatalf("Inspect 失败: %v", err)
	}
	if _, err := cache.NewStore(cfg.Global.StoragePath, cfg.StoreOptions(nil)...); err != nil {
		t.Fatalf("重复构建 Store 失败: %v", err)
	}
}

func validConfig() *Config {
	return &Config{
		Global: GlobalConfig{
			ListenPort:    5000,
			LogLevel:      "info",
			StoragePath:   "./data",
			IndexFile:     cache.DefaultIndexFile,
			DefaultTTL:    Duration(time.Hour),
			DefaultFormat: cache.FormatYAML,
		},
	}
}
