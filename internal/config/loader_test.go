package config

import "testing"

func TestLoadFailsWhenFileMissing(t *testing.T) {
	if _, err := Load(fixture("does-not-exist.toml")); err == nil {
		t.Fatalf("配置文件不存在时应返回错误")
	}
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	cfg := `
LogLevel = "info"
StoragePath = "./data"
DefaultTTL = "boom"
`
	path := writeConfig(t, cfg)
	if _, err := Load(path); err == nil {
		t.Fatalf("无效 Duration 应失败")
	}
}

func TestLoadAcceptsIntegerSeconds(t *testing.T) {
	path := writeConfig(t, `
StoragePath = "./data"
DefaultTTL = 120
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load 返回错误: %v", err)
	}
	if got := cfg.Global.DefaultTTL.DurationValue().Seconds(); got != 120 {
		t.Fatalf("DefaultTTL 期望 120s，得到 %vs", got)
	}
}
