package config

import (
	"time"
)

type Config struct {
	Log struct {
		Context bool   `mapstructure:"context"`
		Level   string `mapstructure:"level"`
	} `mapstructure:"log"`

	Mirror struct {
		RootURL      string `mapstructure:"root_url"`
		Destination  string `mapstructure:"destination"`
		ConvertLinks bool   `mapstructure:"convert_links"`
	} `mapstructure:"mirror"`

	Core struct {
		Worker   uint32 `mapstructure:"worker"`
		MaxDepth int    `mapstructure:"max_depth"` // 0表示不限制
		MaxPages int    `mapstructure:"max_pages"` // 0表示不限制
	} `mapstructure:"core"`

	Downloader struct {
		Timeout      time.Duration `mapstructure:"timeout"`
		Retry        uint32        `mapstructure:"retry"`
		RetryBackoff time.Duration `mapstructure:"retry_backoff"`
		UserAgent    string        `mapstructure:"user_agent"`
		MaxBodyBytes int64         `mapstructure:"max_body_bytes"`
	} `mapstructure:"downloader"`

	Ledger struct {
		Driver string `mapstructure:"driver"` // none | file | postgres
		Path   string `mapstructure:"path"`
	} `mapstructure:"ledger"`

	Database struct {
		URL string `mapstructure:"url"`
	} `mapstructure:"database"`
}

// Defaults 所有配置项的默认值，同时用于viper的环境变量绑定
func Defaults() map[string]interface{} {
	return map[string]interface{}{
		"log.context":               false,
		"log.level":                 "info",
		"mirror.root_url":           "",
		"mirror.destination":        "",
		"mirror.convert_links":      false,
		"core.worker":               4,
		"core.max_depth":            0,
		"core.max_pages":            0,
		"downloader.timeout":        "30s",
		"downloader.retry":          3,
		"downloader.retry_backoff":  "500ms",
		"downloader.user_agent":     "sitemirror/0.1",
		"downloader.max_body_bytes": 50 * 1024 * 1024,
		"ledger.driver":             "none",
		"ledger.path":               "",
		"database.url":              "",
	}
}
