// Package config 全局配置加载与管理。
//
// 所有字段通过 struct tag 声明环境变量映射:
//
//	`env:"VAR_NAME" default:"value" min:"0"`
//
// Load() 使用反射自动填充，无需手动逐行赋值。
package config

import (
	"time"

	"github.com/multi-agent/reasonspace/pkg/util"
)

// Config 应用全局配置，字段名与 .env 变量一一对应。
type Config struct {
	// Agent 流式后端
	AgentStreamURL string `env:"AGENT_STREAM_URL" default:"ws://127.0.0.1:8721/stream"`

	// 会话双层超时 (秒): 首帧 T1 < 总时长 T2
	FirstTokenTimeoutSec int `env:"FIRST_TOKEN_TIMEOUT_SEC" default:"30" min:"1"`
	StreamTimeoutSec     int `env:"STREAM_TIMEOUT_SEC" default:"240" min:"1"`

	// 伴随面板分区排序窗口 (秒)
	SectionRecentWindowSec int `env:"SECTION_RECENT_WINDOW_SEC" default:"5" min:"1"`
	SectionStaleWindowSec  int `env:"SECTION_STALE_WINDOW_SEC" default:"60" min:"1"`

	// 摘要收敛轮询
	BriefPollIntervalSec int `env:"BRIEF_POLL_INTERVAL_SEC" default:"3" min:"1"`
	BriefPollStableTicks int `env:"BRIEF_POLL_STABLE_TICKS" default:"3" min:"1"`
	BriefPollMaxFailures int `env:"BRIEF_POLL_MAX_FAILURES" default:"3" min:"1"`

	// PostgreSQL
	PostgresConnStr        string `env:"POSTGRES_CONNECTION_STRING"`
	PostgresSchema         string `env:"POSTGRES_SCHEMA" default:"public"`
	PostgresPoolMinSize    int    `env:"POSTGRES_POOL_MIN_SIZE" default:"1" min:"1"`
	PostgresPoolMaxSize    int    `env:"POSTGRES_POOL_MAX_SIZE" default:"10" min:"1"`
	PostgresPoolTimeoutSec int    `env:"POSTGRES_POOL_TIMEOUT_SEC" default:"10" min:"1"`

	// 伴随面板 HTTP/SSE 服务
	PanelListenAddr string `env:"PANEL_LISTEN_ADDR" default:"127.0.0.1:8722"`

	// 日志
	LogLevel string `env:"LOG_LEVEL" default:"INFO"`
	LogDir   string `env:"LOG_DIR" default:"logs"`
}

// Load 从环境变量加载配置 (通过反射读取 struct tag)。
func Load() *Config {
	var cfg Config
	util.LoadFromEnv(&cfg)
	return &cfg
}

// FirstTokenTimeout 首帧超时 (T1)。
func (c *Config) FirstTokenTimeout() time.Duration {
	return time.Duration(c.FirstTokenTimeoutSec) * time.Second
}

// StreamTimeout 流总时长超时 (T2)。T2 必须大于 T1, 配置颠倒时以 T1+1s 兜底。
func (c *Config) StreamTimeout() time.Duration {
	t1 := c.FirstTokenTimeout()
	t2 := time.Duration(c.StreamTimeoutSec) * time.Second
	if t2 <= t1 {
		return t1 + time.Second
	}
	return t2
}

// SectionRecentWindow 分区"最近更新"加分窗口。
func (c *Config) SectionRecentWindow() time.Duration {
	return time.Duration(c.SectionRecentWindowSec) * time.Second
}

// SectionStaleWindow 分区"过期"减分窗口。
func (c *Config) SectionStaleWindow() time.Duration {
	return time.Duration(c.SectionStaleWindowSec) * time.Second
}

// BriefPollInterval 摘要收敛轮询间隔。
func (c *Config) BriefPollInterval() time.Duration {
	return time.Duration(c.BriefPollIntervalSec) * time.Second
}
