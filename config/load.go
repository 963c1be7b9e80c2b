package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env     string                  `yaml:"env"`
	Server  ServerConfig            `yaml:"server"`
	Engine  EngineConfig            `yaml:"engine"`
	Log     LogConfig               `yaml:"log"`
	Symbols map[string]SymbolConfig `yaml:"symbols"`
}

type ServerConfig struct {
	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr"`
}

// EngineConfig 撮合核心的运行参数。
type EngineConfig struct {
	SubscriberQueue int `yaml:"subscriberQueue"` // 每个订阅者的事件队列长度
	RecentTrades    int `yaml:"recentTrades"`    // 每个交易对保留的最近成交数
	SnapshotDepth   int `yaml:"snapshotDepth"`   // 广播/查询的默认档位深度
}

type LogConfig struct {
	Level      string   `yaml:"level"`   // debug, info, warn, error
	Format     string   `yaml:"format"`  // json 或 console
	Outputs    []string `yaml:"outputs"` // stdout, file
	OutputFile string   `yaml:"output_file"`
	ErrorFile  string   `yaml:"error_file"`
}

// SymbolConfig 保存交易对的精度/名义限制。数值用字符串表示，
// 保持十进制精度，解析发生在 Constraints() 里。
type SymbolConfig struct {
	TickSize    string `yaml:"tickSize"`
	StepSize    string `yaml:"stepSize"`
	MinQty      string `yaml:"minQty"`
	MaxQty      string `yaml:"maxQty"`
	MinNotional string `yaml:"minNotional"`
}

// Default returns the configuration used when no file is given.
func Default() AppConfig {
	return AppConfig{
		Env: "dev",
		Server: ServerConfig{
			ListenAddr:  ":8080",
			MetricsAddr: ":9100",
		},
		Engine: EngineConfig{
			SubscriberQueue: 1024,
			RecentTrades:    200,
			SnapshotDepth:   20,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Outputs: []string{"stdout"},
		},
	}
}

// Load reads YAML config from path and applies basic validation.
// Missing engine knobs fall back to the defaults.
func Load(path string) (AppConfig, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides listen addresses from
// env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ME_LISTEN_ADDR"); v != "" {
		cfg.Server.ListenAddr = v
	}
	if v := os.Getenv("ME_METRICS_ADDR"); v != "" {
		cfg.Server.MetricsAddr = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	def := Default()
	if cfg.Engine.SubscriberQueue == 0 {
		cfg.Engine.SubscriberQueue = def.Engine.SubscriberQueue
	}
	if cfg.Engine.RecentTrades == 0 {
		cfg.Engine.RecentTrades = def.Engine.RecentTrades
	}
	if cfg.Engine.SnapshotDepth == 0 {
		cfg.Engine.SnapshotDepth = def.Engine.SnapshotDepth
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = def.Server.ListenAddr
	}
	if cfg.Log.Level == "" {
		cfg.Log = def.Log
	}
}
