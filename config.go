package main

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is loaded from defaults, an optional YAML file, the environment
// (.env included) and command flags, in increasing priority.
type Config struct {
	HTTP       HTTPSettings       `mapstructure:"http"`
	Log        LogSettings        `mapstructure:"log"`
	Monitor    MonitorSettings    `mapstructure:"monitor"`
	Dashboard  DashboardSettings  `mapstructure:"dashboard"`
	Redis      RedisSettings      `mapstructure:"redis"`
	ClickHouse ClickHouseSettings `mapstructure:"clickhouse"`
}

type HTTPSettings struct {
	Port int `mapstructure:"port"`
}

type LogSettings struct {
	Level string `mapstructure:"level"`
}

type MonitorSettings struct {
	IntervalMS int    `mapstructure:"interval_ms"`
	Assets     string `mapstructure:"assets"`
	Seed       int64  `mapstructure:"seed"`
}

type DashboardSettings struct {
	// RefreshMS is the page's market poll period; 0 disables it.
	RefreshMS int  `mapstructure:"refresh_ms"`
	DismissMS int  `mapstructure:"dismiss_ms"`
	Strict    bool `mapstructure:"strict"`
	Prefill   bool `mapstructure:"prefill"`
}

type RedisSettings struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"`
}

type ClickHouseSettings struct {
	Enabled     bool   `mapstructure:"enabled"`
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Pass        string `mapstructure:"pass"`
	DB          string `mapstructure:"db"`
	Secure      bool   `mapstructure:"secure"`
	AsyncInsert bool   `mapstructure:"async_insert"`
	BatchSize   int    `mapstructure:"batch_size"`
	FlushMS     int    `mapstructure:"flush_ms"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", 8092)
	v.SetDefault("log.level", "info")

	v.SetDefault("monitor.interval_ms", 5000)
	v.SetDefault("monitor.assets", "")
	v.SetDefault("monitor.seed", 0)

	v.SetDefault("dashboard.refresh_ms", 60000)
	v.SetDefault("dashboard.dismiss_ms", 10000)
	v.SetDefault("dashboard.strict", false)
	v.SetDefault("dashboard.prefill", false)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.channel", "finhacker.monitor")

	v.SetDefault("clickhouse.enabled", false)
	v.SetDefault("clickhouse.host", "localhost")
	v.SetDefault("clickhouse.port", 9000)
	v.SetDefault("clickhouse.user", "default")
	v.SetDefault("clickhouse.pass", "")
	v.SetDefault("clickhouse.db", "finhacker")
	v.SetDefault("clickhouse.secure", false)
	v.SetDefault("clickhouse.async_insert", true)
	v.SetDefault("clickhouse.batch_size", 1000)
	v.SetDefault("clickhouse.flush_ms", 1000)
}

var configKeys = []string{
	"http.port", "log.level",
	"monitor.interval_ms", "monitor.assets", "monitor.seed",
	"dashboard.refresh_ms", "dashboard.dismiss_ms", "dashboard.strict", "dashboard.prefill",
	"redis.enabled", "redis.addr", "redis.password", "redis.db", "redis.channel",
	"clickhouse.enabled", "clickhouse.host", "clickhouse.port", "clickhouse.user", "clickhouse.pass",
	"clickhouse.db", "clickhouse.secure", "clickhouse.async_insert", "clickhouse.batch_size", "clickhouse.flush_ms",
}

// newViper returns a viper with defaults set and env lookups bound. Env
// names are the upper-cased keys with "." replaced by "_" (CLICKHOUSE_HOST).
func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range configKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// loadConfig reads .env, then file (if set), and decodes v.
func loadConfig(v *viper.Viper, file string) (*Config, error) {
	_ = godotenv.Load()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", file, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port out of range: %d", c.HTTP.Port)
	}
	if c.Monitor.IntervalMS <= 0 {
		return fmt.Errorf("monitor.interval_ms must be > 0")
	}
	if c.Dashboard.RefreshMS < 0 {
		return fmt.Errorf("dashboard.refresh_ms must be >= 0")
	}
	if c.Dashboard.DismissMS <= 0 {
		return fmt.Errorf("dashboard.dismiss_ms must be > 0")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr required when redis is enabled")
	}
	return nil
}
