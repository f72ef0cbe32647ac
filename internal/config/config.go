package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jengzang/simplegis/internal/database"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "GIS_"

// Config 应用配置
type Config struct {
	Port string `koanf:"port"`

	// 数据源
	SourceType      string `koanf:"source_type"`
	Source          string `koanf:"source"` // 文件路径或 DSN
	Writeable       bool   `koanf:"writeable"`
	MaxRows         int    `koanf:"max_rows"`
	SQLiteCacheSize int    `koanf:"sqlite_cache_size"`
	CSVDelimiter    string `koanf:"csv_delimiter"`
	CSVHeader       bool   `koanf:"csv_header"`
	CSVNumeric      bool   `koanf:"csv_numeric"`
	PGMaxOpenConns  int    `koanf:"pg_max_open_conns"`
	PGMaxIdleConns  int    `koanf:"pg_max_idle_conns"`

	// 鉴权与限流
	JWTSecret  string        `koanf:"jwt_secret"`
	RateLimit  int           `koanf:"rate_limit"`
	RateWindow time.Duration `koanf:"rate_window"`

	// 结果缓存
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	CacheTTL      time.Duration `koanf:"cache_ttl"`

	Metrics   bool   `koanf:"metrics"`
	DebugSQL  bool   `koanf:"debug_sql"`
	LogLevel  string `koanf:"log_level"`
	LogFormat string `koanf:"log_format"`
}

// New 返回默认配置
func New() *Config {
	return &Config{
		Port:            ":6700",
		SourceType:      database.TypeSQLite,
		MaxRows:         100000,
		SQLiteCacheSize: database.DefaultCacheSize,
		CSVDelimiter:    ",",
		CSVHeader:       true,
		CSVNumeric:      true,
		PGMaxOpenConns:  10,
		PGMaxIdleConns:  5,
		RateWindow:      time.Minute,
		Metrics:         true,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load 加载配置
// 优先级（低 -> 高）：默认值、GIS_CONFIG 指定的 YAML 文件、GIS_ 前缀环境变量
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv(EnvPrefix + "CONFIG"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// GIS_MAX_ROWS -> max_rows
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	cfg := New()
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("%w: source must not be empty", ErrInvalidConfig)
	}
	switch c.SourceType {
	case database.TypeSQLite, database.TypePostgres, database.TypeCSV:
	default:
		return fmt.Errorf("%w: unknown source_type %q", ErrInvalidConfig, c.SourceType)
	}
	if c.MaxRows < 0 {
		return fmt.Errorf("%w: max_rows must not be negative", ErrInvalidConfig)
	}
	if c.RateLimit < 0 || (c.RateLimit > 0 && c.RateWindow <= 0) {
		return fmt.Errorf("%w: rate_limit needs a positive rate_window", ErrInvalidConfig)
	}
	if d := c.Delimiter(); c.SourceType == database.TypeCSV && len([]rune(d)) != 1 {
		return fmt.Errorf("%w: csv_delimiter must be one character", ErrInvalidConfig)
	}
	return nil
}

// Addr 返回监听地址，纯端口号补全为 ":port"
func (c *Config) Addr() string {
	if strings.Contains(c.Port, ":") {
		return c.Port
	}
	return ":" + c.Port
}

// Delimiter 返回 CSV 分隔符，支持 "tab" 与 `\t`
func (c *Config) Delimiter() string {
	switch c.CSVDelimiter {
	case "tab", `\t`:
		return "\t"
	case "":
		return ","
	}
	return c.CSVDelimiter
}

// CacheEnabled 是否启用结果缓存
func (c *Config) CacheEnabled() bool {
	return c.RedisAddr != "" && c.CacheTTL > 0
}

// Database 转换为数据源配置
func (c *Config) Database() database.Config {
	return database.Config{
		Type:         c.SourceType,
		Path:         c.Source,
		ReadOnly:     !c.Writeable,
		CacheSize:    c.SQLiteCacheSize,
		MaxOpenConns: c.PGMaxOpenConns,
		MaxIdleConns: c.PGMaxIdleConns,
		CSV: database.CSVOptions{
			Delimiter: c.Delimiter(),
			Header:    c.CSVHeader,
			Numeric:   c.CSVNumeric,
		},
	}
}
