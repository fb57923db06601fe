package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

const dateLayout = "2006-01-02"

type Config struct {
	DB       DBConfig       `mapstructure:"db"`
	API      APIConfig      `mapstructure:"api"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Export   ExportConfig   `mapstructure:"export"`
	Lock     LockConfig     `mapstructure:"lock"`
	Log      LogConfig      `mapstructure:"log"`
}

type DBConfig struct {
	URI       string `mapstructure:"uri"`
	BatchSize int    `mapstructure:"batch_size"`
}

type APIConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PageSize  int           `mapstructure:"page_size"`
	MaxPages  int           `mapstructure:"max_pages"`
	UserAgent string        `mapstructure:"user_agent"`
}

type SyncConfig struct {
	Symbols       []string `mapstructure:"symbols"`
	FromDate      string   `mapstructure:"from_date"`
	ToDate        string   `mapstructure:"to_date"`
	WatermarkMode string   `mapstructure:"watermark_mode"`
	Timezone      string   `mapstructure:"timezone"`
}

type ScheduleConfig struct {
	Spec       string        `mapstructure:"spec"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type ExportConfig struct {
	Dir    string `mapstructure:"dir"`
	Format string `mapstructure:"format"`
}

type LockConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	Key           string        `mapstructure:"key"`
	TTL           time.Duration `mapstructure:"ttl"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

var DefaultSymbols = []string{"VNM", "VCB", "VIC", "BID", "SSI", "PNJ", "HPG", "GAS", "MWG", "VJC"}

// DefaultUserAgent 接口会拒绝不带浏览器 UA 的请求
const DefaultUserAgent = "Mozilla / 5.0 (Windows NT 6.1; WOW64; rv: 12.0) Gecko / 20100101 Firefox / 12.0"

// Load 读取配置: 默认值 < 配置文件 < FINFO_ 前缀环境变量
// path 为空时只使用默认值和环境变量
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("FINFO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("db.uri", "")
	v.SetDefault("db.batch_size", 500)

	v.SetDefault("api.base_url", "https://finfo-api.vndirect.com.vn")
	v.SetDefault("api.timeout", "10s")
	v.SetDefault("api.page_size", 1000)
	v.SetDefault("api.max_pages", 1000)
	v.SetDefault("api.user_agent", DefaultUserAgent)

	v.SetDefault("sync.symbols", DefaultSymbols)
	v.SetDefault("sync.from_date", "2020-01-01")
	v.SetDefault("sync.to_date", "")
	v.SetDefault("sync.watermark_mode", "global")
	v.SetDefault("sync.timezone", "Asia/Ho_Chi_Minh")

	v.SetDefault("schedule.spec", "0 0 * * *")
	v.SetDefault("schedule.retries", 1)
	v.SetDefault("schedule.retry_delay", "5m")

	v.SetDefault("export.dir", "")
	v.SetDefault("export.format", "parquet")

	v.SetDefault("lock.redis_addr", "")
	v.SetDefault("lock.redis_password", "")
	v.SetDefault("lock.redis_db", 0)
	v.SetDefault("lock.key", "finfo2db:sync")
	v.SetDefault("lock.ttl", "30m")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.disable_caller", true)
	v.SetDefault("log.disable_stacktrace", true)
}

// Validate 检查必填项与日期窗口
func (c Config) Validate() error {
	var errs []error

	if c.DB.URI == "" {
		errs = append(errs, errors.New("db.uri is required"))
	}
	if c.DB.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("db.batch_size must be positive, got %d", c.DB.BatchSize))
	}
	if c.API.BaseURL == "" {
		errs = append(errs, errors.New("api.base_url is required"))
	}
	if c.API.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("api.page_size must be positive, got %d", c.API.PageSize))
	}
	if len(c.Sync.Symbols) == 0 {
		errs = append(errs, errors.New("sync.symbols must not be empty"))
	}

	switch c.Sync.WatermarkMode {
	case "global", "symbol":
	default:
		errs = append(errs, fmt.Errorf("sync.watermark_mode must be global or symbol, got %q", c.Sync.WatermarkMode))
	}

	if _, err := time.LoadLocation(c.Sync.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid sync.timezone %q: %w", c.Sync.Timezone, err))
	}

	from, err := time.Parse(dateLayout, c.Sync.FromDate)
	if err != nil {
		errs = append(errs, fmt.Errorf("invalid sync.from_date %q: %w", c.Sync.FromDate, err))
	}
	if c.Sync.ToDate != "" {
		to, err := time.Parse(dateLayout, c.Sync.ToDate)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid sync.to_date %q: %w", c.Sync.ToDate, err))
		} else if !from.IsZero() && to.Before(from) {
			errs = append(errs, fmt.Errorf("sync.to_date %s is before sync.from_date %s", c.Sync.ToDate, c.Sync.FromDate))
		}
	}

	if c.Schedule.Retries < 0 {
		errs = append(errs, fmt.Errorf("schedule.retries must not be negative, got %d", c.Schedule.Retries))
	}

	switch c.Export.Format {
	case "parquet", "csv":
	default:
		errs = append(errs, fmt.Errorf("export.format must be parquet or csv, got %q", c.Export.Format))
	}

	return errors.Join(errs...)
}

// Window 解析同步日期窗口, to_date 为空时取 now 所在时区的当天
func (c Config) Window(now time.Time) (from, to time.Time, err error) {
	loc, err := time.LoadLocation(c.Sync.Timezone)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("failed to load timezone %s: %w", c.Sync.Timezone, err)
	}

	from, err = time.Parse(dateLayout, c.Sync.FromDate)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid from date %q: %w", c.Sync.FromDate, err)
	}

	if c.Sync.ToDate == "" {
		local := now.In(loc)
		to = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
	} else {
		to, err = time.Parse(dateLayout, c.Sync.ToDate)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date %q: %w", c.Sync.ToDate, err)
		}
	}

	return from, to, nil
}
