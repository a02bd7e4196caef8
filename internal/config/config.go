// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
)

// Config 应用配置
type Config struct {
	App        AppConfig        `yaml:"app"`
	Database   DatabaseConfig   `yaml:"database"`
	API        APIConfig        `yaml:"api"`
	Scheduling SchedulingConfig `yaml:"scheduling"`
	NATS       NATSConfig       `yaml:"nats"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name      string `yaml:"name"`
	Env       string `yaml:"env"`
	Port      int    `yaml:"port"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig 数据库配置，Host 为空时使用内存存储
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	AutoMigrate     bool          `yaml:"auto_migrate"`
}

// Enabled 是否配置了数据库
func (c *DatabaseConfig) Enabled() bool {
	return c.URL != "" || c.Host != ""
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	Timeout   time.Duration `yaml:"timeout"`
	RateLimit int           `yaml:"rate_limit"` // 每个客户端每分钟请求数，0 表示不限流
	CORS      CORSConfig    `yaml:"cors"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	Enabled bool     `yaml:"enabled"`
	Origins []string `yaml:"origins"`
}

// SchedulingConfig 派工调度配置
type SchedulingConfig struct {
	NormalMax         int    `yaml:"normal_max"`
	EmergencyMax      int    `yaml:"emergency_max"`
	SearchHorizonDays int    `yaml:"search_horizon_days"`
	LookAheadDays     int    `yaml:"look_ahead_days"`
	MaxResults        int    `yaml:"max_results"`
	Timezone          string `yaml:"timezone"`
	KeywordFile       string `yaml:"keyword_file"` // 为空时使用内置关键词
}

// Location 返回调度所用时区
func (c *SchedulingConfig) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

// NATSConfig 事件通知配置，URL 为空时不发布事件
type NATSConfig struct {
	URL           string `yaml:"url"`
	SubjectPrefix string `yaml:"subject_prefix"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 加载配置：先读取 .env（若存在），再由环境变量覆盖默认值
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if _, err := os.Stat(f); err == nil {
			if err := godotenv.Load(f); err != nil {
				return nil, fmt.Errorf("读取 %s 失败: %w", f, err)
			}
		}
	}

	v := newViper()

	cfg := &Config{
		App: AppConfig{
			Name:      v.GetString("APP_NAME"),
			Env:       v.GetString("APP_ENV"),
			Port:      v.GetInt("APP_PORT"),
			LogLevel:  v.GetString("APP_LOG_LEVEL"),
			LogFormat: v.GetString("APP_LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			SSLMode:         v.GetString("DB_SSL_MODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			AutoMigrate:     v.GetBool("DB_AUTO_MIGRATE"),
		},
		API: APIConfig{
			Timeout:   v.GetDuration("API_TIMEOUT"),
			RateLimit: v.GetInt("API_RATE_LIMIT"),
			CORS: CORSConfig{
				Enabled: v.GetBool("API_CORS_ENABLED"),
				Origins: splitList(v.GetString("API_CORS_ORIGINS")),
			},
		},
		Scheduling: SchedulingConfig{
			NormalMax:         v.GetInt("SCHEDULING_NORMAL_MAX"),
			EmergencyMax:      v.GetInt("SCHEDULING_EMERGENCY_MAX"),
			SearchHorizonDays: v.GetInt("SCHEDULING_SEARCH_HORIZON_DAYS"),
			LookAheadDays:     v.GetInt("SCHEDULING_LOOK_AHEAD_DAYS"),
			MaxResults:        v.GetInt("SCHEDULING_MAX_RESULTS"),
			Timezone:          v.GetString("SCHEDULING_TIMEZONE"),
			KeywordFile:       v.GetString("SCHEDULING_KEYWORD_FILE"),
		},
		NATS: NATSConfig{
			URL:           v.GetString("NATS_URL"),
			SubjectPrefix: v.GetString("NATS_SUBJECT_PREFIX"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "weixiu")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", 7012)
	v.SetDefault("APP_LOG_LEVEL", "info")
	v.SetDefault("APP_LOG_FORMAT", "json")

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_NAME", "weixiu")
	v.SetDefault("DB_USER", "weixiu")
	v.SetDefault("DB_PASSWORD", "")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("API_TIMEOUT", 30*time.Second)
	v.SetDefault("API_RATE_LIMIT", 120)
	v.SetDefault("API_CORS_ENABLED", true)
	v.SetDefault("API_CORS_ORIGINS", "*")

	v.SetDefault("SCHEDULING_NORMAL_MAX", 2)
	v.SetDefault("SCHEDULING_EMERGENCY_MAX", 3)
	v.SetDefault("SCHEDULING_SEARCH_HORIZON_DAYS", 30)
	v.SetDefault("SCHEDULING_LOOK_AHEAD_DAYS", 14)
	v.SetDefault("SCHEDULING_MAX_RESULTS", 5)
	v.SetDefault("SCHEDULING_TIMEZONE", "Local")
	v.SetDefault("SCHEDULING_KEYWORD_FILE", "")

	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_SUBJECT_PREFIX", "weixiu.assignments")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	return v
}

// Validate 检查配置一致性
func (c *Config) Validate() error {
	var ve apperrors.ValidationErrors

	if c.App.Port <= 0 || c.App.Port > 65535 {
		ve.Add("APP_PORT", "端口超出范围")
	}
	s := c.Scheduling
	if s.NormalMax <= 0 {
		ve.Add("SCHEDULING_NORMAL_MAX", "必须大于0")
	}
	if s.EmergencyMax < s.NormalMax {
		ve.Add("SCHEDULING_EMERGENCY_MAX", "不能小于普通上限")
	}
	if s.SearchHorizonDays <= 0 {
		ve.Add("SCHEDULING_SEARCH_HORIZON_DAYS", "必须大于0")
	}
	if s.LookAheadDays <= 0 {
		ve.Add("SCHEDULING_LOOK_AHEAD_DAYS", "必须大于0")
	}
	if s.MaxResults <= 0 {
		ve.Add("SCHEDULING_MAX_RESULTS", "必须大于0")
	}
	if _, err := s.Location(); err != nil {
		ve.Add("SCHEDULING_TIMEZONE", err.Error())
	}
	if c.API.Timeout <= 0 {
		ve.Add("API_TIMEOUT", "必须大于0")
	}
	if c.API.RateLimit < 0 {
		ve.Add("API_RATE_LIMIT", "不能为负数")
	}

	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
