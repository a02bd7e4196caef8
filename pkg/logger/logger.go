// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	// 未显式初始化时使用默认配置
	Init(DefaultConfig())
	return &logger
}

type ctxKey string

// RequestIDKey 请求ID在上下文中的键
const RequestIDKey ctxKey = "request_id"

// ContextWithRequestID 将请求ID写入上下文
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加请求ID
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		l = l.With().Str("request_id", reqID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulingLogger 派工调度专用日志器
type SchedulingLogger struct {
	base *zerolog.Logger
}

// NewSchedulingLogger 创建派工调度日志器
func NewSchedulingLogger() *SchedulingLogger {
	l := Get().With().Str("component", "scheduling").Logger()
	return &SchedulingLogger{base: &l}
}

// With 基于上下文返回带请求ID的日志器
func (l *SchedulingLogger) With(ctx context.Context) *SchedulingLogger {
	sub := l.base.With().Logger()
	if reqID, ok := ctx.Value(RequestIDKey).(string); ok && reqID != "" {
		sub = sub.With().Str("request_id", reqID).Logger()
	}
	return &SchedulingLogger{base: &sub}
}

// CandidatesSelected 记录候选人筛选结果
func (l *SchedulingLogger) CandidatesSelected(category, date string, tier, count int, duration time.Duration) {
	l.base.Info().
		Str("required_category", category).
		Str("date", date).
		Int("tier", tier).
		Int("candidates", count).
		Dur("duration", duration).
		Msg("候选维修工筛选完成")
}

// AssignmentCommitted 记录派工成功
func (l *SchedulingLogger) AssignmentCommitted(workerID, date, workOrderRef string, emergency bool) {
	l.base.Info().
		Str("worker_id", workerID).
		Str("date", date).
		Str("work_order_ref", workOrderRef).
		Bool("emergency", emergency).
		Msg("派工已提交")
}

// AssignmentRejected 记录派工被拒
func (l *SchedulingLogger) AssignmentRejected(workerID, date, reason, details string) {
	l.base.Warn().
		Str("worker_id", workerID).
		Str("date", date).
		Str("reason", reason).
		Str("details", details).
		Msg("派工被拒绝")
}

// AssignmentBumped 记录紧急派工挤占
func (l *SchedulingLogger) AssignmentBumped(workerID, date, bumpedRef, emergencyRef string) {
	l.base.Warn().
		Str("worker_id", workerID).
		Str("date", date).
		Str("bumped_work_order_ref", bumpedRef).
		Str("emergency_work_order_ref", emergencyRef).
		Msg("紧急派工挤占了已有派工")
}

// Warn 记录非致命错误
func (l *SchedulingLogger) Warn(err error, msg string) {
	l.base.Warn().Err(err).Msg(msg)
}
