// Package middleware 提供 gin 中间件
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/logger"
)

// RequestIDHeader 请求ID头
const RequestIDHeader = "X-Request-ID"

// requestIDKey gin 上下文中的请求ID键
const requestIDKey = "request_id"

// RequestID 读取或生成请求ID，并写入请求上下文供日志使用
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			rid = "req_" + uuid.NewString()
		}
		c.Set(requestIDKey, rid)
		c.Writer.Header().Set(RequestIDHeader, rid)
		c.Request = c.Request.WithContext(logger.ContextWithRequestID(c.Request.Context(), rid))
		c.Next()
	}
}

// GetRequestID 返回当前请求ID
func GetRequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger 访问日志
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()

		event := logger.WithContext(c.Request.Context()).Info()
		if status >= http.StatusInternalServerError {
			event = logger.WithContext(c.Request.Context()).Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP请求")
	}
}

// Recovery 捕获 panic 并返回统一错误
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.WithContext(c.Request.Context()).Error().
					Interface("panic", r).
					Str("path", c.Request.URL.Path).
					Msg("Panic recovered")
				err := apperrors.New(apperrors.CodeInternal, "服务器内部错误")
				c.AbortWithStatusJSON(err.HTTPStatus, gin.H{
					"error":   true,
					"code":    err.Code,
					"message": err.Message,
				})
			}
		}()
		c.Next()
	}
}

// SecurityHeaders 安全相关响应头
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'self'")
		c.Next()
	}
}

// Timeout 为请求上下文设置超时，存储调用会随之取消
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// HTTPObserver HTTP 指标采集
type HTTPObserver interface {
	ObserveHTTP(method, path string, status int, elapsed time.Duration)
}

// Metrics 记录请求数和延迟，未匹配路由统一归为 unmatched
func Metrics(obs HTTPObserver) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		obs.ObserveHTTP(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// Limiter 请求频率限制
type Limiter interface {
	Allow(key string) bool
	Limit() int
}

// RateLimit 按客户端IP限流，超限返回 429
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l.Allow(c.ClientIP()) {
			c.Next()
			return
		}
		err := apperrors.New(apperrors.CodeRateLimited, "请求频率超限")
		c.Header("Retry-After", "60")
		c.AbortWithStatusJSON(err.HTTPStatus, gin.H{
			"error":   true,
			"code":    err.Code,
			"message": err.Message,
			"fields":  map[string]interface{}{"limit": l.Limit()},
		})
	}
}
