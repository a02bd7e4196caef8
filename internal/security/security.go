// Package security 提供接口限流
package security

import (
	"context"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
)

// window 单个客户端的请求记录
type window struct {
	mu      sync.Mutex
	reqs    []time.Time
	removed bool // 已从客户端表中移除
}

// prune 丢弃 start 之前的请求，返回剩余数量
func (w *window) prune(start time.Time) int {
	i := 0
	for i < len(w.reqs) && !w.reqs[i].After(start) {
		i++
	}
	w.reqs = w.reqs[i:]
	return len(w.reqs)
}

// RateLimiter 滑动窗口请求频率限制器，按客户端标识计数
type RateLimiter struct {
	clients *xsync.Map[string, *window]
	limit   int           // 时间窗口内最大请求数
	window  time.Duration // 时间窗口
	now     func() time.Time
}

// NewRateLimiter 创建频率限制器
func NewRateLimiter(limit int, win time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: xsync.NewMap[string, *window](),
		limit:   limit,
		window:  win,
		now:     time.Now,
	}
}

// Limit 时间窗口内最大请求数
func (rl *RateLimiter) Limit() int {
	return rl.limit
}

// Allow 检查是否允许请求，允许时记录本次请求
func (rl *RateLimiter) Allow(key string) bool {
	for {
		w, _ := rl.clients.LoadOrStore(key, &window{})
		now := rl.now()

		w.mu.Lock()
		if w.removed {
			// 已被 Cleanup 移出，改用新窗口
			w.mu.Unlock()
			continue
		}
		allowed := w.prune(now.Add(-rl.window)) < rl.limit
		if allowed {
			w.reqs = append(w.reqs, now)
		}
		w.mu.Unlock()
		return allowed
	}
}

// Cleanup 清理窗口内已无请求的客户端，返回清理数量
func (rl *RateLimiter) Cleanup() int {
	start := rl.now().Add(-rl.window)
	removed := 0
	rl.clients.Range(func(key string, _ *window) bool {
		rl.clients.Compute(key, func(w *window, loaded bool) (*window, xsync.ComputeOp) {
			if !loaded {
				return w, xsync.CancelOp
			}
			w.mu.Lock()
			defer w.mu.Unlock()
			if w.prune(start) > 0 {
				return w, xsync.CancelOp
			}
			w.removed = true
			removed++
			return w, xsync.DeleteOp
		})
		return true
	})
	return removed
}

// Clients 当前跟踪的客户端数
func (rl *RateLimiter) Clients() int {
	return rl.clients.Size()
}

// Run 定期清理过期数据，直到 ctx 结束
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Cleanup()
		}
	}
}
