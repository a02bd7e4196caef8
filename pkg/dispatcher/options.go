// Package dispatcher 提供候选维修工筛选与派工提交
//
// 筛选在一次存储快照内完成，提交按 (维修工, 日期) 串行化，
// 并在同一事务中重新校验实时派工，避免筛选与提交之间的竞争导致超额。
package dispatcher

import (
	"github.com/weixiu/weixiu/pkg/logger"
	"github.com/weixiu/weixiu/pkg/model"
)

// 默认筛选参数
const (
	DefaultMaxResults    = 5
	DefaultLookAheadDays = 14
)

type options struct {
	today    func() model.Date
	notifier Notifier
	observer Observer
	log      *logger.SchedulingLogger
	locks    *KeyedMutex
}

// Option 配置筛选器与提交器
type Option func(*options)

// WithToday 设置筛选器"今天"的来源（调度时区的日期），决定工作量观察期的起点
// 提交器不读取该选项，过去日期校验使用 SchedulingValidator 自身的时钟
func WithToday(fn func() model.Date) Option {
	return func(o *options) {
		o.today = fn
	}
}

// WithNotifier 设置派工事件通知
func WithNotifier(n Notifier) Option {
	return func(o *options) {
		o.notifier = n
	}
}

// WithObserver 设置指标采集
func WithObserver(obs Observer) Option {
	return func(o *options) {
		o.observer = obs
	}
}

// WithLogger 设置调度日志
func WithLogger(l *logger.SchedulingLogger) Option {
	return func(o *options) {
		o.log = l
	}
}

// WithKeyedMutex 共享进程内锁表
func WithKeyedMutex(k *KeyedMutex) Option {
	return func(o *options) {
		o.locks = k
	}
}

func buildOptions(opts []Option) options {
	o := options{
		today:    func() model.Date { return model.Today(nil) },
		notifier: nopNotifier{},
		observer: nopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.NewSchedulingLogger()
	}
	if o.locks == nil {
		o.locks = NewKeyedMutex()
	}
	return o
}
