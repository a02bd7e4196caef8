// Package events 发布派工事件到 NATS，供下游通知服务订阅
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	"github.com/weixiu/weixiu/pkg/logger"
	"github.com/weixiu/weixiu/pkg/model"
)

// DefaultSubjectPrefix 默认主题前缀
const DefaultSubjectPrefix = "weixiu.assignments"

// 事件类型
const (
	TypeCommitted = "committed"
	TypeBumped    = "bumped"
)

// AssignmentEvent 派工事件
type AssignmentEvent struct {
	Type       string            `json:"type"`
	Assignment *model.Assignment `json:"assignment"`
	BumpedBy   *model.Assignment `json:"bumped_by,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publisher NATS 事件发布器
type Publisher struct {
	nc     *nats.Conn
	prefix string
	own    bool
}

var _ dispatcher.Notifier = (*Publisher)(nil)

// Connect 连接 NATS 并创建发布器，Close 时关闭连接
func Connect(url, prefix string) (*Publisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("weixiu"),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS 连接断开")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("NATS 已重连")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("连接 NATS 失败: %w", err)
	}
	p := NewPublisher(nc, prefix)
	p.own = true
	return p, nil
}

// NewPublisher 基于已有连接创建发布器
func NewPublisher(nc *nats.Conn, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Publisher{nc: nc, prefix: prefix}
}

// Subject 返回事件类型对应的主题
func (p *Publisher) Subject(eventType string) string {
	return p.prefix + "." + eventType
}

// AssignmentCommitted 发布派工成功事件
func (p *Publisher) AssignmentCommitted(ctx context.Context, a *model.Assignment) error {
	return p.publish(ctx, AssignmentEvent{Type: TypeCommitted, Assignment: a, OccurredAt: time.Now()})
}

// AssignmentBumped 发布派工被紧急挤占事件
func (p *Publisher) AssignmentBumped(ctx context.Context, bumped, by *model.Assignment) error {
	return p.publish(ctx, AssignmentEvent{Type: TypeBumped, Assignment: bumped, BumpedBy: by, OccurredAt: time.Now()})
}

func (p *Publisher) publish(ctx context.Context, ev AssignmentEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := p.nc.Publish(p.Subject(ev.Type), data); err != nil {
		return fmt.Errorf("发布事件失败: %w", err)
	}
	return nil
}

// Close 刷新缓冲并关闭自有连接
func (p *Publisher) Close() error {
	if !p.own {
		return nil
	}
	err := p.nc.FlushTimeout(2 * time.Second)
	p.nc.Close()
	return err
}

// Healthy 连接是否可用
func (p *Publisher) Healthy() bool {
	return p.nc.IsConnected()
}

// NopNotifier 不发布任何事件
type NopNotifier struct{}

var _ dispatcher.Notifier = NopNotifier{}

// AssignmentCommitted 忽略
func (NopNotifier) AssignmentCommitted(context.Context, *model.Assignment) error { return nil }

// AssignmentBumped 忽略
func (NopNotifier) AssignmentBumped(context.Context, *model.Assignment, *model.Assignment) error {
	return nil
}
