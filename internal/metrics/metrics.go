// Package metrics 提供Prometheus监控指标
package metrics

import (
	"database/sql"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/weixiu/weixiu/pkg/dispatcher"
)

const namespace = "weixiu"

// Collector 调度与HTTP指标
type Collector struct {
	registry *prometheus.Registry

	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	selectionTotal      *prometheus.CounterVec
	selectionDuration   prometheus.Histogram
	selectionCandidates prometheus.Histogram
	commitTotal         *prometheus.CounterVec
}

var _ dispatcher.Observer = (*Collector)(nil)

// New 创建指标采集器，使用独立注册表
func New() *Collector {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP请求总数",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP请求延迟",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0},
			},
			[]string{"method", "path"},
		),
		selectionTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidate_selections_total",
				Help:      "候选维修工筛选次数（按回退层级）",
			},
			[]string{"tier"},
		),
		selectionDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidate_selection_duration_seconds",
				Help:      "候选维修工筛选耗时",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
		),
		selectionCandidates: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "candidate_selection_size",
				Help:      "每次筛选返回的候选人数",
				Buckets:   prometheus.LinearBuckets(0, 1, 11),
			},
		),
		commitTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "assignment_commits_total",
				Help:      "派工提交结果",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveSelection 记录一次筛选
func (c *Collector) ObserveSelection(tier, candidates int, elapsed time.Duration) {
	c.selectionTotal.WithLabelValues(strconv.Itoa(tier)).Inc()
	c.selectionDuration.Observe(elapsed.Seconds())
	c.selectionCandidates.Observe(float64(candidates))
}

// ObserveCommit 记录一次提交结果
func (c *Collector) ObserveCommit(outcome string) {
	c.commitTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTP 记录一次HTTP请求
func (c *Collector) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	c.httpRequests.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

// RegisterDB 采集数据库连接池指标
func (c *Collector) RegisterDB(db *sql.DB, name string) error {
	return c.registry.Register(collectors.NewDBStatsCollector(db, name))
}

// Registry 返回注册表
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler 返回 /metrics 处理器
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
