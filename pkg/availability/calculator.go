// Package availability 计算维修工的预约占用情况与可用性评分
//
// 所有计算都是对派工快照的只读操作，不修改维修工状态，可并发调用。
package availability

import (
	"sort"

	"github.com/weixiu/weixiu/pkg/model"
)

// ScoreDayWeight 每等待一天的评分权重，保证可用性优先于工作量
const ScoreDayWeight = 100

// DefaultSearchHorizonDays 默认向后搜索完全空闲日的天数
const DefaultSearchHorizonDays = 30

// Calculator 可用性计算器
type Calculator struct {
	capacity          model.CapacityRule
	searchHorizonDays int
}

// NewCalculator 创建可用性计算器
func NewCalculator(capacity model.CapacityRule, searchHorizonDays int) *Calculator {
	if searchHorizonDays <= 0 {
		searchHorizonDays = DefaultSearchHorizonDays
	}
	return &Calculator{
		capacity:          capacity,
		searchHorizonDays: searchHorizonDays,
	}
}

// DefaultCalculator 使用默认容量规则和搜索范围
func DefaultCalculator() *Calculator {
	return NewCalculator(model.DefaultCapacityRule(), DefaultSearchHorizonDays)
}

// Capacity 返回容量规则
func (c *Calculator) Capacity() model.CapacityRule {
	return c.capacity
}

// SearchHorizonDays 返回搜索范围
func (c *Calculator) SearchHorizonDays() int {
	return c.searchHorizonDays
}

// BookedDates 返回 [start, end] 内已排满的日期
// 紧急模式下阈值提升为紧急上限，恰好普通满额的日期仍有一个紧急名额，不算排满
func (c *Calculator) BookedDates(w *model.Worker, start, end model.Date, emergencyMode bool) []model.Date {
	limit := c.capacity.Limit(emergencyMode)
	counts := w.ActiveCountsByDate(model.DateRange{Start: start, End: end})

	var out []model.Date
	for d, n := range counts {
		if n >= limit {
			out = append(out, d)
		}
	}
	sortDates(out)
	return out
}

// PartiallyBookedDates 返回 [start, end] 内恰有一单且未达阈值的日期
func (c *Calculator) PartiallyBookedDates(w *model.Worker, start, end model.Date, emergencyMode bool) []model.Date {
	limit := c.capacity.Limit(emergencyMode)
	counts := w.ActiveCountsByDate(model.DateRange{Start: start, End: end})

	var out []model.Date
	for d, n := range counts {
		if n == 1 && n < limit {
			out = append(out, d)
		}
	}
	sortDates(out)
	return out
}

// NextFullyAvailableDate 从 from 起向后搜索 horizonDays 天，返回首个没有任何进行中派工的日期
// 搜索范围内找不到时返回 nil
func (c *Calculator) NextFullyAvailableDate(w *model.Worker, from model.Date, horizonDays int) *model.Date {
	if horizonDays < 0 {
		horizonDays = 0
	}
	counts := w.ActiveCountsByDate(model.NewDateRange(from, horizonDays))

	for i := 0; i <= horizonDays; i++ {
		d := from.AddDays(i)
		if counts[d] == 0 {
			return &d
		}
	}
	return nil
}

// DaysUntilAvailable 返回目标日期到下一个完全空闲日的天数
// 目标日期本身空闲时为 0；搜索范围内没有空闲日时为 horizon+1
func (c *Calculator) DaysUntilAvailable(w *model.Worker, target model.Date) int {
	next := c.NextFullyAvailableDate(w, target, c.searchHorizonDays)
	if next == nil {
		return c.searchHorizonDays + 1
	}
	return target.DaysUntil(*next)
}

// Workload 返回窗口内进行中的派工数
func (c *Calculator) Workload(w *model.Worker, window model.DateRange) int {
	n := 0
	for _, a := range w.Assignments {
		if a.IsActive() && window.Contains(a.ScheduledDate) {
			n++
		}
	}
	return n
}

// AvailabilityScoreForDate 计算目标日期的可用性评分（越低越好）
// 评分 = 等待天数 × 100 + 窗口内工作量
func (c *Calculator) AvailabilityScoreForDate(w *model.Worker, target model.Date, window model.DateRange) int {
	return Score(c.DaysUntilAvailable(w, target), c.Workload(w, window))
}

// Score 由等待天数和工作量合成评分
func Score(daysUntilAvailable, workload int) int {
	return daysUntilAvailable*ScoreDayWeight + workload
}

// Summarize 计算维修工在窗口内的完整可用性摘要
func (c *Calculator) Summarize(w *model.Worker, target model.Date, window model.DateRange, emergencyMode bool) model.AvailabilitySummary {
	days := c.DaysUntilAvailable(w, target)
	workload := c.Workload(w, window)

	return model.AvailabilitySummary{
		WorkerID:               w.ID,
		BookedDates:            c.BookedDates(w, window.Start, window.End, emergencyMode),
		PartiallyBookedDates:   c.PartiallyBookedDates(w, window.Start, window.End, emergencyMode),
		NextFullyAvailableDate: c.NextFullyAvailableDate(w, target, c.searchHorizonDays),
		AvailabilityScore:      Score(days, workload),
		Workload:               workload,
	}
}

func sortDates(dates []model.Date) {
	sort.Slice(dates, func(i, j int) bool {
		return dates[i].Before(dates[j])
	})
}
