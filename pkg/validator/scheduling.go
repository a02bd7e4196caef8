// Package validator 校验单次派工提议是否满足工种、容量与日期规则
package validator

import (
	"fmt"
	"sort"

	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/specialization"
)

// Outcome 校验结果
type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeAcceptedWithBump Outcome = "accepted_with_bump" // 紧急插单，需取消一单普通派工
	OutcomeRejected         Outcome = "rejected"
)

// RejectReason 拒绝原因
type RejectReason string

const (
	ReasonNone                   RejectReason = ""
	ReasonSpecializationMismatch RejectReason = "specialization_mismatch"
	ReasonCapacityExceeded       RejectReason = "capacity_exceeded"
	ReasonPastDate               RejectReason = "past_date"
)

// Proposal 派工提议
type Proposal struct {
	Worker           *model.Worker
	RequiredCategory model.Category
	TargetDate       model.Date
	Emergency        bool

	// 目标日期全系统进行中的派工；为 nil 时退回使用 Worker.Assignments
	ActiveOnDate []*model.Assignment
}

// Result 校验结果
type Result struct {
	Outcome Outcome           `json:"outcome"`
	Reason  RejectReason      `json:"reason,omitempty"`
	Bumped  *model.Assignment `json:"bumped,omitempty"`
	Detail  string            `json:"detail,omitempty"`
	Active  int               `json:"active"` // 校验时该维修工当日进行中的派工数
	Limit   int               `json:"limit"`

	err *apperrors.AppError
}

// Accepted 是否接受（含插单）
func (r Result) Accepted() bool {
	return r.Outcome != OutcomeRejected
}

// Err 拒绝时返回带原因码的错误，接受时返回 nil
func (r Result) Err() error {
	if r.Outcome != OutcomeRejected || r.err == nil {
		return nil
	}
	return r.err
}

// SchedulingValidator 派工校验器
type SchedulingValidator struct {
	catalog  *specialization.Catalog
	capacity model.CapacityRule
	today    func() model.Date
}

// NewSchedulingValidator 创建校验器，today 返回校验所用的本地日期
func NewSchedulingValidator(catalog *specialization.Catalog, capacity model.CapacityRule, today func() model.Date) *SchedulingValidator {
	if catalog == nil {
		catalog = specialization.DefaultCatalog()
	}
	if today == nil {
		today = func() model.Date { return model.Today(nil) }
	}
	return &SchedulingValidator{
		catalog:  catalog,
		capacity: capacity,
		today:    today,
	}
}

// Capacity 返回容量规则
func (v *SchedulingValidator) Capacity() model.CapacityRule {
	return v.capacity
}

// Validate 按顺序校验：工种、普通容量、紧急容量、日期，首个失败即返回
func (v *SchedulingValidator) Validate(p Proposal) Result {
	w := p.Worker
	workerID := w.ID.String()
	date := p.TargetDate.String()

	// 1. 工种
	if !v.catalog.CanSatisfy(w.Specialization, p.RequiredCategory) {
		return reject(ReasonSpecializationMismatch,
			apperrors.SpecializationMismatch(workerID, string(w.Specialization), string(p.RequiredCategory)).
				WithField("rule", string(ReasonSpecializationMismatch)))
	}

	own := v.workerActiveOn(p)
	count := len(own)
	limit := v.capacity.Limit(p.Emergency)

	result := Result{Outcome: OutcomeAccepted, Active: count, Limit: limit}

	if !p.Emergency {
		// 2. 普通容量
		if count >= v.capacity.NormalMax {
			r := reject(ReasonCapacityExceeded,
				apperrors.CapacityExceeded(workerID, date, count, v.capacity.NormalMax).
					WithField("rule", string(ReasonCapacityExceeded)))
			r.Active, r.Limit = count, v.capacity.NormalMax
			return r
		}
	} else {
		// 3. 紧急容量：上限绝对不可突破
		switch {
		case count >= v.capacity.EmergencyMax:
			r := reject(ReasonCapacityExceeded,
				apperrors.CapacityExceeded(workerID, date, count, v.capacity.EmergencyMax).
					WithField("rule", string(ReasonCapacityExceeded)).
					WithField("emergency", true))
			r.Active, r.Limit = count, v.capacity.EmergencyMax
			return r
		case count >= v.capacity.NormalMax:
			if bump := pickBump(own); bump != nil {
				result.Outcome = OutcomeAcceptedWithBump
				result.Bumped = bump
				result.Detail = fmt.Sprintf("紧急插单取消普通派工 %s", bump.WorkOrderRef)
			} else {
				// 当日已无普通派工可取消，占用紧急名额
				result.Detail = "当日派工均为紧急单，占用紧急名额"
			}
		}
	}

	// 4. 日期（仅比较日期）
	today := v.today()
	if p.TargetDate.Before(today) {
		r := reject(ReasonPastDate,
			apperrors.PastDate(date, today.String()).
				WithField("rule", string(ReasonPastDate)).
				WithField("worker_id", workerID))
		r.Active, r.Limit = count, limit
		return r
	}

	return result
}

// workerActiveOn 返回该维修工在目标日期进行中的派工
func (v *SchedulingValidator) workerActiveOn(p Proposal) []*model.Assignment {
	if p.ActiveOnDate == nil {
		return p.Worker.ActiveOn(p.TargetDate)
	}
	var out []*model.Assignment
	for _, a := range p.ActiveOnDate {
		if a.WorkerID == p.Worker.ID && a.IsActive() && a.ScheduledDate == p.TargetDate {
			out = append(out, a)
		}
	}
	return out
}

// pickBump 选择最近创建的普通派工，创建时间相同时按工单引用排序
func pickBump(assignments []*model.Assignment) *model.Assignment {
	var candidates []*model.Assignment
	for _, a := range assignments {
		if a.IsActive() && !a.IsEmergency {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if !candidates[i].CreatedAt.Equal(candidates[j].CreatedAt) {
			return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
		}
		return candidates[i].WorkOrderRef < candidates[j].WorkOrderRef
	})
	return candidates[0]
}

func reject(reason RejectReason, err *apperrors.AppError) Result {
	return Result{
		Outcome: OutcomeRejected,
		Reason:  reason,
		Detail:  err.Message,
		err:     err,
	}
}
