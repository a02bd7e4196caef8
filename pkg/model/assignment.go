package model

import (
	"time"

	"github.com/google/uuid"
)

// AssignmentStatus 派工状态
type AssignmentStatus string

const (
	AssignmentActive    AssignmentStatus = "active"    // 进行中（计入容量）
	AssignmentCompleted AssignmentStatus = "completed" // 已完成
	AssignmentCancelled AssignmentStatus = "cancelled" // 已取消
)

// Assignment 派工记录
type Assignment struct {
	BaseModel
	WorkerID         uuid.UUID        `json:"worker_id" db:"worker_id"`
	ScheduledDate    Date             `json:"scheduled_date" db:"scheduled_date"`
	WorkOrderRef     string           `json:"work_order_ref" db:"work_order_ref"` // 工单引用，每个报修唯一
	RequiredCategory Category         `json:"required_category" db:"required_category"`
	IsEmergency      bool             `json:"is_emergency" db:"is_emergency"`
	Status           AssignmentStatus `json:"status" db:"status"`
	CancelReason     string           `json:"cancel_reason,omitempty" db:"cancel_reason"`
	CancelledAt      *time.Time       `json:"cancelled_at,omitempty" db:"cancelled_at"`
}

// NewAssignment 创建进行中的派工
func NewAssignment(workerID uuid.UUID, date Date, workOrderRef string, required Category, emergency bool) *Assignment {
	return &Assignment{
		BaseModel:        NewBaseModel(),
		WorkerID:         workerID,
		ScheduledDate:    date,
		WorkOrderRef:     workOrderRef,
		RequiredCategory: required,
		IsEmergency:      emergency,
		Status:           AssignmentActive,
	}
}

// IsActive 是否计入容量
func (a *Assignment) IsActive() bool {
	return a.Status == AssignmentActive
}

// Cancel 标记为已取消
func (a *Assignment) Cancel(reason string, at time.Time) {
	a.Status = AssignmentCancelled
	a.CancelReason = reason
	a.CancelledAt = &at
	a.UpdatedAt = at
}

// AvailabilitySummary 维修工可用性摘要（每次查询即时计算，不持久化）
type AvailabilitySummary struct {
	WorkerID               uuid.UUID `json:"worker_id"`
	BookedDates            []Date    `json:"booked_dates"`
	PartiallyBookedDates   []Date    `json:"partially_booked_dates"`
	NextFullyAvailableDate *Date     `json:"next_fully_available_date,omitempty"`
	AvailabilityScore      int       `json:"availability_score"`
	Workload               int       `json:"workload"`
}
