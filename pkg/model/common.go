// Package model 定义维修派工调度的核心数据模型
package model

import (
	"time"

	"github.com/google/uuid"
)

// BaseModel 基础模型（包含通用字段）
type BaseModel struct {
	ID        uuid.UUID `json:"id" db:"id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// NewBaseModel 创建新的基础模型
func NewBaseModel() BaseModel {
	now := time.Now()
	return BaseModel{
		ID:        uuid.New(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CapacityRule 每日接单容量规则
type CapacityRule struct {
	NormalMax    int `json:"normal_max" yaml:"normal_max"`       // 普通模式每日上限
	EmergencyMax int `json:"emergency_max" yaml:"emergency_max"` // 紧急模式每日上限（绝对上限）
}

// DefaultCapacityRule 返回默认容量规则：普通2单，紧急3单
func DefaultCapacityRule() CapacityRule {
	return CapacityRule{
		NormalMax:    2,
		EmergencyMax: 3,
	}
}

// Limit 返回对应模式下的每日上限
func (c CapacityRule) Limit(emergency bool) int {
	if emergency {
		return c.EmergencyMax
	}
	return c.NormalMax
}
