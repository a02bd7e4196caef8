// Package constraints 派工规则库
package constraints

import (
	"strconv"

	"github.com/weixiu/weixiu/pkg/dispatcher"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/validator"
)

// 规则类型
const (
	TypeHard = "hard" // 硬约束，违反即拒绝派工
	TypeSoft = "soft" // 软约束，仅影响候选人排序
)

// RuleParam 规则参数
type RuleParam struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // int, string, bool
	Description string `json:"description"`
	Value       string `json:"value"`
}

// RuleDefinition 规则定义
type RuleDefinition struct {
	Name        string      `json:"name"`
	DisplayName string      `json:"display_name"`
	Type        string      `json:"type"`
	Order       int         `json:"order"` // 硬约束按顺序校验，首个失败即返回
	Reason      string      `json:"reason,omitempty"`
	ErrorCode   string      `json:"error_code,omitempty"`
	Description string      `json:"description"`
	Params      []RuleParam `json:"params,omitempty"`
}

// LibraryResponse 规则库响应
type LibraryResponse struct {
	Library []RuleDefinition `json:"library"`
}

// GetLibrary 按当前容量配置生成规则库
func GetLibrary(capacity model.CapacityRule) []RuleDefinition {
	return []RuleDefinition{
		// =====================================================
		// 硬约束
		// =====================================================
		{
			Name:        "specialization_match",
			DisplayName: "工种匹配",
			Type:        TypeHard,
			Order:       1,
			Reason:      string(validator.ReasonSpecializationMismatch),
			ErrorCode:   string(apperrors.CodeSpecializationMismatch),
			Description: "维修工工种须与报修工种一致，综合维修工可承接任意工种",
		},
		{
			Name:        "daily_capacity",
			DisplayName: "每日派工上限",
			Type:        TypeHard,
			Order:       2,
			Reason:      string(validator.ReasonCapacityExceeded),
			ErrorCode:   string(apperrors.CodeCapacityExceeded),
			Description: "普通派工时，维修工当日有效派工数须低于上限",
			Params: []RuleParam{
				intParam("normal_max", "普通模式每日上限", capacity.NormalMax),
			},
		},
		{
			Name:        "emergency_override",
			DisplayName: "紧急派工挤占",
			Type:        TypeHard,
			Order:       3,
			Reason:      string(validator.ReasonCapacityExceeded),
			ErrorCode:   string(apperrors.CodeCapacityExceeded),
			Description: "紧急派工在普通上限已满时取消当日一条非紧急派工，达到绝对上限后拒绝",
			Params: []RuleParam{
				intParam("normal_max", "普通模式每日上限", capacity.NormalMax),
				intParam("emergency_max", "紧急模式每日上限", capacity.EmergencyMax),
				{Name: "bump_reason", Type: "string", Description: "被挤占派工的取消原因", Value: dispatcher.BumpReason},
			},
		},
		{
			Name:        "no_past_date",
			DisplayName: "禁止过去日期",
			Type:        TypeHard,
			Order:       4,
			Reason:      string(validator.ReasonPastDate),
			ErrorCode:   string(apperrors.CodePastDate),
			Description: "派工日期不得早于今天，按日期比较，不含时刻",
		},

		// =====================================================
		// 软约束（候选人排序）
		// =====================================================
		{
			Name:        "availability_score",
			DisplayName: "可用性评分",
			Type:        TypeSoft,
			Order:       1,
			Description: "评分 = 距下一个完全空闲日的天数 × 100 + 观察期内派工数，越低越优先",
		},
		{
			Name:        "workload_balance",
			DisplayName: "工作量均衡",
			Type:        TypeSoft,
			Order:       2,
			Description: "评分相同时派给观察期内派工较少的维修工，再按姓名排序",
			Params: []RuleParam{
				intParam("look_ahead_days", "默认观察期天数", dispatcher.DefaultLookAheadDays),
			},
		},
	}
}

// HardRules 仅返回硬约束
func HardRules(capacity model.CapacityRule) []RuleDefinition {
	var out []RuleDefinition
	for _, r := range GetLibrary(capacity) {
		if r.Type == TypeHard {
			out = append(out, r)
		}
	}
	return out
}

func intParam(name, desc string, v int) RuleParam {
	return RuleParam{Name: name, Type: "int", Description: desc, Value: strconv.Itoa(v)}
}
