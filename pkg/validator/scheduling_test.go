package validator

import (
	"testing"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/specialization"
)

var scenarioDate = model.MustParseDate("2025-01-15")

func newValidator(today model.Date) *SchedulingValidator {
	return NewSchedulingValidator(specialization.DefaultCatalog(), model.DefaultCapacityRule(), func() model.Date {
		return today
	})
}

func newWorker(cat model.Category) *model.Worker {
	return &model.Worker{
		BaseModel:      model.BaseModel{ID: uuid.New()},
		Name:           "张师傅",
		Specialization: cat,
		IsActive:       true,
	}
}

func addAssignment(w *model.Worker, date model.Date, ref string, emergency bool, created time.Time) *model.Assignment {
	a := model.NewAssignment(w.ID, date, ref, w.Specialization, emergency)
	a.CreatedAt = created
	w.Assignments = append(w.Assignments, a)
	return a
}

func TestValidate_Scenarios(t *testing.T) {
	v := newValidator(model.MustParseDate("2025-01-10"))
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("普通单当日已满被拒", func(t *testing.T) {
		w := newWorker(model.CategoryPlumbing)
		addAssignment(w, scenarioDate, "WO-1", false, base)
		addAssignment(w, scenarioDate, "WO-2", false, base.Add(time.Hour))

		r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPlumbing, TargetDate: scenarioDate})
		if r.Outcome != OutcomeRejected || r.Reason != ReasonCapacityExceeded {
			t.Fatalf("expected CapacityExceeded rejection, got %+v", r)
		}
		if !apperrors.Is(r.Err(), apperrors.CodeCapacityExceeded) {
			t.Errorf("expected CAPACITY_EXCEEDED error, got %v", r.Err())
		}
	})

	t.Run("紧急单插单取消最近创建的普通单", func(t *testing.T) {
		w := newWorker(model.CategoryPlumbing)
		addAssignment(w, scenarioDate, "WO-1", false, base)
		newer := addAssignment(w, scenarioDate, "WO-2", false, base.Add(time.Hour))

		r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPlumbing, TargetDate: scenarioDate, Emergency: true})
		if r.Outcome != OutcomeAcceptedWithBump {
			t.Fatalf("expected AcceptedWithBump, got %+v", r)
		}
		if r.Bumped != newer {
			t.Errorf("expected most recently created assignment to be bumped, got %s", r.Bumped.WorkOrderRef)
		}
		if r.Err() != nil {
			t.Errorf("accepted result should not carry an error: %v", r.Err())
		}
		// 校验只给出结论，不修改状态
		if !newer.IsActive() {
			t.Error("validator must not cancel assignments")
		}
	})

	t.Run("紧急上限3单不可突破", func(t *testing.T) {
		w := newWorker(model.CategoryPlumbing)
		addAssignment(w, scenarioDate, "WO-1", false, base)
		addAssignment(w, scenarioDate, "WO-2", false, base)
		addAssignment(w, scenarioDate, "WO-3", true, base)

		r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPlumbing, TargetDate: scenarioDate, Emergency: true})
		if r.Outcome != OutcomeRejected || r.Reason != ReasonCapacityExceeded {
			t.Fatalf("expected CapacityExceeded, got %+v", r)
		}
		if r.Limit != 3 || r.Active != 3 {
			t.Errorf("expected 3/3, got %d/%d", r.Active, r.Limit)
		}
	})

	t.Run("综合维修工可承接水电单", func(t *testing.T) {
		cat := specialization.DefaultCatalog().Categorize("", "leaking kitchen faucet")
		if cat != model.CategoryPlumbing {
			t.Fatalf("expected plumbing, got %s", cat)
		}
		w := newWorker(model.CategoryGeneralMaintenance)
		r := v.Validate(Proposal{Worker: w, RequiredCategory: cat, TargetDate: scenarioDate})
		if r.Outcome != OutcomeAccepted {
			t.Errorf("expected Accepted, got %+v", r)
		}
	})
}

func TestValidate_RuleOrder(t *testing.T) {
	v := newValidator(model.MustParseDate("2025-01-20"))
	w := newWorker(model.CategoryElectrical)
	addAssignment(w, scenarioDate, "WO-1", false, time.Now())
	addAssignment(w, scenarioDate, "WO-2", false, time.Now())

	// 工种、容量、日期同时违反时，工种优先
	r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPlumbing, TargetDate: scenarioDate})
	if r.Reason != ReasonSpecializationMismatch {
		t.Errorf("expected specialization mismatch first, got %s", r.Reason)
	}

	// 容量先于日期
	r = v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryElectrical, TargetDate: scenarioDate})
	if r.Reason != ReasonCapacityExceeded {
		t.Errorf("expected capacity before past date, got %s", r.Reason)
	}

	// 只剩日期问题
	r = v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryElectrical, TargetDate: scenarioDate.AddDays(1)})
	if r.Reason != ReasonPastDate {
		t.Errorf("expected past date, got %s", r.Reason)
	}
	if !apperrors.Is(r.Err(), apperrors.CodePastDate) {
		t.Errorf("expected PAST_DATE error, got %v", r.Err())
	}
}

func TestValidate_DateOnly(t *testing.T) {
	today := model.MustParseDate("2025-01-15")
	v := newValidator(today)
	w := newWorker(model.CategoryHVAC)

	tests := []struct {
		name     string
		date     model.Date
		expected Outcome
	}{
		{"当天可以派工", today, OutcomeAccepted},
		{"明天可以派工", today.AddDays(1), OutcomeAccepted},
		{"昨天不可派工", today.AddDays(-1), OutcomeRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryHVAC, TargetDate: tt.date})
			if r.Outcome != tt.expected {
				t.Errorf("expected %s, got %s (%s)", tt.expected, r.Outcome, r.Detail)
			}
		})
	}
}

func TestValidate_EmergencyWithoutBumpCandidate(t *testing.T) {
	v := newValidator(scenarioDate)
	w := newWorker(model.CategoryLocksmith)
	addAssignment(w, scenarioDate, "WO-1", true, time.Now())
	addAssignment(w, scenarioDate, "WO-2", true, time.Now())

	r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryLocksmith, TargetDate: scenarioDate, Emergency: true})
	if r.Outcome != OutcomeAccepted || r.Bumped != nil {
		t.Errorf("expected plain accept into third slot, got %+v", r)
	}
}

func TestValidate_UsesSystemWideSnapshot(t *testing.T) {
	v := newValidator(scenarioDate)
	w := newWorker(model.CategoryPainting)
	other := newWorker(model.CategoryPainting)

	// Worker.Assignments 为空，实时快照里有该维修工两单和他人一单
	live := []*model.Assignment{
		model.NewAssignment(w.ID, scenarioDate, "WO-1", model.CategoryPainting, false),
		model.NewAssignment(w.ID, scenarioDate, "WO-2", model.CategoryPainting, false),
		model.NewAssignment(other.ID, scenarioDate, "WO-3", model.CategoryPainting, false),
	}

	r := v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPainting, TargetDate: scenarioDate, ActiveOnDate: live})
	if r.Reason != ReasonCapacityExceeded {
		t.Fatalf("expected capacity exceeded from live snapshot, got %+v", r)
	}

	r = v.Validate(Proposal{Worker: w, RequiredCategory: model.CategoryPainting, TargetDate: scenarioDate, Emergency: true, ActiveOnDate: live})
	if r.Bumped == nil || r.Bumped.WorkerID != w.ID {
		t.Errorf("bumped assignment must belong to the same worker, got %+v", r.Bumped)
	}
}

func TestPickBump_TieBreak(t *testing.T) {
	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w := newWorker(model.CategoryPlumbing)
	addAssignment(w, scenarioDate, "WO-B", false, at)
	addAssignment(w, scenarioDate, "WO-A", false, at)
	addAssignment(w, scenarioDate, "WO-E", true, at.Add(time.Hour))

	got := pickBump(w.Assignments)
	if got == nil || got.WorkOrderRef != "WO-A" {
		t.Errorf("expected WO-A, got %v", got)
	}
}
