package availability

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/weixiu/weixiu/pkg/model"
)

// newWorker 按日期偏移创建进行中的派工，counts[i] 为 base+i 当天的单数
func newWorker(base model.Date, counts ...int) *model.Worker {
	w := &model.Worker{
		BaseModel:      model.BaseModel{ID: uuid.New()},
		Name:           "测试维修工",
		Specialization: model.CategoryPlumbing,
		IsActive:       true,
	}
	for i, n := range counts {
		for j := 0; j < n; j++ {
			w.Assignments = append(w.Assignments,
				model.NewAssignment(w.ID, base.AddDays(i), uuid.NewString(), model.CategoryPlumbing, false))
		}
	}
	return w
}

func TestCalculator_BookedDates(t *testing.T) {
	calc := DefaultCalculator()
	base := model.MustParseDate("2025-01-13")
	// 13:1单 14:2单 15:3单 16:0单
	w := newWorker(base, 1, 2, 3, 0)
	end := base.AddDays(3)

	normal := calc.BookedDates(w, base, end, false)
	if len(normal) != 2 || normal[0] != base.AddDays(1) || normal[1] != base.AddDays(2) {
		t.Errorf("normal BookedDates = %v, expected [14 15]", normal)
	}

	emergency := calc.BookedDates(w, base, end, true)
	if len(emergency) != 1 || emergency[0] != base.AddDays(2) {
		t.Errorf("emergency BookedDates = %v, expected [15]", emergency)
	}

	partial := calc.PartiallyBookedDates(w, base, end, false)
	if len(partial) != 1 || partial[0] != base {
		t.Errorf("PartiallyBookedDates = %v, expected [13]", partial)
	}
}

func TestCalculator_IgnoresInactiveAssignments(t *testing.T) {
	calc := DefaultCalculator()
	day := model.MustParseDate("2025-01-15")
	w := newWorker(day, 2)
	w.Assignments[0].Status = model.AssignmentCompleted

	if booked := calc.BookedDates(w, day, day, false); len(booked) != 0 {
		t.Errorf("completed assignment should not count, booked=%v", booked)
	}
	if partial := calc.PartiallyBookedDates(w, day, day, false); len(partial) != 1 {
		t.Errorf("expected 1 partially booked date, got %v", partial)
	}
}

func TestCalculator_EmergencyBookedSubsetOfNormal(t *testing.T) {
	calc := DefaultCalculator()
	base := model.MustParseDate("2025-03-01")
	w := newWorker(base, 0, 1, 2, 3, 2, 1, 4, 0, 2)
	end := base.AddDays(8)

	normal := toSet(calc.BookedDates(w, base, end, false))
	for _, d := range calc.BookedDates(w, base, end, true) {
		if !normal[d] {
			t.Errorf("emergency booked date %s missing from normal booked dates", d)
		}
	}

	for _, mode := range []bool{false, true} {
		booked := toSet(calc.BookedDates(w, base, end, mode))
		for _, d := range calc.PartiallyBookedDates(w, base, end, mode) {
			if booked[d] {
				t.Errorf("date %s is both booked and partially booked (emergency=%v)", d, mode)
			}
		}
	}
}

func TestCalculator_NextFullyAvailableDate(t *testing.T) {
	calc := DefaultCalculator()
	base := model.MustParseDate("2025-01-15")

	tests := []struct {
		name     string
		counts   []int
		horizon  int
		expected int // 偏移天数，-1 表示 nil
	}{
		{"当天空闲", []int{0, 1}, 5, 0},
		{"部分占用也不算空闲", []int{1, 1, 0}, 5, 2},
		{"范围边界命中", []int{2, 2, 2}, 3, 3},
		{"范围内找不到", []int{1, 1, 1, 1}, 3, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorker(base, tt.counts...)
			got := calc.NextFullyAvailableDate(w, base, tt.horizon)
			if tt.expected < 0 {
				if got != nil {
					t.Errorf("expected nil, got %s", got)
				}
				return
			}
			if got == nil || *got != base.AddDays(tt.expected) {
				t.Errorf("NextFullyAvailableDate = %v, expected %s", got, base.AddDays(tt.expected))
			}
		})
	}
}

func TestCalculator_AvailabilityScoreForDate(t *testing.T) {
	calc := NewCalculator(model.DefaultCapacityRule(), 10)
	target := model.MustParseDate("2025-01-15")
	window := model.NewDateRange(target, 14)

	free := newWorker(target, 0, 1)
	if got := calc.AvailabilityScoreForDate(free, target, window); got != 1 {
		t.Errorf("free target with 1 job later: score = %d, expected 1", got)
	}

	waitTwo := newWorker(target, 1, 2, 0)
	if got := calc.AvailabilityScoreForDate(waitTwo, target, window); got != 203 {
		t.Errorf("two-day wait with 3 jobs: score = %d, expected 203", got)
	}

	saturated := newWorker(target, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1)
	if got := calc.AvailabilityScoreForDate(saturated, target, window); got != 11*ScoreDayWeight+12 {
		t.Errorf("no free day in horizon: score = %d, expected %d", got, 11*ScoreDayWeight+12)
	}
}

func TestScore_MonotonicInDays(t *testing.T) {
	for workload := 0; workload < 5; workload++ {
		prev := Score(0, workload)
		for days := 1; days < 40; days++ {
			cur := Score(days, workload)
			if cur < prev {
				t.Fatalf("score decreased: days=%d workload=%d", days, workload)
			}
			prev = cur
		}
	}
}

func TestCalculator_Summarize(t *testing.T) {
	calc := DefaultCalculator()
	target := model.MustParseDate("2025-01-15")
	w := newWorker(target, 2, 1, 0)

	s := calc.Summarize(w, target, model.NewDateRange(target, 7), false)

	if s.WorkerID != w.ID {
		t.Error("summary should carry worker id")
	}
	if len(s.BookedDates) != 1 || len(s.PartiallyBookedDates) != 1 {
		t.Errorf("unexpected summary dates: %+v", s)
	}
	if s.NextFullyAvailableDate == nil || *s.NextFullyAvailableDate != target.AddDays(2) {
		t.Errorf("NextFullyAvailableDate = %v", s.NextFullyAvailableDate)
	}
	if s.AvailabilityScore != 203 || s.Workload != 3 {
		t.Errorf("score=%d workload=%d, expected 203/3", s.AvailabilityScore, s.Workload)
	}
}

func TestCalculator_ConcurrentReads(t *testing.T) {
	calc := DefaultCalculator()
	target := model.MustParseDate("2025-01-15")
	w := newWorker(target, 2, 1, 0, 3)
	window := model.NewDateRange(target, 7)
	expected := calc.Summarize(w, target, window, true)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got := calc.Summarize(w, target, window, true)
			if got.AvailabilityScore != expected.AvailabilityScore {
				t.Errorf("concurrent summarize mismatch: %d vs %d", got.AvailabilityScore, expected.AvailabilityScore)
			}
		}()
	}
	wg.Wait()

	if len(w.Assignments) != 6 {
		t.Errorf("calculator must not mutate assignments, got %d", len(w.Assignments))
	}
}

func toSet(dates []model.Date) map[model.Date]bool {
	out := make(map[model.Date]bool, len(dates))
	for _, d := range dates {
		out[d] = true
	}
	return out
}
