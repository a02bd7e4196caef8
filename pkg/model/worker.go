package model

// Worker 维修工
type Worker struct {
	BaseModel
	Email          string   `json:"email" db:"email"`
	Name           string   `json:"name" db:"name"`
	Specialization Category `json:"specialization" db:"specialization"`
	IsActive       bool     `json:"is_active" db:"is_active"`

	// 派工记录，工作量的唯一来源
	Assignments []*Assignment `json:"assignments,omitempty" db:"-"`
}

// ActiveAssignments 返回所有进行中的派工
func (w *Worker) ActiveAssignments() []*Assignment {
	var out []*Assignment
	for _, a := range w.Assignments {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// ActiveOn 返回指定日期进行中的派工
func (w *Worker) ActiveOn(date Date) []*Assignment {
	var out []*Assignment
	for _, a := range w.Assignments {
		if a.IsActive() && a.ScheduledDate == date {
			out = append(out, a)
		}
	}
	return out
}

// ActiveCountOn 返回指定日期进行中的派工数
func (w *Worker) ActiveCountOn(date Date) int {
	n := 0
	for _, a := range w.Assignments {
		if a.IsActive() && a.ScheduledDate == date {
			n++
		}
	}
	return n
}

// ActiveCountsByDate 按日期统计范围内进行中的派工数
func (w *Worker) ActiveCountsByDate(r DateRange) map[Date]int {
	counts := make(map[Date]int)
	for _, a := range w.Assignments {
		if a.IsActive() && r.Contains(a.ScheduledDate) {
			counts[a.ScheduledDate]++
		}
	}
	return counts
}
