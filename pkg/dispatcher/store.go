package dispatcher

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/weixiu/weixiu/pkg/model"
)

// Reader 一致性快照内的只读访问
type Reader interface {
	// GetActiveWorkers 返回在岗维修工，categories 为空时不限工种
	GetActiveWorkers(ctx context.Context, categories []model.Category) ([]*model.Worker, error)
	// GetWorker 返回维修工（不含派工记录），不存在时返回 nil, nil
	GetWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error)
	// GetActiveAssignments 返回维修工在日期范围内进行中的派工
	GetActiveAssignments(ctx context.Context, workerID uuid.UUID, r model.DateRange) ([]*model.Assignment, error)
	// GetActiveAssignmentsOnDate 返回全系统当日进行中的派工
	GetActiveAssignmentsOnDate(ctx context.Context, date model.Date) ([]*model.Assignment, error)
}

// Writer 事务内的读写访问，事务函数返回错误时全部回滚
type Writer interface {
	Reader
	// LockWorkerDate 在存储层锁定 (维修工, 日期)，直到事务结束
	LockWorkerDate(ctx context.Context, workerID uuid.UUID, date model.Date) error
	// AppendAssignment 新增派工，工单引用已有进行中派工时返回 ALREADY_EXISTS
	AppendAssignment(ctx context.Context, a *model.Assignment) error
	// CancelAssignment 取消进行中的派工
	CancelAssignment(ctx context.Context, id uuid.UUID, reason string, at time.Time) error
}

// Store 维修工与派工的存储
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error
	Update(ctx context.Context, fn func(Writer) error) error
}

// Notifier 派工事件的下游通知
type Notifier interface {
	AssignmentCommitted(ctx context.Context, a *model.Assignment) error
	AssignmentBumped(ctx context.Context, bumped, by *model.Assignment) error
}

// Observer 调度指标采集
type Observer interface {
	ObserveSelection(tier, candidates int, elapsed time.Duration)
	ObserveCommit(outcome string)
}

type nopNotifier struct{}

func (nopNotifier) AssignmentCommitted(context.Context, *model.Assignment) error { return nil }
func (nopNotifier) AssignmentBumped(context.Context, *model.Assignment, *model.Assignment) error {
	return nil
}

type nopObserver struct{}

func (nopObserver) ObserveSelection(int, int, time.Duration) {}
func (nopObserver) ObserveCommit(string)                     {}
