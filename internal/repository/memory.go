package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
)

// MemoryStore 内存存储，用于开发模式和测试
// 读取返回副本；Update 期间持有写锁，事务内的写入先暂存，成功后一次性生效
type MemoryStore struct {
	mu          sync.RWMutex
	workers     map[uuid.UUID]*model.Worker
	assignments []*model.Assignment
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workers: make(map[uuid.UUID]*model.Worker),
	}
}

// SaveWorker 新增或更新维修工，Assignments 中的派工一并写入
func (s *MemoryStore) SaveWorker(ctx context.Context, w *model.Worker) error {
	if err := ctx.Err(); err != nil {
		return apperrors.Wrap(err, apperrors.CodeTimeout, "保存维修工失败")
	}
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *w
	cp.Assignments = nil
	s.workers[w.ID] = &cp
	for _, a := range w.Assignments {
		ac := *a
		ac.WorkerID = w.ID
		s.assignments = append(s.assignments, &ac)
	}
	return nil
}

// Assignments 返回所有派工的副本（含已取消）
func (s *MemoryStore) Assignments() []*model.Assignment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Assignment, len(s.assignments))
	for i, a := range s.assignments {
		out[i] = copyAssignment(a)
	}
	return out
}

// View 持有读锁执行
func (s *MemoryStore) View(ctx context.Context, fn func(dispatcher.Reader) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&memTx{store: s})
}

// Update 持有写锁执行，fn 成功且上下文未取消时才应用暂存的写入
func (s *MemoryStore) Update(ctx context.Context, fn func(dispatcher.Writer) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memTx{store: s, cancels: make(map[uuid.UUID]cancellation)}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for _, a := range s.assignments {
		if c, ok := tx.cancels[a.ID]; ok {
			a.Cancel(c.reason, c.at)
		}
	}
	s.assignments = append(s.assignments, tx.appended...)
	return nil
}

type cancellation struct {
	reason string
	at     time.Time
}

// memTx 调用方已持有 store 的锁
type memTx struct {
	store    *MemoryStore
	appended []*model.Assignment
	cancels  map[uuid.UUID]cancellation
}

func (t *memTx) GetActiveWorkers(ctx context.Context, categories []model.Category) ([]*model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	want := make(map[model.Category]bool, len(categories))
	for _, c := range categories {
		want[c] = true
	}

	var out []*model.Worker
	for _, w := range t.store.workers {
		if !w.IsActive {
			continue
		}
		if len(want) > 0 && !want[w.Specialization] {
			continue
		}
		cp := *w
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

func (t *memTx) GetWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	w, ok := t.store.workers[id]
	if !ok {
		return nil, nil
	}
	cp := *w
	return &cp, nil
}

func (t *memTx) GetActiveAssignments(ctx context.Context, workerID uuid.UUID, r model.DateRange) ([]*model.Assignment, error) {
	return t.active(ctx, func(a *model.Assignment) bool {
		return a.WorkerID == workerID && r.Contains(a.ScheduledDate)
	})
}

func (t *memTx) GetActiveAssignmentsOnDate(ctx context.Context, date model.Date) ([]*model.Assignment, error) {
	return t.active(ctx, func(a *model.Assignment) bool {
		return a.ScheduledDate == date
	})
}

// LockWorkerDate Update 已持有全局写锁
func (t *memTx) LockWorkerDate(ctx context.Context, _ uuid.UUID, _ model.Date) error {
	return ctx.Err()
}

func (t *memTx) AppendAssignment(ctx context.Context, a *model.Assignment) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, ok := t.store.workers[a.WorkerID]; !ok {
		return apperrors.NotFound("维修工", a.WorkerID.String())
	}
	if a.IsActive() && t.activeRefExists(a.WorkOrderRef) {
		return apperrors.New(apperrors.CodeAlreadyExists, "工单已有进行中的派工").
			WithField("work_order_ref", a.WorkOrderRef)
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	t.appended = append(t.appended, copyAssignment(a))
	return nil
}

func (t *memTx) CancelAssignment(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, a := range t.store.assignments {
		if a.ID == id && a.IsActive() {
			if _, done := t.cancels[id]; !done {
				t.cancels[id] = cancellation{reason: reason, at: at}
				return nil
			}
		}
	}
	return apperrors.NotFound("进行中的派工", id.String())
}

func (t *memTx) active(ctx context.Context, match func(*model.Assignment) bool) ([]*model.Assignment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*model.Assignment
	for _, a := range t.visible() {
		if a.IsActive() && match(a) {
			out = append(out, a)
		}
	}
	return out, nil
}

// visible 返回事务视角下的派工副本（含暂存的写入）
func (t *memTx) visible() []*model.Assignment {
	out := make([]*model.Assignment, 0, len(t.store.assignments)+len(t.appended))
	for _, a := range t.store.assignments {
		cp := copyAssignment(a)
		if c, ok := t.cancels[a.ID]; ok {
			cp.Cancel(c.reason, c.at)
		}
		out = append(out, cp)
	}
	for _, a := range t.appended {
		out = append(out, copyAssignment(a))
	}
	return out
}

func (t *memTx) activeRefExists(ref string) bool {
	for _, a := range t.visible() {
		if a.IsActive() && a.WorkOrderRef == ref {
			return true
		}
	}
	return false
}

func copyAssignment(a *model.Assignment) *model.Assignment {
	cp := *a
	if a.CancelledAt != nil {
		at := *a.CancelledAt
		cp.CancelledAt = &at
	}
	return &cp
}
