package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/weixiu/weixiu/internal/database"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/zeebo/xxh3"
)

const workerColumns = `id, email, name, specialization, is_active, created_at, updated_at`

const assignmentColumns = `id, worker_id, scheduled_date, work_order_ref, required_category,
	is_emergency, status, cancel_reason, cancelled_at, created_at, updated_at`

// Store 基于 PostgreSQL 的派工存储
type Store struct {
	db *database.DB
}

// NewStore 创建 PostgreSQL 存储
func NewStore(db *database.DB) *Store {
	return &Store{db: db}
}

// View 在只读快照事务中执行
func (s *Store) View(ctx context.Context, fn func(dispatcher.Reader) error) error {
	return s.db.ReadOnly(ctx, func(tx *database.Tx) error {
		return fn(&pgTx{db: tx})
	})
}

// Update 在读写事务中执行，fn 返回错误时回滚
func (s *Store) Update(ctx context.Context, fn func(dispatcher.Writer) error) error {
	return s.db.Transaction(ctx, func(tx *database.Tx) error {
		return fn(&pgTx{db: tx})
	})
}

// SaveWorker 新增或更新维修工
func (s *Store) SaveWorker(ctx context.Context, w *model.Worker) error {
	return saveWorker(ctx, s.db, w)
}

// pgTx 事务内的查询
type pgTx struct {
	db DB
}

// GetActiveWorkers 查询在岗维修工
func (t *pgTx) GetActiveWorkers(ctx context.Context, categories []model.Category) ([]*model.Worker, error) {
	query := `SELECT ` + workerColumns + `
		FROM workers
		WHERE is_active AND ($1::text[] IS NULL OR specialization = ANY($1))
		ORDER BY name, id`

	rows, err := t.db.QueryContext(ctx, query, pq.Array(categoryStrings(categories)))
	if err != nil {
		return nil, mapError(err, "查询在岗维修工失败")
	}
	defer rows.Close()

	var workers []*model.Worker
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, mapError(err, "读取维修工失败")
		}
		workers = append(workers, w)
	}
	return workers, mapError(rows.Err(), "读取维修工失败")
}

// GetWorker 查询维修工，不存在时返回 nil, nil
func (t *pgTx) GetWorker(ctx context.Context, id uuid.UUID) (*model.Worker, error) {
	query := `SELECT ` + workerColumns + ` FROM workers WHERE id = $1`

	w, err := scanWorker(t.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "查询维修工失败")
	}
	return w, nil
}

// GetActiveAssignments 查询维修工在日期范围内进行中的派工
func (t *pgTx) GetActiveAssignments(ctx context.Context, workerID uuid.UUID, r model.DateRange) ([]*model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE worker_id = $1 AND status = 'active' AND scheduled_date BETWEEN $2 AND $3
		ORDER BY scheduled_date, created_at, id`

	return t.queryAssignments(ctx, query, workerID, r.Start, r.End)
}

// GetActiveAssignmentsOnDate 查询全系统当日进行中的派工
func (t *pgTx) GetActiveAssignmentsOnDate(ctx context.Context, date model.Date) ([]*model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + `
		FROM assignments
		WHERE scheduled_date = $1 AND status = 'active'
		ORDER BY worker_id, created_at, id`

	return t.queryAssignments(ctx, query, date)
}

// LockWorkerDate 获取事务级咨询锁，跨进程串行化同一 (维修工, 日期) 的提交
func (t *pgTx) LockWorkerDate(ctx context.Context, workerID uuid.UUID, date model.Date) error {
	if _, err := t.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, advisoryKey(workerID, date)); err != nil {
		return mapError(err, "锁定维修工日期失败")
	}
	return nil
}

// AppendAssignment 新增派工
func (t *pgTx) AppendAssignment(ctx context.Context, a *model.Assignment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	query := `
		INSERT INTO assignments (
			id, worker_id, scheduled_date, work_order_ref, required_category,
			is_emergency, status, cancel_reason, cancelled_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := t.db.ExecContext(ctx, query,
		a.ID, a.WorkerID, a.ScheduledDate, a.WorkOrderRef, a.RequiredCategory,
		a.IsEmergency, a.Status, a.CancelReason, a.CancelledAt, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return mapError(err, "创建派工失败")
	}
	return nil
}

// CancelAssignment 取消进行中的派工
func (t *pgTx) CancelAssignment(ctx context.Context, id uuid.UUID, reason string, at time.Time) error {
	query := `
		UPDATE assignments
		SET status = 'cancelled', cancel_reason = $2, cancelled_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'active'
	`

	res, err := t.db.ExecContext(ctx, query, id, reason, at)
	if err != nil {
		return mapError(err, "取消派工失败")
	}
	if n, err := res.RowsAffected(); err != nil {
		return mapError(err, "取消派工失败")
	} else if n == 0 {
		return apperrors.NotFound("进行中的派工", id.String())
	}
	return nil
}

func (t *pgTx) queryAssignments(ctx context.Context, query string, args ...interface{}) ([]*model.Assignment, error) {
	rows, err := t.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mapError(err, "查询派工失败")
	}
	defer rows.Close()

	var out []*model.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, mapError(err, "读取派工失败")
		}
		out = append(out, a)
	}
	return out, mapError(rows.Err(), "读取派工失败")
}

func saveWorker(ctx context.Context, db DB, w *model.Worker) error {
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	now := time.Now()
	if w.CreatedAt.IsZero() {
		w.CreatedAt = now
	}
	w.UpdatedAt = now

	query := `
		INSERT INTO workers (id, email, name, specialization, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			specialization = EXCLUDED.specialization,
			is_active = EXCLUDED.is_active,
			updated_at = EXCLUDED.updated_at
	`

	_, err := db.ExecContext(ctx, query,
		w.ID, w.Email, w.Name, w.Specialization, w.IsActive, w.CreatedAt, w.UpdatedAt,
	)
	return mapError(err, "保存维修工失败")
}

func scanWorker(s Scanner) (*model.Worker, error) {
	var w model.Worker
	err := s.Scan(&w.ID, &w.Email, &w.Name, &w.Specialization, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func scanAssignment(s Scanner) (*model.Assignment, error) {
	var a model.Assignment
	var cancelledAt sql.NullTime
	err := s.Scan(
		&a.ID, &a.WorkerID, &a.ScheduledDate, &a.WorkOrderRef, &a.RequiredCategory,
		&a.IsEmergency, &a.Status, &a.CancelReason, &cancelledAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if cancelledAt.Valid {
		a.CancelledAt = &cancelledAt.Time
	}
	return &a, nil
}

func categoryStrings(categories []model.Category) []string {
	if len(categories) == 0 {
		return nil
	}
	out := make([]string, len(categories))
	for i, c := range categories {
		out[i] = string(c)
	}
	return out
}

// advisoryKey 将 (维修工, 日期) 哈希为咨询锁键
func advisoryKey(workerID uuid.UUID, date model.Date) int64 {
	return int64(xxh3.HashString(workerID.String() + "|" + date.String()))
}
