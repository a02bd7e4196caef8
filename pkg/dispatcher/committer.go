package dispatcher

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
	"github.com/weixiu/weixiu/pkg/validator"
)

// 提交结果（指标标签）
const (
	CommitAccepted = "accepted"
	CommitBumped   = "accepted_with_bump"
	CommitRejected = "rejected"
	CommitFailed   = "failed"
)

// BumpReason 被紧急派工挤占时的取消原因
const BumpReason = "emergency_override"

// CommitRequest 派工提交请求
type CommitRequest struct {
	WorkerID         uuid.UUID      `json:"worker_id"`
	TargetDate       model.Date     `json:"target_date"`
	WorkOrderRef     string         `json:"work_order_ref"`
	RequiredCategory model.Category `json:"required_category"`
	Emergency        bool           `json:"emergency"`
}

// CommitResult 派工提交结果
type CommitResult struct {
	Outcome    validator.Outcome `json:"outcome"`
	Assignment *model.Assignment `json:"assignment"`
	Bumped     *model.Assignment `json:"bumped,omitempty"`
}

// Committer 派工提交器
type Committer struct {
	store     Store
	validator *validator.SchedulingValidator
	opts      options
}

// NewCommitter 创建提交器
func NewCommitter(store Store, v *validator.SchedulingValidator, opts ...Option) *Committer {
	return &Committer{
		store:     store,
		validator: v,
		opts:      buildOptions(opts),
	}
}

// Locks 返回进程内锁表
func (c *Committer) Locks() *KeyedMutex {
	return c.opts.locks
}

// Commit 在实时派工快照上重新校验并提交
// 被拒绝时不做任何修改；插单时新增与取消在同一事务内完成
func (c *Committer) Commit(ctx context.Context, req CommitRequest) (*CommitResult, error) {
	if err := validateCommitRequest(req); err != nil {
		c.opts.observer.ObserveCommit(CommitRejected)
		return nil, err
	}

	log := c.opts.log.With(ctx)
	workerID := req.WorkerID.String()
	date := req.TargetDate.String()

	unlock := c.opts.locks.Lock(req.WorkerID, req.TargetDate)
	defer unlock()

	var result *CommitResult
	err := c.store.Update(ctx, func(tx Writer) error {
		if err := tx.LockWorkerDate(ctx, req.WorkerID, req.TargetDate); err != nil {
			return err
		}

		w, err := tx.GetWorker(ctx, req.WorkerID)
		if err != nil {
			return err
		}
		if w == nil || !w.IsActive {
			return apperrors.WorkerNotFound(workerID)
		}

		live, err := tx.GetActiveAssignmentsOnDate(ctx, req.TargetDate)
		if err != nil {
			return err
		}
		for _, a := range live {
			if a.WorkOrderRef == req.WorkOrderRef {
				return duplicateRef(req.WorkOrderRef, a.WorkerID)
			}
		}

		check := c.validator.Validate(validator.Proposal{
			Worker:           w,
			RequiredCategory: req.RequiredCategory,
			TargetDate:       req.TargetDate,
			Emergency:        req.Emergency,
			ActiveOnDate:     live,
		})
		if !check.Accepted() {
			return check.Err()
		}

		a := model.NewAssignment(req.WorkerID, req.TargetDate, req.WorkOrderRef, req.RequiredCategory, req.Emergency)
		if err := tx.AppendAssignment(ctx, a); err != nil {
			return err
		}

		result = &CommitResult{Outcome: check.Outcome, Assignment: a}

		if check.Outcome == validator.OutcomeAcceptedWithBump {
			bumped := *check.Bumped
			now := time.Now()
			if err := tx.CancelAssignment(ctx, bumped.ID, BumpReason, now); err != nil {
				return err
			}
			bumped.Cancel(BumpReason, now)
			result.Bumped = &bumped
		}
		return nil
	})
	if err != nil {
		if isRejection(err) {
			c.opts.observer.ObserveCommit(CommitRejected)
			log.AssignmentRejected(workerID, date, string(apperrors.GetCode(err)), err.Error())
			return nil, err
		}
		c.opts.observer.ObserveCommit(CommitFailed)
		return nil, wrapStoreErr(err, "提交派工失败")
	}

	log.AssignmentCommitted(workerID, date, req.WorkOrderRef, req.Emergency)
	if err := c.opts.notifier.AssignmentCommitted(ctx, result.Assignment); err != nil {
		log.Warn(err, "派工通知发送失败")
	}

	if result.Bumped != nil {
		c.opts.observer.ObserveCommit(CommitBumped)
		log.AssignmentBumped(workerID, date, result.Bumped.WorkOrderRef, req.WorkOrderRef)
		if err := c.opts.notifier.AssignmentBumped(ctx, result.Bumped, result.Assignment); err != nil {
			log.Warn(err, "挤占通知发送失败")
		}
	} else {
		c.opts.observer.ObserveCommit(CommitAccepted)
	}

	return result, nil
}

func validateCommitRequest(req CommitRequest) error {
	var ve apperrors.ValidationErrors
	if req.WorkerID == uuid.Nil {
		ve.Add("worker_id", "不能为空")
	}
	if req.TargetDate.IsZero() {
		ve.Add("target_date", "不能为空")
	}
	if strings.TrimSpace(req.WorkOrderRef) == "" {
		ve.Add("work_order_ref", "不能为空")
	}
	if !req.RequiredCategory.Valid() {
		ve.Add("required_category", "未知工种")
	}
	if ve.HasErrors() {
		return ve.ToAppError()
	}
	return nil
}

func duplicateRef(ref string, workerID uuid.UUID) error {
	return apperrors.New(apperrors.CodeAlreadyExists, "工单已有进行中的派工").
		WithField("work_order_ref", ref).
		WithField("worker_id", workerID.String())
}

// isRejection 业务规则拒绝（非存储故障）
func isRejection(err error) bool {
	switch apperrors.GetCode(err) {
	case apperrors.CodeSpecializationMismatch,
		apperrors.CodeCapacityExceeded,
		apperrors.CodePastDate,
		apperrors.CodeWorkerNotFound,
		apperrors.CodeAlreadyExists:
		return true
	}
	return false
}
