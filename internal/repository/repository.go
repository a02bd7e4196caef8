// Package repository 提供维修工与派工的数据访问层
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
)

// DB 数据库接口
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Scanner 行扫描接口
type Scanner interface {
	Scan(dest ...interface{}) error
}

// PostgreSQL 错误码
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError 将驱动错误转换为应用错误
func mapError(err error, message string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.Wrap(err, apperrors.CodeTimeout, message)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case pgUniqueViolation:
			return apperrors.Wrap(err, apperrors.CodeAlreadyExists, message).
				WithField("constraint", pqErr.Constraint)
		case pgForeignKeyViolation:
			return apperrors.Wrap(err, apperrors.CodeNotFound, message).
				WithField("constraint", pqErr.Constraint)
		}
	}
	return apperrors.Wrap(err, apperrors.CodeDatabaseError, message)
}
