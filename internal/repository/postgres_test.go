package repository

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weixiu/weixiu/internal/config"
	"github.com/weixiu/weixiu/internal/database"
	"github.com/weixiu/weixiu/pkg/dispatcher"
	apperrors "github.com/weixiu/weixiu/pkg/errors"
	"github.com/weixiu/weixiu/pkg/model"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected apperrors.Code
	}{
		{"唯一约束", &pq.Error{Code: pgUniqueViolation}, apperrors.CodeAlreadyExists},
		{"外键约束", &pq.Error{Code: pgForeignKeyViolation}, apperrors.CodeNotFound},
		{"其他驱动错误", &pq.Error{Code: "42P01"}, apperrors.CodeDatabaseError},
		{"超时", fmt.Errorf("query: %w", context.DeadlineExceeded), apperrors.CodeTimeout},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, apperrors.GetCode(mapError(tt.err, "x")))
		})
	}
	assert.NoError(t, mapError(nil, "x"))
}

func TestAdvisoryKey(t *testing.T) {
	w := uuid.New()
	assert.Equal(t, advisoryKey(w, day), advisoryKey(w, day))
	assert.NotEqual(t, advisoryKey(w, day), advisoryKey(w, day.AddDays(1)))
}

func TestCategoryStrings(t *testing.T) {
	assert.Nil(t, categoryStrings(nil))
	assert.Equal(t, []string{"plumbing", "general_maintenance"},
		categoryStrings([]model.Category{model.CategoryPlumbing, model.CategoryGeneralMaintenance}))
}

// newPostgresStore 需要设置 WEIXIU_TEST_DSN，每次测试使用独立的数据
func newPostgresStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("WEIXIU_TEST_DSN")
	if dsn == "" {
		t.Skip("WEIXIU_TEST_DSN 未设置，跳过数据库测试")
	}
	db, err := database.New(&config.DatabaseConfig{URL: dsn, MaxOpenConns: 8, MaxIdleConns: 2, ConnMaxLifetime: time.Minute})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Migrate(context.Background()))
	return NewStore(db)
}

func TestPostgresStore_RoundTrip(t *testing.T) {
	s := newPostgresStore(t)
	ctx := context.Background()

	w := &model.Worker{
		Name:           "pg-" + uuid.NewString()[:8],
		Email:          uuid.NewString() + "@example.com",
		Specialization: model.CategoryHVAC,
		IsActive:       true,
	}
	require.NoError(t, s.SaveWorker(ctx, w))

	ref := "WO-" + uuid.NewString()
	a := model.NewAssignment(w.ID, day, ref, model.CategoryHVAC, false)
	require.NoError(t, s.Update(ctx, func(tx dispatcher.Writer) error {
		require.NoError(t, tx.LockWorkerDate(ctx, w.ID, day))
		return tx.AppendAssignment(ctx, a)
	}))

	err := s.Update(ctx, func(tx dispatcher.Writer) error {
		return tx.AppendAssignment(ctx, model.NewAssignment(w.ID, day, ref, model.CategoryHVAC, false))
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeAlreadyExists), "got %v", err)

	require.NoError(t, s.View(ctx, func(r dispatcher.Reader) error {
		got, err := r.GetWorker(ctx, w.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, model.CategoryHVAC, got.Specialization)

		list, err := r.GetActiveAssignments(ctx, w.ID, model.NewDateRange(day, 0))
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, day, list[0].ScheduledDate)
		assert.Equal(t, ref, list[0].WorkOrderRef)
		return nil
	}))

	require.NoError(t, s.Update(ctx, func(tx dispatcher.Writer) error {
		return tx.CancelAssignment(ctx, a.ID, "test", time.Now())
	}))
	err = s.Update(ctx, func(tx dispatcher.Writer) error {
		return tx.CancelAssignment(ctx, a.ID, "test", time.Now())
	})
	assert.True(t, apperrors.Is(err, apperrors.CodeNotFound), "got %v", err)
}
