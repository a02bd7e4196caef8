package metrics

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weixiu/weixiu/pkg/dispatcher"
)

func TestCollector_Observe(t *testing.T) {
	c := New()

	c.ObserveCommit(dispatcher.CommitAccepted)
	c.ObserveCommit(dispatcher.CommitAccepted)
	c.ObserveCommit(dispatcher.CommitBumped)
	c.ObserveSelection(3, 1, 5*time.Millisecond)
	c.ObserveHTTP(http.MethodPost, "/api/v1/assignments", 201, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.commitTotal.WithLabelValues(dispatcher.CommitAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.commitTotal.WithLabelValues(dispatcher.CommitBumped)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.selectionTotal.WithLabelValues("3")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.httpRequests.WithLabelValues("POST", "/api/v1/assignments", "201")))
}

func TestCollector_Handler(t *testing.T) {
	c := New()
	c.ObserveCommit(dispatcher.CommitRejected)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `weixiu_assignment_commits_total{outcome="rejected"} 1`), body)
}

func TestCollectors_Independent(t *testing.T) {
	// 每个采集器使用独立注册表，重复创建不会冲突
	a, b := New(), New()
	a.ObserveCommit(dispatcher.CommitFailed)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.commitTotal.WithLabelValues(dispatcher.CommitFailed)))
}

func TestCollector_RegisterDB(t *testing.T) {
	// sql.Open 不建立连接，连接池指标可直接采集
	db, err := sql.Open("postgres", "host=127.0.0.1 dbname=weixiu sslmode=disable")
	require.NoError(t, err)
	defer db.Close()

	c := New()
	require.NoError(t, c.RegisterDB(db, "weixiu"))
	assert.Error(t, c.RegisterDB(db, "weixiu"), "duplicate registration")

	n, err := testutil.GatherAndCount(c.Registry(), "go_sql_open_connections", "go_sql_max_open_connections")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
