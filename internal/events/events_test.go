package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/weixiu/weixiu/pkg/model"
)

// startEmbeddedNATS 启动进程内 NATS 服务器，测试结束自动关闭
func startEmbeddedNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:  "127.0.0.1",
		Port:  -1,
		NoLog: true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready")
	}

	nc, err := nats.Connect(ns.ClientURL(), nats.Timeout(2*time.Second))
	if err != nil {
		ns.Shutdown()
		t.Fatalf("connect embedded NATS: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestPublisher_AssignmentBumped(t *testing.T) {
	nc := startEmbeddedNATS(t)
	p := NewPublisher(nc, "")

	sub, err := nc.SubscribeSync(DefaultSubjectPrefix + ".>")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	day := model.MustParseDate("2025-01-15")
	worker := uuid.New()
	bumped := model.NewAssignment(worker, day, "WO-1", model.CategoryPlumbing, false)
	bumped.Cancel("emergency_override", time.Now())
	by := model.NewAssignment(worker, day, "WO-E", model.CategoryPlumbing, true)

	require.NoError(t, p.AssignmentBumped(context.Background(), bumped, by))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, "weixiu.assignments.bumped", msg.Subject)

	var ev AssignmentEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, TypeBumped, ev.Type)
	assert.Equal(t, "WO-1", ev.Assignment.WorkOrderRef)
	assert.Equal(t, model.AssignmentCancelled, ev.Assignment.Status)
	assert.Equal(t, day, ev.Assignment.ScheduledDate)
	require.NotNil(t, ev.BumpedBy)
	assert.Equal(t, "WO-E", ev.BumpedBy.WorkOrderRef)
}

func TestPublisher_AssignmentCommitted(t *testing.T) {
	nc := startEmbeddedNATS(t)
	p := NewPublisher(nc, "test.prefix")

	sub, err := nc.SubscribeSync("test.prefix.committed")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	a := model.NewAssignment(uuid.New(), model.MustParseDate("2025-02-01"), "WO-7", model.CategoryHVAC, false)
	require.NoError(t, p.AssignmentCommitted(context.Background(), a))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)

	var ev AssignmentEvent
	require.NoError(t, json.Unmarshal(msg.Data, &ev))
	assert.Equal(t, a.ID, ev.Assignment.ID)
	assert.True(t, p.Healthy())
}

func TestPublisher_CancelledContext(t *testing.T) {
	nc := startEmbeddedNATS(t)
	p := NewPublisher(nc, "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.AssignmentCommitted(ctx, model.NewAssignment(uuid.New(), model.MustParseDate("2025-02-01"), "WO-8", model.CategoryHVAC, false))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNopNotifier(t *testing.T) {
	var n NopNotifier
	assert.NoError(t, n.AssignmentCommitted(context.Background(), nil))
	assert.NoError(t, n.AssignmentBumped(context.Background(), nil, nil))
}
