package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kasuganosora/textadventure/server/game/session"
	"github.com/kasuganosora/textadventure/server/model"
	"github.com/kasuganosora/textadventure/server/testutil"
)

func TestLog_EnqueuedAndFlushed(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	accountID := int64(2)
	svc.Log(Entry{
		TraceID:    "trace-123",
		SessionID:  "s-1",
		CharID:     "c-1",
		AccountID:  &accountID,
		CharName:   "Alice",
		Action:     "damage",
		Request:    map[string]int{"amount": 30},
		Response:   map[string]bool{"dead": false},
		IP:         "127.0.0.1",
		SceneID:    "village",
		DurationMs: 42,
	})

	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "trace-123", logs[0].TraceID)
	assert.Equal(t, "s-1", logs[0].SessionID)
	assert.Equal(t, "Alice", logs[0].CharName)
	assert.Equal(t, "damage", logs[0].Action)
	assert.Equal(t, "village", logs[0].SceneID)
	assert.Equal(t, 42, logs[0].DurationMs)
	assert.JSONEq(t, `{"amount":30}`, string(logs[0].Request))
	require.NotNil(t, logs[0].AccountID)
	assert.Equal(t, int64(2), *logs[0].AccountID)
}

func TestLog_BatchFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	for range batchSize + 5 {
		svc.Log(Entry{Action: "batch"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Equal(t, int64(batchSize+5), count)
}

func TestLog_TimerFlush(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	defer svc.Stop(context.Background())

	svc.Log(Entry{Action: "timer_test"})

	assert.Eventually(t, func() bool {
		var count int64
		db.Model(&model.AuditLog{}).Count(&count)
		return count == 1
	}, flushInterval+2*time.Second, 100*time.Millisecond)
}

func TestHandleEvent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())

	svc.HandleEvent(session.Event{
		Type:      session.EventLevelUp,
		SessionID: "s-9",
		AccountID: 7,
		CharID:    "c-9",
		CharName:  "Bob",
		Level:     2,
		Data:      map[string]any{"level": 2},
	})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Equal(t, "event.level_up", logs[0].Action)
	assert.Equal(t, "c-9", logs[0].CharID)
	assert.JSONEq(t, `{"level":2}`, string(logs[0].Response))
}

func TestStop_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Stop(context.Background())
	svc.Stop(context.Background())

	svc.Log(Entry{Action: "late"})
	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.Zero(t, count)
}

func TestLog_NilFields(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	svc.Log(Entry{Action: "anonymous"})
	svc.Stop(context.Background())

	var logs []model.AuditLog
	require.NoError(t, db.Find(&logs).Error)
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].AccountID)
	assert.Empty(t, logs[0].CharID)
}

func TestLog_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, zap.NewNop())
	for range queueSize + 10 {
		svc.Log(Entry{Action: "flood"})
	}
	svc.Stop(context.Background())

	var count int64
	db.Model(&model.AuditLog{}).Count(&count)
	assert.LessOrEqual(t, count, int64(queueSize+10))
	assert.Greater(t, count, int64(0))
}
