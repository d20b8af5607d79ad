package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/taskmaster/todo/internal/infrastructure/logger"
)

type purgerFunc func(ctx context.Context) (int64, error)

func (f purgerFunc) PurgeSessions(ctx context.Context) (int64, error) { return f(ctx) }

func TestAddSessionJanitor_RunsPurge(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(time.UTC, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	calls := 0
	id, err := s.AddSessionJanitor("@hourly", purgerFunc(func(ctx context.Context) (int64, error) {
		calls++
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		return 3, nil
	}))
	require.NoError(t, err)

	s.cron.Entry(id).WrappedJob.Run()
	assert.Equal(t, 1, calls)

	entries := logs.FilterMessage("Session cleanup finished").All()
	require.Len(t, entries, 1)
	assert.Equal(t, int64(3), entries[0].ContextMap()["purged"])
}

func TestAddSessionJanitor_LogsFailure(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	s := New(time.UTC, &logger.Logger{SugaredLogger: zap.New(core).Sugar()})

	id, err := s.AddSessionJanitor("@every 1m", purgerFunc(func(context.Context) (int64, error) {
		return 0, errors.New("database is locked")
	}))
	require.NoError(t, err)

	s.cron.Entry(id).WrappedJob.Run()
	assert.Equal(t, 1, logs.FilterMessage("Session cleanup failed").Len())
}

func TestAddSessionJanitor_RecoversPanics(t *testing.T) {
	s := New(time.UTC, logger.NewNop())

	id, err := s.AddSessionJanitor("@hourly", purgerFunc(func(context.Context) (int64, error) {
		panic("boom")
	}))
	require.NoError(t, err)

	assert.NotPanics(t, func() { s.cron.Entry(id).WrappedJob.Run() })
}

func TestAddSessionJanitor_InvalidSpec(t *testing.T) {
	s := New(time.UTC, logger.NewNop())

	_, err := s.AddSessionJanitor("every now and then", purgerFunc(func(context.Context) (int64, error) { return 0, nil }))
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	s := New(time.UTC, logger.NewNop())
	s.Start()
	s.Stop()
}
