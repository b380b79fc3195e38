package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"fitcoach_backend/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type countingExpirer struct {
	calls atomic.Int32
	at    atomic.Value
	n     int
	err   error
}

func (e *countingExpirer) ExpireSessions(_ context.Context, now time.Time) (int, error) {
	e.calls.Add(1)
	e.at.Store(now)
	return e.n, e.err
}

func TestSessionExpiryJob_RunsOnSchedule(t *testing.T) {
	expirer := &countingExpirer{n: 2}
	job := NewSessionExpiryJob(expirer, zap.NewNop(), &config.Config{SessionExpiryJobSchedule: "@every 1s"})
	t.Cleanup(job.Stop)

	require.NoError(t, job.SetupAndStart())

	assert.Eventually(t, func() bool { return expirer.calls.Load() >= 1 }, 3*time.Second, 20*time.Millisecond)
}

func TestSessionExpiryJob_NoSchedule(t *testing.T) {
	job := NewSessionExpiryJob(&countingExpirer{}, zap.NewNop(), &config.Config{})

	assert.NoError(t, job.SetupAndStart())
	job.Stop()
}

func TestSessionExpiryJob_BadSchedule(t *testing.T) {
	job := NewSessionExpiryJob(&countingExpirer{}, zap.NewNop(), &config.Config{SessionExpiryJobSchedule: "every tuesday"})

	assert.Error(t, job.SetupAndStart())
}

func TestSessionExpiryJob_RunJobLogsFailure(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	expirer := &countingExpirer{err: errors.New("db down")}
	job := NewSessionExpiryJob(expirer, zap.New(core), &config.Config{})
	job.now = func() time.Time { return fixed }

	job.runJob()

	assert.Equal(t, fixed, expirer.at.Load())
	assert.Equal(t, 1, logs.FilterMessage("Session expiry job run failed").Len())
}

func TestCronLogger_OddKeyValues(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cl := NewCronLogger(zap.New(core))

	cl.Info("wake", "now", 1, "dangling")
	cl.Error(errors.New("boom"), "failed", "entry", 3)

	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, "MISSING_VALUE", entries[0].ContextMap()["dangling"])
	assert.Equal(t, "boom", entries[1].ContextMap()["error"])
}
