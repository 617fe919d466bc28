package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"control-produccion/models"
)

type fakeLister struct {
	sessions     []models.ActiveSession
	err          error
	gotThreshold time.Duration
}

func (f *fakeLister) ListStale(_ context.Context, threshold time.Duration) ([]models.ActiveSession, error) {
	f.gotThreshold = threshold
	return f.sessions, f.err
}

func TestReportStale(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	started := time.Date(2025, 3, 1, 6, 0, 0, 0, time.UTC)
	lister := &fakeLister{sessions: []models.ActiveSession{
		{OperatorID: "op-1", ParentBatchID: "4019635", SessionKey: "k-1", StartedAt: started},
	}}

	s := NewScheduler(lister, "*/30 * * * *", 12*time.Hour, zap.New(core))
	s.now = func() time.Time { return started.Add(20 * time.Hour) }

	n, err := s.ReportStale(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 12*time.Hour, lister.gotThreshold)

	warns := logs.FilterMessage("stale active session").All()
	require.Len(t, warns, 1)
	assert.Equal(t, "op-1", warns[0].ContextMap()["operator_id"])
	assert.Equal(t, 20*time.Hour, warns[0].ContextMap()["age"])
}

func TestReportStale_Error(t *testing.T) {
	s := NewScheduler(&fakeLister{err: errors.New("db down")}, "*/30 * * * *", time.Hour, nil)
	_, err := s.ReportStale(context.Background())
	assert.Error(t, err)
}

func TestStart_InvalidSchedule(t *testing.T) {
	s := NewScheduler(&fakeLister{}, "not a cron", time.Hour, nil)
	assert.Error(t, s.Start())
}

func TestStartStop(t *testing.T) {
	s := NewScheduler(&fakeLister{}, "@every 1h", time.Hour, nil)
	require.NoError(t, s.Start())
	s.Stop()
}
