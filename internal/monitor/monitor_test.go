package monitor

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/recorder"
	"github.com/moonward/lander/internal/round"
)

type fakeSessions struct {
	count int
}

func (f *fakeSessions) ClientCount() int {
	return f.count
}

func newTestService(t *testing.T, statusDir string) (*Service, *round.Context, *fakeSessions) {
	t.Helper()

	roundCtx := round.NewContext()
	sessions := &fakeSessions{count: 2}
	svc := NewService(Dependencies{
		LogManager: logging.NewManager(),
		RoundCtx:   roundCtx,
		Recorder:   recorder.NewManager(recorder.Dependencies{LogManager: logging.NewManager()}),
		Sessions:   sessions,
		StatusDir:  statusDir,
	})
	return svc, roundCtx, sessions
}

func TestSnapshot(t *testing.T) {
	svc, roundCtx, sessions := newTestService(t, "")

	status := svc.Snapshot()
	assert.Equal(t, uint64(0), status.Round)
	assert.Equal(t, string(round.PhaseWaiting), status.Phase)
	assert.Equal(t, 2, status.Sessions)
	assert.Zero(t, status.TickBacklog)

	roundCtx.Begin(7, 42)
	sessions.count = 5

	status = svc.Snapshot()
	assert.Equal(t, uint64(7), status.Round)
	assert.Equal(t, string(round.PhaseFlying), status.Phase)
	assert.Equal(t, 5, status.Sessions)
}

func TestStartStop(t *testing.T) {
	svc, _, _ := newTestService(t, "")

	require.NoError(t, svc.Start(5*time.Millisecond))
	assert.True(t, svc.IsRunning())

	// Starting again is a no-op.
	require.NoError(t, svc.Start(5*time.Millisecond))

	svc.Stop()
	assert.Eventually(t, func() bool {
		return !svc.IsRunning()
	}, time.Second, 5*time.Millisecond)
}

func TestStatusFile(t *testing.T) {
	dir := t.TempDir()
	svc, roundCtx, _ := newTestService(t, dir)
	roundCtx.Begin(3, 99)

	require.NoError(t, svc.Start(5*time.Millisecond))
	defer svc.Stop()

	path := filepath.Join(dir, "status.txt")
	require.Eventually(t, func() bool {
		raw, err := os.ReadFile(path)
		return err == nil && len(raw) > 0
	}, time.Second, 5*time.Millisecond)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var status Status
	require.NoError(t, json.Unmarshal(raw, &status))
	assert.Equal(t, uint64(3), status.Round)
	assert.Equal(t, string(round.PhaseFlying), status.Phase)
}
