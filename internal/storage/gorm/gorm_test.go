package gormstore

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonward/lander/internal/database"
	"github.com/moonward/lander/internal/landing"
	"github.com/moonward/lander/internal/model"
)

func newTestBackend(t *testing.T) *Backend {
	t.Helper()
	db, err := database.OpenSqlite("")
	require.NoError(t, err)

	b := New(db, zerolog.Nop())
	require.NoError(t, b.Init())
	return b
}

func TestRoundLifecycle(t *testing.T) {
	b := newTestBackend(t)

	round := &model.Round{Seed: "42", StartedAt: time.Now()}
	require.NoError(t, b.StartRound(round))
	require.NotZero(t, round.ID)

	for i := 0; i < 100; i++ {
		require.NoError(t, b.RecordTick(&model.Tick{Frame: uint(i), PosZ: 200 - float64(i)}))
	}

	report := landing.Report{
		Status:   landing.StatusLanded,
		Remark:   "The eagle has landed.",
		Score:    8.5,
		Criteria: []landing.Criterion{{Kind: landing.KindVerticalSpeed, Max: 3, Actual: 1}},
	}
	require.NoError(t, round.ApplyReport(report, time.Now()))
	require.NoError(t, b.EndRound(round))

	var stored model.Round
	require.NoError(t, b.db.First(&stored, round.ID).Error)
	assert.Equal(t, "landed", stored.Status)
	assert.Equal(t, 8.5, stored.Score)
	assert.NotNil(t, stored.EndedAt)

	var count int64
	require.NoError(t, b.db.Model(&model.Tick{}).Where("round_id = ?", round.ID).Count(&count).Error)
	assert.EqualValues(t, 100, count)
}

func TestRecordTickWithoutRound(t *testing.T) {
	b := newTestBackend(t)
	assert.Error(t, b.RecordTick(&model.Tick{Frame: 1}))
}

func TestEndRoundMismatch(t *testing.T) {
	b := newTestBackend(t)

	round := &model.Round{Seed: "1", StartedAt: time.Now()}
	require.NoError(t, b.StartRound(round))

	other := &model.Round{ID: round.ID + 99}
	assert.Error(t, b.EndRound(other))
}

func TestTicksFlushOnEnd(t *testing.T) {
	b := newTestBackend(t)

	round := &model.Round{Seed: "7", StartedAt: time.Now()}
	require.NoError(t, b.StartRound(round))

	// Fewer ticks than one batch: nothing hits the DB until EndRound.
	for i := 0; i < 5; i++ {
		require.NoError(t, b.RecordTick(&model.Tick{Frame: uint(i)}))
	}
	var count int64
	require.NoError(t, b.db.Model(&model.Tick{}).Count(&count).Error)
	assert.Zero(t, count)

	require.NoError(t, round.ApplyReport(landing.Report{Status: landing.StatusCrashed}, time.Now()))
	require.NoError(t, b.EndRound(round))

	require.NoError(t, b.db.Model(&model.Tick{}).Count(&count).Error)
	assert.EqualValues(t, 5, count)
}
