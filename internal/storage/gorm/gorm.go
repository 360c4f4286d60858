// Package gormstore records rounds to a relational database through GORM.
// It serves both the SQLite and Postgres backends; the only difference
// between them is the *gorm.DB handed in.
package gormstore

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/moonward/lander/internal/model"
)

// Ticks are buffered and written in batches to keep inserts off the
// simulation's critical path cadence.
const tickBatchSize = 64

// Backend persists rounds through GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger

	roundID uint
	pending []model.Tick
	mu      sync.Mutex
}

// New creates a backend over an open connection.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// Init migrates the round tables.
func (b *Backend) Init() error {
	if err := b.db.AutoMigrate(&model.Round{}, &model.Tick{}); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// Close flushes any buffered ticks and releases the connection.
func (b *Backend) Close() error {
	b.mu.Lock()
	flushErr := b.flushLocked()
	b.mu.Unlock()

	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	if closeErr := sqlDB.Close(); closeErr != nil {
		return closeErr
	}
	return flushErr
}

// StartRound inserts the round row and records its assigned ID.
func (b *Backend) StartRound(r *model.Round) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.db.Create(r).Error; err != nil {
		return fmt.Errorf("failed to create round: %w", err)
	}
	b.roundID = r.ID
	b.pending = b.pending[:0]
	return nil
}

// RecordTick buffers one telemetry frame, flushing when the batch fills.
func (b *Backend) RecordTick(t *model.Tick) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.roundID == 0 {
		return fmt.Errorf("no round in progress")
	}
	t.RoundID = b.roundID
	b.pending = append(b.pending, *t)
	if len(b.pending) >= tickBatchSize {
		return b.flushLocked()
	}
	return nil
}

// EndRound flushes remaining ticks and writes the outcome.
func (b *Backend) EndRound(r *model.Round) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r.ID != b.roundID {
		return fmt.Errorf("round %d is not in progress", r.ID)
	}
	if err := b.flushLocked(); err != nil {
		return err
	}
	b.roundID = 0

	err := b.db.Model(r).Select("Status", "Remark", "Score", "Criteria", "EndedAt").Updates(r).Error
	if err != nil {
		return fmt.Errorf("failed to finalize round: %w", err)
	}
	b.log.Info().Uint("round", r.ID).Str("status", r.Status).Msg("Round persisted")
	return nil
}

func (b *Backend) flushLocked() error {
	if len(b.pending) == 0 {
		return nil
	}
	if err := b.db.CreateInBatches(b.pending, tickBatchSize).Error; err != nil {
		return fmt.Errorf("failed to insert ticks: %w", err)
	}
	b.pending = b.pending[:0]
	return nil
}
