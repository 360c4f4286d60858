// Package memory stores the active round in RAM and exports each finished
// round to a JSON file named by outcome and timestamp.
package memory

import (
	"fmt"
	"sync"

	"github.com/moonward/lander/internal/config"
	"github.com/moonward/lander/internal/model"
)

// Backend accumulates one round at a time.
type Backend struct {
	cfg config.MemoryConfig

	round        *model.Round
	ticks        []model.Tick
	nextID       uint
	exportedPath string
	mu           sync.Mutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources. Any round still open is discarded.
func (b *Backend) Close() error {
	return nil
}

// StartRound begins recording a new round, dropping any unfinished one.
func (b *Backend) StartRound(r *model.Round) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	r.ID = b.nextID
	b.round = r
	b.ticks = nil
	return nil
}

// RecordTick appends one telemetry frame.
func (b *Backend) RecordTick(t *model.Tick) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.round == nil {
		return fmt.Errorf("no round in progress")
	}
	t.RoundID = b.round.ID
	b.ticks = append(b.ticks, *t)
	return nil
}

// EndRound exports the finished round to disk.
func (b *Backend) EndRound(r *model.Round) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.round == nil || r.ID != b.round.ID {
		return fmt.Errorf("round %d is not in progress", r.ID)
	}
	b.round = nil

	return b.exportJSON(r)
}

// ExportedFilePath returns the path of the most recently exported round.
func (b *Backend) ExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.exportedPath
}
