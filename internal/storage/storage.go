// Package storage defines the round recording backends.
package storage

import "github.com/moonward/lander/internal/model"

// Backend is the interface all round stores must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// StartRound begins recording a new round, assigning its ID.
	StartRound(r *model.Round) error

	// RecordTick appends one frame of telemetry to the open round.
	RecordTick(t *model.Tick) error

	// EndRound finalizes the open round with its outcome already applied.
	EndRound(r *model.Round) error
}

// Exportable is an optional interface for backends that write each round to
// a standalone file suitable for upload.
type Exportable interface {
	ExportedFilePath() string
}
