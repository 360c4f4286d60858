// Package recorder moves flight telemetry from the simulation loop into
// storage and InfluxDB without blocking the tick cadence. Ticks are pushed
// onto a queue by the loop and drained in batches by a background flusher.
package recorder

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/moonward/lander/internal/api"
	"github.com/moonward/lander/internal/landing"
	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/model"
	"github.com/moonward/lander/internal/queue"
	"github.com/moonward/lander/internal/storage"
	"github.com/moonward/lander/internal/telemetry"
)

// DefaultFlushInterval is how often buffered ticks are drained.
const DefaultFlushInterval = 500 * time.Millisecond

// Dependencies holds everything the recorder writes through. Telemetry and
// Uploader are optional.
type Dependencies struct {
	LogManager *logging.Manager
	Backend    storage.Backend
	Telemetry  *telemetry.Manager
	Uploader   *api.Client
}

// Manager owns the tick queue and the open round record.
type Manager struct {
	deps  Dependencies
	ticks *queue.Queue[model.Tick]
	round *model.Round
}

// NewManager creates a recorder over the given sinks.
func NewManager(deps Dependencies) *Manager {
	return &Manager{
		deps:  deps,
		ticks: queue.New[model.Tick](),
	}
}

// StartRound opens a new round record. Any ticks still queued from a
// previous round are discarded.
func (m *Manager) StartRound(seed uint64, at time.Time) (*model.Round, error) {
	m.ticks.Clear()

	r := &model.Round{
		Seed:      strconv.FormatUint(seed, 10),
		StartedAt: at,
	}
	if err := m.deps.Backend.StartRound(r); err != nil {
		return nil, fmt.Errorf("failed to start round: %w", err)
	}
	m.round = r
	return r, nil
}

// RecordTick queues one telemetry frame. Safe to call from the tick loop;
// it never touches storage directly.
func (m *Manager) RecordTick(t model.Tick) {
	m.ticks.Push(t)
}

// Flush drains queued ticks into the backend and InfluxDB.
func (m *Manager) Flush(ctx context.Context) error {
	if m.round == nil {
		m.ticks.Clear()
		return nil
	}

	log := m.deps.LogManager.Logger()
	for _, t := range m.ticks.GetAndEmpty() {
		if err := m.deps.Backend.RecordTick(&t); err != nil {
			return fmt.Errorf("failed to record tick %d: %w", t.Frame, err)
		}
		if m.deps.Telemetry != nil {
			point := telemetry.FlightPoint(m.round.ID, t.Frame, t.PosZ, t.VelZ, t.FuelMass, t.Throttle, t.TargetRoD, t.At)
			if err := m.deps.Telemetry.WritePoint(ctx, telemetry.BucketFlight, point); err != nil {
				log.WarnContext(ctx, "Failed to write flight point", "error", err)
			}
		}
	}
	return nil
}

// EndRound finalizes the open round: the outcome is persisted, shipped to
// InfluxDB, and the exported file uploaded when a frontend is configured.
func (m *Manager) EndRound(ctx context.Context, report landing.Report, at time.Time) error {
	if m.round == nil {
		return fmt.Errorf("no round in progress")
	}
	if err := m.Flush(ctx); err != nil {
		return err
	}

	r := m.round
	m.round = nil

	if err := r.ApplyReport(report, at); err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}
	if err := m.deps.Backend.EndRound(r); err != nil {
		return fmt.Errorf("failed to end round: %w", err)
	}

	log := m.deps.LogManager.Logger()
	duration := at.Sub(r.StartedAt)

	if m.deps.Telemetry != nil {
		point := telemetry.OutcomePoint(r.ID, r.Seed, r.Status, r.Score, duration, at)
		if err := m.deps.Telemetry.WritePoint(ctx, telemetry.BucketOutcomes, point); err != nil {
			log.WarnContext(ctx, "Failed to write outcome point", "error", err)
		}
	}

	if m.deps.Uploader != nil {
		if exp, ok := m.deps.Backend.(storage.Exportable); ok {
			meta := api.UploadMetadata{
				Seed:            r.Seed,
				Status:          r.Status,
				Score:           r.Score,
				DurationSeconds: duration.Seconds(),
			}
			if err := m.deps.Uploader.Upload(exp.ExportedFilePath(), meta); err != nil {
				log.WarnContext(ctx, "Failed to upload round recording", "error", err)
			}
		}
	}

	return nil
}

// Abort discards the open round. Queued ticks are dropped and the round is
// closed out with an aborted status so storage is not left dangling.
func (m *Manager) Abort(ctx context.Context) error {
	if m.round == nil {
		return nil
	}
	m.ticks.Clear()

	r := m.round
	m.round = nil

	now := time.Now()
	r.Status = "aborted"
	r.EndedAt = &now
	if err := m.deps.Backend.EndRound(r); err != nil {
		return fmt.Errorf("failed to abort round: %w", err)
	}
	return nil
}

// Run flushes on an interval until the context ends. A final flush runs on
// shutdown.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultFlushInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	log := m.deps.LogManager.Logger()
	for {
		select {
		case <-ctx.Done():
			if err := m.Flush(context.Background()); err != nil {
				log.Error("Final telemetry flush failed", "error", err)
			}
			return
		case <-ticker.C:
			if err := m.Flush(ctx); err != nil {
				log.ErrorContext(ctx, "Telemetry flush failed", "error", err)
			}
		}
	}
}

// QueueLen reports the number of ticks waiting to be flushed.
func (m *Manager) QueueLen() int {
	return m.ticks.Len()
}
