// Package monitor periodically reports server health: connected sessions,
// telemetry backlog, and the active round. The snapshot goes to a status
// file for ops and to InfluxDB when available.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/recorder"
	"github.com/moonward/lander/internal/round"
	"github.com/moonward/lander/internal/telemetry"
)

// SessionCounter reports the number of connected sessions.
type SessionCounter interface {
	ClientCount() int
}

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	LogManager *logging.Manager
	RoundCtx   *round.Context
	Recorder   *recorder.Manager
	Sessions   SessionCounter
	Telemetry  *telemetry.Manager
	StatusDir  string
}

// Status is one snapshot of server health.
type Status struct {
	Time        time.Time `json:"time"`
	Round       uint64    `json:"round"`
	Phase       string    `json:"phase"`
	Sessions    int       `json:"sessions"`
	TickBacklog int       `json:"tickBacklog"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Snapshot builds the current status.
func (s *Service) Snapshot() Status {
	status := Status{
		Time:        time.Now(),
		Round:       s.deps.RoundCtx.ID(),
		Phase:       string(s.deps.RoundCtx.GetPhase()),
		TickBacklog: s.deps.Recorder.QueueLen(),
	}
	if s.deps.Sessions != nil {
		status.Sessions = s.deps.Sessions.ClientCount()
	}
	return status
}

// Start starts the status monitor goroutine.
func (s *Service) Start(interval time.Duration) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	if interval <= 0 {
		interval = time.Second
	}

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine")

		var statusFile *os.File
		if s.deps.StatusDir != "" {
			var err error
			statusFile, err = os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
			if err != nil {
				logger.Error("Error creating status file", "error", err)
			} else {
				defer statusFile.Close()
			}
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				status := s.Snapshot()

				if statusFile != nil {
					s.writeStatusFile(statusFile, status)
				}

				if s.deps.Telemetry != nil {
					point := telemetry.ServerPoint(status.Sessions, status.TickBacklog, status.Phase, status.Time)
					if err := s.deps.Telemetry.WritePoint(context.Background(), telemetry.BucketServer, point); err != nil {
						logger.Debug("Failed to write server status point", "error", err)
					}
				}
			}
		}
	}()

	return nil
}

func (s *Service) writeStatusFile(f *os.File, status Status) {
	raw, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		raw = []byte(fmt.Sprintf(`{"error": %q}`, err.Error()))
	}
	f.Truncate(0)
	f.Seek(0, 0)
	f.Write(raw)
	f.Write([]byte("\n"))
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
