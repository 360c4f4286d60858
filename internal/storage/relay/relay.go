// Package relay streams round records over WebSocket to a remote collector
// as they are produced, so a dashboard can follow descents live without
// polling local storage.
package relay

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/moonward/lander/internal/config"
	"github.com/moonward/lander/internal/model"
	"github.com/moonward/lander/pkg/streaming"
)

// Backend streams rounds to the collector. It implements storage.Backend
// but not storage.Exportable.
type Backend struct {
	conn        *connection
	cfg         config.RelayConfig
	nextRoundID atomic.Uint64
	openRoundID atomic.Uint64
}

// New creates a relay backend for the given collector.
func New(cfg config.RelayConfig, log zerolog.Logger) *Backend {
	return &Backend{
		conn: newConnection(log),
		cfg:  cfg,
	}
}

// Init connects to the collector.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the collector.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// StartRound assigns the round an ID, announces it, and waits for the
// collector ack before returning.
func (b *Backend) StartRound(r *model.Round) error {
	r.ID = uint(b.nextRoundID.Add(1))
	b.openRoundID.Store(uint64(r.ID))

	data, err := marshalEnvelope(streaming.TypeStartRound, streaming.StartRoundPayload{
		RoundID:   r.ID,
		Seed:      r.Seed,
		StartedAt: r.StartedAt,
	})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRound, ackTimeout)
}

// tickMsg adds the round id to the tick record, whose own RoundID field is
// not serialized.
type tickMsg struct {
	RoundID uint `json:"roundId"`
	model.Tick
}

// RecordTick streams one frame of telemetry (fire-and-forget).
func (b *Backend) RecordTick(t *model.Tick) error {
	t.RoundID = uint(b.openRoundID.Load())
	data, err := marshalEnvelope(streaming.TypeRoundTick, tickMsg{RoundID: t.RoundID, Tick: *t})
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// EndRound sends the round outcome and waits for the collector ack.
func (b *Backend) EndRound(r *model.Round) error {
	var endedAt *time.Time
	if r.EndedAt != nil {
		t := *r.EndedAt
		endedAt = &t
	}
	data, err := marshalEnvelope(streaming.TypeEndRound, streaming.EndRoundPayload{
		RoundID:  r.ID,
		Status:   r.Status,
		Remark:   r.Remark,
		Score:    r.Score,
		Criteria: json.RawMessage(r.Criteria),
		EndedAt:  endedAt,
	})
	if err != nil {
		return err
	}

	err = b.conn.sendAndWait(data, streaming.TypeEndRound, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = nil
	b.conn.mu.Unlock()

	return err
}
