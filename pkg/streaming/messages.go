// Package streaming defines the relay protocol: round records streamed
// over WebSocket to a remote collector as they are produced.
package streaming

import (
	"encoding/json"
	"time"
)

// Message type constants matching the relay protocol.
const (
	TypeStartRound = "start_round"
	TypeRoundTick  = "round_tick"
	TypeEndRound   = "end_round"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the collector's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRoundPayload announces a new round. The collector must ack before
// ticks for the round start flowing.
type StartRoundPayload struct {
	RoundID   uint      `json:"roundId"`
	Seed      string    `json:"seed"`
	StartedAt time.Time `json:"startedAt"`
}

// EndRoundPayload carries the final outcome of a round.
type EndRoundPayload struct {
	RoundID  uint            `json:"roundId"`
	Status   string          `json:"status"`
	Remark   string          `json:"remark"`
	Score    float64         `json:"score"`
	Criteria json.RawMessage `json:"criteria,omitempty"`
	EndedAt  *time.Time      `json:"endedAt,omitempty"`
}
