// Package wire defines the JSON message protocol spoken between the lander
// server and its clients (control panels and viewers). All messages travel
// inside an Envelope so new message types can be added without breaking
// existing clients.
package wire

import "encoding/json"

// Message type constants for the session protocol.
const (
	// Client -> server.
	TypeJoy      = "joy"
	TypeParamGet = "param:get"
	TypeParamSet = "param:set"
	TypeReset    = "reset"

	// Server -> client.
	TypeScene  = "scene"
	TypeTick   = "tick"
	TypeReport = "report"
	TypePhase  = "phase"
	TypeParams = "params"
	TypeError  = "error"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Vec3 is a plain 3-vector for JSON transport.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quat is a plain quaternion for JSON transport.
type Quat struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// JoyPayload is a raw gamepad sample: ordered axis values and button values.
// Buttons are floats because some transports report analog triggers as
// buttons; anything > 0 counts as pressed.
type JoyPayload struct {
	Axes    []float64 `json:"axes"`
	Buttons []float64 `json:"buttons"`
}

// ParamGetPayload requests parameter values by name. An empty list requests
// all parameters.
type ParamGetPayload struct {
	Names []string `json:"names"`
}

// Param is a single named parameter value.
type Param struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
	Descr string `json:"descr,omitempty"`
}

// ParamSetPayload carries parameter updates. The server responds with a
// TypeParams message holding the values as applied (after clamping).
type ParamSetPayload struct {
	Params []Param `json:"params"`
}

// ParamsPayload is the server's response to get/set requests.
type ParamsPayload struct {
	Params []Param `json:"params"`
}

// ScenePayload carries the static geometry for one round: the terrain mesh
// and the landing zone marker. Sent once when a round starts.
type ScenePayload struct {
	Width      int       `json:"width"`
	Heights    []float64 `json:"heights"` // row-major, width*width samples
	ZoneCenter Vec3      `json:"zoneCenter"`
	ZoneRadius float64   `json:"zoneRadius"`
	LanderInit Vec3      `json:"landerInit"`
}

// TickPayload is the per-tick telemetry snapshot.
type TickPayload struct {
	Frame           uint64  `json:"frame"`
	Position        Vec3    `json:"position"`
	Velocity        Vec3    `json:"velocity"`
	Orientation     Quat    `json:"orientation"`
	AngularVelocity Vec3    `json:"angularVelocity"`
	FuelMass        float64 `json:"fuelMass"`
	Throttle        float64 `json:"throttle"`
	TargetRoD       float64 `json:"targetRod"`
}

// CriterionPayload is one landing criterion result.
type CriterionPayload struct {
	Kind   string  `json:"kind"`
	Max    float64 `json:"max"`
	Actual float64 `json:"actual"`
	Passed bool    `json:"passed"`
}

// ReportPayload is the landing report, sent once per round after touchdown.
type ReportPayload struct {
	Status   string             `json:"status"`
	Remark   string             `json:"remark"`
	Score    float64            `json:"score"`
	Criteria []CriterionPayload `json:"criteria"`
}

// PhasePayload announces a round phase change ("waiting", "flying", "down").
type PhasePayload struct {
	Phase string `json:"phase"`
}

// ErrorPayload reports a request error back to a client.
type ErrorPayload struct {
	Message string `json:"message"`
}
