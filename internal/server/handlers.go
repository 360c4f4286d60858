package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/moonward/lander/internal/dispatcher"
	"github.com/moonward/lander/internal/input"
	"github.com/moonward/lander/internal/params"
	"github.com/moonward/lander/pkg/wire"
)

// RegisterHandlers wires the session commands to their owners. Joystick
// samples arrive at device rate and are buffered; parameter commands are
// rare and handled inline.
func RegisterHandlers(d *dispatcher.Dispatcher, controls *input.Controls, registry *params.Parameters) {
	d.Register(wire.TypeJoy, handleJoy(controls), dispatcher.Buffered(256))
	d.Register(wire.TypeParamGet, handleParamGet(registry), dispatcher.Logged())
	d.Register(wire.TypeParamSet, handleParamSet(registry), dispatcher.Logged())
	d.Register(wire.TypeReset, handleReset(controls), dispatcher.Logged())
}

// handleJoy folds a raw sample into the shared control state. Bad samples
// are dropped whole; input is fail-open and the previous state stands.
func handleJoy(controls *input.Controls) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		var sample wire.JoyPayload
		if err := json.Unmarshal(e.Payload, &sample); err != nil {
			return nil, fmt.Errorf("malformed joy sample: %w", err)
		}
		now := e.Timestamp
		if now.IsZero() {
			now = time.Now()
		}
		if err := controls.Apply(now, sample); err != nil {
			return nil, err
		}
		return nil, nil
	}
}

func handleParamGet(registry *params.Parameters) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		var req wire.ParamGetPayload
		if len(e.Payload) > 0 {
			if err := json.Unmarshal(e.Payload, &req); err != nil {
				return nil, fmt.Errorf("malformed param request: %w", err)
			}
		}
		return wire.ParamsPayload{Params: registry.Get(req.Names)}, nil
	}
}

func handleParamSet(registry *params.Parameters) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		var req wire.ParamSetPayload
		if err := json.Unmarshal(e.Payload, &req); err != nil {
			return nil, fmt.Errorf("malformed param update: %w", err)
		}
		return wire.ParamsPayload{Params: registry.Set(req.Params)}, nil
	}
}

func handleReset(controls *input.Controls) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		controls.RequestReset()
		return nil, nil
	}
}
