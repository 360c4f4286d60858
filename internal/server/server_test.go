package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonward/lander/internal/dispatcher"
	"github.com/moonward/lander/internal/input"
	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/params"
	"github.com/moonward/lander/pkg/wire"
)

var testMapping = input.Mapping{
	AxisStrafeX: 0, AxisStrafeY: 1, AxisRoll: 2, AxisPitch: 3,
	ButtonYawLeft: 4, ButtonYawRight: 5,
	ButtonRodUp: 6, ButtonRodDown: 7, ButtonStart: 9,
}

type testServer struct {
	srv      *Server
	controls *input.Controls
	registry *params.Parameters
	httpSrv  *httptest.Server
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	logManager := logging.NewManager()
	controls := input.NewControls(input.NewGamepad(testMapping, 0.10))
	registry := params.New(nil)

	d, err := dispatcher.New(slogAdapter{logManager})
	require.NoError(t, err)
	RegisterHandlers(d, controls, registry)

	srv := New(":0", d, NewHub(logManager), logManager)
	httpSrv := httptest.NewServer(http.HandlerFunc(srv.handleWS))
	t.Cleanup(httpSrv.Close)

	return &testServer{srv: srv, controls: controls, registry: registry, httpSrv: httpSrv}
}

// slogAdapter bridges the log manager to the dispatcher's Logger interface.
type slogAdapter struct{ m *logging.Manager }

func (a slogAdapter) Debug(msg string, kv ...any) { a.m.Logger().Debug(msg, kv...) }
func (a slogAdapter) Info(msg string, kv ...any)  { a.m.Logger().Info(msg, kv...) }
func (a slogAdapter) Error(msg string, kv ...any) { a.m.Logger().Error(msg, kv...) }

func (ts *testServer) dial(t *testing.T) *ws.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.httpSrv.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *ws.Conn) wire.Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env wire.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func sendEnvelope(t *testing.T, conn *ws.Conn, msgType string, payload any) {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	data, err := json.Marshal(wire.Envelope{Type: msgType, Payload: raw})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, data))
}

func TestBroadcastReachesSessions(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	require.Eventually(t, func() bool { return ts.srv.Hub().ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	ts.srv.Hub().BroadcastTick(wire.TickPayload{Frame: 7, FuelMass: 500})

	env := readEnvelope(t, conn)
	assert.Equal(t, wire.TypeTick, env.Type)

	var tick wire.TickPayload
	require.NoError(t, json.Unmarshal(env.Payload, &tick))
	assert.EqualValues(t, 7, tick.Frame)
	assert.Equal(t, 500.0, tick.FuelMass)
}

func TestLateJoinerGetsCachedScene(t *testing.T) {
	ts := newTestServer(t)

	ts.srv.Hub().BroadcastScene(wire.ScenePayload{Width: 200})
	ts.srv.Hub().BroadcastPhase(wire.PhasePayload{Phase: "waiting"})

	conn := ts.dial(t)
	first := readEnvelope(t, conn)
	second := readEnvelope(t, conn)

	assert.Equal(t, wire.TypeScene, first.Type)
	assert.Equal(t, wire.TypePhase, second.Type)
}

func TestParamGetRoundTrip(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sendEnvelope(t, conn, wire.TypeParamGet, wire.ParamGetPayload{})

	env := readEnvelope(t, conn)
	require.Equal(t, wire.TypeParams, env.Type)

	var payload wire.ParamsPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	assert.Len(t, payload.Params, 9)
}

func TestParamSetAppliesClamp(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sendEnvelope(t, conn, wire.TypeParamSet, wire.ParamSetPayload{
		Params: []wire.Param{{Name: params.ZoneRadius, Value: 500.0}},
	})

	env := readEnvelope(t, conn)
	require.Equal(t, wire.TypeParams, env.Type)

	var payload wire.ParamsPayload
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	require.Len(t, payload.Params, 1)
	assert.Equal(t, 50.0, payload.Params[0].Value)
	assert.Equal(t, 50.0, ts.registry.ZoneRadius())
}

func TestUnknownCommandReturnsError(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sendEnvelope(t, conn, "warp", nil)

	env := readEnvelope(t, conn)
	assert.Equal(t, wire.TypeError, env.Type)
}

func TestJoySampleReachesControls(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sample := wire.JoyPayload{Axes: make([]float64, 4), Buttons: make([]float64, 10)}
	sample.Axes[0] = 0.8
	sendEnvelope(t, conn, wire.TypeJoy, sample)

	require.Eventually(t, func() bool {
		return ts.controls.Take().Strafe.X() == 0.8
	}, 2*time.Second, 10*time.Millisecond)
}

func TestResetCommand(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	sendEnvelope(t, conn, wire.TypeReset, nil)

	require.Eventually(t, func() bool {
		return ts.controls.ResetRequested()
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSessionDisconnectUnregisters(t *testing.T) {
	ts := newTestServer(t)
	conn := ts.dial(t)

	require.Eventually(t, func() bool { return ts.srv.Hub().ClientCount() == 1 },
		time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return ts.srv.Hub().ClientCount() == 0 },
		time.Second, 10*time.Millisecond)
}
