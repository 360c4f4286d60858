package game

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moonward/lander/internal/input"
	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/model"
	"github.com/moonward/lander/internal/params"
	"github.com/moonward/lander/internal/recorder"
	"github.com/moonward/lander/internal/round"
	"github.com/moonward/lander/pkg/wire"
)

var testMapping = input.Mapping{
	AxisStrafeX: 0, AxisStrafeY: 1, AxisRoll: 2, AxisPitch: 3,
	ButtonYawLeft: 4, ButtonYawRight: 5,
	ButtonRodUp: 6, ButtonRodDown: 7, ButtonStart: 9,
}

// fakeBackend records calls in memory.
type fakeBackend struct {
	rounds []*model.Round
	ticks  []model.Tick
	nextID uint
}

func (f *fakeBackend) Init() error  { return nil }
func (f *fakeBackend) Close() error { return nil }
func (f *fakeBackend) StartRound(r *model.Round) error {
	f.nextID++
	r.ID = f.nextID
	f.rounds = append(f.rounds, r)
	return nil
}
func (f *fakeBackend) RecordTick(t *model.Tick) error {
	f.ticks = append(f.ticks, *t)
	return nil
}
func (f *fakeBackend) EndRound(r *model.Round) error { return nil }

// fakeBroadcast forwards broadcasts onto channels.
type fakeBroadcast struct {
	scenes  chan wire.ScenePayload
	ticks   chan wire.TickPayload
	phases  chan wire.PhasePayload
	reports chan wire.ReportPayload
}

func newFakeBroadcast() *fakeBroadcast {
	return &fakeBroadcast{
		scenes:  make(chan wire.ScenePayload, 16),
		ticks:   make(chan wire.TickPayload, 100000),
		phases:  make(chan wire.PhasePayload, 16),
		reports: make(chan wire.ReportPayload, 16),
	}
}

func (f *fakeBroadcast) BroadcastScene(p wire.ScenePayload)   { f.scenes <- p }
func (f *fakeBroadcast) BroadcastTick(p wire.TickPayload)     { f.ticks <- p }
func (f *fakeBroadcast) BroadcastPhase(p wire.PhasePayload)   { f.phases <- p }
func (f *fakeBroadcast) BroadcastReport(p wire.ReportPayload) { f.reports <- p }

type fixture struct {
	game      *Game
	controls  *input.Controls
	broadcast *fakeBroadcast
	backend   *fakeBackend
	roundCtx  *round.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := &fakeBackend{}
	logManager := logging.NewManager()
	controls := input.NewControls(input.NewGamepad(testMapping, 0.10))
	roundCtx := round.NewContext()
	broadcast := newFakeBroadcast()

	p := params.New(func() uint64 { return 1234 })
	// Fall fast from the minimum altitude so flights finish quickly.
	p.Set([]wire.Param{
		{Name: params.InitAltitude, Value: 100.0},
		{Name: params.InitVerticalVelocity, Value: -20.0},
		{Name: params.InitVerticalVelTarget, Value: -20.0},
	})

	rec := recorder.NewManager(recorder.Dependencies{
		LogManager: logManager,
		Backend:    backend,
	})

	g := New(Dependencies{
		LogManager: logManager,
		Params:     p,
		Controls:   controls,
		Recorder:   rec,
		RoundCtx:   roundCtx,
		Broadcast:  broadcast,
	}, time.Millisecond)

	return &fixture{game: g, controls: controls, broadcast: broadcast, backend: backend, roundCtx: roundCtx}
}

// pressStart taps the start button through the raw sample path.
func (f *fixture) pressStart(t *testing.T) {
	t.Helper()
	msg := wire.JoyPayload{Axes: make([]float64, 4), Buttons: make([]float64, 10)}
	msg.Buttons[9] = 1
	require.NoError(t, f.controls.Apply(time.Now(), msg))
	msg.Buttons[9] = 0
	require.NoError(t, f.controls.Apply(time.Now(), msg))
}

func waitPhase(t *testing.T, f *fakeBroadcast, want string) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		select {
		case p := <-f.phases:
			if p.Phase == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for phase %q", want)
		}
	}
}

func TestRoundWaitsForStart(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.game.Run(ctx)

	scene := <-f.broadcast.scenes
	assert.Equal(t, 200, scene.Width)
	assert.Len(t, scene.Heights, 200*200)
	waitPhase(t, f.broadcast, "waiting")

	// No flight until start is pressed.
	assert.Empty(t, f.broadcast.ticks)
	assert.Equal(t, round.PhaseWaiting, f.roundCtx.GetPhase())

	f.pressStart(t)
	waitPhase(t, f.broadcast, "flying")
	assert.EqualValues(t, 1, f.roundCtx.ID())
	assert.Equal(t, "1234", f.roundCtx.SeedString())
}

func TestFullDescentProducesReport(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.game.Run(ctx)

	waitPhase(t, f.broadcast, "waiting")
	f.pressStart(t)
	waitPhase(t, f.broadcast, "flying")

	select {
	case report := <-f.broadcast.reports:
		// A 20 m/s descent with no pilot input ends hard.
		assert.Equal(t, "crashed", report.Status)
		assert.Len(t, report.Criteria, 5)
		assert.NotEmpty(t, report.Remark)
	case <-time.After(30 * time.Second):
		t.Fatal("timed out waiting for landing report")
	}

	waitPhase(t, f.broadcast, "down")
	assert.Equal(t, round.PhaseDown, f.roundCtx.GetPhase())

	// Frames were broadcast and recorded.
	assert.NotEmpty(t, f.broadcast.ticks)

	// The next start press begins a fresh round with a fresh scene.
	f.pressStart(t)
	waitPhase(t, f.broadcast, "waiting")
}

func TestMidFlightResetAbortsRound(t *testing.T) {
	f := newFixture(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go f.game.Run(ctx)

	waitPhase(t, f.broadcast, "waiting")
	f.pressStart(t)
	waitPhase(t, f.broadcast, "flying")

	// Give the flight a few frames, then press start again.
	time.Sleep(20 * time.Millisecond)
	f.pressStart(t)

	// The round restarts: a new scene and waiting phase appear without a
	// report in between.
	waitPhase(t, f.broadcast, "waiting")
	select {
	case <-f.broadcast.reports:
		t.Fatal("aborted round must not produce a report")
	default:
	}
	require.NotEmpty(t, f.backend.rounds)
	assert.Equal(t, "aborted", f.backend.rounds[0].Status)
}
