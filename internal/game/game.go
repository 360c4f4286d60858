// Package game runs the round lifecycle: terrain generation, the fixed-step
// flight loop, and touchdown evaluation.
package game

import (
	"context"
	"encoding/binary"
	"math/rand/v2"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/moonward/lander/internal/input"
	"github.com/moonward/lander/internal/lander"
	"github.com/moonward/lander/internal/landing"
	"github.com/moonward/lander/internal/logging"
	"github.com/moonward/lander/internal/model"
	"github.com/moonward/lander/internal/params"
	"github.com/moonward/lander/internal/recorder"
	"github.com/moonward/lander/internal/round"
	"github.com/moonward/lander/internal/terrain"
	"github.com/moonward/lander/pkg/wire"
)

// DefaultTickInterval is the fixed simulation step.
const DefaultTickInterval = 33 * time.Millisecond

// Broadcaster pushes state to connected sessions.
type Broadcaster interface {
	BroadcastScene(wire.ScenePayload)
	BroadcastTick(wire.TickPayload)
	BroadcastPhase(wire.PhasePayload)
	BroadcastReport(wire.ReportPayload)
}

// Dependencies holds the collaborators of the game loop.
type Dependencies struct {
	LogManager *logging.Manager
	Params     *params.Parameters
	Controls   *input.Controls
	Recorder   *recorder.Manager
	RoundCtx   *round.Context
	Broadcast  Broadcaster
}

// Game owns the simulation. All mutable flight state is confined to the
// loop goroutine; sessions interact through Controls, Params, and the
// broadcaster.
type Game struct {
	deps Dependencies
	tick time.Duration
}

// New creates the game loop.
func New(deps Dependencies, tick time.Duration) *Game {
	if tick <= 0 {
		tick = DefaultTickInterval
	}
	return &Game{deps: deps, tick: tick}
}

// Run plays rounds back to back until the context ends.
func (g *Game) Run(ctx context.Context) {
	log := g.deps.LogManager.Logger()
	for ctx.Err() == nil {
		if err := g.playRound(ctx); err != nil && ctx.Err() == nil {
			log.ErrorContext(ctx, "Round aborted", "error", err)
		}
	}
}

// playRound plays one round: generate, wait for start, fly, evaluate, then
// hold the wreck or the glory on screen until the next start press.
func (g *Game) playRound(ctx context.Context) error {
	log := g.deps.LogManager.Logger()

	// Terrain and craft for this round. The same seed drives both the
	// noise field and the zone placement, so a round is reproducible
	// from its seed alone.
	seed := g.deps.Params.NextSeed()
	rng := rand.New(rand.NewChaCha8(seedBytes(seed)))

	terr, err := terrain.New(int64(seed), g.deps.Params.Width())
	if err != nil {
		return err
	}
	if _, err := terr.CarveLandingZone(
		rng,
		g.deps.Params.MinZoneDistance(),
		g.deps.Params.MaxZoneDistance(),
		g.deps.Params.ZoneRadius(),
	); err != nil {
		return err
	}

	start := terr.LanderStart(g.deps.Params.InitialAltitude())
	craft := lander.New(
		start,
		g.deps.Params.InitialVerticalVelocity(),
		g.deps.Params.InitialVerticalVelocityTarget(),
	)

	g.deps.Controls.SoftReset()
	g.deps.RoundCtx.SetPhase(round.PhaseWaiting)
	g.broadcastScene(terr, start)
	g.deps.Broadcast.BroadcastPhase(wire.PhasePayload{Phase: string(round.PhaseWaiting)})

	// Hold until the pilot presses start.
	if err := g.waitForStart(ctx); err != nil {
		return err
	}
	g.deps.Controls.SoftReset()

	rec, err := g.deps.Recorder.StartRound(seed, time.Now())
	if err != nil {
		return err
	}
	g.deps.RoundCtx.Begin(uint64(rec.ID), seed)
	g.deps.Broadcast.BroadcastPhase(wire.PhasePayload{Phase: string(round.PhaseFlying)})
	log.InfoContext(ctx, "Round started", "seed", rec.Seed, "width", terr.Width())

	// Flight loop. The craft flies in zone-centered coordinates: the
	// landing zone is the origin and z 0 is its surface plane.
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()
	dt := g.tick.Seconds()
	var frame uint

	for !craft.HasLanded(0) {
		select {
		case <-ctx.Done():
			return g.deps.Recorder.Abort(context.Background())
		case <-ticker.C:
		}

		craft.Step(dt, g.deps.Controls.Take())
		frame++
		g.publishTick(frame, craft)

		if g.deps.Controls.ResetRequested() {
			// A mid-flight start press scraps the round.
			log.InfoContext(ctx, "Round reset mid-flight", "frame", frame)
			return g.deps.Recorder.Abort(ctx)
		}
	}

	// Touchdown. Evaluate and freeze.
	criteria := landing.Criteria(craft, mgl64.Vec3{}, g.deps.Params.ZoneRadius())
	report := landing.Evaluate(rng, criteria)
	craft.Stop()
	g.deps.RoundCtx.SetPhase(round.PhaseDown)

	endedAt := time.Now()
	if err := g.deps.Recorder.EndRound(ctx, report, endedAt); err != nil {
		log.ErrorContext(ctx, "Failed to persist round", "error", err)
	}

	g.deps.Broadcast.BroadcastReport(toWireReport(report))
	g.deps.Broadcast.BroadcastPhase(wire.PhasePayload{Phase: string(round.PhaseDown)})
	log.InfoContext(ctx, "Round finished",
		"status", string(report.Status), "score", report.Score, "frames", frame)

	return g.waitForStart(ctx)
}

// waitForStart polls the start button at tick cadence.
func (g *Game) waitForStart(ctx context.Context) error {
	ticker := time.NewTicker(g.tick)
	defer ticker.Stop()
	for !g.deps.Controls.ResetRequested() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (g *Game) broadcastScene(terr *terrain.Terrain, start mgl64.Vec3) {
	zc := terr.ZoneCenter()
	g.deps.Broadcast.BroadcastScene(wire.ScenePayload{
		Width:      terr.Width(),
		Heights:    terr.Heights(),
		ZoneCenter: wire.Vec3{X: zc.X(), Y: zc.Y(), Z: zc.Z()},
		ZoneRadius: terr.ZoneRadius(),
		LanderInit: wire.Vec3{X: start.X(), Y: start.Y(), Z: start.Z()},
	})
}

func (g *Game) publishTick(frame uint, craft *lander.Lander) {
	pos := craft.Position()
	vel := craft.Velocity()
	ori := craft.Orientation()
	av := craft.AngularVelocity()
	at := time.Now()

	g.deps.Broadcast.BroadcastTick(wire.TickPayload{
		Frame:           uint64(frame),
		Position:        wire.Vec3{X: pos.X(), Y: pos.Y(), Z: pos.Z()},
		Velocity:        wire.Vec3{X: vel.X(), Y: vel.Y(), Z: vel.Z()},
		Orientation:     wire.Quat{W: ori.W, X: ori.X(), Y: ori.Y(), Z: ori.Z()},
		AngularVelocity: wire.Vec3{X: av.X(), Y: av.Y(), Z: av.Z()},
		FuelMass:        craft.FuelMass(),
		Throttle:        craft.Throttle(),
		TargetRoD:       craft.TargetRoD(),
	})

	g.deps.Recorder.RecordTick(model.Tick{
		Frame: frame,
		At:    at,
		PosX:  pos.X(), PosY: pos.Y(), PosZ: pos.Z(),
		VelX: vel.X(), VelY: vel.Y(), VelZ: vel.Z(),
		QuatW: ori.W, QuatX: ori.X(), QuatY: ori.Y(), QuatZ: ori.Z(),
		AngVelX: av.X(), AngVelY: av.Y(), AngVelZ: av.Z(),
		FuelMass:  craft.FuelMass(),
		Throttle:  craft.Throttle(),
		TargetRoD: craft.TargetRoD(),
	})
}

func toWireReport(report landing.Report) wire.ReportPayload {
	criteria := make([]wire.CriterionPayload, len(report.Criteria))
	for i, c := range report.Criteria {
		criteria[i] = wire.CriterionPayload{
			Kind:   string(c.Kind),
			Max:    c.Max,
			Actual: c.Actual,
			Passed: c.Passed(),
		}
	}
	return wire.ReportPayload{
		Status:   string(report.Status),
		Remark:   report.Remark,
		Score:    report.Score,
		Criteria: criteria,
	}
}

// seedBytes expands the round seed into the ChaCha8 key.
func seedBytes(seed uint64) [32]byte {
	var b [32]byte
	for i := 0; i < 4; i++ {
		binary.LittleEndian.PutUint64(b[i*8:], seed)
	}
	return b
}
