// Package params is the tunable-parameter registry for the simulation.
// Parameters are read by the round loop at reset time and exposed to
// sessions over the wire protocol for remote get/set.
package params

import (
	"math/rand/v2"
	"strconv"
	"sync"

	"github.com/moonward/lander/pkg/wire"
)

// Parameter names as seen on the wire.
const (
	Seed                  = "seed"
	RegenerateSeed        = "regenerate_seed"
	LandscapeWidth        = "landscape_width"
	ZoneRadius            = "landing_zone_radius"
	ZoneMinDistance       = "landing_zone_min_distance"
	ZoneMaxDistance       = "landing_zone_max_distance"
	InitAltitude          = "init_altitude"
	InitVerticalVelocity  = "init_vertical_velocity"
	InitVerticalVelTarget = "init_vertical_velocity_target"
)

type dataKind int

const (
	kindSeed dataKind = iota
	kindBool
	kindFloat
)

// data is one tagged parameter value.
type data struct {
	kind dataKind
	seed uint64
	b    bool
	f    float64
}

type clampKind int

const (
	// clampNone leaves the value as supplied.
	clampNone clampKind = iota
	// clampRange clamps to a fixed [min, max].
	clampRange
	// clampHalfOfOther clamps to [0, other/2] where other is another
	// float parameter, resolved at set time.
	clampHalfOfOther
)

// clamp is a tagged bounds policy. The registry dispatches on kind instead
// of carrying arbitrary bound functions.
type clamp struct {
	kind     clampKind
	min, max float64
	other    string
}

func (c clamp) apply(r *registry, d data) data {
	if d.kind != kindFloat {
		return d
	}
	switch c.kind {
	case clampRange:
		d.f = clampFloat(d.f, c.min, c.max)
	case clampHalfOfOther:
		limit := r.getFloat(c.other) / 2
		d.f = clampFloat(d.f, 0, limit)
	}
	return d
}

func clampFloat(v, lo, hi float64) float64 {
	return min(hi, max(lo, v))
}

type value struct {
	name    string
	descr   string
	current data
	def     data
	clamp   clamp
}

type registry struct {
	order  []string
	values map[string]*value
}

func newRegistry() *registry {
	defs := []value{
		{name: Seed, descr: "Random seed",
			def: data{kind: kindSeed}},
		{name: RegenerateSeed, descr: "Regenerate seed on game reset",
			def: data{kind: kindBool, b: true}},
		{name: LandscapeWidth, descr: "Width of the landscape, which is always square",
			def:   data{kind: kindFloat, f: 200},
			clamp: clamp{kind: clampRange, min: 100, max: 1000}},
		{name: ZoneMinDistance, descr: "Minimum distance between landscape center and landing zone",
			def:   data{kind: kindFloat, f: 30},
			clamp: clamp{kind: clampHalfOfOther, other: LandscapeWidth}},
		{name: ZoneMaxDistance, descr: "Maximum distance between landscape center and landing zone",
			def:   data{kind: kindFloat, f: 70},
			clamp: clamp{kind: clampHalfOfOther, other: LandscapeWidth}},
		{name: ZoneRadius, descr: "Landing zone radius",
			def:   data{kind: kindFloat, f: 20},
			clamp: clamp{kind: clampRange, min: 5, max: 50}},
		{name: InitAltitude, descr: "Initial lander altitude",
			def:   data{kind: kindFloat, f: 200},
			clamp: clamp{kind: clampRange, min: 100, max: 1000}},
		{name: InitVerticalVelocity, descr: "Initial lander vertical velocity",
			def:   data{kind: kindFloat, f: 0},
			clamp: clamp{kind: clampRange, min: -20, max: 0}},
		{name: InitVerticalVelTarget, descr: "Initial lander vertical velocity target",
			def:   data{kind: kindFloat, f: -6},
			clamp: clamp{kind: clampRange, min: -20, max: 0}},
	}

	r := &registry{values: make(map[string]*value, len(defs))}
	for i := range defs {
		v := defs[i]
		v.current = v.def
		r.order = append(r.order, v.name)
		r.values[v.name] = &v
	}
	return r
}

func (r *registry) getFloat(key string) float64 {
	if v, ok := r.values[key]; ok && v.current.kind == kindFloat {
		return v.current.f
	}
	return 0
}

func (r *registry) getBool(key string) bool {
	if v, ok := r.values[key]; ok && v.current.kind == kindBool {
		return v.current.b
	}
	return false
}

func (r *registry) getSeed(key string) uint64 {
	if v, ok := r.values[key]; ok && v.current.kind == kindSeed {
		return v.current.seed
	}
	return 0
}

// Parameters is the concurrency-safe registry handle shared by the round
// loop and the network sessions.
type Parameters struct {
	mu         sync.RWMutex
	reg        *registry
	seedSource func() uint64
}

// New creates a registry populated with defaults. seedSource generates
// fresh round seeds; nil falls back to the shared PRNG.
func New(seedSource func() uint64) *Parameters {
	if seedSource == nil {
		seedSource = rand.Uint64
	}
	return &Parameters{reg: newRegistry(), seedSource: seedSource}
}

// NextSeed returns the seed for the next round. With regenerate_seed on, a
// fresh seed is drawn and stored so sessions can read back what was played.
func (p *Parameters) NextSeed() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reg.getBool(RegenerateSeed) {
		seed := p.seedSource()
		p.reg.values[Seed].current.seed = seed
		return seed
	}
	return p.reg.getSeed(Seed)
}

// Width of the square landscape grid, in cells.
func (p *Parameters) Width() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return int(p.reg.getFloat(LandscapeWidth))
}

func (p *Parameters) MinZoneDistance() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(ZoneMinDistance)
}

func (p *Parameters) MaxZoneDistance() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(ZoneMaxDistance)
}

func (p *Parameters) ZoneRadius() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(ZoneRadius)
}

func (p *Parameters) InitialAltitude() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(InitAltitude)
}

func (p *Parameters) InitialVerticalVelocity() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(InitVerticalVelocity)
}

func (p *Parameters) InitialVerticalVelocityTarget() float64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.reg.getFloat(InitVerticalVelTarget)
}

// Get returns wire parameters for the named keys, every parameter when no
// names are given. Unknown names are skipped.
func (p *Parameters) Get(names []string) []wire.Param {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if len(names) == 0 {
		names = p.reg.order
	}
	out := make([]wire.Param, 0, len(names))
	for _, name := range names {
		if v, ok := p.reg.values[name]; ok {
			out = append(out, toWire(v))
		}
	}
	return out
}

// Set applies wire parameters and returns everything actually updated, with
// post-clamp values. Unknown names and type mismatches are skipped; a nil
// value resets the parameter to its default.
func (p *Parameters) Set(updates []wire.Param) []wire.Param {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]wire.Param, 0, len(updates))
	for _, upd := range updates {
		v, ok := p.reg.values[upd.Name]
		if !ok {
			continue
		}
		d, ok := fromWire(v, upd.Value)
		if !ok {
			continue
		}
		v.current = v.clamp.apply(p.reg, d)
		out = append(out, toWire(v))
	}
	return out
}

func toWire(v *value) wire.Param {
	p := wire.Param{Name: v.name, Descr: v.descr}
	switch v.current.kind {
	case kindSeed:
		p.Value = strconv.FormatUint(v.current.seed, 10)
	case kindBool:
		p.Value = v.current.b
	case kindFloat:
		p.Value = v.current.f
	}
	return p
}

// fromWire decodes an incoming value against the parameter's declared kind.
// Seeds travel as decimal strings since JSON numbers cannot hold a full
// uint64.
func fromWire(v *value, raw any) (data, bool) {
	if raw == nil {
		return v.def, true
	}
	d := v.current
	switch v.current.kind {
	case kindSeed:
		s, ok := raw.(string)
		if !ok {
			return data{}, false
		}
		seed, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return data{}, false
		}
		d.seed = seed
	case kindBool:
		b, ok := raw.(bool)
		if !ok {
			return data{}, false
		}
		d.b = b
	case kindFloat:
		f, ok := raw.(float64)
		if !ok {
			return data{}, false
		}
		d.f = f
	}
	return d, true
}
