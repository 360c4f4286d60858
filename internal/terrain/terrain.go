// Package terrain builds the procedural lunar surface for a round: a square
// heightfield from coherent noise, with a flat landing zone carved in and
// blended smoothly back into the surrounding relief.
package terrain

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/aquilax/go-perlin"
	"github.com/go-gl/mathgl/mgl64"
)

const (
	noiseScale = 0.1
	zScale     = 2.0

	// blendMargin is added to the zone radius to form the blend radius: the
	// annulus between the two is where flat height interpolates back to the
	// natural noise height.
	blendMargin = 3.0

	perlinAlpha   = 2.0
	perlinBeta    = 2.0
	perlinOctaves = 3
)

// ErrWidthTooSmall is returned when the grid cannot contain a landing zone
// plus its blend annulus.
var ErrWidthTooSmall = errors.New("terrain width too small for landing zone blend")

// Terrain is a width×width grid of height samples with one designated
// landing zone. Immutable once the zone has been carved.
type Terrain struct {
	width      int
	heights    []float64
	zoneCenter mgl64.Vec3
	zoneRadius float64
}

// New generates a heightfield from a deterministic noise function seeded by
// seed. Height at cell (x, y) is zScale * noise(x*noiseScale, y*noiseScale).
func New(seed int64, width int) (*Terrain, error) {
	if width < 2 {
		return nil, fmt.Errorf("terrain width must be at least 2, got %d", width)
	}

	p := perlin.NewPerlin(perlinAlpha, perlinBeta, perlinOctaves, seed)
	t := &Terrain{
		width:   width,
		heights: make([]float64, width*width),
	}
	for x := 0; x < width; x++ {
		for y := 0; y < width; y++ {
			t.heights[x*width+y] = zScale * p.Noise2D(float64(x)*noiseScale, float64(y)*noiseScale)
		}
	}
	return t, nil
}

// Width returns the grid width. The grid is always square.
func (t *Terrain) Width() int {
	return t.width
}

// Center returns the planar center of the grid at height 0.
func (t *Terrain) Center() mgl64.Vec3 {
	return mgl64.Vec3{float64(t.width) / 2.0, float64(t.width) / 2.0, 0}
}

// ZoneCenter returns the landing zone center (x, y, original height).
func (t *Terrain) ZoneCenter() mgl64.Vec3 {
	return t.zoneCenter
}

// ZoneRadius returns the flat landing zone radius.
func (t *Terrain) ZoneRadius() float64 {
	return t.zoneRadius
}

// HeightAt returns the height sample at grid cell (ix, iy).
func (t *Terrain) HeightAt(ix, iy int) float64 {
	return t.heights[ix*t.width+iy]
}

func (t *Terrain) setHeight(ix, iy int, z float64) {
	t.heights[ix*t.width+iy] = z
}

// Heights returns a copy of the height buffer in row-major order,
// for scene emission.
func (t *Terrain) Heights() []float64 {
	out := make([]float64, len(t.heights))
	copy(out, t.heights)
	return out
}

// CarveLandingZone picks a random zone center at a random angle and a random
// distance in [minDist, maxDist] from the grid center, carves a flat disk of
// the given radius there and blends it into the terrain. Returns the zone
// center (x, y, original height at the center).
func (t *Terrain) CarveLandingZone(rng *rand.Rand, minDist, maxDist, radius float64) (mgl64.Vec3, error) {
	angle := rng.Float64() * 2 * math.Pi
	dist := minDist + rng.Float64()*(maxDist-minDist)

	center := t.Center()
	cx := int(math.Round(center.X() + dist*math.Cos(angle)))
	cy := int(math.Round(center.Y() + dist*math.Sin(angle)))
	return t.CarveLandingZoneAt(cx, cy, radius)
}

// CarveLandingZoneAt carves a flat landing zone centered at grid cell
// (cx, cy). Cells at planar distance d <= radius take the center height; the
// annulus out to radius+blendMargin interpolates linearly back to the
// original height with t = clamp((d-radius)/2, 0, 1). Iteration is clamped
// to valid grid indices, so a zone near the playfield edge blends
// asymmetrically rather than failing.
func (t *Terrain) CarveLandingZoneAt(cx, cy int, radius float64) (mgl64.Vec3, error) {
	blendRadius := radius + blendMargin
	if float64(t.width) < 2*blendRadius+1 {
		return mgl64.Vec3{}, fmt.Errorf("%w: width %d, blend radius %g", ErrWidthTooSmall, t.width, blendRadius)
	}
	if cx < 0 || cx >= t.width || cy < 0 || cy >= t.width {
		return mgl64.Vec3{}, fmt.Errorf("landing zone center (%d, %d) outside grid", cx, cy)
	}

	centerZ := t.HeightAt(cx, cy)

	span := int(math.Ceil(blendRadius))
	for ix := max(cx-span, 0); ix <= min(cx+span, t.width-1); ix++ {
		for iy := max(cy-span, 0); iy <= min(cy+span, t.width-1); iy++ {
			dx := float64(ix - cx)
			dy := float64(iy - cy)
			d := math.Sqrt(dx*dx + dy*dy)
			if d > blendRadius {
				continue
			}
			// f=0 within the flat zone, f=1 at the edge of the blend radius.
			f := clamp((d-radius)/2.0, 0, 1)
			t.setHeight(ix, iy, (1-f)*centerZ+f*t.HeightAt(ix, iy))
		}
	}

	t.zoneCenter = mgl64.Vec3{float64(cx), float64(cy), centerZ}
	t.zoneRadius = radius
	return t.zoneCenter, nil
}

// LanderStart returns the initial lander position for this terrain in the
// zone-relative frame: the grid center offset by the zone center, at the
// given altitude.
func (t *Terrain) LanderStart(altitude float64) mgl64.Vec3 {
	return t.Center().Sub(t.zoneCenter).Add(mgl64.Vec3{0, 0, altitude})
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
