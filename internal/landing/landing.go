// Package landing scores a grounded craft against the touchdown criteria
// and classifies the outcome.
package landing

import (
	"math/rand/v2"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/moonward/lander/internal/lander"
)

// Touchdown thresholds.
const (
	MaxVerticalSpeed   = 3.0
	MaxHorizontalSpeed = 1.0
	MaxTilt            = 0.25
	MaxAngularSpeed    = 0.25
)

// Status classifies the outcome of a round.
type Status string

const (
	StatusLanded  Status = "landed"
	StatusMissed  Status = "missed"
	StatusCrashed Status = "crashed"
)

// Kind names a touchdown criterion.
type Kind string

const (
	KindVerticalSpeed   Kind = "vertical_speed"
	KindHorizontalSpeed Kind = "horizontal_speed"
	KindTilt            Kind = "tilt"
	KindAngularSpeed    Kind = "angular_speed"
	KindDistance        Kind = "distance_from_target"
)

// Criterion is one threshold check with the measured value.
type Criterion struct {
	Kind   Kind
	Max    float64
	Actual float64
}

// Passed reports whether the measured value is within the threshold.
func (c Criterion) Passed() bool {
	return c.Actual <= c.Max
}

// score is the normalized margin, doubled so a perfect touchdown totals 10
// across the five criteria. It goes negative past the threshold.
func (c Criterion) score() float64 {
	return (c.Max - c.Actual) / c.Max * 2
}

// Report is the immutable result of evaluating one touchdown.
type Report struct {
	Status   Status
	Remark   string
	Score    float64
	Criteria []Criterion
}

var remarks = map[Kind][]string{
	KindVerticalSpeed: {
		"The lander redefined the term 'lunar impactor'. NASA's department of craters thanks you.",
		"You've redefined the term 'lunar impactor'.",
	},
	KindHorizontalSpeed: {
		"You landed... sideways. The ground wasn't ready for that level of enthusiasm.",
	},
	KindTilt: {
		"You came in like a majestic leaning tower of 'nope'.",
	},
	KindAngularSpeed: {
		"Still spinning on landing; were you trying for a celebratory twirl?",
	},
	KindDistance: {
		"You stuck the landing - on the wrong part of the moon.",
	},
}

const landedRemark = "The eagle has landed."

// Criteria measures the five touchdown criteria in priority order from the
// craft's final state.
func Criteria(l *lander.Lander, zoneCenter mgl64.Vec3, zoneRadius float64) []Criterion {
	return []Criterion{
		{Kind: KindVerticalSpeed, Max: MaxVerticalSpeed, Actual: l.VerticalSpeed()},
		{Kind: KindHorizontalSpeed, Max: MaxHorizontalSpeed, Actual: l.HorizontalSpeed()},
		{Kind: KindTilt, Max: MaxTilt, Actual: l.Tilt()},
		{Kind: KindAngularSpeed, Max: MaxAngularSpeed, Actual: l.AngularSpeed()},
		{Kind: KindDistance, Max: zoneRadius, Actual: l.DistanceFromZone(zoneCenter)},
	}
}

// Evaluate builds the report for a set of measured criteria. The first
// criterion past its threshold determines the classification: a blown
// distance check alone is a miss, any dynamics failure ahead of it is a
// crash. rng picks the remark when several fit the failing criterion.
func Evaluate(rng *rand.Rand, criteria []Criterion) Report {
	score := 0.0
	var firstProblem Kind
	for _, c := range criteria {
		if !c.Passed() && firstProblem == "" {
			firstProblem = c.Kind
		}
		score += c.score()
	}

	status := StatusLanded
	remark := landedRemark
	switch firstProblem {
	case "":
	case KindDistance:
		status = StatusMissed
		remark = chooseRemark(rng, firstProblem)
	default:
		status = StatusCrashed
		remark = chooseRemark(rng, firstProblem)
	}

	return Report{
		Status:   status,
		Remark:   remark,
		Score:    score,
		Criteria: criteria,
	}
}

func chooseRemark(rng *rand.Rand, kind Kind) string {
	pool := remarks[kind]
	return pool[rng.IntN(len(pool))]
}
