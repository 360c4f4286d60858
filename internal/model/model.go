// Package model defines the persisted round records.
package model

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/moonward/lander/internal/landing"
)

// Round is one complete descent, from reset to touchdown.
type Round struct {
	ID        uint   `gorm:"primarykey" json:"-"`
	Seed      string `gorm:"index" json:"seed"`
	StartedAt time.Time
	EndedAt   *time.Time

	// Outcome, filled at touchdown.
	Status   string         `gorm:"index" json:"status"`
	Remark   string         `json:"remark"`
	Score    float64        `json:"score"`
	Criteria datatypes.JSON `json:"criteria"`

	Ticks []Tick `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Tick is one frame of flight telemetry.
type Tick struct {
	ID      uint      `gorm:"primarykey" json:"-"`
	RoundID uint      `gorm:"index" json:"-"`
	Frame   uint      `json:"frame"`
	At      time.Time `json:"at"`

	PosX float64 `json:"px"`
	PosY float64 `json:"py"`
	PosZ float64 `json:"pz"`

	VelX float64 `json:"vx"`
	VelY float64 `json:"vy"`
	VelZ float64 `json:"vz"`

	QuatW float64 `json:"qw"`
	QuatX float64 `json:"qx"`
	QuatY float64 `json:"qy"`
	QuatZ float64 `json:"qz"`

	AngVelX float64 `json:"wx"`
	AngVelY float64 `json:"wy"`
	AngVelZ float64 `json:"wz"`

	FuelMass  float64 `json:"fuel"`
	Throttle  float64 `json:"throttle"`
	TargetRoD float64 `json:"targetRod"`
}

// criterionJSON mirrors landing.Criterion for the persisted report.
type criterionJSON struct {
	Kind   string  `json:"kind"`
	Max    float64 `json:"max"`
	Actual float64 `json:"actual"`
	Passed bool    `json:"passed"`
}

// ApplyReport copies a landing report onto the round.
func (r *Round) ApplyReport(report landing.Report, endedAt time.Time) error {
	r.Status = string(report.Status)
	r.Remark = report.Remark
	r.Score = report.Score
	r.EndedAt = &endedAt

	criteria := make([]criterionJSON, len(report.Criteria))
	for i, c := range report.Criteria {
		criteria[i] = criterionJSON{
			Kind:   string(c.Kind),
			Max:    c.Max,
			Actual: c.Actual,
			Passed: c.Passed(),
		}
	}
	raw, err := json.Marshal(criteria)
	if err != nil {
		return err
	}
	r.Criteria = datatypes.JSON(raw)
	return nil
}
