// sim/modes.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"time"

	"github.com/rotorlab/copternav/auto"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
)

// RTL climbs, returns over the origin, and descends to the surface.
type RTL struct {
	V   *Vehicle
	WP  *WPNav
	Pos *PosControl

	// ReturnAlt is the minimum altitude flown home at.
	ReturnAlt float64

	state    auto.RTLState
	complete bool
	active   bool
}

func NewRTL(v *Vehicle, wp *WPNav, pos *PosControl) *RTL {
	return &RTL{V: v, WP: wp, Pos: pos, ReturnAlt: 15}
}

func (r *RTL) Start(now time.Time) {
	r.active, r.complete = true, false
	r.state = auto.RTLInitialClimb
}

func (r *RTL) State() auto.RTLState { return r.state }
func (r *RTL) StateComplete() bool  { return r.complete }

func (r *RTL) Update(now time.Time, dt float64) {
	if !r.active {
		return
	}
	switch r.state {
	case auto.RTLInitialClimb:
		target := max(r.ReturnAlt, r.V.Pos.Z)
		if r.V.Pos.Z >= target-0.05 {
			r.state = auto.RTLReturnHome
			return
		}
		r.Pos.SetClimbRate(math.Clamp(target-r.V.Pos.Z, 0, r.Pos.MaxUp))
		r.Pos.Update(dt)

	case auto.RTLReturnHome:
		to := r.V.Pos.XY().Scale(-1) // origin is home in the sim
		if to.Length() <= reachedRadius {
			r.state = auto.RTLFinalDescent
			return
		}
		step := to.LimitLength(r.WP.SpeedXY).Scale(dt)
		if step.Length() >= to.Length() {
			r.V.Pos.X, r.V.Pos.Y = 0, 0
		} else {
			r.V.Pos.X += step.X
			r.V.Pos.Y += step.Y
		}
		r.V.setClimbDemand(0)

	case auto.RTLFinalDescent:
		if r.V.Pos.Z < 0.5 {
			r.state = auto.RTLLand
			return
		}
		r.Pos.SetClimbRate(-r.Pos.MaxDown)
		r.Pos.Update(dt)

	case auto.RTLLand:
		r.Pos.SetClimbRate(-r.Pos.MaxDown)
		r.Pos.Update(dt)
		if r.V.Pos.Z <= 0 {
			r.complete = true
		}
	}
}

// Guided accepts external targets while enabled, bounded by limits.
type Guided struct {
	V *Vehicle

	enabled bool

	limitStart   time.Time
	timeoutSec   float64
	altMin       float64
	altMax       float64
	horizMax     float64
	limitsActive bool
	anchor       math.Vec2
}

func NewGuided(v *Vehicle) *Guided { return &Guided{V: v} }

func (g *Guided) Init() bool {
	if !g.V.PositionOK() {
		return false
	}
	g.enabled = true
	return true
}

func (g *Guided) SetLimits(start time.Time, timeoutSec, altMin, altMax, horizMax float64) {
	g.limitStart, g.timeoutSec = start, timeoutSec
	g.altMin, g.altMax, g.horizMax = altMin, altMax, horizMax
	g.anchor = g.V.Pos.XY()
	g.limitsActive = true
}

func (g *Guided) ClearLimits() { g.limitsActive = false }

func (g *Guided) LimitsBreached(now time.Time) bool {
	if !g.limitsActive {
		return false
	}
	if g.timeoutSec > 0 && now.Sub(g.limitStart).Seconds() >= g.timeoutSec {
		return true
	}
	if g.altMin != 0 && g.V.Pos.Z < g.altMin {
		return true
	}
	if g.altMax != 0 && g.V.Pos.Z > g.altMax {
		return true
	}
	if g.horizMax > 0 && math.Distance2(g.V.Pos.XY(), g.anchor) > g.horizMax {
		return true
	}
	return false
}

func (g *Guided) Update(dt float64) {
	// the external controller owns motion; the sim holds position
	g.V.setClimbDemand(0)
}

// AttitudeControl integrates only the climb-rate component; attitude
// itself is bookkeeping.
type AttitudeControl struct {
	V *Vehicle

	Roll, Pitch float64
	yawTarget   float64
	climb       float64
}

func NewAttitudeControl(v *Vehicle) *AttitudeControl { return &AttitudeControl{V: v} }

func (a *AttitudeControl) SetAttitude(rollDeg, pitchDeg, yawDeg, climbRate float64) {
	a.Roll, a.Pitch, a.yawTarget, a.climb = rollDeg, pitchDeg, yawDeg, climbRate
}

func (a *AttitudeControl) Update(dt float64) {
	a.V.Heading = a.yawTarget
	a.V.Vel.Z = a.climb
	a.V.Pos.Z += a.climb * dt
	if a.V.Pos.Z < 0 {
		a.V.Pos.Z = 0
	}
	a.V.setClimbDemand(a.climb)
}

type yawMode int

const (
	yawModeDefault yawMode = iota
	yawModeFixed
	yawModeROI
)

// Yaw slews the vehicle heading toward its target; Vehicle.Step drives it.
type Yaw struct {
	V *Vehicle

	// SlewRate is the default turn rate in deg/s.
	SlewRate float64

	mode   yawMode
	target float64
	rate   float64
}

func NewYaw(v *Vehicle) *Yaw {
	y := &Yaw{V: v, SlewRate: 60}
	v.yaw = y
	return y
}

func (y *Yaw) SetDefault() { y.mode = yawModeDefault }

func (y *Yaw) SetFixedYaw(angleDeg, rateDps float64, direction int, relative bool) {
	y.mode = yawModeFixed
	if relative {
		angleDeg = y.V.Heading + float64(direction)*angleDeg
	}
	y.target = math.NormalizeHeading(angleDeg)
	y.rate = rateDps
	if y.rate <= 0 {
		y.rate = y.SlewRate
	}
}

func (y *Yaw) FixedYawActive() bool { return y.mode == yawModeFixed }

func (y *Yaw) ReachedFixedYaw() bool {
	return y.mode == yawModeFixed && math.HeadingDifference(y.V.Heading, y.target) < 2
}

func (y *Yaw) SetROI(loc geo.Location) { y.mode = yawModeROI }
func (y *Yaw) ClearROI()               { y.mode = yawModeDefault }
func (y *Yaw) ROIActive() bool         { return y.mode == yawModeROI }

func (y *Yaw) step(dt float64) {
	if y.mode != yawModeFixed {
		return
	}
	diff := math.HeadingDifference(y.V.Heading, y.target)
	maxStep := y.rate * dt
	if diff <= maxStep {
		y.V.Heading = y.target
		return
	}
	// turn the short way
	a := math.NormalizeHeading(y.target - y.V.Heading)
	if a <= 180 {
		y.V.Heading = math.NormalizeHeading(y.V.Heading + maxStep)
	} else {
		y.V.Heading = math.NormalizeHeading(y.V.Heading - maxStep)
	}
}
