// auto/submode.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"time"

	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
)

// SubModeKind identifies which control behavior is active. Exactly one
// submode is active at a time; all transitions go through setSubMode.
type SubModeKind int

const (
	SubModeTakeoff SubModeKind = iota
	SubModeWP
	SubModeLand
	SubModeRTL
	SubModeCircleMoveToEdge
	SubModeCircle
	SubModeLoiter
	SubModeLoiterToAlt
	SubModeNavGuided
	SubModeNavScriptTime
	SubModeNavPayloadPlace
	SubModeNavAttitudeTime
)

func (k SubModeKind) String() string {
	return [...]string{
		"Takeoff", "WP", "Land", "RTL", "CircleMoveToEdge", "Circle",
		"Loiter", "LoiterToAlt", "NavGuided", "NavScriptTime",
		"NavPayloadPlace", "NavAttitudeTime",
	}[k]
}

// subMode is the closed variant set of active behaviors. Each variant
// carries only its own auxiliary state and drives its controllers from
// run, once per tick.
type subMode interface {
	kind() SubModeKind
	run(m *Mode, now time.Time, dt float64)
}

type takeoffMode struct{}

func (takeoffMode) kind() SubModeKind { return SubModeTakeoff }
func (takeoffMode) run(m *Mode, now time.Time, dt float64) {
	m.v.Takeoff.Update(dt)
}

// wpMode covers straight and spline legs, unlimited loiter-at-point is
// loiterMode below.
type wpMode struct{}

func (wpMode) kind() SubModeKind { return SubModeWP }
func (wpMode) run(m *Mode, now time.Time, dt float64) {
	if !m.paused {
		m.v.WPNav.Update(dt)
	}
}

type landPhase int

const (
	landFlyToLocation landPhase = iota
	landDescending
)

type landMode struct {
	phase landPhase
}

func (*landMode) kind() SubModeKind { return SubModeLand }
func (l *landMode) run(m *Mode, now time.Time, dt float64) {
	switch l.phase {
	case landFlyToLocation:
		m.v.WPNav.Update(dt)
	case landDescending:
		m.v.Pos.SetClimbRate(-m.landSpeed())
		m.v.Pos.Update(dt)
	}
}

type rtlMode struct{}

func (rtlMode) kind() SubModeKind { return SubModeRTL }
func (rtlMode) run(m *Mode, now time.Time, dt float64) {
	m.v.RTL.Update(now, dt)
}

type circleEdgeMode struct{}

func (circleEdgeMode) kind() SubModeKind { return SubModeCircleMoveToEdge }
func (circleEdgeMode) run(m *Mode, now time.Time, dt float64) {
	m.v.WPNav.Update(dt)
}

type circleMode struct{}

func (circleMode) kind() SubModeKind { return SubModeCircle }
func (circleMode) run(m *Mode, now time.Time, dt float64) {
	m.v.Circle.Update(dt)
}

type loiterMode struct{}

func (loiterMode) kind() SubModeKind { return SubModeLoiter }
func (loiterMode) run(m *Mode, now time.Time, dt float64) {
	m.v.WPNav.Update(dt)
}

type loiterToAltMode struct {
	targetAlt     float64 // above origin
	reachedXY     bool
	loiterStarted bool
	reachedAlt    bool
	altError      float64
	errorValid    bool
}

func (*loiterToAltMode) kind() SubModeKind { return SubModeLoiterToAlt }
func (l *loiterToAltMode) run(m *Mode, now time.Time, dt float64) {
	if !l.reachedXY {
		m.v.WPNav.Update(dt)
		if m.v.WPNav.ReachedDestination() {
			l.reachedXY = true
		}
		return
	}

	if !l.loiterStarted {
		m.v.Pos.InitZ()
		l.loiterStarted = true
	}

	err := l.targetAlt - m.v.Status.Location().Alt
	if !l.reachedAlt {
		// Done when the error is under 5cm or its sign flips between
		// consecutive ticks; either suffices.
		signFlip := l.errorValid && math.Sign(err) != math.Sign(l.altError) && !math.IsZero(l.altError)
		if math.Abs(err) < 0.05 || signFlip {
			l.reachedAlt = true
		}
	}
	l.altError, l.errorValid = err, true

	climb := math.SqrtController(err, sqrtControllerP, m.v.Pos.MaxAccelZ(), dt)
	climb = math.Clamp(climb, -m.v.Pos.MaxSpeedDown(), m.v.Pos.MaxSpeedUp())
	m.v.Pos.SetClimbRate(climb)
	m.v.Pos.Update(dt)
}

const sqrtControllerP = 2.0

type navGuidedMode struct{}

func (navGuidedMode) kind() SubModeKind { return SubModeNavGuided }
func (navGuidedMode) run(m *Mode, now time.Time, dt float64) {
	m.v.Guided.Update(dt)
}

type scriptTimeMode struct {
	gen        int
	start      time.Time
	timeoutSec float64
	failed     bool // guided refused; command completes immediately
}

func (*scriptTimeMode) kind() SubModeKind { return SubModeNavScriptTime }
func (*scriptTimeMode) run(m *Mode, now time.Time, dt float64) {
	m.v.Guided.Update(dt)
}

type payloadPlaceMode struct {
	pp payloadPlace
}

func (*payloadPlaceMode) kind() SubModeKind { return SubModeNavPayloadPlace }
func (p *payloadPlaceMode) run(m *Mode, now time.Time, dt float64) {
	p.pp.run(m, now, dt)
}

type attitudeTimeMode struct {
	args  mission.AttitudeTimeArgs
	start time.Time
}

func (*attitudeTimeMode) kind() SubModeKind { return SubModeNavAttitudeTime }
func (a *attitudeTimeMode) run(m *Mode, now time.Time, dt float64) {
	m.v.Attitude.SetAttitude(a.args.RollDeg, a.args.PitchDeg, a.args.YawDeg, a.args.ClimbRate)
	m.v.Attitude.Update(dt)
}
