// auto/payloadplace.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"log/slog"
	"time"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
)

// ppState is the payload placement sequence. The machine is self-contained
// and composed into the parent by delegation from payloadPlaceMode.
type ppState int

const (
	ppFlyToLocation ppState = iota
	ppDescentStart
	ppDescent
	ppRelease
	ppReleasing
	ppDelay
	ppAscentStart
	ppAscent
	ppDone
)

func (s ppState) String() string {
	return [...]string{
		"FlyToLocation", "Descent_Start", "Descent", "Release", "Releasing",
		"Delay", "Ascent_Start", "Ascent", "Done",
	}[s]
}

const (
	// window over which thrust is averaged once the descent rate holds
	ppThrustCalWindow = 2 * time.Second
	// how long thrust must stay below the placed threshold
	ppPlacedWindow = 500 * time.Millisecond
)

type payloadPlace struct {
	state ppState

	descentMax   float64 // meters; 0 disables the cutoff
	descentSpeed float64

	startAlt float64 // above origin at descent start; ascent returns here

	calStart  time.Time
	calSum    float64
	calCount  int
	calThrust float64 // averaged thrust while descending; 0 until calibrated

	placedStart time.Time
	delayStart  time.Time

	manualRelease bool
}

func (pp *payloadPlace) init(m *Mode, cmd mission.Command) {
	pp.descentMax = cmd.DescentMax
	pp.descentSpeed = m.params.PlaceDescentSpeed
	if pp.descentSpeed <= 0 {
		pp.descentSpeed = m.landSpeed()
	}
}

func (pp *payloadPlace) setState(m *Mode, s ppState) {
	if pp.state == s {
		return
	}
	m.lg.Debug("auto: payload place",
		slog.String("from", pp.state.String()), slog.String("to", s.String()))
	pp.state = s
}

func (pp *payloadPlace) run(m *Mode, now time.Time, dt float64) {
	switch pp.state {
	case ppFlyToLocation:
		if pp.manualRelease {
			m.ev.PostStatus(events.SeverityInfo, "Payload place aborted, payload released manually")
			pp.setState(m, ppDone)
			return
		}
		if m.v.Status.GroundContact() {
			pp.setState(m, ppRelease)
			return
		}
		m.v.WPNav.Update(dt)
		if m.v.WPNav.ReachedDestination() {
			pp.setState(m, ppDescentStart)
		}

	case ppDescentStart:
		if pp.manualRelease {
			m.ev.PostStatus(events.SeverityInfo, "Payload place aborted, payload released manually")
			pp.setState(m, ppDone)
			return
		}
		if m.v.Status.GroundContact() {
			pp.setState(m, ppRelease)
			return
		}
		pp.startAlt = m.v.Status.Location().Alt
		pp.calStart, pp.calSum, pp.calCount, pp.calThrust = time.Time{}, 0, 0, 0
		pp.placedStart = time.Time{}
		m.v.Yaw.SetDefault()
		m.v.Pos.InitZ()
		pp.setState(m, ppDescent)

	case ppDescent:
		pp.runDescent(m, now, dt)

	case ppRelease:
		pp.hold(m, dt)
		if m.v.Gripper != nil {
			m.v.Gripper.Release()
		}
		pp.setState(m, ppReleasing)

	case ppReleasing:
		pp.hold(m, dt)
		if m.v.Gripper == nil || m.v.Gripper.Released() {
			m.ev.PostStatus(events.SeverityInfo, "Payload released")
			pp.delayStart = now
			pp.setState(m, ppDelay)
		}

	case ppDelay:
		pp.hold(m, dt)
		if now.Sub(pp.delayStart).Seconds() >= m.params.PlaceSettleSec {
			pp.setState(m, ppAscentStart)
		}

	case ppAscentStart:
		m.v.Pos.InitZ()
		pp.setState(m, ppAscent)

	case ppAscent:
		err := pp.startAlt - m.v.Status.Location().Alt
		climb := math.SqrtController(err, sqrtControllerP, m.v.Pos.MaxAccelZ(), dt)
		climb = math.Clamp(climb, -m.v.Pos.MaxSpeedDown(), m.v.Pos.MaxSpeedUp())
		m.v.Pos.SetClimbRate(climb)
		m.v.Pos.Update(dt)

		// Complete once within the stopping distance implied by a small
		// fraction of the maximum climb rate.
		stop := math.StoppingDistance(0.1*m.v.Pos.MaxSpeedUp(), m.v.Pos.MaxAccelZ())
		if err <= stop {
			pp.setState(m, ppDone)
		}

	case ppDone:
		pp.hold(m, dt)
	}
}

func (pp *payloadPlace) runDescent(m *Mode, now time.Time, dt float64) {
	if m.v.Status.GroundContact() || pp.manualRelease {
		pp.setState(m, ppRelease)
		return
	}

	cur := m.v.Status.Location().Alt
	if pp.descentMax > 0 && pp.startAlt-cur >= pp.descentMax {
		m.ev.PostStatus(events.SeverityWarning, "Reached maximum descent")
		pp.setState(m, ppRelease)
		return
	}
	if m.params.PlaceRangefinderMin > 0 && m.v.Rangefinder != nil {
		if alt, ok := m.v.Rangefinder.Alt(); ok && alt <= m.params.PlaceRangefinderMin {
			pp.setState(m, ppRelease)
			return
		}
	}

	m.v.Pos.SetClimbRate(-pp.descentSpeed)
	m.v.Pos.Update(dt)

	if pp.calThrust == 0 {
		// Calibrate thrust only once the target descent rate is achieved.
		vz := m.v.Status.VelocityNEU().Z
		if math.Abs(vz+pp.descentSpeed) <= 0.1*pp.descentSpeed {
			if pp.calStart.IsZero() {
				pp.calStart = now
			}
			pp.calSum += m.v.Motors.Throttle()
			pp.calCount++
			if now.Sub(pp.calStart) >= ppThrustCalWindow && pp.calCount > 0 {
				pp.calThrust = pp.calSum / float64(pp.calCount)
				m.lg.Debug("auto: payload place thrust calibrated",
					slog.Float64("thrust", pp.calThrust))
			}
		}
		return
	}

	// Touchdown: thrust sustained below the placed threshold for the full
	// debounce window. Recovery above the threshold resets the timer with
	// no partial credit.
	if m.v.Motors.Throttle() <= m.params.PlacedFraction*pp.calThrust {
		if pp.placedStart.IsZero() {
			pp.placedStart = now
		} else if now.Sub(pp.placedStart) >= ppPlacedWindow {
			pp.setState(m, ppRelease)
		}
	} else {
		pp.placedStart = time.Time{}
	}
}

// hold keeps altitude while the machine waits.
func (pp *payloadPlace) hold(m *Mode, dt float64) {
	m.v.Pos.SetClimbRate(0)
	m.v.Pos.Update(dt)
}

func (m *Mode) verifyPayloadPlace() bool {
	p, ok := m.sub.(*payloadPlaceMode)
	if !ok {
		m.internalError("verifying payload place outside its submode")
		return true
	}
	return p.pp.state == ppDone
}

// PayloadManualRelease signals that the payload was released by hand (e.g.
// a gripper channel toggle); it aborts or short-circuits an in-progress
// placement. Returns false when no placement is active.
func (m *Mode) PayloadManualRelease() bool {
	p, ok := m.sub.(*payloadPlaceMode)
	if !ok {
		return false
	}
	p.pp.manualRelease = true
	return true
}
