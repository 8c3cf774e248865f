// auto/verify.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"log/slog"
	gomath "math"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/mission"
)

// verifyCommand is the per-tick completion predicate for the active
// commands. Note the asymmetry with dispatch: an unrecognized id fails to
// start but verifies complete, so the mission always advances.
func (m *Mode) verifyCommand(cmd mission.Command) bool {
	// The vehicle may have left the mode between the sequencer poll and
	// this call; never report progress for a mode that isn't flying.
	if !m.active {
		return false
	}

	var done bool
	switch cmd.ID {
	case mission.NavTakeoff:
		done = m.verifyTakeoff()
	case mission.NavWaypoint, mission.NavSplineWaypoint:
		done = m.verifyWP(cmd)
	case mission.NavLand:
		done = m.verifyLand()
	case mission.NavLoiterUnlim:
		done = false // holds until the operator intervenes
	case mission.NavLoiterTurns:
		done = m.verifyCircle()
	case mission.NavLoiterTime:
		done = m.verifyLoiterTime()
	case mission.NavLoiterToAlt:
		done = m.verifyLoiterToAlt()
	case mission.NavReturnToLaunch:
		done = m.verifyRTL()
	case mission.NavGuidedEnable:
		done = !cmd.Enable || m.v.Guided.LimitsBreached(m.now)
	case mission.NavDelay:
		done = !m.now.Before(m.navDelayEnd)
	case mission.NavPayloadPlace:
		done = m.verifyPayloadPlace()
	case mission.NavScriptTime:
		done = m.verifyScriptTime()
	case mission.NavAttitudeTime:
		done = m.verifyAttitudeTime()

	case mission.ConditionDelay:
		done = m.now.Sub(m.condStart).Seconds() >= m.condValue
	case mission.ConditionDistance:
		done = m.v.WPNav.DistanceToDestination() < m.condValue
	case mission.ConditionYaw:
		done = m.verifyYaw()

	case mission.DoChangeSpeed, mission.DoSetHome, mission.DoSetROI,
		mission.DoSetROILocation, mission.DoSetROINone, mission.DoMountControl,
		mission.DoGuidedLimits, mission.DoWinch, mission.DoLandStart,
		mission.DoReturnPathStart:
		done = true // immediate commands complete synchronously

	default:
		m.ev.PostStatus(events.SeverityWarning, "Skipping invalid cmd #%d", cmd.Index)
		done = true
	}

	if done {
		m.ev.Post(events.Event{Type: events.ItemReachedEvent, Index: cmd.Index})
		m.lg.Info("auto: command complete",
			slog.String("cmd", cmd.ID.String()), slog.Int("index", cmd.Index))
	}
	return done
}

// internalError reports an impossible branch. Execution continues in a
// defined degraded state; the process never terminates for one.
func (m *Mode) internalError(msg string) {
	m.ev.Post(events.Event{Type: events.InternalErrorEvent,
		Severity: events.SeverityCritical, Message: msg})
	m.lg.Error("auto: internal error", slog.String("error", msg))
}

func (m *Mode) verifyTakeoff() bool {
	done := m.v.Takeoff.Complete()
	if done && m.v.LandingGear != nil {
		m.v.LandingGear.Retract()
	}
	return done
}

// verifyWP completes once the destination is reached and the arrival
// delay, timed from first arrival, has elapsed.
func (m *Mode) verifyWP(cmd mission.Command) bool {
	if !m.verifyLoiterTime() {
		return false
	}
	m.ev.PostStatus(events.SeverityInfo, "Reached command #%d", cmd.Index)
	return true
}

func (m *Mode) verifyLoiterTime() bool {
	if !m.v.WPNav.ReachedDestination() {
		return false
	}
	if m.loiterTime.IsZero() {
		m.loiterTime = m.now // timer starts on first arrival
	}
	return m.now.Sub(m.loiterTime).Seconds() >= m.loiterTimeMax
}

func (m *Mode) verifyLand() bool {
	l, ok := m.sub.(*landMode)
	if !ok {
		m.internalError("verifying land outside the land submode")
		return true
	}
	switch l.phase {
	case landFlyToLocation:
		if m.v.WPNav.ReachedDestination() {
			m.beginLandDescent(l)
		}
		return false

	default: // landDescending
		done := m.v.Status.GroundContact() && m.v.Motors.Spool() <= SpoolGroundIdle
		if done && !m.mis.ContinueAfterLandCheckForTakeoff() && m.v.Motors.Armed() {
			// disarm now; completion is deferred one further tick
			m.v.Motors.Disarm("auto land")
			done = false
		}
		return done
	}
}

func (m *Mode) verifyCircle() bool {
	if m.sub.kind() == SubModeCircleMoveToEdge {
		// reaching the edge starts the orbit but does not complete the
		// command
		if m.v.WPNav.ReachedDestination() {
			m.beginCircling()
		}
		return false
	}
	if m.sub.kind() != SubModeCircle {
		m.internalError("verifying circle outside the circle submodes")
		return true
	}

	turns := m.v.Circle.AngleTotal() / (2 * gomath.Pi)
	if n := int(turns); n > m.circleAnnounced && turns < m.circleTurns {
		m.circleAnnounced = n
		m.ev.PostStatus(events.SeverityInfo, "Circle %d/%d", n, int(gomath.Ceil(m.circleTurns)))
	}
	return turns >= m.circleTurns
}

func (m *Mode) verifyLoiterToAlt() bool {
	l, ok := m.sub.(*loiterToAltMode)
	if !ok {
		m.internalError("verifying loiter-to-alt outside its submode")
		return true
	}
	return l.reachedXY && l.reachedAlt
}

func (m *Mode) verifyRTL() bool {
	return m.v.RTL.StateComplete() &&
		(m.v.RTL.State() == RTLFinalDescent || m.v.RTL.State() == RTLLand) &&
		m.v.Motors.Spool() <= SpoolGroundIdle
}

func (m *Mode) verifyScriptTime() bool {
	st, ok := m.sub.(*scriptTimeMode)
	if !ok {
		m.internalError("verifying script-time outside its submode")
		return true
	}
	if st.failed {
		return true
	}
	if m.Script.doneFor(st.gen) {
		m.Script.end()
		return true
	}
	if st.timeoutSec > 0 && m.now.Sub(st.start).Seconds() >= st.timeoutSec {
		m.ev.PostStatus(events.SeverityWarning, "NavScriptTime: timed out")
		m.Script.end()
		return true
	}
	return false
}

func (m *Mode) verifyAttitudeTime() bool {
	at, ok := m.sub.(*attitudeTimeMode)
	if !ok {
		m.internalError("verifying attitude-time outside its submode")
		return true
	}
	return m.now.Sub(at.start).Seconds() >= at.args.TimeSec
}

// verifyYaw re-asserts the fixed-yaw target every poll, since another
// submode's dispatch may have reclaimed heading control in the interim.
func (m *Mode) verifyYaw() bool {
	if !m.v.Yaw.FixedYawActive() {
		m.v.Yaw.SetFixedYaw(m.fixedYaw.AngleDeg, m.fixedYaw.RateDps,
			m.fixedYaw.Direction, m.fixedYaw.Relative)
	}
	return m.v.Yaw.ReachedFixedYaw()
}
