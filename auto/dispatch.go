// auto/dispatch.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"log/slog"
	gomath "math"
	"time"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
)

// startCommand converts a mission command into submode initialization. It
// never blocks; an unrecognized id is rejected so the sequencer skips
// forward.
func (m *Mode) startCommand(cmd mission.Command) bool {
	m.lg.Info("auto: start command",
		slog.String("cmd", cmd.ID.String()), slog.Int("index", cmd.Index))

	switch cmd.ID {
	case mission.NavTakeoff:
		m.startTakeoff(cmd)
	case mission.NavWaypoint:
		m.startWP(cmd, false)
	case mission.NavSplineWaypoint:
		m.startWP(cmd, true)
	case mission.NavLand:
		m.startLand(cmd)
	case mission.NavLoiterUnlim:
		m.startLoiterUnlimited(cmd)
	case mission.NavLoiterTurns:
		m.startCircle(cmd)
	case mission.NavLoiterTime:
		m.startLoiterTime(cmd)
	case mission.NavLoiterToAlt:
		m.startLoiterToAlt(cmd)
	case mission.NavReturnToLaunch:
		m.v.RTL.Start(m.now)
		m.setSubMode(rtlMode{})
	case mission.NavGuidedEnable:
		return m.startNavGuided(cmd)
	case mission.NavDelay:
		m.startNavDelay(cmd)
	case mission.NavPayloadPlace:
		m.startPayloadPlace(cmd)
	case mission.NavScriptTime:
		m.startScriptTime(cmd)
	case mission.NavAttitudeTime:
		m.startAttitudeTime(cmd)

	case mission.ConditionDelay:
		m.condStart, m.condValue = m.now, cmd.ConditionSec
	case mission.ConditionDistance:
		m.condValue = cmd.ConditionMeters
	case mission.ConditionYaw:
		m.startConditionYaw(cmd)

	case mission.DoChangeSpeed:
		m.doChangeSpeed(cmd)
	case mission.DoSetHome:
		m.doSetHome(cmd)
	case mission.DoSetROI, mission.DoSetROILocation:
		m.v.Yaw.SetROI(cmd.Loc)
	case mission.DoSetROINone:
		m.v.Yaw.ClearROI()
	case mission.DoMountControl:
		if m.v.Mount != nil && cmd.Mount != nil {
			m.v.Mount.SetAngles(cmd.Mount.RollDeg, cmd.Mount.PitchDeg, cmd.Mount.YawDeg)
		}
	case mission.DoGuidedLimits:
		if cmd.Limits != nil {
			m.guidedLimits = *cmd.Limits
			m.v.Guided.SetLimits(m.now, cmd.Limits.TimeoutSec,
				cmd.Limits.AltMin, cmd.Limits.AltMax, cmd.Limits.HorizMax)
		}
	case mission.DoWinch:
		m.doWinch(cmd)
	case mission.DoLandStart, mission.DoReturnPathStart:
		// sequence markers, nothing to fly

	default:
		m.lg.Warn("auto: rejecting unknown command",
			slog.String("cmd", cmd.ID.String()), slog.Int("index", cmd.Index))
		return false
	}
	return true
}

// locFromCmd fills a command's zero-valued lat/lon and altitude from the
// given default so terse chained commands inherit position.
func (m *Mode) locFromCmd(cmd mission.Command, def geo.Location) geo.Location {
	loc := cmd.Loc
	if loc.IsZero() {
		loc.Lat, loc.Lon = def.Lat, def.Lon
	}
	if loc.Alt == 0 {
		loc = loc.CopyAltFrom(def)
	}
	return loc
}

// defaultTargetLoc is the position terse commands inherit: the prior
// target if a waypoint leg is active and already arrived, else the
// vehicle's current position.
func (m *Mode) defaultTargetLoc() geo.Location {
	switch m.sub.kind() {
	case SubModeWP, SubModeLoiter, SubModeCircleMoveToEdge:
		if m.v.WPNav.ReachedDestination() {
			return m.v.WPNav.Destination()
		}
	}
	return m.v.Status.Location()
}

// resolveTerrain rewrites a terrain-framed altitude as origin-relative
// when no terrain data is available; missing data is never fatal.
func (m *Mode) resolveTerrain(loc geo.Location) geo.Location {
	if loc.Frame != geo.AltAboveTerrain {
		return loc
	}
	if _, err := m.v.Env.AltInFrame(loc, geo.AltAboveOrigin); err != nil {
		m.ev.PostStatus(events.SeverityWarning,
			"Terrain data missing, using alt-above-origin")
		loc.Frame = geo.AltAboveOrigin
	}
	return loc
}

func (m *Mode) startTakeoff(cmd mission.Command) {
	loc := m.resolveTerrain(cmd.Loc)
	alt, err := m.v.Env.AltInFrame(loc, geo.AltAboveOrigin)
	if err != nil {
		alt = loc.Alt
	}
	if m.v.Status.GroundContact() {
		// always climb at least a meter when starting from the ground
		alt = max(alt, m.v.Status.Location().Alt+1)
	}

	m.v.Pos.InitZ() // clear the vertical integrator before ascending
	m.v.Takeoff.Start(alt)
	m.setSubMode(takeoffMode{})
}

// chainableFollower reports whether a following command's destination can
// be pre-staged for a smooth corner; any other type forces a full stop at
// the current target.
func chainableFollower(id mission.ID) bool {
	switch id {
	case mission.NavWaypoint, mission.NavLoiterUnlim, mission.NavPayloadPlace,
		mission.NavLoiterTime, mission.NavSplineWaypoint:
		return true
	}
	return false
}

func (m *Mode) startWP(cmd mission.Command, spline bool) {
	loc := m.resolveTerrain(m.locFromCmd(cmd, m.defaultTargetLoc()))
	if !m.v.Yaw.ROIActive() {
		m.v.Yaw.SetDefault()
	}
	m.applySpeedOverrides()

	next, nextOK := m.mis.NextNavCmd(cmd.Index + 1)
	nextOK = nextOK && cmd.DelaySec == 0 && chainableFollower(next.ID)

	var err error
	if spline {
		var nextLoc geo.Location
		if nextOK {
			nextLoc = m.resolveTerrain(m.locFromCmd(next, loc))
		}
		err = m.v.WPNav.SetSplineDestination(loc, nextLoc, next.ID == mission.NavSplineWaypoint)
	} else {
		err = m.v.WPNav.SetDestination(loc)
	}
	if err != nil {
		// terrain dropped out between resolution and dispatch
		m.ev.PostStatus(events.SeverityWarning, "Waypoint %d: %v", cmd.Index, err)
		loc.Frame = geo.AltAboveOrigin
		if err = m.v.WPNav.SetDestination(loc); err != nil {
			m.lg.Errorf("auto: waypoint %d unusable: %v", cmd.Index, err)
		}
	}

	m.loiterTime, m.loiterTimeMax = time.Time{}, cmd.DelaySec

	// Pre-stage the next destination so transit continues through this
	// one without stopping.
	if nextOK && !spline {
		nextLoc := m.resolveTerrain(m.locFromCmd(next, loc))
		if err := m.v.WPNav.SetNextDestination(nextLoc); err != nil {
			m.lg.Warnf("auto: pre-stage of command %d failed: %v", next.Index, err)
		}
	}

	m.setSubMode(wpMode{})
}

func (m *Mode) startLand(cmd mission.Command) {
	l := &landMode{}
	if !cmd.Loc.IsZero() {
		// fly to the commanded point at the current altitude, then descend
		target := cmd.Loc.CopyAltFrom(m.v.Status.Location())
		if err := m.v.WPNav.SetDestination(target); err == nil {
			l.phase = landFlyToLocation
			m.setSubMode(l)
			return
		}
		m.ev.PostStatus(events.SeverityWarning, "Land: fly-to unusable, descending here")
	}
	m.beginLandDescent(l)
	m.setSubMode(l)
}

// beginLandDescent switches a landMode into its descent phase.
func (m *Mode) beginLandDescent(l *landMode) {
	l.phase = landDescending
	m.v.Yaw.SetDefault()
	m.v.Pos.InitZ()
}

func (m *Mode) startLoiterUnlimited(cmd mission.Command) {
	loc := m.resolveTerrain(m.locFromCmd(cmd, m.defaultTargetLoc()))
	m.applySpeedOverrides()
	if err := m.v.WPNav.SetDestination(loc); err != nil {
		m.ev.PostStatus(events.SeverityWarning, "Loiter %d: %v", cmd.Index, err)
		loc.Frame = geo.AltAboveOrigin
		_ = m.v.WPNav.SetDestination(loc)
	}
	m.setSubMode(loiterMode{})
}

func (m *Mode) startLoiterTime(cmd mission.Command) {
	m.startLoiterUnlimited(cmd)
	m.loiterTime, m.loiterTimeMax = time.Time{}, cmd.DelaySec
}

func (m *Mode) startLoiterToAlt(cmd mission.Command) {
	l := &loiterToAltMode{}
	loc := m.locFromCmd(cmd, m.defaultTargetLoc())

	// horizontal leg flown at the current altitude
	target := loc.CopyAltFrom(m.v.Status.Location())
	if err := m.v.WPNav.SetDestination(target); err != nil {
		m.ev.PostStatus(events.SeverityWarning, "LoiterToAlt %d: %v", cmd.Index, err)
		l.reachedXY = true
	}

	if alt, err := m.v.Env.AltInFrame(loc, geo.AltAboveOrigin); err != nil {
		// unresolvable target altitude completes the command rather than
		// hanging the mission
		m.ev.PostStatus(events.SeverityWarning, "bad loiter to alt")
		l.reachedXY, l.reachedAlt = true, true
	} else {
		l.targetAlt = alt
	}
	m.setSubMode(l)
}

func (m *Mode) startCircle(cmd mission.Command) {
	center := m.resolveTerrain(m.locFromCmd(cmd, m.defaultTargetLoc()))
	radius := cmd.Radius
	if radius <= 0 {
		radius = m.params.CircleRadius
	}
	m.circleCenter, m.circleRadius, m.circleCCW = center, radius, cmd.CCW
	m.circleTurns = cmd.Turns
	m.circleAnnounced = 0

	cur := m.v.Status.Location()
	distToCenter := geo.HorizontalDistance(cur, center)
	if math.Abs(distToCenter-radius) > 3 {
		// transit to the closest point on the circle before orbiting
		edge, err := m.circleEdgeLocation(center, cur, radius)
		if err == nil {
			if distToCenter > radius && distToCenter > 5 {
				m.v.Yaw.SetDefault() // face the edge on the way in
			} else {
				m.v.Yaw.SetFixedYaw(m.v.Status.HeadingDeg(), 0, 0, false)
			}
			if err = m.v.WPNav.SetDestination(edge); err == nil {
				m.setSubMode(circleEdgeMode{})
				return
			}
		}
		m.ev.PostStatus(events.SeverityWarning, "Circle %d: %v", cmd.Index, err)
	}
	m.beginCircling()
}

// circleEdgeLocation is the point on the circle closest to cur; from the
// exact center it falls back to the current heading direction.
func (m *Mode) circleEdgeLocation(center, cur geo.Location, radius float64) (geo.Location, error) {
	c, err := m.v.Env.ToNEU(center)
	if err != nil {
		return geo.Location{}, err
	}
	p, err := m.v.Env.ToNEU(cur)
	if err != nil {
		return geo.Location{}, err
	}

	d := p.XY().Sub(c.XY())
	var dir math.Vec2
	if d.Length() < 0.1 {
		h := math.Radians(m.v.Status.HeadingDeg())
		dir = math.Vec2{X: gomath.Cos(h), Y: gomath.Sin(h)}
	} else {
		dir = d.Normalized()
	}
	e := c.XY().Add(dir.Scale(radius))
	return m.v.Env.FromNEU(math.Vec3{X: e.X, Y: e.Y, Z: c.Z})
}

// beginCircling starts the orbit proper; angle accumulation restarts here.
func (m *Mode) beginCircling() {
	if err := m.v.Circle.SetCenter(m.circleCenter, m.circleRadius, m.circleCCW); err != nil {
		m.ev.PostStatus(events.SeverityWarning, "Circle: %v", err)
	}
	m.setSubMode(circleMode{})
}

func (m *Mode) startNavGuided(cmd mission.Command) bool {
	if !cmd.Enable {
		return true // disable is immediate
	}
	if !m.v.Guided.Init() {
		return false
	}
	m.v.Guided.SetLimits(m.now, m.guidedLimits.TimeoutSec,
		m.guidedLimits.AltMin, m.guidedLimits.AltMax, m.guidedLimits.HorizMax)
	m.setSubMode(navGuidedMode{})
	return true
}

func (m *Mode) startNavDelay(cmd mission.Command) {
	if cmd.UTC != nil {
		u := m.now.UTC()
		t := time.Date(u.Year(), u.Month(), u.Day(),
			cmd.UTC.Hour, cmd.UTC.Min, cmd.UTC.Sec, 0, time.UTC)
		if t.Before(m.now) {
			t = m.now
		}
		m.navDelayEnd = t
	} else {
		m.navDelayEnd = m.now.Add(time.Duration(cmd.DelaySec * float64(time.Second)))
	}
	if d := m.navDelayEnd.Sub(m.now); d > 0 {
		m.ev.PostStatus(events.SeverityInfo, "Delaying %.0f sec", d.Seconds())
	}
}

func (m *Mode) startPayloadPlace(cmd mission.Command) {
	p := &payloadPlaceMode{}
	p.pp.init(m, cmd)

	if !cmd.Loc.IsZero() {
		target := cmd.Loc.CopyAltFrom(m.v.Status.Location())
		if err := m.v.WPNav.SetDestination(target); err == nil {
			p.pp.state = ppFlyToLocation
			m.setSubMode(p)
			return
		}
		m.ev.PostStatus(events.SeverityWarning, "PayloadPlace %d: fly-to unusable, placing here", cmd.Index)
	}
	p.pp.state = ppDescentStart
	m.setSubMode(p)
}

func (m *Mode) startScriptTime(cmd mission.Command) {
	st := &scriptTimeMode{start: m.now}
	var a mission.ScriptTimeArgs
	if cmd.Script != nil {
		a = *cmd.Script
	}
	st.timeoutSec = a.TimeoutSec

	if m.v.Guided.Init() {
		st.gen = m.Script.begin(a.Command, a.Arg1, a.Arg2, a.Arg3, a.Arg4)
	} else {
		// a stalled script command must not stall the mission
		st.failed = true
	}
	m.setSubMode(st)
}

func (m *Mode) startAttitudeTime(cmd mission.Command) {
	at := &attitudeTimeMode{start: m.now}
	if cmd.Attitude != nil {
		at.args = *cmd.Attitude
	}
	m.setSubMode(at)
}

func (m *Mode) startConditionYaw(cmd mission.Command) {
	if cmd.Yaw == nil {
		return
	}
	m.fixedYaw = *cmd.Yaw
	m.v.Yaw.SetFixedYaw(cmd.Yaw.AngleDeg, cmd.Yaw.RateDps, cmd.Yaw.Direction, cmd.Yaw.Relative)
}

func (m *Mode) doChangeSpeed(cmd mission.Command) {
	if cmd.Speed == nil || cmd.Speed.Target <= 0 {
		return
	}
	switch cmd.Speed.Type {
	case mission.SpeedHorizontal:
		m.speed.xy = cmd.Speed.Target
		m.v.WPNav.SetSpeedXY(cmd.Speed.Target)
	case mission.SpeedClimb:
		m.speed.up = cmd.Speed.Target
		m.v.WPNav.SetSpeedUp(cmd.Speed.Target)
	case mission.SpeedDescent:
		m.speed.down = cmd.Speed.Target
		m.v.WPNav.SetSpeedDown(cmd.Speed.Target)
	}
}

func (m *Mode) doSetHome(cmd mission.Command) {
	loc := cmd.Loc
	if cmd.UseCurrent {
		loc = m.v.Status.Location()
	} else if loc.IsZero() {
		return
	}
	abs, err := m.v.Env.ChangeFrame(loc, geo.AltAbsolute)
	if err != nil {
		m.ev.PostStatus(events.SeverityWarning, "Set home failed: %v", err)
		return
	}
	m.v.Env.Home = abs
}

func (m *Mode) doWinch(cmd mission.Command) {
	if m.v.Winch == nil || cmd.Winch == nil {
		return
	}
	switch cmd.Winch.Action {
	case mission.WinchRelax:
		m.v.Winch.Relax()
	case mission.WinchRelativeLength:
		m.v.Winch.ReleaseLength(cmd.Winch.Length)
	case mission.WinchRate:
		m.v.Winch.SetRate(cmd.Winch.Rate)
	}
}
