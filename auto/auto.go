// auto/auto.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package auto implements the autonomous mission-execution flight mode: a
// hierarchical state machine that sequences an operator-authored mission
// through a dozen mutually-exclusive submodes, driven cooperatively from
// an external tick loop. Nothing here blocks; all waiting is state carried
// across ticks.
package auto

import (
	"errors"
	"log/slog"
	"time"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/log"
	"github.com/rotorlab/copternav/mission"
)

var (
	ErrNoMission      = errors.New("no mission loaded")
	ErrMissingTakeoff = errors.New("armed on ground without leading takeoff command")
)

// Params are the operator-tunable knobs of the mode.
type Params struct {
	// RestartMission makes mode entry begin at the first command rather
	// than resuming an interrupted one.
	RestartMission bool
	// ContinueAfterLand lets the mission sequence past a completed landing
	// when a later takeoff exists.
	ContinueAfterLand bool
	// CircleRadius is the orbit radius used when a loiter-turns command
	// carries none.
	CircleRadius float64
	// LandSpeed is the landing descent rate; 0 uses the position
	// controller's maximum.
	LandSpeed float64

	// Payload placement tuning.
	PlaceDescentSpeed   float64 // 0 uses LandSpeed
	PlacedFraction      float64 // fraction of calibrated thrust meaning "weight off"
	PlaceSettleSec      float64 // hold time after release confirmation
	PlaceRangefinderMin float64 // clearance cutoff, 0 disables
}

func DefaultParams() Params {
	return Params{
		CircleRadius:   10,
		PlacedFraction: 0.9,
		PlaceSettleSec: 0.5,
	}
}

type speedOverride struct {
	xy, up, down float64 // m/s; 0 means no override
}

// Mode is the Auto flight behavior. It owns the single active submode and
// the mission sequencing that feeds it. All methods must be called from
// the vehicle's main loop thread; only the ScriptBridge is shared with
// another goroutine.
type Mode struct {
	v      *Vehicle
	params Params
	lg     *log.Logger
	ev     *events.Stream

	mis *mission.Mission
	cd  mission.ChangeDetector

	sub     subMode
	active  bool
	paused  bool
	autoRTL bool

	// waitingToStart defers mission start until a position origin exists;
	// locations are meaningless without one.
	waitingToStart bool

	now     time.Time
	lastNow time.Time

	speed speedOverride

	// Condition registers, shared serially by condition commands; valid
	// because at most one runs at a time.
	condStart time.Time
	condValue float64

	// Fixed-yaw target for re-assertion during verification.
	fixedYaw mission.YawArgs

	// Arrival-delay registers shared by waypoint, spline, timed loiter and
	// circle-edge commands. A zero loiterTime means "not started".
	loiterTime    time.Time
	loiterTimeMax float64 // seconds

	circleCenter    geo.Location
	circleRadius    float64
	circleCCW       bool
	circleTurns     float64
	circleAnnounced int

	navDelayEnd time.Time

	guidedLimits mission.GuidedLimitsArgs

	// Script is the mailbox shared with the external scripting bridge.
	Script *ScriptBridge
}

func New(v *Vehicle, cmds []mission.Command, params Params, ev *events.Stream, lg *log.Logger) *Mode {
	if lg == nil {
		lg = log.NewDiscard()
	}
	m := &Mode{
		v:      v,
		params: params,
		lg:     lg,
		ev:     ev,
		Script: &ScriptBridge{},
		sub:    loiterMode{},
	}
	m.mis = mission.New(cmds, mission.Callbacks{
		Start:    m.startCommand,
		Verify:   m.verifyCommand,
		Complete: m.missionComplete,
	})
	m.mis.Restart = params.RestartMission
	m.mis.ContinueAfterLand = params.ContinueAfterLand
	return m
}

// Mission exposes the sequencer, e.g. for uploads and telemetry.
func (m *Mode) Mission() *mission.Mission { return m.mis }

func (m *Mode) Active() bool         { return m.active }
func (m *Mode) Paused() bool         { return m.paused }
func (m *Mode) AutoRTL() bool        { return m.autoRTL }
func (m *Mode) SubMode() SubModeKind { return m.sub.kind() }

// AllowsArming reports whether the vehicle may arm while this mode is
// engaged; refused once the mode presents as a return-and-land sequence.
func (m *Mode) AllowsArming() bool { return !m.autoRTL }

// UsesPilotYaw reports whether pilot yaw input is honored; it is ignored
// while a region of interest owns the heading.
func (m *Mode) UsesPilotYaw() bool { return !m.v.Yaw.ROIActive() }

// Enter engages the mode. It is refused without a mission, and refused
// when armed and on the ground unless the mission leads with a takeoff.
func (m *Mode) Enter(now time.Time) error {
	if !m.mis.Present() {
		return ErrNoMission
	}
	if m.v.Motors.Armed() && m.v.Status.GroundContact() && !m.mis.StartsWithTakeoffCmd() {
		m.ev.PostStatus(events.SeverityCritical, "Missing Takeoff Cmd")
		return ErrMissingTakeoff
	}

	m.active = true
	m.waitingToStart = true
	m.paused = false
	m.autoRTL = false
	m.speed = speedOverride{}
	m.now, m.lastNow = now, time.Time{}
	m.sub = loiterMode{}

	m.v.Guided.ClearLimits()
	m.v.Yaw.SetDefault()
	m.cd.Reset()

	m.lg.Info("auto: entered", slog.Int("commands", m.mis.NumCommands()))
	return nil
}

// Exit disengages the mode: mission progression stops (indices are kept
// for a later resume), the mount returns to its default, and the AutoRTL
// presentation flag clears. Teardown never blocks.
func (m *Mode) Exit() {
	m.mis.Stop()
	if _, ok := m.sub.(*scriptTimeMode); ok {
		m.Script.end()
	}
	if m.v.Mount != nil {
		m.v.Mount.SetDefault()
	}
	m.autoRTL = false
	m.active = false
	m.lg.Info("auto: exited")
}

// Run advances the mode by one tick. The caller invokes it at >=100 Hz
// with the current wall-clock time.
func (m *Mode) Run(now time.Time) {
	if !m.active {
		return
	}
	dt := 0.01
	if !m.lastNow.IsZero() {
		if d := now.Sub(m.lastNow).Seconds(); d > 0 {
			dt = d
		}
	}
	m.now, m.lastNow = now, now

	if m.waitingToStart {
		if !m.v.Env.OriginSet {
			return
		}
		m.waitingToStart = false
		m.mis.StartOrResume()
		m.cd.Capture(m.mis)
	} else if m.mis.State() == mission.StateRunning {
		m.checkMissionChanged()
		m.mis.Update(now)
	}

	m.sub.run(m, now, dt)

	// The AutoRTL presentation clears on its own once the mission no
	// longer reports a landing-sequence, return-path or completed state.
	if m.autoRTL && !m.mis.InLandingSequence() && !m.mis.InReturnPath() &&
		m.mis.State() != mission.StateComplete {
		m.autoRTL = false
		m.ev.Post(events.Event{Type: events.ModeChangeEvent, Message: "AUTO RTL ended"})
		m.lg.Info("auto: AUTO RTL ended")
	}
}

// checkMissionChanged detects operator edits to the in-flight command
// window. A changed waypoint leg is re-dispatched and the outcome is
// reported; the mission is never aborted for an edit.
func (m *Mode) checkMissionChanged() {
	if !m.cd.Changed(m.mis) {
		return
	}
	if m.sub.kind() == SubModeWP {
		if m.mis.RestartCurrentNavCmd() {
			m.ev.PostStatus(events.SeverityInfo, "Mission changed, restarted command")
		} else {
			m.ev.PostStatus(events.SeverityWarning, "Mission changed, failed to restart command")
		}
	}
	m.cd.Capture(m.mis)
}

// setSubMode installs the submode driving the current command. The new
// object always replaces the old one: consecutive commands of the same
// kind each arrive with freshly initialized state, and verifying against
// the finished object would skip the second command. Only the transition
// announcement and the estimate recheck key on the kind changing.
func (m *Mode) setSubMode(s subMode) {
	prev := m.sub
	m.sub = s
	if prev != nil && prev.kind() == s.kind() {
		return
	}

	m.ev.Post(events.Event{Type: events.SubmodeChangeEvent, Message: s.kind().String()})
	m.lg.Info("auto: submode", slog.String("submode", s.kind().String()))

	// Every submode except attitude-hold requires a position estimate;
	// leaving it must re-run the estimate failsafe check rather than
	// silently bypassing the precondition.
	if prev != nil && prev.kind() == SubModeNavAttitudeTime && m.v.Hooks.EKFPositionRecheck != nil {
		m.v.Hooks.EKFPositionRecheck()
	}
}

// missionComplete is the sequencer's completion callback: loiter if
// airborne, hand off to a plain descent if loitering is impossible, and
// disarm if already on the ground.
func (m *Mode) missionComplete() {
	m.ev.PostStatus(events.SeverityInfo, "Mission complete")
	m.lg.Info("auto: mission complete")

	if m.v.Status.GroundContact() {
		if m.v.Motors.Armed() {
			m.v.Motors.Disarm("mission complete")
		}
		return
	}
	if m.v.Status.PositionOK() {
		if err := m.v.WPNav.SetDestination(m.v.Status.Location()); err == nil {
			m.setSubMode(loiterMode{})
			return
		}
	}
	if m.v.Hooks.RequestLand != nil {
		m.v.Hooks.RequestLand()
	}
}

// EnterAutoRTL redirects the running mission into its landing sequence,
// or failing that onto the closest return-path leg, and raises the
// AutoRTL presentation flag.
func (m *Mode) EnterAutoRTL(now time.Time) bool {
	return m.enterAutoRTL(now, true, true)
}

// EnterAutoRTLLanding jumps only to a landing sequence.
func (m *Mode) EnterAutoRTLLanding(now time.Time) bool {
	return m.enterAutoRTL(now, true, false)
}

// EnterAutoRTLReturnPath joins only the return path.
func (m *Mode) EnterAutoRTLReturnPath(now time.Time) bool {
	return m.enterAutoRTL(now, false, true)
}

func (m *Mode) enterAutoRTL(now time.Time, landing, returnPath bool) bool {
	m.now = now
	loc := m.v.Status.Location()

	m.mis.SetForceResume(true)
	ok := landing && m.mis.JumpToLandingSequence(loc)
	if !ok && returnPath {
		ok = m.mis.JumpToClosestMissionLeg(loc)
	}
	if !ok {
		m.mis.SetForceResume(false)
		m.ev.PostStatus(events.SeverityWarning, "Mode change to AUTO RTL failed")
		return false
	}

	m.waitingToStart = false
	m.autoRTL = true
	// the jump rewired sequencing; the change detector must not read the
	// new leg as an operator edit
	m.cd.Capture(m.mis)
	m.ev.Post(events.Event{Type: events.ModeChangeEvent, Message: "AUTO RTL"})
	m.lg.Info("auto: AUTO RTL engaged")
	return true
}

// Pause freezes progress along the current waypoint leg. Refused outside
// a waypoint leg or once the destination is reached.
func (m *Mode) Pause() bool {
	if m.sub.kind() != SubModeWP || m.v.WPNav.ReachedDestination() {
		return false
	}
	m.paused = true
	m.v.WPNav.SetPaused(true)
	return true
}

// Resume continues a paused waypoint leg.
func (m *Mode) Resume() bool {
	if !m.paused {
		return false
	}
	m.paused = false
	m.v.WPNav.SetPaused(false)
	return true
}

// WPDistance is the horizontal distance to the active target, for
// telemetry.
func (m *Mode) WPDistance() float64 {
	switch m.sub.kind() {
	case SubModeCircle:
		return geo.HorizontalDistance(m.v.Status.Location(), m.v.Circle.Center())
	default:
		return m.v.WPNav.DistanceToDestination()
	}
}

// WPBearing is the bearing to the active target in degrees.
func (m *Mode) WPBearing() float64 {
	return m.v.WPNav.BearingToDestination()
}

// TargetLocation reports the currently tracked destination, when the
// active submode has one.
func (m *Mode) TargetLocation() (geo.Location, bool) {
	switch m.sub.kind() {
	case SubModeWP, SubModeLoiter, SubModeLoiterToAlt, SubModeCircleMoveToEdge, SubModeLand:
		return m.v.WPNav.Destination(), true
	case SubModeCircle:
		return m.v.Circle.Center(), true
	default:
		return geo.Location{}, false
	}
}

// IsLanding reports whether the vehicle is in a terminal descent: the
// land submode's descent phase, a payload-place descent, or the final
// phases of RTL.
func (m *Mode) IsLanding() bool {
	switch s := m.sub.(type) {
	case *landMode:
		return s.phase == landDescending
	case *payloadPlaceMode:
		return s.pp.state == ppDescent
	default:
		return m.sub.kind() == SubModeRTL &&
			(m.v.RTL.State() == RTLFinalDescent || m.v.RTL.State() == RTLLand)
	}
}

// HeightAboveGround estimates the height above the surface below, for
// landing-detector consumers: the rangefinder when it has a valid
// reading, otherwise altitude above origin.
func (m *Mode) HeightAboveGround() float64 {
	if m.v.Rangefinder != nil {
		if alt, ok := m.v.Rangefinder.Alt(); ok {
			return alt
		}
	}
	return m.v.Status.Location().Alt
}

func (m *Mode) landSpeed() float64 {
	if m.params.LandSpeed > 0 {
		return m.params.LandSpeed
	}
	return m.v.Pos.MaxSpeedDown()
}

// applySpeedOverrides pushes mission speed overrides into the waypoint
// controller; they persist for the lifetime of the mode.
func (m *Mode) applySpeedOverrides() {
	if m.speed.xy > 0 {
		m.v.WPNav.SetSpeedXY(m.speed.xy)
	}
	if m.speed.up > 0 {
		m.v.WPNav.SetSpeedUp(m.speed.up)
	}
	if m.speed.down > 0 {
		m.v.WPNav.SetSpeedDown(m.speed.down)
	}
}
