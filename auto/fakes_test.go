// auto/fakes_test.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"time"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
)

type fakeWPNav struct {
	dest      geo.Location
	next      geo.Location
	nextSet   bool
	spline    bool
	reached   bool
	paused    bool
	dist      float64
	bearing   float64
	speedXY   float64
	speedUp   float64
	speedDown float64
	setErr    error
	updates   int
}

func (f *fakeWPNav) SetDestination(loc geo.Location) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.dest, f.spline, f.nextSet, f.reached = loc, false, false, false
	return nil
}

func (f *fakeWPNav) SetNextDestination(loc geo.Location) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.next, f.nextSet = loc, true
	return nil
}

func (f *fakeWPNav) SetSplineDestination(loc, nextLoc geo.Location, nextIsSpline bool) error {
	if f.setErr != nil {
		return f.setErr
	}
	f.dest, f.next, f.spline, f.reached = loc, nextLoc, true, false
	return nil
}

func (f *fakeWPNav) Destination() geo.Location      { return f.dest }
func (f *fakeWPNav) DistanceToDestination() float64 { return f.dist }
func (f *fakeWPNav) BearingToDestination() float64  { return f.bearing }
func (f *fakeWPNav) ReachedDestination() bool       { return f.reached }
func (f *fakeWPNav) SetSpeedXY(s float64)           { f.speedXY = s }
func (f *fakeWPNav) SetSpeedUp(s float64)           { f.speedUp = s }
func (f *fakeWPNav) SetSpeedDown(s float64)         { f.speedDown = s }
func (f *fakeWPNav) SetPaused(p bool)               { f.paused = p }
func (f *fakeWPNav) Update(dt float64)              { f.updates++ }

type fakeCircle struct {
	center   geo.Location
	radius   float64
	ccw      bool
	angle    float64 // radians, test-controlled
	setCalls int
}

func (f *fakeCircle) SetCenter(c geo.Location, r float64, ccw bool) error {
	f.center, f.radius, f.ccw, f.angle = c, r, ccw, 0
	f.setCalls++
	return nil
}
func (f *fakeCircle) Center() geo.Location { return f.center }
func (f *fakeCircle) Radius() float64      { return f.radius }
func (f *fakeCircle) AngleTotal() float64  { return f.angle }
func (f *fakeCircle) Update(dt float64)    {}

type fakePos struct {
	climbRate float64
	initZ     int
}

func (f *fakePos) InitZ()                  { f.initZ++ }
func (f *fakePos) SetClimbRate(r float64)  { f.climbRate = r }
func (f *fakePos) MaxSpeedUp() float64     { return 2.5 }
func (f *fakePos) MaxSpeedDown() float64   { return 1.5 }
func (f *fakePos) MaxAccelZ() float64      { return 1.0 }
func (f *fakePos) Update(dt float64)       {}

type fakeTakeoff struct {
	alt      float64
	started  bool
	complete bool
}

func (f *fakeTakeoff) Start(alt float64) { f.alt, f.started, f.complete = alt, true, false }
func (f *fakeTakeoff) Complete() bool    { return f.complete }
func (f *fakeTakeoff) Update(dt float64) {}

type fakeRTL struct {
	state    RTLState
	complete bool
	started  bool
}

func (f *fakeRTL) Start(now time.Time)            { f.started = true }
func (f *fakeRTL) State() RTLState                { return f.state }
func (f *fakeRTL) StateComplete() bool            { return f.complete }
func (f *fakeRTL) Update(now time.Time, d float64) {}

type fakeGuided struct {
	initOK   bool
	breached bool
	limits   bool
}

func (f *fakeGuided) Init() bool { return f.initOK }
func (f *fakeGuided) SetLimits(start time.Time, timeout, altMin, altMax, horizMax float64) {
	f.limits = true
}
func (f *fakeGuided) ClearLimits()                      { f.limits = false }
func (f *fakeGuided) LimitsBreached(now time.Time) bool { return f.breached }
func (f *fakeGuided) Update(dt float64)                 {}

type fakeAttitude struct {
	roll, pitch, yaw, climb float64
}

func (f *fakeAttitude) SetAttitude(r, p, y, c float64) { f.roll, f.pitch, f.yaw, f.climb = r, p, y, c }
func (f *fakeAttitude) Update(dt float64)              {}

type yawState int

const (
	yawDefault yawState = iota
	yawFixed
	yawROI
)

type fakeYaw struct {
	state        yawState
	fixedAngle   float64
	reachedFixed bool
}

func (f *fakeYaw) SetDefault() { f.state = yawDefault }
func (f *fakeYaw) SetFixedYaw(angle, rate float64, dir int, rel bool) {
	f.state, f.fixedAngle = yawFixed, angle
}
func (f *fakeYaw) FixedYawActive() bool      { return f.state == yawFixed }
func (f *fakeYaw) ReachedFixedYaw() bool     { return f.reachedFixed }
func (f *fakeYaw) SetROI(loc geo.Location)   { f.state = yawROI }
func (f *fakeYaw) ClearROI()                 { f.state = yawDefault }
func (f *fakeYaw) ROIActive() bool           { return f.state == yawROI }

type fakeMotors struct {
	armed        bool
	spool        SpoolState
	throttle     float64
	disarmReason string
}

func (f *fakeMotors) Armed() bool           { return f.armed }
func (f *fakeMotors) Disarm(reason string)  { f.armed, f.disarmReason = false, reason }
func (f *fakeMotors) Spool() SpoolState     { return f.spool }
func (f *fakeMotors) Throttle() float64     { return f.throttle }

type fakeStatus struct {
	loc     geo.Location
	vel     math.Vec3
	heading float64
	ground  bool
	posOK   bool
}

func (f *fakeStatus) Location() geo.Location   { return f.loc }
func (f *fakeStatus) VelocityNEU() math.Vec3   { return f.vel }
func (f *fakeStatus) HeadingDeg() float64      { return f.heading }
func (f *fakeStatus) GroundContact() bool      { return f.ground }
func (f *fakeStatus) PositionOK() bool         { return f.posOK }

type fakeGripper struct {
	releaseCalls int
	released     bool
}

func (f *fakeGripper) Release()       { f.releaseCalls++ }
func (f *fakeGripper) Released() bool { return f.released }

type fakeRangefinder struct {
	alt float64
	ok  bool
}

func (f *fakeRangefinder) Alt() (float64, bool) { return f.alt, f.ok }

type fakeLandingGear struct {
	retracted bool
}

func (f *fakeLandingGear) Retract() { f.retracted = true }
func (f *fakeLandingGear) Deploy()  { f.retracted = false }

// fakes groups the controller doubles that back a test Mode.
type fakes struct {
	wp       *fakeWPNav
	circle   *fakeCircle
	pos      *fakePos
	takeoff  *fakeTakeoff
	rtl      *fakeRTL
	guided   *fakeGuided
	attitude *fakeAttitude
	yaw      *fakeYaw
	motors   *fakeMotors
	status   *fakeStatus
	env      *geo.Environment
}

func newFakes() (*Vehicle, *fakes) {
	f := &fakes{
		wp:       &fakeWPNav{},
		circle:   &fakeCircle{},
		pos:      &fakePos{},
		takeoff:  &fakeTakeoff{},
		rtl:      &fakeRTL{},
		guided:   &fakeGuided{initOK: true},
		attitude: &fakeAttitude{},
		yaw:      &fakeYaw{},
		motors:   &fakeMotors{armed: true, spool: SpoolThrottleUnlimited},
		status:   &fakeStatus{posOK: true, loc: geo.Location{Lat: 10, Lon: 20, Alt: 30, Frame: geo.AltAboveOrigin}},
		env: &geo.Environment{
			Origin:    geo.Location{Lat: 10, Lon: 20, Alt: 100, Frame: geo.AltAbsolute},
			OriginSet: true,
			Home:      geo.Location{Lat: 10, Lon: 20, Alt: 100, Frame: geo.AltAbsolute},
		},
	}
	v := &Vehicle{
		WPNav:    f.wp,
		Circle:   f.circle,
		Pos:      f.pos,
		Takeoff:  f.takeoff,
		RTL:      f.rtl,
		Guided:   f.guided,
		Attitude: f.attitude,
		Yaw:      f.yaw,
		Motors:   f.motors,
		Status:   f.status,
		Env:      f.env,
	}
	return v, f
}

func newTestMode(cmds []mission.Command, params Params) (*Mode, *fakes, *events.Subscription) {
	v, f := newFakes()
	ev := events.NewStream(nil)
	sub := ev.Subscribe()
	m := New(v, cmds, params, ev, nil)
	return m, f, sub
}

// statusTexts extracts operator text from an event batch.
func statusTexts(evs []events.Event) []string {
	var out []string
	for _, e := range evs {
		if e.Type == events.StatusTextEvent {
			out = append(out, e.Message)
		}
	}
	return out
}
