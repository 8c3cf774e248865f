// auto/controllers.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"time"

	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
)

// The mode drives the vehicle exclusively through the interfaces below;
// flight-quality controllers and the kinematic doubles in package sim both
// satisfy them. All distances are meters, speeds m/s, headings degrees,
// and vertical axes are "up positive" in the origin-relative NEU frame.

// WaypointController tracks straight-line and spline legs toward a
// destination and holds position once there.
type WaypointController interface {
	// SetDestination replaces the current leg. Terrain-framed altitudes
	// fail with geo.ErrNoTerrainData when no data is available.
	SetDestination(loc geo.Location) error
	// SetNextDestination pre-stages the leg after the current one so the
	// vehicle can corner without stopping.
	SetNextDestination(loc geo.Location) error
	// SetSplineDestination is SetDestination for a spline leg; nextLoc, if
	// nonzero, shapes the exit tangent.
	SetSplineDestination(loc geo.Location, nextLoc geo.Location, nextIsSpline bool) error

	Destination() geo.Location
	DistanceToDestination() float64
	BearingToDestination() float64
	ReachedDestination() bool

	SetSpeedXY(speed float64)
	SetSpeedUp(speed float64)
	SetSpeedDown(speed float64)
	SetPaused(paused bool)

	Update(dt float64)
}

// CircleController orbits a center point at a fixed radius.
type CircleController interface {
	SetCenter(center geo.Location, radius float64, ccw bool) error
	Center() geo.Location
	Radius() float64
	// AngleTotal is the accumulated orbit angle in radians since SetCenter,
	// monotonic and non-wrapping.
	AngleTotal() float64
	Update(dt float64)
}

// PositionController is the altitude/position hold layer beneath the
// higher-level trackers; the mode uses it directly for descent, climbs and
// holds that have no horizontal leg.
type PositionController interface {
	// InitZ readies the vertical controller at the current altitude and
	// clears its integral term.
	InitZ()
	SetClimbRate(rate float64) // up positive
	MaxSpeedUp() float64
	MaxSpeedDown() float64 // positive magnitude
	MaxAccelZ() float64
	Update(dt float64)
}

// TakeoffController manages the initial climb to a target altitude above
// origin.
type TakeoffController interface {
	Start(altAboveOrigin float64)
	Complete() bool
	Update(dt float64)
}

// RTLState mirrors the phases of the wrapped return-to-launch controller.
type RTLState int

const (
	RTLInitialClimb RTLState = iota
	RTLReturnHome
	RTLLoiterAtHome
	RTLFinalDescent
	RTLLand
)

func (s RTLState) String() string {
	return [...]string{"InitialClimb", "ReturnHome", "LoiterAtHome", "FinalDescent", "Land"}[s]
}

// RTLController wraps the return-to-launch behavior as a unit; the mode
// only starts it and polls for completion.
type RTLController interface {
	Start(now time.Time)
	State() RTLState
	// StateComplete reports that the current phase has finished.
	StateComplete() bool
	Update(now time.Time, dt float64)
}

// GuidedController accepts externally supplied targets while the mission
// holds a guided-enable command, bounded by the configured limits.
type GuidedController interface {
	// Init readies guided control; false means guided cannot engage (e.g.
	// no position estimate) and the command is rejected.
	Init() bool
	SetLimits(start time.Time, timeoutSec, altMin, altMax, horizMax float64)
	ClearLimits()
	// LimitsBreached reports whether a configured limit (or the timeout)
	// has been exceeded, which completes the guided-enable command.
	LimitsBreached(now time.Time) bool
	Update(dt float64)
}

// AttitudeController holds a commanded attitude and climb rate, used only
// by the attitude-hold-for-time command. It is the one consumer that does
// not require a position estimate.
type AttitudeController interface {
	SetAttitude(rollDeg, pitchDeg, yawDeg, climbRate float64)
	Update(dt float64)
}

// YawController arbitrates the vehicle's heading: default (face along
// track), fixed angle, or tracking a region of interest.
type YawController interface {
	SetDefault()
	SetFixedYaw(angleDeg, rateDps float64, direction int, relative bool)
	// FixedYawActive reports whether the controller is still in fixed-yaw
	// targeting; other submodes may have reclaimed it.
	FixedYawActive() bool
	ReachedFixedYaw() bool
	SetROI(loc geo.Location)
	ClearROI()
	ROIActive() bool
}

// SpoolState is the motor library's output stage.
type SpoolState int

const (
	SpoolShutDown SpoolState = iota
	SpoolGroundIdle
	SpoolSpoolingUp
	SpoolThrottleUnlimited
	SpoolSpoolingDown
)

func (s SpoolState) String() string {
	return [...]string{"ShutDown", "GroundIdle", "SpoolingUp", "ThrottleUnlimited", "SpoolingDown"}[s]
}

// Motors exposes arming and output state.
type Motors interface {
	Armed() bool
	Disarm(reason string)
	Spool() SpoolState
	// Throttle is the current normalized output, 0..1.
	Throttle() float64
}

// Status is the vehicle's estimated state.
type Status interface {
	Location() geo.Location // above-origin altitude frame
	VelocityNEU() math.Vec3
	HeadingDeg() float64
	// GroundContact is the externally maintained landed flag.
	GroundContact() bool
	// PositionOK reports a healthy position estimate.
	PositionOK() bool
}

// Optional payload/airframe hardware; any of these may be nil on a given
// vehicle.

type Gripper interface {
	Release()
	Released() bool
}

type Rangefinder interface {
	// Alt is the measured height above ground; ok is false when the sensor
	// is out of range or unhealthy.
	Alt() (alt float64, ok bool)
}

type Winch interface {
	Relax()
	ReleaseLength(length float64)
	SetRate(rate float64)
}

type Mount interface {
	SetAngles(rollDeg, pitchDeg, yawDeg float64)
	SetDefault()
}

type LandingGear interface {
	Retract()
	Deploy()
}

// Hooks are calls back into the surrounding vehicle logic that the mode
// must trigger but does not own.
type Hooks struct {
	// RequestLand asks for a mode change to a plain descent behavior; used
	// when a finished mission leaves the vehicle airborne with no position
	// estimate to loiter on.
	RequestLand func()
	// EKFPositionRecheck re-runs the position-estimate failsafe check;
	// triggered when leaving the one submode that tolerates a bad estimate.
	EKFPositionRecheck func()
}

// Vehicle bundles everything the mode drives and observes.
type Vehicle struct {
	WPNav    WaypointController
	Circle   CircleController
	Pos      PositionController
	Takeoff  TakeoffController
	RTL      RTLController
	Guided   GuidedController
	Attitude AttitudeController
	Yaw      YawController
	Motors   Motors
	Status   Status
	Env      *geo.Environment

	Gripper     Gripper
	Rangefinder Rangefinder
	Winch       Winch
	Mount       Mount
	LandingGear LandingGear

	Hooks Hooks
}
