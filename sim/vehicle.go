// sim/vehicle.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package sim provides deterministic kinematic implementations of the
// controller interfaces consumed by package auto, so missions can be flown
// end-to-end in tests and from the command-line harness. These are test
// doubles with plausible motion, not flight-quality control laws.
package sim

import (
	"github.com/rotorlab/copternav/auto"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
)

// Vehicle is the simulated airframe state shared by all controllers.
// Positions are NEU meters relative to the environment origin.
type Vehicle struct {
	Env *geo.Environment

	Pos     math.Vec3
	Vel     math.Vec3
	Heading float64 // degrees

	armed    bool
	ground   bool
	spool    auto.SpoolState
	throttle float64

	// HoverThrottle is the steady-state output at zero climb; payload
	// placement calibrates against it.
	HoverThrottle float64
	// PayloadThrottleDrop is subtracted from the output while resting on
	// a surface, emulating the load coming off the rotors.
	PayloadThrottleDrop float64

	climbDemand float64
	yaw         *Yaw
	gripper     *Gripper
}

func NewVehicle(env *geo.Environment, start math.Vec3) *Vehicle {
	return &Vehicle{
		Env:           env,
		Pos:           start,
		HoverThrottle: 0.45,
		spool:         auto.SpoolShutDown,
	}
}

func (v *Vehicle) Arm() {
	v.armed = true
	v.spool = auto.SpoolGroundIdle
}

// auto.Motors

func (v *Vehicle) Armed() bool { return v.armed }

func (v *Vehicle) Disarm(reason string) {
	v.armed = false
	v.spool = auto.SpoolShutDown
}

func (v *Vehicle) Spool() auto.SpoolState { return v.spool }
func (v *Vehicle) Throttle() float64      { return v.throttle }

// auto.Status

func (v *Vehicle) Location() geo.Location {
	loc, err := v.Env.FromNEU(v.Pos)
	if err != nil {
		return geo.Location{Alt: v.Pos.Z, Frame: geo.AltAboveOrigin}
	}
	return loc
}

func (v *Vehicle) VelocityNEU() math.Vec3 { return v.Vel }
func (v *Vehicle) HeadingDeg() float64    { return v.Heading }
func (v *Vehicle) GroundContact() bool    { return v.ground }
func (v *Vehicle) PositionOK() bool       { return v.Env.OriginSet }

// setClimbDemand records the active controller's vertical intent so Step
// can derive spool and throttle.
func (v *Vehicle) setClimbDemand(rate float64) { v.climbDemand = rate }

// Step advances the airframe bookkeeping after the mode has run its
// controllers for the tick: ground contact, spool state, throttle and
// heading slew.
func (v *Vehicle) Step(dt float64) {
	if v.Pos.Z <= 0 && v.Vel.Z <= 0 {
		v.Pos.Z = 0
		if v.Vel.Z < 0 {
			v.Vel.Z = 0
		}
		v.ground = true
	} else if v.Pos.Z > 0.05 {
		v.ground = false
	}

	switch {
	case !v.armed:
		v.spool = auto.SpoolShutDown
	case v.ground && v.climbDemand <= 0:
		v.spool = auto.SpoolGroundIdle
	default:
		v.spool = auto.SpoolThrottleUnlimited
	}

	switch {
	case !v.armed:
		v.throttle = 0
	case v.ground && v.climbDemand <= 0:
		// resting on the surface; the load is off the rotors
		v.throttle = math.Clamp(v.HoverThrottle-v.PayloadThrottleDrop, 0.05, 1)
	default:
		v.throttle = math.Clamp(v.HoverThrottle+0.1*v.climbDemand, 0.05, 1)
	}

	if v.yaw != nil {
		v.yaw.step(dt)
	}
	if v.gripper != nil {
		v.gripper.step(dt)
	}
}

// Gripper is a payload actuator with a fixed release latency.
type Gripper struct {
	// ReleaseSec is how long the jaws take to open.
	ReleaseSec float64

	releasing bool
	remaining float64
	released  bool
}

func (g *Gripper) Release() {
	if g.releasing || g.released {
		return
	}
	g.releasing = true
	g.remaining = g.ReleaseSec
}

func (g *Gripper) Released() bool { return g.released }

func (g *Gripper) step(dt float64) {
	if !g.releasing || g.released {
		return
	}
	g.remaining -= dt
	if g.remaining <= 0 {
		g.released = true
	}
}

// Rangefinder reports the height above the terrain directly below,
// within its working range.
type Rangefinder struct {
	V        *Vehicle
	MaxRange float64
}

func (r *Rangefinder) Alt() (float64, bool) {
	alt := r.V.Pos.Z
	if alt < 0 || alt > r.MaxRange {
		return 0, false
	}
	return alt, true
}

// Winch is a stub that records the last commanded action.
type Winch struct {
	LastAction string
	Length     float64
	Rate       float64
}

func (w *Winch) Relax()                  { w.LastAction = "relax" }
func (w *Winch) ReleaseLength(l float64) { w.LastAction, w.Length = "length", l }
func (w *Winch) SetRate(r float64)       { w.LastAction, w.Rate = "rate", r }

// Mount is a stub gimbal.
type Mount struct {
	Roll, Pitch, YawAngle float64
}

func (m *Mount) SetAngles(r, p, y float64) { m.Roll, m.Pitch, m.YawAngle = r, p, y }
func (m *Mount) SetDefault()               { m.Roll, m.Pitch, m.YawAngle = 0, 0, 0 }
