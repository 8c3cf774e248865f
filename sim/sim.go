// sim/sim.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"github.com/rotorlab/copternav/auto"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
)

// Build assembles a simulated vehicle at the given NEU start position and
// the full controller set wired to it, ready to hand to auto.New.
func Build(env *geo.Environment, start math.Vec3) (*auto.Vehicle, *Vehicle) {
	v := NewVehicle(env, start)
	wp := NewWPNav(v)
	pos := NewPosControl(v)
	grip := &Gripper{ReleaseSec: 0.5}
	v.gripper = grip

	av := &auto.Vehicle{
		WPNav:       wp,
		Circle:      NewCircle(v),
		Pos:         pos,
		Takeoff:     NewTakeoff(v, pos),
		RTL:         NewRTL(v, wp, pos),
		Guided:      NewGuided(v),
		Attitude:    NewAttitudeControl(v),
		Yaw:         NewYaw(v),
		Motors:      v,
		Status:      v,
		Env:         env,
		Gripper:     grip,
		Rangefinder: &Rangefinder{V: v, MaxRange: 40},
		Winch:       &Winch{},
		Mount:       &Mount{},
	}
	return av, v
}
