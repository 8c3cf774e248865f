// sim/sim_test.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	"testing"
	"time"

	"github.com/rotorlab/copternav/auto"
	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
	"github.com/rotorlab/copternav/mission"
)

func testEnv() *geo.Environment {
	return &geo.Environment{
		Origin:    geo.Location{Lat: 47.5, Lon: 8.5, Alt: 400, Frame: geo.AltAbsolute},
		OriginSet: true,
		Home:      geo.Location{Lat: 47.5, Lon: 8.5, Alt: 400, Frame: geo.AltAbsolute},
	}
}

// wpAt places a waypoint the given NEU offset from the origin.
func wpAt(t *testing.T, env *geo.Environment, north, east, up float64) geo.Location {
	t.Helper()
	loc, err := env.FromNEU(math.Vec3{X: north, Y: east, Z: up})
	if err != nil {
		t.Fatalf("FromNEU: %v", err)
	}
	return loc
}

// flyMission runs the mode and the sim at 100Hz until the mission
// completes or the time budget runs out.
func flyMission(t *testing.T, m *auto.Mode, v *Vehicle, budget time.Duration) {
	t.Helper()
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	const dt = 10 * time.Millisecond
	for elapsed := time.Duration(0); elapsed < budget; elapsed += dt {
		m.Run(now)
		v.Step(dt.Seconds())
		now = now.Add(dt)
		if m.Mission().State() == mission.StateComplete {
			return
		}
	}
	t.Fatalf("mission did not complete within %s; state %s, submode %s, pos %+v",
		budget, m.Mission().State(), m.SubMode(), v.Pos)
}

func TestFlySimpleMission(t *testing.T) {
	env := testEnv()
	cmds := []mission.Command{
		{ID: mission.NavTakeoff, Loc: geo.Location{Alt: 10, Frame: geo.AltAboveOrigin}},
		{ID: mission.NavWaypoint, Loc: wpAt(t, env, 40, 0, 10)},
		{ID: mission.NavWaypoint, Loc: wpAt(t, env, 40, 30, 15)},
		{ID: mission.NavLand},
	}

	av, v := Build(env, math.Vec3{})
	ev := events.NewStream(nil)
	sub := ev.Subscribe()
	m := auto.New(av, cmds, auto.DefaultParams(), ev, nil)

	v.Arm()
	if err := m.Enter(time.Now()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	flyMission(t, m, v, 2*time.Minute)

	if v.Armed() {
		t.Error("vehicle still armed after landing out the mission")
	}
	if !v.GroundContact() || v.Pos.Z > 0.01 {
		t.Errorf("not on the ground: pos %+v", v.Pos)
	}

	var reached []int
	for _, e := range sub.Get() {
		if e.Type == events.ItemReachedEvent {
			reached = append(reached, e.Index)
		}
	}
	if len(reached) != len(cmds) {
		t.Errorf("reached %v, want all %d items", reached, len(cmds))
	}
}

func TestFlyMissionWithRTL(t *testing.T) {
	env := testEnv()
	cmds := []mission.Command{
		{ID: mission.NavTakeoff, Loc: geo.Location{Alt: 10, Frame: geo.AltAboveOrigin}},
		{ID: mission.NavWaypoint, Loc: wpAt(t, env, 25, 25, 12)},
		{ID: mission.NavReturnToLaunch},
	}

	av, v := Build(env, math.Vec3{})
	m := auto.New(av, cmds, auto.DefaultParams(), events.NewStream(nil), nil)

	v.Arm()
	if err := m.Enter(time.Now()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	flyMission(t, m, v, 3*time.Minute)

	if d := v.Pos.XY().Length(); d > 1 {
		t.Errorf("RTL finished %0.1fm from home", d)
	}
}

func TestFlyTerrainFramedMission(t *testing.T) {
	env := testEnv()
	var lookups int
	env.Terrain = geo.NewTerrainGrid(func(lat, lon float64) (float64, bool) {
		lookups++
		return 405, true // ground 5m above the origin
	}, 0.0001)

	wp := wpAt(t, env, 30, 0, 0)
	wp.Alt, wp.Frame = 10, geo.AltAboveTerrain
	cmds := []mission.Command{
		{ID: mission.NavTakeoff, Loc: geo.Location{Alt: 20, Frame: geo.AltAboveOrigin}},
		{ID: mission.NavWaypoint, Loc: wp},
		{ID: mission.NavReturnToLaunch},
	}

	av, v := Build(env, math.Vec3{})
	ev := events.NewStream(nil)
	sub := ev.Subscribe()
	m := auto.New(av, cmds, auto.DefaultParams(), ev, nil)

	v.Arm()
	if err := m.Enter(time.Now()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	flyMission(t, m, v, 3*time.Minute)

	if lookups == 0 {
		t.Fatal("terrain source never consulted for a terrain-framed leg")
	}
	for _, e := range sub.Get() {
		if e.Message == "Terrain data missing, using alt-above-origin" {
			t.Error("terrain-framed leg fell back despite available data")
		}
	}
}

func TestTerrainMissingFallsBack(t *testing.T) {
	env := testEnv()
	env.Terrain = geo.NoTerrain{}

	wp := wpAt(t, env, 20, 0, 0)
	wp.Alt, wp.Frame = 12, geo.AltAboveTerrain
	cmds := []mission.Command{
		{ID: mission.NavTakeoff, Loc: geo.Location{Alt: 12, Frame: geo.AltAboveOrigin}},
		{ID: mission.NavWaypoint, Loc: wp},
		{ID: mission.NavLand},
	}

	av, v := Build(env, math.Vec3{})
	ev := events.NewStream(nil)
	sub := ev.Subscribe()
	m := auto.New(av, cmds, auto.DefaultParams(), ev, nil)

	v.Arm()
	if err := m.Enter(time.Now()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	flyMission(t, m, v, 2*time.Minute)

	var warned bool
	for _, e := range sub.Get() {
		warned = warned || e.Message == "Terrain data missing, using alt-above-origin"
	}
	if !warned {
		t.Error("missing terrain data was not reported to the operator")
	}
}

func TestFlyPayloadPlaceMission(t *testing.T) {
	env := testEnv()
	cmds := []mission.Command{
		{ID: mission.NavTakeoff, Loc: geo.Location{Alt: 10, Frame: geo.AltAboveOrigin}},
		{ID: mission.NavPayloadPlace, Loc: wpAt(t, env, 20, 0, 10), DescentMax: 30},
		{ID: mission.NavLand},
	}

	av, v := Build(env, math.Vec3{})
	v.PayloadThrottleDrop = 0.2 // load visibly comes off the rotors on touchdown
	m := auto.New(av, cmds, auto.DefaultParams(), events.NewStream(nil), nil)

	v.Arm()
	if err := m.Enter(time.Now()); err != nil {
		t.Fatalf("Enter: %v", err)
	}
	flyMission(t, m, v, 4*time.Minute)

	if g, ok := av.Gripper.(*Gripper); !ok || !g.Released() {
		t.Error("payload was never released")
	}
}

func TestYawSlew(t *testing.T) {
	v := NewVehicle(testEnv(), math.Vec3{Z: 10})
	y := NewYaw(v)
	v.Heading = 0

	y.SetFixedYaw(90, 45, 0, false)
	for i := 0; i < 400 && !y.ReachedFixedYaw(); i++ {
		v.Step(0.01)
	}
	if !y.ReachedFixedYaw() {
		t.Fatalf("never reached fixed yaw; heading %.1f", v.Heading)
	}
	if math.HeadingDifference(v.Heading, 90) > 2 {
		t.Errorf("heading %.1f, want ~90", v.Heading)
	}
}

func TestGuidedLimits(t *testing.T) {
	v := NewVehicle(testEnv(), math.Vec3{Z: 10})
	g := NewGuided(v)
	if !g.Init() {
		t.Fatal("guided init failed with a healthy position")
	}
	start := time.Now()
	g.SetLimits(start, 5, 0, 0, 20)

	if g.LimitsBreached(start.Add(time.Second)) {
		t.Error("breached inside all limits")
	}
	v.Pos.X = 25
	if !g.LimitsBreached(start.Add(time.Second)) {
		t.Error("horizontal limit not detected")
	}
	v.Pos.X = 0
	if !g.LimitsBreached(start.Add(6 * time.Second)) {
		t.Error("timeout not detected")
	}
}
