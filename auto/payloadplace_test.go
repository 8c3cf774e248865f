// auto/payloadplace_test.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package auto

import (
	"slices"
	"testing"
	"time"

	"github.com/rotorlab/copternav/events"
	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/mission"
)

// newPlaceTest starts a payload-place command with no fly-to leg, leaving
// the machine one tick from Descent.
func newPlaceTest(t *testing.T, cmd mission.Command, params Params) (*Mode, *fakes, *fakeGripper, *events.Subscription) {
	t.Helper()
	m, f, sub := newTestMode([]mission.Command{cmd}, params)
	grip := &fakeGripper{}
	m.v.Gripper = grip
	mustEnter(t, m)
	m.now = t0
	if !m.startCommand(cmd) {
		t.Fatal("payload place dispatch failed")
	}
	return m, f, grip, sub
}

func place(t *testing.T, m *Mode) *payloadPlace {
	t.Helper()
	p, ok := m.sub.(*payloadPlaceMode)
	if !ok {
		t.Fatalf("submode %s, want NavPayloadPlace", m.SubMode())
	}
	return &p.pp
}

// calibrate drives the descent until thrust calibration completes,
// returning the time of the last tick.
func calibrate(t *testing.T, m *Mode, f *fakes, start time.Time) time.Time {
	t.Helper()
	pp := place(t, m)
	f.status.vel.Z = -pp.descentSpeed
	f.motors.throttle = 0.5

	now := start
	for i := 0; i < 250 && pp.calThrust == 0; i++ {
		m.sub.run(m, now, 0.01)
		now = now.Add(10 * time.Millisecond)
	}
	if pp.calThrust == 0 {
		t.Fatal("thrust never calibrated")
	}
	return now
}

func TestPayloadPlaceDescentAndDebounce(t *testing.T) {
	cmd := mission.Command{ID: mission.NavPayloadPlace}
	m, f, _, _ := newPlaceTest(t, cmd, DefaultParams())
	pp := place(t, m)

	if pp.state != ppDescentStart {
		t.Fatalf("state %s, want Descent_Start", pp.state)
	}
	m.sub.run(m, t0, 0.01)
	if pp.state != ppDescent {
		t.Fatalf("state %s, want Descent", pp.state)
	}

	now := calibrate(t, m, f, t0.Add(10*time.Millisecond))
	if pp.calThrust < 0.49 || pp.calThrust > 0.51 {
		t.Fatalf("calibrated thrust %.3f, want ~0.5", pp.calThrust)
	}
	if m.verifyCommand(cmd) {
		t.Fatal("complete while still descending")
	}

	// thrust dips below the placed threshold but recovers before the
	// debounce window elapses: no credit
	f.motors.throttle = 0.4 // below 0.9 * 0.5
	m.sub.run(m, now, 0.01)
	m.sub.run(m, now.Add(300*time.Millisecond), 0.01)
	if pp.state != ppDescent {
		t.Fatalf("released after only 300ms below threshold")
	}
	f.motors.throttle = 0.5
	m.sub.run(m, now.Add(400*time.Millisecond), 0.01)
	if !pp.placedStart.IsZero() {
		t.Fatal("thrust recovery must reset the touchdown timer")
	}

	// sustained for the full window: release
	f.motors.throttle = 0.4
	m.sub.run(m, now.Add(500*time.Millisecond), 0.01)
	m.sub.run(m, now.Add(999*time.Millisecond), 0.01)
	if pp.state != ppDescent {
		t.Fatal("released before the debounce window elapsed")
	}
	m.sub.run(m, now.Add(1000*time.Millisecond), 0.01)
	if pp.state != ppRelease {
		t.Fatalf("state %s, want Release after the full window", pp.state)
	}
}

func TestPayloadPlaceReleaseThroughAscent(t *testing.T) {
	cmd := mission.Command{ID: mission.NavPayloadPlace}
	m, f, grip, sub := newPlaceTest(t, cmd, DefaultParams())
	pp := place(t, m)

	m.sub.run(m, t0, 0.01) // Descent_Start
	startAlt := pp.startAlt
	now := calibrate(t, m, f, t0.Add(10*time.Millisecond))

	f.status.ground = true // touchdown short-circuits to Release
	m.sub.run(m, now, 0.01)
	if pp.state != ppRelease {
		t.Fatalf("state %s, want Release on ground contact", pp.state)
	}

	m.sub.run(m, now, 0.01) // Release -> Releasing, actuator commanded
	if grip.releaseCalls != 1 || pp.state != ppReleasing {
		t.Fatalf("gripper calls %d state %s", grip.releaseCalls, pp.state)
	}

	m.sub.run(m, now.Add(100*time.Millisecond), 0.01)
	if pp.state != ppReleasing {
		t.Fatal("advanced without release confirmation")
	}
	grip.released = true
	m.sub.run(m, now.Add(200*time.Millisecond), 0.01)
	if pp.state != ppDelay {
		t.Fatalf("state %s, want Delay after confirmation", pp.state)
	}
	if texts := statusTexts(sub.Get()); !slices.Contains(texts, "Payload released") {
		t.Errorf("release not announced: %v", texts)
	}

	// settle, then climb back to the pre-descent altitude
	f.status.ground = false
	m.sub.run(m, now.Add(800*time.Millisecond), 0.01) // settle elapsed
	if pp.state != ppAscentStart {
		t.Fatalf("state %s, want Ascent_Start", pp.state)
	}
	m.sub.run(m, now.Add(810*time.Millisecond), 0.01)
	if pp.state != ppAscent {
		t.Fatalf("state %s, want Ascent", pp.state)
	}

	f.status.loc.Alt = startAlt - 3
	m.sub.run(m, now.Add(820*time.Millisecond), 0.01)
	if pp.state != ppAscent || f.pos.climbRate <= 0 {
		t.Fatalf("expected a climb, state %s rate %.2f", pp.state, f.pos.climbRate)
	}
	if m.verifyCommand(cmd) {
		t.Fatal("complete while still ascending")
	}

	f.status.loc.Alt = startAlt
	m.sub.run(m, now.Add(900*time.Millisecond), 0.01)
	if pp.state != ppDone {
		t.Fatalf("state %s, want Done at the pre-descent altitude", pp.state)
	}
	if !m.verifyCommand(cmd) {
		t.Error("Done but command not complete")
	}
}

func TestPayloadPlaceMaxDescent(t *testing.T) {
	cmd := mission.Command{ID: mission.NavPayloadPlace, DescentMax: 5}
	m, f, _, sub := newPlaceTest(t, cmd, DefaultParams())
	pp := place(t, m)

	m.sub.run(m, t0, 0.01)
	f.status.loc.Alt -= 6
	m.sub.run(m, t0.Add(10*time.Millisecond), 0.01)
	if pp.state != ppRelease {
		t.Fatalf("state %s, want Release at the descent cutoff", pp.state)
	}
	if texts := statusTexts(sub.Get()); !slices.Contains(texts, "Reached maximum descent") {
		t.Errorf("cutoff not reported: %v", texts)
	}
}

func TestPayloadPlaceRangefinderCutoff(t *testing.T) {
	params := DefaultParams()
	params.PlaceRangefinderMin = 1
	cmd := mission.Command{ID: mission.NavPayloadPlace}
	m, _, _, _ := newPlaceTest(t, cmd, params)
	m.v.Rangefinder = &fakeRangefinder{alt: 0.8, ok: true}
	pp := place(t, m)

	m.sub.run(m, t0, 0.01)
	m.sub.run(m, t0.Add(10*time.Millisecond), 0.01)
	if pp.state != ppRelease {
		t.Fatalf("state %s, want Release below minimum clearance", pp.state)
	}
}

func TestPayloadPlaceManualRelease(t *testing.T) {
	t.Run("during fly-to aborts to done", func(t *testing.T) {
		cmd := mission.Command{ID: mission.NavPayloadPlace,
			Loc: geo.Location{Lat: 10.01, Lon: 20}}
		m, _, _, _ := newPlaceTest(t, cmd, DefaultParams())
		pp := place(t, m)
		if pp.state != ppFlyToLocation {
			t.Fatalf("state %s", pp.state)
		}
		if !m.PayloadManualRelease() {
			t.Fatal("manual release refused")
		}
		m.sub.run(m, t0, 0.01)
		if pp.state != ppDone {
			t.Errorf("state %s, want Done", pp.state)
		}
	})

	t.Run("during descent short-circuits to release", func(t *testing.T) {
		cmd := mission.Command{ID: mission.NavPayloadPlace}
		m, _, _, _ := newPlaceTest(t, cmd, DefaultParams())
		pp := place(t, m)
		m.sub.run(m, t0, 0.01)
		m.PayloadManualRelease()
		m.sub.run(m, t0.Add(10*time.Millisecond), 0.01)
		if pp.state != ppRelease {
			t.Errorf("state %s, want Release", pp.state)
		}
	})

	t.Run("outside placement refused", func(t *testing.T) {
		m, _, _ := newTestMode([]mission.Command{{ID: mission.NavTakeoff}}, DefaultParams())
		mustEnter(t, m)
		if m.PayloadManualRelease() {
			t.Error("manual release accepted with no placement active")
		}
	})
}
