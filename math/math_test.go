// math/math_test.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import (
	gomath "math"
	"testing"
)

func TestNormalizeHeading(t *testing.T) {
	for _, c := range []struct{ in, want float64 }{
		{0, 0}, {360, 0}, {-10, 350}, {370, 10}, {720, 0}, {-360, 0},
	} {
		if got := NormalizeHeading(c.in); got != c.want {
			t.Errorf("NormalizeHeading(%v) = %v, expected %v", c.in, got, c.want)
		}
	}
}

func TestHeadingDifference(t *testing.T) {
	type hd struct{ a, b, d float64 }
	for _, h := range []hd{{10, 90, 80}, {350, 12, 22}, {340, 120, 140}, {-90, 80, 170}, {180, 180, 0}} {
		if HeadingDifference(h.a, h.b) != h.d {
			t.Errorf("HeadingDifference(%v, %v) -> %v, expected %v", h.a, h.b,
				HeadingDifference(h.a, h.b), h.d)
		}
		if HeadingDifference(h.b, h.a) != h.d {
			t.Errorf("HeadingDifference(%v, %v) -> %v, expected %v", h.b, h.a,
				HeadingDifference(h.b, h.a), h.d)
		}
	}
}

func TestSqrtController(t *testing.T) {
	// Inside the linear region the output is err*p.
	if got := SqrtController(0.5, 1, 10, 0); gomath.Abs(got-0.5) > 1e-9 {
		t.Errorf("linear region: got %v, expected 0.5", got)
	}

	// Far from the target the implied deceleration must not exceed maxAccel:
	// v^2 <= 2*a*d.
	err, p, accel := 100.0, 2.0, 1.0
	v := SqrtController(err, p, accel, 0)
	if Sqr(v) > 2*accel*err+1e-9 {
		t.Errorf("sqrt region violates accel limit: v=%v err=%v", v, err)
	}

	// Symmetric for negative errors.
	if SqrtController(-err, p, accel, 0) != -v {
		t.Errorf("asymmetric response for negative error")
	}

	// dt cap: one step may not overshoot.
	if got := SqrtController(0.1, 100, 0, 0.01); got > 0.1/0.01+1e-9 {
		t.Errorf("dt cap not applied: %v", got)
	}
}

func TestStoppingDistance(t *testing.T) {
	if d := StoppingDistance(10, 5); d != 10 {
		t.Errorf("StoppingDistance(10, 5) = %v, expected 10", d)
	}
	if d := StoppingDistance(10, 0); d != 0 {
		t.Errorf("zero decel should give 0, got %v", d)
	}
}
