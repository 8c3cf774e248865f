// math/control.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

// SqrtController shapes a position error into a velocity demand: linear
// with gain p near the target and square-root-limited further out so the
// implied deceleration never exceeds maxAccel. dt, if positive, caps the
// correction so a single step cannot overshoot the error.
func SqrtController(err, p, maxAccel, dt float64) float64 {
	var out float64
	if maxAccel <= 0 {
		// no limit on the second derivative
		out = err * p
	} else if p == 0 {
		out = Sign(err) * SafeSqrt(2*maxAccel*Abs(err))
	} else {
		linearDist := maxAccel / Sqr(p)
		switch {
		case err > linearDist:
			out = SafeSqrt(2 * maxAccel * (err - linearDist/2))
		case err < -linearDist:
			out = -SafeSqrt(2 * maxAccel * (-err - linearDist/2))
		default:
			out = err * p
		}
	}

	if dt > 0 && Abs(out) > Abs(err)/dt {
		out = Sign(out) * Abs(err) / dt
	}
	return out
}

// StoppingDistance is the distance needed to decelerate from speed v to
// zero at a constant deceleration.
func StoppingDistance(v, decel float64) float64 {
	if decel <= 0 {
		return 0
	}
	return 0.5 * Sqr(v) / decel
}
