// math/heading.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import gomath "math"

// NormalizeHeading maps a heading in degrees onto [0, 360).
func NormalizeHeading(h float64) float64 {
	h = gomath.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// HeadingDifference returns the smallest angle in degrees between two
// headings, in [0, 180].
func HeadingDifference(a, b float64) float64 {
	a, b = NormalizeHeading(a), NormalizeHeading(b)
	d := Abs(a - b)
	if d > 180 {
		d = 360 - d
	}
	return d
}

// WrapPi maps an angle in radians onto (-pi, pi].
func WrapPi(a float64) float64 {
	a = gomath.Mod(a, 2*gomath.Pi)
	if a > gomath.Pi {
		a -= 2 * gomath.Pi
	} else if a <= -gomath.Pi {
		a += 2 * gomath.Pi
	}
	return a
}

// Heading2 gives the compass heading in degrees from a to b in local
// north/east coordinates.
func Heading2(a, b Vec2) float64 {
	d := b.Sub(a)
	return NormalizeHeading(Degrees(gomath.Atan2(d.Y, d.X)))
}
