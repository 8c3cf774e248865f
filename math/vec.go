// math/vec.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package math

import gomath "math"

// Vec2 is a north/east position or velocity in meters (or m/s).
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Length() float64      { return gomath.Hypot(v.X, v.Y) }

func (v Vec2) Normalized() Vec2 {
	l := v.Length()
	if l == 0 {
		return Vec2{}
	}
	return v.Scale(1 / l)
}

// LimitLength scales v down, if necessary, so its length does not exceed m.
func (v Vec2) LimitLength(m float64) Vec2 {
	if l := v.Length(); l > m && l > 0 {
		return v.Scale(m / l)
	}
	return v
}

func Distance2(a, b Vec2) float64 { return a.Sub(b).Length() }

// Vec3 is a north/east/up position or velocity in meters (or m/s).
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) XY() Vec2             { return Vec2{v.X, v.Y} }

func (v Vec3) Length() float64 {
	return gomath.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}
