// sim/nav.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package sim

import (
	gomath "math"

	"github.com/rotorlab/copternav/geo"
	"github.com/rotorlab/copternav/math"
)

const reachedRadius = 0.2

// WPNav flies straight legs at constant speed toward a destination and
// holds there. Spline legs are flown as straight legs; the pre-staged next
// destination is picked up automatically on arrival when no new leg has
// been commanded.
type WPNav struct {
	V *Vehicle

	SpeedXY   float64
	SpeedUp   float64
	SpeedDown float64

	dest    math.Vec3
	destLoc geo.Location
	hasDest bool

	next    math.Vec3
	nextLoc geo.Location
	hasNext bool

	reached bool
	paused  bool
}

func NewWPNav(v *Vehicle) *WPNav {
	return &WPNav{V: v, SpeedXY: 5, SpeedUp: 2.5, SpeedDown: 1.5}
}

func (w *WPNav) SetDestination(loc geo.Location) error {
	p, err := w.V.Env.ToNEU(loc)
	if err != nil {
		return err
	}
	w.dest, w.destLoc, w.hasDest = p, loc, true
	w.hasNext, w.reached = false, false
	return nil
}

func (w *WPNav) SetNextDestination(loc geo.Location) error {
	p, err := w.V.Env.ToNEU(loc)
	if err != nil {
		return err
	}
	w.next, w.nextLoc, w.hasNext = p, loc, true
	return nil
}

func (w *WPNav) SetSplineDestination(loc, nextLoc geo.Location, nextIsSpline bool) error {
	if err := w.SetDestination(loc); err != nil {
		return err
	}
	if !nextLoc.IsZero() {
		return w.SetNextDestination(nextLoc)
	}
	return nil
}

func (w *WPNav) Destination() geo.Location { return w.destLoc }

func (w *WPNav) DistanceToDestination() float64 {
	if !w.hasDest {
		return 0
	}
	return math.Distance2(w.V.Pos.XY(), w.dest.XY())
}

func (w *WPNav) BearingToDestination() float64 {
	if !w.hasDest {
		return w.V.Heading
	}
	return math.Heading2(w.V.Pos.XY(), w.dest.XY())
}

func (w *WPNav) ReachedDestination() bool { return w.reached }

func (w *WPNav) SetSpeedXY(s float64)   { w.SpeedXY = s }
func (w *WPNav) SetSpeedUp(s float64)   { w.SpeedUp = s }
func (w *WPNav) SetSpeedDown(s float64) { w.SpeedDown = s }
func (w *WPNav) SetPaused(p bool)       { w.paused = p }

func (w *WPNav) Update(dt float64) {
	if !w.hasDest || w.paused {
		w.V.Vel = math.Vec3{}
		w.V.setClimbDemand(0)
		return
	}

	to := w.dest.Sub(w.V.Pos)
	if to.Length() <= reachedRadius {
		// reached stays set until a new destination is commanded, so the
		// mission poll still sees the arrival after cornering onto a
		// pre-staged leg
		w.reached = true
		if w.hasNext {
			w.dest, w.destLoc = w.next, w.nextLoc
			w.hasNext = false
		} else {
			w.V.Vel = math.Vec3{}
			w.V.setClimbDemand(0)
			return
		}
		to = w.dest.Sub(w.V.Pos)
	}

	// proportional approach capped at the configured speeds
	xy := to.XY().LimitLength(w.SpeedXY)
	climb := math.Clamp(to.Z, -w.SpeedDown, w.SpeedUp)
	step := math.Vec3{X: xy.X, Y: xy.Y, Z: climb}
	w.V.Vel = step
	w.V.setClimbDemand(climb)

	move := step.Scale(dt)
	if move.Length() >= to.Length() {
		w.V.Pos = w.dest
	} else {
		w.V.Pos = w.V.Pos.Add(move)
	}
	w.V.Heading = math.Heading2(math.Vec2{}, xy)
}

// Circle orbits a center at constant tangential speed, accumulating the
// total turned angle monotonically.
type Circle struct {
	V     *Vehicle
	Speed float64 // tangential, m/s

	center math.Vec3
	loc    geo.Location
	radius float64
	ccw    bool
	angle  float64 // position on the circle, radians
	total  float64
}

func NewCircle(v *Vehicle) *Circle { return &Circle{V: v, Speed: 3} }

func (c *Circle) SetCenter(center geo.Location, radius float64, ccw bool) error {
	p, err := c.V.Env.ToNEU(center)
	if err != nil {
		return err
	}
	c.center, c.loc, c.radius, c.ccw = p, center, radius, ccw
	c.total = 0

	// start from the vehicle's current angle on the circle
	d := c.V.Pos.XY().Sub(p.XY())
	if d.Length() < 0.01 {
		c.angle = math.Radians(c.V.Heading)
	} else {
		c.angle = gomath.Atan2(d.Y, d.X)
	}
	return nil
}

func (c *Circle) Center() geo.Location { return c.loc }
func (c *Circle) Radius() float64      { return c.radius }
func (c *Circle) AngleTotal() float64  { return c.total }

func (c *Circle) Update(dt float64) {
	if c.radius <= 0 {
		return
	}
	omega := c.Speed / c.radius
	d := omega * dt
	if c.ccw {
		c.angle -= d
	} else {
		c.angle += d
	}
	c.total += d

	c.V.Pos = math.Vec3{
		X: c.center.X + c.radius*gomath.Cos(c.angle),
		Y: c.center.Y + c.radius*gomath.Sin(c.angle),
		Z: c.center.Z,
	}
	c.V.setClimbDemand(0)
}

// PosControl is the direct vertical-rate layer.
type PosControl struct {
	V *Vehicle

	MaxUp   float64
	MaxDown float64
	AccelZ  float64

	rate float64
}

func NewPosControl(v *Vehicle) *PosControl {
	return &PosControl{V: v, MaxUp: 2.5, MaxDown: 1.5, AccelZ: 1}
}

func (p *PosControl) InitZ()                 { p.rate = 0 }
func (p *PosControl) SetClimbRate(r float64) { p.rate = math.Clamp(r, -p.MaxDown, p.MaxUp) }
func (p *PosControl) MaxSpeedUp() float64    { return p.MaxUp }
func (p *PosControl) MaxSpeedDown() float64  { return p.MaxDown }
func (p *PosControl) MaxAccelZ() float64     { return p.AccelZ }

func (p *PosControl) Update(dt float64) {
	p.V.setClimbDemand(p.rate)
	p.V.Vel.X, p.V.Vel.Y = 0, 0
	p.V.Vel.Z = p.rate
	p.V.Pos.Z += p.rate * dt
	if p.V.Pos.Z < 0 {
		p.V.Pos.Z = 0
	}
}

// Takeoff climbs at the maximum rate to a target altitude above origin.
type Takeoff struct {
	V   *Vehicle
	Pos *PosControl

	target   float64
	active   bool
	complete bool
}

func NewTakeoff(v *Vehicle, pos *PosControl) *Takeoff { return &Takeoff{V: v, Pos: pos} }

func (t *Takeoff) Start(alt float64) {
	t.target, t.active, t.complete = alt, true, false
}

func (t *Takeoff) Complete() bool { return t.complete }

func (t *Takeoff) Update(dt float64) {
	if !t.active || t.complete {
		t.Pos.SetClimbRate(0)
		t.Pos.Update(dt)
		return
	}
	remaining := t.target - t.V.Pos.Z
	if remaining <= 0.05 {
		t.complete = true
		t.Pos.SetClimbRate(0)
		t.Pos.Update(dt)
		return
	}
	t.Pos.SetClimbRate(math.Clamp(remaining, 0, t.Pos.MaxUp))
	t.Pos.Update(dt)
}
