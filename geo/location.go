// geo/location.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

import (
	"errors"
	"fmt"
	"log/slog"
	gomath "math"

	"github.com/rotorlab/copternav/math"
)

var (
	ErrNoOrigin        = errors.New("position origin is not set")
	ErrNoTerrainData   = errors.New("no terrain data for location")
	ErrUnknownAltFrame = errors.New("unknown altitude frame")
)

// AltFrame identifies the reference a Location's altitude is measured
// against.
type AltFrame int

const (
	// AltAbsolute is altitude above mean sea level.
	AltAbsolute AltFrame = iota
	// AltAboveHome is altitude above the home position.
	AltAboveHome
	// AltAboveOrigin is altitude above the local position origin.
	AltAboveOrigin
	// AltAboveTerrain is altitude above the terrain directly below.
	AltAboveTerrain
)

func (f AltFrame) String() string {
	switch f {
	case AltAbsolute:
		return "absolute"
	case AltAboveHome:
		return "above-home"
	case AltAboveOrigin:
		return "above-origin"
	case AltAboveTerrain:
		return "above-terrain"
	default:
		return fmt.Sprintf("altframe(%d)", int(f))
	}
}

// Location is a geodetic position with a framed altitude. A zero lat/lon is
// treated as "unset" by mission commands, matching the convention of the
// command stream.
type Location struct {
	Lat, Lon float64 // degrees
	Alt      float64 // meters, relative to Frame
	Frame    AltFrame
}

func (l Location) IsZero() bool { return l.Lat == 0 && l.Lon == 0 }

func (l Location) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Float64("lat", l.Lat),
		slog.Float64("lon", l.Lon),
		slog.Float64("alt", l.Alt),
		slog.String("frame", l.Frame.String()))
}

// WithAlt returns l with its altitude replaced, keeping the frame.
func (l Location) WithAlt(alt float64) Location {
	l.Alt = alt
	return l
}

// CopyAltFrom returns l carrying o's altitude and altitude frame.
func (l Location) CopyAltFrom(o Location) Location {
	l.Alt, l.Frame = o.Alt, o.Frame
	return l
}

// TerrainSource supplies terrain altitude above mean sea level; ok is
// false when no data is available for the location.
type TerrainSource interface {
	TerrainAMSL(lat, lon float64) (alt float64, ok bool)
}

// Environment supplies the reference data needed to convert between
// altitude frames and to project into local coordinates.
type Environment struct {
	Origin    Location      // absolute-frame origin; valid only if OriginSet
	OriginSet bool
	Home      Location      // absolute-frame home position
	Terrain   TerrainSource // may be nil
}

// AltInFrame converts l's altitude into the requested frame. Conversion
// fails when the origin is unset or terrain data is missing.
func (e *Environment) AltInFrame(l Location, to AltFrame) (float64, error) {
	if l.Frame == to {
		return l.Alt, nil
	}

	// Convert to absolute first.
	var abs float64
	switch l.Frame {
	case AltAbsolute:
		abs = l.Alt
	case AltAboveHome:
		abs = l.Alt + e.Home.Alt
	case AltAboveOrigin:
		if !e.OriginSet {
			return 0, ErrNoOrigin
		}
		abs = l.Alt + e.Origin.Alt
	case AltAboveTerrain:
		t, ok := e.terrainAt(l)
		if !ok {
			return 0, ErrNoTerrainData
		}
		abs = l.Alt + t
	default:
		return 0, ErrUnknownAltFrame
	}

	switch to {
	case AltAbsolute:
		return abs, nil
	case AltAboveHome:
		return abs - e.Home.Alt, nil
	case AltAboveOrigin:
		if !e.OriginSet {
			return 0, ErrNoOrigin
		}
		return abs - e.Origin.Alt, nil
	case AltAboveTerrain:
		t, ok := e.terrainAt(l)
		if !ok {
			return 0, ErrNoTerrainData
		}
		return abs - t, nil
	default:
		return 0, ErrUnknownAltFrame
	}
}

// ChangeFrame rewrites l into the requested altitude frame.
func (e *Environment) ChangeFrame(l Location, to AltFrame) (Location, error) {
	alt, err := e.AltInFrame(l, to)
	if err != nil {
		return l, err
	}
	l.Alt, l.Frame = alt, to
	return l, nil
}

func (e *Environment) terrainAt(l Location) (float64, bool) {
	if e.Terrain == nil {
		return 0, false
	}
	return e.Terrain.TerrainAMSL(l.Lat, l.Lon)
}

const metersPerDegreeLat = 111319.5

// ToNEU projects l into local north/east/up meters relative to the origin.
// The up component is altitude above origin; conversion may fail for
// terrain-framed altitudes with no terrain data.
func (e *Environment) ToNEU(l Location) (math.Vec3, error) {
	if !e.OriginSet {
		return math.Vec3{}, ErrNoOrigin
	}
	up, err := e.AltInFrame(l, AltAboveOrigin)
	if err != nil {
		return math.Vec3{}, err
	}
	return math.Vec3{
		X: (l.Lat - e.Origin.Lat) * metersPerDegreeLat,
		Y: (l.Lon - e.Origin.Lon) * metersPerDegreeLat * gomath.Cos(math.Radians(e.Origin.Lat)),
		Z: up,
	}, nil
}

// FromNEU is the inverse of ToNEU; the returned Location carries an
// above-origin altitude frame.
func (e *Environment) FromNEU(p math.Vec3) (Location, error) {
	if !e.OriginSet {
		return Location{}, ErrNoOrigin
	}
	return Location{
		Lat:   e.Origin.Lat + p.X/metersPerDegreeLat,
		Lon:   e.Origin.Lon + p.Y/(metersPerDegreeLat*gomath.Cos(math.Radians(e.Origin.Lat))),
		Alt:   p.Z,
		Frame: AltAboveOrigin,
	}, nil
}

// HorizontalDistance gives the flat-earth distance in meters between two
// locations; adequate at mission scales.
func HorizontalDistance(a, b Location) float64 {
	dlat := (b.Lat - a.Lat) * metersPerDegreeLat
	dlon := (b.Lon - a.Lon) * metersPerDegreeLat * gomath.Cos(math.Radians(a.Lat))
	return gomath.Hypot(dlat, dlon)
}
