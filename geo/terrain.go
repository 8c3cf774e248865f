// geo/terrain.go
// Copyright(c) 2024-2026 copternav contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package geo

import (
	gomath "math"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// TerrainGrid samples terrain altitude through a lookup function,
// quantized to grid cells, with recently used cells held in an expiring
// LRU so the >=100 Hz tick path doesn't hammer the underlying database.
type TerrainGrid struct {
	lookup  func(lat, lon float64) (float64, bool)
	spacing float64 // degrees per cell
	cache   *expirable.LRU[terrainCell, terrainSample]
}

type terrainCell struct {
	ix, iy int
}

type terrainSample struct {
	alt float64
	ok  bool
}

// NewTerrainGrid wraps lookup with a cellSpacing-degree grid and an LRU of
// up to 512 cells expiring after 5 minutes.
func NewTerrainGrid(lookup func(lat, lon float64) (float64, bool), cellSpacing float64) *TerrainGrid {
	if cellSpacing <= 0 {
		cellSpacing = 0.0001 // roughly 11 m
	}
	return &TerrainGrid{
		lookup:  lookup,
		spacing: cellSpacing,
		cache:   expirable.NewLRU[terrainCell, terrainSample](512, nil, 5*time.Minute),
	}
}

func (g *TerrainGrid) TerrainAMSL(lat, lon float64) (float64, bool) {
	cell := terrainCell{
		ix: int(gomath.Floor(lat / g.spacing)),
		iy: int(gomath.Floor(lon / g.spacing)),
	}
	if s, ok := g.cache.Get(cell); ok {
		return s.alt, s.ok
	}

	alt, ok := g.lookup(lat, lon)
	g.cache.Add(cell, terrainSample{alt: alt, ok: ok})
	return alt, ok
}

// FlatTerrain is a TerrainSource reporting a constant altitude everywhere.
type FlatTerrain struct {
	Alt float64
}

func (f FlatTerrain) TerrainAMSL(lat, lon float64) (float64, bool) { return f.Alt, true }

// NoTerrain reports data-missing for every lookup.
type NoTerrain struct{}

func (NoTerrain) TerrainAMSL(lat, lon float64) (float64, bool) { return 0, false }
