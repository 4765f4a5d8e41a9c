// Package world provides the grid, terrain, activation periods, and world
// definitions consumed by the simulation engine.
package world

import "fmt"

// Terrain types for grid cells.
type Terrain uint8

const (
	TerrainAgriculture Terrain = iota // Farmland; forms polities
	TerrainSteppe                     // Pastoral land; forms polities and seeds military tech
	TerrainDesert                     // Uninhabitable
	TerrainSea                        // Crossable only by sea attack
)

// PolityForming reports whether communities on this terrain can form and join polities.
func (t Terrain) PolityForming() bool {
	return t == TerrainAgriculture || t == TerrainSteppe
}

// LittoralEligible reports whether a community on this terrain can be littoral.
func (t Terrain) LittoralEligible() bool {
	return t.PolityForming()
}

// String returns the world-definition tag for the terrain.
func (t Terrain) String() string {
	switch t {
	case TerrainAgriculture:
		return "agriculture"
	case TerrainSteppe:
		return "steppe"
	case TerrainDesert:
		return "desert"
	case TerrainSea:
		return "sea"
	default:
		return "unknown"
	}
}

// ParseTerrain maps a world-definition tag to a Terrain.
func ParseTerrain(tag string) (Terrain, error) {
	switch tag {
	case "agriculture":
		return TerrainAgriculture, nil
	case "steppe":
		return TerrainSteppe, nil
	case "desert":
		return TerrainDesert, nil
	case "sea":
		return TerrainSea, nil
	}
	return 0, fmt.Errorf("unknown terrain %q", tag)
}

// Calendar constants.
const (
	StartYear    = -1500
	YearsPerStep = 2
)

// Year converts a step number to a calendar year. Years BC are negative.
func Year(step int) int {
	return step*YearsPerStep + StartYear
}

// Period is the onset of agriculture for a cell.
type Period uint8

const (
	PeriodAgri1 Period = iota // Farming from the start
	PeriodAgri2               // Second wave
	PeriodAgri3               // Third wave
)

var periodOnsetYear = [...]int{
	PeriodAgri1: -1500,
	PeriodAgri2: -700,
	PeriodAgri3: 0,
}

// OnsetYear returns the first year the period is agriculturally active.
func (p Period) OnsetYear() int {
	if int(p) >= len(periodOnsetYear) {
		return periodOnsetYear[PeriodAgri1]
	}
	return periodOnsetYear[p]
}

// IsActive reports whether a cell with this period is active at the given step.
func (p Period) IsActive(step int) bool {
	return Year(step) >= p.OnsetYear()
}

// String returns the world-definition tag for the period.
func (p Period) String() string {
	switch p {
	case PeriodAgri1:
		return "agri1"
	case PeriodAgri2:
		return "agri2"
	case PeriodAgri3:
		return "agri3"
	default:
		return "unknown"
	}
}

// ParsePeriod maps a world-definition tag to a Period.
func ParsePeriod(tag string) (Period, error) {
	switch tag {
	case "agri1":
		return PeriodAgri1, nil
	case "agri2":
		return PeriodAgri2, nil
	case "agri3":
		return PeriodAgri3, nil
	}
	return 0, fmt.Errorf("unknown period %q", tag)
}
