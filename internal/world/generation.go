// World generation using layered simplex noise.
// Generates elevation and aridity maps, then derives terrain and agricultural onset.
package world

import (
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"
)

// GenConfig holds world generation parameters.
type GenConfig struct {
	Width       int
	Height      int
	Seed        int64   // Random seed (0 = random)
	SeaLevel    float64 // Elevation threshold for sea (0.0–1.0)
	DesertLevel float64 // Aridity threshold for desert (0.0–1.0)
	SteppeLevel float64 // Aridity threshold for steppe, below DesertLevel
	MaxElevKm   float64 // Elevation of the highest land cell
}

// DefaultGenConfig returns a reasonable starting configuration.
func DefaultGenConfig() GenConfig {
	return GenConfig{
		Width:       100,
		Height:      50,
		Seed:        0,
		SeaLevel:    0.35,
		DesertLevel: 0.72,
		SteppeLevel: 0.62,
		MaxElevKm:   4.0,
	}
}

// SmallTestConfig returns a tiny world for rapid iteration.
func SmallTestConfig() GenConfig {
	cfg := DefaultGenConfig()
	cfg.Width = 12
	cfg.Height = 8
	cfg.Seed = 42
	return cfg
}

// Generate creates a complete world definition from noise.
func Generate(cfg GenConfig) *Definition {
	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Int63()
	}

	elevNoise := opensimplex.NewNormalized(seed)
	aridNoise := opensimplex.NewNormalized(seed + 1)
	rng := rand.New(rand.NewSource(seed + 2))

	d := NewDefinition(cfg.Width, cfg.Height)

	// Agriculture spreads outward from a heartland somewhere in the middle band.
	origin := Coord{
		X: cfg.Width/4 + rng.Intn(max(cfg.Width/2, 1)),
		Y: cfg.Height/4 + rng.Intn(max(cfg.Height/2, 1)),
	}
	maxDist := math.Hypot(float64(cfg.Width), float64(cfg.Height))

	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			fx, fy := float64(x), float64(y)
			elev := octaveNoise(elevNoise, fx, fy, 4, 0.08, 0.5)
			arid := octaveNoise(aridNoise, fx, fy, 3, 0.05, 0.5)

			// Continental shaping: sink the border so the map is ringed by sea.
			nx := 2*fx/float64(max(cfg.Width-1, 1)) - 1
			ny := 2*fy/float64(max(cfg.Height-1, 1)) - 1
			edge := 1.0 - math.Pow(math.Max(math.Abs(nx), math.Abs(ny)), 6)
			elev *= edge

			c := Coord{X: x, Y: y}
			cell := Cell{Coord: c, Terrain: deriveTerrain(elev, arid, cfg)}
			if cell.Terrain.PolityForming() {
				landElev := (elev - cfg.SeaLevel) / (1 - cfg.SeaLevel)
				cell.Elevation = math.Round(landElev*cfg.MaxElevKm*1000) / 1000
				cell.Period = periodForDistance(Distance(c, origin) / maxDist)
			}
			d.Cells[Index(c, cfg.Width)] = cell
		}
	}
	return d
}

// deriveTerrain determines terrain type from environmental parameters.
func deriveTerrain(elev, arid float64, cfg GenConfig) Terrain {
	if elev < cfg.SeaLevel {
		return TerrainSea
	}
	if arid > cfg.DesertLevel {
		return TerrainDesert
	}
	if arid > cfg.SteppeLevel {
		return TerrainSteppe
	}
	return TerrainAgriculture
}

// periodForDistance assigns later onsets further from the heartland.
func periodForDistance(frac float64) Period {
	switch {
	case frac < 0.15:
		return PeriodAgri1
	case frac < 0.35:
		return PeriodAgri2
	default:
		return PeriodAgri3
	}
}

// octaveNoise generates fractal noise by layering multiple frequencies.
func octaveNoise(noise opensimplex.Noise, x, y float64, octaves int, frequency, persistence float64) float64 {
	total := 0.0
	amplitude := 1.0
	maxVal := 0.0

	for i := 0; i < octaves; i++ {
		total += noise.Eval2(x*frequency, y*frequency) * amplitude
		maxVal += amplitude
		amplitude *= persistence
		frequency *= 2
	}

	return total / maxVal
}
