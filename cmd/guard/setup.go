package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/spf13/cobra"

	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/entropy"
	"github.com/talgya/guard/internal/params"
	"github.com/talgya/guard/internal/world"
)

// worldFlags are shared by every command that builds a world.
type worldFlags struct {
	worldPath  string
	paramsPath string
	width      int
	height     int
	seed       int64
	steps      int
}

func (f *worldFlags) register(cmd *cobra.Command, defaultSteps int) {
	gen := world.DefaultGenConfig()
	cmd.Flags().StringVar(&f.worldPath, "world", "", "World definition file (YAML); generated when empty")
	cmd.Flags().StringVar(&f.paramsPath, "params", "", "Parameter file (YAML) layered over the defaults")
	cmd.Flags().IntVar(&f.width, "width", gen.Width, "Generated world width")
	cmd.Flags().IntVar(&f.height, "height", gen.Height, "Generated world height")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed (0 draws one)")
	cmd.Flags().IntVar(&f.steps, "steps", defaultSteps, "Steps to run (0 runs until interrupted)")
}

// resolveSeed fills in a seed when none was given, from random.org if
// GUARD_RANDOM_ORG_KEY is set.
func (f *worldFlags) resolveSeed(ctx context.Context) {
	if f.seed != 0 {
		return
	}
	f.seed = entropy.NewClient(os.Getenv("GUARD_RANDOM_ORG_KEY")).Seed(ctx)
	slog.Info("seed drawn", "seed", f.seed)
}

// build loads or generates the world definition and parameters and
// constructs the world.
func (f *worldFlags) build() (*engine.World, *world.Definition, *params.Parameters, error) {
	var def *world.Definition
	if f.worldPath != "" {
		var err error
		def, err = world.Load(f.worldPath)
		if err != nil {
			return nil, nil, nil, err
		}
	} else {
		cfg := world.DefaultGenConfig()
		cfg.Width = f.width
		cfg.Height = f.height
		cfg.Seed = f.seed
		def = world.Generate(cfg)
	}

	p := params.Default()
	if f.paramsPath != "" {
		var err error
		p, err = params.Load(f.paramsPath)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	w, err := engine.NewWorld(def, p, rand.New(rand.NewSource(f.seed)))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build world: %w", err)
	}

	counts := def.TerrainCounts()
	slog.Info("world ready",
		"width", def.Width,
		"height", def.Height,
		"agriculture", counts[world.TerrainAgriculture],
		"steppe", counts[world.TerrainSteppe],
		"desert", counts[world.TerrainDesert],
		"sea", counts[world.TerrainSea],
		"attack_method", p.AttackMethod(),
		"contagion", p.Contagion(),
	)
	return w, def, p, nil
}

func (f *worldFlags) worldName() string {
	if f.worldPath == "" {
		return "generated"
	}
	return f.worldPath
}
