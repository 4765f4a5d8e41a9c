package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/talgya/guard/internal/world"
)

func generateCmd() *cobra.Command {
	cfg := world.DefaultGenConfig()
	var out string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a world definition file",
		RunE: func(cmd *cobra.Command, args []string) error {
			def := world.Generate(cfg)
			if err := def.Save(out); err != nil {
				return err
			}
			counts := def.TerrainCounts()
			slog.Info("world generated",
				"path", out,
				"width", def.Width,
				"height", def.Height,
				"seed", cfg.Seed,
				"agriculture", counts[world.TerrainAgriculture],
				"steppe", counts[world.TerrainSteppe],
				"desert", counts[world.TerrainDesert],
				"sea", counts[world.TerrainSea],
			)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.Width, "width", cfg.Width, "World width")
	cmd.Flags().IntVar(&cfg.Height, "height", cfg.Height, "World height")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", cfg.Seed, "Noise seed")
	cmd.Flags().Float64Var(&cfg.SeaLevel, "sea-level", cfg.SeaLevel, "Elevation below which cells are sea")
	cmd.Flags().StringVarP(&out, "out", "o", "world.yaml", "Output path")
	return cmd
}
