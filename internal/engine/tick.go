package engine

import (
	"context"
	"log/slog"
	"time"
)

// Runner drives a World forward step by step.
type Runner struct {
	World       *World
	Steps       int           // Steps to run; 0 runs until the context ends
	Interval    time.Duration // Minimum wall time per step (0 = as fast as possible)
	ReportEvery int           // Steps between OnReport calls (0 = never)

	// Callbacks, all optional.
	OnAttack AttackCallback       // Every attack
	OnStep   func(w *World) error // After every step; an error stops the run
	OnReport func(stats Stats)    // Every ReportEvery steps
}

// Run steps the world until Steps is reached or the context is cancelled.
// An OnStep error also stops it. Context cancellation is not an error.
func (r *Runner) Run(ctx context.Context) error {
	slog.Info("simulation started", "step", r.World.StepNumber(), "steps", r.Steps)

	for i := 0; r.Steps == 0 || i < r.Steps; i++ {
		select {
		case <-ctx.Done():
			slog.Info("simulation interrupted", "step", r.World.StepNumber())
			return nil
		default:
		}

		start := time.Now()
		r.World.Step(r.OnAttack)

		if r.OnStep != nil {
			if err := r.OnStep(r.World); err != nil {
				return err
			}
		}
		if r.ReportEvery > 0 && r.World.StepNumber()%r.ReportEvery == 0 && r.OnReport != nil {
			r.OnReport(r.World.Stats())
		}

		// Sleep for the remainder of the step interval.
		if r.Interval > 0 {
			if elapsed := time.Since(start); elapsed < r.Interval {
				select {
				case <-ctx.Done():
				case <-time.After(r.Interval - elapsed):
				}
			}
		}
	}

	slog.Info("simulation finished", "step", r.World.StepNumber(), "polities", r.World.NumberOfPolities())
	return nil
}
