package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/spf13/cobra"

	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/tui"
)

func watchCmd() *cobra.Command {
	var (
		f        worldFlags
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run a simulation and draw the polity map in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			return watch(cmd.Context(), &f, interval)
		},
	}
	f.register(cmd, 0)
	cmd.Flags().DurationVar(&interval, "interval", 50*time.Millisecond, "Minimum time per step")
	return cmd
}

func watch(ctx context.Context, f *worldFlags, interval time.Duration) error {
	f.resolveSeed(ctx)
	w, _, _, err := f.build()
	if err != nil {
		return err
	}

	// Log lines would tear the screen.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))

	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	if sw, sh := screen.Size(); sw < w.Width || sh < w.Height+1 {
		return fmt.Errorf("terminal is %dx%d, world needs %dx%d", sw, sh, w.Width, w.Height+1)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	v := tui.NewViewer(screen)
	go v.PollEvents()
	go func() {
		select {
		case <-v.Quit():
			cancel()
		case <-ctx.Done():
		}
	}()

	v.Draw(w)
	runner := &engine.Runner{
		World:    w,
		Steps:    f.steps,
		Interval: interval,
		OnStep: func(w *engine.World) error {
			v.Draw(w)
			for v.Paused() {
				v.Draw(w)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(100 * time.Millisecond):
				}
			}
			return nil
		},
	}
	return runner.Run(ctx)
}
