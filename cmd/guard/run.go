package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/talgya/guard/internal/api"
	"github.com/talgya/guard/internal/engine"
	"github.com/talgya/guard/internal/metrics"
	"github.com/talgya/guard/internal/persistence"
	"github.com/talgya/guard/internal/snapshot"
)

type runFlags struct {
	worldFlags
	dbDialect    string
	dbDSN        string
	snapshotPath string
	resumePath   string
	metricsAddr  string
	apiAddr      string
	reportEvery  int
}

func runCmd() *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a simulation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runSimulation(ctx, &f)
		},
	}
	f.register(cmd, 1500)
	cmd.Flags().StringVar(&f.dbDialect, "db-dialect", envOr("GUARD_DB_DIALECT", string(persistence.DialectSQLite)), "Database dialect (sqlite, postgres)")
	cmd.Flags().StringVar(&f.dbDSN, "db", os.Getenv("GUARD_DB_DSN"), "Database path or DSN; results are not stored when empty")
	cmd.Flags().StringVar(&f.snapshotPath, "snapshot", "", "Write a snapshot here when the run ends")
	cmd.Flags().StringVar(&f.resumePath, "resume", "", "Resume from a snapshot")
	cmd.Flags().StringVar(&f.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address")
	cmd.Flags().StringVar(&f.apiAddr, "api-addr", os.Getenv("GUARD_API_ADDR"), "Serve the read-only HTTP API on this address")
	cmd.Flags().IntVar(&f.reportEvery, "report-every", 50, "Steps between progress reports and database flushes")
	return cmd
}

func runSimulation(ctx context.Context, f *runFlags) error {
	if f.resumePath != "" && f.seed == 0 {
		hdr, err := snapshot.ReadHeader(f.resumePath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		f.seed = hdr.Seed
	}
	f.resolveSeed(ctx)

	w, def, p, err := f.build()
	if err != nil {
		return err
	}

	if f.resumePath != "" {
		st, err := snapshot.Read(f.resumePath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := w.Restore(st); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		slog.Info("resumed from snapshot", "path", f.resumePath, "step", w.StepNumber(), "year", w.Year())
	}

	rec := &recorder{reportEvery: f.reportEvery}

	if f.dbDSN != "" {
		db, err := persistence.Open(persistence.Dialect(f.dbDialect), f.dbDSN)
		if err != nil {
			return err
		}
		defer db.Close()

		paramsYAML, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal parameters: %w", err)
		}
		run := &persistence.Run{
			Seed:   f.seed,
			Width:  def.Width,
			Height: def.Height,
			World:  f.worldName(),
			Params: string(paramsYAML),
		}
		if err := db.CreateRun(run); err != nil {
			return err
		}
		rec.db = db
		rec.runID = run.ID
		rec.savedSizes = len(w.PolitySizes())
		slog.Info("recording run", "run", run.ID, "dialect", db.Dialect())
	}

	if f.metricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := metrics.NewRecorder(reg)
		if err != nil {
			return err
		}
		rec.metrics = m
		rec.observedSizes = len(w.PolitySizes())

		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler(reg))
		srv := &http.Server{Addr: f.metricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()
		slog.Info("serving metrics", "addr", f.metricsAddr)
	}

	if f.apiAddr != "" {
		rec.observer = api.NewObserver(w)
		srv := &api.Server{
			Observer: rec.observer,
			DB:       rec.db,
			Limiter:  api.NewRateLimiter(600, time.Minute),
			Addr:     f.apiAddr,
		}
		srv.Start(ctx)
	}

	started := time.Now()
	runner := &engine.Runner{
		World:       w,
		Steps:       f.steps,
		ReportEvery: f.reportEvery,
		OnAttack:    rec.onAttack,
		OnStep:      rec.onStep,
		OnReport:    reportProgress,
	}
	if err := runner.Run(ctx); err != nil {
		return err
	}

	if f.snapshotPath != "" {
		st := w.Snapshot()
		st.Header.Seed = f.seed
		if err := snapshot.Write(f.snapshotPath, st); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		if info, err := os.Stat(f.snapshotPath); err == nil {
			slog.Info("snapshot written", "path", f.snapshotPath, "size", humanize.Bytes(uint64(info.Size())))
		}
	}

	// Polities still alive at the end join the size record.
	w.End()
	if err := rec.flush(w); err != nil {
		return err
	}
	if rec.db != nil {
		if err := rec.db.UpdateRunSteps(rec.runID, w.StepNumber()); err != nil {
			return err
		}
	}

	s := w.Stats()
	slog.Info("run complete",
		"steps", humanize.Comma(int64(s.Step)),
		"year", s.Year,
		"polities", humanize.Comma(int64(s.Polities)),
		"largest_polity", s.LargestPolity,
		"size_records", humanize.Comma(int64(len(w.PolitySizes()))),
		"elapsed", time.Since(started).Round(time.Millisecond),
	)
	return nil
}

func reportProgress(s engine.Stats) {
	slog.Info("progress",
		"step", humanize.Comma(int64(s.Step)),
		"year", s.Year,
		"polities", humanize.Comma(int64(s.Polities)),
		"largest_polity", s.LargestPolity,
		"paradigms", humanize.Comma(int64(s.Paradigms)),
		"mean_comfort", fmt.Sprintf("%.3f", s.MeanComfort),
		"mean_traits", fmt.Sprintf("%.3f", s.MeanTraits),
	)
}

// recorder feeds per-step results to the sinks enabled by flags.
type recorder struct {
	reportEvery int

	db            *persistence.DB
	runID         string
	pending       []engine.Stats
	savedSizes    int
	metrics       *metrics.Recorder
	observedSizes int
	observer      *api.Observer
}

func (r *recorder) onAttack(*engine.Community) {
	if r.metrics != nil {
		r.metrics.AttackObserved()
	}
}

func (r *recorder) onStep(w *engine.World) error {
	if r.observer != nil {
		r.observer.Update(w)
	}
	if r.db == nil && r.metrics == nil {
		return nil
	}
	s := w.Stats()

	if r.metrics != nil {
		r.metrics.Observe(s)
		sizes := w.PolitySizes()
		r.metrics.ObservePolitySizes(sizes[r.observedSizes:])
		r.observedSizes = len(sizes)
	}

	if r.db != nil {
		r.pending = append(r.pending, s)
		if r.reportEvery <= 0 || len(r.pending) >= r.reportEvery {
			return r.flush(w)
		}
	}
	return nil
}

// flush writes buffered statistics and new polity sizes.
func (r *recorder) flush(w *engine.World) error {
	if r.db == nil {
		return nil
	}
	if err := r.db.SaveStepStats(r.runID, r.pending); err != nil {
		return fmt.Errorf("save step stats: %w", err)
	}
	r.pending = r.pending[:0]

	sizes := w.PolitySizes()
	if err := r.db.SavePolitySizes(r.runID, w.StepNumber(), sizes[r.savedSizes:]); err != nil {
		return fmt.Errorf("save polity sizes: %w", err)
	}
	r.savedSizes = len(sizes)
	return nil
}
