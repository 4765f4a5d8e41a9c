// Package persistence stores simulation runs and their per-step results in
// SQLite (default) or PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/guard/internal/engine"
)

// Dialect selects the database backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// DB wraps a database connection for run storage.
type DB struct {
	conn    *sqlx.DB
	dialect Dialect
}

// timeLayout sorts lexically in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one simulation run.
type Run struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Seed      int64     `json:"seed"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Steps     int       `json:"steps"`
	World     string    `json:"world"`  // world definition path, or "generated"
	Params    string    `json:"params"` // parameter set as YAML
}

type runRow struct {
	ID        string `db:"id"`
	CreatedAt string `db:"created_at"`
	Seed      int64  `db:"seed"`
	Width     int    `db:"width"`
	Height    int    `db:"height"`
	Steps     int    `db:"steps"`
	World     string `db:"world"`
	Params    string `db:"params"`
}

// Open connects to the database and applies the schema. For SQLite, dsn is a
// file path; its directory is created if needed.
func Open(dialect Dialect, dsn string) (*DB, error) {
	var driver string
	switch dialect {
	case DialectSQLite, "":
		dialect = DialectSQLite
		driver = "sqlite"
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create sqlite directory: %w", err)
			}
		}
		if !strings.Contains(dsn, "?") {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
	case DialectPostgres:
		driver = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("dialect %s requires a DSN", dialect)
		}
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}

	conn, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", dialect, err)
	}
	if dialect == DialectSQLite {
		conn.SetMaxOpenConns(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping %s db: %w", dialect, err)
	}

	db := &DB{conn: conn, dialect: dialect}
	if err := db.migrate(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	slog.Debug("database open", "dialect", dialect)
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Dialect returns the backend in use.
func (db *DB) Dialect() Dialect { return db.dialect }

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		created_at TEXT NOT NULL,
		seed BIGINT NOT NULL,
		width INTEGER NOT NULL,
		height INTEGER NOT NULL,
		steps INTEGER NOT NULL,
		world TEXT NOT NULL,
		params TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS step_stats (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		year INTEGER NOT NULL,
		polities INTEGER NOT NULL,
		largest_polity INTEGER NOT NULL,
		multi_polities INTEGER NOT NULL,
		paradigms INTEGER NOT NULL,
		mean_comfort DOUBLE PRECISION NOT NULL,
		mean_traits DOUBLE PRECISION NOT NULL,
		mean_military_techs DOUBLE PRECISION NOT NULL,
		mean_expectations DOUBLE PRECISION NOT NULL,
		mean_yield DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (run_id, step)
	)`,
	`CREATE TABLE IF NOT EXISTS polity_sizes (
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		seq INTEGER NOT NULL,
		size INTEGER NOT NULL,
		PRIMARY KEY (run_id, step, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_polity_sizes_run ON polity_sizes(run_id)`,
}

func (db *DB) migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// CreateRun records a new run. A missing ID or creation time is filled in.
func (db *DB) CreateRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.Exec(db.conn.Rebind(`INSERT INTO runs
		(id, created_at, seed, width, height, steps, world, params)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		r.ID, r.CreatedAt.UTC().Format(timeLayout), r.Seed, r.Width, r.Height, r.Steps, r.World, r.Params,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// UpdateRunSteps records how many steps a run completed.
func (db *DB) UpdateRunSteps(runID string, steps int) error {
	_, err := db.conn.Exec(db.conn.Rebind("UPDATE runs SET steps = ? WHERE id = ?"), steps, runID)
	return err
}

// Runs returns every run, oldest first.
func (db *DB) Runs() ([]Run, error) {
	var rows []runRow
	if err := db.conn.Select(&rows, "SELECT * FROM runs ORDER BY created_at, id"); err != nil {
		return nil, err
	}
	runs := make([]Run, 0, len(rows))
	for _, row := range rows {
		created, err := time.Parse(timeLayout, row.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("run %s: %w", row.ID, err)
		}
		runs = append(runs, Run{
			ID:        row.ID,
			CreatedAt: created,
			Seed:      row.Seed,
			Width:     row.Width,
			Height:    row.Height,
			Steps:     row.Steps,
			World:     row.World,
			Params:    row.Params,
		})
	}
	return runs, nil
}

// SaveStepStats appends per-step statistics for a run.
func (db *DB) SaveStepStats(runID string, stats []engine.Stats) error {
	if len(stats) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Preparex(tx.Rebind(`INSERT INTO step_stats
		(run_id, step, year, polities, largest_polity, multi_polities, paradigms,
		 mean_comfort, mean_traits, mean_military_techs, mean_expectations, mean_yield)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range stats {
		_, err := stmt.Exec(
			runID, s.Step, s.Year, s.Polities, s.LargestPolity, s.MultiPolities, s.Paradigms,
			s.MeanComfort, s.MeanTraits, s.MeanMilitaryTechs, s.MeanExpectations, s.MeanYield,
		)
		if err != nil {
			return fmt.Errorf("insert stats for step %d: %w", s.Step, err)
		}
	}

	return tx.Commit()
}

// StepStats returns a run's statistics in step order.
func (db *DB) StepStats(runID string) ([]engine.Stats, error) {
	var stats []engine.Stats
	err := db.conn.Select(&stats, db.conn.Rebind(`SELECT
		step, year, polities, largest_polity, multi_polities, paradigms,
		mean_comfort, mean_traits, mean_military_techs, mean_expectations, mean_yield
		FROM step_stats WHERE run_id = ? ORDER BY step`), runID)
	return stats, err
}

// SavePolitySizes appends polity max sizes recorded at step.
func (db *DB) SavePolitySizes(runID string, step int, sizes []int) error {
	if len(sizes) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var next int
	if err := tx.Get(&next, tx.Rebind(
		"SELECT COALESCE(MAX(seq) + 1, 0) FROM polity_sizes WHERE run_id = ? AND step = ?"),
		runID, step,
	); err != nil {
		return err
	}

	stmt, err := tx.Preparex(tx.Rebind("INSERT INTO polity_sizes (run_id, step, seq, size) VALUES (?, ?, ?, ?)"))
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, size := range sizes {
		if _, err := stmt.Exec(runID, step, next+i, size); err != nil {
			return fmt.Errorf("insert polity size: %w", err)
		}
	}

	return tx.Commit()
}

// PolitySizes returns every polity size recorded for a run, in record order.
func (db *DB) PolitySizes(runID string) ([]int, error) {
	var sizes []int
	err := db.conn.Select(&sizes, db.conn.Rebind(
		"SELECT size FROM polity_sizes WHERE run_id = ? ORDER BY step, seq"), runID)
	return sizes, err
}
