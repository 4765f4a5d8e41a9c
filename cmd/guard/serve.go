package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/talgya/guard/internal/api"
	"github.com/talgya/guard/internal/persistence"
)

func serveCmd() *cobra.Command {
	var (
		dialect string
		dsn     string
		addr    string
		rate    int
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve stored runs over the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("--db is required")
			}
			db, err := persistence.Open(persistence.Dialect(dialect), dsn)
			if err != nil {
				return err
			}
			defer db.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := &api.Server{DB: db, Addr: addr}
			if rate > 0 {
				srv.Limiter = api.NewRateLimiter(rate, time.Minute)
			}
			srv.Start(ctx)
			<-ctx.Done()
			slog.Info("shutting down")
			return nil
		},
	}
	cmd.Flags().StringVar(&dialect, "db-dialect", envOr("GUARD_DB_DIALECT", string(persistence.DialectSQLite)), "Database dialect (sqlite, postgres)")
	cmd.Flags().StringVar(&dsn, "db", os.Getenv("GUARD_DB_DSN"), "Database path or DSN")
	cmd.Flags().StringVar(&addr, "addr", envOr("GUARD_API_ADDR", ":8080"), "Listen address")
	cmd.Flags().IntVar(&rate, "rate", 600, "Requests per minute per client; 0 disables the limit")
	return cmd
}
