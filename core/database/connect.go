package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/m3rciful/tempmail-bot/core/logger"
)

const (
	connectTimeout = 5 * time.Second
	pingEvery      = 2 * time.Second
)

// Connect opens the configured database, sizes its pool and checks that it
// answers.
func Connect(cfg Config) (*sqlx.DB, error) {
	driver, dsn, err := cfg.dsn()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err == nil {
		if err = configurePool(ctx, db, cfg); err != nil {
			_ = db.Close()
		}
	}
	attrs := []slog.Attr{
		slog.String("driver", driver),
		slog.String("db", cfg.target()),
		slog.Duration("duration", logger.Took(start)),
	}
	if err != nil {
		logger.Error(ctx, "db", "db.connect", append(attrs,
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)...)
		return nil, fmt.Errorf("database: connect %s: %w", driver, err)
	}

	logger.Info(ctx, "db", "db.connect", append(attrs,
		slog.String("status", "ok"),
		slog.Int("pool_open", db.Stats().MaxOpenConnections),
	)...)
	return db, nil
}

// configurePool applies the pool limits. SQLite runs on one connection in
// WAL mode, which serialises writers.
func configurePool(ctx context.Context, db *sqlx.DB, cfg Config) error {
	if cfg.Driver != DriverSQLite {
		if n := cfg.MaxConnections; n > 0 {
			db.SetMaxOpenConns(n)
			db.SetMaxIdleConns(n)
		}
		return nil
	}
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	return nil
}

// WaitForPostgres pings dsn until the server answers or ctx is done.
func WaitForPostgres(ctx context.Context, dsn string) error {
	db, err := sqlx.Open(DriverPostgres, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	tick := time.NewTicker(pingEvery)
	defer tick.Stop()
	for {
		err := db.PingContext(ctx)
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("database: not ready: %w", err)
		case <-tick.C:
		}
	}
}
