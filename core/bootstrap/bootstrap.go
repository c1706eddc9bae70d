// Package bootstrap prepares the infrastructure a bot needs before it
// starts polling: the logger and, when configured, the database.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/tempmail-bot/core/config"
	coredatabase "github.com/m3rciful/tempmail-bot/core/database"
	"github.com/m3rciful/tempmail-bot/core/logger"
)

// Options select what Run prepares. The function fields default to the
// core implementations and exist for tests.
type Options struct {
	Config   *coreconfig.Config
	Database coredatabase.Config
	// Migrations holds the *.sql files applied to a persistent database.
	Migrations fs.FS

	LoggerInit func(*coreconfig.Config) error
	Connect    func(coredatabase.Config) (*sqlx.DB, error)
	Migrate    func(coredatabase.Config, fs.FS) error
}

func (o *Options) defaults() {
	if o.LoggerInit == nil {
		o.LoggerInit = logger.InitLogger
	}
	if o.Connect == nil {
		o.Connect = coredatabase.Connect
	}
	if o.Migrate == nil {
		o.Migrate = coredatabase.RunMigrations
	}
}

// Result holds what Run prepared. DB is nil for in-memory storage.
type Result struct {
	DB *sqlx.DB
}

// Close releases the database handle, if any.
func (r *Result) Close() error {
	if r == nil || r.DB == nil {
		return nil
	}
	return r.DB.Close()
}

// Run starts the logger, then migrates and opens a persistent database.
// Migrations run first so the pool never sees a stale schema.
func Run(opts Options) (*Result, error) {
	if opts.Config == nil {
		return nil, errors.New("bootstrap: nil config")
	}
	opts.defaults()

	if err := opts.LoggerInit(opts.Config); err != nil {
		return nil, fmt.Errorf("bootstrap: logger: %w", err)
	}

	ctx := context.Background()
	driver := opts.Database.Driver
	if !opts.Database.Persistent() {
		driver = coredatabase.DriverMemory
	}
	logger.Info(ctx, "db", "storage.selected", slog.String("driver", driver))
	if driver == coredatabase.DriverMemory {
		return &Result{}, nil
	}

	if opts.Migrations != nil {
		if err := opts.Migrate(opts.Database, opts.Migrations); err != nil {
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}
	db, err := opts.Connect(opts.Database)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: %w", err)
	}
	return &Result{DB: db}, nil
}
