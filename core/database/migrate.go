package database

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/m3rciful/tempmail-bot/core/logger"
)

const (
	migrateComponent = "db.migrate"
	readyTimeout     = 30 * time.Second
)

// RunMigrations applies the up scripts at the root of source to cfg's
// database. A database that is already current is not an error.
func RunMigrations(cfg Config, source fs.FS) error {
	if source == nil {
		return errors.New("database: nil migration source")
	}
	ctx := context.Background()

	if cfg.Driver == DriverPostgres {
		wait, cancel := context.WithTimeout(ctx, readyTimeout)
		err := WaitForPostgres(wait, cfg.postgresURL())
		cancel()
		if err != nil {
			return migrationFailed(ctx, "wait", err)
		}
	}

	scripts := upScripts(source)
	preview, truncated := logger.SummarizeStrings(scripts, 6)
	logger.Debug(ctx, migrateComponent, "resolve",
		slog.String("driver", cfg.Driver),
		slog.Int("files_total", len(scripts)),
		slog.String("files_preview", preview),
		slog.Bool("files_truncated", truncated),
	)

	src, err := iofs.New(source, ".")
	if err != nil {
		return migrationFailed(ctx, "source", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, cfg.migrateURL())
	if err != nil {
		return migrationFailed(ctx, "init", err)
	}
	defer m.Close()

	from := schemaVersion(m)
	start := time.Now()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return migrationFailed(ctx, "apply", err, slog.Duration("duration", logger.Took(start)))
	}
	to := schemaVersion(m)

	logger.Info(ctx, migrateComponent, "summary",
		slog.String("status", "ok"),
		slog.Uint64("from_ver", from),
		slog.Uint64("to_ver", to),
		slog.Int("files", appliedBetween(scripts, from, to)),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

func migrationFailed(ctx context.Context, stage string, err error, attrs ...slog.Attr) error {
	logger.Error(ctx, migrateComponent, "apply", append(attrs,
		slog.String("status", "fail"),
		slog.String("stage", stage),
		slog.String("err", err.Error()),
	)...)
	return fmt.Errorf("migrate %s: %w", stage, err)
}

// schemaVersion is zero for a database that was never migrated.
func schemaVersion(m *migrate.Migrate) uint64 {
	v, _, _ := m.Version()
	return uint64(v)
}

// upScripts lists the *.up.sql files at the root of source in version order.
func upScripts(source fs.FS) []string {
	names, _ := fs.Glob(source, "*.up.sql")
	return names
}

func scriptVersion(name string) uint64 {
	prefix, _, _ := strings.Cut(name, "_")
	v, _ := strconv.ParseUint(prefix, 10, 64)
	return v
}

// appliedBetween counts scripts with a version in (from, to].
func appliedBetween(scripts []string, from, to uint64) int {
	n := 0
	for _, s := range scripts {
		if v := scriptVersion(s); v > from && v <= to {
			n++
		}
	}
	return n
}
