package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tempmail-bot/core/bootstrap"
	coreconfig "github.com/m3rciful/tempmail-bot/core/config"
	coredatabase "github.com/m3rciful/tempmail-bot/core/database"
	"github.com/m3rciful/tempmail-bot/internal/navigation"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"BOT_TOKEN", "TELEGRAM_BOT_TOKEN",
		"STORAGE_DRIVER", "STORAGE_STORAGE_DRIVER",
		"DB_PATH", "STORAGE_DB_PATH",
		"MAILTM_BASE_URL", "MAIL_MAILTM_BASE_URL",
		"MAILTM_TIMEOUT_SECONDS", "MAIL_MAILTM_TIMEOUT_SECONDS",
		"MAILTM_DELETE_REMOTE", "MAIL_MAILTM_DELETE_REMOTE",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func noLogger(*coreconfig.Config) error { return nil }

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, "telegram:\n  token: \"1:abc\"\n")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "1:abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, coredatabase.DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 15, cfg.Mail.TimeoutSeconds)
	assert.True(t, cfg.DeleteRemote())
}

func TestLoadMailAndStorageSections(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `telegram:
  token: "1:abc"
mail:
  base_url: "http://localhost:8080/"
  timeout_seconds: 3
  delete_remote: false
storage:
  driver: SQLite
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/", cfg.Mail.BaseURL)
	assert.Equal(t, 3, cfg.Mail.TimeoutSeconds)
	assert.False(t, cfg.DeleteRemote())
	assert.Equal(t, coredatabase.DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, defaultSQLitePath, cfg.Storage.Path)

	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MAILTM_DELETE_REMOTE", "true")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, coredatabase.DriverMemory, cfg.Storage.Driver)
	assert.True(t, cfg.DeleteRemote())
}

func TestLoadRejectsBadStorage(t *testing.T) {
	clearEnv(t)

	_, err := Load(writeConfig(t, "telegram:\n  token: \"1:abc\"\nstorage:\n  driver: redis\n"))
	assert.ErrorContains(t, err, "invalid storage.driver")

	_, err = Load(writeConfig(t, "telegram:\n  token: \"1:abc\"\nstorage:\n  driver: postgres\n"))
	assert.ErrorContains(t, err, "required for postgres")
}

func TestNewWiresHandlers(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "1:abc"
	cfg.Telegram.RunMode = coreconfig.RunModeLongpoll
	cfg.Storage.Driver = coredatabase.DriverMemory

	a, err := New(cfg, bootstrap.Options{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	assert.Same(t, cfg.CoreConfig(), opts.Config)
	assert.Len(t, opts.Registry.ListCallbacks(), len(navigation.Kinds))
	_, _, ok := opts.Registry.LookupCommand("/start")
	assert.True(t, ok)
	// callback + three commands + text + document
	assert.Len(t, opts.Routes, 6)
	assert.NotEmpty(t, opts.Middlewares)
}

func TestNewWithSQLiteRunsMigrations(t *testing.T) {
	cfg := &Config{}
	cfg.Telegram.Token = "1:abc"
	cfg.Storage = coredatabase.Config{
		Driver: coredatabase.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "bot.db"),
	}

	a, err := New(cfg, bootstrap.Options{LoggerInit: noLogger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	require.NotNil(t, a.infra.DB)
	var n int
	require.NoError(t, a.infra.DB.Get(&n, "SELECT COUNT(*) FROM email_sessions"))
	assert.Zero(t, n)
}
