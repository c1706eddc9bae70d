package cmd

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/tempmail-bot/core/config"
	coretelegram "github.com/m3rciful/tempmail-bot/core/telegram"
)

type carrier struct{ cfg *coreconfig.Config }

func (c carrier) CoreConfig() *coreconfig.Config { return c.cfg }

type fakeApp struct {
	started, stopped, closed bool
}

func (a *fakeApp) TelegramRunOptions() (coretelegram.RunOptions, error) {
	return coretelegram.RunOptions{
		OnStart: func(context.Context, coretelegram.Runtime) error { a.started = true; return nil },
		OnStop:  func(context.Context, coretelegram.Runtime) error { a.stopped = true; return nil },
	}, nil
}

func (a *fakeApp) Close() error {
	a.closed = true
	return nil
}

func TestRunWiresLifecycle(t *testing.T) {
	t.Setenv("TEST_CONFIG", "from-env.yaml")
	app := &fakeApp{}
	var loadedPath string
	var flushed bool

	err := Run(Options{
		ConfigEnvVar: "TEST_CONFIG",
		LoadConfig: func(path string) (ConfigCarrier, error) {
			loadedPath = path
			return carrier{cfg: &coreconfig.Config{}}, nil
		},
		Bootstrap:      func(ConfigCarrier) (TelegramApp, error) { return app, nil },
		ShutdownLogger: func() error { flushed = true; return nil },
		RunTelegram: func(ctx context.Context, opts coretelegram.RunOptions) error {
			rt := coretelegram.Runtime{Registry: coretelegram.NewRegistry()}
			require.NoError(t, opts.OnStart(ctx, rt))
			return opts.OnStop(ctx, rt)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "from-env.yaml", loadedPath)
	assert.True(t, app.started)
	assert.True(t, app.stopped)
	assert.True(t, app.closed)
	assert.True(t, flushed)
}

func TestRunErrors(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	assert.Error(t, Run(Options{}))

	load := func(string) (ConfigCarrier, error) { return carrier{cfg: &coreconfig.Config{}}, nil }
	boot := func(ConfigCarrier) (TelegramApp, error) { return &fakeApp{}, nil }

	err := Run(Options{LoadConfig: load, Bootstrap: boot})
	assert.ErrorContains(t, err, "config path not provided")

	err = Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return nil, errors.New("bad yaml") },
		Bootstrap:         boot,
	})
	assert.ErrorContains(t, err, "bad yaml")

	err = Run(Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig:        func(string) (ConfigCarrier, error) { return carrier{}, nil },
		Bootstrap:         boot,
	})
	assert.ErrorContains(t, err, "missing core configuration")
}
