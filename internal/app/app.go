// Package app assembles the temp email bot from its parts.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tempmail-bot/core/bootstrap"
	"github.com/m3rciful/tempmail-bot/core/cmd"
	"github.com/m3rciful/tempmail-bot/core/logger"
	coretelegram "github.com/m3rciful/tempmail-bot/core/telegram"
	"github.com/m3rciful/tempmail-bot/core/telegram/router"
	"github.com/m3rciful/tempmail-bot/core/telegram/sender"
	"github.com/m3rciful/tempmail-bot/internal/bot"
	"github.com/m3rciful/tempmail-bot/internal/mailbox"
	"github.com/m3rciful/tempmail-bot/internal/mailtm"
	"github.com/m3rciful/tempmail-bot/internal/navigation"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

const rateLimitedText = "⏳ Too many requests, slow down."

// App holds the wired bot.
type App struct {
	cfg      *Config
	infra    *bootstrap.Result
	mailbox  *mailbox.Service
	handlers *bot.Handlers
}

// LoadConfig adapts Load to the runner.
func LoadConfig(path string) (cmd.ConfigCarrier, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// Bootstrap adapts New to the runner.
func Bootstrap(carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(cfg, bootstrap.Options{})
}

// New initialises logging and storage, then builds the mailbox service and
// the Telegram handlers. Config, Database and Migrations in opts are
// overwritten from cfg; the hooks are kept for tests.
func New(cfg *Config, opts bootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	opts.Config = &cfg.Config
	opts.Database = cfg.Storage
	opts.Migrations = session.Migrations()

	infra, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	var store session.Store
	if infra.DB != nil {
		store = session.NewSQLStore(infra.DB)
	} else {
		store = session.NewMemoryStore()
	}

	client := mailtm.NewClient(mailtm.Options{
		BaseURL: cfg.Mail.BaseURL,
		Timeout: time.Duration(cfg.Mail.TimeoutSeconds) * time.Second,
	})
	svc := mailbox.NewService(client, store, mailbox.Options{DeleteRemote: cfg.DeleteRemote()})

	logger.Info(context.Background(), "app", "bootstrap",
		slog.String("status", "ok"),
		slog.String("driver", cfg.Storage.Driver),
		slog.Bool("delete_remote", cfg.DeleteRemote()),
	)

	return &App{
		cfg:      cfg,
		infra:    infra,
		mailbox:  svc,
		handlers: bot.New(navigation.NewEngine(svc), svc),
	}, nil
}

// TelegramRunOptions registers the handlers and returns the runtime wiring.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	reg := coretelegram.NewRegistry()
	if err := a.handlers.Register(reg); err != nil {
		return coretelegram.RunOptions{}, err
	}

	core := a.cfg.CoreConfig()
	routes := router.All(reg, router.Options{
		Fallbacks: a.handlers,
		Deferred:  bot.DeferredCallbacks(),
		Commands:  router.CommandRouteOptions{AdminID: core.Telegram.AdminID},
	})

	dispatch := sender.Options{
		Workers:    core.Sender.Workers,
		QueueSize:  core.Sender.QueueSize,
		MaxRetries: core.Sender.MaxRetries,
	}

	return coretelegram.RunOptions{
		Config:            core,
		Registry:          reg,
		DispatcherOptions: dispatch,
		Middlewares:       coretelegram.DefaultMiddlewares(core, onLimited),
		Routes:            routes,
		OnStart: func(ctx context.Context, _ coretelegram.Runtime) error {
			st, err := a.mailbox.Stats(ctx)
			if err != nil {
				logger.Warn(ctx, "app", "stats.fail", slog.String("err", err.Error()))
				return nil
			}
			logger.Info(ctx, "app", "stats",
				slog.Int("users", st.Users),
				slog.Int("sessions", st.Sessions),
			)
			return nil
		},
	}, nil
}

// Close releases the database handle.
func (a *App) Close() error {
	return a.infra.Close()
}

func onLimited(c tele.Context) error {
	if c.Callback() != nil {
		return c.Respond(&tele.CallbackResponse{Text: rateLimitedText})
	}
	return nil
}
