// Package navigation maps button actions to screens. It owns no state: every
// screen is rebuilt from the action and the user's current session list.
package navigation

import (
	"context"
	"errors"
	"log/slog"

	"github.com/m3rciful/tempmail-bot/core/logger"
	"github.com/m3rciful/tempmail-bot/internal/mailbox"
	"github.com/m3rciful/tempmail-bot/internal/mailtm"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

const component = "nav"

// Mailboxes is the subset of mailbox.Service the engine drives.
type Mailboxes interface {
	Generate(ctx context.Context, userID int64) (mailbox.Generated, error)
	List(ctx context.Context, userID int64) ([]session.EmailSession, error)
	Inbox(ctx context.Context, userID int64, address string) (mailtm.MessagePage, error)
	Message(ctx context.Context, userID int64, address, id string) (mailtm.Message, error)
	Remove(ctx context.Context, userID int64, address string) error
}

// Engine is the menu state machine.
type Engine struct {
	mail Mailboxes
}

// NewEngine returns an engine backed by mail.
func NewEngine(mail Mailboxes) *Engine {
	return &Engine{mail: mail}
}

// Start returns the screen sent for the start command.
func (e *Engine) Start() *Screen { return WelcomeScreen() }

// Interim returns the placeholder text shown while a slow action runs,
// or "" when the action answers immediately.
func (e *Engine) Interim(a Action) string {
	switch a.Kind {
	case KindGenerate:
		return "⏳ Generating new email..."
	case KindCheck:
		return "⏳ Checking inbox..."
	case KindRead:
		return "⏳ Loading message..."
	}
	return ""
}

// Handle applies a and returns what to render next.
func (e *Engine) Handle(ctx context.Context, userID int64, a Action) Reply {
	switch a.Kind {
	case KindStart:
		return show(WelcomeScreen())
	case KindBack:
		return show(MenuScreen())
	case KindHelp:
		return show(HelpScreen())
	case KindNoop:
		return Reply{}
	case KindGenerate:
		return e.generate(ctx, userID)
	case KindMyEmails:
		return e.list(ctx, userID, "")
	case KindView:
		return e.view(ctx, userID, a.Address, 0)
	case KindPrev:
		return e.view(ctx, userID, a.Address, -1)
	case KindNext:
		return e.view(ctx, userID, a.Address, 1)
	case KindCheck:
		return e.inbox(ctx, userID, a)
	case KindRead:
		return e.read(ctx, userID, a)
	case KindCopy:
		return e.copy(ctx, userID, a.Address)
	case KindDelete:
		return e.remove(ctx, userID, a.Address)
	}
	logger.Warn(ctx, component, "action.unknown", slog.String("action", string(a.Kind)))
	return Reply{Popup: "Unsupported action"}
}

func show(s *Screen) Reply { return Reply{Screen: s} }

func (e *Engine) generate(ctx context.Context, userID int64) Reply {
	gen, err := e.mail.Generate(ctx, userID)
	if err != nil {
		logger.Warn(ctx, component, "generate.fail",
			slog.String("status", "fail"),
			slog.String("err", err.Error()),
		)
		return show(generateFailedScreen())
	}
	return show(generatedScreen(gen.Session.Address, gen.Total))
}

func (e *Engine) list(ctx context.Context, userID int64, notice string) Reply {
	sessions, err := e.mail.List(ctx, userID)
	if err != nil {
		return e.failure(ctx, "list", err)
	}
	return show(listScreen(sessions, notice))
}

// view renders the address shifted by offset, clamped to the list bounds.
func (e *Engine) view(ctx context.Context, userID int64, address string, offset int) Reply {
	sessions, err := e.mail.List(ctx, userID)
	if err != nil {
		return e.failure(ctx, "view", err)
	}
	idx := session.IndexOf(sessions, address)
	if idx < 0 {
		return e.missing(ctx, sessions, address)
	}
	idx = min(max(idx+offset, 0), len(sessions)-1)
	return show(viewScreen(sessions, idx))
}

func (e *Engine) inbox(ctx context.Context, userID int64, a Action) Reply {
	page, err := e.mail.Inbox(ctx, userID, a.Address)
	switch {
	case errors.Is(err, mailbox.ErrSessionNotFound):
		return e.list(ctx, userID, missingNotice)
	case providerFailure(err):
		logger.Warn(ctx, component, "inbox.unavailable",
			slog.String("address", a.Address),
			slog.String("err", err.Error()),
		)
		return show(unavailableScreen(a, Action{Kind: KindView, Address: a.Address}))
	case err != nil:
		return e.failure(ctx, "inbox", err)
	}
	return show(inboxScreen(a.Address, page))
}

func (e *Engine) read(ctx context.Context, userID int64, a Action) Reply {
	msg, err := e.mail.Message(ctx, userID, a.Address, a.MessageID)
	if errors.Is(err, mailbox.ErrSessionNotFound) {
		return e.list(ctx, userID, missingNotice)
	}
	if err != nil {
		logger.Warn(ctx, component, "read.fail",
			slog.String("address", a.Address),
			slog.String("err", err.Error()),
		)
		return show(readFailedScreen(a))
	}
	return show(messageScreen(a.Address, msg))
}

func (e *Engine) copy(ctx context.Context, userID int64, address string) Reply {
	sessions, err := e.mail.List(ctx, userID)
	if err != nil || session.IndexOf(sessions, address) < 0 {
		return Reply{Popup: "Email not found"}
	}
	return Reply{Popup: "Email: " + address}
}

func (e *Engine) remove(ctx context.Context, userID int64, address string) Reply {
	err := e.mail.Remove(ctx, userID, address)
	if errors.Is(err, mailbox.ErrSessionNotFound) {
		return e.list(ctx, userID, missingNotice)
	}
	if err != nil {
		return e.failure(ctx, "delete", err)
	}
	return show(deletedScreen(address))
}

func (e *Engine) missing(ctx context.Context, sessions []session.EmailSession, address string) Reply {
	logger.Info(ctx, component, "session.missing", slog.String("address", address))
	return show(listScreen(sessions, missingNotice))
}

func (e *Engine) failure(ctx context.Context, op string, err error) Reply {
	logger.Error(ctx, component, op+".fail",
		slog.String("status", "fail"),
		slog.String("err", err.Error()),
	)
	return show(failureScreen())
}

func providerFailure(err error) bool {
	var perr *mailbox.ProviderError
	return errors.As(err, &perr)
}
