// Package mailbox ties the mail provider to the per-user session store.
package mailbox

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/m3rciful/tempmail-bot/core/logger"
	"github.com/m3rciful/tempmail-bot/internal/mailtm"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

const (
	component = "mailbox"

	alphabet        = "abcdefghijklmnopqrstuvwxyz0123456789"
	localPartLen    = 10
	passwordLen     = 16
	tokenExpirySkew = 30 * time.Second
)

var (
	// ErrSessionNotFound means the address is not (or no longer) in the user's list.
	ErrSessionNotFound = errors.New("mailbox: session not found")
	// ErrNoDomains means the provider offered no domain to register under.
	ErrNoDomains = errors.New("mailbox: no domains available")
)

// ProviderError wraps a failed provider call made on behalf of a user action.
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string { return "mailbox " + e.Op + ": " + e.Err.Error() }

func (e *ProviderError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary as err_code.
func (e *ProviderError) Code() string { return "provider_" + e.Op }

// Provider is the subset of the mail.tm client used here.
type Provider interface {
	Domains(ctx context.Context) ([]mailtm.Domain, error)
	CreateAccount(ctx context.Context, address, password string) (mailtm.Account, error)
	Token(ctx context.Context, address, password string) (mailtm.Token, error)
	Messages(ctx context.Context, token string) (mailtm.MessagePage, error)
	Message(ctx context.Context, token, id string) (mailtm.Message, error)
	DeleteAccount(ctx context.Context, token, accountID string) error
}

// Options configures NewService.
type Options struct {
	// DeleteRemote removes the provider account when a user deletes an address.
	DeleteRemote bool
	// Rand returns a value in [0, n); defaults to math/rand/v2.
	Rand func(n int) int
	// Now is used for token expiry checks; defaults to time.Now.
	Now func() time.Time
}

// Service implements the user-facing mailbox operations.
type Service struct {
	provider Provider
	store    session.Store
	opts     Options
}

// Generated is the result of a successful Generate call.
type Generated struct {
	Session session.EmailSession
	Total   int
}

// NewService wires a provider and a session store.
func NewService(provider Provider, store session.Store, opts Options) *Service {
	if opts.Rand == nil {
		opts.Rand = rand.IntN
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{provider: provider, store: store, opts: opts}
}

// Generate registers a fresh address for the user and appends it to their list.
// Nothing is appended unless every step succeeds.
func (s *Service) Generate(ctx context.Context, userID int64) (Generated, error) {
	domains, err := s.provider.Domains(ctx)
	if err != nil {
		return Generated{}, &ProviderError{Op: "domains", Err: err}
	}
	domain := firstDomain(domains)
	if domain == "" {
		logger.Warn(ctx, component, "generate.no_domains", slog.String("status", "fail"))
		return Generated{}, ErrNoDomains
	}

	address := s.randomString(localPartLen) + "@" + domain
	password := s.randomString(passwordLen)

	account, err := s.provider.CreateAccount(ctx, address, password)
	if err != nil {
		return Generated{}, &ProviderError{Op: "create_account", Err: err}
	}
	token, err := s.provider.Token(ctx, address, password)
	if err != nil {
		// The account exists remotely but cannot be used without a token.
		logger.Warn(ctx, component, "generate.orphaned",
			slog.String("status", "fail"),
			slog.String("address", address),
			slog.String("err", err.Error()),
		)
		return Generated{}, &ProviderError{Op: "token", Err: err}
	}

	accountID := account.ID
	if accountID == "" {
		accountID = token.ID
	}
	es := session.EmailSession{
		Address: address,
		Credential: session.Credential{
			AccountID: accountID,
			Token:     token.Token,
			Password:  password,
		},
		CreatedAt: s.opts.Now().UTC(),
	}
	total, err := s.store.Append(ctx, userID, es)
	if err != nil {
		return Generated{}, fmt.Errorf("storing session: %w", err)
	}
	es.UserID = userID

	logger.Info(ctx, component, "generate.ok",
		slog.String("status", "ok"),
		slog.String("address", address),
		slog.Int("count", total),
	)
	return Generated{Session: es, Total: total}, nil
}

// List returns the user's sessions in creation order.
func (s *Service) List(ctx context.Context, userID int64) ([]session.EmailSession, error) {
	return s.store.List(ctx, userID)
}

// Inbox lists the first page of messages for one of the user's addresses.
func (s *Service) Inbox(ctx context.Context, userID int64, address string) (mailtm.MessagePage, error) {
	es, err := s.session(ctx, userID, address)
	if err != nil {
		return mailtm.MessagePage{}, err
	}
	cred, err := s.freshCredential(ctx, es)
	if err != nil {
		return mailtm.MessagePage{}, err
	}
	page, err := s.provider.Messages(ctx, cred.Token)
	if err != nil {
		return mailtm.MessagePage{}, &ProviderError{Op: "messages", Err: err}
	}
	return page, nil
}

// Message fetches one message from one of the user's addresses.
func (s *Service) Message(ctx context.Context, userID int64, address, id string) (mailtm.Message, error) {
	es, err := s.session(ctx, userID, address)
	if err != nil {
		return mailtm.Message{}, err
	}
	cred, err := s.freshCredential(ctx, es)
	if err != nil {
		return mailtm.Message{}, err
	}
	msg, err := s.provider.Message(ctx, cred.Token, id)
	if err != nil {
		return mailtm.Message{}, &ProviderError{Op: "message", Err: err}
	}
	return msg, nil
}

// Remove drops the address and its credential from the user's list.
// The provider account is deleted best-effort afterwards.
func (s *Service) Remove(ctx context.Context, userID int64, address string) error {
	removed, err := s.store.Remove(ctx, userID, address)
	if errors.Is(err, session.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("removing session: %w", err)
	}
	logger.Info(ctx, component, "remove.ok",
		slog.String("status", "ok"),
		slog.String("address", address),
	)

	if s.opts.DeleteRemote && removed.Credential.AccountID != "" {
		if err := s.provider.DeleteAccount(ctx, removed.Credential.Token, removed.Credential.AccountID); err != nil {
			logger.Warn(ctx, component, "remove.remote_fail",
				slog.String("status", "fail"),
				slog.String("address", address),
				slog.String("err", err.Error()),
			)
		}
	}
	return nil
}

// Stats reports store totals.
func (s *Service) Stats(ctx context.Context) (session.Stats, error) {
	return s.store.Stats(ctx)
}

func (s *Service) session(ctx context.Context, userID int64, address string) (session.EmailSession, error) {
	es, err := s.store.Get(ctx, userID, address)
	if errors.Is(err, session.ErrNotFound) {
		return session.EmailSession{}, ErrSessionNotFound
	}
	if err != nil {
		return session.EmailSession{}, fmt.Errorf("loading session: %w", err)
	}
	return es, nil
}

// freshCredential re-authenticates with the stored password once the token has expired.
func (s *Service) freshCredential(ctx context.Context, es session.EmailSession) (session.Credential, error) {
	cred := es.Credential
	if !tokenExpired(cred.Token, s.opts.Now()) || cred.Password == "" {
		return cred, nil
	}

	tok, err := s.provider.Token(ctx, es.Address, cred.Password)
	if err != nil {
		return cred, &ProviderError{Op: "token", Err: err}
	}
	cred.Token = tok.Token
	if err := s.store.UpdateCredential(ctx, es.UserID, es.Address, cred); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return cred, ErrSessionNotFound
		}
		return cred, fmt.Errorf("saving refreshed token: %w", err)
	}
	logger.Debug(ctx, component, "token.refreshed", slog.String("address", es.Address))
	return cred, nil
}

func (s *Service) randomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[s.opts.Rand(len(alphabet))]
	}
	return string(b)
}

// firstDomain applies the "provider's first domain" policy, skipping inactive ones.
func firstDomain(domains []mailtm.Domain) string {
	for _, d := range domains {
		if d.Domain != "" && (d.IsActive || !anyActive(domains)) {
			return d.Domain
		}
	}
	return ""
}

func anyActive(domains []mailtm.Domain) bool {
	for _, d := range domains {
		if d.IsActive {
			return true
		}
	}
	return false
}

// tokenExpired inspects the JWT exp claim without verifying the signature.
// Tokens that cannot be parsed are treated as valid; the provider is the judge.
func tokenExpired(token string, now time.Time) bool {
	if token == "" {
		return true
	}
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !now.Add(tokenExpirySkew).Before(claims.ExpiresAt.Time)
}
