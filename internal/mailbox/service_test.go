package mailbox

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tempmail-bot/internal/mailbox/mailboxtest"
	"github.com/m3rciful/tempmail-bot/internal/mailtm"
	"github.com/m3rciful/tempmail-bot/internal/session"
)

var addressRe = regexp.MustCompile(`^[a-z0-9]{10}@example\.com$`)

func newService(t *testing.T, opts Options) (*Service, *mailboxtest.Provider, session.Store) {
	t.Helper()
	p := mailboxtest.New("example.com")
	st := session.NewMemoryStore()
	return NewService(p, st, opts), p, st
}

func TestGenerateAppendsOneSession(t *testing.T) {
	svc, p, st := newService(t, Options{})
	ctx := context.Background()

	gen, err := svc.Generate(ctx, 7)
	require.NoError(t, err)
	assert.Regexp(t, addressRe, gen.Session.Address)
	assert.Equal(t, 1, gen.Total)
	assert.Len(t, gen.Session.Credential.Password, 16)
	assert.Equal(t, "acc-1", gen.Session.Credential.AccountID)
	assert.Equal(t, []string{gen.Session.Address}, p.Created)

	list, err := st.List(ctx, 7)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "token:"+gen.Session.Address, list[0].Credential.Token)

	gen2, err := svc.Generate(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, 2, gen2.Total)
}

func TestGenerateUsesFirstActiveDomain(t *testing.T) {
	svc, p, _ := newService(t, Options{})
	p.DomainList = []mailtm.Domain{
		{Domain: "off.io", IsActive: false},
		{Domain: "first.io", IsActive: true},
		{Domain: "second.io", IsActive: true},
	}

	gen, err := svc.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Regexp(t, `@first\.io$`, gen.Session.Address)
}

func TestGenerateDeterministicWithInjectedRand(t *testing.T) {
	svc, _, _ := newService(t, Options{Rand: func(int) int { return 0 }})

	gen, err := svc.Generate(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "aaaaaaaaaa@example.com", gen.Session.Address)
	assert.Equal(t, "aaaaaaaaaaaaaaaa", gen.Session.Credential.Password)
}

func TestGenerateFailuresAppendNothing(t *testing.T) {
	unavailable := &mailtm.APIError{Op: "x", Err: mailtm.ErrUnavailable}
	cases := map[string]func(p *mailboxtest.Provider){
		"no domains": func(p *mailboxtest.Provider) { p.DomainList = nil },
		"domains":    func(p *mailboxtest.Provider) { p.FailDomains = unavailable },
		"create":     func(p *mailboxtest.Provider) { p.FailCreate = unavailable },
		"token":      func(p *mailboxtest.Provider) { p.FailToken = unavailable },
	}
	for name, breakIt := range cases {
		t.Run(name, func(t *testing.T) {
			svc, p, st := newService(t, Options{})
			breakIt(p)

			_, err := svc.Generate(context.Background(), 1)
			require.Error(t, err)

			list, _ := st.List(context.Background(), 1)
			assert.Empty(t, list)
		})
	}
}

func TestGenerateNoDomainsSentinel(t *testing.T) {
	svc, p, _ := newService(t, Options{})
	p.DomainList = nil

	_, err := svc.Generate(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNoDomains)
}

func TestInboxUnknownAddress(t *testing.T) {
	svc, _, _ := newService(t, Options{})

	_, err := svc.Inbox(context.Background(), 1, "ghost@example.com")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestInboxProviderErrorIsDistinguishable(t *testing.T) {
	svc, p, _ := newService(t, Options{})
	ctx := context.Background()
	gen, err := svc.Generate(ctx, 1)
	require.NoError(t, err)

	page, err := svc.Inbox(ctx, 1, gen.Session.Address)
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	p.FailMessages = &mailtm.APIError{Op: "messages", Err: mailtm.ErrUnavailable}
	_, err = svc.Inbox(ctx, 1, gen.Session.Address)
	var perr *ProviderError
	require.ErrorAs(t, err, &perr)
	assert.True(t, mailtm.IsUnavailable(err))
}

func TestRemoveDeletesRemoteAccount(t *testing.T) {
	svc, p, st := newService(t, Options{DeleteRemote: true})
	ctx := context.Background()
	gen, err := svc.Generate(ctx, 1)
	require.NoError(t, err)

	require.NoError(t, svc.Remove(ctx, 1, gen.Session.Address))
	assert.Equal(t, []string{"acc-1"}, p.Deleted)

	_, err = st.Get(ctx, 1, gen.Session.Address)
	assert.ErrorIs(t, err, session.ErrNotFound)
	assert.ErrorIs(t, svc.Remove(ctx, 1, gen.Session.Address), ErrSessionNotFound)
}

func TestExpiredTokenIsRefreshed(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	svc, p, st := newService(t, Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	expired := signed(t, now.Add(-time.Minute))
	_, err := st.Append(ctx, 1, session.EmailSession{
		Address:    "old@example.com",
		Credential: session.Credential{AccountID: "acc-9", Token: expired, Password: "pw"},
	})
	require.NoError(t, err)
	p.Deliver("old@example.com", mailtm.Message{ID: "m1", Subject: "hello"})

	page, err := svc.Inbox(ctx, 1, "old@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, p.Tokens)

	es, err := st.Get(ctx, 1, "old@example.com")
	require.NoError(t, err)
	assert.Equal(t, "token:old@example.com", es.Credential.Token)
}

func TestTokenExpired(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	assert.True(t, tokenExpired(signed(t, now.Add(-time.Second)), now))
	assert.True(t, tokenExpired(signed(t, now.Add(10*time.Second)), now))
	assert.False(t, tokenExpired(signed(t, now.Add(time.Hour)), now))
	assert.False(t, tokenExpired("not-a-jwt", now))
	assert.True(t, tokenExpired("", now))
}

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	})
	s, err := tok.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}
