// Package mailboxtest provides an in-memory mail provider for tests.
package mailboxtest

import (
	"context"
	"strconv"
	"sync"

	"github.com/m3rciful/tempmail-bot/internal/mailtm"
)

// Provider is a scriptable stand-in for the mail.tm client.
type Provider struct {
	mu sync.Mutex

	DomainList []mailtm.Domain
	// Inboxes maps an address to its messages, newest first.
	Inboxes map[string][]mailtm.Message

	FailDomains  error
	FailCreate   error
	FailToken    error
	FailMessages error
	FailMessage  error

	Created  []string
	Deleted  []string
	Tokens   int
	accounts map[string]string
}

// New returns a provider offering a single active domain.
func New(domain string) *Provider {
	return &Provider{
		DomainList: []mailtm.Domain{{ID: "d1", Domain: domain, IsActive: true}},
		Inboxes:    make(map[string][]mailtm.Message),
		accounts:   make(map[string]string),
	}
}

// Deliver appends messages to the address's inbox.
func (p *Provider) Deliver(address string, msgs ...mailtm.Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Inboxes[address] = append(p.Inboxes[address], msgs...)
}

func (p *Provider) Domains(context.Context) ([]mailtm.Domain, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailDomains != nil {
		return nil, p.FailDomains
	}
	return append([]mailtm.Domain(nil), p.DomainList...), nil
}

func (p *Provider) CreateAccount(_ context.Context, address, _ string) (mailtm.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCreate != nil {
		return mailtm.Account{}, p.FailCreate
	}
	id := "acc-" + strconv.Itoa(len(p.Created)+1)
	p.Created = append(p.Created, address)
	p.accounts[id] = address
	return mailtm.Account{ID: id, Address: address}, nil
}

func (p *Provider) Token(_ context.Context, address, _ string) (mailtm.Token, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailToken != nil {
		return mailtm.Token{}, p.FailToken
	}
	p.Tokens++
	return mailtm.Token{Token: "token:" + address}, nil
}

func (p *Provider) Messages(_ context.Context, token string) (mailtm.MessagePage, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailMessages != nil {
		return mailtm.MessagePage{}, p.FailMessages
	}
	msgs := p.Inboxes[addressOf(token)]
	page := mailtm.MessagePage{Total: len(msgs)}
	for i, m := range msgs {
		if i == 30 {
			break
		}
		page.Messages = append(page.Messages, mailtm.MessageSummary{
			ID:        m.ID,
			From:      m.From,
			Subject:   m.Subject,
			CreatedAt: m.CreatedAt,
		})
	}
	return page, nil
}

func (p *Provider) Message(_ context.Context, token, id string) (mailtm.Message, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailMessage != nil {
		return mailtm.Message{}, p.FailMessage
	}
	for _, m := range p.Inboxes[addressOf(token)] {
		if m.ID == id {
			return m, nil
		}
	}
	return mailtm.Message{}, &mailtm.APIError{Op: "message", Status: 404, Err: mailtm.ErrNotFound}
}

func (p *Provider) DeleteAccount(_ context.Context, _, accountID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Deleted = append(p.Deleted, accountID)
	delete(p.accounts, accountID)
	return nil
}

func addressOf(token string) string {
	const prefix = "token:"
	if len(token) > len(prefix) && token[:len(prefix)] == prefix {
		return token[len(prefix):]
	}
	return ""
}
