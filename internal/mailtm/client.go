package mailtm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/m3rciful/tempmail-bot/core/logger"
	"github.com/m3rciful/tempmail-bot/core/netutil"
)

const (
	// DefaultBaseURL is the public mail.tm API endpoint.
	DefaultBaseURL = "https://api.mail.tm"
	// DefaultTimeout bounds every provider call.
	DefaultTimeout = 15 * time.Second

	component   = "mail.provider"
	maxBodySize = 1 << 20
)

// Options configures NewClient.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client is a thin typed wrapper over the mail.tm REST API.
// It keeps no per-account state; callers correlate tokens with addresses.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	domains    singleflight.Group
}

// NewClient builds a client, filling zero options with defaults.
func NewClient(opts Options) *Client {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = buildHTTPClient(timeout)
	}
	return &Client{
		baseURL:    base,
		timeout:    timeout,
		httpClient: hc,
	}
}

func buildHTTPClient(timeout time.Duration) *http.Client {
	transport := netutil.NewTransport(netutil.TransportOptions{
		MaxIdleConns:    50,
		IdleConnTimeout: 60 * time.Second,
	})
	return &http.Client{Timeout: timeout, Transport: transport}
}

// Domains lists the domains accepted for new accounts.
// Concurrent callers share one in-flight request.
func (c *Client) Domains(ctx context.Context) ([]Domain, error) {
	v, err, shared := c.domains.Do("domains", func() (interface{}, error) {
		var out collection[Domain]
		if err := c.do(ctx, "domains", http.MethodGet, "/domains", "", nil, &out); err != nil {
			return nil, err
		}
		return out.Members, nil
	})
	if err != nil {
		return nil, err
	}
	domains := v.([]Domain)
	logger.Debug(ctx, component, "domains.listed",
		slog.Int("count", len(domains)),
		slog.Bool("shared", shared),
	)
	return append([]Domain(nil), domains...), nil
}

// CreateAccount registers a new mailbox.
func (c *Client) CreateAccount(ctx context.Context, address, password string) (Account, error) {
	var acc Account
	body := credentialsRequest{Address: address, Password: password}
	if err := c.do(ctx, "create_account", http.MethodPost, "/accounts", "", body, &acc); err != nil {
		return Account{}, err
	}
	return acc, nil
}

// Token exchanges address and password for a bearer token.
func (c *Client) Token(ctx context.Context, address, password string) (Token, error) {
	var tok Token
	body := credentialsRequest{Address: address, Password: password}
	if err := c.do(ctx, "token", http.MethodPost, "/token", "", body, &tok); err != nil {
		return Token{}, err
	}
	if tok.Token == "" {
		return Token{}, &APIError{Op: "token", Detail: "empty token in response", Err: ErrUnavailable}
	}
	return tok, nil
}

// Messages returns the first page of the inbox owned by token.
func (c *Client) Messages(ctx context.Context, token string) (MessagePage, error) {
	var out collection[MessageSummary]
	if err := c.do(ctx, "messages", http.MethodGet, "/messages", token, nil, &out); err != nil {
		return MessagePage{}, err
	}
	total := out.TotalItems
	if total < len(out.Members) {
		total = len(out.Members)
	}
	return MessagePage{Messages: out.Members, Total: total}, nil
}

// Message fetches a single message.
func (c *Client) Message(ctx context.Context, token, id string) (Message, error) {
	var msg Message
	path := "/messages/" + url.PathEscape(id)
	if err := c.do(ctx, "message", http.MethodGet, path, token, nil, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}

// DeleteAccount removes the mailbox identified by accountID.
func (c *Client) DeleteAccount(ctx context.Context, token, accountID string) error {
	path := "/accounts/" + url.PathEscape(accountID)
	return c.do(ctx, "delete_account", http.MethodDelete, path, token, nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path, token string, body, result interface{}) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return &APIError{Op: op, Detail: "encode request", Err: err}
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &APIError{Op: op, Detail: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/ld+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn(ctx, component, "request.fail",
			slog.String("op", op),
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
			slog.String("error_kind", netutil.Kind(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return &APIError{Op: op, Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Detail: "read response", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Op:     op,
			Status: resp.StatusCode,
			Detail: errorDetail(data),
			Err:    statusError(resp.StatusCode),
		}
		logger.Warn(ctx, component, "request.fail",
			slog.String("op", op),
			slog.Int("http_code", resp.StatusCode),
			slog.String("err", logger.SanitizeLimit(apiErr.Error(), 256)),
			slog.Duration("duration", logger.Took(start)),
		)
		return apiErr
	}

	logger.Debug(ctx, component, "request.ok",
		slog.String("op", op),
		slog.Int("http_code", resp.StatusCode),
		slog.Duration("duration", logger.Took(start)),
	)

	if result == nil || resp.StatusCode == http.StatusNoContent || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Detail: "decode response", Err: fmt.Errorf("%w: %v", ErrUnavailable, err)}
	}
	return nil
}

func errorDetail(body []byte) string {
	var payload struct {
		Description string `json:"hydra:description"`
		Detail      string `json:"detail"`
		Message     string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	for _, s := range []string{payload.Description, payload.Detail, payload.Message} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	return ""
}

// IsUnavailable reports whether err means the provider could not be reached.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrUnavailable)
}
