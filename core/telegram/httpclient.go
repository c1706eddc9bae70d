package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/tempmail-bot/core/netutil"
)

const (
	apiClientTimeout = 30 * time.Second
	apiRetryAttempts = 3
	apiRetryBackoff  = 2 * time.Second
	longPollHeadroom = 10 * time.Second
)

// BuildHTTPClient returns the client used for Bot API calls. Transient
// network failures are retried; the overall timeout leaves room for a
// long poll of longPoll.
func BuildHTTPClient(longPoll time.Duration) *http.Client {
	timeout := apiClientTimeout
	if lp := longPoll + longPollHeadroom; lp > timeout {
		timeout = lp
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &netutil.RetryTransport{
			Base:    netutil.NewTransport(netutil.TransportOptions{}),
			Retries: apiRetryAttempts,
			Backoff: apiRetryBackoff,
		},
	}
}
