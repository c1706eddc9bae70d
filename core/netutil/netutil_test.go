package netutil

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return false }

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestKind(t *testing.T) {
	assert.Equal(t, "", Kind(nil))
	assert.Equal(t, KindTimeout, Kind(context.DeadlineExceeded))
	assert.Equal(t, KindTimeout, Kind(timeoutErr{}))
	assert.Equal(t, KindDNS, Kind(&net.DNSError{Err: "no such host", Name: "api.mail.tm"}))
	assert.Equal(t, KindDial, Kind(&net.OpError{Op: "dial", Err: errors.New("connection refused")}))
	assert.Equal(t, KindUnknown, Kind(errors.New("boom")))
}

func TestShouldRetry(t *testing.T) {
	assert.True(t, ShouldRetry(timeoutErr{}))
	assert.True(t, ShouldRetry(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	assert.False(t, ShouldRetry(context.Canceled))
	assert.False(t, ShouldRetry(errors.New("bad request")))
	assert.False(t, ShouldRetry(nil))
}

func TestRetryTransportReplaysBody(t *testing.T) {
	var calls atomic.Int32
	var bodies []string
	rt := &RetryTransport{
		Retries: 2,
		Base: roundTripFunc(func(r *http.Request) (*http.Response, error) {
			b := new(strings.Builder)
			_, _ = io.Copy(b, r.Body)
			bodies = append(bodies, b.String())
			if calls.Add(1) < 3 {
				return nil, timeoutErr{}
			}
			rec := httptest.NewRecorder()
			rec.WriteHeader(http.StatusOK)
			return rec.Result(), nil
		}),
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.invalid/send", strings.NewReader("hello"))
	require.NoError(t, err)
	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.EqualValues(t, 3, calls.Load())
	assert.Equal(t, []string{"hello", "hello", "hello"}, bodies)
}

func TestRetryTransportStopsOnPermanentError(t *testing.T) {
	var calls atomic.Int32
	rt := &RetryTransport{
		Retries: 3,
		Base: roundTripFunc(func(*http.Request) (*http.Response, error) {
			calls.Add(1)
			return nil, errors.New("tls: bad certificate")
		}),
	}
	req := httptest.NewRequest(http.MethodGet, "http://example.invalid/", nil)
	_, err := rt.RoundTrip(req)
	assert.Error(t, err)
	assert.EqualValues(t, 1, calls.Load())
}

func TestNewTransportDefaults(t *testing.T) {
	tr := NewTransport(TransportOptions{MaxIdleConns: 7})
	assert.Equal(t, 7, tr.MaxIdleConns)
	assert.Equal(t, 10, tr.MaxIdleConnsPerHost)
	assert.NotNil(t, tr.Proxy)
	assert.Zero(t, tr.ResponseHeaderTimeout)
}
