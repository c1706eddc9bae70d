package mailtm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/", Timeout: 2 * time.Second})
}

func TestDomains(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/domains", r.URL.Path)
		require.Equal(t, http.MethodGet, r.Method)
		_, _ = w.Write([]byte(`{"hydra:member":[{"id":"d1","domain":"example.com","isActive":true}],"hydra:totalItems":1}`))
	}))

	domains, err := c.Domains(context.Background())
	require.NoError(t, err)
	require.Len(t, domains, 1)
	assert.Equal(t, "example.com", domains[0].Domain)
	assert.True(t, domains[0].IsActive)
}

func TestCreateAccountAndToken(t *testing.T) {
	var created atomic.Int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body credentialsRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		switch r.URL.Path {
		case "/accounts":
			created.Add(1)
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"id":"acc-1","address":"` + body.Address + `"}`))
		case "/token":
			assert.Equal(t, "secret", body.Password)
			_, _ = w.Write([]byte(`{"id":"acc-1","token":"tok-1"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	acc, err := c.CreateAccount(context.Background(), "abc@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "acc-1", acc.ID)
	assert.Equal(t, "abc@example.com", acc.Address)
	assert.EqualValues(t, 1, created.Load())

	tok, err := c.Token(context.Background(), "abc@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "tok-1", tok.Token)
}

func TestMessagesSendsBearerToken(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"Invalid JWT Token"}`))
			return
		}
		_, _ = w.Write([]byte(`{"hydra:member":[{"id":"m1","subject":"Hi","from":{"address":"a@b.c"}},{"id":"m2","subject":"Yo"}],"hydra:totalItems":12}`))
	}))

	page, err := c.Messages(context.Background(), "tok-1")
	require.NoError(t, err)
	assert.Len(t, page.Messages, 2)
	assert.Equal(t, 12, page.Total)
	assert.Equal(t, "a@b.c", page.Messages[0].From.Address)

	_, err = c.Messages(context.Background(), "bad")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid JWT Token", apiErr.Detail)
	assert.Equal(t, "provider_unauthorized", apiErr.Code())
}

func TestMessageNotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages/m-404", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))

	_, err := c.Message(context.Background(), "tok", "m-404")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServerErrorIsUnavailable(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))

	_, err := c.Domains(context.Background())
	assert.True(t, IsUnavailable(err))
}

func TestTimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})
	c := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond})

	_, err := c.Messages(context.Background(), "tok")
	require.Error(t, err)
	assert.True(t, IsUnavailable(err))
}

func TestDeleteAccountNoContent(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/accounts/acc-1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))

	assert.NoError(t, c.DeleteAccount(context.Background(), "tok", "acc-1"))
}
