package session

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/tempmail-bot/core/database"
)

func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	cfg := database.Config{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "sessions.db"),
	}
	require.NoError(t, database.RunMigrations(cfg, Migrations()))
	db, err := database.Connect(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db)
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func newSession(addr string) EmailSession {
	return EmailSession{
		Address:    addr,
		Credential: Credential{AccountID: "acc-" + addr, Token: "tok-" + addr, Password: "pw"},
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i, addr := range []string{"a@x.io", "b@x.io", "c@x.io"} {
			n, err := s.Append(ctx, 1, newSession(addr))
			require.NoError(t, err)
			assert.Equal(t, i+1, n)
		}
		_, err := s.Append(ctx, 2, newSession("z@x.io"))
		require.NoError(t, err)

		list, err := s.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 3)
		assert.Equal(t, "a@x.io", list[0].Address)
		assert.Equal(t, "c@x.io", list[2].Address)
		assert.Equal(t, "tok-b@x.io", list[1].Credential.Token)
		assert.NotEmpty(t, list[0].ID)
		assert.Equal(t, 2, IndexOf(list, "c@x.io"))
		assert.Equal(t, -1, IndexOf(list, "z@x.io"))

		st, err := s.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, Stats{Users: 2, Sessions: 4}, st)
	})
}

func TestRemoveDropsAddressAndCredential(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _ = s.Append(ctx, 1, newSession("a@x.io"))
		_, _ = s.Append(ctx, 1, newSession("b@x.io"))

		removed, err := s.Remove(ctx, 1, "a@x.io")
		require.NoError(t, err)
		assert.Equal(t, "acc-a@x.io", removed.Credential.AccountID)

		_, err = s.Get(ctx, 1, "a@x.io")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = s.Remove(ctx, 1, "a@x.io")
		assert.ErrorIs(t, err, ErrNotFound)

		list, err := s.List(ctx, 1)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "b@x.io", list[0].Address)
	})
}

func TestUpdateCredential(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, _ = s.Append(ctx, 1, newSession("a@x.io"))

		cred := Credential{AccountID: "acc", Token: "fresh", Password: "pw"}
		require.NoError(t, s.UpdateCredential(ctx, 1, "a@x.io", cred))
		got, err := s.Get(ctx, 1, "a@x.io")
		require.NoError(t, err)
		assert.Equal(t, cred, got.Credential)

		assert.ErrorIs(t, s.UpdateCredential(ctx, 2, "a@x.io", cred), ErrNotFound)
	})
}

func TestMemoryStoreListIsACopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Append(ctx, 1, newSession("a@x.io"))

	list, _ := s.List(ctx, 1)
	list[0].Address = "mutated"

	again, _ := s.List(ctx, 1)
	assert.Equal(t, "a@x.io", again[0].Address)
}

func TestMemoryStoreConcurrentRemove(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	_, _ = s.Append(ctx, 1, newSession("a@x.io"))

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		removed int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Remove(ctx, 1, "a@x.io"); err == nil {
				mu.Lock()
				removed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, removed)
}
