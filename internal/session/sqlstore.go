package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type sessionRow struct {
	ID        string    `db:"id"`
	UserID    int64     `db:"user_id"`
	Seq       int64     `db:"seq"`
	Address   string    `db:"address"`
	AccountID string    `db:"account_id"`
	Token     string    `db:"token"`
	Password  string    `db:"password"`
	CreatedAt time.Time `db:"created_at"`
}

func (r sessionRow) session() EmailSession {
	return EmailSession{
		ID:      r.ID,
		UserID:  r.UserID,
		Address: r.Address,
		Credential: Credential{
			AccountID: r.AccountID,
			Token:     r.Token,
			Password:  r.Password,
		},
		CreatedAt: r.CreatedAt.UTC(),
	}
}

// SQLStore persists sessions in postgres or sqlite through sqlx.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore wraps an already migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

const selectColumns = `id, user_id, seq, address, account_id, token, password, created_at`

// List returns the user's sessions ordered by insertion.
func (s *SQLStore) List(ctx context.Context, userID int64) ([]EmailSession, error) {
	var rows []sessionRow
	q := s.db.Rebind(`SELECT ` + selectColumns + ` FROM email_sessions WHERE user_id = ? ORDER BY seq`)
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("listing sessions for user %d: %w", userID, err)
	}
	out := make([]EmailSession, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.session())
	}
	return out, nil
}

func (s *SQLStore) Get(ctx context.Context, userID int64, address string) (EmailSession, error) {
	var row sessionRow
	q := s.db.Rebind(`SELECT ` + selectColumns + ` FROM email_sessions WHERE user_id = ? AND address = ?`)
	if err := s.db.GetContext(ctx, &row, q, userID, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EmailSession{}, ErrNotFound
		}
		return EmailSession{}, fmt.Errorf("getting session %s: %w", address, err)
	}
	return row.session(), nil
}

// Append inserts the session after the user's last one and returns the new count.
func (s *SQLStore) Append(ctx context.Context, userID int64, es EmailSession) (int, error) {
	if es.ID == "" {
		es.ID = uuid.NewString()
	}
	if es.CreatedAt.IsZero() {
		es.CreatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.GetContext(ctx, &seq, tx.Rebind(`SELECT COALESCE(MAX(seq), 0) FROM email_sessions WHERE user_id = ?`), userID); err != nil {
		return 0, fmt.Errorf("reading last seq: %w", err)
	}

	_, err = tx.ExecContext(ctx, tx.Rebind(`
		INSERT INTO email_sessions (id, user_id, seq, address, account_id, token, password, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`),
		es.ID, userID, seq+1, es.Address,
		es.Credential.AccountID, es.Credential.Token, es.Credential.Password,
		es.CreatedAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting session %s: %w", es.Address, err)
	}

	var total int
	if err := tx.GetContext(ctx, &total, tx.Rebind(`SELECT COUNT(*) FROM email_sessions WHERE user_id = ?`), userID); err != nil {
		return 0, fmt.Errorf("counting sessions: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing append: %w", err)
	}
	return total, nil
}

// Remove deletes the session and its credential in one statement.
func (s *SQLStore) Remove(ctx context.Context, userID int64, address string) (EmailSession, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return EmailSession{}, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var row sessionRow
	q := tx.Rebind(`SELECT ` + selectColumns + ` FROM email_sessions WHERE user_id = ? AND address = ?`)
	if err := tx.GetContext(ctx, &row, q, userID, address); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return EmailSession{}, ErrNotFound
		}
		return EmailSession{}, fmt.Errorf("getting session %s: %w", address, err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM email_sessions WHERE id = ?`), row.ID); err != nil {
		return EmailSession{}, fmt.Errorf("deleting session %s: %w", address, err)
	}
	if err := tx.Commit(); err != nil {
		return EmailSession{}, fmt.Errorf("committing remove: %w", err)
	}
	return row.session(), nil
}

func (s *SQLStore) UpdateCredential(ctx context.Context, userID int64, address string, cred Credential) error {
	res, err := s.db.ExecContext(ctx, s.db.Rebind(`
		UPDATE email_sessions SET account_id = ?, token = ?, password = ?
		WHERE user_id = ? AND address = ?`),
		cred.AccountID, cred.Token, cred.Password, userID, address,
	)
	if err != nil {
		return fmt.Errorf("updating credential for %s: %w", address, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLStore) Stats(ctx context.Context) (Stats, error) {
	var st struct {
		Users    int `db:"users"`
		Sessions int `db:"sessions"`
	}
	q := `SELECT COUNT(DISTINCT user_id) AS users, COUNT(*) AS sessions FROM email_sessions`
	if err := s.db.GetContext(ctx, &st, q); err != nil {
		return Stats{}, fmt.Errorf("reading stats: %w", err)
	}
	return Stats{Users: st.Users, Sessions: st.Sessions}, nil
}
