// Package session keeps the per-user list of generated addresses together with
// the provider credential needed to read each inbox.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an address is not in the user's list.
var ErrNotFound = errors.New("session: address not found")

// Credential is the provider secret material captured at generation time.
type Credential struct {
	AccountID string
	Token     string
	Password  string
}

// EmailSession is one generated address owned by a user.
type EmailSession struct {
	ID         string
	UserID     int64
	Address    string
	Credential Credential
	CreatedAt  time.Time
}

// Stats aggregates store contents for diagnostics.
type Stats struct {
	Users    int
	Sessions int
}

// Store owns the mapping user -> ordered sessions. Every method is atomic on
// its own; the credential travels with its address so both disappear together.
type Store interface {
	List(ctx context.Context, userID int64) ([]EmailSession, error)
	Get(ctx context.Context, userID int64, address string) (EmailSession, error)
	Append(ctx context.Context, userID int64, s EmailSession) (int, error)
	Remove(ctx context.Context, userID int64, address string) (EmailSession, error)
	UpdateCredential(ctx context.Context, userID int64, address string, cred Credential) error
	Stats(ctx context.Context) (Stats, error)
}

// IndexOf returns the position of address in sessions, or -1.
func IndexOf(sessions []EmailSession, address string) int {
	for i, s := range sessions {
		if s.Address == address {
			return i
		}
	}
	return -1
}
