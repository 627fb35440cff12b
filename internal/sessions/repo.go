package sessions

import (
	"context"
	"time"
)

// Repo persists sessions for the lifetime of each session only.
type Repo interface {
	Create(ctx context.Context, sess Session) error
	GetByID(ctx context.Context, id string) (Session, error)
	Update(ctx context.Context, sess Session) error
	Delete(ctx context.Context, id string) error
	// DeleteExpired removes sessions whose expiry is at or before now and
	// returns how many were removed.
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
