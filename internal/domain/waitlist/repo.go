package waitlist

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository persists waitlist entries.
type Repository interface {
	Create(ctx context.Context, e *Entry) error
	GetByID(ctx context.Context, id uuid.UUID) (*Entry, error)
	Update(ctx context.Context, e *Entry) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error)
	// CountAhead counts waiting entries for the same doctor ranked ahead
	// of e: higher priority, or equal priority created earlier.
	CountAhead(ctx context.Context, e *Entry) (int, error)
	// ExpireBefore flips waiting entries whose expiry passed to expired
	// and returns how many rows changed.
	ExpireBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
