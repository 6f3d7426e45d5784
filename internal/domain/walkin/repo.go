package walkin

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists queue entries. A nil doctorID addresses the
// unassigned pool.
type Repository interface {
	Create(ctx context.Context, q *QueueEntry) error
	GetByID(ctx context.Context, id uuid.UUID) (*QueueEntry, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*QueueEntry, error)
	Update(ctx context.Context, q *QueueEntry) error
	Delete(ctx context.Context, id uuid.UUID) error
	// MaxQueueNumber returns the highest number issued so far for the
	// doctor and date, zero when none.
	MaxQueueNumber(ctx context.Context, doctorID *uuid.UUID, date string) (int, error)
	// ListByDoctorDate returns the doctor's entries for the date in
	// service order: priority tier descending, then check-in ascending.
	ListByDoctorDate(ctx context.Context, doctorID *uuid.UUID, date string) ([]*QueueEntry, error)
	ListByDate(ctx context.Context, date string) ([]*QueueEntry, error)
	// WaitingCounts returns the number of waiting entries per assigned
	// doctor for the date.
	WaitingCounts(ctx context.Context, date string) (map[uuid.UUID]int, error)
}
