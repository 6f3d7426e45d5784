package appointment

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists appointments and their status audit trail.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	// Reschedule writes the successor and retires the original in one
	// transaction so a failure leaves the original untouched.
	Reschedule(ctx context.Context, original, successor *Appointment, log *StatusLog) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error)
	// CountActive counts non-terminal scheduled bookings holding a slot.
	CountActive(ctx context.Context, doctorID uuid.UUID, date, startTime string) (int, error)
	// CountByNumberPrefix counts issued appointment numbers sharing a
	// day prefix, feeding sequential number generation.
	CountByNumberPrefix(ctx context.Context, prefix string) (int, error)
	AddStatusLog(ctx context.Context, log *StatusLog) error
	GetStatusLog(ctx context.Context, appointmentID uuid.UUID) ([]*StatusLog, error)
	Stats(ctx context.Context, doctorID *uuid.UUID, from, to string) (*Stats, error)
}
