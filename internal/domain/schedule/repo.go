package schedule

import (
	"context"

	"github.com/google/uuid"
)

// ScheduleRepository persists recurring weekly schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, s *DoctorSchedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error)
	Update(ctx context.Context, s *DoctorSchedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error)
	ListByDoctorDay(ctx context.Context, doctorID uuid.UUID, dayOfWeek int) ([]*DoctorSchedule, error)
	List(ctx context.Context, limit, offset int) ([]*DoctorSchedule, int, error)
	ExistsForDoctor(ctx context.Context, doctorID uuid.UUID) (bool, error)
}

// LeaveRepository persists dated leave exceptions.
type LeaveRepository interface {
	Create(ctx context.Context, l *DoctorLeave) error
	GetByID(ctx context.Context, id uuid.UUID) (*DoctorLeave, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorLeave, int, error)
	ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date string) ([]*DoctorLeave, error)
}
