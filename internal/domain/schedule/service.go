package schedule

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

// BookingCounter reports how many active scheduled appointments occupy a
// doctor's slot. Implemented by the appointment ledger; occupancy is always
// counted live, never cached.
type BookingCounter interface {
	CountActive(ctx context.Context, doctorID uuid.UUID, date, startTime string) (int, error)
}

var validLeaveTypes = map[string]bool{
	"personal": true, "sick": true, "holiday": true,
	"conference": true, "emergency": true, "other": true,
}

var validConsultationTypes = map[string]bool{
	"online": true, "offline": true,
}

type Service struct {
	schedules ScheduleRepository
	leaves    LeaveRepository
	bookings  BookingCounter
}

func NewService(schedules ScheduleRepository, leaves LeaveRepository, bookings BookingCounter) *Service {
	return &Service{schedules: schedules, leaves: leaves, bookings: bookings}
}

// -- Schedule --

func (s *Service) CreateSchedule(ctx context.Context, sched *DoctorSchedule) error {
	if err := validateSchedule(sched); err != nil {
		return err
	}
	if sched.Active == nil {
		active := true
		sched.Active = &active
	}
	return s.schedules.Create(ctx, sched)
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	return s.schedules.GetByID(ctx, id)
}

func (s *Service) UpdateSchedule(ctx context.Context, sched *DoctorSchedule) error {
	existing, err := s.schedules.GetByID(ctx, sched.ID)
	if err != nil {
		return err
	}
	if sched.DoctorID == uuid.Nil {
		sched.DoctorID = existing.DoctorID
	}
	if err := validateSchedule(sched); err != nil {
		return err
	}
	if sched.Active == nil {
		sched.Active = existing.Active
	}
	return s.schedules.Update(ctx, sched)
}

func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.schedules.GetByID(ctx, id); err != nil {
		return err
	}
	return s.schedules.Delete(ctx, id)
}

func (s *Service) ListSchedulesByDoctor(ctx context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	return s.schedules.ListByDoctor(ctx, doctorID)
}

func (s *Service) ListSchedules(ctx context.Context, limit, offset int) ([]*DoctorSchedule, int, error) {
	return s.schedules.List(ctx, limit, offset)
}

func validateSchedule(sched *DoctorSchedule) error {
	if sched.DoctorID == uuid.Nil {
		return apperr.Invalid("doctor_id is required")
	}
	if sched.DayOfWeek < 0 || sched.DayOfWeek > 6 {
		return apperr.Invalid("day_of_week must be 0-6, got %d", sched.DayOfWeek)
	}
	start, err := time.Parse(TimeLayout, sched.StartTime)
	if err != nil {
		return apperr.Invalid("start_time %q is not HH:MM", sched.StartTime)
	}
	end, err := time.Parse(TimeLayout, sched.EndTime)
	if err != nil {
		return apperr.Invalid("end_time %q is not HH:MM", sched.EndTime)
	}
	if !start.Before(end) {
		return apperr.Invalid("start_time %s must be before end_time %s", sched.StartTime, sched.EndTime)
	}
	if sched.SlotDurationMinutes <= 0 {
		return apperr.Invalid("slot_duration_minutes must be positive")
	}
	if sched.MaxPatients <= 0 {
		return apperr.Invalid("max_patients must be positive")
	}
	if sched.ConsultationType == "" {
		sched.ConsultationType = "offline"
	}
	if !validConsultationTypes[sched.ConsultationType] {
		return apperr.Invalid("invalid consultation_type %q", sched.ConsultationType)
	}
	return nil
}

// -- Leave --

func (s *Service) CreateLeave(ctx context.Context, l *DoctorLeave) error {
	if l.DoctorID == uuid.Nil {
		return apperr.Invalid("doctor_id is required")
	}
	if _, err := time.Parse(DateLayout, l.Date); err != nil {
		return apperr.Invalid("date %q is not YYYY-MM-DD", l.Date)
	}
	if l.LeaveType == "" {
		l.LeaveType = "other"
	}
	if !validLeaveTypes[l.LeaveType] {
		return apperr.Invalid("invalid leave_type %q", l.LeaveType)
	}
	if l.HalfDay {
		if l.Period == nil || (*l.Period != "morning" && *l.Period != "afternoon") {
			return apperr.Invalid("half_day leave requires period morning or afternoon")
		}
	}
	return s.leaves.Create(ctx, l)
}

func (s *Service) DeleteLeave(ctx context.Context, id uuid.UUID) error {
	if _, err := s.leaves.GetByID(ctx, id); err != nil {
		return err
	}
	return s.leaves.Delete(ctx, id)
}

func (s *Service) ListLeavesByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorLeave, int, error) {
	return s.leaves.ListByDoctor(ctx, doctorID, limit, offset)
}

// -- Availability Calculator --

// GetAvailableSlots derives the bookable slots for a doctor on a date:
// weekly schedule windows, minus leave exceptions, minus live occupancy.
// A doctor with schedules but none on this weekday yields an empty slot
// list; a doctor with no schedules at all is treated as unknown.
func (s *Service) GetAvailableSlots(ctx context.Context, doctorID uuid.UUID, date string) (*DayAvailability, error) {
	if doctorID == uuid.Nil {
		return nil, apperr.Invalid("doctor_id is required")
	}
	day, err := time.Parse(DateLayout, date)
	if err != nil {
		return nil, apperr.Invalid("date %q is not YYYY-MM-DD", date)
	}

	windows, err := s.schedules.ListByDoctorDay(ctx, doctorID, int(day.Weekday()))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		exists, err := s.schedules.ExistsForDoctor(ctx, doctorID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, apperr.NotFound("doctor", doctorID.String())
		}
		return &DayAvailability{DoctorID: doctorID, Date: date, Slots: []Slot{}}, nil
	}

	leaves, err := s.leaves.ListByDoctorDate(ctx, doctorID, date)
	if err != nil {
		return nil, err
	}

	slots := []Slot{}
	for _, w := range windows {
		start, err := time.Parse(TimeLayout, w.StartTime)
		if err != nil {
			return nil, apperr.Invalid("schedule %s has malformed start_time %q", w.ID, w.StartTime)
		}
		end, err := time.Parse(TimeLayout, w.EndTime)
		if err != nil {
			return nil, apperr.Invalid("schedule %s has malformed end_time %q", w.ID, w.EndTime)
		}
		dur := time.Duration(w.SlotDurationMinutes) * time.Minute

		// A trailing remainder shorter than the slot duration is dropped.
		for cursor := start; !cursor.Add(dur).After(end); cursor = cursor.Add(dur) {
			slotTime := cursor.Format(TimeLayout)

			onLeave := false
			for _, l := range leaves {
				if l.Covers(slotTime) {
					onLeave = true
					break
				}
			}

			count, err := s.bookings.CountActive(ctx, doctorID, date, slotTime)
			if err != nil {
				return nil, err
			}

			slots = append(slots, Slot{
				Time:             slotTime,
				Available:        !onLeave && count < w.MaxPatients,
				CurrentBookings:  count,
				MaxBookings:      w.MaxPatients,
				ConsultationType: w.ConsultationType,
			})
		}
	}

	return &DayAvailability{DoctorID: doctorID, Date: date, Slots: slots}, nil
}

// SlotOpen reports whether the specific slot currently has capacity. A time
// outside the doctor's schedule for that day is simply not open.
func (s *Service) SlotOpen(ctx context.Context, doctorID uuid.UUID, date, startTime string) (bool, error) {
	day, err := s.GetAvailableSlots(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, slot := range day.Slots {
		if slot.Time == startTime {
			return slot.Available, nil
		}
	}
	return false, nil
}

// FirstOpenSlot returns the earliest available slot time for the doctor on
// the date, or the empty string when every slot is taken.
func (s *Service) FirstOpenSlot(ctx context.Context, doctorID uuid.UUID, date string) (string, error) {
	day, err := s.GetAvailableSlots(ctx, doctorID, date)
	if err != nil {
		return "", err
	}
	for _, slot := range day.Slots {
		if slot.Available {
			return slot.Time, nil
		}
	}
	return "", nil
}

// HasOpenSlot reports whether any slot for the doctor on the date is
// currently available. Used by the walk-in path to decide between queueing
// and waitlisting.
func (s *Service) HasOpenSlot(ctx context.Context, doctorID uuid.UUID, date string) (bool, error) {
	day, err := s.GetAvailableSlots(ctx, doctorID, date)
	if err != nil {
		return false, err
	}
	for _, slot := range day.Slots {
		if slot.Available {
			return true, nil
		}
	}
	return false, nil
}
