package waitlist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opdflow/opdflow/internal/domain/appointment"
	"github.com/opdflow/opdflow/internal/platform/apperr"
	"github.com/opdflow/opdflow/internal/platform/websocket"
)

const dateLayout = "2006-01-02"

// Booker books the promoted appointment through the ledger, which re-checks
// capacity under its own lock.
type Booker interface {
	Create(ctx context.Context, a *appointment.Appointment) error
}

// SlotFinder locates an open slot when the entry has no preferred time.
type SlotFinder interface {
	FirstOpenSlot(ctx context.Context, doctorID uuid.UUID, date string) (string, error)
}

type Service struct {
	repo   Repository
	booker Booker
	slots  SlotFinder
	events websocket.EventPublisher
	ttl    time.Duration
}

func NewService(repo Repository, booker Booker, slots SlotFinder, events websocket.EventPublisher, ttl time.Duration) *Service {
	return &Service{repo: repo, booker: booker, slots: slots, events: events, ttl: ttl}
}

// Join creates a waiting entry and returns it with its computed position.
// Priority is the numeric urgency score; callers derive it from the tier.
func (s *Service) Join(ctx context.Context, e *Entry) error {
	if e.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id is required")
	}
	if e.DoctorID == uuid.Nil {
		return apperr.Invalid("doctor_id is required")
	}
	if _, err := time.Parse(dateLayout, e.PreferredDate); err != nil {
		return apperr.Invalid("preferred_date %q is not YYYY-MM-DD", e.PreferredDate)
	}
	e.Status = StatusWaiting
	if e.ExpiresAt == nil && s.ttl > 0 {
		expires := time.Now().UTC().Add(s.ttl)
		e.ExpiresAt = &expires
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return err
	}
	if err := s.fillPosition(ctx, e); err != nil {
		return err
	}
	s.publish(ctx, e)
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.fillPosition(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, params map[string]string, limit, offset int) ([]*Entry, int, error) {
	items, total, err := s.repo.Search(ctx, params, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range items {
		if err := s.fillPosition(ctx, e); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

// Confirm promotes the entry into a real appointment. If the doctor's day
// has no capacity the entry stays waiting and the caller gets
// ErrStillUnavailable to retry later.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*Entry, *appointment.Appointment, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if e.Status != StatusWaiting && e.Status != StatusNotified {
		return nil, nil, apperr.Transition(e.Status, StatusConfirmed)
	}

	slotTime := ""
	if e.PreferredTime != nil {
		slotTime = *e.PreferredTime
	} else {
		slotTime, err = s.slots.FirstOpenSlot(ctx, e.DoctorID, e.PreferredDate)
		if err != nil {
			return nil, nil, err
		}
		if slotTime == "" {
			return nil, nil, fmt.Errorf("doctor %s on %s: %w", e.DoctorID, e.PreferredDate, apperr.ErrStillUnavailable)
		}
	}

	appt := &appointment.Appointment{
		PatientID: e.PatientID,
		DoctorID:  &e.DoctorID,
		Date:      e.PreferredDate,
		StartTime: &slotTime,
		Reason:    e.Reason,
		Priority:  tierFromScore(e.Priority),
	}
	if err := s.booker.Create(ctx, appt); err != nil {
		if errors.Is(err, apperr.ErrSlotUnavailable) {
			return nil, nil, fmt.Errorf("doctor %s on %s: %w", e.DoctorID, e.PreferredDate, apperr.ErrStillUnavailable)
		}
		return nil, nil, err
	}

	e.Status = StatusConfirmed
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, nil, err
	}
	e.Position = 0
	s.publish(ctx, e)
	return e, appt, nil
}

// Remove cancels the entry. Removing an already-cancelled entry is a no-op
// success.
func (s *Service) Remove(ctx context.Context, id uuid.UUID) (*Entry, error) {
	e, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.Status == StatusCancelled {
		return e, nil
	}
	if e.IsTerminal() {
		return nil, apperr.Transition(e.Status, StatusCancelled)
	}
	e.Status = StatusCancelled
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, err
	}
	s.publish(ctx, e)
	return e, nil
}

func (s *Service) fillPosition(ctx context.Context, e *Entry) error {
	if e.Status != StatusWaiting {
		e.Position = 0
		return nil
	}
	ahead, err := s.repo.CountAhead(ctx, e)
	if err != nil {
		return err
	}
	e.Position = ahead + 1
	return nil
}

func (s *Service) publish(ctx context.Context, e *Entry) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(e)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, websocket.NewQueueEvent(
		websocket.EventWaitlistUpdated, e.DoctorID.String(), "waitlist_entry", e.ID.String(), data))
}

func tierFromScore(score int) string {
	switch {
	case score >= appointment.PriorityScore(appointment.PriorityEmergency):
		return appointment.PriorityEmergency
	case score >= appointment.PriorityScore(appointment.PriorityUrgent):
		return appointment.PriorityUrgent
	default:
		return appointment.PriorityRoutine
	}
}
