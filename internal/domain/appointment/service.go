package appointment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/opdflow/opdflow/internal/platform/apperr"
	"github.com/opdflow/opdflow/internal/platform/keylock"
	"github.com/opdflow/opdflow/internal/platform/websocket"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// SlotChecker reports whether a specific slot currently has capacity.
// Implemented by the schedule availability calculator.
type SlotChecker interface {
	SlotOpen(ctx context.Context, doctorID uuid.UUID, date, startTime string) (bool, error)
}

var validPriorities = map[string]bool{
	PriorityRoutine: true, PriorityUrgent: true, PriorityEmergency: true,
}

type Service struct {
	repo        Repository
	slots       SlotChecker
	locks       *keylock.Registry
	events      websocket.EventPublisher
	autoConfirm bool
}

func NewService(repo Repository, slots SlotChecker, locks *keylock.Registry, events websocket.EventPublisher, autoConfirm bool) *Service {
	return &Service{repo: repo, slots: slots, locks: locks, events: events, autoConfirm: autoConfirm}
}

// nextNumber issues the next human-readable appointment number for the day,
// e.g. APT-20250113-0001. The sequence is global per day, not per doctor, so
// callers must hold the numberKey lock from the count through the insert;
// the per-doctor slot lock is not enough.
func (s *Service) nextNumber(ctx context.Context, kind, date string) (string, error) {
	prefix := fmt.Sprintf("%s-%s-", kind, strings.ReplaceAll(date, "-", ""))
	count, err := s.repo.CountByNumberPrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, count+1), nil
}

func slotKey(doctorID uuid.UUID, date string) string {
	return doctorID.String() + "|" + date
}

// numberKey serializes number issuance per kind and day. Always acquired
// after the slot lock, never before, so the two keys cannot deadlock.
func numberKey(kind, date string) string {
	return "number|" + kind + "|" + date
}

// Create books a scheduled appointment. The capacity check and the write
// happen under the doctor+date lock so concurrent bookings cannot exceed
// max_patients. Capacity exhaustion surfaces as ErrSlotUnavailable so the
// caller can divert to the waitlist.
func (s *Service) Create(ctx context.Context, a *Appointment) error {
	if err := s.validateNew(a); err != nil {
		return err
	}
	if a.DoctorID == nil {
		return apperr.Invalid("doctor_id is required for scheduled appointments")
	}
	if a.StartTime == nil {
		return apperr.Invalid("start_time is required for scheduled appointments")
	}
	a.Type = TypeScheduled

	key := slotKey(*a.DoctorID, a.Date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	open, err := s.slots.SlotOpen(ctx, *a.DoctorID, a.Date, *a.StartTime)
	if err != nil {
		return err
	}
	if !open {
		return fmt.Errorf("doctor %s at %s %s: %w", a.DoctorID, a.Date, *a.StartTime, apperr.ErrSlotUnavailable)
	}

	numKey := numberKey("APT", a.Date)
	s.locks.Lock(numKey)
	defer s.locks.Unlock(numKey)

	a.AppointmentNumber, err = s.nextNumber(ctx, "APT", a.Date)
	if err != nil {
		return err
	}
	a.ID = uuid.New()
	a.Status = StatusPending
	if s.autoConfirm {
		a.Status = StatusConfirmed
	}

	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.logTransition(ctx, a, "", a.Status, nil, nil)
	s.publish(ctx, a)
	return nil
}

// CreateWalkIn writes the ledger record backing a walk-in check-in. Queue
// capacity is the walk-in queue's concern; no slot check happens here.
func (s *Service) CreateWalkIn(ctx context.Context, a *Appointment) error {
	if err := s.validateNew(a); err != nil {
		return err
	}
	a.Type = TypeWalkIn
	a.ID = uuid.New()
	a.Status = StatusPending

	// Walk-ins may have no doctor so only the number lock applies here.
	key := numberKey("WLK", a.Date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	var err error
	a.AppointmentNumber, err = s.nextNumber(ctx, "WLK", a.Date)
	if err != nil {
		return err
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return err
	}
	s.logTransition(ctx, a, "", a.Status, nil, nil)
	s.publish(ctx, a)
	return nil
}

func (s *Service) validateNew(a *Appointment) error {
	if a.PatientID == uuid.Nil {
		return apperr.Invalid("patient_id is required")
	}
	if _, err := time.Parse(dateLayout, a.Date); err != nil {
		return apperr.Invalid("date %q is not YYYY-MM-DD", a.Date)
	}
	if a.StartTime != nil {
		if _, err := time.Parse(timeLayout, *a.StartTime); err != nil {
			return apperr.Invalid("start_time %q is not HH:MM", *a.StartTime)
		}
	}
	if a.Priority == "" {
		a.Priority = PriorityRoutine
	}
	if !validPriorities[a.Priority] {
		return apperr.Invalid("invalid priority %q", a.Priority)
	}
	if a.ConsultationType == "" {
		a.ConsultationType = "offline"
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Appointment, int, error) {
	return s.repo.Search(ctx, params, limit, offset)
}

// UpdateClinical sets the post-consultation fields. Clinical notes may be
// written once the consultation has started; earlier updates are rejected.
func (s *Service) UpdateClinical(ctx context.Context, id uuid.UUID, notes, diagnosis, prescription *string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusPending || a.Status == StatusConfirmed {
		return nil, apperr.Invalid("clinical fields require a consultation in progress or finished, status is %q", a.Status)
	}
	if notes != nil {
		a.Notes = notes
	}
	if diagnosis != nil {
		a.Diagnosis = diagnosis
	}
	if prescription != nil {
		a.Prescription = prescription
	}
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// UpdateStatus drives the ledger state machine. Transitions not in the
// table fail with ErrInvalidStateTransition; entering cancelled records the
// cancellation metadata.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus, actor, reason string) (*Appointment, error) {
	if !ValidStatus(newStatus) {
		return nil, apperr.Invalid("unknown status %q", newStatus)
	}
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidTransition(a.Status, newStatus) {
		return nil, apperr.Transition(a.Status, newStatus)
	}

	from := a.Status
	a.Status = newStatus
	if newStatus == StatusCancelled {
		now := time.Now().UTC()
		a.CancelledAt = &now
		if actor != "" {
			a.CancelledBy = &actor
		}
		if reason != "" {
			a.CancelReason = &reason
		}
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.logTransition(ctx, a, from, newStatus, strPtr(actor), strPtr(reason))
	s.publish(ctx, a)
	return a, nil
}

// Cancel is idempotent: cancelling an already-cancelled appointment returns
// the record unchanged, keeping the original cancellation metadata.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status == StatusCancelled {
		return a, nil
	}
	return s.UpdateStatus(ctx, id, StatusCancelled, actor, reason)
}

// Reschedule retires the original appointment and books a successor in its
// place. The successor gets a fresh identifier and number and records its
// predecessor; the original ends in the terminal rescheduled status. If the
// target slot has no capacity the original is left untouched.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, newDate, newTime, actor, reason string) (*Appointment, error) {
	if _, err := time.Parse(dateLayout, newDate); err != nil {
		return nil, apperr.Invalid("new_date %q is not YYYY-MM-DD", newDate)
	}
	if _, err := time.Parse(timeLayout, newTime); err != nil {
		return nil, apperr.Invalid("new_time %q is not HH:MM", newTime)
	}

	original, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !ValidTransition(original.Status, StatusRescheduled) {
		return nil, apperr.Transition(original.Status, StatusRescheduled)
	}
	if original.DoctorID == nil {
		return nil, apperr.Invalid("appointment %s has no doctor to reschedule against", id)
	}

	key := slotKey(*original.DoctorID, newDate)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	open, err := s.slots.SlotOpen(ctx, *original.DoctorID, newDate, newTime)
	if err != nil {
		return nil, err
	}
	if !open {
		return nil, fmt.Errorf("doctor %s at %s %s: %w", original.DoctorID, newDate, newTime, apperr.ErrSlotUnavailable)
	}

	numKey := numberKey("APT", newDate)
	s.locks.Lock(numKey)
	defer s.locks.Unlock(numKey)

	number, err := s.nextNumber(ctx, "APT", newDate)
	if err != nil {
		return nil, err
	}

	successor := &Appointment{
		ID:                uuid.New(),
		AppointmentNumber: number,
		PatientID:         original.PatientID,
		DoctorID:          original.DoctorID,
		Type:              original.Type,
		ConsultationType:  original.ConsultationType,
		Date:              newDate,
		StartTime:         &newTime,
		Status:            StatusPending,
		Priority:          original.Priority,
		Reason:            original.Reason,
		RescheduledFrom:   &original.ID,
		RescheduleCount:   original.RescheduleCount + 1,
	}

	from := original.Status
	original.Status = StatusRescheduled

	log := &StatusLog{
		AppointmentID: original.ID,
		FromStatus:    from,
		ToStatus:      StatusRescheduled,
		ChangedBy:     strPtr(actor),
		Reason:        strPtr(reason),
	}
	if err := s.repo.Reschedule(ctx, original, successor, log); err != nil {
		return nil, err
	}
	s.publish(ctx, original)
	s.publish(ctx, successor)
	return successor, nil
}

func (s *Service) GetStatusLog(ctx context.Context, id uuid.UUID) ([]*StatusLog, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.GetStatusLog(ctx, id)
}

// Stats aggregates ledger outcomes and derives completion, cancellation,
// and no-show rates.
func (s *Service) Stats(ctx context.Context, doctorID *uuid.UUID, from, to string) (*Stats, error) {
	if from != "" {
		if _, err := time.Parse(dateLayout, from); err != nil {
			return nil, apperr.Invalid("from %q is not YYYY-MM-DD", from)
		}
	}
	if to != "" {
		if _, err := time.Parse(dateLayout, to); err != nil {
			return nil, apperr.Invalid("to %q is not YYYY-MM-DD", to)
		}
	}
	st, err := s.repo.Stats(ctx, doctorID, from, to)
	if err != nil {
		return nil, err
	}
	if st.Total > 0 {
		st.CompletionRate = float64(st.Completed) / float64(st.Total)
		st.CancellationRate = float64(st.Cancelled) / float64(st.Total)
		st.NoShowRate = float64(st.NoShow) / float64(st.Total)
	}
	return st, nil
}

// AssignDoctor routes an unassigned or reassigned walk-in to a doctor.
func (s *Service) AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.IsTerminal() {
		return nil, apperr.Transition(a.Status, a.Status)
	}
	a.DoctorID = &doctorID
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.publish(ctx, a)
	return a, nil
}

// CountActive exposes live slot occupancy for the availability calculator.
func (s *Service) CountActive(ctx context.Context, doctorID uuid.UUID, date, startTime string) (int, error) {
	return s.repo.CountActive(ctx, doctorID, date, startTime)
}

func (s *Service) logTransition(ctx context.Context, a *Appointment, from, to string, actor, reason *string) {
	_ = s.repo.AddStatusLog(ctx, &StatusLog{
		AppointmentID: a.ID,
		FromStatus:    from,
		ToStatus:      to,
		ChangedBy:     actor,
		Reason:        reason,
	})
}

func (s *Service) publish(ctx context.Context, a *Appointment) {
	if s.events == nil {
		return
	}
	doctorID := ""
	if a.DoctorID != nil {
		doctorID = a.DoctorID.String()
	}
	data, err := json.Marshal(a)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, websocket.NewQueueEvent(
		websocket.EventAppointmentUpdated, doctorID, "appointment", a.ID.String(), data))
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
