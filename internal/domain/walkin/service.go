package walkin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opdflow/opdflow/internal/domain/appointment"
	"github.com/opdflow/opdflow/internal/domain/waitlist"
	"github.com/opdflow/opdflow/internal/platform/apperr"
	"github.com/opdflow/opdflow/internal/platform/keylock"
	"github.com/opdflow/opdflow/internal/platform/websocket"
)

// Ledger is the slice of the appointment service the queue drives: walk-in
// records are created here and queue transitions push the paired
// appointment through its own state machine.
type Ledger interface {
	CreateWalkIn(ctx context.Context, a *appointment.Appointment) error
	Get(ctx context.Context, id uuid.UUID) (*appointment.Appointment, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status, actor, reason string) (*appointment.Appointment, error)
	AssignDoctor(ctx context.Context, id, doctorID uuid.UUID) (*appointment.Appointment, error)
}

// Availability decides whether a doctor-assigned walk-in still fits today.
type Availability interface {
	HasOpenSlot(ctx context.Context, doctorID uuid.UUID, date string) (bool, error)
}

// Waitlister absorbs the overflow when a doctor's day is full.
type Waitlister interface {
	Join(ctx context.Context, e *waitlist.Entry) error
}

// Actor identifies the caller for queue permission checks. Doctors may
// only drive entries on their own queue; desk and admin roles may drive
// any.
type Actor struct {
	UserID   string
	Roles    []string
	DoctorID string
}

func (a Actor) isDoctorOnly() bool {
	isDoctor := false
	for _, r := range a.Roles {
		switch r {
		case "doctor":
			isDoctor = true
		case "admin", "nurse", "registrar":
			return false
		}
	}
	return isDoctor
}

type Service struct {
	repo         Repository
	ledger       Ledger
	availability Availability
	waitlist     Waitlister
	locks        *keylock.Registry
	events       websocket.EventPublisher
	now          func() time.Time
}

func NewService(repo Repository, ledger Ledger, availability Availability, waitlister Waitlister, locks *keylock.Registry, events websocket.EventPublisher) *Service {
	return &Service{
		repo:         repo,
		ledger:       ledger,
		availability: availability,
		waitlist:     waitlister,
		locks:        locks,
		events:       events,
		now:          time.Now,
	}
}

func (s *Service) today() string {
	return s.now().Format(dateLayout)
}

func queueKey(doctorID *uuid.UUID, date string) string {
	if doctorID == nil {
		return "queue|unassigned|" + date
	}
	return "queue|" + doctorID.String() + "|" + date
}

// CheckInRequest is a walk-in registration. DoctorID nil means the patient
// is unassigned and waits in the general pool until routed.
type CheckInRequest struct {
	PatientID      uuid.UUID  `json:"patient_id"`
	DoctorID       *uuid.UUID `json:"doctor_id"`
	Priority       string     `json:"priority"`
	ChiefComplaint string     `json:"chief_complaint"`
}

// CheckInResult is either a queue confirmation or a waitlist diversion.
type CheckInResult struct {
	Waitlisted    bool                     `json:"waitlisted"`
	QueueEntry    *QueueEntry              `json:"queue_entry,omitempty"`
	Appointment   *appointment.Appointment `json:"appointment,omitempty"`
	WaitlistEntry *waitlist.Entry          `json:"waitlist_entry,omitempty"`
}

// CheckIn registers a walk-in. A doctor-assigned walk-in whose doctor has
// no open slot today is diverted to the waitlist instead of queued;
// unassigned walk-ins always queue.
func (s *Service) CheckIn(ctx context.Context, req CheckInRequest) (*CheckInResult, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Invalid("patient_id is required")
	}
	if req.Priority == "" {
		req.Priority = appointment.PriorityRoutine
	}
	if !appointment.ValidPriority(req.Priority) {
		return nil, apperr.Invalid("invalid priority %q", req.Priority)
	}

	date := s.today()

	if req.DoctorID != nil {
		open, err := s.availability.HasOpenSlot(ctx, *req.DoctorID, date)
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			return nil, err
		}
		// A doctor with no schedule rows at all has no slots to fill;
		// the walk-in queue is independent of the slot grid then.
		if err == nil && !open {
			entry := &waitlist.Entry{
				PatientID:     req.PatientID,
				DoctorID:      *req.DoctorID,
				PreferredDate: date,
				Priority:      appointment.PriorityScore(req.Priority),
				Reason:        req.ChiefComplaint,
			}
			if err := s.waitlist.Join(ctx, entry); err != nil {
				return nil, err
			}
			return &CheckInResult{Waitlisted: true, WaitlistEntry: entry}, nil
		}
	}

	appt := &appointment.Appointment{
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      date,
		Priority:  req.Priority,
		Reason:    req.ChiefComplaint,
	}
	if err := s.ledger.CreateWalkIn(ctx, appt); err != nil {
		return nil, err
	}

	key := queueKey(req.DoctorID, date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	max, err := s.repo.MaxQueueNumber(ctx, req.DoctorID, date)
	if err != nil {
		return nil, err
	}
	entry := &QueueEntry{
		ID:             uuid.New(),
		AppointmentID:  appt.ID,
		PatientID:      req.PatientID,
		DoctorID:       req.DoctorID,
		Date:           date,
		QueueNumber:    max + 1,
		Status:         StatusWaiting,
		Priority:       req.Priority,
		ChiefComplaint: req.ChiefComplaint,
		CheckInAt:      s.now().UTC(),
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.publish(ctx, entry)
	return &CheckInResult{QueueEntry: entry, Appointment: appt}, nil
}

// -- Queue transitions --

// Call moves a waiting entry to called and confirms the paired
// appointment.
func (s *Service) Call(ctx context.Context, id uuid.UUID, actor Actor) (*QueueEntry, error) {
	return s.transition(ctx, id, actor, StatusCalled, func(q *QueueEntry) {
		now := s.now().UTC()
		q.CalledAt = &now
	}, appointment.StatusConfirmed)
}

// StartConsultation moves a called entry into consultation and stamps the
// start time.
func (s *Service) StartConsultation(ctx context.Context, id uuid.UUID, actor Actor) (*QueueEntry, error) {
	return s.transition(ctx, id, actor, StatusInConsultation, func(q *QueueEntry) {
		now := s.now().UTC()
		q.ConsultationStartAt = &now
	}, appointment.StatusInProgress)
}

// Complete finishes a consultation; the paired appointment completes too.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*QueueEntry, error) {
	return s.transition(ctx, id, actor, StatusCompleted, func(q *QueueEntry) {
		now := s.now().UTC()
		q.ConsultationEndAt = &now
	}, appointment.StatusCompleted)
}

// Skip removes the entry from the active queue; the paired appointment is
// marked a no-show.
func (s *Service) Skip(ctx context.Context, id uuid.UUID, actor Actor) (*QueueEntry, error) {
	return s.transition(ctx, id, actor, StatusSkipped, nil, appointment.StatusNoShow)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, actor Actor, target string, stamp func(*QueueEntry), apptTarget string) (*QueueEntry, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(q, actor); err != nil {
		return nil, err
	}
	if !ValidTransition(q.Status, target) {
		return nil, apperr.Transition(q.Status, target)
	}

	q.Status = target
	if stamp != nil {
		stamp(q)
	}
	if err := s.repo.Update(ctx, q); err != nil {
		return nil, err
	}
	s.syncAppointment(ctx, q.AppointmentID, apptTarget, actor)
	s.publish(ctx, q)
	return q, nil
}

func (s *Service) authorize(q *QueueEntry, actor Actor) error {
	if !actor.isDoctorOnly() {
		return nil
	}
	if q.DoctorID == nil || q.DoctorID.String() != actor.DoctorID {
		return fmt.Errorf("doctor may only act on their own queue: %w", apperr.ErrPermissionDenied)
	}
	return nil
}

// syncAppointment pushes the paired appointment toward the target status,
// skipping moves the ledger already made (for example an auto-confirmed
// appointment when the queue entry is first called).
func (s *Service) syncAppointment(ctx context.Context, appointmentID uuid.UUID, target string, actor Actor) {
	a, err := s.ledger.Get(ctx, appointmentID)
	if err != nil {
		return
	}
	if a.Status == target || !appointment.ValidTransition(a.Status, target) {
		return
	}
	_, _ = s.ledger.UpdateStatus(ctx, appointmentID, target, actor.UserID, "")
}

// -- Queue views --

// GetQueue returns the board for one doctor's queue in service order, or
// the whole board across doctors when doctorID is nil. The unassigned pool
// has its own listing.
func (s *Service) GetQueue(ctx context.Context, doctorID *uuid.UUID) (*QueueStatus, error) {
	if doctorID == nil {
		return s.ListToday(ctx)
	}
	items, err := s.repo.ListByDoctorDate(ctx, doctorID, s.today())
	if err != nil {
		return nil, err
	}
	return buildStatus(items), nil
}

// ListToday returns every walk-in entry for today across doctors.
func (s *Service) ListToday(ctx context.Context) (*QueueStatus, error) {
	items, err := s.repo.ListByDate(ctx, s.today())
	if err != nil {
		return nil, err
	}
	return buildStatus(items), nil
}

// ListUnassigned returns today's unrouted entries.
func (s *Service) ListUnassigned(ctx context.Context) ([]*QueueEntry, error) {
	items, err := s.repo.ListByDoctorDate(ctx, nil, s.today())
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*QueueEntry{}
	}
	return items, nil
}

func buildStatus(items []*QueueEntry) *QueueStatus {
	st := &QueueStatus{Items: items}
	if st.Items == nil {
		st.Items = []*QueueEntry{}
	}
	for _, q := range items {
		switch q.Status {
		case StatusWaiting:
			st.TotalWaiting++
		case StatusInConsultation:
			st.TotalInProgress++
		case StatusCompleted:
			st.TotalCompleted++
		}
	}
	return st
}

// DoctorLoads returns the live waiting count per doctor, for steering
// unassigned walk-ins toward the least loaded queue.
func (s *Service) DoctorLoads(ctx context.Context) (map[uuid.UUID]int, error) {
	return s.repo.WaitingCounts(ctx, s.today())
}

// AssignDoctor routes a walk-in appointment to a doctor's queue. The old
// entry is retired and a new one takes the next number in the target
// queue; check-in time carries over so the patient keeps their FIFO rank.
// Entries already called or in consultation cannot be rerouted.
func (s *Service) AssignDoctor(ctx context.Context, appointmentID, doctorID uuid.UUID, actor Actor) (*QueueEntry, error) {
	if doctorID == uuid.Nil {
		return nil, apperr.Invalid("doctor_id is required")
	}
	if actor.isDoctorOnly() && actor.DoctorID != doctorID.String() {
		return nil, fmt.Errorf("doctor may only pull patients onto their own queue: %w", apperr.ErrPermissionDenied)
	}
	old, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if old.Status != StatusWaiting {
		return nil, fmt.Errorf("queue entry %s is %s: %w", old.ID, old.Status, apperr.ErrInvalidStateTransition)
	}
	if old.DoctorID != nil && *old.DoctorID == doctorID {
		return old, nil
	}

	if _, err := s.ledger.AssignDoctor(ctx, appointmentID, doctorID); err != nil {
		return nil, err
	}

	key := queueKey(&doctorID, old.Date)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	max, err := s.repo.MaxQueueNumber(ctx, &doctorID, old.Date)
	if err != nil {
		return nil, err
	}
	fresh := &QueueEntry{
		ID:             uuid.New(),
		AppointmentID:  old.AppointmentID,
		PatientID:      old.PatientID,
		DoctorID:       &doctorID,
		Date:           old.Date,
		QueueNumber:    max + 1,
		Status:         StatusWaiting,
		Priority:       old.Priority,
		ChiefComplaint: old.ChiefComplaint,
		CheckInAt:      old.CheckInAt,
	}
	if err := s.repo.Create(ctx, fresh); err != nil {
		return nil, err
	}
	if err := s.repo.Delete(ctx, old.ID); err != nil {
		return nil, err
	}
	s.publish(ctx, old)
	s.publish(ctx, fresh)
	return fresh, nil
}

func (s *Service) publish(ctx context.Context, q *QueueEntry) {
	if s.events == nil {
		return
	}
	doctorID := ""
	if q.DoctorID != nil {
		doctorID = q.DoctorID.String()
	}
	data, err := json.Marshal(q)
	if err != nil {
		return
	}
	_ = s.events.Publish(ctx, websocket.NewQueueEvent(
		websocket.EventQueueUpdated, doctorID, "queue_entry", q.ID.String(), data))
}
