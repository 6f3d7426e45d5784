package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/opdflow/opdflow/internal/platform/apperr"
)

// -- Mock Repositories --

type mockScheduleRepo struct {
	scheds map[uuid.UUID]*DoctorSchedule
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{scheds: make(map[uuid.UUID]*DoctorSchedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, s *DoctorSchedule) error {
	s.ID = uuid.New()
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.scheds[s.ID] = s
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*DoctorSchedule, error) {
	s, ok := m.scheds[id]
	if !ok {
		return nil, apperr.NotFound("schedule", id.String())
	}
	return s, nil
}

func (m *mockScheduleRepo) Update(_ context.Context, s *DoctorSchedule) error {
	m.scheds[s.ID] = s
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.scheds, id)
	return nil
}

func (m *mockScheduleRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]*DoctorSchedule, error) {
	var result []*DoctorSchedule
	for _, s := range m.scheds {
		if s.DoctorID == doctorID {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) ListByDoctorDay(_ context.Context, doctorID uuid.UUID, dayOfWeek int) ([]*DoctorSchedule, error) {
	var result []*DoctorSchedule
	for _, s := range m.scheds {
		if s.DoctorID == doctorID && s.DayOfWeek == dayOfWeek {
			result = append(result, s)
		}
	}
	return result, nil
}

func (m *mockScheduleRepo) List(_ context.Context, limit, offset int) ([]*DoctorSchedule, int, error) {
	var result []*DoctorSchedule
	for _, s := range m.scheds {
		result = append(result, s)
	}
	return result, len(result), nil
}

func (m *mockScheduleRepo) ExistsForDoctor(_ context.Context, doctorID uuid.UUID) (bool, error) {
	for _, s := range m.scheds {
		if s.DoctorID == doctorID {
			return true, nil
		}
	}
	return false, nil
}

type mockLeaveRepo struct {
	leaves map[uuid.UUID]*DoctorLeave
}

func newMockLeaveRepo() *mockLeaveRepo {
	return &mockLeaveRepo{leaves: make(map[uuid.UUID]*DoctorLeave)}
}

func (m *mockLeaveRepo) Create(_ context.Context, l *DoctorLeave) error {
	l.ID = uuid.New()
	l.CreatedAt = time.Now()
	m.leaves[l.ID] = l
	return nil
}

func (m *mockLeaveRepo) GetByID(_ context.Context, id uuid.UUID) (*DoctorLeave, error) {
	l, ok := m.leaves[id]
	if !ok {
		return nil, apperr.NotFound("leave", id.String())
	}
	return l, nil
}

func (m *mockLeaveRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.leaves, id)
	return nil
}

func (m *mockLeaveRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*DoctorLeave, int, error) {
	var result []*DoctorLeave
	for _, l := range m.leaves {
		if l.DoctorID == doctorID {
			result = append(result, l)
		}
	}
	return result, len(result), nil
}

func (m *mockLeaveRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date string) ([]*DoctorLeave, error) {
	var result []*DoctorLeave
	for _, l := range m.leaves {
		if l.DoctorID == doctorID && l.Date == date {
			result = append(result, l)
		}
	}
	return result, nil
}

type mockBookingCounter struct {
	counts map[string]int
}

func newMockBookingCounter() *mockBookingCounter {
	return &mockBookingCounter{counts: make(map[string]int)}
}

func (m *mockBookingCounter) set(doctorID uuid.UUID, date, startTime string, n int) {
	m.counts[doctorID.String()+"|"+date+"|"+startTime] = n
}

func (m *mockBookingCounter) CountActive(_ context.Context, doctorID uuid.UUID, date, startTime string) (int, error) {
	return m.counts[doctorID.String()+"|"+date+"|"+startTime], nil
}

func newTestService() (*Service, *mockScheduleRepo, *mockLeaveRepo, *mockBookingCounter) {
	scheds := newMockScheduleRepo()
	leaves := newMockLeaveRepo()
	bookings := newMockBookingCounter()
	return NewService(scheds, leaves, bookings), scheds, leaves, bookings
}

// -- Schedule CRUD --

func TestCreateSchedule_Defaults(t *testing.T) {
	svc, _, _, _ := newTestService()

	sched := &DoctorSchedule{
		DoctorID:            uuid.New(),
		DayOfWeek:           1,
		StartTime:           "09:00",
		EndTime:             "12:00",
		SlotDurationMinutes: 30,
		MaxPatients:         2,
	}
	if err := svc.CreateSchedule(context.Background(), sched); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sched.Active == nil || !*sched.Active {
		t.Error("expected active to default to true")
	}
	if sched.ConsultationType != "offline" {
		t.Errorf("expected consultation_type offline, got %s", sched.ConsultationType)
	}
}

func TestCreateSchedule_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()

	tests := []struct {
		name  string
		sched DoctorSchedule
	}{
		{"missing doctor", DoctorSchedule{DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 30, MaxPatients: 1}},
		{"bad day", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 7, StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 30, MaxPatients: 1}},
		{"bad start", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 1, StartTime: "9am", EndTime: "12:00", SlotDurationMinutes: 30, MaxPatients: 1}},
		{"start after end", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 1, StartTime: "13:00", EndTime: "12:00", SlotDurationMinutes: 30, MaxPatients: 1}},
		{"zero duration", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", MaxPatients: 1}},
		{"zero capacity", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 30}},
		{"bad consultation type", DoctorSchedule{DoctorID: doctorID, DayOfWeek: 1, StartTime: "09:00", EndTime: "12:00", SlotDurationMinutes: 30, MaxPatients: 1, ConsultationType: "phone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.CreateSchedule(context.Background(), &tt.sched)
			if !errors.Is(err, apperr.ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestCreateLeave_Validation(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()
	afternoon := "afternoon"
	evening := "evening"

	if err := svc.CreateLeave(context.Background(), &DoctorLeave{DoctorID: doctorID, Date: "15-01-2025"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad date, got %v", err)
	}
	if err := svc.CreateLeave(context.Background(), &DoctorLeave{DoctorID: doctorID, Date: "2025-01-15", LeaveType: "vacation"}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad leave_type, got %v", err)
	}
	if err := svc.CreateLeave(context.Background(), &DoctorLeave{DoctorID: doctorID, Date: "2025-01-15", LeaveType: "sick", HalfDay: true, Period: &evening}); !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument for bad period, got %v", err)
	}
	l := &DoctorLeave{DoctorID: doctorID, Date: "2025-01-15", LeaveType: "sick", HalfDay: true, Period: &afternoon}
	if err := svc.CreateLeave(context.Background(), l); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// -- Availability Calculator --

// 2025-01-13 is a Monday.
const monday = "2025-01-13"

func mondaySchedule(doctorID uuid.UUID, start, end string, durMin, maxPatients int) *DoctorSchedule {
	return &DoctorSchedule{
		DoctorID:            doctorID,
		DayOfWeek:           1,
		StartTime:           start,
		EndTime:             end,
		SlotDurationMinutes: durMin,
		MaxPatients:         maxPatients,
	}
}

func TestGetAvailableSlots_EnumeratesWindow(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "10:00", 30, 2)); err != nil {
		t.Fatal(err)
	}

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(day.Slots))
	}
	if day.Slots[0].Time != "09:00" || day.Slots[1].Time != "09:30" {
		t.Errorf("unexpected slot times: %s, %s", day.Slots[0].Time, day.Slots[1].Time)
	}
	for _, slot := range day.Slots {
		if !slot.Available || slot.CurrentBookings != 0 || slot.MaxBookings != 2 {
			t.Errorf("unexpected slot state: %+v", slot)
		}
	}
}

func TestGetAvailableSlots_DropsRemainder(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()

	// 75-minute window with 30-minute slots: the trailing 15 minutes are dropped.
	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "10:15", 30, 1)); err != nil {
		t.Fatal(err)
	}

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(day.Slots))
	}
}

func TestGetAvailableSlots_FullSlotUnavailable(t *testing.T) {
	svc, _, _, bookings := newTestService()
	doctorID := uuid.New()

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "10:00", 30, 1)); err != nil {
		t.Fatal(err)
	}
	bookings.set(doctorID, monday, "09:00", 1)

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Slots[0].Available {
		t.Error("expected 09:00 unavailable at capacity")
	}
	if day.Slots[0].CurrentBookings != 1 {
		t.Errorf("expected 1 current booking, got %d", day.Slots[0].CurrentBookings)
	}
	if !day.Slots[1].Available {
		t.Error("expected 09:30 still available")
	}
}

func TestGetAvailableSlots_FullDayLeave(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "10:00", 30, 1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateLeave(context.Background(), &DoctorLeave{DoctorID: doctorID, Date: monday, LeaveType: "sick"}); err != nil {
		t.Fatal(err)
	}

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range day.Slots {
		if slot.Available {
			t.Errorf("expected slot %s blocked by full-day leave", slot.Time)
		}
	}
}

func TestGetAvailableSlots_HalfDayLeave(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()
	morning := "morning"

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "11:00", "13:00", 60, 1)); err != nil {
		t.Fatal(err)
	}
	if err := svc.CreateLeave(context.Background(), &DoctorLeave{DoctorID: doctorID, Date: monday, LeaveType: "personal", HalfDay: true, Period: &morning}); err != nil {
		t.Fatal(err)
	}

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(day.Slots))
	}
	if day.Slots[0].Available {
		t.Error("expected 11:00 blocked by morning leave")
	}
	if !day.Slots[1].Available {
		t.Error("expected 12:00 open in the afternoon")
	}
}

func TestGetAvailableSlots_NoScheduleForWeekday(t *testing.T) {
	svc, _, _, _ := newTestService()
	doctorID := uuid.New()

	// Doctor works Tuesdays only.
	sched := mondaySchedule(doctorID, "09:00", "12:00", 30, 1)
	sched.DayOfWeek = 2
	if err := svc.CreateSchedule(context.Background(), sched); err != nil {
		t.Fatal(err)
	}

	day, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatalf("expected empty result, got error: %v", err)
	}
	if len(day.Slots) != 0 {
		t.Errorf("expected no slots, got %d", len(day.Slots))
	}
}

func TestGetAvailableSlots_UnknownDoctor(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetAvailableSlots(context.Background(), uuid.New(), monday)
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAvailableSlots_MalformedDate(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.GetAvailableSlots(context.Background(), uuid.New(), "01/13/2025")
	if !errors.Is(err, apperr.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestGetAvailableSlots_Idempotent(t *testing.T) {
	svc, _, _, bookings := newTestService()
	doctorID := uuid.New()

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "11:00", 30, 2)); err != nil {
		t.Fatal(err)
	}
	bookings.set(doctorID, monday, "09:30", 1)

	first, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.GetAvailableSlots(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Slots) != len(second.Slots) {
		t.Fatalf("slot counts differ: %d vs %d", len(first.Slots), len(second.Slots))
	}
	for i := range first.Slots {
		if first.Slots[i] != second.Slots[i] {
			t.Errorf("slot %d differs between reads: %+v vs %+v", i, first.Slots[i], second.Slots[i])
		}
	}
}

func TestHasOpenSlot(t *testing.T) {
	svc, _, _, bookings := newTestService()
	doctorID := uuid.New()

	if err := svc.CreateSchedule(context.Background(), mondaySchedule(doctorID, "09:00", "10:00", 30, 1)); err != nil {
		t.Fatal(err)
	}

	open, err := svc.HasOpenSlot(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatal(err)
	}
	if !open {
		t.Error("expected an open slot")
	}

	bookings.set(doctorID, monday, "09:00", 1)
	bookings.set(doctorID, monday, "09:30", 1)

	open, err = svc.HasOpenSlot(context.Background(), doctorID, monday)
	if err != nil {
		t.Fatal(err)
	}
	if open {
		t.Error("expected no open slot at capacity")
	}
}

func TestUpdateSchedule_NotFound(t *testing.T) {
	svc, _, _, _ := newTestService()

	sched := mondaySchedule(uuid.New(), "09:00", "12:00", 30, 1)
	sched.ID = uuid.New()
	if err := svc.UpdateSchedule(context.Background(), sched); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLeaveCovers(t *testing.T) {
	morning := "morning"
	afternoon := "afternoon"

	full := &DoctorLeave{}
	if !full.Covers("09:00") || !full.Covers("15:00") {
		t.Error("full-day leave should cover every slot")
	}

	am := &DoctorLeave{HalfDay: true, Period: &morning}
	if !am.Covers("11:59") || am.Covers("12:00") {
		t.Error("morning leave should cover slots before noon only")
	}

	pm := &DoctorLeave{HalfDay: true, Period: &afternoon}
	if pm.Covers("11:59") || !pm.Covers("12:00") {
		t.Error("afternoon leave should cover noon onward only")
	}
}
