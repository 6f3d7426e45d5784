// Package schedule owns doctor weekly schedules, dated leave exceptions,
// and the availability calculator that derives bookable slots from them.
package schedule

import (
	"time"

	"github.com/google/uuid"
)

// Date and clock layouts used across the scheduling engine. Dates and slot
// times are carried as strings so a slot key compares and groups without
// timezone arithmetic.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// DoctorSchedule is a recurring weekly availability window. DayOfWeek runs
// 0=Sunday through 6=Saturday, matching time.Weekday.
type DoctorSchedule struct {
	ID                  uuid.UUID `db:"id" json:"id"`
	DoctorID            uuid.UUID `db:"doctor_id" json:"doctor_id"`
	DayOfWeek           int       `db:"day_of_week" json:"day_of_week"`
	StartTime           string    `db:"start_time" json:"start_time"`
	EndTime             string    `db:"end_time" json:"end_time"`
	SlotDurationMinutes int       `db:"slot_duration_minutes" json:"slot_duration_minutes"`
	MaxPatients         int       `db:"max_patients" json:"max_patients"`
	ConsultationType    string    `db:"consultation_type" json:"consultation_type"`
	Active              *bool     `db:"active" json:"active,omitempty"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// DoctorLeave is a dated exception that removes slots from a schedule.
// A half-day leave carries Period ("morning" or "afternoon") and removes
// only slots starting in that half.
type DoctorLeave struct {
	ID        uuid.UUID `db:"id" json:"id"`
	DoctorID  uuid.UUID `db:"doctor_id" json:"doctor_id"`
	Date      string    `db:"date" json:"date"`
	LeaveType string    `db:"leave_type" json:"leave_type"`
	HalfDay   bool      `db:"half_day" json:"half_day"`
	Period    *string   `db:"period" json:"period,omitempty"`
	Reason    *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Covers reports whether this leave blocks a slot starting at the given
// clock time. Full-day leaves block everything; half-day leaves block only
// the named half, with noon as the boundary.
func (l *DoctorLeave) Covers(slotStart string) bool {
	if !l.HalfDay {
		return true
	}
	if l.Period == nil {
		return true
	}
	switch *l.Period {
	case "morning":
		return slotStart < "12:00"
	case "afternoon":
		return slotStart >= "12:00"
	default:
		return true
	}
}

// Slot is one availability-calculator result row. CurrentBookings is counted
// live at read time, never cached.
type Slot struct {
	Time             string `json:"time"`
	Available        bool   `json:"available"`
	CurrentBookings  int    `json:"current_bookings"`
	MaxBookings      int    `json:"max_bookings"`
	ConsultationType string `json:"consultation_type"`
}

// DayAvailability is the full calculator response for one doctor and date.
type DayAvailability struct {
	DoctorID uuid.UUID `json:"doctor_id"`
	Date     string    `json:"date"`
	Slots    []Slot    `json:"slots"`
}
