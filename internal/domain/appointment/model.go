// Package appointment is the booking ledger: it owns the durable appointment
// record, its status state machine, slot-capacity enforcement at write time,
// and the per-transition audit log.
package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses.
const (
	StatusPending     = "pending"
	StatusConfirmed   = "confirmed"
	StatusInProgress  = "in-progress"
	StatusCompleted   = "completed"
	StatusCancelled   = "cancelled"
	StatusNoShow      = "no-show"
	StatusRescheduled = "rescheduled"
)

// Appointment types.
const (
	TypeScheduled = "scheduled"
	TypeWalkIn    = "walk_in"
)

// Priority tiers, lowest to highest urgency.
const (
	PriorityRoutine   = "routine"
	PriorityUrgent    = "urgent"
	PriorityEmergency = "emergency"
)

// ValidPriority reports whether the tier is one of the known three.
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityRoutine, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

// PriorityScore maps a priority tier to its numeric rank for ordering.
// Unknown tiers rank as routine.
func PriorityScore(priority string) int {
	switch priority {
	case PriorityEmergency:
		return 100
	case PriorityUrgent:
		return 50
	default:
		return 0
	}
}

// Appointment is the durable booking record. DoctorID and StartTime are nil
// for walk-ins not yet routed to a doctor. Records are never deleted; they
// end in a terminal status and stay queryable for reporting.
type Appointment struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	AppointmentNumber string     `db:"appointment_number" json:"appointment_number"`
	PatientID         uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID          *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Type              string     `db:"type" json:"type"`
	ConsultationType  string     `db:"consultation_type" json:"consultation_type"`
	Date              string     `db:"date" json:"date"`
	StartTime         *string    `db:"start_time" json:"start_time,omitempty"`
	EndTime           *string    `db:"end_time" json:"end_time,omitempty"`
	Status            string     `db:"status" json:"status"`
	Priority          string     `db:"priority" json:"priority"`
	Reason            string     `db:"reason" json:"reason"`
	Notes             *string    `db:"notes" json:"notes,omitempty"`
	Diagnosis         *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	Prescription      *string    `db:"prescription" json:"prescription,omitempty"`
	CancelledBy       *string    `db:"cancelled_by" json:"cancelled_by,omitempty"`
	CancelledAt       *time.Time `db:"cancelled_at" json:"cancelled_at,omitempty"`
	CancelReason      *string    `db:"cancel_reason" json:"cancel_reason,omitempty"`
	RescheduledFrom   *uuid.UUID `db:"rescheduled_from" json:"rescheduled_from,omitempty"`
	RescheduleCount   int        `db:"reschedule_count" json:"reschedule_count"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the appointment has reached a final status.
func (a *Appointment) IsTerminal() bool {
	switch a.Status {
	case StatusCompleted, StatusCancelled, StatusNoShow, StatusRescheduled:
		return true
	}
	return false
}

// StatusLog is one row of the per-appointment transition audit trail.
type StatusLog struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	FromStatus    string    `db:"from_status" json:"from_status"`
	ToStatus      string    `db:"to_status" json:"to_status"`
	ChangedBy     *string   `db:"changed_by" json:"changed_by,omitempty"`
	Reason        *string   `db:"reason" json:"reason,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes ledger outcomes over an optional date range and doctor.
type Stats struct {
	Total            int     `json:"total"`
	Pending          int     `json:"pending"`
	Confirmed        int     `json:"confirmed"`
	Completed        int     `json:"completed"`
	Cancelled        int     `json:"cancelled"`
	NoShow           int     `json:"no_show"`
	CompletionRate   float64 `json:"completion_rate"`
	CancellationRate float64 `json:"cancellation_rate"`
	NoShowRate       float64 `json:"no_show_rate"`
}
