// Package waitlist is the overflow handler: when the availability
// calculator or the walk-in queue has no capacity, patients land here with
// a computed position and are later promoted back into the ledger through
// an explicit confirmation step.
package waitlist

import (
	"time"

	"github.com/google/uuid"
)

// Waitlist entry statuses.
const (
	StatusWaiting   = "waiting"
	StatusNotified  = "notified"
	StatusConfirmed = "confirmed"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// Entry is one overflow record. Priority is a numeric score derived from
// the urgency tier; Position is computed at read time and never persisted,
// so it cannot go stale under concurrent writes.
type Entry struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID      uuid.UUID  `db:"doctor_id" json:"doctor_id"`
	PreferredDate string     `db:"preferred_date" json:"preferred_date"`
	PreferredTime *string    `db:"preferred_time" json:"preferred_time,omitempty"`
	Status        string     `db:"status" json:"status"`
	Priority      int        `db:"priority" json:"priority"`
	Reason        string     `db:"reason" json:"reason"`
	ExpiresAt     *time.Time `db:"expires_at" json:"expires_at,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	Position int `db:"-" json:"position,omitempty"`
}

// IsTerminal reports whether the entry has left the waitlist for good.
func (e *Entry) IsTerminal() bool {
	switch e.Status {
	case StatusConfirmed, StatusExpired, StatusCancelled:
		return true
	}
	return false
}
