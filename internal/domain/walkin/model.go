// Package walkin runs the same-day walk-in queue: per-doctor ordered
// entries with sequential queue numbers, a consultation state machine, and
// the load-balancing view used to route unassigned patients.
package walkin

import (
	"time"

	"github.com/google/uuid"
)

const (
	dateLayout = "2006-01-02"
)

// Queue entry statuses.
const (
	StatusWaiting        = "waiting"
	StatusCalled         = "called"
	StatusInConsultation = "in_consultation"
	StatusCompleted      = "completed"
	StatusSkipped        = "skipped"
)

// transitions is the queue state machine. Skipping is allowed from any
// active state; completed and skipped are terminal.
var transitions = map[string][]string{
	StatusWaiting:        {StatusCalled, StatusSkipped},
	StatusCalled:         {StatusInConsultation, StatusSkipped},
	StatusInConsultation: {StatusCompleted, StatusSkipped},
	StatusCompleted:      {},
	StatusSkipped:        {},
}

// ValidTransition reports whether the queue permits moving between the two
// statuses.
func ValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// QueueEntry is the ephemeral queue state paired 1:1 with a walk-in
// appointment. QueueNumber is issued at check-in, strictly increasing per
// doctor per day, and never reordered; priority affects only the service
// order computed at read time.
type QueueEntry struct {
	ID                  uuid.UUID  `db:"id" json:"id"`
	AppointmentID       uuid.UUID  `db:"appointment_id" json:"appointment_id"`
	PatientID           uuid.UUID  `db:"patient_id" json:"patient_id"`
	DoctorID            *uuid.UUID `db:"doctor_id" json:"doctor_id,omitempty"`
	Date                string     `db:"date" json:"date"`
	QueueNumber         int        `db:"queue_number" json:"queue_number"`
	Status              string     `db:"status" json:"status"`
	Priority            string     `db:"priority" json:"priority"`
	ChiefComplaint      string     `db:"chief_complaint" json:"chief_complaint"`
	CheckInAt           time.Time  `db:"check_in_at" json:"check_in_at"`
	CalledAt            *time.Time `db:"called_at" json:"called_at,omitempty"`
	ConsultationStartAt *time.Time `db:"consultation_start_at" json:"consultation_start_at,omitempty"`
	ConsultationEndAt   *time.Time `db:"consultation_end_at" json:"consultation_end_at,omitempty"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// IsTerminal reports whether the entry has left the active queue.
func (q *QueueEntry) IsTerminal() bool {
	return q.Status == StatusCompleted || q.Status == StatusSkipped
}

// QueueStatus is the queue board view for one doctor (or the unassigned
// pool): live totals plus entries in service order.
type QueueStatus struct {
	TotalWaiting    int           `json:"total_waiting"`
	TotalInProgress int           `json:"total_in_progress"`
	TotalCompleted  int           `json:"total_completed"`
	Items           []*QueueEntry `json:"items"`
}
