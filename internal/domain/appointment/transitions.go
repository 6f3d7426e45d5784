package appointment

// transitions is the ledger state machine. Terminal statuses have no
// outgoing edges; any attempt to leave one is rejected centrally rather
// than at call sites.
var transitions = map[string][]string{
	StatusPending:     {StatusConfirmed, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusConfirmed:   {StatusInProgress, StatusCancelled, StatusNoShow, StatusRescheduled},
	StatusInProgress:  {StatusCompleted, StatusNoShow},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusNoShow:      {},
	StatusRescheduled: {},
}

// ValidTransition reports whether the ledger permits moving from one status
// to another.
func ValidTransition(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidStatus reports whether the status is a known ledger status.
func ValidStatus(status string) bool {
	_, ok := transitions[status]
	return ok
}
