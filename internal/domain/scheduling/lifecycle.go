package scheduling

import (
	"fmt"
	"strings"

	"github.com/clinic/clinic/internal/platform/apperr"
)

// transitions lists the states reachable from each state. Every state other
// than Scheduled is terminal.
var transitions = map[Status][]Status{
	StatusScheduled: {StatusCompleted, StatusCancelled, StatusNoShow},
}

func CanTransition(from, to Status) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// transition moves a to status or returns a Conflict naming the refused move.
func (a *Appointment) transition(to Status) error {
	if a.Status == to {
		return apperr.Conflict(fmt.Sprintf("appointment is already %s", strings.ToLower(string(to))))
	}
	if !CanTransition(a.Status, to) {
		return apperr.Conflict(fmt.Sprintf("cannot change appointment status from %s to %s", a.Status, to))
	}
	a.Status = to
	return nil
}
