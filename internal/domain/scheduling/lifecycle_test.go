package scheduling

import (
	"testing"

	"github.com/clinic/clinic/internal/platform/apperr"
)

func TestCanTransition(t *testing.T) {
	for _, to := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		if !CanTransition(StatusScheduled, to) {
			t.Errorf("Scheduled -> %s should be allowed", to)
		}
	}
	for _, from := range []Status{StatusCompleted, StatusCancelled, StatusNoShow} {
		for _, to := range Statuses {
			if CanTransition(from, to) {
				t.Errorf("%s -> %s should be refused", from, to)
			}
		}
	}
	if CanTransition(StatusScheduled, StatusScheduled) {
		t.Error("Scheduled -> Scheduled should be refused")
	}
}

func TestTransition_Conflicts(t *testing.T) {
	a := &Appointment{Status: StatusScheduled}
	if err := a.transition(StatusCancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	err := a.transition(StatusCancelled)
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Fatalf("cancel twice: expected conflict, got %v", err)
	}
	if err.Error() != "appointment is already cancelled" {
		t.Errorf("message = %q", err.Error())
	}
	if err := a.transition(StatusScheduled); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("reopen: expected conflict, got %v", err)
	}
	if a.Status != StatusCancelled {
		t.Errorf("refused transition changed status to %s", a.Status)
	}
}

func TestParseStatus(t *testing.T) {
	got, err := ParseStatus("noshow")
	if err != nil || got != StatusNoShow {
		t.Errorf("ParseStatus(noshow) = %q, %v", got, err)
	}
	if _, err := ParseStatus("Pending"); err == nil {
		t.Error("expected error for unknown status")
	}
}
