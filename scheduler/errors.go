package scheduler

import (
	"errors"
	"fmt"

	"convene/models"
)

var (
	// ErrNoSlotsAvailable means the search finished with zero eligible
	// units. Callers treat this as a normal outcome, not a failure.
	ErrNoSlotsAvailable = errors.New("no slots available")

	// ErrSlotConflict is a CAS loss: another request claimed the unit
	// between selection and commit. Triggers a bounded retry.
	ErrSlotConflict = errors.New("slot already claimed")

	// ErrSlotsExhausted is returned once CAS retries run out.
	ErrSlotsExhausted = errors.New("slots exhausted after retries")

	// ErrSwapConflict means exchanging two bookings would double-book
	// one of the participants elsewhere in their agenda.
	ErrSwapConflict = errors.New("swap would double-book a participant")

	// ErrAgendaExists guards generation against overwriting a live agenda.
	ErrAgendaExists = errors.New("agenda already generated; reset or delete it first")

	ErrEventNotFound   = errors.New("event not found")
	ErrMeetingNotFound = errors.New("meeting not found")
	ErrUnitNotFound    = errors.New("agenda unit not found")
	ErrSelfMeeting     = errors.New("requester and receiver are the same user")
)

// InvalidTransitionError reports a status change not permitted from the
// meeting's current state. Re-applying a terminal status fails loudly too:
// silently succeeding could re-run side effects like slot allocation.
type InvalidTransitionError struct {
	MeetingID string
	From      models.MeetingStatus
	To        models.MeetingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition for meeting %s: %s -> %s", e.MeetingID, e.From, e.To)
}

// QuotaExceededError names which participant is at their accepted-meeting
// limit, so the caller can show a precise message instead of "no slots".
type QuotaExceededError struct {
	UserID string
	Limit  int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("user %s already has %d accepted meetings", e.UserID, e.Limit)
}

// ConsistencyError is an internal invariant violation, e.g. an occupied
// unit pointing at a meeting that is not accepted. Never repaired by
// guessing; always surfaced.
type ConsistencyError struct {
	Detail string
}

func (e *ConsistencyError) Error() string {
	return "agenda inconsistency: " + e.Detail
}

// ConfigError rejects a malformed schedule configuration before any agenda
// units are created.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid schedule config: %s %s", e.Field, e.Reason)
}
