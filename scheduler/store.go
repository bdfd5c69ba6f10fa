package scheduler

import (
	"context"

	"convene/models"
)

// Store is the persistence boundary of the scheduling engine. Compound
// Commit* operations are all-or-nothing: either every record they name is
// updated or none is. CommitAccept and CommitReschedule claim units with
// compare-and-set semantics on the Available flag and return
// ErrSlotConflict when another writer got there first.
type Store interface {
	GetEvent(ctx context.Context, eventID string) (*models.Event, error)

	GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error)
	CreateMeeting(ctx context.Context, m *models.Meeting) error
	// UpdateMeetingStatus covers transitions with no ledger effect
	// (reject, cancel of a pending meeting).
	UpdateMeetingStatus(ctx context.Context, meetingID string, status models.MeetingStatus) error
	// AcceptedForUsers returns the accepted meetings of an event whose
	// participants intersect userIDs.
	AcceptedForUsers(ctx context.Context, eventID string, userIDs []string) ([]models.Meeting, error)
	CountAccepted(ctx context.Context, eventID, userID string) (int, error)
	MeetingsByEvent(ctx context.Context, eventID string) ([]models.Meeting, error)

	// AgendaUnits returns every unit of the event in stable
	// (startTime, tableNumber) order.
	AgendaUnits(ctx context.Context, eventID string) ([]models.AgendaUnit, error)
	GetUnit(ctx context.Context, unitID string) (*models.AgendaUnit, error)
	InsertUnits(ctx context.Context, units []models.AgendaUnit) (int, error)
	// ResetAgenda frees every unit without deleting any.
	ResetAgenda(ctx context.Context, eventID string) (int, error)
	// DeleteAgenda removes all units and cascades: every meeting of the
	// event is invalidated (deleted) with the agenda it referenced.
	DeleteAgenda(ctx context.Context, eventID string) (unitsDeleted, meetingsDeleted int, err error)

	// CommitAccept marks the unit occupied by the meeting (CAS on
	// Available) and flips the meeting to accepted with the unit's slot
	// and table, atomically.
	CommitAccept(ctx context.Context, meetingID string, unit *models.AgendaUnit) error
	// CommitRelease frees the meeting's unit and moves the meeting to
	// status (cancelled), atomically.
	CommitRelease(ctx context.Context, meetingID, unitID string, status models.MeetingStatus) error
	// CommitReschedule releases oldUnit and claims newUnit (CAS) for an
	// accepted meeting, atomically. A CAS loss leaves the old binding
	// untouched.
	CommitReschedule(ctx context.Context, meetingID string, oldUnitID string, newUnit *models.AgendaUnit) error
	// CommitSwap exchanges the unit bindings of two accepted meetings
	// across all four records, atomically.
	CommitSwap(ctx context.Context, a, b *models.Meeting) error
}

// Notifier delivers best-effort notifications to participants. Failures
// are the sink's problem; the engine never blocks or fails on delivery.
type Notifier interface {
	Notify(ctx context.Context, userID, title, message string)
}

// NopNotifier discards everything; handy for tests and batch tooling.
type NopNotifier struct{}

func (NopNotifier) Notify(ctx context.Context, userID, title, message string) {}
