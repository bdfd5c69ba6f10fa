package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"convene/models"

	"github.com/google/uuid"
)

// casRetries bounds how often automatic acceptance re-runs slot selection
// after losing a claim race before giving up with ErrSlotsExhausted.
const casRetries = 3

// Engine drives the meeting lifecycle against a Store. It holds no state
// of its own; correctness under concurrent callers comes from the store's
// CAS and transaction guarantees.
type Engine struct {
	store  Store
	notify Notifier
}

func New(store Store, notifier Notifier) *Engine {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &Engine{store: store, notify: notifier}
}

// minutesOfDay converts a wall-clock instant to minutes since midnight,
// the unit the agenda grid works in.
func minutesOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// CreateMeeting opens a pending meeting request between two attendees.
func (e *Engine) CreateMeeting(ctx context.Context, eventID, requesterID, receiverID string) (*models.Meeting, error) {
	if requesterID == receiverID {
		return nil, ErrSelfMeeting
	}
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	m := &models.Meeting{
		ID:           uuid.NewString(),
		EventID:      eventID,
		RequesterID:  requesterID,
		ReceiverID:   receiverID,
		Participants: []string{requesterID, receiverID},
		Status:       models.MeetingStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.CreateMeeting(ctx, m); err != nil {
		return nil, fmt.Errorf("create meeting: %w", err)
	}

	e.notify.Notify(ctx, receiverID, "New meeting request", "You have a new meeting request.")
	return m, nil
}

// occupiedRanges gathers the [start, end) commitments of the given users
// from their accepted meetings, minus any excluded meeting IDs. A slot is
// only offerable if it clears every range here: double-booking either
// participant is forbidden no matter which meeting caused it.
func (e *Engine) occupiedRanges(ctx context.Context, eventID string, userIDs []string, exclude ...string) ([][2]int, error) {
	accepted, err := e.store.AcceptedForUsers(ctx, eventID, userIDs)
	if err != nil {
		return nil, err
	}

	var ranges [][2]int
	for _, m := range accepted {
		skip := false
		for _, ex := range exclude {
			if m.ID == ex {
				skip = true
				break
			}
		}
		if skip {
			continue
		}
		start, end, err := ParseRange(m.TimeSlot)
		if err != nil {
			return nil, &ConsistencyError{Detail: fmt.Sprintf("accepted meeting %s has malformed timeSlot %q", m.ID, m.TimeSlot)}
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges, nil
}

// checkQuota fails with QuotaExceededError naming the first participant at
// their accepted-meeting limit. Runs before any slot search so the caller
// gets a precise error instead of a generic "no slots".
func (e *Engine) checkQuota(ctx context.Context, event *models.Event, userIDs ...string) error {
	limit := event.Schedule.MaxMeetingsPerUser
	if limit <= 0 {
		return nil
	}
	for _, id := range userIDs {
		n, err := e.store.CountAccepted(ctx, event.EventID, id)
		if err != nil {
			return err
		}
		if n >= limit {
			return &QuotaExceededError{UserID: id, Limit: limit}
		}
	}
	return nil
}

// eligibleUnits runs the slot search: free units, strictly in the future,
// outside break blocks, clear of both participants' commitments. Break
// blocks are re-checked here even though generation excludes them, because
// the config can change between generation and booking. Order is the
// store's stable (slot, table) order, so the first element is the earliest
// candidate.
func (e *Engine) eligibleUnits(ctx context.Context, event *models.Event, m *models.Meeting, nowMins int, exclude ...string) ([]models.AgendaUnit, error) {
	occupied, err := e.occupiedRanges(ctx, event.EventID, m.Participants, exclude...)
	if err != nil {
		return nil, err
	}

	units, err := e.store.AgendaUnits(ctx, event.EventID)
	if err != nil {
		return nil, err
	}

	var out []models.AgendaUnit
	for _, u := range units {
		if !u.Available {
			continue
		}
		start, err := ParseClock(u.StartTime)
		if err != nil {
			return nil, &ConsistencyError{Detail: fmt.Sprintf("unit %s has malformed startTime %q", u.ID, u.StartTime)}
		}
		if start <= nowMins {
			continue
		}
		end := start + event.Schedule.MeetingDuration
		if inBreak(event.Schedule, start, end) {
			continue
		}
		conflict := false
		for _, r := range occupied {
			if Overlaps(start, end, r[0], r[1]) {
				conflict = true
				break
			}
		}
		if conflict {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

// ListAvailableSlots returns every unit bookable for the meeting's pair,
// grouped by time range for the slot picker. An empty result is a normal
// outcome, not an error.
func (e *Engine) ListAvailableSlots(ctx context.Context, meetingID string, now time.Time) ([]models.SlotGroup, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	event, err := e.store.GetEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}

	var exclude []string
	switch m.Status {
	case models.MeetingStatusPending:
		if err := e.checkQuota(ctx, event, m.RequesterID, m.ReceiverID); err != nil {
			return nil, err
		}
	case models.MeetingStatusAccepted:
		// Reschedule picker: the meeting's own slot does not block it.
		exclude = append(exclude, m.ID)
	default:
		return nil, &InvalidTransitionError{MeetingID: m.ID, From: m.Status, To: models.MeetingStatusAccepted}
	}

	units, err := e.eligibleUnits(ctx, event, m, minutesOfDay(now), exclude...)
	if err != nil {
		return nil, err
	}

	var groups []models.SlotGroup
	for _, u := range units {
		if n := len(groups); n > 0 && groups[n-1].StartTime == u.StartTime {
			groups[n-1].Units = append(groups[n-1].Units, u)
			continue
		}
		groups = append(groups, models.SlotGroup{StartTime: u.StartTime, EndTime: u.EndTime, Units: []models.AgendaUnit{u}})
	}
	return groups, nil
}

// FindFirstAvailableSlot returns the earliest bookable unit for the
// meeting, or ErrNoSlotsAvailable.
func (e *Engine) FindFirstAvailableSlot(ctx context.Context, meetingID string, now time.Time) (*models.AgendaUnit, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	event, err := e.store.GetEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}
	if err := e.checkQuota(ctx, event, m.RequesterID, m.ReceiverID); err != nil {
		return nil, err
	}
	units, err := e.eligibleUnits(ctx, event, m, minutesOfDay(now))
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, ErrNoSlotsAvailable
	}
	return &units[0], nil
}

// AcceptMeeting commits a pending meeting to an agenda unit. With a unit ID
// the chosen unit is validated and claimed once; a CAS loss surfaces as
// ErrSlotConflict so the caller can pick again. With an empty unit ID the
// engine books the first eligible unit itself, re-running the search after
// each lost race up to casRetries times before reporting ErrSlotsExhausted.
func (e *Engine) AcceptMeeting(ctx context.Context, meetingID, unitID string, now time.Time) (*models.Meeting, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingStatusPending {
		return nil, &InvalidTransitionError{MeetingID: m.ID, From: m.Status, To: models.MeetingStatusAccepted}
	}
	event, err := e.store.GetEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}
	if err := e.checkQuota(ctx, event, m.RequesterID, m.ReceiverID); err != nil {
		return nil, err
	}

	nowMins := minutesOfDay(now)

	if unitID != "" {
		unit, err := e.store.GetUnit(ctx, unitID)
		if err != nil {
			return nil, err
		}
		if err := e.validateUnit(ctx, event, m, unit, nowMins); err != nil {
			return nil, err
		}
		if err := e.store.CommitAccept(ctx, m.ID, unit); err != nil {
			return nil, err
		}
		return e.finishAccept(ctx, m, unit)
	}

	// Automatic mode: first eligible unit, retried on claim races.
	for attempt := 0; attempt < casRetries; attempt++ {
		units, err := e.eligibleUnits(ctx, event, m, nowMins)
		if err != nil {
			return nil, err
		}
		if len(units) == 0 {
			return nil, ErrNoSlotsAvailable
		}
		unit := units[0]
		err = e.store.CommitAccept(ctx, m.ID, &unit)
		if errors.Is(err, ErrSlotConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return e.finishAccept(ctx, m, &unit)
	}
	return nil, ErrSlotsExhausted
}

// validateUnit guards a manually chosen unit with the same rules the
// search applies, so a stale picker cannot book the past, a break, or a
// double-booking.
func (e *Engine) validateUnit(ctx context.Context, event *models.Event, m *models.Meeting, unit *models.AgendaUnit, nowMins int, exclude ...string) error {
	if unit.EventID != event.EventID {
		return &ConsistencyError{Detail: fmt.Sprintf("unit %s belongs to event %s, not %s", unit.ID, unit.EventID, event.EventID)}
	}
	if !unit.Available {
		return ErrSlotConflict
	}
	start, err := ParseClock(unit.StartTime)
	if err != nil {
		return &ConsistencyError{Detail: fmt.Sprintf("unit %s has malformed startTime %q", unit.ID, unit.StartTime)}
	}
	if start <= nowMins {
		return fmt.Errorf("%w: slot %s already started", ErrSlotConflict, unit.StartTime)
	}
	end := start + event.Schedule.MeetingDuration
	if inBreak(event.Schedule, start, end) {
		return fmt.Errorf("%w: slot %s falls in a break", ErrSlotConflict, unit.StartTime)
	}
	occupied, err := e.occupiedRanges(ctx, event.EventID, m.Participants, exclude...)
	if err != nil {
		return err
	}
	for _, r := range occupied {
		if Overlaps(start, end, r[0], r[1]) {
			return fmt.Errorf("%w: participant busy at %s", ErrSlotConflict, unit.StartTime)
		}
	}
	return nil
}

func (e *Engine) finishAccept(ctx context.Context, m *models.Meeting, unit *models.AgendaUnit) (*models.Meeting, error) {
	m.Status = models.MeetingStatusAccepted
	m.TimeSlot = unit.Range()
	m.TableAssigned = TableLabel(unit.TableNumber)
	m.UnitID = unit.ID
	m.UpdatedAt = time.Now().UTC()

	msg := fmt.Sprintf("Meeting confirmed at table %s, %s.", m.TableAssigned, m.TimeSlot)
	e.notify.Notify(ctx, m.RequesterID, "Meeting accepted", msg)
	e.notify.Notify(ctx, m.ReceiverID, "Meeting accepted", msg)
	return m, nil
}

// RejectMeeting declines a pending request. No ledger effect: no unit was
// ever held for it.
func (e *Engine) RejectMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingStatusPending {
		return nil, &InvalidTransitionError{MeetingID: m.ID, From: m.Status, To: models.MeetingStatusRejected}
	}
	if err := e.store.UpdateMeetingStatus(ctx, m.ID, models.MeetingStatusRejected); err != nil {
		return nil, err
	}
	m.Status = models.MeetingStatusRejected

	e.notify.Notify(ctx, m.RequesterID, "Meeting declined", "Your meeting request was declined.")
	e.notify.Notify(ctx, m.ReceiverID, "Meeting declined", "You declined a meeting request.")
	return m, nil
}

// CancelMeeting cancels a pending or accepted meeting. For accepted
// meetings the bound unit is released in the same transaction, so the slot
// becomes bookable again the moment the cancellation is visible.
func (e *Engine) CancelMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}

	if m.Status.Terminal() {
		return nil, &InvalidTransitionError{MeetingID: m.ID, From: m.Status, To: models.MeetingStatusCancelled}
	}

	switch m.Status {
	case models.MeetingStatusPending:
		if err := e.store.UpdateMeetingStatus(ctx, m.ID, models.MeetingStatusCancelled); err != nil {
			return nil, err
		}
	case models.MeetingStatusAccepted:
		if m.UnitID == "" {
			return nil, &ConsistencyError{Detail: fmt.Sprintf("accepted meeting %s has no unit reference", m.ID)}
		}
		if err := e.store.CommitRelease(ctx, m.ID, m.UnitID, models.MeetingStatusCancelled); err != nil {
			return nil, err
		}
	}

	m.Status = models.MeetingStatusCancelled
	m.TimeSlot = ""
	m.TableAssigned = ""
	m.UnitID = ""

	e.notify.Notify(ctx, m.RequesterID, "Meeting cancelled", "Your meeting has been cancelled.")
	e.notify.Notify(ctx, m.ReceiverID, "Meeting cancelled", "Your meeting has been cancelled.")
	return m, nil
}

// RescheduleMeeting moves an accepted meeting to a new unit. Release of
// the old unit and claim of the new one ride one transaction: a failure
// partway leaves the original booking intact.
func (e *Engine) RescheduleMeeting(ctx context.Context, meetingID, newUnitID string, now time.Time) (*models.Meeting, error) {
	m, err := e.store.GetMeeting(ctx, meetingID)
	if err != nil {
		return nil, err
	}
	if m.Status != models.MeetingStatusAccepted {
		return nil, &InvalidTransitionError{MeetingID: m.ID, From: m.Status, To: models.MeetingStatusAccepted}
	}
	if m.UnitID == "" {
		return nil, &ConsistencyError{Detail: fmt.Sprintf("accepted meeting %s has no unit reference", m.ID)}
	}
	if newUnitID == m.UnitID {
		return m, nil
	}
	event, err := e.store.GetEvent(ctx, m.EventID)
	if err != nil {
		return nil, err
	}
	unit, err := e.store.GetUnit(ctx, newUnitID)
	if err != nil {
		return nil, err
	}
	// The meeting's own slot does not count against the new one.
	if err := e.validateUnit(ctx, event, m, unit, minutesOfDay(now), m.ID); err != nil {
		return nil, err
	}
	if err := e.store.CommitReschedule(ctx, m.ID, m.UnitID, unit); err != nil {
		return nil, err
	}

	m.TimeSlot = unit.Range()
	m.TableAssigned = TableLabel(unit.TableNumber)
	m.UnitID = unit.ID
	m.UpdatedAt = time.Now().UTC()

	msg := fmt.Sprintf("Meeting moved to table %s, %s.", m.TableAssigned, m.TimeSlot)
	e.notify.Notify(ctx, m.RequesterID, "Meeting rescheduled", msg)
	e.notify.Notify(ctx, m.ReceiverID, "Meeting rescheduled", msg)
	return m, nil
}

// SwapMeetings exchanges the (table, slot) of two accepted meetings in one
// transaction across both meetings and both units. Neither slot needs
// break or capacity re-validation (both were valid bookings already), but
// the exchange must not collide with either participant's other meetings.
func (e *Engine) SwapMeetings(ctx context.Context, meetingIDA, meetingIDB string) error {
	if meetingIDA == meetingIDB {
		return fmt.Errorf("%w: cannot swap a meeting with itself", ErrSwapConflict)
	}
	a, err := e.store.GetMeeting(ctx, meetingIDA)
	if err != nil {
		return err
	}
	b, err := e.store.GetMeeting(ctx, meetingIDB)
	if err != nil {
		return err
	}
	if a.Status != models.MeetingStatusAccepted {
		return &InvalidTransitionError{MeetingID: a.ID, From: a.Status, To: models.MeetingStatusAccepted}
	}
	if b.Status != models.MeetingStatusAccepted {
		return &InvalidTransitionError{MeetingID: b.ID, From: b.Status, To: models.MeetingStatusAccepted}
	}
	if a.EventID != b.EventID {
		return fmt.Errorf("%w: meetings belong to different events", ErrSwapConflict)
	}
	if a.UnitID == "" || b.UnitID == "" {
		return &ConsistencyError{Detail: "accepted meeting missing unit reference"}
	}

	// Each meeting inherits the other's range; check it against the
	// participants' remaining commitments (minus the two being swapped).
	if err := e.swapCollides(ctx, a, b.TimeSlot, a.ID, b.ID); err != nil {
		return err
	}
	if err := e.swapCollides(ctx, b, a.TimeSlot, a.ID, b.ID); err != nil {
		return err
	}

	if err := e.store.CommitSwap(ctx, a, b); err != nil {
		return err
	}

	for _, userID := range []string{a.RequesterID, a.ReceiverID, b.RequesterID, b.ReceiverID} {
		e.notify.Notify(ctx, userID, "Meeting moved", "One of your meetings was moved to a different slot.")
	}
	return nil
}

func (e *Engine) swapCollides(ctx context.Context, m *models.Meeting, newRange string, excludeA, excludeB string) error {
	start, end, err := ParseRange(newRange)
	if err != nil {
		return &ConsistencyError{Detail: fmt.Sprintf("meeting range %q malformed", newRange)}
	}
	occupied, err := e.occupiedRanges(ctx, m.EventID, m.Participants, excludeA, excludeB)
	if err != nil {
		return err
	}
	for _, r := range occupied {
		if Overlaps(start, end, r[0], r[1]) {
			return fmt.Errorf("%w: %s is busy during %s", ErrSwapConflict, m.ID, newRange)
		}
	}
	return nil
}

// GenerateAgenda builds and persists the event's full agenda grid.
// Refuses to run on a non-empty agenda so a stray click cannot orphan
// existing bookings; reset or delete first.
func (e *Engine) GenerateAgenda(ctx context.Context, eventID string) (int, error) {
	event, err := e.store.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	existing, err := e.store.AgendaUnits(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		return 0, ErrAgendaExists
	}
	units, err := BuildGrid(eventID, event.Schedule)
	if err != nil {
		return 0, err
	}
	if len(units) == 0 {
		return 0, nil
	}
	return e.store.InsertUnits(ctx, units)
}

// ResetAgenda frees every unit of the event without deleting any.
func (e *Engine) ResetAgenda(ctx context.Context, eventID string) (int, error) {
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return 0, err
	}
	return e.store.ResetAgenda(ctx, eventID)
}

// DeleteAgenda removes every unit and cascades to the event's meetings.
func (e *Engine) DeleteAgenda(ctx context.Context, eventID string) (int, int, error) {
	if _, err := e.store.GetEvent(ctx, eventID); err != nil {
		return 0, 0, err
	}
	return e.store.DeleteAgenda(ctx, eventID)
}
