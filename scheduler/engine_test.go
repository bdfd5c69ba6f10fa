package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"convene/models"
)

type notifyRecord struct {
	UserID string
	Title  string
}

// recordingNotifier captures notifications for assertions; safe for
// concurrent use like the real emitter.
type recordingNotifier struct {
	mu      sync.Mutex
	records []notifyRecord
}

func (r *recordingNotifier) Notify(ctx context.Context, userID, title, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, notifyRecord{UserID: userID, Title: title})
}

func (r *recordingNotifier) countFor(userID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.UserID == userID {
			n++
		}
	}
	return n
}

// beforeHours is safely before any slot of the test event starts.
var beforeHours = time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg models.ScheduleConfig) (*Engine, *MemStore, *recordingNotifier) {
	t.Helper()
	store := NewMemStore()
	store.PutEvent(models.Event{EventID: "ev1", Title: "Networking Night", Schedule: cfg})
	notifier := &recordingNotifier{}
	eng := New(store, notifier)
	if _, err := eng.GenerateAgenda(context.Background(), "ev1"); err != nil {
		t.Fatalf("generate agenda: %v", err)
	}
	return eng, store, notifier
}

func mustCreate(t *testing.T, eng *Engine, requester, receiver string) *models.Meeting {
	t.Helper()
	m, err := eng.CreateMeeting(context.Background(), "ev1", requester, receiver)
	if err != nil {
		t.Fatalf("create meeting %s-%s: %v", requester, receiver, err)
	}
	return m
}

func mustAccept(t *testing.T, eng *Engine, meetingID, unitID string) *models.Meeting {
	t.Helper()
	m, err := eng.AcceptMeeting(context.Background(), meetingID, unitID, beforeHours)
	if err != nil {
		t.Fatalf("accept meeting %s: %v", meetingID, err)
	}
	return m
}

func unitByID(t *testing.T, store *MemStore, unitID string) models.AgendaUnit {
	t.Helper()
	u, err := store.GetUnit(context.Background(), unitID)
	if err != nil {
		t.Fatalf("get unit %s: %v", unitID, err)
	}
	return *u
}

// checkLedger verifies the bidirectional meeting/unit invariant: every
// occupied unit points at an accepted meeting bound to it, and every
// accepted meeting owns exactly one unit.
func checkLedger(t *testing.T, store *MemStore) {
	t.Helper()
	ctx := context.Background()
	units, _ := store.AgendaUnits(ctx, "ev1")
	meetings, _ := store.MeetingsByEvent(ctx, "ev1")

	owned := make(map[string]int)
	for _, u := range units {
		if u.Available {
			if u.MeetingID != "" {
				t.Errorf("free unit %s still references meeting %s", u.ID, u.MeetingID)
			}
			continue
		}
		m, err := store.GetMeeting(ctx, u.MeetingID)
		if err != nil {
			t.Errorf("occupied unit %s references missing meeting %s", u.ID, u.MeetingID)
			continue
		}
		if m.Status != models.MeetingStatusAccepted {
			t.Errorf("occupied unit %s references %s meeting %s", u.ID, m.Status, m.ID)
		}
		if m.UnitID != u.ID {
			t.Errorf("unit %s and meeting %s disagree on binding", u.ID, m.ID)
		}
		if m.TimeSlot != u.Range() || m.TableAssigned != TableLabel(u.TableNumber) {
			t.Errorf("meeting %s denormalized slot/table out of sync with unit %s", m.ID, u.ID)
		}
		owned[u.MeetingID]++
	}
	for _, m := range meetings {
		if m.Status == models.MeetingStatusAccepted && owned[m.ID] != 1 {
			t.Errorf("accepted meeting %s owns %d units, want 1", m.ID, owned[m.ID])
		}
	}
}

func TestCreateMeeting(t *testing.T) {
	eng, _, notifier := newTestEngine(t, baseConfig())

	t.Run("rejects meeting with yourself", func(t *testing.T) {
		if _, err := eng.CreateMeeting(context.Background(), "ev1", "alice", "alice"); !errors.Is(err, ErrSelfMeeting) {
			t.Errorf("expected ErrSelfMeeting, got %v", err)
		}
	})

	t.Run("rejects unknown event", func(t *testing.T) {
		if _, err := eng.CreateMeeting(context.Background(), "nope", "alice", "bob"); !errors.Is(err, ErrEventNotFound) {
			t.Errorf("expected ErrEventNotFound, got %v", err)
		}
	})

	t.Run("creates pending request and notifies receiver", func(t *testing.T) {
		m := mustCreate(t, eng, "alice", "bob")
		if m.Status != models.MeetingStatusPending {
			t.Errorf("status = %s, want pending", m.Status)
		}
		if len(m.Participants) != 2 || m.Participants[0] != "alice" || m.Participants[1] != "bob" {
			t.Errorf("participants = %v", m.Participants)
		}
		if m.TimeSlot != "" || m.TableAssigned != "" || m.UnitID != "" {
			t.Error("pending meeting must not carry slot fields")
		}
		if notifier.countFor("bob") != 1 {
			t.Errorf("receiver notified %d times, want 1", notifier.countFor("bob"))
		}
	})
}

func TestAcceptMeeting(t *testing.T) {
	t.Run("automatic mode books the earliest unit", func(t *testing.T) {
		eng, store, notifier := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")

		got := mustAccept(t, eng, m.ID, "")
		if got.Status != models.MeetingStatusAccepted {
			t.Fatalf("status = %s, want accepted", got.Status)
		}
		if got.TimeSlot != "09:00 - 09:20" || got.TableAssigned != "1" {
			t.Errorf("booked (%s, table %s), want earliest slot on table 1", got.TimeSlot, got.TableAssigned)
		}
		u := unitByID(t, store, got.UnitID)
		if u.Available || u.MeetingID != got.ID {
			t.Errorf("unit not bound: available=%v meetingId=%s", u.Available, u.MeetingID)
		}
		if notifier.countFor("alice") == 0 || notifier.countFor("bob") < 2 {
			t.Error("both participants should be notified of acceptance")
		}
		checkLedger(t, store)
	})

	t.Run("explicit unit is honored", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		units, _ := store.AgendaUnits(context.Background(), "ev1")
		want := units[3] // 09:25, table 2

		got := mustAccept(t, eng, m.ID, want.ID)
		if got.UnitID != want.ID || got.TimeSlot != "09:25 - 09:45" || got.TableAssigned != "2" {
			t.Errorf("booked (%s, table %s, unit %s)", got.TimeSlot, got.TableAssigned, got.UnitID)
		}
		checkLedger(t, store)
	})

	t.Run("re-accepting fails loudly with no side effect", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		mustAccept(t, eng, m.ID, "")

		var invalid *InvalidTransitionError
		if _, err := eng.AcceptMeeting(context.Background(), m.ID, "", beforeHours); !errors.As(err, &invalid) {
			t.Fatalf("expected InvalidTransitionError, got %v", err)
		}
		units, _ := store.AgendaUnits(context.Background(), "ev1")
		occupied := 0
		for _, u := range units {
			if !u.Available {
				occupied++
			}
		}
		if occupied != 1 {
			t.Errorf("%d units occupied after double accept, want 1", occupied)
		}
	})

	t.Run("occupied explicit unit returns SlotConflict", func(t *testing.T) {
		eng, _, _ := newTestEngine(t, baseConfig())
		m1 := mustCreate(t, eng, "alice", "bob")
		taken := mustAccept(t, eng, m1.ID, "")

		m2 := mustCreate(t, eng, "carol", "dave")
		if _, err := eng.AcceptMeeting(context.Background(), m2.ID, taken.UnitID, beforeHours); !errors.Is(err, ErrSlotConflict) {
			t.Errorf("expected ErrSlotConflict, got %v", err)
		}
	})

	t.Run("slots already started are not offerable", func(t *testing.T) {
		eng, _, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")

		// 09:10: the 09:00 slot has started; only 09:25 remains.
		midEvent := time.Date(2026, 9, 1, 9, 10, 0, 0, time.UTC)
		got, err := eng.AcceptMeeting(context.Background(), m.ID, "", midEvent)
		if err != nil {
			t.Fatalf("accept: %v", err)
		}
		if got.TimeSlot != "09:25 - 09:45" {
			t.Errorf("booked %s, want 09:25 - 09:45", got.TimeSlot)
		}
	})
}

func TestQuotaEnforcement(t *testing.T) {
	cfg := baseConfig()
	cfg.MaxMeetingsPerUser = 1
	eng, _, _ := newTestEngine(t, cfg)

	m1 := mustCreate(t, eng, "alice", "bob")
	mustAccept(t, eng, m1.ID, "")

	// Alice is at her limit; the error must name her and fire before any
	// slot search (there are still free units).
	m2 := mustCreate(t, eng, "alice", "carol")
	var quota *QuotaExceededError
	if _, err := eng.AcceptMeeting(context.Background(), m2.ID, "", beforeHours); !errors.As(err, &quota) {
		t.Fatalf("expected QuotaExceededError, got %v", err)
	}
	if quota.UserID != "alice" || quota.Limit != 1 {
		t.Errorf("quota error = %+v, want alice at limit 1", quota)
	}

	// The listing path enforces the same limit.
	if _, err := eng.ListAvailableSlots(context.Background(), m2.ID, beforeHours); !errors.As(err, &quota) {
		t.Errorf("ListAvailableSlots: expected QuotaExceededError, got %v", err)
	}
}

func TestNoDoubleBooking(t *testing.T) {
	eng, store, _ := newTestEngine(t, baseConfig())

	m1 := mustCreate(t, eng, "alice", "bob")
	first := mustAccept(t, eng, m1.ID, "")
	if first.TimeSlot != "09:00 - 09:20" {
		t.Fatalf("first booking at %s", first.TimeSlot)
	}

	// Alice is busy 09:00-09:20; her next meeting must skip to 09:25 even
	// though table 2 is free at 09:00.
	m2 := mustCreate(t, eng, "alice", "carol")
	second := mustAccept(t, eng, m2.ID, "")
	if second.TimeSlot != "09:25 - 09:45" {
		t.Errorf("second booking at %s, want 09:25 - 09:45", second.TimeSlot)
	}

	// A disjoint pair may still take 09:00 on the other table.
	m3 := mustCreate(t, eng, "dave", "erin")
	third := mustAccept(t, eng, m3.ID, "")
	if third.TimeSlot != "09:00 - 09:20" || third.TableAssigned != "2" {
		t.Errorf("third booking (%s, table %s), want 09:00 on table 2", third.TimeSlot, third.TableAssigned)
	}
	checkLedger(t, store)
}

func TestNoSlotsAvailable(t *testing.T) {
	cfg := baseConfig()
	cfg.NumTables = 1
	eng, _, _ := newTestEngine(t, cfg)

	m1 := mustCreate(t, eng, "a", "b")
	mustAccept(t, eng, m1.ID, "")
	m2 := mustCreate(t, eng, "c", "d")
	mustAccept(t, eng, m2.ID, "")

	m3 := mustCreate(t, eng, "e", "f")
	if _, err := eng.AcceptMeeting(context.Background(), m3.ID, "", beforeHours); !errors.Is(err, ErrNoSlotsAvailable) {
		t.Errorf("expected ErrNoSlotsAvailable, got %v", err)
	}
	if _, err := eng.FindFirstAvailableSlot(context.Background(), m3.ID, beforeHours); !errors.Is(err, ErrNoSlotsAvailable) {
		t.Errorf("FindFirstAvailableSlot: expected ErrNoSlotsAvailable, got %v", err)
	}
}

func TestConcurrentAcceptLastUnit(t *testing.T) {
	cfg := baseConfig()
	cfg.NumTables = 1
	cfg.EndTime = "09:20" // single unit
	eng, store, _ := newTestEngine(t, cfg)

	m1 := mustCreate(t, eng, "a", "b")
	m2 := mustCreate(t, eng, "c", "d")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{m1.ID, m2.ID} {
		wg.Add(1)
		go func(i int, meetingID string) {
			defer wg.Done()
			_, errs[i] = eng.AcceptMeeting(context.Background(), meetingID, "", beforeHours)
		}(i, id)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrNoSlotsAvailable), errors.Is(err, ErrSlotsExhausted):
			lost++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if won != 1 || lost != 1 {
		t.Fatalf("won=%d lost=%d, want exactly one winner", won, lost)
	}

	units, _ := store.AgendaUnits(context.Background(), "ev1")
	if len(units) != 1 || units[0].Available {
		t.Fatalf("the single unit should be occupied")
	}
	checkLedger(t, store)
}

func TestRejectMeeting(t *testing.T) {
	eng, _, notifier := newTestEngine(t, baseConfig())

	m := mustCreate(t, eng, "alice", "bob")
	got, err := eng.RejectMeeting(context.Background(), m.ID)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if got.Status != models.MeetingStatusRejected {
		t.Errorf("status = %s, want rejected", got.Status)
	}
	if notifier.countFor("alice") != 1 {
		t.Errorf("requester notified %d times, want 1", notifier.countFor("alice"))
	}
	// Create notified bob once; the rejection must reach him too.
	if notifier.countFor("bob") != 2 {
		t.Errorf("receiver notified %d times, want 2", notifier.countFor("bob"))
	}

	// Terminal: rejecting again fails.
	var invalid *InvalidTransitionError
	if _, err := eng.RejectMeeting(context.Background(), m.ID); !errors.As(err, &invalid) {
		t.Errorf("expected InvalidTransitionError, got %v", err)
	}
}

func TestCancelMeeting(t *testing.T) {
	t.Run("pending cancel has no ledger effect", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		got, err := eng.CancelMeeting(context.Background(), m.ID)
		if err != nil {
			t.Fatalf("cancel: %v", err)
		}
		if got.Status != models.MeetingStatusCancelled {
			t.Errorf("status = %s, want cancelled", got.Status)
		}
		checkLedger(t, store)
	})

	t.Run("accepted cancel releases the unit for others", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		accepted := mustAccept(t, eng, m.ID, "")
		unitID := accepted.UnitID

		if _, err := eng.CancelMeeting(context.Background(), m.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		u := unitByID(t, store, unitID)
		if !u.Available || u.MeetingID != "" {
			t.Fatalf("unit not released: available=%v meetingId=%q", u.Available, u.MeetingID)
		}

		// A different pair can now claim the exact same unit.
		m2 := mustCreate(t, eng, "carol", "dave")
		rebooked := mustAccept(t, eng, m2.ID, unitID)
		if rebooked.UnitID != unitID {
			t.Errorf("rebooked unit %s, want %s", rebooked.UnitID, unitID)
		}
		checkLedger(t, store)
	})

	t.Run("rejected meetings cannot be cancelled", func(t *testing.T) {
		eng, _, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		if _, err := eng.RejectMeeting(context.Background(), m.ID); err != nil {
			t.Fatalf("reject: %v", err)
		}
		var invalid *InvalidTransitionError
		if _, err := eng.CancelMeeting(context.Background(), m.ID); !errors.As(err, &invalid) {
			t.Errorf("expected InvalidTransitionError, got %v", err)
		}
	})

	t.Run("cancelling twice fails", func(t *testing.T) {
		eng, _, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		if _, err := eng.CancelMeeting(context.Background(), m.ID); err != nil {
			t.Fatalf("cancel: %v", err)
		}
		var invalid *InvalidTransitionError
		if _, err := eng.CancelMeeting(context.Background(), m.ID); !errors.As(err, &invalid) {
			t.Errorf("expected InvalidTransitionError, got %v", err)
		}
	})
}

func TestRescheduleMeeting(t *testing.T) {
	t.Run("moves to the new unit atomically", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		accepted := mustAccept(t, eng, m.ID, "")
		oldUnitID := accepted.UnitID

		units, _ := store.AgendaUnits(context.Background(), "ev1")
		target := units[2] // 09:25, table 1

		moved, err := eng.RescheduleMeeting(context.Background(), m.ID, target.ID, beforeHours)
		if err != nil {
			t.Fatalf("reschedule: %v", err)
		}
		if moved.UnitID != target.ID || moved.TimeSlot != "09:25 - 09:45" {
			t.Errorf("moved to (%s, unit %s)", moved.TimeSlot, moved.UnitID)
		}
		if moved.Status != models.MeetingStatusAccepted {
			t.Errorf("status = %s, want accepted", moved.Status)
		}
		old := unitByID(t, store, oldUnitID)
		if !old.Available || old.MeetingID != "" {
			t.Error("old unit not released")
		}
		checkLedger(t, store)
	})

	t.Run("losing the new unit keeps the old booking", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m1 := mustCreate(t, eng, "alice", "bob")
		a1 := mustAccept(t, eng, m1.ID, "")
		m2 := mustCreate(t, eng, "carol", "dave")
		a2 := mustAccept(t, eng, m2.ID, "")

		_, err := eng.RescheduleMeeting(context.Background(), m1.ID, a2.UnitID, beforeHours)
		if !errors.Is(err, ErrSlotConflict) {
			t.Fatalf("expected ErrSlotConflict, got %v", err)
		}
		still := unitByID(t, store, a1.UnitID)
		if still.Available || still.MeetingID != m1.ID {
			t.Error("old binding was disturbed by the failed reschedule")
		}
		checkLedger(t, store)
	})

	t.Run("only accepted meetings can move", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m := mustCreate(t, eng, "alice", "bob")
		units, _ := store.AgendaUnits(context.Background(), "ev1")
		var invalid *InvalidTransitionError
		if _, err := eng.RescheduleMeeting(context.Background(), m.ID, units[0].ID, beforeHours); !errors.As(err, &invalid) {
			t.Errorf("expected InvalidTransitionError, got %v", err)
		}
	})
}

func TestSwapMeetings(t *testing.T) {
	t.Run("full exchange across meetings and units", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		m1 := mustCreate(t, eng, "alice", "bob")
		a := mustAccept(t, eng, m1.ID, "")
		m2 := mustCreate(t, eng, "carol", "dave")
		b := mustAccept(t, eng, m2.ID, "")

		if err := eng.SwapMeetings(context.Background(), m1.ID, m2.ID); err != nil {
			t.Fatalf("swap: %v", err)
		}

		gotA, _ := store.GetMeeting(context.Background(), m1.ID)
		gotB, _ := store.GetMeeting(context.Background(), m2.ID)
		if gotA.UnitID != b.UnitID || gotA.TimeSlot != b.TimeSlot || gotA.TableAssigned != b.TableAssigned {
			t.Errorf("meeting A did not inherit B's slot: %+v", gotA)
		}
		if gotB.UnitID != a.UnitID || gotB.TimeSlot != a.TimeSlot {
			t.Errorf("meeting B did not inherit A's slot: %+v", gotB)
		}
		checkLedger(t, store)
	})

	t.Run("refuses a swap that double-books a participant", func(t *testing.T) {
		eng, store, _ := newTestEngine(t, baseConfig())
		units, _ := store.AgendaUnits(context.Background(), "ev1")

		// alice: 09:00 with bob. carol: 09:25 with dave.
		// alice also meets erin at 09:25, so giving alice-bob the 09:25
		// slot would double-book alice.
		m1 := mustCreate(t, eng, "alice", "bob")
		mustAccept(t, eng, m1.ID, units[0].ID) // 09:00, table 1
		m2 := mustCreate(t, eng, "carol", "dave")
		mustAccept(t, eng, m2.ID, units[2].ID) // 09:25, table 1
		m3 := mustCreate(t, eng, "alice", "erin")
		mustAccept(t, eng, m3.ID, units[3].ID) // 09:25, table 2

		before, _ := store.GetMeeting(context.Background(), m1.ID)
		err := eng.SwapMeetings(context.Background(), m1.ID, m2.ID)
		if !errors.Is(err, ErrSwapConflict) {
			t.Fatalf("expected ErrSwapConflict, got %v", err)
		}
		after, _ := store.GetMeeting(context.Background(), m1.ID)
		if after.UnitID != before.UnitID || after.TimeSlot != before.TimeSlot {
			t.Error("failed swap must leave both meetings untouched")
		}
		checkLedger(t, store)
	})

	t.Run("rejects non-accepted and self swaps", func(t *testing.T) {
		eng, _, _ := newTestEngine(t, baseConfig())
		m1 := mustCreate(t, eng, "alice", "bob")
		accepted := mustAccept(t, eng, m1.ID, "")
		m2 := mustCreate(t, eng, "carol", "dave")

		if err := eng.SwapMeetings(context.Background(), accepted.ID, accepted.ID); !errors.Is(err, ErrSwapConflict) {
			t.Errorf("self swap: expected ErrSwapConflict, got %v", err)
		}
		var invalid *InvalidTransitionError
		if err := eng.SwapMeetings(context.Background(), accepted.ID, m2.ID); !errors.As(err, &invalid) {
			t.Errorf("pending swap: expected InvalidTransitionError, got %v", err)
		}
	})
}

func TestListAvailableSlots(t *testing.T) {
	eng, _, _ := newTestEngine(t, baseConfig())
	m := mustCreate(t, eng, "alice", "bob")

	groups, err := eng.ListAvailableSlots(context.Background(), m.ID, beforeHours)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(groups) != 2 {
		t.Fatalf("got %d slot groups, want 2", len(groups))
	}
	if groups[0].StartTime != "09:00" || len(groups[0].Units) != 2 {
		t.Errorf("group 0 = %s with %d units", groups[0].StartTime, len(groups[0].Units))
	}
	if groups[1].StartTime != "09:25" || len(groups[1].Units) != 2 {
		t.Errorf("group 1 = %s with %d units", groups[1].StartTime, len(groups[1].Units))
	}

	// Occupying 09:00 table 1 shrinks that group but keeps the other table.
	mustAccept(t, eng, m.ID, groups[0].Units[0].ID)
	m2 := mustCreate(t, eng, "carol", "dave")
	groups, err = eng.ListAvailableSlots(context.Background(), m2.ID, beforeHours)
	if err != nil {
		t.Fatalf("list slots: %v", err)
	}
	if len(groups) != 2 || len(groups[0].Units) != 1 {
		t.Errorf("after booking: %d groups, first has %d units", len(groups), len(groups[0].Units))
	}
}

func TestAgendaLifecycle(t *testing.T) {
	eng, store, _ := newTestEngine(t, baseConfig())
	ctx := context.Background()

	t.Run("regenerating a live agenda is refused", func(t *testing.T) {
		if _, err := eng.GenerateAgenda(ctx, "ev1"); !errors.Is(err, ErrAgendaExists) {
			t.Errorf("expected ErrAgendaExists, got %v", err)
		}
	})

	t.Run("reset frees every unit without deleting", func(t *testing.T) {
		m := mustCreate(t, eng, "alice", "bob")
		mustAccept(t, eng, m.ID, "")

		n, err := eng.ResetAgenda(ctx, "ev1")
		if err != nil {
			t.Fatalf("reset: %v", err)
		}
		if n != 4 {
			t.Errorf("reset touched %d units, want 4", n)
		}
		units, _ := store.AgendaUnits(ctx, "ev1")
		for _, u := range units {
			if !u.Available || u.MeetingID != "" {
				t.Errorf("unit %s not freed by reset", u.ID)
			}
		}
	})

	t.Run("delete cascades to meetings", func(t *testing.T) {
		unitsDeleted, meetingsDeleted, err := eng.DeleteAgenda(ctx, "ev1")
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if unitsDeleted != 4 {
			t.Errorf("unitsDeleted = %d, want 4", unitsDeleted)
		}
		if meetingsDeleted == 0 {
			t.Error("expected meeting cascade on agenda delete")
		}
		if left, _ := store.MeetingsByEvent(ctx, "ev1"); len(left) != 0 {
			t.Errorf("%d meetings survived agenda delete", len(left))
		}

		// The agenda can now be regenerated from scratch.
		count, err := eng.GenerateAgenda(ctx, "ev1")
		if err != nil {
			t.Fatalf("regenerate: %v", err)
		}
		if count != 4 {
			t.Errorf("regenerated %d units, want 4", count)
		}
	})
}
