package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"convene/models"
)

// MemStore is an in-memory Store with the same CAS and atomicity
// guarantees the Mongo implementation provides. It backs the engine's
// tests and local development without a database.
type MemStore struct {
	mu       sync.Mutex
	events   map[string]models.Event
	meetings map[string]models.Meeting
	units    map[string]models.AgendaUnit
}

func NewMemStore() *MemStore {
	return &MemStore{
		events:   make(map[string]models.Event),
		meetings: make(map[string]models.Meeting),
		units:    make(map[string]models.AgendaUnit),
	}
}

// PutEvent seeds or replaces an event record.
func (s *MemStore) PutEvent(ev models.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[ev.EventID] = ev
}

func (s *MemStore) GetEvent(ctx context.Context, eventID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, ErrEventNotFound
	}
	return &ev, nil
}

func (s *MemStore) GetMeeting(ctx context.Context, meetingID string) (*models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return nil, ErrMeetingNotFound
	}
	return &m, nil
}

func (s *MemStore) CreateMeeting(ctx context.Context, m *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.meetings[m.ID] = *m
	return nil
}

func (s *MemStore) UpdateMeetingStatus(ctx context.Context, meetingID string, status models.MeetingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return ErrMeetingNotFound
	}
	m.Status = status
	m.UpdatedAt = time.Now().UTC()
	s.meetings[meetingID] = m
	return nil
}

func (s *MemStore) AcceptedForUsers(ctx context.Context, eventID string, userIDs []string) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.meetings {
		if m.EventID != eventID || m.Status != models.MeetingStatusAccepted {
			continue
		}
		for _, id := range userIDs {
			if m.HasParticipant(id) {
				out = append(out, m)
				break
			}
		}
	}
	return out, nil
}

func (s *MemStore) CountAccepted(ctx context.Context, eventID, userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.meetings {
		if m.EventID == eventID && m.Status == models.MeetingStatusAccepted && m.HasParticipant(userID) {
			n++
		}
	}
	return n, nil
}

func (s *MemStore) MeetingsByEvent(ctx context.Context, eventID string) ([]models.Meeting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Meeting
	for _, m := range s.meetings {
		if m.EventID == eventID {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemStore) AgendaUnits(ctx context.Context, eventID string) ([]models.AgendaUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AgendaUnit
	for _, u := range s.units {
		if u.EventID == eventID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartTime != out[j].StartTime {
			return out[i].StartTime < out[j].StartTime
		}
		return out[i].TableNumber < out[j].TableNumber
	})
	return out, nil
}

func (s *MemStore) GetUnit(ctx context.Context, unitID string) (*models.AgendaUnit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unitID]
	if !ok {
		return nil, ErrUnitNotFound
	}
	return &u, nil
}

func (s *MemStore) InsertUnits(ctx context.Context, units []models.AgendaUnit) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range units {
		s.units[u.ID] = u
	}
	return len(units), nil
}

func (s *MemStore) ResetAgenda(ctx context.Context, eventID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, u := range s.units {
		if u.EventID != eventID {
			continue
		}
		u.Available = true
		u.MeetingID = ""
		s.units[id] = u
		n++
	}
	return n, nil
}

func (s *MemStore) DeleteAgenda(ctx context.Context, eventID string) (int, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	unitsDeleted := 0
	for id, u := range s.units {
		if u.EventID == eventID {
			delete(s.units, id)
			unitsDeleted++
		}
	}
	meetingsDeleted := 0
	for id, m := range s.meetings {
		if m.EventID == eventID {
			delete(s.meetings, id)
			meetingsDeleted++
		}
	}
	return unitsDeleted, meetingsDeleted, nil
}

func (s *MemStore) CommitAccept(ctx context.Context, meetingID string, unit *models.AgendaUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.units[unit.ID]
	if !ok {
		return ErrUnitNotFound
	}
	if !u.Available {
		return ErrSlotConflict
	}
	m, ok := s.meetings[meetingID]
	if !ok {
		return ErrMeetingNotFound
	}

	u.Available = false
	u.MeetingID = meetingID
	s.units[u.ID] = u

	m.Status = models.MeetingStatusAccepted
	m.TimeSlot = u.Range()
	m.TableAssigned = TableLabel(u.TableNumber)
	m.UnitID = u.ID
	m.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = m
	return nil
}

func (s *MemStore) CommitRelease(ctx context.Context, meetingID, unitID string, status models.MeetingStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return ErrMeetingNotFound
	}
	u, ok := s.units[unitID]
	if !ok {
		return ErrUnitNotFound
	}

	u.Available = true
	u.MeetingID = ""
	s.units[u.ID] = u

	m.Status = status
	m.TimeSlot = ""
	m.TableAssigned = ""
	m.UnitID = ""
	m.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = m
	return nil
}

func (s *MemStore) CommitReschedule(ctx context.Context, meetingID, oldUnitID string, newUnit *models.AgendaUnit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.meetings[meetingID]
	if !ok {
		return ErrMeetingNotFound
	}
	oldU, ok := s.units[oldUnitID]
	if !ok {
		return ErrUnitNotFound
	}
	newU, ok := s.units[newUnit.ID]
	if !ok {
		return ErrUnitNotFound
	}
	// Claim before release: losing the race must leave the old binding
	// fully intact.
	if !newU.Available {
		return ErrSlotConflict
	}

	newU.Available = false
	newU.MeetingID = meetingID
	s.units[newU.ID] = newU

	oldU.Available = true
	oldU.MeetingID = ""
	s.units[oldU.ID] = oldU

	m.TimeSlot = newU.Range()
	m.TableAssigned = TableLabel(newU.TableNumber)
	m.UnitID = newU.ID
	m.UpdatedAt = time.Now().UTC()
	s.meetings[m.ID] = m
	return nil
}

func (s *MemStore) CommitSwap(ctx context.Context, a, b *models.Meeting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ma, ok := s.meetings[a.ID]
	if !ok {
		return ErrMeetingNotFound
	}
	mb, ok := s.meetings[b.ID]
	if !ok {
		return ErrMeetingNotFound
	}
	ua, ok := s.units[ma.UnitID]
	if !ok {
		return ErrUnitNotFound
	}
	ub, ok := s.units[mb.UnitID]
	if !ok {
		return ErrUnitNotFound
	}

	ua.MeetingID = mb.ID
	ub.MeetingID = ma.ID
	s.units[ua.ID] = ua
	s.units[ub.ID] = ub

	ma.TimeSlot, mb.TimeSlot = mb.TimeSlot, ma.TimeSlot
	ma.TableAssigned, mb.TableAssigned = mb.TableAssigned, ma.TableAssigned
	ma.UnitID, mb.UnitID = mb.UnitID, ma.UnitID
	now := time.Now().UTC()
	ma.UpdatedAt, mb.UpdatedAt = now, now
	s.meetings[ma.ID] = ma
	s.meetings[mb.ID] = mb
	return nil
}
