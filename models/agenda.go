package models

import "time"

// AgendaUnit is one bookable (table, time-slot) cell of an event's agenda.
// Available and MeetingID are mutated by the scheduling engine; everything
// else is fixed at generation time.
type AgendaUnit struct {
	ID          string    `json:"id" bson:"id"`
	EventID     string    `json:"eventid" bson:"eventid"`
	TableNumber int       `json:"tableNumber" bson:"tableNumber"`
	StartTime   string    `json:"startTime" bson:"startTime"` // "HH:mm"
	EndTime     string    `json:"endTime" bson:"endTime"`     // "HH:mm"
	Available   bool      `json:"available" bson:"available"`
	MeetingID   string    `json:"meetingId,omitempty" bson:"meetingId,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
}

// Range renders the unit's interval the way meetings store it.
func (u *AgendaUnit) Range() string {
	return u.StartTime + " - " + u.EndTime
}

// SlotGroup bundles the units sharing one time range, for UI listings where
// multiple free tables back the same slot.
type SlotGroup struct {
	StartTime string       `json:"startTime"`
	EndTime   string       `json:"endTime"`
	Units     []AgendaUnit `json:"units"`
}
