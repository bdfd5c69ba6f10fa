package models

import "time"

type MeetingStatus string

const (
	MeetingStatusPending   MeetingStatus = "pending"
	MeetingStatusAccepted  MeetingStatus = "accepted"
	MeetingStatusRejected  MeetingStatus = "rejected"
	MeetingStatusCancelled MeetingStatus = "cancelled"
)

// Terminal reports whether no further transition is allowed from s.
// Accepted meetings can still be cancelled, so accepted is not terminal.
func (s MeetingStatus) Terminal() bool {
	return s == MeetingStatusRejected || s == MeetingStatusCancelled
}

// Meeting is a pairwise meeting request between two attendees of an event.
// TimeSlot, TableAssigned and UnitID are set if and only if the meeting is
// accepted. Participants is always exactly {RequesterID, ReceiverID}.
type Meeting struct {
	ID            string        `json:"id" bson:"id"`
	EventID       string        `json:"eventid" bson:"eventid"`
	RequesterID   string        `json:"requesterId" bson:"requesterId"`
	ReceiverID    string        `json:"receiverId" bson:"receiverId"`
	Participants  []string      `json:"participants" bson:"participants"`
	Status        MeetingStatus `json:"status" bson:"status"`
	TimeSlot      string        `json:"timeSlot,omitempty" bson:"timeSlot,omitempty"` // "HH:mm - HH:mm"
	TableAssigned string        `json:"tableAssigned,omitempty" bson:"tableAssigned,omitempty"`
	UnitID        string        `json:"unitId,omitempty" bson:"unitId,omitempty"`
	CreatedAt     time.Time     `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt" bson:"updatedAt"`
}

// HasParticipant reports whether userID is one of the two parties.
func (m *Meeting) HasParticipant(userID string) bool {
	return m.RequesterID == userID || m.ReceiverID == userID
}
