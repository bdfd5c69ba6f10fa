package models

import "time"

// User is an event attendee. The scheduling engine only reads these
// records (participant identity, notification payloads); registration and
// profile editing live elsewhere.
type User struct {
	UserID    string    `json:"userid" bson:"userid"`
	EventID   string    `json:"eventid,omitempty" bson:"eventid,omitempty"`
	Name      string    `json:"name" bson:"name"`
	Company   string    `json:"company,omitempty" bson:"company,omitempty"`
	Role      string    `json:"role,omitempty" bson:"role,omitempty"`
	Phone     string    `json:"phone,omitempty" bson:"phone,omitempty"`
	Email     string    `json:"email,omitempty" bson:"email,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// Notification is one entry for a user's bell feed. Delivery is
// best-effort; the engine never waits on it.
type Notification struct {
	ID        string    `json:"id" bson:"id"`
	UserID    string    `json:"userId" bson:"userId"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Read      bool      `json:"read" bson:"read"`
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
}
