package models

import "time"

// BreakBlock is an admin-defined range during which no meetings run,
// e.g. lunch. Times are "HH:mm".
type BreakBlock struct {
	Start string `json:"start" bson:"start"`
	End   string `json:"end" bson:"end"`
}

// ScheduleConfig holds the scheduling parameters of an event. The agenda
// grid is derived entirely from this block.
type ScheduleConfig struct {
	StartTime          string       `json:"startTime" bson:"startTime"` // "HH:mm"
	EndTime            string       `json:"endTime" bson:"endTime"`     // "HH:mm"
	MeetingDuration    int          `json:"meetingDuration" bson:"meetingDuration"` // minutes
	BreakTime          int          `json:"breakTime" bson:"breakTime"`             // minutes between meetings
	NumTables          int          `json:"numTables" bson:"numTables"`
	BreakBlocks        []BreakBlock `json:"breakBlocks,omitempty" bson:"breakBlocks,omitempty"`
	MaxMeetingsPerUser int          `json:"maxMeetingsPerUser" bson:"maxMeetingsPerUser"` // 0 = unbounded
}

type Event struct {
	EventID     string         `json:"eventid" bson:"eventid"`
	Title       string         `json:"title" bson:"title"`
	Description string         `json:"description" bson:"description"`
	Date        time.Time      `json:"date" bson:"date"`
	Location    string         `json:"location" bson:"location"`
	CreatorID   string         `json:"creatorid" bson:"creatorid"`
	Status      string         `json:"status" bson:"status"`
	Schedule    ScheduleConfig `json:"schedule" bson:"schedule"`
	CreatedAt   time.Time      `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" bson:"updated_at"`
}
