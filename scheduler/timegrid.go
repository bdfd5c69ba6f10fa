package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"convene/models"

	"github.com/google/uuid"
)

// ParseClock converts "HH:mm" to minutes since midnight. The whole string
// must be consumed; "09:00x" is rejected, not truncated.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, fmt.Errorf("parse clock %q: want HH:mm", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("parse clock %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes since midnight as "HH:mm".
func FormatClock(mins int) string {
	return fmt.Sprintf("%02d:%02d", mins/60, mins%60)
}

// TableLabel renders a table number the way meetings store it.
func TableLabel(n int) string {
	return strconv.Itoa(n)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Covers all four cases: starts inside, ends inside, contains, contained.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ValidateConfig checks a schedule configuration before grid generation.
func ValidateConfig(cfg models.ScheduleConfig) error {
	start, err := ParseClock(cfg.StartTime)
	if err != nil {
		return &ConfigError{Field: "startTime", Reason: err.Error()}
	}
	end, err := ParseClock(cfg.EndTime)
	if err != nil {
		return &ConfigError{Field: "endTime", Reason: err.Error()}
	}
	if end <= start {
		return &ConfigError{Field: "endTime", Reason: "must be after startTime"}
	}
	if cfg.MeetingDuration <= 0 {
		return &ConfigError{Field: "meetingDuration", Reason: "must be positive"}
	}
	if cfg.BreakTime < 0 {
		return &ConfigError{Field: "breakTime", Reason: "must not be negative"}
	}
	if cfg.NumTables < 1 {
		return &ConfigError{Field: "numTables", Reason: "must be at least 1"}
	}
	if cfg.MaxMeetingsPerUser < 0 {
		return &ConfigError{Field: "maxMeetingsPerUser", Reason: "must not be negative"}
	}
	for _, b := range cfg.BreakBlocks {
		bs, err := ParseClock(b.Start)
		if err != nil {
			return &ConfigError{Field: "breakBlocks", Reason: err.Error()}
		}
		be, err := ParseClock(b.End)
		if err != nil {
			return &ConfigError{Field: "breakBlocks", Reason: err.Error()}
		}
		if be <= bs {
			return &ConfigError{Field: "breakBlocks", Reason: "end must be after start"}
		}
	}
	return nil
}

// inBreak reports whether the slot [start, end) touches any break block.
// A hit excludes the slot for every table at once: breaks are shared across
// the whole floor, not per table.
func inBreak(cfg models.ScheduleConfig, start, end int) bool {
	for _, b := range cfg.BreakBlocks {
		bs, _ := ParseClock(b.Start)
		be, _ := ParseClock(b.End)
		if Overlaps(start, end, bs, be) {
			return true
		}
	}
	return false
}

// BuildGrid derives the full agenda for an event: one unit per remaining
// slot start per table, in stable (slot, table) order. Stable ordering is
// what makes "first free slot" selection reproducible downstream.
func BuildGrid(eventID string, cfg models.ScheduleConfig) ([]models.AgendaUnit, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	start, _ := ParseClock(cfg.StartTime)
	end, _ := ParseClock(cfg.EndTime)
	step := cfg.MeetingDuration + cfg.BreakTime
	now := time.Now().UTC()

	var units []models.AgendaUnit
	for t := start; t+cfg.MeetingDuration <= end; t += step {
		slotEnd := t + cfg.MeetingDuration
		if inBreak(cfg, t, slotEnd) {
			continue
		}
		for table := 1; table <= cfg.NumTables; table++ {
			units = append(units, models.AgendaUnit{
				ID:          uuid.NewString(),
				EventID:     eventID,
				TableNumber: table,
				StartTime:   FormatClock(t),
				EndTime:     FormatClock(slotEnd),
				Available:   true,
				CreatedAt:   now,
			})
		}
	}
	return units, nil
}

// ParseRange splits a stored "HH:mm - HH:mm" meeting range into minutes.
func ParseRange(r string) (int, int, error) {
	first, second, ok := strings.Cut(r, " - ")
	if !ok {
		return 0, 0, fmt.Errorf("parse range %q: want \"HH:mm - HH:mm\"", r)
	}
	start, err := ParseClock(first)
	if err != nil {
		return 0, 0, fmt.Errorf("parse range %q: %w", r, err)
	}
	end, err := ParseClock(second)
	if err != nil {
		return 0, 0, fmt.Errorf("parse range %q: %w", r, err)
	}
	return start, end, nil
}
