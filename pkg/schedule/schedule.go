// Package schedule models tenant business-hours calendars: weekday and
// weekend windows, holiday overrides, and the forwarding targets that
// apply inside and outside those windows.
package schedule

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VoicemailTarget is the sentinel returned when a caller should land in
// voicemail rather than on a forwarding number.
const VoicemailTarget = "voicemail"

// DaySchedule is the window configuration for one class of day.
// Start and End use 24h "HH:MM" notation.
type DaySchedule struct {
	Enabled            bool   `json:"enabled"`
	Start              string `json:"start"`
	End                string `json:"end"`
	Greeting           string `json:"greeting,omitempty"`
	AfterHoursGreeting string `json:"after_hours_greeting,omitempty"`
	ForwardingNumber   string `json:"forwarding_number,omitempty"`
	VoicemailEnabled   bool   `json:"voicemail_enabled"`
}

// Holiday is a calendar override for a single date ("YYYY-MM-DD").
type Holiday struct {
	Date             string `json:"date"`
	Enabled          bool   `json:"enabled"`
	ForwardingNumber string `json:"forwarding_number,omitempty"`
}

// BusinessHours is a tenant's full calendar.
type BusinessHours struct {
	Timezone string      `json:"timezone"`
	Weekday  DaySchedule `json:"weekday"`
	Weekend  DaySchedule `json:"weekend"`
	Holidays []Holiday   `json:"holidays,omitempty"`
}

// Default returns a 9-to-5 weekday calendar in UTC with weekends off.
func Default() BusinessHours {
	return BusinessHours{
		Timezone: "UTC",
		Weekday: DaySchedule{
			Enabled: true,
			Start:   "09:00",
			End:     "17:00",
		},
		Weekend: DaySchedule{
			Enabled: false,
			Start:   "09:00",
			End:     "17:00",
		},
	}
}

// dayFor picks the weekday or weekend sub-schedule for t.
func (b BusinessHours) dayFor(t time.Time) DaySchedule {
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return b.Weekend
	default:
		return b.Weekday
	}
}

// localize shifts t into the calendar's timezone, falling back to t
// unchanged when the zone name does not resolve.
func (b BusinessHours) localize(t time.Time) time.Time {
	if b.Timezone == "" {
		return t
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return t
	}
	return t.In(loc)
}

// holidayFor returns the enabled holiday entry matching t's date, if any.
func (b BusinessHours) holidayFor(t time.Time) (Holiday, bool) {
	date := t.Format("2006-01-02")
	for _, h := range b.Holidays {
		if h.Enabled && h.Date == date {
			return h, true
		}
	}
	return Holiday{}, false
}

// WithinWindow reports whether t falls inside the day's window at minute
// granularity. The window is half-open: a call at exactly Start is inside,
// a call at exactly End is outside. Used by the escalation coordinator.
func (b BusinessHours) WithinWindow(t time.Time) bool {
	t = b.localize(t)
	day := b.dayFor(t)
	if !day.Enabled {
		return false
	}

	startMin, err := parseClock(day.Start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(day.End)
	if err != nil {
		return false
	}

	nowMin := t.Hour()*60 + t.Minute()
	return nowMin >= startMin && nowMin < endMin
}

// WithinHours is the hour-granular check the IVR router uses for greeting
// selection: only the hour components of Start and End are compared.
// Coarser than WithinWindow on purpose; callers must not mix the two.
func (b BusinessHours) WithinHours(t time.Time) bool {
	t = b.localize(t)
	day := b.dayFor(t)
	if !day.Enabled {
		return false
	}

	startMin, err := parseClock(day.Start)
	if err != nil {
		return false
	}
	endMin, err := parseClock(day.End)
	if err != nil {
		return false
	}

	hour := t.Hour()
	return hour >= startMin/60 && hour < endMin/60
}

// ResolveTarget decides where a business-hours escalation should land at
// time t: an enabled holiday override wins outright, then the day window
// decides between the forwarding number, voicemail, and the fallback.
// The fallback (typically the config's primary number) is returned when
// nothing more specific applies.
func (b BusinessHours) ResolveTarget(t time.Time, fallback string) string {
	local := b.localize(t)

	if h, ok := b.holidayFor(local); ok {
		if h.ForwardingNumber != "" {
			return h.ForwardingNumber
		}
		return fallback
	}

	day := b.dayFor(local)
	if b.WithinWindow(t) && day.ForwardingNumber != "" {
		return day.ForwardingNumber
	}
	if day.VoicemailEnabled {
		return VoicemailTarget
	}
	return fallback
}

// Greeting returns the in-hours or after-hours greeting for time t.
func (b BusinessHours) Greeting(t time.Time, open bool) string {
	day := b.dayFor(b.localize(t))
	if open {
		return day.Greeting
	}
	return day.AfterHoursGreeting
}

// parseClock converts "HH:MM" to minutes since midnight.
func parseClock(s string) (int, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("schedule: invalid clock %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("schedule: invalid hour in %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("schedule: invalid minute in %q", s)
	}
	return hour*60 + minute, nil
}
