// Package calendar builds Google Calendar deep links for appointments.
//
// Timestamps are treated as clinic-local wall-clock time and rendered
// without a zone designator (YYYYMMDDTHHMMSS), so the calendar applies the
// viewer's timezone.
package calendar

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const baseURL = "https://calendar.google.com/calendar/render"

// dateFormat is the compact Google Calendar timestamp layout.
const dateFormat = "20060102T150405"

var weekdays = []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}

// Event describes a calendar entry.
type Event struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
}

// EventLink renders the deep link for an event with percent-encoded query
// parameters and the dates range in YYYYMMDDTHHMMSS/YYYYMMDDTHHMMSS form.
func EventLink(ev Event) string {
	params := url.Values{}
	params.Set("action", "TEMPLATE")
	params.Set("text", ev.Title)
	params.Set("dates", fmt.Sprintf("%s/%s", ev.Start.Format(dateFormat), ev.End.Format(dateFormat)))
	params.Set("details", ev.Description)
	if ev.Location != "" {
		params.Set("location", ev.Location)
	}
	return baseURL + "?" + params.Encode()
}

// ConvertTo24Hour converts "H:MM AM|PM" to "HH:MM". Hour 12 maps to 00
// for AM and stays 12 for PM; minutes pass through unchanged.
func ConvertTo24Hour(time12h string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(time12h))
	if len(fields) != 2 {
		return "", fmt.Errorf("calendar: invalid 12-hour time %q", time12h)
	}
	clock, modifier := fields[0], strings.ToLower(fields[1])
	if modifier != "am" && modifier != "pm" {
		return "", fmt.Errorf("calendar: invalid meridiem in %q", time12h)
	}

	hm := strings.SplitN(clock, ":", 2)
	if len(hm) != 2 {
		return "", fmt.Errorf("calendar: invalid clock in %q", time12h)
	}
	hours, err := strconv.Atoi(hm[0])
	if err != nil || hours < 1 || hours > 12 {
		return "", fmt.Errorf("calendar: invalid hour in %q", time12h)
	}

	if hours == 12 {
		if modifier == "am" {
			hours = 0
		}
	} else if modifier == "pm" {
		hours += 12
	}

	return fmt.Sprintf("%02d:%s", hours, hm[1]), nil
}

// NextOccurrence returns the next date strictly after from that falls on
// the named weekday (1 to 7 days out).
func NextOccurrence(dayName string, from time.Time) (time.Time, error) {
	target := -1
	want := strings.ToLower(strings.TrimSpace(dayName))
	for i, d := range weekdays {
		if d == want {
			target = i
			break
		}
	}
	if target < 0 {
		return time.Time{}, fmt.Errorf("calendar: unknown weekday %q", dayName)
	}

	delta := target - int(from.Weekday())
	if delta <= 0 {
		delta += 7
	}
	day := from.AddDate(0, 0, delta)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, from.Location()), nil
}

// AppointmentLink builds the one-hour appointment event link for a doctor
// on the next occurrence of day at the given 12-hour time slot.
func AppointmentLink(doctorName, day, timeSlot string, now time.Time) (string, error) {
	date, err := NextOccurrence(day, now)
	if err != nil {
		return "", err
	}
	clock, err := ConvertTo24Hour(timeSlot)
	if err != nil {
		return "", err
	}
	hm := strings.SplitN(clock, ":", 2)
	hours, _ := strconv.Atoi(hm[0])
	minutes, _ := strconv.Atoi(hm[1])

	start := time.Date(date.Year(), date.Month(), date.Day(), hours, minutes, 0, 0, date.Location())
	return EventLink(Event{
		Title:       fmt.Sprintf("Doctor Appointment with %s", doctorName),
		Start:       start,
		End:         start.Add(time.Hour),
		Description: fmt.Sprintf("Medical appointment with %s", doctorName),
	}), nil
}
