// Package schedule formats class times in a student's timezone and picks upcoming classes.
package schedule

import (
	"sort"
	"strings"
	"time"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/student"
)

const (
	NotAvailable = "N/A"

	dateLayout     = "January 2, 2006"
	timeLayout     = "03:04 PM"
	dateTimeLayout = "January 2, 2006 at 03:04 PM MST"
)

// zone-less layouts are read in the student's timezone
var localLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

// Location loads tz, falling back to the default student timezone when blank.
func Location(tz string) (*time.Location, error) {
	if tz = core.CleanString(tz); tz == "" {
		tz = student.DefaultTimezone
	}
	return time.LoadLocation(tz)
}

// Parse reads an ISO-8601 date or datetime. Zone-less datetimes are read in loc, bare dates as UTC midnight.
func Parse(value string, loc *time.Location) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, true
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, value, loc); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// FormatDate renders "May 1, 2024". Unreadable input is returned unchanged.
func FormatDate(value, tz string) string {
	return format(value, tz, dateLayout)
}

// FormatTime renders "09:00 AM".
func FormatTime(value, tz string) string {
	return format(value, tz, timeLayout)
}

// FormatDateTime renders "May 1, 2024 at 09:00 AM EDT".
func FormatDateTime(value, tz string) string {
	return format(value, tz, dateTimeLayout)
}

func format(value, tz, layout string) string {
	if strings.TrimSpace(value) == "" {
		return NotAvailable
	}
	loc, err := Location(tz)
	if err != nil {
		return value
	}
	t, ok := Parse(value, loc)
	if !ok {
		return value
	}
	return t.In(loc).Format(layout)
}

// Upcoming returns the classes strictly after now, soonest first. Unreadable dates are skipped.
func Upcoming(classes []student.ScheduledClass, tz string, now time.Time) []student.ScheduledClass {
	loc, err := Location(tz)
	if err != nil {
		loc = time.UTC
	}

	type dated struct {
		class student.ScheduledClass
		at    time.Time
	}
	var future []dated
	for _, cls := range classes {
		if at, ok := Parse(cls.Date, loc); ok && at.After(now) {
			future = append(future, dated{cls, at})
		}
	}
	sort.SliceStable(future, func(i, j int) bool { return future[i].at.Before(future[j].at) })

	res := make([]student.ScheduledClass, 0, len(future))
	for _, d := range future {
		res = append(res, d.class)
	}
	return res
}

// NextClass returns the soonest upcoming class.
func NextClass(st student.Student, now time.Time) (student.ScheduledClass, bool) {
	upcoming := Upcoming(st.ScheduledClasses, st.Timezone, now)
	if len(upcoming) == 0 {
		return student.ScheduledClass{}, false
	}
	return upcoming[0], true
}

// ReminderParams builds the lesson_reminder template params for a class.
func ReminderParams(st student.Student, cls student.ScheduledClass) map[string]string {
	params := map[string]string{
		"to_email":     st.Email,
		"to_name":      st.Name,
		"lesson_date":  FormatDate(cls.Date, st.Timezone),
		"lesson_time":  FormatTime(cls.Date, st.Timezone),
		"meeting_link": st.GoogleMeetsURL,
	}
	if topic := core.CleanString(cls.Topic); topic != "" {
		params["lesson_topic"] = topic
	}
	return params
}
