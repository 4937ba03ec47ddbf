package student

import (
	"encoding/json"

	"github.com/nihongowithmoeno/moeno/core"
)

// Table is the remote table holding students.
const Table = "Students"

// remote column names
const (
	ColFirstName        = "First Name"
	ColLastName         = "Last Name"
	ColEmail            = "Email"
	ColGoogleMeetsURL   = "Google Meets Url"
	ColTrelloURL        = "Trello Url"
	ColSlackChannel     = "Slack Channel Url"
	ColDateEnrolled     = "Date Enrolled"
	ColActiveStudent    = "Active Student"
	ColApplicationURL   = "Application Url"
	ColScheduledClasses = "Scheduled Classes"
	ColTimezone         = "Timezone"
)

// Columns maps the JSON field names of Student to their remote column.
var Columns = map[string]string{
	"firstName":        ColFirstName,
	"lastName":         ColLastName,
	"email":            ColEmail,
	"googleMeetsUrl":   ColGoogleMeetsURL,
	"trelloUrl":        ColTrelloURL,
	"slackChannel":     ColSlackChannel,
	"dateEnrolled":     ColDateEnrolled,
	"activeStudent":    ColActiveStudent,
	"applicationUrl":   ColApplicationURL,
	"scheduledClasses": ColScheduledClasses,
	"timezone":         ColTimezone,
}

// EncodeActive stores the active flag the way the remote table expects it.
func EncodeActive(active bool) string {
	if active {
		return "true"
	}
	return "false"
}

// DecodeActive reads the active flag back. Only "true" (or a real boolean true) is active.
func DecodeActive(val interface{}) bool {
	switch v := val.(type) {
	case string:
		return v == "true"
	case bool:
		return v
	}
	return false
}

// EncodeClasses serializes the scheduled classes to the JSON string stored remotely.
func EncodeClasses(classes []ScheduledClass) string {
	if len(classes) == 0 {
		return "[]"
	}
	data, err := json.Marshal(classes)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// DecodeClasses parses the remote JSON string. It never returns nil: missing, blank or
// malformed values read back as an empty list.
func DecodeClasses(val interface{}) []ScheduledClass {
	classes := make([]ScheduledClass, 0)
	raw, ok := val.(string)
	if !ok || raw == "" {
		return classes
	}
	var decoded []ScheduledClass
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil || decoded == nil {
		return classes
	}
	return decoded
}

// FromRecord converts a remote row to a Student.
func FromRecord(rec core.Record) Student {
	s := Student{
		ID:               rec.ID,
		FirstName:        rec.StringField(ColFirstName),
		LastName:         rec.StringField(ColLastName),
		Email:            rec.StringField(ColEmail),
		GoogleMeetsURL:   rec.StringField(ColGoogleMeetsURL),
		TrelloURL:        rec.StringField(ColTrelloURL),
		SlackChannel:     rec.StringField(ColSlackChannel),
		DateEnrolled:     rec.StringField(ColDateEnrolled),
		ActiveStudent:    DecodeActive(rec.Fields[ColActiveStudent]),
		ApplicationURL:   rec.StringField(ColApplicationURL),
		Timezone:         rec.StringField(ColTimezone),
		ScheduledClasses: DecodeClasses(rec.Fields[ColScheduledClasses]),
	}
	if s.Timezone == "" {
		s.Timezone = DefaultTimezone
	}
	s.Name = fullName(s.FirstName, s.LastName)
	return s
}

func (ns NewStudent) fields(today string) map[string]interface{} {
	active := true
	if ns.ActiveStudent != nil {
		active = *ns.ActiveStudent
	}
	dateEnrolled := ns.DateEnrolled
	if dateEnrolled == "" {
		dateEnrolled = today
	}
	tz := ns.Timezone
	if tz == "" {
		tz = DefaultTimezone
	}
	return map[string]interface{}{
		ColFirstName:        ns.FirstName,
		ColLastName:         ns.LastName,
		ColEmail:            ns.Email,
		ColGoogleMeetsURL:   ns.GoogleMeetsURL,
		ColTrelloURL:        ns.TrelloURL,
		ColSlackChannel:     ns.SlackChannel,
		ColDateEnrolled:     dateEnrolled,
		ColActiveStudent:    EncodeActive(active),
		ColApplicationURL:   ns.ApplicationURL,
		ColScheduledClasses: EncodeClasses(ns.ScheduledClasses),
		ColTimezone:         tz,
	}
}

func (us UpdateStudent) fields() map[string]interface{} {
	flds := make(map[string]interface{})
	setIfNotBlank := func(col string, val *string) {
		if val != nil && *val != "" {
			flds[col] = *val
		}
	}
	setIfPresent := func(col string, val *string) {
		if val != nil {
			flds[col] = *val
		}
	}

	setIfNotBlank(ColFirstName, us.FirstName)
	setIfNotBlank(ColLastName, us.LastName)
	setIfNotBlank(ColEmail, us.Email)
	setIfPresent(ColGoogleMeetsURL, us.GoogleMeetsURL)
	setIfPresent(ColTrelloURL, us.TrelloURL)
	setIfPresent(ColSlackChannel, us.SlackChannel)
	setIfNotBlank(ColDateEnrolled, us.DateEnrolled)
	setIfPresent(ColApplicationURL, us.ApplicationURL)
	setIfNotBlank(ColTimezone, us.Timezone)
	if us.ActiveStudent != nil {
		flds[ColActiveStudent] = EncodeActive(*us.ActiveStudent)
	}
	if us.ScheduledClasses != nil {
		flds[ColScheduledClasses] = EncodeClasses(us.ScheduledClasses)
	}
	return flds
}
