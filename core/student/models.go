package student

import (
	"strings"

	"github.com/nihongowithmoeno/moeno/core"
)

const DefaultTimezone = "America/New_York"

type ScheduledClass struct {
	Date  string `json:"date"` // ISO-8601 datetime, local to the student's timezone when zone-less
	Topic string `json:"topic"`
}

type Student struct {
	ID               string           `json:"id"`
	Name             string           `json:"name"`
	FirstName        string           `json:"firstName"`
	LastName         string           `json:"lastName"`
	Email            string           `json:"email"`
	GoogleMeetsURL   string           `json:"googleMeetsUrl"`
	TrelloURL        string           `json:"trelloUrl"`
	SlackChannel     string           `json:"slackChannel"`
	DateEnrolled     string           `json:"dateEnrolled"`
	ActiveStudent    bool             `json:"activeStudent"`
	ApplicationURL   string           `json:"applicationUrl"`
	Timezone         string           `json:"timezone"`
	ScheduledClasses []ScheduledClass `json:"scheduledClasses"`
}

// Filter narrows List to a single predicate: Email wins over ActiveOnly.
type Filter struct {
	Email      string
	ActiveOnly bool
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FirstName        string           `json:"firstName" validate:"required"`
	LastName         string           `json:"lastName" validate:"required"`
	Email            string           `json:"email" validate:"required,emailaddr"`
	GoogleMeetsURL   string           `json:"googleMeetsUrl"`
	TrelloURL        string           `json:"trelloUrl"`
	SlackChannel     string           `json:"slackChannel"`
	DateEnrolled     string           `json:"dateEnrolled"`
	ActiveStudent    *bool            `json:"activeStudent"`
	ApplicationURL   string           `json:"applicationUrl"`
	ScheduledClasses []ScheduledClass `json:"scheduledClasses"`
	Timezone         string           `json:"timezone" validate:"omitempty,iana_tz"`
}

func (ns *NewStudent) clean() {
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.Email = core.CleanString(ns.Email)
	ns.Timezone = core.CleanString(ns.Timezone)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nil fields are left untouched; blank names, email, date and timezone are ignored too.
type UpdateStudent struct {
	ID               string           `json:"id"`
	FirstName        *string          `json:"firstName"`
	LastName         *string          `json:"lastName"`
	Email            *string          `json:"email" validate:"omitempty,emailaddr"`
	GoogleMeetsURL   *string          `json:"googleMeetsUrl"`
	TrelloURL        *string          `json:"trelloUrl"`
	SlackChannel     *string          `json:"slackChannel"`
	DateEnrolled     *string          `json:"dateEnrolled"`
	ActiveStudent    *bool            `json:"activeStudent"`
	ApplicationURL   *string          `json:"applicationUrl"`
	ScheduledClasses []ScheduledClass `json:"scheduledClasses"`
	Timezone         *string          `json:"timezone" validate:"omitempty,iana_tz"`
}

func (us *UpdateStudent) clean() {
	us.ID = core.CleanString(us.ID)
	for _, s := range []*string{us.FirstName, us.LastName, us.Email, us.DateEnrolled, us.Timezone} {
		if s != nil {
			*s = core.CleanString(*s)
		}
	}
}

func fullName(first, last string) string {
	return strings.TrimSpace(first + " " + last)
}
