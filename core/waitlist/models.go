package waitlist

import (
	"strings"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
)

// Table is the remote table holding waitlist entries.
const Table = "Waitlist"

// remote column names
const (
	ColEmailAddress = "Email Address"
	ColFirstName    = "First Name"
	ColLastName     = "Last Name"
	ColPhone        = "Phone"
	ColAddress      = "Address"
	ColCompany      = "Company"
	ColStatus       = "Status"
	ColNotes        = "Notes"
	ColTags         = "TAGS"
)

type Status string

const (
	StatusContacted       Status = "Contacted"
	StatusActiveStudent   Status = "Active Student"
	StatusInactiveStudent Status = "Inactive Student"
	StatusNotInterested   Status = "Not Interested"
	StatusNotContacted    Status = "Not Contacted"
)

// Statuses lists the valid statuses, in the order they are reported to users.
var Statuses = []Status{
	StatusContacted,
	StatusActiveStudent,
	StatusInactiveStudent,
	StatusNotInterested,
	StatusNotContacted,
}

func (s Status) Valid() bool {
	for _, valid := range Statuses {
		if s == valid {
			return true
		}
	}
	return false
}

// Fields mirrors the remote columns; JSON names are the column names.
type Fields struct {
	EmailAddress string `json:"Email Address,omitempty"`
	FirstName    string `json:"First Name,omitempty"`
	LastName     string `json:"Last Name,omitempty"`
	Phone        string `json:"Phone,omitempty"`
	Address      string `json:"Address,omitempty"`
	Company      string `json:"Company,omitempty"`
	Status       Status `json:"Status,omitempty"`
	Notes        string `json:"Notes,omitempty"`
	Tags         string `json:"TAGS,omitempty"`
}

// FieldsUpdate is a sparse patch of Fields: nil values are not sent.
type FieldsUpdate struct {
	EmailAddress *string `json:"Email Address,omitempty"`
	FirstName    *string `json:"First Name,omitempty"`
	LastName     *string `json:"Last Name,omitempty"`
	Phone        *string `json:"Phone,omitempty"`
	Address      *string `json:"Address,omitempty"`
	Company      *string `json:"Company,omitempty"`
	Status       *Status `json:"Status,omitempty"`
	Notes        *string `json:"Notes,omitempty"`
	Tags         *string `json:"TAGS,omitempty"`
}

type Entry struct {
	ID          string `json:"id"`
	Fields      Fields `json:"fields"`
	CreatedTime string `json:"createdTime,omitempty"`
}

// DisplayName is "First Last" when both names are known, the email address otherwise.
func (e Entry) DisplayName() string {
	if e.Fields.FirstName != "" && e.Fields.LastName != "" {
		return strings.TrimSpace(e.Fields.FirstName + " " + e.Fields.LastName)
	}
	return e.Fields.EmailAddress
}

// ContactTemplate is the email template for reaching out to an entry.
const ContactTemplate = "waitlist_contact"

// ContactParams fills ContactTemplate for e; message is the free text of the email.
func ContactParams(e Entry, message string) map[string]string {
	return map[string]string{
		"to_email":       e.Fields.EmailAddress,
		"to_name":        e.DisplayName(),
		"from_name":      dispatch.DefaultFromName,
		"custom_message": message,
		"interest_level": e.Fields.Tags,
		"company":        e.Fields.Company,
		"reply_to":       dispatch.DefaultReplyTo,
	}
}

type ListParams struct {
	MaxRecords int    // defaults to DefaultMaxRecords
	Formula    string // passed through to the remote store
	Sort       []core.Ordering
}

const DefaultMaxRecords = 100

// Counts tallies entries per status; blank statuses count as Not Contacted.
func Counts(entries []Entry) map[Status]int {
	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for _, e := range entries {
		status := e.Fields.Status
		if status == "" {
			status = StatusNotContacted
		}
		counts[status]++
	}
	return counts
}

func fromRecord(rec core.Record) Entry {
	return Entry{
		ID:          rec.ID,
		CreatedTime: rec.CreatedTime,
		Fields: Fields{
			EmailAddress: rec.StringField(ColEmailAddress),
			FirstName:    rec.StringField(ColFirstName),
			LastName:     rec.StringField(ColLastName),
			Phone:        rec.StringField(ColPhone),
			Address:      rec.StringField(ColAddress),
			Company:      rec.StringField(ColCompany),
			Status:       Status(rec.StringField(ColStatus)),
			Notes:        rec.StringField(ColNotes),
			Tags:         rec.StringField(ColTags),
		},
	}
}

func (f Fields) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(col, val string) {
		if val != "" {
			cols[col] = val
		}
	}
	set(ColEmailAddress, f.EmailAddress)
	set(ColFirstName, f.FirstName)
	set(ColLastName, f.LastName)
	set(ColPhone, f.Phone)
	set(ColAddress, f.Address)
	set(ColCompany, f.Company)
	set(ColStatus, string(f.Status))
	set(ColNotes, f.Notes)
	set(ColTags, f.Tags)
	return cols
}

func (u FieldsUpdate) columns() map[string]interface{} {
	cols := make(map[string]interface{})
	set := func(col string, val *string) {
		if val != nil {
			cols[col] = *val
		}
	}
	set(ColEmailAddress, u.EmailAddress)
	set(ColFirstName, u.FirstName)
	set(ColLastName, u.LastName)
	set(ColPhone, u.Phone)
	set(ColAddress, u.Address)
	set(ColCompany, u.Company)
	set(ColNotes, u.Notes)
	set(ColTags, u.Tags)
	if u.Status != nil {
		cols[ColStatus] = string(*u.Status)
	}
	return cols
}
