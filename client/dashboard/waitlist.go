package dashboard

import (
	"context"

	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

const (
	DefaultWaitlistTemplate = waitlist.ContactTemplate

	EntryCreatedMessage = "Record created successfully"
	EntryUpdatedMessage = "Record updated successfully"
	EntryDeletedMessage = "Record deleted successfully"
)

var ErrMailerUnavailable = errors.New("Email service not initialized")

// WaitlistAPI is the part of the API client the waitlist screen uses.
type WaitlistAPI interface {
	ListWaitlist(ctx context.Context, params waitlist.ListParams) ([]waitlist.Entry, error)
	JoinWaitlist(ctx context.Context, fields waitlist.Fields) (waitlist.Entry, error)
	UpdateWaitlistEntry(ctx context.Context, id string, fields waitlist.FieldsUpdate) (waitlist.Entry, error)
	DeleteWaitlistEntry(ctx context.Context, id string) error
}

// Mailer sends registered templates from the browser side.
type Mailer interface {
	Send(ctx context.Context, key string, params map[string]string, to dispatch.Recipient) (dispatch.Result, error)
}

// WaitlistState is a snapshot of the waitlist screen.
type WaitlistState struct {
	Status
	Entries []waitlist.Entry
	Counts  map[waitlist.Status]int
	Draft   *waitlist.Fields
	Editing *waitlist.Entry
}

type WaitlistBoard struct {
	board
	api     WaitlistAPI
	mailer  Mailer
	entries []waitlist.Entry
	draft   *waitlist.Fields
	editing *waitlist.Entry
}

// NewWaitlistBoard builds the waitlist screen; a nil mailer disables SendEmail.
func NewWaitlistBoard(api WaitlistAPI, mailer Mailer, opts ...Option) *WaitlistBoard {
	wb := &WaitlistBoard{api: api, mailer: mailer}
	wb.init(opts)
	return wb
}

func (wb *WaitlistBoard) State() WaitlistState {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	state := WaitlistState{
		Status:  wb.status,
		Entries: append([]waitlist.Entry(nil), wb.entries...),
		Counts:  waitlist.Counts(wb.entries),
	}
	if wb.draft != nil {
		draft := *wb.draft
		state.Draft = &draft
	}
	if wb.editing != nil {
		editing := *wb.editing
		state.Editing = &editing
	}
	return state
}

// Filtered returns the entries with status; blank statuses count as Not Contacted.
func (wb *WaitlistBoard) Filtered(status waitlist.Status) []waitlist.Entry {
	wb.mu.Lock()
	defer wb.mu.Unlock()

	var res []waitlist.Entry
	for _, e := range wb.entries {
		if entryStatus(e) == status {
			res = append(res, e)
		}
	}
	return res
}

func (wb *WaitlistBoard) Refresh(ctx context.Context) error {
	entries, err := wb.api.ListWaitlist(ctx, waitlist.ListParams{})

	wb.mu.Lock()
	defer wb.mu.Unlock()
	if err != nil {
		wb.fail(err)
		return err
	}
	wb.entries = entries
	return nil
}

func (wb *WaitlistBoard) NewDraft() {
	wb.mu.Lock()
	wb.draft = &waitlist.Fields{Status: waitlist.StatusNotContacted}
	wb.mu.Unlock()
}

// EditDraft applies fn to the draft, if any.
func (wb *WaitlistBoard) EditDraft(fn func(*waitlist.Fields)) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.draft != nil {
		fn(wb.draft)
	}
}

func (wb *WaitlistBoard) DiscardDraft() {
	wb.mu.Lock()
	wb.draft = nil
	wb.mu.Unlock()
}

// StartEditing replaces whatever entry was being edited.
func (wb *WaitlistBoard) StartEditing(entry waitlist.Entry) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	wb.editing = &entry
	wb.status.Error = ""
}

// EditRecord applies fn to the fields of the entry being edited, if any.
func (wb *WaitlistBoard) EditRecord(fn func(*waitlist.Fields)) {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	if wb.editing != nil {
		fn(&wb.editing.Fields)
	}
}

func (wb *WaitlistBoard) CancelEditing() {
	wb.mu.Lock()
	defer wb.mu.Unlock()
	wb.editing = nil
	wb.status.Error = ""
}

func (wb *WaitlistBoard) SubmitDraft(ctx context.Context) error {
	wb.mu.Lock()
	if wb.draft == nil {
		wb.mu.Unlock()
		return ErrNothingToSubmit
	}
	draft := *wb.draft
	wb.begin()
	wb.mu.Unlock()

	_, err := wb.api.JoinWaitlist(ctx, draft)
	return wb.finish(ctx, err, EntryCreatedMessage, func() { wb.draft = nil })
}

// SubmitEdit sends every field of the entry being edited.
func (wb *WaitlistBoard) SubmitEdit(ctx context.Context) error {
	wb.mu.Lock()
	if wb.editing == nil {
		wb.mu.Unlock()
		return ErrNothingToSubmit
	}
	entry := *wb.editing
	wb.begin()
	wb.mu.Unlock()

	f := entry.Fields
	_, err := wb.api.UpdateWaitlistEntry(ctx, entry.ID, waitlist.FieldsUpdate{
		EmailAddress: &f.EmailAddress,
		FirstName:    &f.FirstName,
		LastName:     &f.LastName,
		Phone:        &f.Phone,
		Address:      &f.Address,
		Company:      &f.Company,
		Status:       &f.Status,
		Notes:        &f.Notes,
		Tags:         &f.Tags,
	})
	return wb.finish(ctx, err, EntryUpdatedMessage, func() { wb.editing = nil })
}

func (wb *WaitlistBoard) Delete(ctx context.Context, id string) error {
	wb.mu.Lock()
	wb.begin()
	wb.mu.Unlock()
	return wb.finish(ctx, wb.api.DeleteWaitlistEntry(ctx, id), EntryDeletedMessage, nil)
}

// SendEmail emails an entry through the browser-side mailer; an entry not contacted yet is
// then marked Contacted. A blank template means waitlist_contact.
func (wb *WaitlistBoard) SendEmail(ctx context.Context, entry waitlist.Entry, template, message string) error {
	if template == "" {
		template = DefaultWaitlistTemplate
	}
	wb.mu.Lock()
	wb.begin()
	if wb.mailer == nil {
		wb.fail(ErrMailerUnavailable)
		wb.mu.Unlock()
		return ErrMailerUnavailable
	}
	wb.mu.Unlock()

	res, err := wb.mailer.Send(ctx, template, waitlist.ContactParams(entry, message), dispatch.Recipient{})
	if err != nil {
		wb.mu.Lock()
		wb.fail(err)
		wb.mu.Unlock()
		return err
	}

	if entryStatus(entry) != waitlist.StatusNotContacted {
		wb.mu.Lock()
		wb.succeed(res.Message)
		wb.mu.Unlock()
		return nil
	}
	contacted := waitlist.StatusContacted
	_, err = wb.api.UpdateWaitlistEntry(ctx, entry.ID, waitlist.FieldsUpdate{Status: &contacted})
	return wb.finish(ctx, err, res.Message, nil)
}

func (wb *WaitlistBoard) finish(ctx context.Context, err error, msg string, onSuccess func()) error {
	wb.mu.Lock()
	if err != nil {
		wb.fail(err)
		wb.mu.Unlock()
		return err
	}
	if onSuccess != nil {
		onSuccess()
	}
	wb.succeed(msg)
	wb.mu.Unlock()

	return wb.Refresh(ctx)
}

func entryStatus(e waitlist.Entry) waitlist.Status {
	if e.Fields.Status == "" {
		return waitlist.StatusNotContacted
	}
	return e.Fields.Status
}
