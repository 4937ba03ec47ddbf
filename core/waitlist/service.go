package waitlist

import (
	"context"
	"errors"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

var (
	ErrFieldsRequired   = core.NewValidationError(errors.New("Fields object is required"))
	ErrEmailRequired    = core.NewValidationError(errors.New("Email Address is required"))
	ErrRecordIDRequired = core.NewValidationError(errors.New("Record ID is required"))
)

// ErrInvalidStatus lists the valid statuses.
func ErrInvalidStatus() error {
	valid := make([]string, 0, len(Statuses))
	for _, s := range Statuses {
		valid = append(valid, string(s))
	}
	return core.NewValidationError(
		errors.New("Invalid status. Valid options are: "+strings.Join(valid, ", ")),
		core.FieldError{Field: ColStatus, Error: "invalid status"},
	)
}

// Service is the Record Gateway for waitlist entries.
type Service struct {
	store core.RecordStore
}

func NewService(store core.RecordStore) *Service {
	return &Service{store: store}
}

func (svc *Service) List(ctx context.Context, params ListParams) ([]Entry, error) {
	opts := core.ListOptions{
		Formula:    strings.TrimSpace(params.Formula),
		MaxRecords: params.MaxRecords,
		Sort:       params.Sort,
	}
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	recs, err := svc.store.ListRecords(ctx, Table, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing waitlist")
	}
	recs = core.NonEmpty(recs)
	entries := make([]Entry, 0, len(recs))
	for _, rec := range recs {
		entries = append(entries, fromRecord(rec))
	}
	return entries, nil
}

func (svc *Service) Get(ctx context.Context, id string) (Entry, error) {
	rec, err := svc.store.GetRecord(ctx, Table, id)
	if err != nil {
		return Entry{}, pkgerrors.Wrap(err, "getting waitlist entry")
	}
	return fromRecord(rec), nil
}

// Create adds an entry; the status defaults to Not Contacted.
func (svc *Service) Create(ctx context.Context, fields *Fields) (Entry, error) {
	if fields == nil {
		return Entry{}, ErrFieldsRequired
	}
	f := *fields
	f.EmailAddress = core.CleanString(f.EmailAddress)
	if f.EmailAddress == "" {
		return Entry{}, ErrEmailRequired
	}
	if f.Status == "" {
		f.Status = StatusNotContacted
	}
	if !f.Status.Valid() {
		return Entry{}, ErrInvalidStatus()
	}

	rec, err := svc.store.CreateRecord(ctx, Table, f.columns())
	if err != nil {
		return Entry{}, pkgerrors.Wrap(err, "creating waitlist entry")
	}
	return fromRecord(rec), nil
}

func (svc *Service) Update(ctx context.Context, id string, upd *FieldsUpdate) (Entry, error) {
	id = core.CleanString(id)
	if id == "" {
		return Entry{}, ErrRecordIDRequired
	}
	if upd == nil {
		return Entry{}, ErrFieldsRequired
	}
	if upd.Status != nil && *upd.Status != "" && !upd.Status.Valid() {
		return Entry{}, ErrInvalidStatus()
	}

	rec, err := svc.store.UpdateRecord(ctx, Table, id, upd.columns())
	if err != nil {
		return Entry{}, pkgerrors.Wrap(err, "updating waitlist entry")
	}
	return fromRecord(rec), nil
}

// MarkContacted flips Not Contacted entries to Contacted and leaves the others alone.
func (svc *Service) MarkContacted(ctx context.Context, entry Entry) (Entry, error) {
	if entry.Fields.Status != StatusNotContacted && entry.Fields.Status != "" {
		return entry, nil
	}
	status := StatusContacted
	return svc.Update(ctx, entry.ID, &FieldsUpdate{Status: &status})
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	id = core.CleanString(id)
	if id == "" {
		return ErrRecordIDRequired
	}
	if err := svc.store.DeleteRecord(ctx, Table, id); err != nil {
		return pkgerrors.Wrap(err, "deleting waitlist entry")
	}
	return nil
}
