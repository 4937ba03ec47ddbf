package student

import (
	"context"
	"errors"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	pkgerrors "github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
)

var (
	ErrNotFound   = core.NewNotFoundError("Student not found with this email")
	ErrIDRequired = core.NewValidationError(errors.New("Student ID is required for updates"))
)

// Service is the Record Gateway for students.
type Service struct {
	store      core.RecordStore
	validate   *validator.Validate
	translator ut.Translator
	nowFunc    func() time.Time
}

func NewService(store core.RecordStore, validate *validator.Validate, translator ut.Translator) *Service {
	return &Service{
		store:      store,
		validate:   validate,
		translator: translator,
		nowFunc:    time.Now,
	}
}

// List returns every student matching the filter, dropping empty rows.
func (svc *Service) List(ctx context.Context, filter Filter) ([]Student, error) {
	var opts core.ListOptions
	if email := core.CleanString(filter.Email); email != "" {
		opts.Formula = core.EqualsFormula(ColEmail, email)
	} else if filter.ActiveOnly {
		opts.Formula = core.EqualsFormula(ColActiveStudent, EncodeActive(true))
	}

	recs, err := svc.store.ListRecords(ctx, Table, opts)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "listing students")
	}
	recs = core.NonEmpty(recs)
	students := make([]Student, 0, len(recs))
	for _, rec := range recs {
		students = append(students, FromRecord(rec))
	}
	return students, nil
}

// GetByEmail returns the first student registered with email.
func (svc *Service) GetByEmail(ctx context.Context, email string) (Student, error) {
	if core.CleanString(email) == "" {
		return Student{}, ErrNotFound
	}
	students, err := svc.List(ctx, Filter{Email: email})
	if err != nil {
		return Student{}, err
	}
	if len(students) == 0 {
		return Student{}, ErrNotFound
	}
	return students[0], nil
}

func (svc *Service) Get(ctx context.Context, id string) (Student, error) {
	rec, err := svc.store.GetRecord(ctx, Table, id)
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "getting student")
	}
	return FromRecord(rec), nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	ns.clean()
	if err := svc.validate.Struct(ns); err != nil {
		return Student{}, core.TranslateValidation(err, svc.translator)
	}

	rec, err := svc.store.CreateRecord(ctx, Table, ns.fields(svc.nowFunc().Format("2006-01-02")))
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "creating student")
	}
	return FromRecord(rec), nil
}

// Update sends only the supplied fields.
func (svc *Service) Update(ctx context.Context, us UpdateStudent) (Student, error) {
	us.clean()
	if us.ID == "" {
		return Student{}, ErrIDRequired
	}
	if err := svc.validate.Struct(us); err != nil {
		return Student{}, core.TranslateValidation(err, svc.translator)
	}

	rec, err := svc.store.UpdateRecord(ctx, Table, us.ID, us.fields())
	if err != nil {
		return Student{}, pkgerrors.Wrap(err, "updating student")
	}
	return FromRecord(rec), nil
}

// Delete deactivates the student when soft is set, otherwise removes the record.
// A hard delete returns a Student carrying only the ID.
func (svc *Service) Delete(ctx context.Context, id string, soft bool) (Student, error) {
	id = core.CleanString(id)
	if id == "" {
		return Student{}, core.NewValidationError(errors.New("Student ID is required"))
	}

	if soft {
		return svc.Update(ctx, UpdateStudent{ID: id, ActiveStudent: core.BoolPtr(false)})
	}
	if err := svc.store.DeleteRecord(ctx, Table, id); err != nil {
		return Student{}, pkgerrors.Wrap(err, "deleting student")
	}
	return Student{ID: id}, nil
}
