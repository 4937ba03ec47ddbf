package dashboard

import (
	"context"
	"time"

	"github.com/nihongowithmoeno/moeno/core/student"
)

const (
	newClassTopic = "New Lesson"
	newClassTime  = "T10:00:00"

	StudentCreatedMessage     = "Student created successfully"
	StudentUpdatedMessage     = "Student updated successfully"
	StudentDeactivatedMessage = "Student deactivated successfully"
	StudentActivatedMessage   = "Student activated successfully"
	StudentDeletedMessage     = "Student deleted successfully"
)

// StudentAPI is the part of the API client the student screen uses.
type StudentAPI interface {
	ListStudents(ctx context.Context, filter student.Filter) ([]student.Student, error)
	CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error)
	UpdateStudent(ctx context.Context, us student.UpdateStudent) (student.Student, error)
	DeleteStudent(ctx context.Context, id string, soft bool) error
}

// StudentState is a snapshot of the student screen.
type StudentState struct {
	Status
	Students []student.Student
	Draft    *student.NewStudent
	Editing  *student.Student
}

type StudentBoard struct {
	board
	api      StudentAPI
	students []student.Student
	draft    *student.NewStudent
	editing  *student.Student
	nowFunc  func() time.Time
}

func NewStudentBoard(api StudentAPI, opts ...Option) *StudentBoard {
	sb := &StudentBoard{
		api:     api,
		nowFunc: time.Now,
	}
	sb.init(opts)
	return sb
}

func (sb *StudentBoard) State() StudentState {
	sb.mu.Lock()
	defer sb.mu.Unlock()

	state := StudentState{
		Status:   sb.status,
		Students: append([]student.Student(nil), sb.students...),
	}
	if sb.draft != nil {
		draft := *sb.draft
		draft.ScheduledClasses = append([]student.ScheduledClass{}, sb.draft.ScheduledClasses...)
		state.Draft = &draft
	}
	if sb.editing != nil {
		editing := *sb.editing
		editing.ScheduledClasses = append([]student.ScheduledClass{}, sb.editing.ScheduledClasses...)
		state.Editing = &editing
	}
	return state
}

// Refresh replaces the list with every student; the list is kept when the fetch fails.
func (sb *StudentBoard) Refresh(ctx context.Context) error {
	students, err := sb.api.ListStudents(ctx, student.Filter{})

	sb.mu.Lock()
	defer sb.mu.Unlock()
	if err != nil {
		sb.fail(err)
		return err
	}
	sb.students = students
	return nil
}

// NewDraft starts an empty active student in the default timezone.
func (sb *StudentBoard) NewDraft() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	active := true
	sb.draft = &student.NewStudent{
		ActiveStudent:    &active,
		Timezone:         student.DefaultTimezone,
		ScheduledClasses: []student.ScheduledClass{},
	}
}

// EditDraft applies fn to the draft, if any.
func (sb *StudentBoard) EditDraft(fn func(*student.NewStudent)) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.draft != nil {
		fn(sb.draft)
	}
}

func (sb *StudentBoard) DiscardDraft() {
	sb.mu.Lock()
	sb.draft = nil
	sb.mu.Unlock()
}

// StartEditing replaces whatever record was being edited.
func (sb *StudentBoard) StartEditing(st student.Student) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if st.ScheduledClasses == nil {
		st.ScheduledClasses = []student.ScheduledClass{}
	} else {
		st.ScheduledClasses = append([]student.ScheduledClass{}, st.ScheduledClasses...)
	}
	sb.editing = &st
	sb.status.Error = ""
}

// EditRecord applies fn to the record being edited, if any.
func (sb *StudentBoard) EditRecord(fn func(*student.Student)) {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	if sb.editing != nil {
		fn(sb.editing)
	}
}

func (sb *StudentBoard) CancelEditing() {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	sb.editing = nil
	sb.status.Error = ""
}

// classes returns the class list being worked on: the edited record's, else the draft's. Callers hold mu.
func (sb *StudentBoard) classes() *[]student.ScheduledClass {
	switch {
	case sb.editing != nil:
		return &sb.editing.ScheduledClasses
	case sb.draft != nil:
		return &sb.draft.ScheduledClasses
	default:
		return nil
	}
}

// AddClass appends a placeholder lesson today at 10:00.
func (sb *StudentBoard) AddClass() error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	classes := sb.classes()
	if classes == nil {
		return ErrNothingToSubmit
	}
	*classes = append(*classes, student.ScheduledClass{
		Date:  sb.nowFunc().UTC().Format("2006-01-02") + newClassTime,
		Topic: newClassTopic,
	})
	return nil
}

func (sb *StudentBoard) UpdateClass(i int, cls student.ScheduledClass) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	classes := sb.classes()
	if classes == nil {
		return ErrNothingToSubmit
	}
	if i < 0 || i >= len(*classes) {
		return ErrNoSuchClass
	}
	(*classes)[i] = cls
	return nil
}

func (sb *StudentBoard) RemoveClass(i int) error {
	sb.mu.Lock()
	defer sb.mu.Unlock()
	classes := sb.classes()
	if classes == nil {
		return ErrNothingToSubmit
	}
	if i < 0 || i >= len(*classes) {
		return ErrNoSuchClass
	}
	*classes = append((*classes)[:i], (*classes)[i+1:]...)
	return nil
}

// SubmitDraft creates the drafted student; the draft is dropped and the list refetched on success.
func (sb *StudentBoard) SubmitDraft(ctx context.Context) error {
	sb.mu.Lock()
	if sb.draft == nil {
		sb.mu.Unlock()
		return ErrNothingToSubmit
	}
	draft := *sb.draft
	sb.begin()
	sb.mu.Unlock()

	_, err := sb.api.CreateStudent(ctx, draft)
	return sb.finish(ctx, err, StudentCreatedMessage, func() { sb.draft = nil })
}

// SubmitEdit saves every field of the record being edited.
func (sb *StudentBoard) SubmitEdit(ctx context.Context) error {
	sb.mu.Lock()
	if sb.editing == nil {
		sb.mu.Unlock()
		return ErrNothingToSubmit
	}
	st := *sb.editing
	sb.begin()
	sb.mu.Unlock()

	_, err := sb.api.UpdateStudent(ctx, student.UpdateStudent{
		ID:               st.ID,
		FirstName:        &st.FirstName,
		LastName:         &st.LastName,
		Email:            &st.Email,
		GoogleMeetsURL:   &st.GoogleMeetsURL,
		TrelloURL:        &st.TrelloURL,
		SlackChannel:     &st.SlackChannel,
		DateEnrolled:     &st.DateEnrolled,
		ActiveStudent:    &st.ActiveStudent,
		ApplicationURL:   &st.ApplicationURL,
		ScheduledClasses: st.ScheduledClasses,
		Timezone:         &st.Timezone,
	})
	return sb.finish(ctx, err, StudentUpdatedMessage, func() { sb.editing = nil })
}

func (sb *StudentBoard) Deactivate(ctx context.Context, id string) error {
	sb.mu.Lock()
	sb.begin()
	sb.mu.Unlock()
	return sb.finish(ctx, sb.api.DeleteStudent(ctx, id, true), StudentDeactivatedMessage, nil)
}

func (sb *StudentBoard) Delete(ctx context.Context, id string) error {
	sb.mu.Lock()
	sb.begin()
	sb.mu.Unlock()
	return sb.finish(ctx, sb.api.DeleteStudent(ctx, id, false), StudentDeletedMessage, nil)
}

func (sb *StudentBoard) Activate(ctx context.Context, id string) error {
	sb.mu.Lock()
	sb.begin()
	sb.mu.Unlock()

	active := true
	_, err := sb.api.UpdateStudent(ctx, student.UpdateStudent{ID: id, ActiveStudent: &active})
	return sb.finish(ctx, err, StudentActivatedMessage, nil)
}

// finish records the outcome of a mutation and refetches the list after a success.
func (sb *StudentBoard) finish(ctx context.Context, err error, msg string, onSuccess func()) error {
	sb.mu.Lock()
	if err != nil {
		sb.fail(err)
		sb.mu.Unlock()
		return err
	}
	if onSuccess != nil {
		onSuccess()
	}
	sb.succeed(msg)
	sb.mu.Unlock()

	return sb.Refresh(ctx)
}
