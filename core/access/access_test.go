package access

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/storage/inmem"
)

var testAdmins = []string{"nihongowithmoeno@gmail.com", "ijd.irving@gmail.com", "mo4324eno@gmail.com"}

type fakeProvider struct {
	identities map[string]Identity // idToken -> identity
	tornDown   []string
}

func (p *fakeProvider) Lookup(_ context.Context, idToken string) (Identity, error) {
	ident, ok := p.identities[idToken]
	if !ok {
		return Identity{}, &core.AuthError{Code: "INVALID_ID_TOKEN", Message: ExpiredMessage, Status: http.StatusUnauthorized}
	}
	return ident, nil
}

func (p *fakeProvider) Teardown(_ context.Context, idToken string) error {
	p.tornDown = append(p.tornDown, idToken)
	return nil
}

type mapStore struct {
	mu       sync.Mutex
	sessions map[string]Session
	now      func() time.Time
}

func (s *mapStore) Save(_ context.Context, sess Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *mapStore) Get(_ context.Context, id string) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || sess.Expired(s.now()) {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

func (s *mapStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

type testEnv struct {
	svc      *Service
	records  *inmem.Store
	provider *fakeProvider
	sessions *mapStore
	now      time.Time
}

func newTestEnv() *testEnv {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	env := &testEnv{
		records: inmem.NewStore(),
		provider: &fakeProvider{identities: map[string]Identity{
			"tok-admin":    {UID: "u1", Email: "nihongowithmoeno@gmail.com"},
			"tok-student":  {UID: "u2", Email: "aiko@example.com"},
			"tok-stranger": {UID: "u3", Email: "stranger@example.com"},
		}},
		now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}
	env.sessions = &mapStore{sessions: make(map[string]Session), now: func() time.Time { return env.now }}

	students := student.NewService(env.records, validate, translator)
	gate := NewGate(testAdmins, students)
	env.svc = NewService(gate, env.provider, env.sessions, Options{TTL: time.Hour, RevalidateAfter: 5 * time.Minute}, core.NopLogger{})
	env.svc.nowFunc = func() time.Time { return env.now }
	env.svc.goFunc = func(f func()) { f() } // revalidate synchronously
	return env
}

func (env *testEnv) seedStudent(email string) core.Record {
	return env.records.Seed(student.Table, map[string]interface{}{
		student.ColFirstName:     "Aiko",
		student.ColLastName:      "Sato",
		student.ColEmail:         email,
		student.ColActiveStudent: "true",
	})
}

func TestGate_Classify(t *testing.T) {
	env := newTestEnv()
	env.seedStudent("aiko@example.com")
	env.seedStudent("twin@example.com")
	second := env.seedStudent("twin@example.com")
	gate := env.svc.gate
	ctx := context.Background()

	tests := []struct {
		name        string
		ident       *Identity
		wantRole    Role
		wantMessage string
	}{
		{name: "no identity", ident: nil, wantRole: RoleUnauthorized, wantMessage: SignInMessage},
		{name: "blank email", ident: &Identity{UID: "x"}, wantRole: RoleUnauthorized, wantMessage: SignInMessage},
		{name: "admin without student record", ident: &Identity{Email: "nihongowithmoeno@gmail.com"}, wantRole: RoleAdmin},
		{name: "admin, case insensitive", ident: &Identity{Email: "Mo4324eno@Gmail.com"}, wantRole: RoleAdmin},
		{name: "student", ident: &Identity{Email: "aiko@example.com"}, wantRole: RoleStudent},
		{name: "duplicate email", ident: &Identity{Email: "twin@example.com"}, wantRole: RoleStudent},
		{name: "stranger", ident: &Identity{Email: "stranger@example.com"}, wantRole: RoleUnauthorized, wantMessage: NotEnrolledMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec, err := gate.Classify(ctx, tt.ident)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRole, dec.Role)
			assert.Equal(t, tt.wantMessage, dec.Message)
			if tt.wantRole == RoleStudent {
				require.NotNil(t, dec.Student)
				assert.Equal(t, tt.ident.Email, dec.Student.Email)
				assert.NotEqual(t, second.ID, dec.Student.ID, "first match wins")
			} else {
				assert.Nil(t, dec.Student)
			}
		})
	}

	t.Run("lookup failure", func(t *testing.T) {
		env.records.FailNext(&core.UpstreamError{Service: "airtable", StatusCode: 500, Message: "boom"})
		dec, err := gate.Classify(ctx, &Identity{Email: "aiko@example.com"})
		require.Error(t, err)
		assert.Equal(t, RoleUnauthorized, dec.Role)
		assert.Equal(t, VerifyFailedMessage, dec.Message)
	})
}

func TestService_Begin(t *testing.T) {
	ctx := context.Background()

	t.Run("missing token", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Begin(ctx, " ")
		assert.True(t, core.IsValidation(err))
	})

	t.Run("invalid token", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Begin(ctx, "tok-nope")
		var aErr *core.AuthError
		require.True(t, errors.As(err, &aErr))
		assert.Equal(t, http.StatusUnauthorized, aErr.Status)
	})

	t.Run("admin", func(t *testing.T) {
		env := newTestEnv()
		sess, err := env.svc.Begin(ctx, "tok-admin")
		require.NoError(t, err)
		assert.Equal(t, RoleAdmin, sess.Role)
		assert.True(t, sess.IsAdmin())
		assert.Equal(t, env.now.Add(time.Hour), sess.ExpiresAt)
		assert.Contains(t, env.sessions.sessions, sess.ID)
	})

	t.Run("student", func(t *testing.T) {
		env := newTestEnv()
		env.seedStudent("aiko@example.com")
		sess, err := env.svc.Begin(ctx, "tok-student")
		require.NoError(t, err)
		assert.Equal(t, RoleStudent, sess.Role)
		require.NotNil(t, sess.Student)
		assert.Equal(t, "Aiko Sato", sess.Student.Name)
		assert.True(t, sess.Owns("AIKO@example.com"))
		assert.False(t, sess.Owns("someone@example.com"))
	})

	t.Run("stranger is torn down", func(t *testing.T) {
		env := newTestEnv()
		_, err := env.svc.Begin(ctx, "tok-stranger")
		var aErr *core.AuthError
		require.True(t, errors.As(err, &aErr))
		assert.Equal(t, http.StatusForbidden, aErr.Status)
		assert.Equal(t, NotEnrolledMessage, aErr.Message)
		assert.Equal(t, []string{"tok-stranger"}, env.provider.tornDown)
		assert.Empty(t, env.sessions.sessions)
	})

	t.Run("lookup failure tears down too", func(t *testing.T) {
		env := newTestEnv()
		env.records.FailNext(&core.UpstreamError{Service: "airtable", StatusCode: 500, Message: "boom"})
		_, err := env.svc.Begin(ctx, "tok-student")
		require.Error(t, err)
		assert.Equal(t, VerifyFailedMessage, err.Error())
		assert.Equal(t, []string{"tok-student"}, env.provider.tornDown)
	})
}

func TestService_CurrentRevalidates(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	rec := env.seedStudent("aiko@example.com")

	sess, err := env.svc.Begin(ctx, "tok-student")
	require.NoError(t, err)

	// fresh: no revalidation
	got, err := env.svc.Current(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.RevalidatedAt, got.RevalidatedAt)

	// stale: snapshot returned as is, refreshed for the next read
	_, err = env.records.UpdateRecord(ctx, student.Table, rec.ID, map[string]interface{}{student.ColFirstName: "Aiko-chan"})
	require.NoError(t, err)
	env.now = env.now.Add(10 * time.Minute)
	got, err = env.svc.Current(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aiko", got.Student.FirstName)

	got, err = env.svc.Current(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Aiko-chan", got.Student.FirstName)
	assert.Equal(t, env.now, got.RevalidatedAt)

	// record gone: session purged
	require.NoError(t, env.records.DeleteRecord(ctx, student.Table, rec.ID))
	env.now = env.now.Add(10 * time.Minute)
	_, err = env.svc.Current(ctx, sess.ID)
	require.NoError(t, err)
	_, err = env.svc.Current(ctx, sess.ID)
	assert.Equal(t, ErrNoSession, err)
}

func TestService_RevalidateKeepsSnapshotOnFailure(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seedStudent("aiko@example.com")
	sess, err := env.svc.Begin(ctx, "tok-student")
	require.NoError(t, err)

	env.records.FailNext(&core.UpstreamError{Service: "airtable", StatusCode: 429})
	got, err := env.svc.Revalidate(ctx, sess.ID)
	assert.True(t, core.IsRateLimited(err))
	assert.Equal(t, sess.ID, got.ID)

	_, err = env.svc.Current(ctx, sess.ID)
	assert.NoError(t, err)
}

func TestService_End(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	sess, err := env.svc.Begin(ctx, "tok-admin")
	require.NoError(t, err)

	require.NoError(t, env.svc.End(ctx, sess.ID))
	_, err = env.svc.Current(ctx, sess.ID)
	assert.Equal(t, ErrNoSession, err)
	assert.NoError(t, env.svc.End(ctx, "unknown"))

	// expiry
	sess, err = env.svc.Begin(ctx, "tok-admin")
	require.NoError(t, err)
	env.now = env.now.Add(2 * time.Hour)
	_, err = env.svc.Current(ctx, sess.ID)
	assert.Equal(t, ErrNoSession, err)
}

// blockingFinder parks GetByEmail until release is closed.
type blockingFinder struct {
	StudentFinder
	entered chan struct{}
	release chan struct{}
}

func (f *blockingFinder) GetByEmail(ctx context.Context, email string) (student.Student, error) {
	close(f.entered)
	<-f.release
	return f.StudentFinder.GetByEmail(ctx, email)
}

func waitFor(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out")
	}
}

func TestService_EndDuringRevalidation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	env.seedStudent("aiko@example.com")
	sess, err := env.svc.Begin(ctx, "tok-student")
	require.NoError(t, err)

	finder := &blockingFinder{StudentFinder: env.svc.gate.students, entered: make(chan struct{}), release: make(chan struct{})}
	env.svc.gate = NewGate(testAdmins, finder)
	done := make(chan struct{})
	env.svc.goFunc = func(f func()) {
		go func() {
			defer close(done)
			f()
		}()
	}

	env.now = env.now.Add(10 * time.Minute)
	_, err = env.svc.Current(ctx, sess.ID)
	require.NoError(t, err)
	waitFor(t, finder.entered)

	require.NoError(t, env.svc.End(ctx, sess.ID))
	close(finder.release)
	waitFor(t, done)

	_, err = env.svc.Current(ctx, sess.ID)
	assert.Equal(t, ErrNoSession, err)
	assert.NotContains(t, env.sessions.sessions, sess.ID)
	assert.Empty(t, env.svc.writers)
}

func TestService_NilLogger(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv()
	svc := NewService(env.svc.gate, env.provider, env.sessions, Options{}, nil)

	env.records.FailNext(&core.UpstreamError{Service: "airtable", StatusCode: 500, Message: "boom"})
	assert.NotPanics(t, func() {
		_, err := svc.Begin(ctx, "tok-student")
		assert.Error(t, err)
	})
}
