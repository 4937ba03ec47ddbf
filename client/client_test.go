package client_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/nihongowithmoeno/moeno/apps/api/echo"
	"github.com/nihongowithmoeno/moeno/apps/shared"
	"github.com/nihongowithmoeno/moeno/client"
	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/core/blog"
	"github.com/nihongowithmoeno/moeno/core/contact"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/student"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
	emailsvc "github.com/nihongowithmoeno/moeno/services/email"
	"github.com/nihongowithmoeno/moeno/storage/inmem"
	"github.com/nihongowithmoeno/moeno/storage/session"
)

const (
	adminEmail = "nihongowithmoeno@gmail.com"
	tokAdmin   = "tok-admin"
	tokStudent = "tok-student"
)

type identities map[string]access.Identity

func (ids identities) Lookup(_ context.Context, idToken string) (access.Identity, error) {
	if ident, ok := ids[idToken]; ok {
		return ident, nil
	}
	return access.Identity{}, &core.AuthError{Code: "INVALID_ID_TOKEN", Message: access.ExpiredMessage, Status: http.StatusUnauthorized}
}

func (ids identities) Teardown(context.Context, string) error { return nil }

type testEnv struct {
	url    string
	store  *inmem.Store
	mailer *emailsvc.Console
}

// setup serves the real API over an in-memory store.
func setup(t *testing.T) *testEnv {
	t.Helper()
	core.ParseEmailTemplates(core.NopLogger{})
	validate, translator := shared.NewValidator()
	store := inmem.NewStore()
	mailer := emailsvc.NewConsoleMock()

	studentSvc := student.NewService(store, validate, translator)
	ids := identities{
		tokAdmin:   {UID: "u-admin", Email: adminEmail, EmailVerified: true},
		tokStudent: {UID: "u-aiko", Email: "aiko@test.jp", EmailVerified: true},
	}
	accessSvc := access.NewService(access.NewGate([]string{adminEmail}, studentSvc), ids, session.NewMemoryStore(), access.Options{}, core.NopLogger{})

	srv := echoapi.NewServer(&echoapi.Options{
		AppName:        "NihongoWithMoeno",
		Build:          "test",
		SecretKey:      "test-secret",
		TestMode:       true,
		DisableReqLogs: true,
		Translator:     translator,
		StudentSvc:     studentSvc,
		WaitlistSvc:    waitlist.NewService(store),
		BlogSvc:        blog.NewService(store, validate, translator),
		ContactSvc:     contact.NewService(mailer, "school@nihongowithmoeno.com", validate, translator),
		AccessSvc:      accessSvc,
		Dispatcher:     dispatch.NewDispatcher(dispatch.MustNewRegistry(nil), mailer, dispatch.ServerSide, dispatch.Defaults{}, nil),
	})
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	store.Seed(student.Table, map[string]interface{}{
		student.ColFirstName:     "Aiko",
		student.ColLastName:      "Tanaka",
		student.ColEmail:         "aiko@test.jp",
		student.ColActiveStudent: "true",
	})
	return &testEnv{url: ts.URL, store: store, mailer: mailer}
}

func TestClient_health(t *testing.T) {
	env := setup(t)
	build, err := client.New(env.url).Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "test", build)
}

func TestClient_session(t *testing.T) {
	env := setup(t)
	c := client.New(env.url)
	ctx := context.Background()

	_, err := c.SignIn(ctx, "tok-nobody")
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized), "err = %v", err)
	assert.Empty(t, c.Token())

	sess, err := c.SignIn(ctx, tokAdmin)
	require.NoError(t, err)
	assert.Equal(t, access.RoleAdmin, sess.Role)
	assert.NotEmpty(t, c.Token())

	current, err := c.Session(ctx)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, current.ID)

	require.NoError(t, c.SignOut(ctx))
	assert.Empty(t, c.Token())

	_, err = c.Session(ctx)
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "missing or malformed jwt", apiErr.Message)
}

func TestClient_students(t *testing.T) {
	env := setup(t)
	c := client.New(env.url)
	ctx := context.Background()
	_, err := c.SignIn(ctx, tokAdmin)
	require.NoError(t, err)

	_, err = c.CreateStudent(ctx, student.NewStudent{Email: "ken@test.jp"})
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.NotEmpty(t, apiErr.Fields)

	ken, err := c.CreateStudent(ctx, student.NewStudent{
		FirstName:     "Ken",
		LastName:      "Sato",
		Email:         "ken@test.jp",
		ActiveStudent: core.BoolPtr(true),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ken Sato", ken.Name)

	students, err := c.ListStudents(ctx, student.Filter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, students, 2)

	ken, err = c.UpdateStudent(ctx, student.UpdateStudent{ID: ken.ID, SlackChannel: core.StrPtr("#ken")})
	require.NoError(t, err)
	assert.Equal(t, "#ken", ken.SlackChannel)

	require.NoError(t, c.DeleteStudent(ctx, ken.ID, true))
	got, err := c.Student(ctx, "ken@test.jp")
	require.NoError(t, err)
	assert.False(t, got.ActiveStudent)

	require.NoError(t, c.DeleteStudent(ctx, ken.ID, false))
	_, err = c.Student(ctx, "ken@test.jp")
	assert.True(t, client.IsStatus(err, http.StatusNotFound), "err = %v", err)
}

func TestClient_studentSeesOnlyThemselves(t *testing.T) {
	env := setup(t)
	c := client.New(env.url)
	ctx := context.Background()
	_, err := c.SignIn(ctx, tokStudent)
	require.NoError(t, err)

	me, err := c.Student(ctx, "aiko@test.jp")
	require.NoError(t, err)
	assert.Equal(t, "Aiko Tanaka", me.Name)

	_, err = c.ListStudents(ctx, student.Filter{})
	assert.True(t, client.IsStatus(err, http.StatusForbidden), "err = %v", err)
}

func TestClient_waitlist(t *testing.T) {
	env := setup(t)
	ctx := context.Background()

	public := client.New(env.url)
	entry, err := public.JoinWaitlist(ctx, waitlist.Fields{EmailAddress: "yui@test.jp", FirstName: "Yui"})
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusNotContacted, entry.Fields.Status)

	_, err = public.ListWaitlist(ctx, waitlist.ListParams{})
	assert.True(t, client.IsStatus(err, http.StatusUnauthorized), "err = %v", err)

	admin := client.New(env.url)
	_, err = admin.SignIn(ctx, tokAdmin)
	require.NoError(t, err)

	contacted := waitlist.StatusContacted
	entry, err = admin.UpdateWaitlistEntry(ctx, entry.ID, waitlist.FieldsUpdate{Status: &contacted})
	require.NoError(t, err)
	assert.Equal(t, waitlist.StatusContacted, entry.Fields.Status)

	entries, err := admin.ListWaitlist(ctx, waitlist.ListParams{
		MaxRecords: 5,
		Sort:       []core.Ordering{{Field: waitlist.ColEmailAddress}},
	})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "yui@test.jp", entries[0].Fields.EmailAddress)

	require.NoError(t, admin.DeleteWaitlistEntry(ctx, entry.ID))
	entries, err = admin.ListWaitlist(ctx, waitlist.ListParams{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestClient_email(t *testing.T) {
	env := setup(t)
	c := client.New(env.url)
	ctx := context.Background()
	_, err := c.SignIn(ctx, tokAdmin)
	require.NoError(t, err)

	templates, err := c.Templates(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, templates)

	res, err := c.SendEmail(ctx, "welcome", map[string]string{"from_name": "Moeno"}, dispatch.Recipient{Email: "a@b.co", Name: "Yui"})
	require.NoError(t, err)
	assert.Equal(t, "a@b.co", res.Recipient)

	_, err = c.SendEmail(ctx, "welcom", map[string]string{}, dispatch.Recipient{})
	var apiErr *client.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, `Did you mean "welcome"?`, apiErr.Fields["template"])

	resp, err := c.TestEmail(ctx, "welcome", "template_draft", map[string]string{"to_email": "a@b.co"})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp)
	assert.Len(t, env.mailer.SentTemplates(), 2)
}

func TestClient_contact(t *testing.T) {
	env := setup(t)
	msg, err := client.New(env.url).Contact(context.Background(), contact.Submission{Name: "Yui", Email: "yui@test.jp", Message: "Hello"})
	require.NoError(t, err)
	assert.Equal(t, contact.SentMessage, msg)
	assert.Len(t, env.mailer.SentMessages(), 1)
}

func TestClient_errors(t *testing.T) {
	tests := []struct {
		name        string
		code        int
		body        string
		wantMessage string
		rateLimited bool
	}{
		{
			name:        "rate limited",
			code:        http.StatusTooManyRequests,
			body:        `{"success":false,"error":"` + core.RateLimitMessage + `"}`,
			wantMessage: core.RateLimitMessage,
			rateLimited: true,
		},
		{
			name:        "not json",
			code:        http.StatusBadGateway,
			body:        "upstream unavailable",
			wantMessage: "upstream unavailable",
		},
		{
			name:        "unsuccessful envelope",
			code:        http.StatusOK,
			body:        `{"success":false,"error":"nope"}`,
			wantMessage: "nope",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.code)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer ts.Close()

			_, err := client.New(ts.URL).Posts(context.Background())
			var apiErr *client.Error
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.code, apiErr.StatusCode)
			assert.Equal(t, tt.wantMessage, apiErr.Error())
			assert.Equal(t, tt.rateLimited, apiErr.RateLimited)
		})
	}
}
