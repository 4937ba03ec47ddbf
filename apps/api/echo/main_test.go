package echoapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/nihongowithmoeno/moeno/apps/api/echo"
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
	testSecret   = "test-secret"
	adminEmail   = "nihongowithmoeno@gmail.com"
	studentEmail = "aiko@test.jp"
	contactEmail = "school@nihongowithmoeno.com"

	tokAdmin    = "tok-admin"
	tokStudent  = "tok-student"
	tokStranger = "tok-stranger"
)

var errMissingToken = errorBody{Error: "missing or malformed jwt"}

type fakeIdentity struct {
	users    map[string]access.Identity
	tornDown []string
}

func newFakeIdentity() *fakeIdentity {
	return &fakeIdentity{users: map[string]access.Identity{
		tokAdmin:    {UID: "u-admin", Email: adminEmail, EmailVerified: true},
		tokStudent:  {UID: "u-aiko", Email: studentEmail, EmailVerified: true},
		tokStranger: {UID: "u-stranger", Email: "stranger@test.jp"},
	}}
}

func (f *fakeIdentity) Lookup(_ context.Context, idToken string) (access.Identity, error) {
	if ident, ok := f.users[idToken]; ok {
		return ident, nil
	}
	return access.Identity{}, &core.AuthError{
		Code:    "INVALID_ID_TOKEN",
		Message: "Your session has expired. Please sign in again.",
		Status:  http.StatusUnauthorized,
	}
}

func (f *fakeIdentity) Teardown(_ context.Context, idToken string) error {
	f.tornDown = append(f.tornDown, idToken)
	return nil
}

type testEnv struct {
	srv      Server
	store    *inmem.Store
	mailer   *emailsvc.Console
	identity *fakeIdentity
	student  core.Record
}

func setup(t *testing.T) *testEnv {
	t.Helper()
	core.ParseEmailTemplates(core.NopLogger{})
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)

	store := inmem.NewStore()
	mailer := emailsvc.NewConsoleMock()
	ident := newFakeIdentity()

	studentSvc := student.NewService(store, validate, translator)
	accessSvc := access.NewService(
		access.NewGate([]string{adminEmail}, studentSvc),
		ident,
		session.NewMemoryStore(),
		access.Options{},
		core.NopLogger{},
	)
	registry, err := dispatch.NewRegistry(map[string]string{"waitlist_contact": "template_waitlist"})
	require.NoError(t, err)

	srv := NewServer(&Options{
		AppName:        "NihongoWithMoeno",
		Build:          "test",
		SecretKey:      testSecret,
		TestMode:       true,
		DisableReqLogs: true,
		Logger:         core.NopLogger{},
		Translator:     translator,
		StudentSvc:     studentSvc,
		WaitlistSvc:    waitlist.NewService(store),
		BlogSvc:        blog.NewService(store, validate, translator),
		ContactSvc:     contact.NewService(mailer, contactEmail, validate, translator),
		AccessSvc:      accessSvc,
		Dispatcher: dispatch.NewDispatcher(registry, mailer, dispatch.ServerSide,
			dispatch.Defaults{ReplyTo: "moeno@nihongowithmoeno.com"}, nil),
	})

	rec := store.Seed(student.Table, map[string]interface{}{
		student.ColFirstName:        "Aiko",
		student.ColLastName:         "Tanaka",
		student.ColEmail:            studentEmail,
		student.ColActiveStudent:    "true",
		student.ColScheduledClasses: `[{"date":"2024-06-01T10:00:00","topic":"Keigo"}]`,
		student.ColTimezone:         "Asia/Tokyo",
	})

	return &testEnv{srv: srv, store: store, mailer: mailer, identity: ident, student: rec}
}

// signIn opens a session for an identity token and returns the session JWT.
func (env *testEnv) signIn(t *testing.T, idToken string) string {
	t.Helper()
	req, rec := newRequest(http.MethodPost, "/api/session", marchallObj(t, map[string]string{"idToken": idToken}))
	env.srv.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Data SessionResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.Token)
	return body.Data.Token
}

func (env *testEnv) do(t *testing.T, tt httpTest) *httptest.ResponseRecorder {
	t.Helper()
	req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
	env.srv.ServeHTTP(rec, req)
	return rec
}

type errorBody struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

type successBody struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

// decodeData unmarshals the envelope's data into dest.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) successBody {
	t.Helper()
	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw), rec.Body.String())
	require.True(t, raw.Success, rec.Body.String())
	if dest != nil {
		require.NoError(t, json.Unmarshal(raw.Data, dest))
	}
	return successBody{Success: raw.Success, Message: raw.Message}
}
