package echoapi_test

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core/access"
)

func Test_sessionApi_begin(t *testing.T) {
	env := setup(t)

	tests := []httpTest{
		{
			name:     "missing idToken",
			method:   http.MethodPost,
			path:     "/api/session",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, errorBody{Error: "Missing required field: idToken"}),
		},
		{
			name:     "invalid idToken",
			method:   http.MethodPost,
			path:     "/api/session",
			body:     []byte(`{"idToken":"forged"}`),
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errorBody{Error: "Your session has expired. Please sign in again."}),
		},
		{
			name:     "not enrolled",
			method:   http.MethodPost,
			path:     "/api/session",
			body:     marchallObj(t, map[string]string{"idToken": tokStranger}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, errorBody{Error: access.NotEnrolledMessage}),
		},
		{
			name:     "malformed body",
			method:   http.MethodPost,
			path:     "/api/session",
			body:     []byte(`{"idToken":`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(t, tt))
		})
	}

	assert.Equal(t, []string{tokStranger}, env.identity.tornDown)
}

func Test_sessionApi_lifecycle(t *testing.T) {
	env := setup(t)

	t.Run("no token", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/session", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}
		checkCodeAndData(t, tt, env.do(t, tt))
	})

	t.Run("forged token", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/api/session", token: "not.a.jwt", wantCode: http.StatusUnauthorized}
		checkCodeAndData(t, tt, env.do(t, tt))
	})

	token := env.signIn(t, tokStudent)

	t.Run("current", func(t *testing.T) {
		rec := env.do(t, httpTest{method: http.MethodGet, path: "/api/session", token: token})
		require.Equal(t, http.StatusOK, rec.Code)

		var sess access.Session
		decodeData(t, rec, &sess)
		assert.Equal(t, access.RoleStudent, sess.Role)
		require.NotNil(t, sess.Student)
		assert.Equal(t, "Aiko Tanaka", sess.Student.Name)
		assert.Equal(t, studentEmail, sess.Identity.Email)
	})

	t.Run("sign out", func(t *testing.T) {
		rec := env.do(t, httpTest{method: http.MethodDelete, path: "/api/session", token: token})
		require.Equal(t, http.StatusOK, rec.Code)
		var body successBody
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "Signed out successfully", body.Message)
	})

	t.Run("token outlives the session", func(t *testing.T) {
		tt := httpTest{
			method:   http.MethodGet,
			path:     "/api/session",
			token:    token,
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errorBody{Error: access.ExpiredMessage}),
		}
		checkCodeAndData(t, tt, env.do(t, tt))
	})
}

func Test_health(t *testing.T) {
	env := setup(t)

	tt := httpTest{
		method:   http.MethodGet,
		path:     "/health",
		wantCode: http.StatusOK,
		wantData: []byte(`{"success":true,"data":{"status":"ok","build":"test"}}`),
	}
	checkCodeAndData(t, tt, env.do(t, tt))

	rec := env.do(t, httpTest{method: http.MethodGet, path: "/metrics"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "moeno_http_requests_total")
}
