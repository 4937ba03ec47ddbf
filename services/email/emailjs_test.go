package emailsvc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nihongowithmoeno/moeno/core"
)

type capturedRequest struct {
	path    string
	header  http.Header
	payload map[string]interface{}
}

func newEmailJSServer(t *testing.T, status int, body string) (*httptest.Server, *[]capturedRequest) {
	t.Helper()
	var captured []capturedRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		captured = append(captured, capturedRequest{path: r.URL.Path, header: r.Header.Clone(), payload: payload})
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &captured
}

func emailJSConfig(apiURL string) *core.Config {
	conf := new(core.Config)
	conf.EmailJS.APIURL = apiURL
	conf.EmailJS.ServiceID = "service_moeno"
	conf.EmailJS.PublicKey = "pub_key"
	conf.EmailJS.PrivateKey = "priv_key"
	conf.EmailJS.Origin = "https://nihongowithmoeno.com"
	return conf
}

func TestEmailJS_SendTemplate(t *testing.T) {
	ctx := context.Background()
	params := map[string]string{"to_email": "a@b.co", "to_name": "Aiko"}

	t.Run("server mode", func(t *testing.T) {
		srv, captured := newEmailJSServer(t, http.StatusOK, "OK")
		svc := NewEmailJS(emailJSConfig(srv.URL + "/"))

		resp, err := svc.SendTemplate(ctx, "template_welcome", params)
		require.NoError(t, err)
		assert.Equal(t, "OK", resp)

		require.Len(t, *captured, 1)
		req := (*captured)[0]
		assert.Equal(t, "/api/v1.0/email/send", req.path)
		assert.Equal(t, "https://nihongowithmoeno.com", req.header.Get("Origin"))
		assert.Equal(t, "https://nihongowithmoeno.com", req.header.Get("Referer"))
		assert.Contains(t, req.header.Get("User-Agent"), "Mozilla/5.0")
		assert.Equal(t, "service_moeno", req.payload["service_id"])
		assert.Equal(t, "template_welcome", req.payload["template_id"])
		assert.Equal(t, "pub_key", req.payload["user_id"])
		assert.Equal(t, "priv_key", req.payload["accessToken"])
		assert.Equal(t, map[string]interface{}{"to_email": "a@b.co", "to_name": "Aiko"}, req.payload["template_params"])
	})

	t.Run("browser mode", func(t *testing.T) {
		srv, captured := newEmailJSServer(t, http.StatusOK, "OK")
		svc := NewEmailJSBrowser(emailJSConfig(srv.URL))

		_, err := svc.SendTemplate(ctx, "template_welcome", params)
		require.NoError(t, err)

		require.Len(t, *captured, 1)
		assert.NotContains(t, (*captured)[0].payload, "accessToken")
		assert.Empty(t, (*captured)[0].header.Get("Referer"))
	})

	t.Run("api error", func(t *testing.T) {
		srv, _ := newEmailJSServer(t, http.StatusBadRequest, "The template ID is invalid")
		svc := NewEmailJS(emailJSConfig(srv.URL))

		_, err := svc.SendTemplate(ctx, "template_nope", params)
		require.Error(t, err)
		assert.Equal(t, "EmailJS API Error: 400 - The template ID is invalid", err.Error())
		uErr, ok := err.(*core.UpstreamError)
		require.True(t, ok)
		assert.Equal(t, "The template ID is invalid", uErr.Body)
	})

	t.Run("rate limited", func(t *testing.T) {
		srv, _ := newEmailJSServer(t, http.StatusTooManyRequests, "Too Many Requests")
		svc := NewEmailJS(emailJSConfig(srv.URL))

		_, err := svc.SendTemplate(ctx, "template_welcome", params)
		require.Error(t, err)
		assert.True(t, core.IsRateLimited(err))
		assert.Equal(t, core.RateLimitMessage, err.Error())
	})

	t.Run("not configured", func(t *testing.T) {
		conf := emailJSConfig("http://127.0.0.1:1")
		conf.EmailJS.PrivateKey = ""
		_, err := NewEmailJS(conf).SendTemplate(ctx, "template_welcome", params)
		require.Error(t, err)
		assert.Equal(t, "EmailJS is not configured", err.Error())
	})
}
