package emailsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/metrics"
)

const (
	emailJSService  = "emailjs"
	emailJSEndpoint = "/api/v1.0/email/send"

	// EmailJS rejects server-side calls that do not look like they come from a browser
	serverUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

type emailJSPayload struct {
	ServiceID      string            `json:"service_id"`
	TemplateID     string            `json:"template_id"`
	UserID         string            `json:"user_id"`
	AccessToken    string            `json:"accessToken,omitempty"`
	TemplateParams map[string]string `json:"template_params"`
}

// EmailJS sends provider-side templates through the EmailJS REST API.
// In browser mode the private key is never sent, matching what a public client can hold.
type EmailJS struct {
	apiURL     string
	serviceID  string
	publicKey  string
	privateKey string
	origin     string
	browser    bool
	client     *rest.Client
}

// NewEmailJS returns the server mode provider, authenticated with the private key.
func NewEmailJS(conf *core.Config) *EmailJS {
	return &EmailJS{
		apiURL:     strings.TrimRight(conf.EmailJS.APIURL, "/"),
		serviceID:  conf.EmailJS.ServiceID,
		publicKey:  conf.EmailJS.PublicKey,
		privateKey: conf.EmailJS.PrivateKey,
		origin:     conf.EmailJS.Origin,
		client:     &rest.Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}},
	}
}

// NewEmailJSBrowser returns the public-key-only provider used by client dashboards.
func NewEmailJSBrowser(conf *core.Config) *EmailJS {
	svc := NewEmailJS(conf)
	svc.privateKey = ""
	svc.browser = true
	return svc
}

func (svc *EmailJS) configured() bool {
	if svc.serviceID == "" || svc.publicKey == "" {
		return false
	}
	return svc.browser || svc.privateKey != ""
}

func (svc *EmailJS) SendTemplate(ctx context.Context, templateID string, params map[string]string) (string, error) {
	if !svc.configured() {
		return "", &core.UpstreamError{Service: emailJSService, Message: "EmailJS is not configured"}
	}

	body, err := json.Marshal(emailJSPayload{
		ServiceID:      svc.serviceID,
		TemplateID:     templateID,
		UserID:         svc.publicKey,
		AccessToken:    svc.privateKey,
		TemplateParams: params,
	})
	if err != nil {
		return "", errors.Wrap(err, "encoding emailjs payload")
	}

	req := rest.Request{
		Method:  rest.Post,
		BaseURL: svc.apiURL + emailJSEndpoint,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    body,
	}
	if !svc.browser {
		req.Headers["User-Agent"] = serverUserAgent
		req.Headers["Referer"] = svc.origin
		req.Headers["Origin"] = svc.origin
	}

	started := time.Now()
	res, err := svc.client.SendWithContext(ctx, req)
	if err != nil {
		metrics.ObserveUpstream(emailJSService, 0, started)
		return "", &core.UpstreamError{Service: emailJSService, Message: fmt.Sprintf("EmailJS request failed: %v", err)}
	}
	metrics.ObserveUpstream(emailJSService, res.StatusCode, started)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", &core.UpstreamError{
			Service:    emailJSService,
			StatusCode: res.StatusCode,
			Message:    fmt.Sprintf("EmailJS API Error: %d - %s", res.StatusCode, res.Body),
			Body:       res.Body,
		}
	}
	return res.Body, nil
}
