// Package identitysvc talks to the Google Identity Toolkit REST API, the backend of Firebase Auth.
package identitysvc

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
	"github.com/nihongowithmoeno/moeno/core/access"
	"github.com/nihongowithmoeno/moeno/metrics"
)

const service = "identity"

type (
	tokenRequest struct {
		IDToken string `json:"idToken"`
	}

	lookupResponse struct {
		Users []struct {
			LocalID       string `json:"localId"`
			Email         string `json:"email"`
			EmailVerified bool   `json:"emailVerified"`
			DisplayName   string `json:"displayName"`
			PhotoURL      string `json:"photoUrl"`
		} `json:"users"`
	}

	errorResponse struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
)

type Client struct {
	apiURL string
	apiKey string
	client *rest.Client
}

var _ access.IdentityProvider = (*Client)(nil)

func NewClient(conf *core.Config) *Client {
	return &Client{
		apiURL: strings.TrimRight(conf.Identity.APIURL, "/"),
		apiKey: conf.Identity.APIKey,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: 15 * time.Second}},
	}
}

// Lookup resolves an id token to the account it was issued for.
func (c *Client) Lookup(ctx context.Context, idToken string) (access.Identity, error) {
	var res lookupResponse
	if err := c.call(ctx, "accounts:lookup", idToken, &res); err != nil {
		return access.Identity{}, err
	}
	if len(res.Users) == 0 {
		return access.Identity{}, NewAuthError("USER_NOT_FOUND")
	}

	usr := res.Users[0]
	return access.Identity{
		UID:           usr.LocalID,
		Email:         core.CleanString(usr.Email, true),
		EmailVerified: usr.EmailVerified,
		DisplayName:   usr.DisplayName,
		PhotoURL:      usr.PhotoURL,
	}, nil
}

// Teardown deletes the account the id token belongs to.
func (c *Client) Teardown(ctx context.Context, idToken string) error {
	return c.call(ctx, "accounts:delete", idToken, nil)
}

func (c *Client) call(ctx context.Context, method, idToken string, dest interface{}) error {
	if c.apiKey == "" {
		return &core.UpstreamError{Service: service, Message: "Identity provider is not configured"}
	}

	body, err := json.Marshal(tokenRequest{IDToken: idToken})
	if err != nil {
		return errors.Wrap(err, "encoding identity request")
	}
	req := rest.Request{
		Method:      rest.Post,
		BaseURL:     fmt.Sprintf("%s/%s", c.apiURL, method),
		Headers:     map[string]string{"Content-Type": "application/json"},
		QueryParams: map[string]string{"key": c.apiKey},
		Body:        body,
	}

	started := time.Now()
	res, err := c.client.SendWithContext(ctx, req)
	if err != nil {
		metrics.ObserveUpstream(service, 0, started)
		return NewAuthError("auth/network-request-failed")
	}
	metrics.ObserveUpstream(service, res.StatusCode, started)

	if res.StatusCode >= http.StatusBadRequest {
		var errRes errorResponse
		if err := json.Unmarshal([]byte(res.Body), &errRes); err != nil || errRes.Error.Message == "" {
			return &core.UpstreamError{
				Service:    service,
				StatusCode: res.StatusCode,
				Message:    fmt.Sprintf("Identity API Error: %d - %s", res.StatusCode, res.Body),
				Body:       res.Body,
			}
		}
		return NewAuthError(errRes.Error.Message)
	}
	if dest == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal([]byte(res.Body), dest), "decoding identity response")
}
