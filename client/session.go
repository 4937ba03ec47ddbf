package client

import (
	"context"

	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core/access"
)

// SignIn exchanges an identity provider token for a session; the session token is kept for later calls.
func (c *Client) SignIn(ctx context.Context, idToken string) (access.Session, error) {
	var res struct {
		Token   string         `json:"token"`
		Session access.Session `json:"session"`
	}
	if _, err := c.do(ctx, rest.Post, "/session", nil, map[string]string{"idToken": idToken}, &res); err != nil {
		return access.Session{}, err
	}
	c.SetToken(res.Token)
	return res.Session, nil
}

func (c *Client) Session(ctx context.Context) (access.Session, error) {
	var sess access.Session
	_, err := c.do(ctx, rest.Get, "/session", nil, nil, &sess)
	return sess, err
}

// SignOut ends the session and forgets its token, even when the server call fails.
func (c *Client) SignOut(ctx context.Context) error {
	defer c.SetToken("")
	_, err := c.do(ctx, rest.Delete, "/session", nil, nil, nil)
	return err
}
