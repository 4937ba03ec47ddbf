package client

import (
	"context"
	"net/url"

	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core/blog"
	"github.com/nihongowithmoeno/moeno/core/contact"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
)

func (c *Client) Posts(ctx context.Context) ([]blog.Post, error) {
	var posts []blog.Post
	_, err := c.do(ctx, rest.Get, "/blog", nil, nil, &posts)
	return posts, err
}

func (c *Client) Post(ctx context.Context, id string) (blog.Post, error) {
	var post blog.Post
	_, err := c.do(ctx, rest.Get, "/blog/"+url.PathEscape(id), nil, nil, &post)
	return post, err
}

func (c *Client) CreatePost(ctx context.Context, np blog.NewPost) (blog.Post, error) {
	var post blog.Post
	_, err := c.do(ctx, rest.Post, "/blog", nil, np, &post)
	return post, err
}

// Templates lists the templates the server may send.
func (c *Client) Templates(ctx context.Context) ([]dispatch.Template, error) {
	var templates []dispatch.Template
	_, err := c.do(ctx, rest.Get, "/email", nil, nil, &templates)
	return templates, err
}

// SendEmail asks the server to send a registered template.
func (c *Client) SendEmail(ctx context.Context, template string, params map[string]string, to dispatch.Recipient) (dispatch.Result, error) {
	body := map[string]interface{}{
		"template":       template,
		"templateParams": params,
		"recipientEmail": to.Email,
		"recipientName":  to.Name,
	}
	var res dispatch.Result
	_, err := c.do(ctx, rest.Post, "/email", nil, body, &res)
	return res, err
}

// TestEmail sends params to an arbitrary remote template id and returns the provider's answer.
func (c *Client) TestEmail(ctx context.Context, template, templateID string, params map[string]string) (string, error) {
	body := map[string]interface{}{
		"template":       template,
		"testTemplateId": templateID,
		"testParams":     params,
	}
	var res struct {
		ProviderResponse string `json:"providerResponse"`
	}
	_, err := c.do(ctx, rest.Put, "/email", nil, body, &res)
	return res.ProviderResponse, err
}

// Contact submits the public contact form and returns the confirmation message.
func (c *Client) Contact(ctx context.Context, sub contact.Submission) (string, error) {
	return c.do(ctx, rest.Post, "/contact", nil, sub, nil)
}
