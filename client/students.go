package client

import (
	"context"
	"net/url"
	"strconv"

	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core/student"
)

func (c *Client) ListStudents(ctx context.Context, filter student.Filter) ([]student.Student, error) {
	query := map[string]string{}
	if filter.Email != "" {
		query["email"] = filter.Email
	}
	if filter.ActiveOnly {
		query["active"] = "true"
	}
	var students []student.Student
	_, err := c.do(ctx, rest.Get, "/students", query, nil, &students)
	return students, err
}

// Student fetches a single student; students may only fetch themselves.
func (c *Client) Student(ctx context.Context, email string) (student.Student, error) {
	var st student.Student
	_, err := c.do(ctx, rest.Get, "/students/"+url.PathEscape(email), nil, nil, &st)
	return st, err
}

func (c *Client) CreateStudent(ctx context.Context, ns student.NewStudent) (student.Student, error) {
	var st student.Student
	_, err := c.do(ctx, rest.Post, "/students", nil, ns, &st)
	return st, err
}

func (c *Client) UpdateStudent(ctx context.Context, us student.UpdateStudent) (student.Student, error) {
	var st student.Student
	_, err := c.do(ctx, rest.Patch, "/students", nil, us, &st)
	return st, err
}

// DeleteStudent clears Active Student when soft is set, otherwise deletes the record.
func (c *Client) DeleteStudent(ctx context.Context, id string, soft bool) error {
	query := map[string]string{"id": id, "softDelete": strconv.FormatBool(soft)}
	_, err := c.do(ctx, rest.Delete, "/students", query, nil, nil)
	return err
}
