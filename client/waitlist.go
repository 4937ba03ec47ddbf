package client

import (
	"context"
	"strconv"
	"strings"

	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

func (c *Client) ListWaitlist(ctx context.Context, params waitlist.ListParams) ([]waitlist.Entry, error) {
	query := map[string]string{}
	if params.MaxRecords > 0 {
		query["maxRecords"] = strconv.Itoa(params.MaxRecords)
	}
	if params.Formula != "" {
		query["filterByFormula"] = params.Formula
	}
	if len(params.Sort) > 0 {
		fields := make([]string, 0, len(params.Sort))
		for _, ord := range params.Sort {
			if ord.Ascending {
				fields = append(fields, ord.Field)
			} else {
				fields = append(fields, "-"+ord.Field)
			}
		}
		query["sort"] = strings.Join(fields, ",")
	}

	var entries []waitlist.Entry
	_, err := c.do(ctx, rest.Get, "/waitlist", query, nil, &entries)
	return entries, err
}

// JoinWaitlist is the public sign-up; it needs no session.
func (c *Client) JoinWaitlist(ctx context.Context, fields waitlist.Fields) (waitlist.Entry, error) {
	var entry waitlist.Entry
	_, err := c.do(ctx, rest.Post, "/waitlist", nil, map[string]interface{}{"fields": fields}, &entry)
	return entry, err
}

func (c *Client) UpdateWaitlistEntry(ctx context.Context, id string, fields waitlist.FieldsUpdate) (waitlist.Entry, error) {
	body := map[string]interface{}{"recordId": id, "fields": fields}
	var entry waitlist.Entry
	_, err := c.do(ctx, rest.Patch, "/waitlist", nil, body, &entry)
	return entry, err
}

func (c *Client) DeleteWaitlistEntry(ctx context.Context, id string) error {
	_, err := c.do(ctx, rest.Delete, "/waitlist", map[string]string{"recordId": id}, nil, nil)
	return err
}
