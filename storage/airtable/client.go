// Package airtable is the RecordStore backed by the Airtable REST API.
package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sendgrid/rest"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/metrics"
)

const (
	service = "airtable"

	// Airtable never returns more than 100 records per page
	pageSize = 100
)

type (
	listResponse struct {
		Records []core.Record `json:"records"`
		Offset  string        `json:"offset"`
	}

	writeRecord struct {
		ID     string                 `json:"id,omitempty"`
		Fields map[string]interface{} `json:"fields"`
	}

	writeRequest struct {
		Records  []writeRecord `json:"records"`
		Typecast bool          `json:"typecast"`
	}

	writeResponse struct {
		Records []core.Record `json:"records"`
	}

	// the error member is either {"type", "message"} or a bare code such as "NOT_FOUND"
	errorResponse struct {
		Error json.RawMessage `json:"error"`
	}

	errorDetail struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
)

type Client struct {
	apiURL string
	baseID string
	token  string
	client *rest.Client
}

var _ core.RecordStore = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	return &Client{
		apiURL: strings.TrimRight(conf.Airtable.APIURL, "/"),
		baseID: conf.Airtable.BaseID,
		token:  conf.Airtable.AccessToken,
		client: &rest.Client{HTTPClient: &http.Client{Timeout: 30 * time.Second}},
	}
}

// Configured reports whether the base id and token are both set.
func (c *Client) Configured() bool {
	return c.baseID != "" && c.token != ""
}

func (c *Client) ListRecords(ctx context.Context, table string, opts core.ListOptions) ([]core.Record, error) {
	records := make([]core.Record, 0)
	offset := ""
	for {
		params := listParams(opts)
		if offset != "" {
			params["offset"] = offset
		}

		var page listResponse
		if err := c.do(ctx, rest.Get, c.tableURL(table), params, nil, &page); err != nil {
			return nil, err
		}
		records = append(records, page.Records...)

		if page.Offset == "" || (opts.MaxRecords > 0 && len(records) >= opts.MaxRecords) {
			break
		}
		offset = page.Offset
	}

	if opts.MaxRecords > 0 && len(records) > opts.MaxRecords {
		records = records[:opts.MaxRecords]
	}
	return records, nil
}

func (c *Client) GetRecord(ctx context.Context, table, id string) (core.Record, error) {
	var rec core.Record
	if err := c.do(ctx, rest.Get, c.recordURL(table, id), nil, nil, &rec); err != nil {
		return core.Record{}, err
	}
	return rec, nil
}

func (c *Client) CreateRecord(ctx context.Context, table string, fields map[string]interface{}) (core.Record, error) {
	body := writeRequest{Records: []writeRecord{{Fields: fields}}, Typecast: true}
	return c.write(ctx, rest.Post, table, body)
}

func (c *Client) UpdateRecord(ctx context.Context, table, id string, fields map[string]interface{}) (core.Record, error) {
	body := writeRequest{Records: []writeRecord{{ID: id, Fields: fields}}, Typecast: true}
	return c.write(ctx, rest.Patch, table, body)
}

func (c *Client) DeleteRecord(ctx context.Context, table, id string) error {
	return c.do(ctx, rest.Delete, c.recordURL(table, id), nil, nil, nil)
}

func (c *Client) write(ctx context.Context, method rest.Method, table string, body writeRequest) (core.Record, error) {
	var res writeResponse
	if err := c.do(ctx, method, c.tableURL(table), nil, body, &res); err != nil {
		return core.Record{}, err
	}
	if len(res.Records) == 0 {
		return core.Record{}, &core.UpstreamError{Service: service, Message: "Airtable returned no record"}
	}
	return res.Records[0], nil
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.apiURL, c.baseID, url.PathEscape(table))
}

func (c *Client) recordURL(table, id string) string {
	return c.tableURL(table) + "/" + url.PathEscape(id)
}

// listParams builds the list query. Values are raw: the transport encodes them exactly once.
func listParams(opts core.ListOptions) map[string]string {
	params := map[string]string{"pageSize": strconv.Itoa(pageSize)}
	if opts.Formula != "" {
		params["filterByFormula"] = opts.Formula
	}
	if opts.MaxRecords > 0 {
		params["maxRecords"] = strconv.Itoa(opts.MaxRecords)
	}
	for i, ord := range opts.Sort {
		direction := "desc"
		if ord.Ascending {
			direction = "asc"
		}
		params[fmt.Sprintf("sort[%d][field]", i)] = ord.Field
		params[fmt.Sprintf("sort[%d][direction]", i)] = direction
	}
	return params
}

func (c *Client) do(ctx context.Context, method rest.Method, u string, params map[string]string, body, dest interface{}) error {
	if !c.Configured() {
		return &core.UpstreamError{Service: service, Message: "Airtable is not configured"}
	}

	req := rest.Request{
		Method:      method,
		BaseURL:     u,
		Headers:     map[string]string{"Authorization": "Bearer " + c.token},
		QueryParams: params,
	}
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, "encoding airtable request")
		}
		req.Body = b
		req.Headers["Content-Type"] = "application/json"
	}

	started := time.Now()
	res, err := c.client.SendWithContext(ctx, req)
	if err != nil {
		metrics.ObserveUpstream(service, 0, started)
		return &core.UpstreamError{Service: service, Message: fmt.Sprintf("Airtable request failed: %v", err)}
	}
	metrics.ObserveUpstream(service, res.StatusCode, started)

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return decodeError(res)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal([]byte(res.Body), dest); err != nil {
		return errors.Wrap(err, "decoding airtable response")
	}
	return nil
}

func decodeError(res *rest.Response) error {
	var errType, msg string
	var errRes errorResponse
	if err := json.Unmarshal([]byte(res.Body), &errRes); err == nil && len(errRes.Error) > 0 {
		var detail errorDetail
		if err := json.Unmarshal(errRes.Error, &detail); err == nil {
			errType, msg = detail.Type, detail.Message
		} else {
			_ = json.Unmarshal(errRes.Error, &errType)
		}
	}

	switch {
	case res.StatusCode == http.StatusNotFound:
		return core.NewNotFoundError("Record not found")
	case res.StatusCode == http.StatusUnprocessableEntity && msg != "",
		res.StatusCode == http.StatusBadRequest && msg != "":
		return core.NewValidationMessage("%s", msg)
	}

	if msg == "" {
		msg = errType
	}
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}
	return &core.UpstreamError{
		Service:    service,
		StatusCode: res.StatusCode,
		Message:    fmt.Sprintf("Airtable API Error: %d - %s", res.StatusCode, msg),
		Body:       res.Body,
	}
}
