package echoapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

const (
	maxRecordsParam = "maxRecords"
	formulaParam    = "filterByFormula"
	sortParam       = "sort"
)

// WaitlistQuery binds `GET /waitlist` query parameters.
// sort is a comma separated list of columns, "-" prefixed for descending order.
type WaitlistQuery struct {
	waitlist.ListParams
}

func (q *WaitlistQuery) Bind(ctx echo.Context) error {
	if val := strings.TrimSpace(ctx.QueryParam(maxRecordsParam)); val != "" {
		n, err := strconv.Atoi(val)
		if err != nil || n <= 0 {
			return core.NewValidationError(nil, core.FieldError{
				Field: maxRecordsParam,
				Error: maxRecordsParam + " must be a positive integer",
			})
		}
		q.MaxRecords = n
	}
	q.Formula = ctx.QueryParam(formulaParam)
	q.Sort = core.ParseOrderings(ctx.QueryParam(sortParam))
	return nil
}

type (
	WaitlistCreateRequest struct {
		Fields *waitlist.Fields `json:"fields"`
	}

	WaitlistUpdateRequest struct {
		RecordID string                 `json:"recordId"`
		Fields   *waitlist.FieldsUpdate `json:"fields"`
	}

	SendEmailRequest struct {
		Template       string                 `json:"template"`
		TemplateParams map[string]interface{} `json:"templateParams"`
		dispatch.Recipient
	}

	TestEmailRequest struct {
		Template       string                 `json:"template"`
		TestTemplateID string                 `json:"testTemplateId"`
		TestParams     map[string]interface{} `json:"testParams"`
	}

	SessionRequest struct {
		IDToken string `json:"idToken"`
	}

	SessionResponse struct {
		Token   string      `json:"token"`
		Session interface{} `json:"session"`
	}
)

// stringParams flattens JSON template params; nulls are dropped. A nil map stays nil.
func stringParams(params map[string]interface{}) map[string]string {
	if params == nil {
		return nil
	}
	out := make(map[string]string, len(params))
	for key, val := range params {
		switch v := val.(type) {
		case nil:
		case string:
			out[key] = v
		default:
			out[key] = fmt.Sprint(v)
		}
	}
	return out
}
