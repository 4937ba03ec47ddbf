package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/dispatch"
)

const (
	templatesRetrievedMessage = "Available email templates retrieved successfully"
	testEmailSentMessage      = "Test email sent successfully"
)

type emailApi struct {
	dispatcher *dispatch.Dispatcher
}

func registerEmailAPI(g *echo.Group, admin []echo.MiddlewareFunc, dispatcher *dispatch.Dispatcher) {
	api := emailApi{dispatcher: dispatcher}

	eg := g.Group("/email")
	eg.GET("", api.templates, admin...)
	eg.POST("", api.send, admin...)
	eg.PUT("", api.testSend, admin...)
}

// Handlers

// templates lists the templates, or describes the one named by ?template=.
func (api *emailApi) templates(ctx echo.Context) error {
	if key := ctx.QueryParam("template"); key != "" {
		tmpl, err := api.dispatcher.Template(key)
		if err != nil {
			return errors.Wrap(err, "getting template")
		}
		return ok(ctx, http.StatusOK, tmpl)
	}
	return ok(ctx, http.StatusOK, api.dispatcher.Templates(), templatesRetrievedMessage)
}

func (api *emailApi) send(ctx echo.Context) error {
	var data SendEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SendEmailRequest")
	}

	res, err := api.dispatcher.Send(ctx.Request().Context(), data.Template, stringParams(data.TemplateParams), data.Recipient)
	if err != nil {
		return errors.Wrap(err, "sending email")
	}
	return ok(ctx, http.StatusOK, res, res.Message)
}

func (api *emailApi) testSend(ctx echo.Context) error {
	var data TestEmailRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TestEmailRequest")
	}
	if core.CleanString(data.Template) == "" {
		return dispatch.ErrTemplateIDRequired
	}

	resp, err := api.dispatcher.TestSend(ctx.Request().Context(), data.TestTemplateID, stringParams(data.TestParams))
	if err != nil {
		return errors.Wrap(err, "test sending email")
	}
	return ok(ctx, http.StatusOK, echo.Map{
		"templateId":       data.TestTemplateID,
		"providerResponse": resp,
	}, testEmailSentMessage)
}
