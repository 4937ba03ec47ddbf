package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/contact"
)

type contactApi struct {
	svc *contact.Service
}

func registerContactAPI(g *echo.Group, svc *contact.Service) {
	api := contactApi{svc: svc}
	g.POST("/contact", api.submit)
}

func (api *contactApi) submit(ctx echo.Context) error {
	var data contact.Submission
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to Submission")
	}
	if err := api.svc.Submit(ctx.Request().Context(), data); err != nil {
		return errors.Wrap(err, "submitting contact form")
	}
	return ok(ctx, http.StatusOK, nil, contact.SentMessage)
}
