package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/waitlist"
)

const (
	waitlistRetrievedMessage = "Waitlist records retrieved successfully"
	waitlistCreatedMessage   = "Record created successfully"
	waitlistUpdatedMessage   = "Record updated successfully"
	waitlistDeletedMessage   = "Record deleted successfully"
)

type waitlistApi struct {
	svc *waitlist.Service
}

func registerWaitlistAPI(g *echo.Group, admin []echo.MiddlewareFunc, svc *waitlist.Service) {
	api := waitlistApi{svc: svc}

	wg := g.Group("/waitlist")

	// un-authed endpoints
	wg.POST("", api.create)

	// admin endpoints
	wg.GET("", api.query, admin...)
	wg.PATCH("", api.update, admin...)
	wg.DELETE("", api.destroy, admin...)
}

// Handlers

func (api *waitlistApi) query(ctx echo.Context) error {
	query := new(WaitlistQuery)
	if err := query.Bind(ctx); err != nil {
		return err
	}

	entries, err := api.svc.List(ctx.Request().Context(), query.ListParams)
	if err != nil {
		return errors.Wrap(err, "querying waitlist")
	}
	return ok(ctx, http.StatusOK, entries, waitlistRetrievedMessage)
}

func (api *waitlistApi) create(ctx echo.Context) error {
	var data WaitlistCreateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WaitlistCreateRequest")
	}

	entry, err := api.svc.Create(ctx.Request().Context(), data.Fields)
	if err != nil {
		return errors.Wrap(err, "creating waitlist entry")
	}
	return ok(ctx, http.StatusCreated, entry, waitlistCreatedMessage)
}

func (api *waitlistApi) update(ctx echo.Context) error {
	var data WaitlistUpdateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to WaitlistUpdateRequest")
	}

	entry, err := api.svc.Update(ctx.Request().Context(), data.RecordID, data.Fields)
	if err != nil {
		return errors.Wrap(err, "updating waitlist entry")
	}
	return ok(ctx, http.StatusOK, entry, waitlistUpdatedMessage)
}

func (api *waitlistApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.QueryParam("recordId")); err != nil {
		return errors.Wrap(err, "deleting waitlist entry")
	}
	return ok(ctx, http.StatusOK, nil, waitlistDeletedMessage)
}
