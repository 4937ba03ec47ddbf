package echoapi

import (
	"net/url"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/metrics"
)

func adminMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, ok := getContextSession(ctx)
		if !ok {
			return errors.Wrap(errUnauthorized, "getting context session")
		}
		if sess.IsAdmin() {
			return next(ctx)
		}
		return errHttpForbidden
	}
}

// adminOrOwnerMiddleware lets admins through, and students reading their own record.
func adminOrOwnerMiddleware(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, ok := getContextSession(ctx)
			if !ok {
				return errors.Wrap(errUnauthorized, "getting context session")
			}
			email, err := url.PathUnescape(ctx.Param(param))
			if err != nil {
				return errHttpNotFound
			}
			if sess.IsAdmin() || sess.Owns(email) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// metricsMiddleware counts requests per route and final status.
// Errors are rendered here so that the status is known.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if err := next(ctx); err != nil {
			ctx.Error(err)
		}
		metrics.HTTPRequestsTotal.
			WithLabelValues(ctx.Request().Method, ctx.Path(), strconv.Itoa(ctx.Response().Status)).
			Inc()
		return nil
	}
}
