package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core/access"
)

const signedOutMessage = "Signed out successfully"

type sessionApi struct {
	svc       *access.Service
	issuer    string
	secretKey string
}

func registerSessionAPI(g *echo.Group, authn []echo.MiddlewareFunc, svc *access.Service, issuer, secretKey string) {
	api := sessionApi{
		svc:       svc,
		issuer:    issuer,
		secretKey: secretKey,
	}

	g.POST("/session", api.begin)
	g.GET("/session", api.current, authn...)
	g.DELETE("/session", api.end, authn...)
}

// Handlers

func (api *sessionApi) begin(ctx echo.Context) error {
	var data SessionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SessionRequest")
	}

	sess, err := api.svc.Begin(ctx.Request().Context(), data.IDToken)
	if err != nil {
		return errors.Wrap(err, "beginning session")
	}
	token, err := GenerateToken(GetSessionClaims(sess, api.issuer), api.secretKey)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ok(ctx, http.StatusOK, SessionResponse{Token: token, Session: sess})
}

func (api *sessionApi) current(ctx echo.Context) error {
	sess, found := getContextSession(ctx)
	if !found {
		return errUnauthorized
	}
	return ok(ctx, http.StatusOK, sess)
}

func (api *sessionApi) end(ctx echo.Context) error {
	sess, found := getContextSession(ctx)
	if !found {
		return errUnauthorized
	}
	if err := api.svc.End(ctx.Request().Context(), sess.ID); err != nil {
		return errors.Wrap(err, "ending session")
	}
	return ok(ctx, http.StatusOK, nil, signedOutMessage)
}
