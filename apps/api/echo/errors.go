package echoapi

import (
	"fmt"
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/nihongowithmoeno/moeno/core"
	"github.com/nihongowithmoeno/moeno/core/access"
)

var (
	errUnauthorized  = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errHttpForbidden = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound  = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// errorResponse is the failure half of the envelope.
type errorResponse struct {
	Success bool              `json:"success"`
	Error   string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that renders every error in the envelope.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		if ctx.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		resp := errorResponse{}

		switch origErr := errors.Cause(err).(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				resp.Error = fmt.Sprint(origErr.Message)
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			resp.Error = fmt.Sprint(origErr.Message)
		case validator.ValidationErrors:
			resp.Fields = make(map[string]string, len(origErr))
			for i, vErr := range origErr {
				msg := vErr.Error()
				if translator != nil {
					msg = vErr.Translate(translator)
				}
				resp.Fields[vErr.Field()] = msg
				if i == 0 {
					resp.Error = msg
				}
			}
			code = http.StatusBadRequest
		case *core.ValidationError:
			if len(origErr.Fields) > 0 {
				resp.Fields = make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					resp.Fields[fErr.Field] = fErr.Error
				}
			}
			code = http.StatusBadRequest
			resp.Error = origErr.Error()
		case *core.NotFoundError:
			code = http.StatusNotFound
			resp.Error = origErr.Error()
		case *core.AuthError:
			code = origErr.Status
			if code == 0 {
				code = http.StatusUnauthorized
			}
			resp.Error = origErr.Error()
		case *core.UpstreamError:
			if origErr.IsRateLimited() {
				code = http.StatusTooManyRequests
				resp.Error = core.RateLimitMessage
				break
			}
			resp.Error = origErr.Error()
			logger.Error(resp.Error, logArgs(ctx, err)...)
		default: // any other error is a server error
			resp.Error = http.StatusText(http.StatusInternalServerError)
			logger.Error(resp.Error, logArgs(ctx, errors.Wrap(err, resp.Error))...)

			// shutting down...
			if core.IsShutdown(err) && signalShutdown != nil {
				signalShutdown()
			}
		}

		if code == http.StatusInternalServerError && ctx.Echo().Debug {
			resp.Error = err.Error()
		}

		// Send response
		if ctx.Request().Method == http.MethodHead { // Issue #608
			err = ctx.NoContent(code)
		} else {
			err = ctx.JSON(code, resp)
		}
		if err != nil {
			ctx.Echo().Logger.Error(err)
		}
	}
}

// logArgs attaches the signed-in identity, when known, to an error report.
func logArgs(ctx echo.Context, err error) []interface{} {
	if sess, ok := getContextSession(ctx); ok {
		return []interface{}{err, sess}
	}
	if claims, cErr := getContextClaims(ctx); cErr == nil {
		return []interface{}{err, access.Identity{UID: claims.Subject, Email: claims.Email}}
	}
	return []interface{}{err}
}
