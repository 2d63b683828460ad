package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/skmethodistpj/laporan/core"
	"github.com/skmethodistpj/laporan/core/appstate"
	"github.com/skmethodistpj/laporan/core/assist"
	"github.com/skmethodistpj/laporan/core/report"
	"github.com/skmethodistpj/laporan/core/user"
	exportsvc "github.com/skmethodistpj/laporan/services/export"
)

var (
	errUnauthorized         = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errSessionExpired       = echo.NewHTTPError(http.StatusUnauthorized, "session expired")
	errAuthenticationFailed = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errAccountDeactivated   = echo.NewHTTPError(http.StatusForbidden, "account deactivated")
	errRefreshExpired       = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// sentinelStatuses maps domain errors, compared by cause, to their response code.
// The error text is the response message.
var sentinelStatuses = []struct {
	err  error
	code int
}{
	{report.ErrNotFound, http.StatusNotFound},
	{report.ErrUnknownKind, http.StatusBadRequest},
	{appstate.ErrNotUnconfirmed, http.StatusNotFound},
	{appstate.ErrSessionNotFound, http.StatusUnauthorized},
	{appstate.ErrUnknownView, http.StatusBadRequest},
	{appstate.ErrForbiddenView, http.StatusForbidden},
	{appstate.ErrClosed, http.StatusServiceUnavailable},
	{assist.ErrMissingTheme, http.StatusBadRequest},
	{assist.ErrUnknownField, http.StatusBadRequest},
	{assist.ErrMissingCredential, http.StatusServiceUnavailable},
	{assist.ErrGeneration, http.StatusBadGateway},
	{exportsvc.ErrNoReports, http.StatusBadRequest},
	{user.ErrNotFound, http.StatusNotFound},
	{user.ErrAuthFailure, http.StatusBadRequest},
	{user.ErrInactive, http.StatusForbidden},
}

func sentinelStatus(cause error) (int, bool) {
	for _, s := range sentinelStatuses {
		if cause == s.err {
			return s.code, true
		}
	}
	return 0, false
}

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			code = http.StatusBadRequest
			message = core.TranslateErrors(origErr, translator)
		case *core.ValidationError:
			if flds := origErr.FieldMap(); flds != nil {
				message = flds
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		default:
			if status, ok := sentinelStatus(cause); ok {
				code = status
				message = cause.Error()
				break
			}

			// any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			var usr user.User
			if claims, cErr := getContextClaims(ctx); cErr == nil {
				usr.ID = claims.Subject
				usr.Username = claims.Username
				usr.Name = claims.Name
			}
			logger.Error(msg, errors.Wrap(err, msg), usr)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug && code >= http.StatusInternalServerError {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}
