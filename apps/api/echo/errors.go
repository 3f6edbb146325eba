package echoapi

import (
	"net/http"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/engsoc/core"
	"github.com/trezcool/engsoc/core/async"
	"github.com/trezcool/engsoc/core/competition"
	"github.com/trezcool/engsoc/core/event"
	"github.com/trezcool/engsoc/core/member"
	"github.com/trezcool/engsoc/core/notification"
	"github.com/trezcool/engsoc/core/portal"
	"github.com/trezcool/engsoc/core/resource"
	"github.com/trezcool/engsoc/core/team"
	"github.com/trezcool/engsoc/core/upload"
	"github.com/trezcool/engsoc/core/wizard"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "member not authenticated")
	errRefreshExpired = echo.NewHTTPError(http.StatusForbidden, "refresh has expired")
	errHttpForbidden  = echo.NewHTTPError(http.StatusForbidden, "permission denied")

	// status codes of the domain errors; the message is the error's
	domainErrorCodes = map[error]int{
		member.ErrAuthenticationFailed: http.StatusBadRequest,
		member.ErrAccountDeactivated:   http.StatusForbidden,
		member.ErrNotFound:             http.StatusNotFound,

		event.ErrNotFound:           http.StatusNotFound,
		event.ErrAlreadyRegistered:  http.StatusConflict,
		event.ErrRegistrationClosed: http.StatusBadRequest,

		resource.ErrNotFound: http.StatusNotFound,

		competition.ErrNotFound:           http.StatusNotFound,
		competition.ErrDeadlineNotFound:   http.StatusNotFound,
		competition.ErrSubmissionNotFound: http.StatusNotFound,
		competition.ErrDeadlinePassed:     http.StatusBadRequest,
		competition.ErrNoFiles:            http.StatusBadRequest,

		team.ErrNotFound:        http.StatusNotFound,
		team.ErrMemberNotFound:  http.StatusNotFound,
		team.ErrInviteNotFound:  http.StatusNotFound,
		team.ErrNotLeader:       http.StatusForbidden,
		team.ErrRemoveLeader:    http.StatusBadRequest,
		team.ErrInviteNotActive: http.StatusBadRequest,

		notification.ErrNotFound: http.StatusNotFound,

		portal.ErrScreenNotFound: http.StatusNotFound,
		portal.ErrNoUploads:      http.StatusBadRequest,
		upload.ErrTaskNotFound:   http.StatusNotFound,
		wizard.ErrBusy:           http.StatusConflict,
		wizard.ErrTerminal:       http.StatusConflict,
		async.ErrScopeClosed:     http.StatusConflict,
	}
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(logger core.Logger, translator ut.Translator, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if c, ok := domainErrorCode(cause); ok {
			code = c
			message = cause.Error()
		} else {
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
				fldErrs := make(map[string]string, len(origErr))
				for _, vErr := range origErr {
					fldErrs[vErr.Field()] = vErr.Translate(translator)
				}
				code = http.StatusBadRequest
				message = fldErrs
			case *core.ValidationError:
				if origErr.Fields != nil {
					message = origErr.FieldsMap()
				} else {
					message = origErr.Error()
				}
				code = http.StatusBadRequest
			case *upload.RejectedError:
				code = http.StatusBadRequest
				message = map[string]string{"files": origErr.Reason}
			default: // any other error is a server error
				code = http.StatusInternalServerError
				msg := http.StatusText(http.StatusInternalServerError)
				message = msg

				var m member.Member
				if claims, cErr := getContextClaims(ctx); cErr == nil {
					m.ID = claims.Subject
					m.MemberID = claims.MemberID
					m.Email = claims.Email
				}
				logger.Error(msg, errors.Wrap(err, msg), m)

				// shutting down...
				if core.IsShutdown(err) && signalShutdown != nil {
					signalShutdown()
				}
			}
		}

		if ctx.Echo().Debug && code == http.StatusInternalServerError {
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

// domainErrorCode compares instead of indexing the map: some error types are not hashable.
func domainErrorCode(err error) (int, bool) {
	for target, code := range domainErrorCodes {
		if err == target {
			return code, true
		}
	}
	return 0, false
}
