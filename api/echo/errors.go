package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vairaa/kazi/core"
	"github.com/vairaa/kazi/core/task"
	"github.com/vairaa/kazi/core/user"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errAuthentication = echo.NewHTTPError(http.StatusBadRequest, "authentication failed")
	errForbidden      = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errNotFound       = echo.NewHTTPError(http.StatusNotFound, "not found")
)

// httpErrorHandler renders every error as JSON. Domain sentinels map onto
// their HTTP status; anything unknown is a 500 and gets logged.
func httpErrorHandler(logger core.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		var code int
		var message interface{}

		switch terr := err.(type) {
		case *echo.HTTPError:
			if terr.Internal != nil {
				if herr, ok := terr.Internal.(*echo.HTTPError); ok {
					terr = herr
				}
			}
			code = terr.Code
			message = terr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string)
			for _, vErr := range terr {
				fldErrs[vErr.Field()] = vErr.Translate(core.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if len(terr.Fields) > 0 {
				fldErrs := make(map[string]string)
				for _, fErr := range terr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = terr.Error()
			}
			code = http.StatusBadRequest
		default:
			code, message = sentinelStatus(err)
			if code == http.StatusInternalServerError {
				logger.Error("unhandled request error: "+err.Error(), err)
				message = http.StatusText(code)
			}
		}

		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		if !c.Response().Committed {
			if c.Request().Method == http.MethodHead { // Issue #608
				err = c.NoContent(code)
			} else {
				err = c.JSON(code, message)
			}
			if err != nil {
				logger.Error("writing error response: " + err.Error())
			}
		}
	}
}

func sentinelStatus(err error) (int, interface{}) {
	switch errors.Cause(err) {
	case user.ErrNotFound, user.ErrProfileNotFound, user.ErrResetNotFound,
		task.ErrTopicNotFound, task.ErrTaskNotFound, task.ErrAssignmentNotFound:
		return http.StatusNotFound, errors.Cause(err).Error()
	case user.ErrResetExpired:
		return http.StatusGone, errors.Cause(err).Error()
	case task.ErrAlreadyAssigned:
		return http.StatusConflict, errors.Cause(err).Error()
	case user.ErrEmailExists:
		return http.StatusBadRequest, errors.Cause(err).Error()
	case core.ErrBadCredentials:
		return http.StatusBadRequest, errAuthentication.Message
	case core.ErrBadSession:
		return http.StatusUnauthorized, errUnauthorized.Message
	}
	return http.StatusInternalServerError, nil
}
