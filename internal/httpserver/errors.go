package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/accounts/internal/apperr"
	"github.com/Skotchmaster/accounts/pkg/logging"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// NewErrorHandler renders every error as {code, message}. Outside production
// the internal cause is added as detail.
func NewErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		resp := errorResponse{Code: http.StatusInternalServerError, Message: http.StatusText(http.StatusInternalServerError)}
		var cause error

		var he *echo.HTTPError
		if e, ok := apperr.As(err); ok {
			resp.Code = apperr.Status(err)
			resp.Message = e.Message
			cause = e.Cause
		} else if errors.As(err, &he) {
			resp.Code = he.Code
			resp.Message = fmt.Sprint(he.Message)
			cause = he.Internal
		} else {
			cause = err
		}

		if resp.Code >= http.StatusInternalServerError {
			logging.FromContext(c.Request().Context()).Error("request_failed", "status", resp.Code, "error", err)
			if production && resp.Code == http.StatusInternalServerError {
				resp.Message = http.StatusText(http.StatusInternalServerError)
			}
		}
		if !production && cause != nil {
			resp.Detail = cause.Error()
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(resp.Code)
		} else {
			err = c.JSON(resp.Code, resp)
		}
		if err != nil {
			logging.FromContext(c.Request().Context()).Error("write_error_response_failed", "error", err)
		}
	}
}
