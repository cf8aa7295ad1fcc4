package middleware

import (
	"fmt"
	"net/http"

	"github.com/Eursukkul/courier-backoffice/internal/dto"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorHandler renders every error as dto.ErrorResponse. Handlers put the full response in
// HTTPError.Message when they need "allowed" or "fields".
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		body := dto.ErrorResponse{Message: http.StatusText(code)}

		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			switch m := he.Message.(type) {
			case string:
				body.Message = m
			case dto.ErrorResponse:
				body = m
			default:
				body.Message = fmt.Sprint(m)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err))
			body = dto.ErrorResponse{Message: http.StatusText(code)}
		}

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}
