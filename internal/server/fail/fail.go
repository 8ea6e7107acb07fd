package fail

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Fail logs the detailed message and responds with nothing but the status text,
// so that the internal details (e.g. origin errors) never reach the requester.
func Fail(c echo.Context, status int, format string, args ...interface{}) error {
	message := fmt.Sprintf(format, args...)

	logger := zap.L().With(
		zap.String("method", c.Request().Method),
		zap.String("path", c.Request().URL.Path),
		zap.Int("status_code", status),
	)

	if status >= http.StatusInternalServerError {
		logger.Error(message)
	} else {
		logger.Warn(message)
	}

	return c.String(status, http.StatusText(status))
}
