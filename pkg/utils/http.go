package utils

import (
	"github.com/clipstream/media-server/pkg/httpErrors"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/labstack/echo/v4"
)

func GetRequestID(c echo.Context) string {
	return c.Response().Header().Get(echo.HeaderXRequestID)
}

func GetIPAddress(c echo.Context) string {
	return c.Request().RemoteAddr
}

// ErrResponseWithLog logs the failed request and writes the structured error body.
func ErrResponseWithLog(c echo.Context, log logger.Logger, err error) error {
	log.Errorf("ErrResponseWithLog, RequestID: %s, IPAddress: %s, Error: %s",
		GetRequestID(c),
		GetIPAddress(c),
		err,
	)
	return c.JSON(httpErrors.ErrorResponse(err))
}
