package middleware

import (
	"fmt"
	"net/http"
	"runtime"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/gestcare/gestcare/internal/platform/auth"
	"github.com/gestcare/gestcare/internal/platform/metrics"
)

const stackSize = 4096

// Recovery turns a handler panic into a 500 and logs it with the request id,
// the patient it was serving and the matched route.
func Recovery(logger zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := make([]byte, stackSize)
				stack = stack[:runtime.Stack(stack, false)]

				route := c.Path()
				if route == "" {
					route = "unmatched"
				}
				metrics.PanicRecovered(route)

				rid, _ := c.Get("request_id").(string)
				logger.Error().
					Str("request_id", rid).
					Str("user_id", auth.UserIDFromContext(c.Request().Context())).
					Str("method", c.Request().Method).
					Str("route", route).
					Str("panic", fmt.Sprint(r)).
					Bytes("stack", stack).
					Msg("panic recovered")

				err = echo.NewHTTPError(http.StatusInternalServerError, "internal server error")
			}()
			return next(c)
		}
	}
}
