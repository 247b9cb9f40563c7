package middleware

import (
	"context"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey string

const requestIDKey ctxKey = "request_id"

func RequestIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// RequestID makes sure every request carries an X-Request-ID, generating a
// uuid when the caller sent none, and echoes it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			rid := req.Header.Get(RequestIDHeader)
			if rid == "" {
				rid = uuid.New().String()
				req.Header.Set(RequestIDHeader, rid)
			}
			c.Response().Header().Set(RequestIDHeader, rid)
			c.Set("request_id", rid)
			c.SetRequest(req.WithContext(context.WithValue(req.Context(), requestIDKey, rid)))
			return next(c)
		}
	}
}
