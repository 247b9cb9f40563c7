package auth

import (
	"context"
	"net/http"
	"regexp"

	"github.com/labstack/echo/v4"
)

// ClinicIDKey holds the resolved clinic on the request context.
const ClinicIDKey contextKey = "clinic_id"

var clinicIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

// ClinicMiddleware resolves the clinic a request is scoped to. The clinic is
// resolved, not policed: a caller may name any clinic its token allows.
func ClinicMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			clinicID := extractClinicID(c)
			if clinicID == "" {
				return echo.NewHTTPError(http.StatusBadRequest, "clinic is required")
			}
			if !clinicIDPattern.MatchString(clinicID) {
				return echo.NewHTTPError(http.StatusBadRequest, "invalid clinic identifier")
			}

			ctx := context.WithValue(c.Request().Context(), ClinicIDKey, clinicID)
			c.SetRequest(c.Request().WithContext(ctx))
			c.Set("clinic_id", clinicID)
			return next(c)
		}
	}
}

func extractClinicID(c echo.Context) string {
	// 1. JWT claim (set by JWTMiddleware)
	if id, ok := c.Get("jwt_clinic_id").(string); ok && id != "" {
		return id
	}
	// 2. X-Clinic-ID header
	if id := c.Request().Header.Get("X-Clinic-ID"); id != "" {
		return id
	}
	// 3. query parameter
	return c.QueryParam("clinic_id")
}

// ClinicFromContext retrieves the clinic ID from context.
func ClinicFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ClinicIDKey).(string)
	return id
}
