package insights

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/agenda/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/insights", h.Get, auth.RequireRole(auth.RoleManager))
}

func (h *Handler) Get(c echo.Context) error {
	ctx := c.Request().Context()
	sum, err := h.svc.Summary(ctx, auth.ClinicFromContext(ctx))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, sum)
}
