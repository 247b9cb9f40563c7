package lead

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	g := api.Group("/leads", auth.RequireRole(auth.RoleManager, auth.RoleReception))
	g.GET("/tags", h.ListTags)
	g.POST("/:id/tags", h.AttachTag)
	g.DELETE("/:id/tags/:tagID", h.DetachTag)
}

func clinicOf(c echo.Context) string {
	return auth.ClinicFromContext(c.Request().Context())
}

func repoError(err error) error {
	if errors.Is(err, ErrLeadNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "lead not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func (h *Handler) ListTags(c echo.Context) error {
	items, err := h.svc.ListTagAssociations(c.Request().Context(), clinicOf(c))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*TagAssociation{}
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": items})
}

type attachRequest struct {
	Tag string `json:"tag"`
}

func (h *Handler) AttachTag(c echo.Context) error {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lead id")
	}
	var req attachRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Tag == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "tag is required")
	}
	a, err := h.svc.Attach(c.Request().Context(), clinicOf(c), leadID, req.Tag)
	if err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return repoError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) DetachTag(c echo.Context) error {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid lead id")
	}
	tagID, err := uuid.Parse(c.Param("tagID"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid tag id")
	}
	if err := h.svc.Detach(c.Request().Context(), clinicOf(c), leadID, tagID); err != nil {
		return repoError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
