package agenda

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/clinicops/agenda/internal/platform/auth"
)

// Exporter writes events as an iCalendar document.
type Exporter func(w io.Writer, name string, events []CalendarEvent) error

type Handler struct {
	svc    *Service
	export Exporter
}

// NewHandler creates the agenda handler. export may be nil, which disables
// the .ics download.
func NewHandler(svc *Service, export Exporter) *Handler {
	return &Handler{svc: svc, export: export}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/agenda", auth.RequireRole(auth.RoleManager, auth.RoleReception))
	g.GET("", h.Navigate)
	g.POST("/refresh", h.Refresh)
	g.GET("/days/:day", h.Day)
	g.GET("/export.ics", h.Export)

	g.POST("/events", h.CreateEvent)
	g.PATCH("/events/:id", h.UpdateEvent)
	g.POST("/events/:id/select-delete", h.SelectDelete)
	g.POST("/delete/confirm", h.ConfirmDelete)
	g.DELETE("/delete", h.CancelDelete)
}

func scopeOf(c echo.Context) Scope {
	ctx := c.Request().Context()
	return Scope{ClinicID: auth.ClinicFromContext(ctx), UserID: auth.UserIDFromContext(ctx)}
}

// httpError maps agenda errors onto HTTP statuses.
func httpError(err error) *echo.HTTPError {
	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ve.Error())
	case IsFetch(err):
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	case errors.Is(err, ErrBusy), errors.Is(err, ErrNoPendingDelete), errors.Is(err, ErrSuperseded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrEventNotLoaded):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// boardResponse writes the board. A failed fetch still returns the previous
// events, with a 502 so the client can show the warning.
func boardResponse(c echo.Context, b *Board, err error) error {
	if err != nil && b == nil {
		return httpError(err)
	}
	if err != nil {
		return c.JSON(httpError(err).Code, b)
	}
	return c.JSON(http.StatusOK, b)
}

// Navigate accepts a 1-based month; both parameters default to today.
func (h *Handler) Navigate(c echo.Context) error {
	now := h.svc.now().In(h.svc.Location())
	year, month := now.Year(), int(now.Month())
	if v := c.QueryParam("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid year")
		}
		year = n
	}
	if v := c.QueryParam("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 12 {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be 1-12")
		}
		month = n
	}
	b, err := h.svc.Navigate(c.Request().Context(), scopeOf(c), year, month-1)
	return boardResponse(c, b, err)
}

func (h *Handler) Refresh(c echo.Context) error {
	b, err := h.svc.Refresh(c.Request().Context(), scopeOf(c))
	return boardResponse(c, b, err)
}

func (h *Handler) Day(c echo.Context) error {
	day, err := strconv.Atoi(c.Param("day"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid day")
	}
	events, err := h.svc.Day(scopeOf(c), day)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"day": day, "events": events})
}

func (h *Handler) CreateEvent(c echo.Context) error {
	var req CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Create(c.Request().Context(), scopeOf(c), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) UpdateEvent(c echo.Context) error {
	var req UpdateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.Update(c.Request().Context(), scopeOf(c), c.Param("id"), c.QueryParam("calendar_id"), req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) SelectDelete(c echo.Context) error {
	ev, err := h.svc.SelectForDeletion(scopeOf(c), c.Param("id"), c.QueryParam("calendar_id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"pending_delete": ev})
}

func (h *Handler) ConfirmDelete(c echo.Context) error {
	res, err := h.svc.ConfirmDelete(c.Request().Context(), scopeOf(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) CancelDelete(c echo.Context) error {
	h.svc.CancelDelete(scopeOf(c))
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Export(c echo.Context) error {
	if h.export == nil {
		return echo.NewHTTPError(http.StatusNotImplemented, "export is not configured")
	}
	sc := scopeOf(c)
	rng, events := h.svc.Window(sc)
	if rng.Start.IsZero() {
		return echo.NewHTTPError(http.StatusConflict, "no window loaded")
	}
	var buf bytes.Buffer
	if err := h.export(&buf, "agenda-"+sc.ClinicID, events); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	name := fmt.Sprintf("agenda-%s-%s.ics", sc.ClinicID, rng.Start.Format("20060102"))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
