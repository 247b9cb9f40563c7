package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestClinicMiddleware_Resolution(t *testing.T) {
	tests := []struct {
		name   string
		claim  string
		header string
		query  string
		want   string
	}{
		{"jwt claim wins", "clinic-jwt", "clinic-header", "clinic-query", "clinic-jwt"},
		{"header before query", "", "clinic-header", "clinic-query", "clinic-header"},
		{"query fallback", "", "", "clinic-query", "clinic-query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			target := "/"
			if tt.query != "" {
				target += "?clinic_id=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("X-Clinic-ID", tt.header)
			}
			c := e.NewContext(req, httptest.NewRecorder())
			if tt.claim != "" {
				c.Set("jwt_clinic_id", tt.claim)
			}

			var got, gotCtx string
			handler := func(c echo.Context) error {
				got, _ = c.Get("clinic_id").(string)
				gotCtx = ClinicFromContext(c.Request().Context())
				return nil
			}
			if err := ClinicMiddleware()(handler)(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want || gotCtx != tt.want {
				t.Errorf("expected %s, got %s / %s", tt.want, got, gotCtx)
			}
		})
	}
}

func TestClinicMiddleware_Rejects(t *testing.T) {
	for name, header := range map[string]string{
		"missing": "",
		"invalid": "clinic/../../etc",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("X-Clinic-ID", header)
			}
			c := echo.New().NewContext(req, httptest.NewRecorder())

			called := false
			err := ClinicMiddleware()(func(echo.Context) error { called = true; return nil })(c)
			httpErr, ok := err.(*echo.HTTPError)
			if !ok || httpErr.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %v", err)
			}
			if called {
				t.Error("handler must not run without a clinic")
			}
		})
	}
}

func TestClinicFromContext_Empty(t *testing.T) {
	if id := ClinicFromContext(context.Background()); id != "" {
		t.Errorf("expected empty clinic, got %s", id)
	}
}
