package httpgin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kirinyoku/resto-go/internal/auth"
	"github.com/kirinyoku/resto-go/internal/domain"
	"github.com/kirinyoku/resto-go/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(t *testing.T, health Pinger) (http.Handler, *auth.Issuer) {
	t.Helper()
	issuer := auth.NewIssuer("test-secret", time.Hour)
	r := NewRouter(RouterDeps{
		Services: &service.Services{},
		Issuer:   issuer,
		Health:   health,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return r, issuer
}

func bearer(t *testing.T, issuer *auth.Issuer, role domain.Role) string {
	t.Helper()
	tok, err := issuer.Issue(domain.Employee{ID: 11, FullName: "Test", Role: role})
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func TestHealthz(t *testing.T) {
	t.Run("ok", func(t *testing.T) {
		r, _ := newTestRouter(t, fakePinger{})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		r, _ := newTestRouter(t, fakePinger{err: errors.New("dial tcp: refused")})
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

func TestRequestID(t *testing.T) {
	r, _ := newTestRouter(t, fakePinger{})

	t.Run("generated", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set("X-Request-ID", "req-123")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
	})
}

func TestAuthMiddleware(t *testing.T) {
	r, issuer := newTestRouter(t, fakePinger{})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized},
		{"garbage token", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"foreign signature", bearer(t, auth.NewIssuer("other", time.Hour), domain.RoleWaiter), http.StatusUnauthorized},
		{"valid token reaches handler", bearer(t, issuer, domain.RoleWaiter), http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// A non-numeric id is rejected by the handler, so an authenticated
			// request ends in 400 without touching any service.
			req := httptest.NewRequest(http.MethodGet, "/orders/abc", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireCapability(t *testing.T) {
	r, issuer := newTestRouter(t, fakePinger{})

	tests := []struct {
		name   string
		method string
		path   string
		role   domain.Role
		want   int
	}{
		{"waiter cannot mark items ready", http.MethodPost, "/kitchen/items/x/ready", domain.RoleWaiter, http.StatusForbidden},
		{"chef passes kitchen guard", http.MethodPost, "/kitchen/items/x/ready", domain.RoleChef, http.StatusBadRequest},
		{"waiter cannot read reports", http.MethodGet, "/reports/popular-dishes?limit=x", domain.RoleWaiter, http.StatusForbidden},
		{"admin passes reports guard", http.MethodGet, "/reports/popular-dishes?limit=x", domain.RoleAdministrator, http.StatusBadRequest},
		{"chef cannot manage staff", http.MethodGet, "/admin/staff", domain.RoleChef, http.StatusForbidden},
		{"waiter cannot delete staff", http.MethodDelete, "/admin/staff/3", domain.RoleWaiter, http.StatusForbidden},
		{"waiter cannot list positions", http.MethodGet, "/admin/positions", domain.RoleWaiter, http.StatusForbidden},
		{"admin passes staff guard", http.MethodPut, "/admin/staff/x", domain.RoleAdministrator, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", bearer(t, issuer, tt.role))
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.want, w.Code)

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body.Code)
		})
	}
}

func TestParamValidation(t *testing.T) {
	r, issuer := newTestRouter(t, fakePinger{})
	token := bearer(t, issuer, domain.RoleAdministrator)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/halls/0"},
		{http.MethodGet, "/tables/-4"},
		{http.MethodGet, "/tables?hall_id=abc"},
		{http.MethodGet, "/reservations/x"},
		{http.MethodGet, "/reservations?table_id=-1"},
		{http.MethodGet, "/tables/available?min_capacity=many"},
		{http.MethodGet, "/dishes?category_id=soup"},
		{http.MethodPost, "/orders/abc/close"},
		{http.MethodPatch, "/categories/soup"},
		{http.MethodDelete, "/dishes/0"},
		{http.MethodGet, "/admin/staff/-2"},
		{http.MethodDelete, "/admin/staff/x"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}
