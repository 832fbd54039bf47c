package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Addisu87/bank-support-agent/internal/cqrs"
	"github.com/Addisu87/bank-support-agent/internal/handler"
	"github.com/Addisu87/bank-support-agent/internal/logging"
	"github.com/Addisu87/bank-support-agent/internal/middleware"
	"github.com/Addisu87/bank-support-agent/internal/models"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type bankDirectory struct{}

func (bankDirectory) GetBank(context.Context, cqrs.GetBankQuery) (*models.Bank, error) {
	return nil, errors.New("not configured")
}

func (bankDirectory) ListBanks(context.Context, cqrs.ListBanksQuery) ([]models.Bank, error) {
	return []models.Bank{{ID: "b1", Name: "FIRST BANK", Code: "FBK"}}, nil
}

func newTestRouter(t *testing.T, checks map[string]HealthCheck) (*gin.Engine, *middleware.TokenManager) {
	t.Helper()
	tokens, err := middleware.NewTokenManager("router-test-secret", "HS256", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenManager: %v", err)
	}
	r := NewRouter(Deps{
		Handlers: Handlers{
			Auth:         handler.NewAuthHandler(nil, nil),
			Users:        handler.NewUserHandler(nil, nil),
			Banks:        handler.NewBankHandler(nil, bankDirectory{}),
			Accounts:     handler.NewAccountHandler(nil, nil),
			Cards:        handler.NewCardHandler(nil, nil),
			Transactions: handler.NewTransactionHandler(nil, nil),
		},
		Tokens:         tokens,
		Logger:         logging.NewNoOpLogger(),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.Write([]byte("# metrics\n")) }),
		HealthChecks:   checks,
	})
	return r, tokens
}

func bearer(t *testing.T, tokens *middleware.TokenManager, superuser bool) string {
	t.Helper()
	pair, err := tokens.IssuePair("u1", "ada@example.com", superuser)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	return "Bearer " + pair.AccessToken
}

func serve(r *gin.Engine, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]HealthCheck
		wantStatus int
		wantBody   string
	}{
		{
			name:       "all dependencies up",
			checks:     map[string]HealthCheck{"postgres": func(context.Context) error { return nil }},
			wantStatus: http.StatusOK,
			wantBody:   "ok",
		},
		{
			name: "redis down",
			checks: map[string]HealthCheck{
				"postgres": func(context.Context) error { return nil },
				"redis":    func(context.Context) error { return errors.New("connection refused") },
			},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "degraded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, _ := newTestRouter(t, tt.checks)
			w := serve(r, http.MethodGet, "/health", "")
			if w.Code != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, w.Code)
			}
			var body struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("expected status %q, got %q", tt.wantBody, body.Status)
			}
			if len(body.Checks) != len(tt.checks) {
				t.Errorf("expected %d checks, got %v", len(tt.checks), body.Checks)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t, nil)
	w := serve(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "# metrics") {
		t.Errorf("unexpected metrics response %d %q", w.Code, w.Body.String())
	}
}

func TestRouteGuards(t *testing.T) {
	r, tokens := newTestRouter(t, nil)
	user := bearer(t, tokens, false)

	tests := []struct {
		name       string
		method     string
		path       string
		auth       string
		wantStatus int
	}{
		{"accounts need a token", http.MethodGet, "/api/v1/accounts", "", http.StatusUnauthorized},
		{"malformed header", http.MethodGet, "/api/v1/accounts", "Token abc", http.StatusUnauthorized},
		{"bad token", http.MethodGet, "/api/v1/cards", "Bearer not-a-jwt", http.StatusUnauthorized},
		{"change password needs a token", http.MethodPost, "/api/v1/auth/change-password", "", http.StatusUnauthorized},
		{"user list is superuser only", http.MethodGet, "/api/v1/users", user, http.StatusForbidden},
		{"bank creation is superuser only", http.MethodPost, "/api/v1/banks", user, http.StatusForbidden},
		{"bank update is superuser only", http.MethodPatch, "/api/v1/banks/b1", user, http.StatusForbidden},
		{"status transition is superuser only", http.MethodPost, "/api/v1/transactions/t1/status", user, http.StatusForbidden},
		{"transaction delete is superuser only", http.MethodDelete, "/api/v1/transactions/t1", user, http.StatusForbidden},
		{"agent disabled", http.MethodPost, "/api/v1/agent/chat", user, http.StatusServiceUnavailable},
		{"bank directory open to users", http.MethodGet, "/api/v1/banks", user, http.StatusOK},
		{"unknown route", http.MethodGet, "/api/v1/nope", user, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, tt.method, tt.path, tt.auth)
			if w.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d: %s", tt.wantStatus, w.Code, w.Body.String())
			}
		})
	}
}

func TestRefreshTokenIsNotAccessToken(t *testing.T) {
	r, tokens := newTestRouter(t, nil)
	pair, err := tokens.IssuePair("u1", "ada@example.com", false)
	if err != nil {
		t.Fatalf("IssuePair: %v", err)
	}
	w := serve(r, http.MethodGet, "/api/v1/banks", "Bearer "+pair.RefreshToken)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for refresh token, got %d", w.Code)
	}
}
