package httpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Clark-Hu/lms-api/internal/auth"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

func newForeignToken(tb testing.TB, userID string) (string, error) {
	tb.Helper()
	mgr, err := auth.NewTokenManager("ffffffffffffffffffffffffffffffff", time.Hour)
	if err != nil {
		return "", err
	}
	return mgr.Issue(userID)
}

func TestAuthGateRejectionsShareOneBody(t *testing.T) {
	srv, _, _ := buildMemoryServer(t, testConfig())

	foreign, err := newForeignToken(t, "user-1")
	if err != nil {
		t.Fatalf("foreign token: %v", err)
	}
	ghost, _ := newTokens(t).Issue("no-such-user")

	headers := map[string]string{
		"missing":      "",
		"wrong scheme": "Basic abc",
		"empty bearer": "Bearer ",
		"garbage":      "Bearer nonsense",
		"wrong secret": "Bearer " + foreign,
		"unknown user": "Bearer " + ghost,
		"admin token":  "Bearer " + testAdminToken,
	}

	var first string
	for name, header := range headers {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/courses/me/favorites", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			body := strings.TrimSpace(rec.Body.String())
			if first == "" {
				first = body
			}
			if body != first {
				t.Fatalf("body %q differs from %q", body, first)
			}
			if !strings.Contains(body, msgUnauthenticated) {
				t.Fatalf("body %q missing message", body)
			}
		})
	}
}

func TestRequireUserAttachesUser(t *testing.T) {
	srv, _, users := buildMemoryServer(t, testConfig())
	user, err := users.Create(context.Background(), repository.UserCreateParams{Email: "ctx@x.com", PasswordHash: "x"})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	token, err := srv.tokens.Issue(user.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen string
	handler := srv.requireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok {
			t.Fatalf("user missing from context")
		}
		seen = u.Email
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || seen != "ctx@x.com" {
		t.Fatalf("status = %d seen = %q", rec.Code, seen)
	}
}

func TestVerifyBearer(t *testing.T) {
	srv, _, _ := buildMemoryServer(t, testConfig())
	if !srv.verifyBearer("Bearer " + testAdminToken) {
		t.Fatalf("admin token rejected")
	}
	for _, h := range []string{"", "Bearer", "Bearer ", "bearer " + testAdminToken, "Bearer nope"} {
		if srv.verifyBearer(h) {
			t.Fatalf("header %q accepted", h)
		}
	}

	srv.cfg.AdminToken = ""
	if srv.verifyBearer("Bearer ") {
		t.Fatalf("empty admin token must never match")
	}
}
