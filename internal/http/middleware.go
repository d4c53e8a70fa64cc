package httpserver

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Clark-Hu/lms-api/internal/domain"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

type userContextKey struct{}

// UserFromContext returns the user attached by requireUser.
func UserFromContext(ctx context.Context) (domain.User, bool) {
	user, ok := ctx.Value(userContextKey{}).(domain.User)
	return user, ok
}

func withUser(ctx context.Context, user domain.User) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// requireUser authenticates a bearer token and loads its subject. Every
// rejection produces the same 401 body; the reason is only logged and counted.
func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			s.rejectAuth(w, r, "missing_token", nil)
			return
		}

		userID, err := s.tokens.Verify(token)
		if err != nil {
			s.rejectAuth(w, r, "invalid_token", err)
			return
		}

		user, err := s.repo.Users.GetByID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				s.rejectAuth(w, r, "unknown_subject", nil)
				return
			}
			s.logger.Error().Err(err).Str("user_id", userID).Msg("load authenticated user failed")
			s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to authenticate request")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
	})
}

func (s *Server) rejectAuth(w http.ResponseWriter, r *http.Request, reason string, err error) {
	s.metrics.AuthFailure(reason)
	s.logger.Debug().
		Err(err).
		Str("reason", reason).
		Str("request_id", middleware.GetReqID(r.Context())).
		Msg("request rejected by auth gate")
	s.respondUnauthorized(w)
}

// verifyBearer checks the static admin token used for catalogue management.
func (s *Server) verifyBearer(header string) bool {
	if s.cfg.AdminToken == "" {
		return false
	}
	token, ok := bearerToken(header)
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.AdminToken)) == 1
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return token, token != ""
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			s.logger.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("request")
		}()
		next.ServeHTTP(ww, r)
	})
}
