package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"github.com/Clark-Hu/lms-api/internal/auth"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

// bcrypt rejects passwords longer than 72 bytes.
type credentialsRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,maxbytes=72"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return req, false
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return req, false
	}
	return req, true
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := s.hasher.Hash(req.Password)
	if errors.Is(err, auth.ErrPasswordTooLong) {
		s.respondError(w, http.StatusUnprocessableEntity, codeValidation, "password must be at most 72 bytes")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("hash password failed")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to create user")
		return
	}

	if _, err := s.repo.Users.Create(r.Context(), repository.UserCreateParams{
		Email:        req.Email,
		PasswordHash: hash,
	}); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			s.respondError(w, http.StatusConflict, codeConflict, "Email is already registered")
			return
		}
		s.logger.Error().Err(err).Msg("create user failed")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to create user")
		return
	}
	s.respondMessage(w, http.StatusCreated, "User created successfully")
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := s.repo.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error().Err(err).Msg("lookup user for login failed")
			s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to log in")
			return
		}
		_ = s.hasher.Check(s.dummyHash, req.Password)
		s.rejectLogin(w)
		return
	}
	if err := s.hasher.Check(user.PasswordHash, req.Password); err != nil {
		s.rejectLogin(w)
		return
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		s.logger.Error().Err(err).Msg("issue token failed")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to log in")
		return
	}
	s.respondJSON(w, http.StatusOK, tokenResponse{Token: token})
}

func (s *Server) rejectLogin(w http.ResponseWriter) {
	s.metrics.AuthFailure("invalid_credentials")
	s.respondError(w, http.StatusUnauthorized, codeUnauthorized, "Invalid credentials")
}
