package httpserver

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Clark-Hu/lms-api/internal/domain"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

type courseCreateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

type reviewRequest struct {
	Comment string   `json:"comment" validate:"max=2000"`
	Rating  *float64 `json:"rating" validate:"required,gte=0,lte=5"`
}

type courseResponse struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Rating      float64          `json:"rating"`
	Reviews     []reviewResponse `json:"reviews"`
	CreatedAt   time.Time        `json:"createdAt"`
}

type reviewResponse struct {
	Comment string  `json:"comment"`
	Rating  float64 `json:"rating"`
}

func (s *Server) handleListCourses(w http.ResponseWriter, r *http.Request) {
	s.listCourses(w, r, repository.CourseListOptions{Order: repository.OrderCreatedAsc})
}

func (s *Server) handleLatestCourses(w http.ResponseWriter, r *http.Request) {
	s.listCourses(w, r, repository.CourseListOptions{Order: repository.OrderNewest, Limit: repository.LatestLimit})
}

func (s *Server) handleRecommendedCourses(w http.ResponseWriter, r *http.Request) {
	s.listCourses(w, r, repository.CourseListOptions{Order: repository.OrderTopRated, Limit: repository.RecommendedLimit})
}

func (s *Server) listCourses(w http.ResponseWriter, r *http.Request, opts repository.CourseListOptions) {
	courses, err := s.repo.Courses.List(r.Context(), opts)
	if err != nil {
		s.logger.Error().Err(err).Msg("list courses failed")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to list courses")
		return
	}
	s.respondJSON(w, http.StatusOK, toCourseResponses(courses))
}

func (s *Server) handleGetCourse(w http.ResponseWriter, r *http.Request) {
	id, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	course, err := s.repo.Courses.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, err, "fetch course failed", "Failed to fetch course")
		return
	}
	s.respondJSON(w, http.StatusOK, toCourseResponse(course))
}

func (s *Server) handleCreateCourse(w http.ResponseWriter, r *http.Request) {
	if !s.verifyBearer(r.Header.Get("Authorization")) {
		s.respondUnauthorized(w)
		return
	}

	var req courseCreateRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	course, err := s.repo.Courses.Create(r.Context(), repository.CourseCreateParams{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("create course failed")
		s.respondError(w, http.StatusInternalServerError, codeInternal, "Failed to create course")
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/courses/%s", url.PathEscape(course.ID)))
	s.respondJSON(w, http.StatusCreated, toCourseResponse(course))
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	id, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}

	var req reviewRequest
	if err := decodeJSONBody(w, r, &req); err != nil {
		s.respondDecodeError(w, err)
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.respondValidationError(w, err)
		return
	}

	course, err := s.repo.Courses.AppendReview(r.Context(), id, domain.Review{
		Comment: strings.TrimSpace(req.Comment),
		Rating:  *req.Rating,
	})
	if err != nil {
		s.respondStoreError(w, err, "append review failed", "Failed to add review")
		return
	}
	s.metrics.ReviewAppended()
	s.respondJSON(w, http.StatusCreated, toCourseResponse(course))
}

func (s *Server) handleLikeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	user, _ := UserFromContext(r.Context())

	if _, err := s.repo.Favorites.Add(r.Context(), user.ID, id); err != nil {
		s.respondStoreError(w, err, "like course failed", "Failed to like course")
		return
	}
	s.respondMessage(w, http.StatusOK, "Course liked")
}

func (s *Server) handleUnlikeCourse(w http.ResponseWriter, r *http.Request) {
	id, err := decodeIDParam(r)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, codeBadRequest, err.Error())
		return
	}
	user, _ := UserFromContext(r.Context())

	if _, err := s.repo.Favorites.Remove(r.Context(), user.ID, id); err != nil {
		s.respondStoreError(w, err, "unlike course failed", "Failed to unlike course")
		return
	}
	s.respondMessage(w, http.StatusOK, "Course unliked")
}

func (s *Server) handleListFavorites(w http.ResponseWriter, r *http.Request) {
	user, _ := UserFromContext(r.Context())

	courses, err := s.repo.Favorites.List(r.Context(), user.ID)
	if err != nil {
		s.respondStoreError(w, err, "list favorites failed", "Failed to list favorites")
		return
	}
	s.respondJSON(w, http.StatusOK, toCourseResponses(courses))
}

// respondStoreError maps repository sentinels to HTTP errors and logs the rest.
func (s *Server) respondStoreError(w http.ResponseWriter, err error, logMsg, publicMsg string) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		s.respondError(w, http.StatusNotFound, codeNotFound, "Resource not found")
	case errors.Is(err, repository.ErrConflict):
		s.respondError(w, http.StatusConflict, codeConflict, "Resource was modified concurrently, please retry")
	default:
		s.logger.Error().Err(err).Msg(logMsg)
		s.respondError(w, http.StatusInternalServerError, codeInternal, publicMsg)
	}
}

func decodeIDParam(r *http.Request) (string, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		return "", fmt.Errorf("missing id parameter")
	}
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("invalid id parameter")
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("missing id parameter")
	}
	return id, nil
}

func toCourseResponses(courses []domain.Course) []courseResponse {
	items := make([]courseResponse, 0, len(courses))
	for _, course := range courses {
		items = append(items, toCourseResponse(course))
	}
	return items
}

func toCourseResponse(course domain.Course) courseResponse {
	reviews := make([]reviewResponse, 0, len(course.Reviews))
	for _, rv := range course.Reviews {
		reviews = append(reviews, reviewResponse{Comment: rv.Comment, Rating: rv.Rating})
	}
	return courseResponse{
		ID:          course.ID,
		Name:        course.Name,
		Description: course.Description,
		Rating:      course.Rating,
		Reviews:     reviews,
		CreatedAt:   course.CreatedAt,
	}
}
