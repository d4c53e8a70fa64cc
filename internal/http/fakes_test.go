package httpserver

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/Clark-Hu/lms-api/internal/domain"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

type memCourses struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.Course
}

func newMemCourses() *memCourses {
	return &memCourses{items: make(map[string]domain.Course)}
}

func (m *memCourses) Create(_ context.Context, params repository.CourseCreateParams) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	course := domain.Course{
		ID:          "course-" + strconv.Itoa(m.seq),
		Name:        params.Name,
		Description: params.Description,
		Reviews:     []domain.Review{},
		CreatedAt:   time.Unix(int64(m.seq), 0).UTC(),
	}
	m.items[course.ID] = course
	return course, nil
}

func (m *memCourses) GetByID(_ context.Context, id string) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.items[id]
	if !ok {
		return domain.Course{}, repository.ErrNotFound
	}
	return course, nil
}

func (m *memCourses) List(_ context.Context, opts repository.CourseListOptions) ([]domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.Course, 0, len(m.items))
	for _, c := range m.items {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool {
		switch opts.Order {
		case repository.OrderNewest:
			return items[i].CreatedAt.After(items[j].CreatedAt)
		case repository.OrderTopRated:
			return items[i].Rating > items[j].Rating
		default:
			return items[i].CreatedAt.Before(items[j].CreatedAt)
		}
	})
	if opts.Limit > 0 && len(items) > opts.Limit {
		items = items[:opts.Limit]
	}
	return items, nil
}

func (m *memCourses) ListByIDs(_ context.Context, ids []string) ([]domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := []domain.Course{}
	for _, id := range ids {
		if c, ok := m.items[id]; ok {
			items = append(items, c)
		}
	}
	return items, nil
}

func (m *memCourses) AppendReview(_ context.Context, courseID string, review domain.Review) (domain.Course, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	course, ok := m.items[courseID]
	if !ok {
		return domain.Course{}, repository.ErrNotFound
	}
	course.Reviews = append([]domain.Review(nil), course.Reviews...)
	course.AppendReview(review)
	m.items[courseID] = course
	return course, nil
}

type memUsers struct {
	mu    sync.Mutex
	seq   int
	items map[string]domain.User
}

func newMemUsers() *memUsers {
	return &memUsers{items: make(map[string]domain.User)}
}

func (m *memUsers) Create(_ context.Context, params repository.UserCreateParams) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == params.Email {
			return domain.User{}, repository.ErrDuplicateEmail
		}
	}
	m.seq++
	user := domain.User{
		ID:           "user-" + strconv.Itoa(m.seq),
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Favorites:    []string{},
		CreatedAt:    time.Now().UTC(),
	}
	m.items[user.ID] = user
	return user, nil
}

func (m *memUsers) GetByID(_ context.Context, id string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[id]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.items {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, repository.ErrNotFound
}

func (m *memUsers) AddFavorite(_ context.Context, userID, courseID string) (domain.User, error) {
	return m.mutate(userID, func(u *domain.User) { u.AddFavorite(courseID) })
}

func (m *memUsers) RemoveFavorite(_ context.Context, userID, courseID string) (domain.User, error) {
	return m.mutate(userID, func(u *domain.User) { u.RemoveFavorite(courseID) })
}

func (m *memUsers) mutate(userID string, fn func(*domain.User)) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.items[userID]
	if !ok {
		return domain.User{}, repository.ErrNotFound
	}
	user.Favorites = append([]string(nil), user.Favorites...)
	fn(&user)
	m.items[userID] = user
	return user, nil
}
