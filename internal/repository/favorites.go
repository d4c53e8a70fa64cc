package repository

import (
	"context"

	"github.com/Clark-Hu/lms-api/internal/domain"
)

// Favorites manages the per-user set of liked courses on top of the course
// and user stores.
type Favorites struct {
	courses CourseRepository
	users   UserRepository
}

// NewFavorites constructs a favorites manager.
func NewFavorites(courses CourseRepository, users UserRepository) *Favorites {
	return &Favorites{courses: courses, users: users}
}

// Add marks courseID as a favorite of userID. The course must exist; adding
// an existing favorite is a no-op.
func (f *Favorites) Add(ctx context.Context, userID, courseID string) (domain.User, error) {
	if _, err := f.courses.GetByID(ctx, courseID); err != nil {
		return domain.User{}, err
	}
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if user.HasFavorite(courseID) {
		return user, nil
	}
	return f.users.AddFavorite(ctx, userID, courseID)
}

// Remove drops courseID from the favorites of userID. Removing a course that
// is not a favorite is a no-op.
func (f *Favorites) Remove(ctx context.Context, userID, courseID string) (domain.User, error) {
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, err
	}
	if !user.HasFavorite(courseID) {
		return user, nil
	}
	return f.users.RemoveFavorite(ctx, userID, courseID)
}

// List resolves the favorites of userID to full course records. Order follows
// the store and is not guaranteed.
func (f *Favorites) List(ctx context.Context, userID string) ([]domain.Course, error) {
	user, err := f.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return f.courses.ListByIDs(ctx, user.Favorites)
}
