package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/lms-api/internal/domain"
	"github.com/Clark-Hu/lms-api/internal/store"
)

var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrDuplicateEmail is returned when signing up with an email already in use.
	ErrDuplicateEmail = errors.New("repository: email already registered")
	// ErrConflict is returned when a concurrent writer kept winning a document update.
	ErrConflict = errors.New("repository: concurrent update conflict")
)

// Default page sizes for the ranked course listings.
const (
	LatestLimit      = 5
	RecommendedLimit = 5
)

// CourseOrder selects the ordering of a course listing.
type CourseOrder int

const (
	// OrderCreatedAsc returns courses in creation order.
	OrderCreatedAsc CourseOrder = iota
	// OrderNewest returns the most recently created courses first.
	OrderNewest
	// OrderTopRated returns the highest rated courses first.
	OrderTopRated
)

// CourseListOptions controls List.
type CourseListOptions struct {
	Order CourseOrder
	Limit int // 0 means no limit
}

// CourseCreateParams bundles the fields required to create a course.
type CourseCreateParams struct {
	Name        string
	Description string
}

// UserCreateParams bundles the fields required to create a user.
type UserCreateParams struct {
	Email        string
	PasswordHash string
}

// CourseRepository persists courses and their embedded reviews.
type CourseRepository interface {
	Create(ctx context.Context, params CourseCreateParams) (domain.Course, error)
	GetByID(ctx context.Context, id string) (domain.Course, error)
	List(ctx context.Context, opts CourseListOptions) ([]domain.Course, error)
	ListByIDs(ctx context.Context, ids []string) ([]domain.Course, error)
	// AppendReview adds a review and stores the recomputed rating in the same
	// document write.
	AppendReview(ctx context.Context, courseID string, review domain.Review) (domain.Course, error)
}

// UserRepository persists identity records and their favorites set.
type UserRepository interface {
	Create(ctx context.Context, params UserCreateParams) (domain.User, error)
	GetByID(ctx context.Context, id string) (domain.User, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	AddFavorite(ctx context.Context, userID, courseID string) (domain.User, error)
	RemoveFavorite(ctx context.Context, userID, courseID string) (domain.User, error)
}

// Repository aggregates all domain-specific repositories.
type Repository struct {
	Courses   CourseRepository
	Users     UserRepository
	Favorites *Favorites
}

// New constructs a Repository backed by the provided store.
func New(st *store.Store) *Repository {
	return NewWithPool(st.Pool())
}

// NewWithPool allows constructing repositories directly from a pgx pool.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return Compose(&CoursesRepository{pool: pool}, &UsersRepository{pool: pool})
}

// Compose wires arbitrary course and user repositories together.
func Compose(courses CourseRepository, users UserRepository) *Repository {
	return &Repository{
		Courses:   courses,
		Users:     users,
		Favorites: NewFavorites(courses, users),
	}
}
