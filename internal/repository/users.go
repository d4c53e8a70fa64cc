package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/lms-api/internal/domain"
)

const uniqueViolation = "23505"

// UsersRepository provides postgres persistence for users.
type UsersRepository struct {
	pool *pgxpool.Pool
}

const userColumns = `
    id,
    email,
    password_hash,
    favorites,
    created_at
`

// Create inserts a new user. A taken email yields ErrDuplicateEmail.
func (r *UsersRepository) Create(ctx context.Context, params UserCreateParams) (domain.User, error) {
	query := fmt.Sprintf(`
        INSERT INTO users (id, email, password_hash, favorites, created_at)
        VALUES ($1, $2, $3, '{}', $4)
        RETURNING %s
    `, userColumns)

	user, err := scanUser(r.pool.QueryRow(ctx, query, uuid.NewString(), params.Email, params.PasswordHash, time.Now().UTC()))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.User{}, ErrDuplicateEmail
		}
		return domain.User{}, err
	}
	return user, nil
}

// GetByID fetches a user by identifier.
func (r *UsersRepository) GetByID(ctx context.Context, id string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE id = $1`, userColumns)
	return r.getOne(ctx, query, id)
}

// GetByEmail fetches a user by email.
func (r *UsersRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users WHERE email = $1`, userColumns)
	return r.getOne(ctx, query, email)
}

// AddFavorite adds courseID to the favorites set unless it is already present.
func (r *UsersRepository) AddFavorite(ctx context.Context, userID, courseID string) (domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users
        SET favorites = CASE
                WHEN $2::text = ANY(favorites) THEN favorites
                ELSE array_append(favorites, $2::text)
            END
        WHERE id = $1
        RETURNING %s
    `, userColumns)
	return r.getOne(ctx, query, userID, courseID)
}

// RemoveFavorite drops every occurrence of courseID from the favorites set.
func (r *UsersRepository) RemoveFavorite(ctx context.Context, userID, courseID string) (domain.User, error) {
	query := fmt.Sprintf(`
        UPDATE users
        SET favorites = array_remove(favorites, $2::text)
        WHERE id = $1
        RETURNING %s
    `, userColumns)
	return r.getOne(ctx, query, userID, courseID)
}

func (r *UsersRepository) getOne(ctx context.Context, query string, args ...interface{}) (domain.User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, ErrNotFound
		}
		return domain.User{}, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (domain.User, error) {
	var (
		user      domain.User
		favorites []string
		createdAt time.Time
	)
	if err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &favorites, &createdAt); err != nil {
		return domain.User{}, err
	}
	if favorites == nil {
		favorites = []string{}
	}
	user.Favorites = favorites
	user.CreatedAt = createdAt.UTC()
	return user, nil
}
