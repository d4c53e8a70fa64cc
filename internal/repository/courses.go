package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Clark-Hu/lms-api/internal/domain"
)

// CoursesRepository provides postgres persistence for course documents.
type CoursesRepository struct {
	pool *pgxpool.Pool
}

const courseColumns = `
    id,
    name,
    description,
    rating,
    reviews,
    created_at
`

type reviewDocument struct {
	Comment string  `json:"comment" bson:"comment"`
	Rating  float64 `json:"rating" bson:"rating"`
}

// Create inserts a new course with no reviews.
func (r *CoursesRepository) Create(ctx context.Context, params CourseCreateParams) (domain.Course, error) {
	query := fmt.Sprintf(`
        INSERT INTO courses (id, name, description, rating, reviews, created_at)
        VALUES ($1, $2, $3, 0, '[]'::jsonb, $4)
        RETURNING %s
    `, courseColumns)

	row := r.pool.QueryRow(ctx, query, uuid.NewString(), params.Name, params.Description, time.Now().UTC())
	return scanCourse(row)
}

// GetByID fetches a course with its reviews.
func (r *CoursesRepository) GetByID(ctx context.Context, id string) (domain.Course, error) {
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1`, courseColumns)
	course, err := scanCourse(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, ErrNotFound
		}
		return domain.Course{}, err
	}
	return course, nil
}

// List returns courses in the requested order.
func (r *CoursesRepository) List(ctx context.Context, opts CourseListOptions) ([]domain.Course, error) {
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(courseColumns)
	b.WriteString(" FROM courses")

	switch opts.Order {
	case OrderNewest:
		b.WriteString(" ORDER BY created_at DESC, id DESC")
	case OrderTopRated:
		b.WriteString(" ORDER BY rating DESC, id DESC")
	default:
		b.WriteString(" ORDER BY created_at ASC, id ASC")
	}
	if opts.Limit > 0 {
		b.WriteString(fmt.Sprintf(" LIMIT %d", opts.Limit))
	}

	rows, err := r.pool.Query(ctx, b.String())
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

// ListByIDs resolves ids to courses. Unknown ids are skipped.
func (r *CoursesRepository) ListByIDs(ctx context.Context, ids []string) ([]domain.Course, error) {
	if len(ids) == 0 {
		return []domain.Course{}, nil
	}
	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = ANY($1)`, courseColumns)
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	return collectCourses(rows)
}

// AppendReview locks the course row, appends the review, recomputes the
// rating and writes both back before releasing the lock.
func (r *CoursesRepository) AppendReview(ctx context.Context, courseID string, review domain.Review) (domain.Course, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Course{}, fmt.Errorf("begin review tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	query := fmt.Sprintf(`SELECT %s FROM courses WHERE id = $1 FOR UPDATE`, courseColumns)
	course, err := scanCourse(tx.QueryRow(ctx, query, courseID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, ErrNotFound
		}
		return domain.Course{}, err
	}

	course.AppendReview(review)
	reviewsJSON, err := marshalReviews(course.Reviews)
	if err != nil {
		return domain.Course{}, err
	}

	update := fmt.Sprintf(`
        UPDATE courses
        SET reviews = $2,
            rating = $3
        WHERE id = $1
        RETURNING %s
    `, courseColumns)
	updated, err := scanCourse(tx.QueryRow(ctx, update, courseID, reviewsJSON, course.Rating))
	if err != nil {
		return domain.Course{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Course{}, fmt.Errorf("commit review tx: %w", err)
	}
	return updated, nil
}

func collectCourses(rows pgx.Rows) ([]domain.Course, error) {
	defer rows.Close()

	items := make([]domain.Course, 0)
	for rows.Next() {
		course, err := scanCourse(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, course)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanCourse(row pgx.Row) (domain.Course, error) {
	var (
		course      domain.Course
		reviewsJSON []byte
		createdAt   time.Time
	)

	err := row.Scan(
		&course.ID,
		&course.Name,
		&course.Description,
		&course.Rating,
		&reviewsJSON,
		&createdAt,
	)
	if err != nil {
		return domain.Course{}, err
	}
	course.CreatedAt = createdAt.UTC()

	reviews, err := unmarshalReviews(reviewsJSON)
	if err != nil {
		return domain.Course{}, err
	}
	course.Reviews = reviews
	return course, nil
}

func marshalReviews(reviews []domain.Review) ([]byte, error) {
	docs := make([]reviewDocument, 0, len(reviews))
	for _, rv := range reviews {
		docs = append(docs, reviewDocument{Comment: rv.Comment, Rating: rv.Rating})
	}
	return json.Marshal(docs)
}

func unmarshalReviews(payload []byte) ([]domain.Review, error) {
	reviews := make([]domain.Review, 0)
	if len(payload) == 0 {
		return reviews, nil
	}
	var docs []reviewDocument
	if err := json.Unmarshal(payload, &docs); err != nil {
		return nil, fmt.Errorf("decode reviews: %w", err)
	}
	for _, d := range docs {
		reviews = append(reviews, domain.Review{Comment: d.Comment, Rating: d.Rating})
	}
	return reviews, nil
}
