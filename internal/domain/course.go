package domain

import "time"

// MaxReviewRating and MinReviewRating bound a single review score.
const (
	MinReviewRating = 0.0
	MaxReviewRating = 5.0
)

// Review is a single reviewer's comment and score for a course.
type Review struct {
	Comment string
	Rating  float64
}

// Course represents the canonical course entity in the store.
type Course struct {
	ID          string
	Name        string
	Description string
	Rating      float64
	Reviews     []Review
	CreatedAt   time.Time
}

// AppendReview adds a review and recomputes the derived rating.
func (c *Course) AppendReview(r Review) {
	c.Reviews = append(c.Reviews, r)
	c.Rating = AverageRating(c.Reviews)
}

// AverageRating returns the arithmetic mean of the review scores, or 0 when
// there are none.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	var sum float64
	for _, r := range reviews {
		sum += r.Rating
	}
	return sum / float64(len(reviews))
}
