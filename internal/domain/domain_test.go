package domain

import (
	"math"
	"testing"
)

func TestAverageRating(t *testing.T) {
	tests := []struct {
		name    string
		reviews []Review
		want    float64
	}{
		{"empty", nil, 0},
		{"single", []Review{{Rating: 4}}, 4},
		{"pair", []Review{{Rating: 4}, {Rating: 2}}, 3},
		{"all zero", []Review{{Rating: 0}, {Rating: 0}}, 0},
		{"fractional", []Review{{Rating: 5}, {Rating: 4}, {Rating: 4}}, 13.0 / 3.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageRating(tt.reviews)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("AverageRating() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCourseAppendReview(t *testing.T) {
	course := Course{Name: "Go"}
	if course.Rating != 0 {
		t.Fatalf("new course rating = %v, want 0", course.Rating)
	}

	course.AppendReview(Review{Comment: "ok", Rating: 4})
	if course.Rating != 4 {
		t.Fatalf("rating after first review = %v, want 4", course.Rating)
	}

	course.AppendReview(Review{Comment: "bad", Rating: 2})
	if course.Rating != 3 {
		t.Fatalf("rating after second review = %v, want 3", course.Rating)
	}

	if len(course.Reviews) != 2 || course.Reviews[0].Comment != "ok" || course.Reviews[1].Comment != "bad" {
		t.Fatalf("reviews not appended in order: %+v", course.Reviews)
	}
}

func TestUserFavorites(t *testing.T) {
	user := User{ID: "u1"}

	if !user.AddFavorite("c1") {
		t.Fatalf("first AddFavorite should change the set")
	}
	if user.AddFavorite("c1") {
		t.Fatalf("second AddFavorite should be a no-op")
	}
	if len(user.Favorites) != 1 {
		t.Fatalf("favorites = %v, want one entry", user.Favorites)
	}

	if user.RemoveFavorite("missing") {
		t.Fatalf("removing an absent course should be a no-op")
	}

	user.Favorites = append(user.Favorites, "c2", "c1")
	if !user.RemoveFavorite("c1") {
		t.Fatalf("RemoveFavorite should report a change")
	}
	if user.HasFavorite("c1") {
		t.Fatalf("all occurrences of c1 should be removed: %v", user.Favorites)
	}
	if !user.HasFavorite("c2") {
		t.Fatalf("c2 should be kept: %v", user.Favorites)
	}
}

func FuzzAverageRating(f *testing.F) {
	f.Add(4.0, 2.0, 5.0)
	f.Add(0.0, 0.0, 0.0)

	f.Fuzz(func(t *testing.T, a, b, c float64) {
		for _, v := range []float64{a, b, c} {
			if math.IsNaN(v) || v < MinReviewRating || v > MaxReviewRating {
				return
			}
		}
		var course Course
		for _, v := range []float64{a, b, c} {
			course.AppendReview(Review{Rating: v})
		}
		if course.Rating < MinReviewRating || course.Rating > MaxReviewRating+1e-9 {
			t.Fatalf("rating %v outside review domain", course.Rating)
		}
	})
}
