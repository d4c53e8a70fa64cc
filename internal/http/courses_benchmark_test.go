package httpserver

import (
	"context"
	"net/http"
	"testing"

	"github.com/Clark-Hu/lms-api/internal/repository"
)

func BenchmarkHandleAddReview(b *testing.B) {
	srv := buildTestServer(b)

	course, err := srv.repo.Courses.Create(context.Background(), repository.CourseCreateParams{Name: "Benchmark Course"})
	if err != nil {
		b.Fatalf("create course: %v", err)
	}
	user, err := srv.repo.Users.Create(context.Background(), repository.UserCreateParams{Email: "bench@x.com", PasswordHash: "x"})
	if err != nil {
		b.Fatalf("create user: %v", err)
	}
	token, err := srv.tokens.Issue(user.ID)
	if err != nil {
		b.Fatalf("issue token: %v", err)
	}

	path := "/api/courses/" + course.ID + "/review"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		rec := doRequest(srv, http.MethodPost, path, `{"comment":"bench","rating":4}`, token)
		if rec.Code != http.StatusCreated {
			b.Fatalf("unexpected status %d", rec.Code)
		}
	}
}
