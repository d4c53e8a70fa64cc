package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Clark-Hu/lms-api/internal/config"
	"github.com/Clark-Hu/lms-api/internal/logging"
	"github.com/Clark-Hu/lms-api/internal/repository"
)

type courseEntry struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=5000"`
}

func main() {
	var (
		data    = flag.String("data", "courses.json", "path to the course catalogue")
		envFile = flag.String("env", ".env", "optional env file with database settings")
		force   = flag.Bool("force", false, "create courses even when one with the same name exists")
	)
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		log.Fatal().Err(err).Msg("load env file")
	}
	cfg, err := config.LoadDatabase()
	if err != nil {
		log.Fatal().Err(err).Msg("config error")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Format: "console", Service: "lms-seed"})

	entries, err := loadEntries(*data)
	if err != nil {
		logger.Fatal().Err(err).Str("path", *data).Msg("read catalogue")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	repo, backend, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}
	defer backend.Close()

	created, err := seed(ctx, repo.Courses, entries, !*force, logger)
	if err != nil {
		logger.Error().Err(err).Int("created", created).Msg("seeding aborted")
		os.Exit(1)
	}
	logger.Info().Int("created", created).Int("entries", len(entries)).Msg("seeding finished")
}

func loadEntries(path string) ([]courseEntry, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []courseEntry
	if err := json.Unmarshal(file, &entries); err != nil {
		return nil, fmt.Errorf("parse catalogue: %w", err)
	}

	validate := validator.New()
	for i := range entries {
		entries[i].Name = strings.TrimSpace(entries[i].Name)
		entries[i].Description = strings.TrimSpace(entries[i].Description)
		if err := validate.Struct(entries[i]); err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return entries, nil
}

// seed creates every entry through courses. With skipExisting, names already
// in the catalogue are left alone so repeated runs do not duplicate courses.
func seed(ctx context.Context, courses repository.CourseRepository, entries []courseEntry, skipExisting bool, logger zerolog.Logger) (int, error) {
	existing := map[string]bool{}
	if skipExisting {
		current, err := courses.List(ctx, repository.CourseListOptions{})
		if err != nil {
			return 0, fmt.Errorf("list courses: %w", err)
		}
		for _, c := range current {
			existing[c.Name] = true
		}
	}

	created := 0
	for _, entry := range entries {
		if existing[entry.Name] {
			logger.Debug().Str("name", entry.Name).Msg("course exists, skipping")
			continue
		}
		course, err := courses.Create(ctx, repository.CourseCreateParams{
			Name:        entry.Name,
			Description: entry.Description,
		})
		if err != nil {
			return created, fmt.Errorf("create %q: %w", entry.Name, err)
		}
		existing[entry.Name] = true
		created++
		logger.Info().Str("id", course.ID).Str("name", course.Name).Msg("course created")
	}
	return created, nil
}
