// Manual progress backfill script.
//
// Progress percentages are recomputed synchronously on every completion
// mark, so this is only needed after a bulk import or a manual fix of
// progress rows.
//
// Usage: go run scripts/recompute_progress.go

package main

import (
	"course_builder_backend/internal/config"
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/internal/service"
	"course_builder_backend/pkg/database"
	"course_builder_backend/pkg/logger"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

func main() {
	data, err := os.ReadFile("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to read config file: %v", err)
	}

	var cfg config.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("Failed to parse config file: %v", err)
	}

	logger.InitLogger(&cfg)

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}

	progressService := service.NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewWidgetRepository(db),
		db,
	)

	var courses []model.Course
	if err := db.Find(&courses).Error; err != nil {
		log.Fatalf("Failed to list courses: %v", err)
	}

	for _, course := range courses {
		n, err := progressService.RecomputeCourseEnrollments(course.ID)
		if err != nil {
			log.Printf("course %d: recompute failed: %v", course.ID, err)
			continue
		}
		log.Printf("course %d: recomputed %d enrollments", course.ID, n)
	}
	log.Println("Done.")
}
