package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/internal/util"
	"course_builder_backend/pkg/logger"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// CourseService covers the course-level surface around the content
// tree: creating courses, enrolling learners and serving the published
// learner view. The learner view is cached in redis and invalidated by
// the builder service on every tree mutation.
type CourseService struct {
	CourseRepo     *repository.CourseRepository
	EnrollmentRepo *repository.EnrollmentRepository
	Redis          *redis.Client
	DB             *gorm.DB
}

func NewCourseService(
	courseRepo *repository.CourseRepository,
	enrollmentRepo *repository.EnrollmentRepository,
	rdb *redis.Client,
	db *gorm.DB,
) *CourseService {
	return &CourseService{
		CourseRepo:     courseRepo,
		EnrollmentRepo: enrollmentRepo,
		Redis:          rdb,
		DB:             db,
	}
}

type CourseRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *CourseService) CreateCourse(instructorID uint, req CourseRequest) (*model.Course, error) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, &model.ValidationError{Fields: []string{"title is required"}}
	}
	course := &model.Course{
		Title:        req.Title,
		Description:  req.Description,
		InstructorID: instructorID,
	}
	if err := s.CourseRepo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) ListCourses(instructorID uint, page, limit int) ([]model.Course, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.CourseRepo.ListByInstructor(instructorID, page, limit)
}

// Enroll creates an active enrollment for the user. Enrolling twice is
// a no-op that returns the existing enrollment.
func (s *CourseService) Enroll(userID, courseID uint) (*model.Enrollment, error) {
	if _, err := s.CourseRepo.FindByID(courseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	existing, err := s.EnrollmentRepo.FindActive(userID, courseID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentActive,
	}
	if err := s.EnrollmentRepo.Create(enrollment); err != nil {
		return nil, err
	}
	return enrollment, nil
}

// ListEnrollments returns the caller's enrollments across all courses,
// carrying the persisted progress percentages.
func (s *CourseService) ListEnrollments(userID uint) ([]model.Enrollment, error) {
	return s.EnrollmentRepo.ListByUser(userID)
}

// PublishedPage is one entry of the learner-facing outline: published
// pages only, active widgets only.
type PublishedPage struct {
	ID          uint              `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	ContentType model.ContentType `json:"contentType"`
	OrderIndex  int               `json:"orderIndex"`
	IsPreview   bool              `json:"isPreview"`
	Widgets     []model.Widget    `json:"widgets"`
}

type CourseOutline struct {
	CourseID    uint            `json:"courseId"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Pages       []PublishedPage `json:"pages"`
}

const outlineCacheTTL = 5 * time.Minute

// GetPublishedOutline serves the learner view of a course. Enrolled
// learners get every published page; anonymous callers and users
// without an active enrollment only get the pages marked is_preview.
// Reads are allowed to be slightly stale: the outline comes from the
// redis cache when present and the builder invalidates it on every
// mutation.
func (s *CourseService) GetPublishedOutline(ctx context.Context, userID, courseID uint) (*CourseOutline, error) {
	enrolled := false
	if userID != 0 {
		if _, err := s.EnrollmentRepo.FindActive(userID, courseID); err == nil {
			enrolled = true
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	cacheKey := fmt.Sprintf("%s%d", outlineCacheKeyPrefix, courseID)
	if s.Redis != nil {
		if val, err := s.Redis.Get(ctx, cacheKey).Result(); err == nil {
			var outline CourseOutline
			if err := json.Unmarshal([]byte(val), &outline); err == nil {
				return outlineForViewer(&outline, enrolled), nil
			}
		}
	}

	course, err := s.CourseRepo.FindWithTree(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}

	outline := &CourseOutline{
		CourseID:    course.ID,
		Title:       course.Title,
		Description: course.Description,
		Pages:       []PublishedPage{},
	}
	for _, page := range course.Pages {
		if !page.IsPublished {
			continue
		}
		published := PublishedPage{
			ID:          page.ID,
			Title:       page.Title,
			Description: page.Description,
			ContentType: page.ContentType,
			OrderIndex:  page.OrderIndex,
			IsPreview:   page.IsPreview,
			Widgets:     []model.Widget{},
		}
		for _, widget := range page.Widgets {
			if widget.IsActive {
				published.Widgets = append(published.Widgets, widget)
			}
		}
		outline.Pages = append(outline.Pages, published)
	}

	if s.Redis != nil {
		if data, err := json.Marshal(outline); err == nil {
			if err := s.Redis.Set(ctx, cacheKey, data, outlineCacheTTL).Err(); err != nil {
				logger.Log.Warn("failed to cache course outline",
					zap.Uint("courseId", courseID), zap.Error(err))
			}
		}
	}
	return outlineForViewer(outline, enrolled), nil
}

// outlineForViewer trims the outline to its preview pages for callers
// without an active enrollment. The cache always holds the full
// published outline; the trim happens per request.
func outlineForViewer(outline *CourseOutline, enrolled bool) *CourseOutline {
	if enrolled {
		return outline
	}
	preview := *outline
	preview.Pages = []PublishedPage{}
	for _, page := range outline.Pages {
		if page.IsPreview {
			preview.Pages = append(preview.Pages, page)
		}
	}
	return &preview
}
