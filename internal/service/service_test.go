package service

import (
	"fmt"
	"sync/atomic"
	"testing"

	"course_builder_backend/internal/config"
	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/pkg/logger"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBCounter int64

// newTestDB opens a fresh in-memory database per test. cache=shared
// keeps every pooled connection on the same database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if logger.Log == nil {
		logger.Log = zap.NewNop()
	}

	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBCounter, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Course{},
		&model.CoursePage{},
		&model.Widget{},
		&model.CourseTemplate{},
		&model.Enrollment{},
		&model.UserProgress{},
	))
	return db
}

func newTestBuilder(db *gorm.DB) *BuilderService {
	return NewBuilderService(
		repository.NewCourseRepository(db),
		repository.NewPageRepository(db),
		repository.NewWidgetRepository(db),
		nil,
		&config.Config{},
		nil,
		db,
	)
}

func newTestTemplates(db *gorm.DB) *TemplateService {
	return NewTemplateService(
		repository.NewTemplateRepository(db),
		repository.NewCourseRepository(db),
		db,
	)
}

func newTestProgress(db *gorm.DB) *ProgressService {
	return NewProgressService(
		repository.NewProgressRepository(db),
		repository.NewEnrollmentRepository(db),
		repository.NewCourseRepository(db),
		repository.NewWidgetRepository(db),
		db,
	)
}

func seedUser(t *testing.T, db *gorm.DB, role model.UserRole) *model.User {
	t.Helper()
	user := &model.User{
		Name:     fmt.Sprintf("%s-%d", role, atomic.AddInt64(&testDBCounter, 1)),
		Email:    fmt.Sprintf("user%d@example.com", atomic.AddInt64(&testDBCounter, 1)),
		Password: "irrelevant",
		Role:     role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedCourse(t *testing.T, db *gorm.DB, instructorID uint) *model.Course {
	t.Helper()
	course := &model.Course{
		Title:        "Intro to Databases",
		InstructorID: instructorID,
	}
	require.NoError(t, db.Create(course).Error)
	return course
}

func seedPage(t *testing.T, db *gorm.DB, courseID uint, orderIndex int) *model.CoursePage {
	t.Helper()
	page := &model.CoursePage{
		CourseID:    courseID,
		Title:       fmt.Sprintf("Page %d", orderIndex),
		OrderIndex:  orderIndex,
		ContentType: model.ContentLesson,
	}
	require.NoError(t, db.Create(page).Error)
	return page
}

func seedWidget(t *testing.T, db *gorm.DB, courseID, pageID uint, orderIndex int, active bool) *model.Widget {
	t.Helper()
	widget := &model.Widget{
		PageID:     pageID,
		CourseID:   courseID,
		WidgetType: model.WidgetText,
		WidgetData: datatypes.JSON(`{"content":"seed"}`),
		OrderIndex: orderIndex,
		IsActive:   active,
	}
	require.NoError(t, db.Create(widget).Error)
	return widget
}

func seedEnrollment(t *testing.T, db *gorm.DB, userID, courseID uint) *model.Enrollment {
	t.Helper()
	enrollment := &model.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   model.EnrollmentActive,
	}
	require.NoError(t, db.Create(enrollment).Error)
	return enrollment
}

// pageOrder returns the course's live pages as (id, order_index) in
// order_index order, for asserting the contiguity invariant.
func pageOrder(t *testing.T, db *gorm.DB, courseID uint) ([]uint, []int) {
	t.Helper()
	var pages []model.CoursePage
	require.NoError(t, db.Where("course_id = ?", courseID).Order("order_index ASC").Find(&pages).Error)
	ids := make([]uint, len(pages))
	indexes := make([]int, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
		indexes[i] = p.OrderIndex
	}
	return ids, indexes
}

func widgetOrder(t *testing.T, db *gorm.DB, pageID uint) ([]uint, []int) {
	t.Helper()
	var widgets []model.Widget
	require.NoError(t, db.Where("page_id = ?", pageID).Order("order_index ASC").Find(&widgets).Error)
	ids := make([]uint, len(widgets))
	indexes := make([]int, len(widgets))
	for i, w := range widgets {
		ids[i] = w.ID
		indexes[i] = w.OrderIndex
	}
	return ids, indexes
}

func intPtr(v int) *int    { return &v }
func uintPtr(v uint) *uint { return &v }
func boolPtr(v bool) *bool { return &v }
