package service

import (
	"context"
	"testing"

	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestCourses(db *gorm.DB) *CourseService {
	return NewCourseService(
		repository.NewCourseRepository(db),
		repository.NewEnrollmentRepository(db),
		nil,
		db,
	)
}

func TestEnrollIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	svc := newTestCourses(db)
	instructor := seedUser(t, db, model.Instructor)
	learner := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID)

	first, err := svc.Enroll(learner.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentActive, first.Status)

	second, err := svc.Enroll(learner.ID, course.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	_, err = svc.Enroll(learner.ID, 9999)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)
}

func TestGetPublishedOutlineFiltersDrafts(t *testing.T) {
	db := newTestDB(t)
	svc := newTestCourses(db)
	instructor := seedUser(t, db, model.Instructor)
	learner := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID)

	published := seedPage(t, db, course.ID, 0)
	require.NoError(t, db.Model(published).Update("is_published", true).Error)
	seedWidget(t, db, course.ID, published.ID, 0, true)
	seedWidget(t, db, course.ID, published.ID, 1, false)

	draft := seedPage(t, db, course.ID, 1)
	seedWidget(t, db, course.ID, draft.ID, 0, true)

	seedEnrollment(t, db, learner.ID, course.ID)

	outline, err := svc.GetPublishedOutline(context.Background(), learner.ID, course.ID)
	require.NoError(t, err)

	// Draft pages and inactive widgets never reach learners.
	require.Len(t, outline.Pages, 1)
	assert.Equal(t, published.ID, outline.Pages[0].ID)
	assert.Len(t, outline.Pages[0].Widgets, 1)
}

func TestGetPublishedOutlinePreviewWithoutEnrollment(t *testing.T) {
	db := newTestDB(t)
	svc := newTestCourses(db)
	instructor := seedUser(t, db, model.Instructor)
	learner := seedUser(t, db, model.Student)
	course := seedCourse(t, db, instructor.ID)

	preview := seedPage(t, db, course.ID, 0)
	require.NoError(t, db.Model(preview).Updates(map[string]interface{}{
		"is_published": true, "is_preview": true,
	}).Error)
	seedWidget(t, db, course.ID, preview.ID, 0, true)

	full := seedPage(t, db, course.ID, 1)
	require.NoError(t, db.Model(full).Update("is_published", true).Error)
	seedWidget(t, db, course.ID, full.ID, 0, true)

	// An unenrolled learner and an anonymous visitor both get the
	// preview pages only.
	outline, err := svc.GetPublishedOutline(context.Background(), learner.ID, course.ID)
	require.NoError(t, err)
	require.Len(t, outline.Pages, 1)
	assert.Equal(t, preview.ID, outline.Pages[0].ID)

	outline, err = svc.GetPublishedOutline(context.Background(), 0, course.ID)
	require.NoError(t, err)
	require.Len(t, outline.Pages, 1)
	assert.Equal(t, preview.ID, outline.Pages[0].ID)

	// Enrolling opens up the full published outline.
	seedEnrollment(t, db, learner.ID, course.ID)
	outline, err = svc.GetPublishedOutline(context.Background(), learner.ID, course.ID)
	require.NoError(t, err)
	assert.Len(t, outline.Pages, 2)
}

func TestListEnrollments(t *testing.T) {
	db := newTestDB(t)
	svc := newTestCourses(db)
	instructor := seedUser(t, db, model.Instructor)
	learner := seedUser(t, db, model.Student)
	first := seedCourse(t, db, instructor.ID)
	second := seedCourse(t, db, instructor.ID)

	seedEnrollment(t, db, learner.ID, first.ID)
	seedEnrollment(t, db, learner.ID, second.ID)

	enrollments, err := svc.ListEnrollments(learner.ID)
	require.NoError(t, err)
	assert.Len(t, enrollments, 2)

	enrollments, err = svc.ListEnrollments(instructor.ID)
	require.NoError(t, err)
	assert.Empty(t, enrollments)
}

func TestCreateCourseValidatesTitle(t *testing.T) {
	db := newTestDB(t)
	svc := newTestCourses(db)
	instructor := seedUser(t, db, model.Instructor)

	_, err := svc.CreateCourse(instructor.ID, CourseRequest{Title: "  "})
	var verr *model.ValidationError
	assert.ErrorAs(t, err, &verr)

	course, err := svc.CreateCourse(instructor.ID, CourseRequest{Title: "SQL Basics"})
	require.NoError(t, err)
	assert.Equal(t, instructor.ID, course.InstructorID)
	assert.False(t, course.IsPublished)
}
