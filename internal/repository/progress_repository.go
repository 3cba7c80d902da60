package repository

import (
	"course_builder_backend/internal/model"

	"gorm.io/gorm"
)

type ProgressRepository struct {
	DB *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{DB: db}
}

// Find fetches the progress row for an exact (user, course, page,
// widget) tuple. Nil page/widget ids match rows where the column is
// NULL, so page-level and course-level marks get their own rows.
func (r *ProgressRepository) Find(tx *gorm.DB, userID, courseID uint, pageID, widgetID *uint) (*model.UserProgress, error) {
	if tx == nil {
		tx = r.DB
	}
	query := tx.Where("user_id = ? AND course_id = ?", userID, courseID)
	if pageID != nil {
		query = query.Where("page_id = ?", *pageID)
	} else {
		query = query.Where("page_id IS NULL")
	}
	if widgetID != nil {
		query = query.Where("widget_id = ?", *widgetID)
	} else {
		query = query.Where("widget_id IS NULL")
	}

	var progress model.UserProgress
	err := query.First(&progress).Error
	return &progress, err
}

// CompletedWidgetSet returns the set of widget ids the user has marked
// complete in a course.
func (r *ProgressRepository) CompletedWidgetSet(tx *gorm.DB, userID, courseID uint) (map[uint]bool, error) {
	if tx == nil {
		tx = r.DB
	}
	var rows []model.UserProgress
	err := tx.Where("user_id = ? AND course_id = ? AND completed = ? AND widget_id IS NOT NULL",
		userID, courseID, true).Find(&rows).Error
	if err != nil {
		return nil, err
	}

	completed := make(map[uint]bool, len(rows))
	for _, row := range rows {
		completed[*row.WidgetID] = true
	}
	return completed, nil
}
