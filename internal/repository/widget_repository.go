package repository

import (
	"course_builder_backend/internal/model"

	"gorm.io/gorm"
)

type WidgetRepository struct {
	DB *gorm.DB
}

func NewWidgetRepository(db *gorm.DB) *WidgetRepository {
	return &WidgetRepository{DB: db}
}

// FindInPage fetches a widget and checks it belongs to the claimed page.
func (r *WidgetRepository) FindInPage(id, pageID uint) (*model.Widget, error) {
	var widget model.Widget
	err := r.DB.Where("id = ? AND page_id = ?", id, pageID).First(&widget).Error
	return &widget, err
}

func (r *WidgetRepository) ListByPage(pageID uint) ([]model.Widget, error) {
	var widgets []model.Widget
	err := r.DB.Where("page_id = ?", pageID).
		Order("order_index ASC").Find(&widgets).Error
	return widgets, err
}

// ListByCourse returns every live widget of a course, active or not.
// The progress denominator runs over this set. Pass a transaction to
// read inside one; nil falls back to the repository connection.
func (r *WidgetRepository) ListByCourse(tx *gorm.DB, courseID uint) ([]model.Widget, error) {
	if tx == nil {
		tx = r.DB
	}
	var widgets []model.Widget
	err := tx.Where("course_id = ?", courseID).Find(&widgets).Error
	return widgets, err
}
