package repository

import (
	"course_builder_backend/internal/model"

	"gorm.io/gorm"
)

type PageRepository struct {
	DB *gorm.DB
}

func NewPageRepository(db *gorm.DB) *PageRepository {
	return &PageRepository{DB: db}
}

func (r *PageRepository) Save(page *model.CoursePage) error {
	return r.DB.Save(page).Error
}

// FindInCourse fetches a page and checks it belongs to the claimed
// course, guarding against a page id from another course's tree.
func (r *PageRepository) FindInCourse(id, courseID uint) (*model.CoursePage, error) {
	var page model.CoursePage
	err := r.DB.Where("id = ? AND course_id = ?", id, courseID).First(&page).Error
	return &page, err
}
