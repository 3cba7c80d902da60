package repository

import (
	"course_builder_backend/internal/model"

	"gorm.io/gorm"
)

type TemplateRepository struct {
	DB *gorm.DB
}

func NewTemplateRepository(db *gorm.DB) *TemplateRepository {
	return &TemplateRepository{DB: db}
}

func (r *TemplateRepository) Create(template *model.CourseTemplate) error {
	return r.DB.Create(template).Error
}

func (r *TemplateRepository) Save(template *model.CourseTemplate) error {
	return r.DB.Save(template).Error
}

func (r *TemplateRepository) FindByID(id uint) (*model.CourseTemplate, error) {
	var template model.CourseTemplate
	err := r.DB.First(&template, id).Error
	return &template, err
}

// List returns active templates, optionally filtered by category, with
// featured templates first.
func (r *TemplateRepository) List(category model.TemplateCategory, page, limit int) ([]model.CourseTemplate, int64, error) {
	var templates []model.CourseTemplate
	var total int64
	query := r.DB.Model(&model.CourseTemplate{}).Where("is_active = ?", true)
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("is_featured desc, usage_count desc").
		Offset(offset).Limit(limit).Find(&templates).Error
	return templates, total, err
}

func (r *TemplateRepository) UpdateFlags(id uint, updates map[string]interface{}) error {
	return r.DB.Model(&model.CourseTemplate{}).Where("id = ?", id).
		Updates(updates).Error
}
