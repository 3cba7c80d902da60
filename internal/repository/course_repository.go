package repository

import (
	"course_builder_backend/internal/model"

	"gorm.io/gorm"
)

type CourseRepository struct {
	DB *gorm.DB
}

func NewCourseRepository(db *gorm.DB) *CourseRepository {
	return &CourseRepository{DB: db}
}

func (r *CourseRepository) Create(course *model.Course) error {
	return r.DB.Create(course).Error
}

func (r *CourseRepository) Save(course *model.Course) error {
	return r.DB.Save(course).Error
}

func (r *CourseRepository) FindByID(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.First(&course, id).Error
	return &course, err
}

// FindWithTree loads a course with its live pages and widgets, both
// ordered by order_index. Soft-deleted rows are excluded by gorm.
func (r *CourseRepository) FindWithTree(id uint) (*model.Course, error) {
	var course model.Course
	err := r.DB.
		Preload("Pages", func(db *gorm.DB) *gorm.DB {
			return db.Order("course_pages.order_index ASC")
		}).
		Preload("Pages.Widgets", func(db *gorm.DB) *gorm.DB {
			return db.Order("widgets.order_index ASC")
		}).
		First(&course, id).Error
	return &course, err
}

func (r *CourseRepository) ListByInstructor(instructorID uint, page, limit int) ([]model.Course, int64, error) {
	var courses []model.Course
	var total int64
	query := r.DB.Model(&model.Course{})
	if instructorID > 0 {
		query = query.Where("instructor_id = ?", instructorID)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	offset := (page - 1) * limit
	err := query.Order("created_at desc").Offset(offset).Limit(limit).Find(&courses).Error
	return courses, total, err
}
