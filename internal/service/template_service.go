package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"course_builder_backend/internal/model"
	"course_builder_backend/internal/repository"
	"course_builder_backend/internal/util"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TemplateService captures a course's page/widget tree into an
// immutable snapshot and replays snapshots onto other courses. Capture
// is a value copy: the snapshot holds no foreign keys into the source.
type TemplateService struct {
	TemplateRepo *repository.TemplateRepository
	CourseRepo   *repository.CourseRepository
	DB           *gorm.DB
}

func NewTemplateService(
	templateRepo *repository.TemplateRepository,
	courseRepo *repository.CourseRepository,
	db *gorm.DB,
) *TemplateService {
	return &TemplateService{
		TemplateRepo: templateRepo,
		CourseRepo:   courseRepo,
		DB:           db,
	}
}

type CaptureTemplateRequest struct {
	Name        string                 `json:"name" binding:"required"`
	Description string                 `json:"description"`
	Category    model.TemplateCategory `json:"category"`
	Thumbnail   string                 `json:"thumbnail"`
}

// CaptureFromCourse walks the course's pages (and each page's widgets)
// in order_index order and snapshots them. A course with zero pages
// cannot be captured.
func (s *TemplateService) CaptureFromCourse(callerID uint, role model.UserRole, courseID uint, req CaptureTemplateRequest) (*model.CourseTemplate, error) {
	course, err := s.CourseRepo.FindWithTree(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsOwnedBy(callerID, role) {
		return nil, util.ErrNotCourseOwner
	}
	if len(course.Pages) == 0 {
		return nil, util.ErrEmptyCourse
	}

	if strings.TrimSpace(req.Name) == "" {
		return nil, &model.ValidationError{Fields: []string{"name is required"}}
	}
	category := req.Category
	if category == "" {
		category = model.CategoryGeneral
	}
	if !model.IsValidTemplateCategory(category) {
		return nil, &model.ValidationError{Fields: []string{fmt.Sprintf("unknown template category %q", category)}}
	}

	snapshot := model.TemplateSnapshot{Pages: make([]model.TemplatePageSpec, 0, len(course.Pages))}
	for _, page := range course.Pages {
		pageSpec := model.TemplatePageSpec{
			Title:       page.Title,
			Description: page.Description,
			ContentType: page.ContentType,
			OrderIndex:  page.OrderIndex,
			IsPreview:   page.IsPreview,
			Settings:    page.Settings,
			Widgets:     make([]model.TemplateWidgetSpec, 0, len(page.Widgets)),
		}
		for _, widget := range page.Widgets {
			pageSpec.Widgets = append(pageSpec.Widgets, model.TemplateWidgetSpec{
				Type:       widget.WidgetType,
				Data:       json.RawMessage(widget.WidgetData),
				OrderIndex: widget.OrderIndex,
				Settings:   widget.Settings,
			})
		}
		snapshot.Pages = append(snapshot.Pages, pageSpec)
	}

	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, err
	}

	template := &model.CourseTemplate{
		Name:         req.Name,
		Description:  req.Description,
		Category:     category,
		TemplateData: datatypes.JSON(data),
		Thumbnail:    req.Thumbnail,
		IsActive:     true,
		CreatorID:    callerID,
	}
	if err := s.TemplateRepo.Create(template); err != nil {
		return nil, err
	}
	return template, nil
}

// ApplyToCourse replays a template onto a course. The operation is
// purely additive: new pages append after any existing ones, nothing
// on the target is deleted or reordered. Applied pages are never
// auto-published and applied widgets are always active.
func (s *TemplateService) ApplyToCourse(callerID uint, role model.UserRole, templateID, courseID uint) (*model.Course, error) {
	template, err := s.TemplateRepo.FindByID(templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}

	course, err := s.CourseRepo.FindByID(courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrCourseNotFound
		}
		return nil, err
	}
	if !course.IsOwnedBy(callerID, role) {
		return nil, util.ErrNotCourseOwner
	}

	snapshot, err := template.Snapshot()
	if err != nil {
		return nil, err
	}

	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&model.CoursePage{}).
			Where("course_id = ?", courseID).Count(&existing).Error; err != nil {
			return err
		}

		for i, pageSpec := range snapshot.Pages {
			page := model.CoursePage{
				CourseID:    courseID,
				Title:       pageSpec.Title,
				Description: pageSpec.Description,
				ContentType: pageSpec.ContentType,
				OrderIndex:  int(existing) + i,
				IsPublished: false,
				IsPreview:   pageSpec.IsPreview,
				Settings:    pageSpec.Settings,
			}
			if err := tx.Create(&page).Error; err != nil {
				return err
			}
			for _, widgetSpec := range pageSpec.Widgets {
				widget := model.Widget{
					PageID:     page.ID,
					CourseID:   courseID,
					WidgetType: widgetSpec.Type,
					WidgetData: datatypes.JSON(widgetSpec.Data),
					OrderIndex: widgetSpec.OrderIndex,
					IsActive:   true,
					Settings:   widgetSpec.Settings,
				}
				if err := tx.Create(&widget).Error; err != nil {
					return err
				}
			}
		}

		return tx.Model(&model.CourseTemplate{}).Where("id = ?", templateID).
			UpdateColumn("usage_count", gorm.Expr("usage_count + 1")).Error
	})
	if err != nil {
		return nil, err
	}

	return s.CourseRepo.FindWithTree(courseID)
}

func (s *TemplateService) GetTemplate(id uint) (*model.CourseTemplate, error) {
	template, err := s.TemplateRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTemplateNotFound
		}
		return nil, err
	}
	return template, nil
}

func (s *TemplateService) ListTemplates(category model.TemplateCategory, page, limit int) ([]model.CourseTemplate, int64, error) {
	if category != "" && !model.IsValidTemplateCategory(category) {
		return nil, 0, &model.ValidationError{Fields: []string{fmt.Sprintf("unknown template category %q", category)}}
	}
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return s.TemplateRepo.List(category, page, limit)
}

// SetModerationFlags updates the admin-owned is_active / is_featured
// toggles. The snapshot itself stays immutable.
func (s *TemplateService) SetModerationFlags(templateID uint, isActive, isFeatured *bool) (*model.CourseTemplate, error) {
	if _, err := s.GetTemplate(templateID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if isActive != nil {
		updates["is_active"] = *isActive
	}
	if isFeatured != nil {
		updates["is_featured"] = *isFeatured
	}
	if len(updates) > 0 {
		if err := s.TemplateRepo.UpdateFlags(templateID, updates); err != nil {
			return nil, err
		}
	}
	return s.TemplateRepo.FindByID(templateID)
}
