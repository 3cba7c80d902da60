package model

import (
	"encoding/json"

	"gorm.io/datatypes"
)

type TemplateCategory string

const (
	CategoryGeneral    TemplateCategory = "general"
	CategoryTechnical  TemplateCategory = "technical"
	CategoryBusiness   TemplateCategory = "business"
	CategoryCreative   TemplateCategory = "creative"
	CategoryLanguage   TemplateCategory = "language"
	CategoryScience    TemplateCategory = "science"
	CategoryMath       TemplateCategory = "math"
	CategoryHistory    TemplateCategory = "history"
	CategoryLiterature TemplateCategory = "literature"
)

func IsValidTemplateCategory(c TemplateCategory) bool {
	switch c {
	case CategoryGeneral, CategoryTechnical, CategoryBusiness, CategoryCreative,
		CategoryLanguage, CategoryScience, CategoryMath, CategoryHistory, CategoryLiterature:
		return true
	}
	return false
}

// CourseTemplate is an immutable structural snapshot of a course's
// page/widget tree. Only the moderation flags and the usage counter
// change after capture.
type CourseTemplate struct {
	BaseModel
	Name         string           `gorm:"size:255;not null" json:"name"`
	Description  string           `gorm:"type:text" json:"description"`
	Category     TemplateCategory `gorm:"size:20;default:'general'" json:"category"`
	TemplateData datatypes.JSON   `gorm:"type:json" json:"templateData"`
	Thumbnail    string           `gorm:"size:255" json:"thumbnail"`
	IsActive     bool             `gorm:"default:true" json:"isActive"`
	IsFeatured   bool             `gorm:"default:false" json:"isFeatured"`
	UsageCount   int              `gorm:"default:0" json:"usageCount"`
	CreatorID    uint             `gorm:"index" json:"creatorId"`
}

func (CourseTemplate) TableName() string {
	return "course_templates"
}

// TemplateSnapshot is the decoded form of TemplateData. It is a value
// copy of the source tree: no foreign keys into the source course.
type TemplateSnapshot struct {
	Pages []TemplatePageSpec `json:"pages"`
}

type TemplatePageSpec struct {
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	ContentType ContentType          `json:"content_type"`
	OrderIndex  int                  `json:"order_index"`
	IsPreview   bool                 `json:"is_preview"`
	Settings    map[string]interface{} `json:"settings,omitempty"`
	Widgets     []TemplateWidgetSpec `json:"widgets"`
}

type TemplateWidgetSpec struct {
	Type       WidgetType             `json:"type"`
	Data       json.RawMessage        `json:"data"`
	OrderIndex int                    `json:"order_index"`
	Settings   map[string]interface{} `json:"settings,omitempty"`
}

// Snapshot decodes TemplateData.
func (t *CourseTemplate) Snapshot() (*TemplateSnapshot, error) {
	var snap TemplateSnapshot
	if err := json.Unmarshal(t.TemplateData, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
