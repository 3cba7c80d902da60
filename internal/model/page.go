package model

import (
	"gorm.io/datatypes"
)

type ContentType string

const (
	ContentLesson     ContentType = "lesson"
	ContentQuiz       ContentType = "quiz"
	ContentAssignment ContentType = "assignment"
	ContentOverview   ContentType = "overview"
)

func IsValidContentType(t ContentType) bool {
	switch t {
	case ContentLesson, ContentQuiz, ContentAssignment, ContentOverview:
		return true
	}
	return false
}

// CoursePage is an ordered container of widgets inside a course.
// OrderIndex values of a course's live pages always form a contiguous
// 0-based sequence; the builder service re-numbers siblings on every
// insert, move and delete.
type CoursePage struct {
	BaseModel
	CourseID    uint              `gorm:"index;not null" json:"courseId"`
	Title       string            `gorm:"size:255;not null" json:"title"`
	Description string            `gorm:"type:text" json:"description"`
	OrderIndex  int               `gorm:"not null;default:0" json:"orderIndex"`
	ContentType ContentType       `gorm:"size:20;default:'lesson'" json:"contentType"`
	IsPublished bool              `gorm:"default:false" json:"isPublished"`
	IsPreview   bool              `gorm:"default:false" json:"isPreview"`
	Settings    datatypes.JSONMap `gorm:"type:json" json:"settings"`
	Widgets     []Widget          `gorm:"foreignKey:PageID" json:"widgets,omitempty"`
}

func (CoursePage) TableName() string {
	return "course_pages"
}

// CanBePublished reports publish eligibility over the loaded widget set:
// at least one active widget must exist. Inactive widgets do not count.
func (p *CoursePage) CanBePublished() bool {
	for _, w := range p.Widgets {
		if w.IsActive {
			return true
		}
	}
	return false
}
