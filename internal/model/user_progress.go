package model

import (
	"time"
)

// UserProgress records one completion fact per (user, course, page,
// widget) tuple. The tuple is an upsert key: marking a widget incomplete
// flips Completed back to false instead of deleting the row, so the
// table keeps an audit trail of every widget a learner has ever visited.
type UserProgress struct {
	BaseModel
	UserID      uint       `gorm:"index:idx_progress_key;not null" json:"userId"`
	CourseID    uint       `gorm:"index:idx_progress_key;not null" json:"courseId"`
	PageID      *uint      `gorm:"index:idx_progress_key" json:"pageId"`
	WidgetID    *uint      `gorm:"index:idx_progress_key" json:"widgetId"`
	Completed   bool       `gorm:"default:false" json:"completed"`
	CompletedAt *time.Time `json:"completedAt"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}

// PageProgress is the per-page slice of a course progress report.
type PageProgress struct {
	PageID             uint   `json:"pageId"`
	Title              string `json:"title"`
	TotalWidgets       int    `json:"total_widgets"`
	CompletedWidgets   int    `json:"completed_widgets"`
	ProgressPercentage int    `json:"progress_percentage"`
}

// CourseProgressReport is the read-only projection returned to learners.
// OverallProgress matches the value persisted on the enrollment.
type CourseProgressReport struct {
	CourseID         uint           `json:"courseId"`
	OverallProgress  int            `json:"overall_progress"`
	CompletedWidgets int            `json:"completed_widgets"`
	TotalWidgets     int            `json:"total_widgets"`
	Pages            []PageProgress `json:"pages"`
}
