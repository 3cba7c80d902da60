package model

// Course is the root of a content tree. All mutations on its pages and
// widgets require the caller to be the owning instructor (or an admin).
type Course struct {
	BaseModel
	Title        string       `gorm:"size:255;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	InstructorID uint         `gorm:"index;not null" json:"instructorId"`
	IsPublished  bool         `gorm:"default:false" json:"isPublished"`
	Pages        []CoursePage `gorm:"foreignKey:CourseID" json:"pages,omitempty"`
}

func (Course) TableName() string {
	return "courses"
}

// IsOwnedBy reports whether the caller may mutate this course's tree.
func (c *Course) IsOwnedBy(userID uint, role UserRole) bool {
	return c.InstructorID == userID || role == Admin
}

type EnrollmentStatus string

const (
	EnrollmentActive    EnrollmentStatus = "active"
	EnrollmentCompleted EnrollmentStatus = "completed"
	EnrollmentCancelled EnrollmentStatus = "cancelled"
)

// Enrollment links a user to a course they are taking. ProgressPercentage
// is a denormalized aggregate owned by the progress service; nothing else
// writes it.
type Enrollment struct {
	BaseModel
	UserID             uint             `gorm:"index:idx_user_course,unique" json:"userId"`
	CourseID           uint             `gorm:"index:idx_user_course,unique" json:"courseId"`
	Status             EnrollmentStatus `gorm:"size:20;default:'active'" json:"status"`
	ProgressPercentage int              `gorm:"default:0" json:"progressPercentage"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
