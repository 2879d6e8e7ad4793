package model

// Course is the thin container tests hang off. The rest of course management
// (materials, assignments, chat) lives in other services.
type Course struct {
	BaseModel
	TeacherID   uint   `gorm:"index;type:bigint unsigned" json:"teacherId"`
	Title       string `gorm:"size:255;not null" json:"title"`
	Description string `gorm:"type:text" json:"description"`
}

func (Course) TableName() string {
	return "courses"
}

// Enrollment links a student to a course. One row per (course, student).
type Enrollment struct {
	BaseModel
	CourseID  uint `gorm:"uniqueIndex:idx_course_student;type:bigint unsigned" json:"courseId"`
	StudentID uint `gorm:"uniqueIndex:idx_course_student;type:bigint unsigned" json:"studentId"`
}

func (Enrollment) TableName() string {
	return "enrollments"
}
