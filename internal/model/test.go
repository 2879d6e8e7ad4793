package model

const (
	TestDifficultyLow    = "low"
	TestDifficultyMedium = "medium"
	TestDifficultyHigh   = "high"
)

// swagger:model Test
type Test struct {
	BaseModel
	CourseID         uint   `gorm:"index;type:bigint unsigned" json:"courseId"`
	Title            string `gorm:"size:255;not null" json:"title"`
	Description      string `gorm:"type:text" json:"description"`
	MaxScore         int    `gorm:"not null" json:"maxScore"`
	TimeLimitMinutes *int   `json:"timeLimitMinutes,omitempty"`
	AutoGrade        bool   `gorm:"default:true" json:"autoGrade"`
	IsActive         bool   `gorm:"default:true" json:"isActive"`
	Difficulty       string `gorm:"type:enum('low','medium','high');default:'medium'" json:"difficulty"`
}

func (Test) TableName() string {
	return "tests"
}
