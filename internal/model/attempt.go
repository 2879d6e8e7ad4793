package model

import "time"

// Attempt is one student's run through one test. At most one open attempt may
// exist per (test, student): Open is 1 while in progress and NULLed on
// completion, and MySQL unique indexes skip NULL components, so the unique
// index below only constrains open rows.
type Attempt struct {
	UUIDBase
	TestID          uint       `gorm:"uniqueIndex:idx_attempt_open;index;type:bigint unsigned" json:"testId"`
	StudentID       uint       `gorm:"uniqueIndex:idx_attempt_open;index;type:bigint unsigned" json:"studentId"`
	Open            *bool      `gorm:"uniqueIndex:idx_attempt_open" json:"-"`
	StartedAt       time.Time  `json:"startedAt"`
	CompletedAt     *time.Time `json:"completedAt,omitempty"`
	Late            bool       `gorm:"default:false" json:"late"`
	Score           int        `gorm:"default:0" json:"score"`
	MaxScore        int        `gorm:"default:0" json:"maxScore"` // snapshot of Test.MaxScore at start
	TeacherScore    *int       `json:"teacherScore,omitempty"`
	TeacherFeedback string     `gorm:"type:text" json:"teacherFeedback,omitempty"`
}

func (Attempt) TableName() string {
	return "attempts"
}

func (a *Attempt) Completed() bool {
	return a.CompletedAt != nil
}

// EffectiveScore is the score shown to clients: the teacher override when set,
// otherwise the computed score. It stays nil while the test is not
// auto-graded and no teacher score exists.
func (a *Attempt) EffectiveScore(autoGrade bool) *int {
	if a.TeacherScore != nil {
		return a.TeacherScore
	}
	if !autoGrade {
		return nil
	}
	s := a.Score
	return &s
}

// AttemptAnswer is written exactly once per question at submission time and
// never outlives its attempt. AnswerIDs holds a JSON array of option ids.
// IsCorrect stays NULL only for question types the evaluator cannot decide.
type AttemptAnswer struct {
	UUIDBase
	AttemptID  string  `gorm:"index;type:varchar(36)" json:"attemptId"`
	QuestionID uint    `gorm:"index;type:bigint unsigned" json:"questionId"`
	AnswerIDs  string  `gorm:"type:json" json:"answerIds"`
	TextAnswer *string `gorm:"type:text" json:"textAnswer,omitempty"`
	IsCorrect  *bool   `json:"isCorrect"`
	Points     int     `gorm:"default:0" json:"points"`
}

func (AttemptAnswer) TableName() string {
	return "attempt_answers"
}
