package model

// QuestionType is a closed enum. The answer evaluator switches over it and
// treats any other value as an error, so a new type cannot be added without
// touching every dispatch site.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
	QuestionMatching       QuestionType = "matching"
	QuestionTextInput      QuestionType = "text_input"
)

func (t QuestionType) Valid() bool {
	switch t {
	case QuestionMultipleChoice, QuestionTrueFalse, QuestionMatching, QuestionTextInput:
		return true
	}
	return false
}

// swagger:model Question
type Question struct {
	BaseModel
	TestID uint         `gorm:"index;type:bigint unsigned" json:"testId"`
	Type   QuestionType `gorm:"size:50;not null" json:"type"`
	Text   string       `gorm:"type:text;not null" json:"text"`
	Points int          `gorm:"not null" json:"points"`
	Order  int          `gorm:"default:0" json:"order"`
}

func (Question) TableName() string {
	return "questions"
}

// AnswerOption belongs to exactly one question. For matching questions
// MatchKey groups an option with its correct pairing; other types ignore it.
// For text_input questions the options flagged correct hold the accepted
// answer strings.
type AnswerOption struct {
	BaseModel
	QuestionID uint    `gorm:"index;type:bigint unsigned" json:"questionId"`
	Text       string  `gorm:"type:text;not null" json:"text"`
	IsCorrect  bool    `gorm:"default:false" json:"isCorrect"`
	Order      int     `gorm:"default:0" json:"order"`
	MatchKey   *string `gorm:"size:100" json:"matchKey,omitempty"`
}

func (AnswerOption) TableName() string {
	return "answer_options"
}
