package service

import "lms_backend/internal/model"

// OptionView 选项视图。IsCorrect 为指针：学生在完成作答前拿到的视图里该字段
// 整体缺失，matchKey 保留（渲染连线题需要，但不泄露配对正确性）。
type OptionView struct {
	ID        uint    `json:"id"`
	Text      string  `json:"text"`
	Order     int     `json:"order"`
	MatchKey  *string `json:"matchKey,omitempty"`
	IsCorrect *bool   `json:"isCorrect,omitempty"`
}

type QuestionView struct {
	ID      uint               `json:"id"`
	Type    model.QuestionType `json:"type"`
	Text    string             `json:"text"`
	Points  int                `json:"points"`
	Order   int                `json:"order"`
	Options []OptionView       `json:"options"`
}

type TestView struct {
	*model.Test
	Questions []QuestionView `json:"questions"`
}

// BuildTestView 按角色组装试卷视图。revealAnswers 为 false 时剥掉所有
// isCorrect 信息；教师视图与学生完成作答后的回顾视图传 true。
func BuildTestView(test *model.Test, questions []model.Question, optionsByQuestion map[uint][]model.AnswerOption, revealAnswers bool) *TestView {
	view := &TestView{
		Test:      test,
		Questions: make([]QuestionView, 0, len(questions)),
	}

	for _, q := range questions {
		qv := QuestionView{
			ID:     q.ID,
			Type:   q.Type,
			Text:   q.Text,
			Points: q.Points,
			Order:  q.Order,
		}
		for _, opt := range optionsByQuestion[q.ID] {
			ov := OptionView{
				ID:       opt.ID,
				Text:     opt.Text,
				Order:    opt.Order,
				MatchKey: opt.MatchKey,
			}
			if revealAnswers {
				correct := opt.IsCorrect
				ov.IsCorrect = &correct
			}
			qv.Options = append(qv.Options, ov)
		}
		view.Questions = append(view.Questions, qv)
	}
	return view
}
