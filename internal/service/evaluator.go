package service

import (
	"fmt"
	"lms_backend/internal/model"
	"strings"
)

// SubmittedAnswer 学生对单个题目的作答
type SubmittedAnswer struct {
	QuestionID uint    `json:"questionId"`
	AnswerIDs  []uint  `json:"answerIds"`
	TextAnswer *string `json:"textAnswer"`
}

// EvalResult 单题评分结果。IsCorrect 为 nil 表示该题型无法自动判定，留待人工评分
type EvalResult struct {
	IsCorrect *bool
	Points    int
}

func decided(correct bool, points int) EvalResult {
	res := EvalResult{IsCorrect: &correct}
	if correct {
		res.Points = points
	}
	return res
}

// Evaluate 纯函数：根据题目、选项与作答计算单题得分。
// question.Type 之外的取值一律报错，新增题型必须补齐此处的分支。
func Evaluate(question *model.Question, options []model.AnswerOption, sub SubmittedAnswer) (EvalResult, error) {
	switch question.Type {
	case model.QuestionMultipleChoice, model.QuestionTrueFalse:
		return evaluateChoice(question, options, sub), nil
	case model.QuestionMatching:
		return evaluateMatching(question, options, sub), nil
	case model.QuestionTextInput:
		return evaluateTextInput(question, options, sub), nil
	default:
		return EvalResult{}, fmt.Errorf("unknown question type %q", question.Type)
	}
}

// evaluateChoice 单选与判断题共用：取作答列表的第一个选项ID，多余的忽略
func evaluateChoice(question *model.Question, options []model.AnswerOption, sub SubmittedAnswer) EvalResult {
	if len(sub.AnswerIDs) == 0 {
		return decided(false, question.Points)
	}

	selected := sub.AnswerIDs[0]
	for _, opt := range options {
		if opt.ID == selected {
			return decided(opt.IsCorrect, question.Points)
		}
	}
	// 选项不属于该题
	return decided(false, question.Points)
}

type matchPair struct {
	optionID uint
	matchKey string
}

// evaluateMatching 全对才得分：作答的 (选项ID, matchKey) 集合必须与正确集合完全相等
func evaluateMatching(question *model.Question, options []model.AnswerOption, sub SubmittedAnswer) EvalResult {
	byID := make(map[uint]model.AnswerOption, len(options))
	correct := make(map[matchPair]bool)
	for _, opt := range options {
		byID[opt.ID] = opt
		if opt.IsCorrect {
			key := ""
			if opt.MatchKey != nil {
				key = *opt.MatchKey
			}
			correct[matchPair{optionID: opt.ID, matchKey: key}] = true
		}
	}

	selected := make(map[matchPair]bool)
	for _, id := range sub.AnswerIDs {
		opt, ok := byID[id]
		if !ok {
			// 选了不存在的选项，整题判错
			return decided(false, question.Points)
		}
		key := ""
		if opt.MatchKey != nil {
			key = *opt.MatchKey
		}
		selected[matchPair{optionID: opt.ID, matchKey: key}] = true
	}

	if len(selected) != len(correct) || len(correct) == 0 {
		return decided(false, question.Points)
	}
	for pair := range selected {
		if !correct[pair] {
			return decided(false, question.Points)
		}
	}
	return decided(true, question.Points)
}

// evaluateTextInput 去首尾空格并忽略大小写后，与任一正确选项文本相等即得分
func evaluateTextInput(question *model.Question, options []model.AnswerOption, sub SubmittedAnswer) EvalResult {
	if sub.TextAnswer == nil {
		return decided(false, question.Points)
	}

	answer := normalizeText(*sub.TextAnswer)
	if answer == "" {
		return decided(false, question.Points)
	}

	for _, opt := range options {
		if opt.IsCorrect && normalizeText(opt.Text) == answer {
			return decided(true, question.Points)
		}
	}
	return decided(false, question.Points)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
