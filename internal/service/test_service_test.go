package service

import (
	"encoding/json"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"strings"
	"testing"
)

func validQuestionReq(qt model.QuestionType) QuestionReq {
	key := "fr"
	req := QuestionReq{
		Type:   qt,
		Text:   "Which one?",
		Points: 5,
		Answers: []OptionReq{
			{Text: "wrong"},
			{Text: "right", IsCorrect: true},
		},
	}
	if qt == model.QuestionMatching {
		req.Answers[1].MatchKey = &key
	}
	return req
}

func TestValidateTestReq(t *testing.T) {
	zero := 0
	thirty := 30

	tests := []struct {
		name    string
		req     TestReq
		wantErr bool
	}{
		{name: "valid", req: TestReq{MaxScore: 100, TimeLimitMinutes: &thirty, Difficulty: "medium"}},
		{name: "no time limit", req: TestReq{MaxScore: 1}},
		{name: "zero max score", req: TestReq{MaxScore: 0}, wantErr: true},
		{name: "zero time limit", req: TestReq{MaxScore: 10, TimeLimitMinutes: &zero}, wantErr: true},
		{name: "bogus difficulty", req: TestReq{MaxScore: 10, Difficulty: "impossible"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTestReq(&tc.req)
			if tc.wantErr && !util.IsValidationError(err) {
				t.Errorf("err = %v, want validation error", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateQuestionReq(t *testing.T) {
	noCorrect := validQuestionReq(model.QuestionMultipleChoice)
	noCorrect.Answers[1].IsCorrect = false

	noAnswers := validQuestionReq(model.QuestionTextInput)
	noAnswers.Answers = nil

	zeroPoints := validQuestionReq(model.QuestionTrueFalse)
	zeroPoints.Points = 0

	matchingNoKey := validQuestionReq(model.QuestionMatching)
	matchingNoKey.Answers[1].MatchKey = nil

	badType := validQuestionReq(model.QuestionMultipleChoice)
	badType.Type = "essay"

	tests := []struct {
		name    string
		req     QuestionReq
		wantErr bool
	}{
		{name: "multiple choice", req: validQuestionReq(model.QuestionMultipleChoice)},
		{name: "true false", req: validQuestionReq(model.QuestionTrueFalse)},
		{name: "matching", req: validQuestionReq(model.QuestionMatching)},
		{name: "text input", req: validQuestionReq(model.QuestionTextInput)},
		{name: "no correct option", req: noCorrect, wantErr: true},
		{name: "empty answers", req: noAnswers, wantErr: true},
		{name: "zero points", req: zeroPoints, wantErr: true},
		{name: "matching correct option without matchKey", req: matchingNoKey, wantErr: true},
		{name: "unknown type", req: badType, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateQuestionReq(&tc.req)
			if tc.wantErr && !util.IsValidationError(err) {
				t.Errorf("err = %v, want validation error", err)
			}
			if !tc.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func viewFixture() (*model.Test, []model.Question, map[uint][]model.AnswerOption) {
	test := &model.Test{Title: "Midterm", MaxScore: 10, IsActive: true}
	test.ID = 1

	q := model.Question{TestID: 1, Type: model.QuestionMatching, Points: 10, Order: 1}
	q.ID = 1

	key := "a"
	options := map[uint][]model.AnswerOption{
		1: {
			{BaseModel: model.BaseModel{ID: 11}, QuestionID: 1, Text: "left", IsCorrect: true, MatchKey: &key},
			{BaseModel: model.BaseModel{ID: 12}, QuestionID: 1, Text: "decoy"},
		},
	}
	return test, []model.Question{q}, options
}

// 学生在完成作答前拿到的 JSON 里不允许出现 isCorrect 字段，连 false 都不行
func TestStudentViewNeverLeaksCorrectness(t *testing.T) {
	test, questions, options := viewFixture()

	view := BuildTestView(test, questions, options, false)
	raw, err := json.Marshal(view)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "isCorrect") {
		t.Errorf("redacted payload leaks correctness: %s", raw)
	}
	// matchKey 保留，否则连线题无法渲染
	if !strings.Contains(string(raw), "matchKey") {
		t.Errorf("redacted payload must keep matchKey: %s", raw)
	}
}

func TestRevealedViewCarriesCorrectness(t *testing.T) {
	test, questions, options := viewFixture()

	view := BuildTestView(test, questions, options, true)
	if len(view.Questions) != 1 || len(view.Questions[0].Options) != 2 {
		t.Fatalf("unexpected view shape: %+v", view)
	}

	for _, opt := range view.Questions[0].Options {
		if opt.IsCorrect == nil {
			t.Fatalf("option %d missing IsCorrect in revealed view", opt.ID)
		}
		want := opt.ID == 11
		if *opt.IsCorrect != want {
			t.Errorf("option %d IsCorrect = %v, want %v", opt.ID, *opt.IsCorrect, want)
		}
	}
}
