package service

import (
	"lms_backend/internal/model"
	"testing"
	"time"
)

func intPtr(n int) *int { return &n }

func TestAggregateScore(t *testing.T) {
	answers := []model.AttemptAnswer{
		{QuestionID: 1, Points: 10},
		{QuestionID: 2, Points: 0},
		{QuestionID: 3, Points: 5},
		{QuestionID: 4, Points: 3},
	}

	if got := AggregateScore(answers); got != 18 {
		t.Errorf("AggregateScore = %d, want 18", got)
	}

	// 与题目顺序无关
	reversed := []model.AttemptAnswer{answers[3], answers[2], answers[1], answers[0]}
	if got := AggregateScore(reversed); got != 18 {
		t.Errorf("AggregateScore(reversed) = %d, want 18", got)
	}

	if got := AggregateScore(nil); got != 0 {
		t.Errorf("AggregateScore(nil) = %d, want 0", got)
	}
}

func TestEffectiveScore(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name         string
		score        int
		teacherScore *int
		autoGrade    bool
		want         *int
	}{
		{name: "auto grade uses computed score", score: 40, autoGrade: true, want: intPtr(40)},
		{name: "override wins over computed", score: 40, teacherScore: intPtr(85), autoGrade: true, want: intPtr(85)},
		{name: "override wins even without auto grade", score: 40, teacherScore: intPtr(85), autoGrade: false, want: intPtr(85)},
		{name: "manual grading pending", score: 40, autoGrade: false, want: nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			attempt := &model.Attempt{
				Score:        tc.score,
				TeacherScore: tc.teacherScore,
				CompletedAt:  &now,
			}
			got := attempt.EffectiveScore(tc.autoGrade)
			if (got == nil) != (tc.want == nil) {
				t.Fatalf("EffectiveScore = %v, want %v", got, tc.want)
			}
			if got != nil && *got != *tc.want {
				t.Errorf("EffectiveScore = %d, want %d", *got, *tc.want)
			}
		})
	}
}
