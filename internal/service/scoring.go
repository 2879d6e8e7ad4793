package service

import "lms_backend/internal/model"

// AggregateScore 汇总一次作答的总分，与题目顺序无关
func AggregateScore(answers []model.AttemptAnswer) int {
	total := 0
	for _, a := range answers {
		total += a.Points
	}
	return total
}
