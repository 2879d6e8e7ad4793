package repository

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) FindByID(id string) (*model.Attempt, error) {
	var a model.Attempt
	if err := r.DB.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AttemptRepository) FindOpen(testID, studentID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.Where("test_id = ? AND student_id = ? AND completed_at IS NULL", testID, studentID).
		First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new open attempt. The unique index on
// (test_id, student_id, open) makes a concurrent double-start fail with a
// duplicate key; callers fall back to FindOpen in that case.
func (r *AttemptRepository) Create(attempt *model.Attempt) error {
	return r.DB.Create(attempt).Error
}

func (r *AttemptRepository) HasCompleted(testID, studentID uint) (bool, error) {
	var count int64
	err := r.DB.Model(&model.Attempt{}).
		Where("test_id = ? AND student_id = ? AND completed_at IS NOT NULL", testID, studentID).
		Count(&count).Error
	return count > 0, err
}

func (r *AttemptRepository) ListByTest(testID uint) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.Where("test_id = ?", testID).Order("started_at desc").Find(&attempts).Error
	return attempts, err
}

// Complete closes the attempt and persists its answers atomically. The
// guarded update on completed_at IS NULL decides the race between two
// concurrent submits: the loser sees zero affected rows.
func (r *AttemptRepository) Complete(id string, completedAt time.Time, score int, late bool, answers []model.AttemptAnswer) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Attempt{}).
			Where("id = ? AND completed_at IS NULL", id).
			Updates(map[string]interface{}{
				"completed_at": completedAt,
				"score":        score,
				"late":         late,
				"open":         nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return util.ErrTestAlreadySubmitted
		}

		if len(answers) == 0 {
			return nil
		}
		for i := range answers {
			answers[i].AttemptID = id
		}
		return tx.Create(&answers).Error
	})
}

// Grade sets or clears the teacher override. The guard on completed_at keeps
// grading off in-progress attempts and serializes against a racing submit.
func (r *AttemptRepository) Grade(id string, teacherScore *int, feedback string) error {
	res := r.DB.Model(&model.Attempt{}).
		Where("id = ? AND completed_at IS NOT NULL", id).
		Updates(map[string]interface{}{
			"teacher_score":    teacherScore,
			"teacher_feedback": feedback,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrAttemptNotCompleted
	}
	return nil
}

func (r *AttemptRepository) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	var answers []model.AttemptAnswer
	err := r.DB.Where("attempt_id = ?", attemptID).Find(&answers).Error
	return answers, err
}
