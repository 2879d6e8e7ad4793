package repository

import (
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"gorm.io/gorm"
)

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) Create(test *model.Test) error {
	return r.DB.Create(test).Error
}

func (r *TestRepository) FindByID(id uint) (*model.Test, error) {
	var test model.Test
	if err := r.DB.First(&test, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, util.ErrTestNotFound
		}
		return nil, err
	}
	return &test, nil
}

func (r *TestRepository) Update(test *model.Test) error {
	return r.DB.Save(test).Error
}

func (r *TestRepository) SetActive(id uint, active bool) error {
	res := r.DB.Model(&model.Test{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return util.ErrTestNotFound
	}
	return nil
}

func (r *TestRepository) ListByCourse(courseID uint) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.Where("course_id = ?", courseID).Order("created_at desc").Find(&tests).Error
	return tests, err
}

// CreateQuestion persists the question and all its options in one
// transaction, so a failure never leaves an orphaned question behind.
func (r *TestRepository) CreateQuestion(question *model.Question, options []model.AnswerOption) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(question).Error; err != nil {
			return err
		}
		for i := range options {
			options[i].QuestionID = question.ID
		}
		return tx.Create(&options).Error
	})
}

func (r *TestRepository) ListQuestions(testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("test_id = ?", testID).
		Order("`order` asc, id asc").
		Find(&questions).Error
	return questions, err
}

// ListOptionsForTest returns all options of a test keyed by question id.
func (r *TestRepository) ListOptionsForTest(testID uint) (map[uint][]model.AnswerOption, error) {
	var options []model.AnswerOption
	err := r.DB.
		Joins("JOIN questions ON questions.id = answer_options.question_id").
		Where("questions.test_id = ? AND questions.deleted_at IS NULL", testID).
		Order("answer_options.`order` asc, answer_options.id asc").
		Find(&options).Error
	if err != nil {
		return nil, err
	}

	byQuestion := make(map[uint][]model.AnswerOption, len(options))
	for _, o := range options {
		byQuestion[o.QuestionID] = append(byQuestion[o.QuestionID], o)
	}
	return byQuestion, nil
}

func (r *TestRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		var questionIDs []uint
		if err := tx.Model(&model.Question{}).Where("test_id = ?", id).Pluck("id", &questionIDs).Error; err != nil {
			return err
		}
		if len(questionIDs) > 0 {
			if err := tx.Where("question_id IN ?", questionIDs).Delete(&model.AnswerOption{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
				return err
			}
		}
		var attemptIDs []string
		if err := tx.Model(&model.Attempt{}).Where("test_id = ?", id).Pluck("id", &attemptIDs).Error; err != nil {
			return err
		}
		if len(attemptIDs) > 0 {
			if err := tx.Where("attempt_id IN ?", attemptIDs).Delete(&model.AttemptAnswer{}).Error; err != nil {
				return err
			}
			if err := tx.Where("test_id = ?", id).Delete(&model.Attempt{}).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&model.Test{}, id).Error
	})
}
