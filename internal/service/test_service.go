package service

import (
	"context"
	"encoding/json"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"lms_backend/pkg/logger"
)

const studentViewCacheTTL = 5 * time.Minute

type TestService struct {
	Repo     *repository.TestRepository
	Attempts *repository.AttemptRepository
	Courses  *repository.CourseRepository
	Redis    *redis.Client
}

func NewTestService(repo *repository.TestRepository, attempts *repository.AttemptRepository, courses *repository.CourseRepository, rdb *redis.Client) *TestService {
	return &TestService{
		Repo:     repo,
		Attempts: attempts,
		Courses:  courses,
		Redis:    rdb,
	}
}

type TestReq struct {
	CourseID         uint   `json:"courseId" binding:"required"`
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description"`
	MaxScore         int    `json:"maxScore"`
	TimeLimitMinutes *int   `json:"timeLimitMinutes"`
	AutoGrade        *bool  `json:"autoGrade"`
	Difficulty       string `json:"difficulty"`
}

type OptionReq struct {
	Text      string  `json:"text" binding:"required"`
	IsCorrect bool    `json:"isCorrect"`
	Order     int     `json:"order"`
	MatchKey  *string `json:"matchKey"`
}

type QuestionReq struct {
	Type    model.QuestionType `json:"type" binding:"required"`
	Text    string             `json:"text" binding:"required"`
	Points  int                `json:"points"`
	Order   int                `json:"order"`
	Answers []OptionReq        `json:"answers"`
}

func validateTestReq(req *TestReq) error {
	if req.MaxScore < 1 {
		return util.NewValidationError("maxScore must be at least 1")
	}
	if req.TimeLimitMinutes != nil && *req.TimeLimitMinutes < 1 {
		return util.NewValidationError("timeLimitMinutes must be at least 1 when set")
	}
	switch req.Difficulty {
	case "", model.TestDifficultyLow, model.TestDifficultyMedium, model.TestDifficultyHigh:
	default:
		return util.NewValidationError("difficulty must be one of low, medium, high")
	}
	return nil
}

// validateQuestionReq 创建期契约：所有题型都必须带选项（text_input 的选项存
// 正确答案文本），单选/判断至少要有一个正确选项，连线题的正确选项必须带 matchKey。
func validateQuestionReq(req *QuestionReq) error {
	if !req.Type.Valid() {
		return util.NewValidationError("unknown question type %q", req.Type)
	}
	if req.Points < 1 {
		return util.NewValidationError("points must be at least 1")
	}
	if len(req.Answers) == 0 {
		return util.NewValidationError("answers must not be empty")
	}

	correctCount := 0
	for _, opt := range req.Answers {
		if opt.IsCorrect {
			correctCount++
			if req.Type == model.QuestionMatching && (opt.MatchKey == nil || *opt.MatchKey == "") {
				return util.NewValidationError("matching question correct options require a matchKey")
			}
		}
	}

	switch req.Type {
	case model.QuestionMultipleChoice, model.QuestionTrueFalse, model.QuestionMatching, model.QuestionTextInput:
		if correctCount == 0 {
			return util.NewValidationError("question requires at least one option flagged correct")
		}
	}
	return nil
}

func (s *TestService) CreateTest(teacher *util.Claims, req TestReq) (*model.Test, error) {
	if err := validateTestReq(&req); err != nil {
		return nil, err
	}
	if err := s.requireCourseOwnership(req.CourseID, teacher); err != nil {
		return nil, err
	}

	test := &model.Test{
		CourseID:         req.CourseID,
		Title:            req.Title,
		Description:      req.Description,
		MaxScore:         req.MaxScore,
		TimeLimitMinutes: req.TimeLimitMinutes,
		AutoGrade:        true,
		IsActive:         true,
		Difficulty:       req.Difficulty,
	}
	if req.AutoGrade != nil {
		test.AutoGrade = *req.AutoGrade
	}
	if test.Difficulty == "" {
		test.Difficulty = model.TestDifficultyMedium
	}

	if err := s.Repo.Create(test); err != nil {
		return nil, err
	}
	return test, nil
}

func (s *TestService) AddQuestion(teacher *util.Claims, testID uint, req QuestionReq) (*model.Question, error) {
	if err := validateQuestionReq(&req); err != nil {
		return nil, err
	}

	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourseOwnership(test.CourseID, teacher); err != nil {
		return nil, err
	}

	question := &model.Question{
		TestID: testID,
		Type:   req.Type,
		Text:   req.Text,
		Points: req.Points,
		Order:  req.Order,
	}
	options := make([]model.AnswerOption, 0, len(req.Answers))
	for _, opt := range req.Answers {
		options = append(options, model.AnswerOption{
			Text:      opt.Text,
			IsCorrect: opt.IsCorrect,
			Order:     opt.Order,
			MatchKey:  opt.MatchKey,
		})
	}

	if err := s.Repo.CreateQuestion(question, options); err != nil {
		return nil, err
	}

	s.invalidateStudentView(context.Background(), testID)
	return question, nil
}

func (s *TestService) SetActive(teacher *util.Claims, testID uint, active bool) error {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return err
	}
	if err := s.requireCourseOwnership(test.CourseID, teacher); err != nil {
		return err
	}
	if err := s.Repo.SetActive(testID, active); err != nil {
		return err
	}
	s.invalidateStudentView(context.Background(), testID)
	return nil
}

// UpdateTest 更新试卷元数据。不改动题目；maxScore 的变化只影响之后开始的作答
// （已有作答持有开始时的快照）。
func (s *TestService) UpdateTest(teacher *util.Claims, testID uint, req TestReq) (*model.Test, error) {
	if err := validateTestReq(&req); err != nil {
		return nil, err
	}

	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourseOwnership(test.CourseID, teacher); err != nil {
		return nil, err
	}

	test.Title = req.Title
	test.Description = req.Description
	test.MaxScore = req.MaxScore
	test.TimeLimitMinutes = req.TimeLimitMinutes
	if req.AutoGrade != nil {
		test.AutoGrade = *req.AutoGrade
	}
	if req.Difficulty != "" {
		test.Difficulty = req.Difficulty
	}

	if err := s.Repo.Update(test); err != nil {
		return nil, err
	}
	s.invalidateStudentView(context.Background(), testID)
	return test, nil
}

// DeleteTest 级联删除试卷及其题目、选项、作答记录
func (s *TestService) DeleteTest(teacher *util.Claims, testID uint) error {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return err
	}
	if err := s.requireCourseOwnership(test.CourseID, teacher); err != nil {
		return err
	}
	if err := s.Repo.Delete(testID); err != nil {
		return err
	}
	s.invalidateStudentView(context.Background(), testID)
	return nil
}

// GetTestForTeacher 教师视图：包含完整的 isCorrect 与 matchKey 数据
func (s *TestService) GetTestForTeacher(testID uint, teacher *util.Claims) (*TestView, error) {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if err := s.requireCourseOwnership(test.CourseID, teacher); err != nil {
		return nil, err
	}
	return s.buildView(test, true)
}

// GetTestForStudent 学生视图：完成作答之前拿到的载荷里不出现任何 isCorrect；
// 完成后允许回顾正确性。未完成的视图走 redis 缓存。
func (s *TestService) GetTestForStudent(ctx context.Context, testID, studentID uint) (*TestView, error) {
	test, err := s.Repo.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if !test.IsActive {
		return nil, util.ErrTestNotActive
	}

	enrolled, err := s.Courses.IsEnrolled(test.CourseID, studentID)
	if err != nil {
		return nil, err
	}
	if !enrolled {
		return nil, util.ErrNotEnrolled
	}

	completed, err := s.Attempts.HasCompleted(testID, studentID)
	if err != nil {
		return nil, err
	}
	if completed {
		return s.buildView(test, true)
	}

	if view, ok := s.studentViewFromCache(ctx, testID); ok {
		return view, nil
	}

	view, err := s.buildView(test, false)
	if err != nil {
		return nil, err
	}
	s.cacheStudentView(ctx, testID, view)
	return view, nil
}

// ListByCourse 学生只看到启用中的试卷，教师看到全部
func (s *TestService) ListByCourse(courseID uint, caller *util.Claims) ([]model.Test, error) {
	if caller.Role == model.Student {
		enrolled, err := s.Courses.IsEnrolled(courseID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !enrolled {
			return nil, util.ErrNotEnrolled
		}
	} else if err := s.requireCourseOwnership(courseID, caller); err != nil {
		return nil, err
	}

	tests, err := s.Repo.ListByCourse(courseID)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.Student {
		return tests, nil
	}

	active := make([]model.Test, 0, len(tests))
	for _, t := range tests {
		if t.IsActive {
			active = append(active, t)
		}
	}
	return active, nil
}

func (s *TestService) buildView(test *model.Test, revealAnswers bool) (*TestView, error) {
	questions, err := s.Repo.ListQuestions(test.ID)
	if err != nil {
		return nil, err
	}
	optionsByQuestion, err := s.Repo.ListOptionsForTest(test.ID)
	if err != nil {
		return nil, err
	}
	return BuildTestView(test, questions, optionsByQuestion, revealAnswers), nil
}

func (s *TestService) requireCourseOwnership(courseID uint, caller *util.Claims) error {
	if caller.Role == model.Admin {
		return nil
	}
	owns, err := s.Courses.OwnsCourse(courseID, caller.UserID)
	if err != nil {
		return err
	}
	if !owns {
		return util.ErrPermissionDenied
	}
	return nil
}

func studentViewCacheKey(testID uint) string {
	return fmt.Sprintf("test_view:%d", testID)
}

func (s *TestService) studentViewFromCache(ctx context.Context, testID uint) (*TestView, bool) {
	if s.Redis == nil {
		return nil, false
	}
	raw, err := s.Redis.Get(ctx, studentViewCacheKey(testID)).Bytes()
	if err != nil {
		return nil, false
	}
	var view TestView
	if err := json.Unmarshal(raw, &view); err != nil {
		return nil, false
	}
	return &view, true
}

func (s *TestService) cacheStudentView(ctx context.Context, testID uint, view *TestView) {
	if s.Redis == nil {
		return
	}
	raw, err := json.Marshal(view)
	if err != nil {
		return
	}
	if err := s.Redis.Set(ctx, studentViewCacheKey(testID), raw, studentViewCacheTTL).Err(); err != nil {
		logger.Log.Warn("failed to cache student test view", zap.Uint("testId", testID), zap.Error(err))
	}
}

func (s *TestService) invalidateStudentView(ctx context.Context, testID uint) {
	if s.Redis == nil {
		return
	}
	if err := s.Redis.Del(ctx, studentViewCacheKey(testID)).Err(); err != nil {
		logger.Log.Warn("failed to invalidate student test view", zap.Uint("testId", testID), zap.Error(err))
	}
}
