package service

import (
	"encoding/json"
	"errors"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"time"

	"gorm.io/gorm"
)

// TestStore 答题流程需要的题库读取能力
type TestStore interface {
	FindByID(id uint) (*model.Test, error)
	ListQuestions(testID uint) ([]model.Question, error)
	ListOptionsForTest(testID uint) (map[uint][]model.AnswerOption, error)
}

// AttemptStore 作答记录的持久化能力
type AttemptStore interface {
	FindByID(id string) (*model.Attempt, error)
	FindOpen(testID, studentID uint) (*model.Attempt, error)
	Create(attempt *model.Attempt) error
	ListByTest(testID uint) ([]model.Attempt, error)
	Complete(id string, completedAt time.Time, score int, late bool, answers []model.AttemptAnswer) error
	Grade(id string, teacherScore *int, feedback string) error
	GetAnswers(attemptID string) ([]model.AttemptAnswer, error)
}

// EnrollmentStore 选课与课程归属校验
type EnrollmentStore interface {
	IsEnrolled(courseID, studentID uint) (bool, error)
	OwnsCourse(courseID, teacherID uint) (bool, error)
}

type AttemptService struct {
	Tests    TestStore
	Attempts AttemptStore
	Courses  EnrollmentStore
	now      func() time.Time
}

func NewAttemptService(tests TestStore, attempts AttemptStore, courses EnrollmentStore) *AttemptService {
	return &AttemptService{
		Tests:    tests,
		Attempts: attempts,
		Courses:  courses,
		now:      time.Now,
	}
}

const (
	AttemptStatusInProgress    = "in_progress"
	AttemptStatusPendingReview = "pending_review"
	AttemptStatusCompleted     = "completed"
)

// AttemptDetail 返回给客户端的作答视图：对外暴露的分数永远是 effectiveScore。
// Score 遮蔽内嵌模型的原始算分字段：人工复核期间算法分只是给教师的参考，
// 学生侧载荷里整个字段缺失。
type AttemptDetail struct {
	*model.Attempt
	Score          *int                  `json:"score,omitempty"`
	Status         string                `json:"status"`
	EffectiveScore *int                  `json:"effectiveScore"`
	Answers        []model.AttemptAnswer `json:"answers,omitempty"`
}

func (s *AttemptService) buildDetail(attempt *model.Attempt, test *model.Test, withAnswers, revealComputed bool) (*AttemptDetail, error) {
	score := attempt.Score
	detail := &AttemptDetail{
		Attempt:        attempt,
		Score:          &score,
		Status:         AttemptStatusInProgress,
		EffectiveScore: nil,
	}
	if !attempt.Completed() {
		return detail, nil
	}

	detail.EffectiveScore = attempt.EffectiveScore(test.AutoGrade)
	if detail.EffectiveScore == nil {
		detail.Status = AttemptStatusPendingReview
		if !revealComputed {
			detail.Score = nil
			withAnswers = false
		}
	} else {
		detail.Status = AttemptStatusCompleted
	}

	if withAnswers {
		answers, err := s.Attempts.GetAnswers(attempt.ID)
		if err != nil {
			return nil, err
		}
		detail.Answers = answers
	}
	return detail, nil
}

// Start 开始一次作答。重复调用返回同一条进行中的记录（支持页面刷新）；
// 并发下的重复创建由 (test_id, student_id, open) 唯一索引兜底。
func (s *AttemptService) Start(testID, studentID uint) (*model.Attempt, error) {
	test, err := s.Tests.FindByID(testID)
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

	if existing, err := s.Attempts.FindOpen(testID, studentID); err != nil {
		return nil, err
	} else if existing != nil {
		return existing, nil
	}

	open := true
	attempt := &model.Attempt{
		TestID:    testID,
		StudentID: studentID,
		Open:      &open,
		StartedAt: s.now(),
		Score:     0,
		MaxScore:  test.MaxScore,
	}

	err = s.Attempts.Create(attempt)
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// 另一并发请求抢先创建，返回那一条
		existing, ferr := s.Attempts.FindOpen(testID, studentID)
		if ferr != nil {
			return nil, ferr
		}
		if existing != nil {
			return existing, nil
		}
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return attempt, nil
}

// Submit 评完整卷并关闭作答。试卷上的每道题都会落一条 AttemptAnswer，
// 未作答的题按空作答计零分；提交只允许成功一次。
func (s *AttemptService) Submit(testID uint, attemptID string, studentID uint, subs []SubmittedAnswer) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	if attempt.TestID != testID || attempt.StudentID != studentID {
		return nil, util.ErrPermissionDenied
	}
	if attempt.Completed() {
		return nil, util.ErrTestAlreadySubmitted
	}

	test, err := s.Tests.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}
	questions, err := s.Tests.ListQuestions(attempt.TestID)
	if err != nil {
		return nil, err
	}
	optionsByQuestion, err := s.Tests.ListOptionsForTest(attempt.TestID)
	if err != nil {
		return nil, err
	}

	// 按题目索引作答；不属于本试卷的 questionId 静默忽略
	byQuestion := make(map[uint]SubmittedAnswer, len(subs))
	for _, sub := range subs {
		if _, seen := byQuestion[sub.QuestionID]; !seen {
			byQuestion[sub.QuestionID] = sub
		}
	}

	answers := make([]model.AttemptAnswer, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		sub := byQuestion[q.ID]
		sub.QuestionID = q.ID

		result, err := Evaluate(q, optionsByQuestion[q.ID], sub)
		if err != nil {
			return nil, err
		}

		answers = append(answers, model.AttemptAnswer{
			QuestionID: q.ID,
			AnswerIDs:  marshalAnswerIDs(sub.AnswerIDs),
			TextAnswer: sub.TextAnswer,
			IsCorrect:  result.IsCorrect,
			Points:     result.Points,
		})
	}

	completedAt := s.now()
	late := false
	if test.TimeLimitMinutes != nil {
		deadline := attempt.StartedAt.Add(time.Duration(*test.TimeLimitMinutes) * time.Minute)
		// 超时提交仍然接受，只做标记，由调用方在到点时自动触发提交
		late = completedAt.After(deadline)
	}

	score := AggregateScore(answers)
	if err := s.Attempts.Complete(attempt.ID, completedAt, score, late, answers); err != nil {
		return nil, err
	}

	attempt.CompletedAt = &completedAt
	attempt.Score = score
	attempt.Late = late
	attempt.Open = nil

	detail, err := s.buildDetail(attempt, test, false, false)
	if err != nil {
		return nil, err
	}
	if detail.Status != AttemptStatusPendingReview {
		detail.Answers = answers
	}
	return detail, nil
}

// GetAttempt 学生只能看自己的作答，教师能看自己课程下的所有作答
func (s *AttemptService) GetAttempt(attemptID string, caller *util.Claims) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.Tests.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}

	if err := s.authorizeAttemptAccess(attempt, test, caller); err != nil {
		return nil, err
	}

	revealComputed := caller.Role == model.Teacher || caller.Role == model.Admin
	return s.buildDetail(attempt, test, attempt.Completed(), revealComputed)
}

func (s *AttemptService) authorizeAttemptAccess(attempt *model.Attempt, test *model.Test, caller *util.Claims) error {
	switch caller.Role {
	case model.Admin:
		return nil
	case model.Teacher:
		owns, err := s.Courses.OwnsCourse(test.CourseID, caller.UserID)
		if err != nil {
			return err
		}
		if !owns {
			return util.ErrPermissionDenied
		}
		return nil
	default:
		if attempt.StudentID != caller.UserID {
			return util.ErrPermissionDenied
		}
		return nil
	}
}

// ListByTest 教师端查看某试卷的全部作答
func (s *AttemptService) ListByTest(testID uint, caller *util.Claims) ([]AttemptDetail, error) {
	test, err := s.Tests.FindByID(testID)
	if err != nil {
		return nil, err
	}
	if caller.Role != model.Admin {
		owns, err := s.Courses.OwnsCourse(test.CourseID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, util.ErrPermissionDenied
		}
	}

	attempts, err := s.Attempts.ListByTest(testID)
	if err != nil {
		return nil, err
	}

	details := make([]AttemptDetail, 0, len(attempts))
	for i := range attempts {
		d, err := s.buildDetail(&attempts[i], test, false, true)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, nil
}

// Grade 教师复核：teacherScore 传 nil 表示清除覆盖，回落到自动计分
func (s *AttemptService) Grade(attemptID string, caller *util.Claims, teacherScore *int, feedback string) (*AttemptDetail, error) {
	attempt, err := s.Attempts.FindByID(attemptID)
	if err != nil {
		return nil, err
	}
	test, err := s.Tests.FindByID(attempt.TestID)
	if err != nil {
		return nil, err
	}

	if caller.Role != model.Admin {
		owns, err := s.Courses.OwnsCourse(test.CourseID, caller.UserID)
		if err != nil {
			return nil, err
		}
		if !owns {
			return nil, util.ErrPermissionDenied
		}
	}

	if !attempt.Completed() {
		return nil, util.ErrAttemptNotCompleted
	}
	if teacherScore != nil && *teacherScore < 0 {
		return nil, util.NewValidationError("teacher score must not be negative")
	}

	if err := s.Attempts.Grade(attempt.ID, teacherScore, feedback); err != nil {
		return nil, err
	}

	attempt.TeacherScore = teacherScore
	attempt.TeacherFeedback = feedback
	return s.buildDetail(attempt, test, false, true)
}

func marshalAnswerIDs(ids []uint) string {
	if len(ids) == 0 {
		return "[]"
	}
	raw, _ := json.Marshal(ids)
	return string(raw)
}
