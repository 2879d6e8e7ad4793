package service

import (
	"errors"
	"fmt"
	"lms_backend/internal/model"
	"lms_backend/internal/util"
	"testing"
	"time"

	"gorm.io/gorm"
)

type fakeTestStore struct {
	tests     map[uint]*model.Test
	questions map[uint][]model.Question
	options   map[uint][]model.AnswerOption
}

func (f *fakeTestStore) FindByID(id uint) (*model.Test, error) {
	t, ok := f.tests[id]
	if !ok {
		return nil, util.ErrTestNotFound
	}
	return t, nil
}

func (f *fakeTestStore) ListQuestions(testID uint) ([]model.Question, error) {
	return f.questions[testID], nil
}

func (f *fakeTestStore) ListOptionsForTest(testID uint) (map[uint][]model.AnswerOption, error) {
	out := make(map[uint][]model.AnswerOption)
	for _, q := range f.questions[testID] {
		out[q.ID] = f.options[q.ID]
	}
	return out, nil
}

type fakeAttemptStore struct {
	seq        int
	attempts   map[string]*model.Attempt
	answers    map[string][]model.AttemptAnswer
	createHook func()
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{
		attempts: make(map[string]*model.Attempt),
		answers:  make(map[string][]model.AttemptAnswer),
	}
}

func (f *fakeAttemptStore) FindByID(id string) (*model.Attempt, error) {
	a, ok := f.attempts[id]
	if !ok {
		return nil, util.ErrAttemptNotFound
	}
	return a, nil
}

func (f *fakeAttemptStore) FindOpen(testID, studentID uint) (*model.Attempt, error) {
	for _, a := range f.attempts {
		if a.TestID == testID && a.StudentID == studentID && a.CompletedAt == nil {
			return a, nil
		}
	}
	return nil, nil
}

func (f *fakeAttemptStore) Create(attempt *model.Attempt) error {
	if f.createHook != nil {
		hook := f.createHook
		f.createHook = nil
		hook()
	}
	for _, a := range f.attempts {
		if a.TestID == attempt.TestID && a.StudentID == attempt.StudentID && a.CompletedAt == nil {
			return gorm.ErrDuplicatedKey
		}
	}
	f.seq++
	attempt.ID = fmt.Sprintf("attempt-%d", f.seq)
	f.attempts[attempt.ID] = attempt
	return nil
}

func (f *fakeAttemptStore) HasCompleted(testID, studentID uint) (bool, error) {
	for _, a := range f.attempts {
		if a.TestID == testID && a.StudentID == studentID && a.CompletedAt != nil {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAttemptStore) ListByTest(testID uint) ([]model.Attempt, error) {
	var out []model.Attempt
	for _, a := range f.attempts {
		if a.TestID == testID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeAttemptStore) Complete(id string, completedAt time.Time, score int, late bool, answers []model.AttemptAnswer) error {
	a, ok := f.attempts[id]
	if !ok {
		return util.ErrAttemptNotFound
	}
	if a.CompletedAt != nil {
		return util.ErrTestAlreadySubmitted
	}
	a.CompletedAt = &completedAt
	a.Score = score
	a.Late = late
	a.Open = nil

	stored := make([]model.AttemptAnswer, len(answers))
	copy(stored, answers)
	for i := range stored {
		stored[i].AttemptID = id
	}
	f.answers[id] = stored
	return nil
}

func (f *fakeAttemptStore) Grade(id string, teacherScore *int, feedback string) error {
	a, ok := f.attempts[id]
	if !ok {
		return util.ErrAttemptNotFound
	}
	if a.CompletedAt == nil {
		return util.ErrAttemptNotCompleted
	}
	a.TeacherScore = teacherScore
	a.TeacherFeedback = feedback
	return nil
}

func (f *fakeAttemptStore) GetAnswers(attemptID string) ([]model.AttemptAnswer, error) {
	return f.answers[attemptID], nil
}

type pair struct{ a, b uint }

type fakeEnrollmentStore struct {
	enrolled map[pair]bool
	owns     map[pair]bool
}

func (f *fakeEnrollmentStore) IsEnrolled(courseID, studentID uint) (bool, error) {
	return f.enrolled[pair{courseID, studentID}], nil
}

func (f *fakeEnrollmentStore) OwnsCourse(courseID, teacherID uint) (bool, error) {
	return f.owns[pair{courseID, teacherID}], nil
}

const (
	courseID   = uint(7)
	testID     = uint(1)
	studentID  = uint(100)
	teacherID  = uint(200)
	outsiderID = uint(300)
)

// 一张 maxScore=10 的试卷：一道10分单选题，正确选项 ID 12
func newFixture() (*AttemptService, *fakeTestStore, *fakeAttemptStore, *fakeEnrollmentStore) {
	test := &model.Test{
		CourseID:  courseID,
		MaxScore:  10,
		AutoGrade: true,
		IsActive:  true,
	}
	test.ID = testID

	question := model.Question{TestID: testID, Type: model.QuestionMultipleChoice, Points: 10, Order: 1}
	question.ID = 1

	tests := &fakeTestStore{
		tests:     map[uint]*model.Test{testID: test},
		questions: map[uint][]model.Question{testID: {question}},
		options: map[uint][]model.AnswerOption{
			1: {
				{BaseModel: model.BaseModel{ID: 11}, QuestionID: 1, Text: "A"},
				{BaseModel: model.BaseModel{ID: 12}, QuestionID: 1, Text: "B", IsCorrect: true},
			},
		},
	}
	attempts := newFakeAttemptStore()
	courses := &fakeEnrollmentStore{
		enrolled: map[pair]bool{{courseID, studentID}: true},
		owns:     map[pair]bool{{courseID, teacherID}: true},
	}

	svc := NewAttemptService(tests, attempts, courses)
	return svc, tests, attempts, courses
}

func TestStartIdempotent(t *testing.T) {
	svc, _, _, _ := newFixture()

	first, err := svc.Start(testID, studentID)
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	second, err := svc.Start(testID, studentID)
	if err != nil {
		t.Fatalf("second Start: %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("expected same attempt, got %q and %q", first.ID, second.ID)
	}
	if first.MaxScore != 10 {
		t.Errorf("MaxScore = %d, want snapshot 10", first.MaxScore)
	}
}

func TestStartNotEnrolled(t *testing.T) {
	svc, _, _, _ := newFixture()

	if _, err := svc.Start(testID, outsiderID); !errors.Is(err, util.ErrNotEnrolled) {
		t.Errorf("err = %v, want ErrNotEnrolled", err)
	}
}

func TestStartInactiveTest(t *testing.T) {
	svc, tests, _, _ := newFixture()
	tests.tests[testID].IsActive = false

	if _, err := svc.Start(testID, studentID); !errors.Is(err, util.ErrTestNotActive) {
		t.Errorf("err = %v, want ErrTestNotActive", err)
	}
}

func TestStartConcurrentDuplicateFallsBack(t *testing.T) {
	svc, _, attempts, _ := newFixture()

	// 并发对手在本请求查完、插入前抢先建出记录
	var racer *model.Attempt
	attempts.createHook = func() {
		open := true
		racer = &model.Attempt{TestID: testID, StudentID: studentID, Open: &open, StartedAt: time.Now()}
		racer.ID = "attempt-race"
		attempts.attempts[racer.ID] = racer
	}

	got, err := svc.Start(testID, studentID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if got.ID != "attempt-race" {
		t.Errorf("expected racer's attempt, got %q", got.ID)
	}
}

func TestSubmitEndToEnd(t *testing.T) {
	svc, _, attempts, _ := newFixture()

	attempt, err := svc.Start(testID, studentID)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	detail, err := svc.Submit(testID, attempt.ID, studentID, []SubmittedAnswer{
		{QuestionID: 1, AnswerIDs: []uint{12}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if detail.CompletedAt == nil {
		t.Error("CompletedAt must be set after submit")
	}
	if detail.Score == nil || *detail.Score != 10 {
		t.Errorf("Score = %v, want 10", detail.Score)
	}
	if detail.EffectiveScore == nil || *detail.EffectiveScore != 10 {
		t.Errorf("EffectiveScore = %v, want 10", detail.EffectiveScore)
	}
	if detail.Status != AttemptStatusCompleted {
		t.Errorf("Status = %q, want %q", detail.Status, AttemptStatusCompleted)
	}
	if len(attempts.answers[attempt.ID]) != 1 {
		t.Fatalf("persisted answers = %d, want 1", len(attempts.answers[attempt.ID]))
	}

	// 第二次提交必须失败且分数不变
	if _, err := svc.Submit(testID, attempt.ID, studentID, nil); !errors.Is(err, util.ErrTestAlreadySubmitted) {
		t.Errorf("second submit err = %v, want ErrTestAlreadySubmitted", err)
	}
	if attempts.attempts[attempt.ID].Score != 10 {
		t.Errorf("score mutated by failed resubmit: %d", attempts.attempts[attempt.ID].Score)
	}
}

func TestSubmitPersistsUnansweredAsEmpty(t *testing.T) {
	svc, tests, attempts, _ := newFixture()

	q2 := model.Question{TestID: testID, Type: model.QuestionTextInput, Points: 5, Order: 2}
	q2.ID = 2
	tests.questions[testID] = append(tests.questions[testID], q2)
	tests.options[2] = []model.AnswerOption{
		{BaseModel: model.BaseModel{ID: 21}, QuestionID: 2, Text: "paris", IsCorrect: true},
	}

	attempt, _ := svc.Start(testID, studentID)
	detail, err := svc.Submit(testID, attempt.ID, studentID, []SubmittedAnswer{
		{QuestionID: 1, AnswerIDs: []uint{12}},
		// 第二题未作答
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if len(detail.Answers) != 2 {
		t.Fatalf("answers = %d, want one row per question", len(detail.Answers))
	}
	persisted := attempts.answers[attempt.ID]
	if len(persisted) != 2 {
		t.Fatalf("persisted answers = %d, want one row per question", len(persisted))
	}
	var unanswered *model.AttemptAnswer
	for i := range persisted {
		if persisted[i].QuestionID == 2 {
			unanswered = &persisted[i]
		}
	}
	if unanswered == nil {
		t.Fatal("missing row for unanswered question")
	}
	if unanswered.Points != 0 {
		t.Errorf("unanswered points = %d, want 0", unanswered.Points)
	}
	if unanswered.IsCorrect == nil || *unanswered.IsCorrect {
		t.Errorf("unanswered IsCorrect = %v, want false", unanswered.IsCorrect)
	}
	if unanswered.AnswerIDs != "[]" {
		t.Errorf("unanswered AnswerIDs = %q, want empty list", unanswered.AnswerIDs)
	}
	if detail.Score == nil || *detail.Score != 10 {
		t.Errorf("Score = %v, want 10", detail.Score)
	}
}

func TestSubmitUnknownQuestionSkipped(t *testing.T) {
	svc, _, _, _ := newFixture()

	attempt, _ := svc.Start(testID, studentID)
	detail, err := svc.Submit(testID, attempt.ID, studentID, []SubmittedAnswer{
		{QuestionID: 999, AnswerIDs: []uint{1}},
		{QuestionID: 1, AnswerIDs: []uint{12}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if detail.Score == nil || *detail.Score != 10 {
		t.Errorf("Score = %v, want 10", detail.Score)
	}
	if len(detail.Answers) != 1 {
		t.Errorf("answers = %d, want 1 (unknown question skipped)", len(detail.Answers))
	}
}

func TestSubmitOwnership(t *testing.T) {
	svc, _, _, _ := newFixture()
	attempt, _ := svc.Start(testID, studentID)

	if _, err := svc.Submit(testID, attempt.ID, outsiderID, nil); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("wrong student err = %v, want ErrPermissionDenied", err)
	}
	if _, err := svc.Submit(testID+1, attempt.ID, studentID, nil); !errors.Is(err, util.ErrPermissionDenied) {
		t.Errorf("wrong test err = %v, want ErrPermissionDenied", err)
	}
}

func TestSubmitLateFlag(t *testing.T) {
	svc, tests, _, _ := newFixture()
	limit := 30
	tests.tests[testID].TimeLimitMinutes = &limit

	started := time.Now()
	svc.now = func() time.Time { return started }
	attempt, _ := svc.Start(testID, studentID)

	// 超过时限的提交仍被接受，只打标记
	svc.now = func() time.Time { return started.Add(45 * time.Minute) }
	detail, err := svc.Submit(testID, attempt.ID, studentID, []SubmittedAnswer{
		{QuestionID: 1, AnswerIDs: []uint{12}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if !detail.Late {
		t.Error("Late flag must be set for overdue submission")
	}
	if detail.Score == nil || *detail.Score != 10 {
		t.Errorf("late submission still scored, got %v", detail.Score)
	}
}

func TestGradeOverrideAndClear(t *testing.T) {
	svc, _, _, _ := newFixture()
	teacher := &util.Claims{UserID: teacherID, Role: model.Teacher}

	attempt, _ := svc.Start(testID, studentID)
	if _, err := svc.Grade(attempt.ID, teacher, intPtr(85), "too early"); !errors.Is(err, util.ErrAttemptNotCompleted) {
		t.Errorf("grading in-progress attempt err = %v, want ErrAttemptNotCompleted", err)
	}

	if _, err := svc.Submit(testID, attempt.ID, studentID, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	detail, err := svc.Grade(attempt.ID, teacher, intPtr(85), "good job")
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if detail.EffectiveScore == nil || *detail.EffectiveScore != 85 {
		t.Errorf("EffectiveScore = %v, want override 85", detail.EffectiveScore)
	}
	if detail.TeacherFeedback != "good job" {
		t.Errorf("TeacherFeedback = %q", detail.TeacherFeedback)
	}

	// 清除覆盖后回落到自动计分
	detail, err = svc.Grade(attempt.ID, teacher, nil, "")
	if err != nil {
		t.Fatalf("Grade clear: %v", err)
	}
	if detail.EffectiveScore == nil || *detail.EffectiveScore != 0 {
		t.Errorf("EffectiveScore = %v, want computed 0", detail.EffectiveScore)
	}
}

func TestManualGradingPendingUntilOverride(t *testing.T) {
	svc, tests, attempts, _ := newFixture()
	tests.tests[testID].AutoGrade = false
	student := &util.Claims{UserID: studentID, Role: model.Student}
	teacher := &util.Claims{UserID: teacherID, Role: model.Teacher}

	attempt, _ := svc.Start(testID, studentID)
	detail, err := svc.Submit(testID, attempt.ID, studentID, []SubmittedAnswer{
		{QuestionID: 1, AnswerIDs: []uint{12}},
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}

	// 评估照常运行并入库，但待复核期间算法分只是给教师的建议，学生侧不可见
	if attempts.attempts[attempt.ID].Score != 10 {
		t.Errorf("stored score = %d, want 10", attempts.attempts[attempt.ID].Score)
	}
	if detail.Score != nil {
		t.Errorf("Score = %v, want hidden while pending", detail.Score)
	}
	if len(detail.Answers) != 0 {
		t.Errorf("answers = %d, want hidden while pending", len(detail.Answers))
	}
	if detail.EffectiveScore != nil {
		t.Errorf("EffectiveScore = %v, want nil while pending", detail.EffectiveScore)
	}
	if detail.Status != AttemptStatusPendingReview {
		t.Errorf("Status = %q, want %q", detail.Status, AttemptStatusPendingReview)
	}

	// 学生重新查询同样看不到，任教教师能看到建议分
	studentView, err := svc.GetAttempt(attempt.ID, student)
	if err != nil {
		t.Fatalf("GetAttempt student: %v", err)
	}
	if studentView.Score != nil || len(studentView.Answers) != 0 {
		t.Errorf("student view leaks pending computed score: score=%v answers=%d", studentView.Score, len(studentView.Answers))
	}
	teacherView, err := svc.GetAttempt(attempt.ID, teacher)
	if err != nil {
		t.Fatalf("GetAttempt teacher: %v", err)
	}
	if teacherView.Score == nil || *teacherView.Score != 10 {
		t.Errorf("teacher view Score = %v, want 10", teacherView.Score)
	}

	graded, err := svc.Grade(attempt.ID, teacher, intPtr(9), "close enough")
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if graded.EffectiveScore == nil || *graded.EffectiveScore != 9 {
		t.Errorf("EffectiveScore = %v, want 9", graded.EffectiveScore)
	}
	if graded.Status != AttemptStatusCompleted {
		t.Errorf("Status = %q, want %q", graded.Status, AttemptStatusCompleted)
	}

	// 评分落库后学生恢复可见
	studentView, err = svc.GetAttempt(attempt.ID, student)
	if err != nil {
		t.Fatalf("GetAttempt after grade: %v", err)
	}
	if studentView.EffectiveScore == nil || *studentView.EffectiveScore != 9 {
		t.Errorf("student EffectiveScore after grade = %v, want 9", studentView.EffectiveScore)
	}
	if studentView.Status != AttemptStatusCompleted {
		t.Errorf("student Status after grade = %q, want %q", studentView.Status, AttemptStatusCompleted)
	}
}

func TestGetAttemptAccess(t *testing.T) {
	svc, _, _, _ := newFixture()
	attempt, _ := svc.Start(testID, studentID)

	tests := []struct {
		name    string
		caller  *util.Claims
		wantErr error
	}{
		{name: "owner student", caller: &util.Claims{UserID: studentID, Role: model.Student}},
		{name: "other student", caller: &util.Claims{UserID: outsiderID, Role: model.Student}, wantErr: util.ErrPermissionDenied},
		{name: "course teacher", caller: &util.Claims{UserID: teacherID, Role: model.Teacher}},
		{name: "unrelated teacher", caller: &util.Claims{UserID: outsiderID, Role: model.Teacher}, wantErr: util.ErrPermissionDenied},
		{name: "admin", caller: &util.Claims{UserID: 1, Role: model.Admin}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.GetAttempt(attempt.ID, tc.caller)
			if tc.wantErr == nil && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Errorf("err = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestGradeNegativeScoreRejected(t *testing.T) {
	svc, _, _, _ := newFixture()
	teacher := &util.Claims{UserID: teacherID, Role: model.Teacher}

	attempt, _ := svc.Start(testID, studentID)
	if _, err := svc.Submit(testID, attempt.ID, studentID, nil); err != nil {
		t.Fatalf("Submit: %v", err)
	}

	if _, err := svc.Grade(attempt.ID, teacher, intPtr(-1), ""); !util.IsValidationError(err) {
		t.Errorf("err = %v, want validation error", err)
	}
}
