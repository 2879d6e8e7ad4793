package service

import (
	"lms_backend/internal/model"
	"lms_backend/internal/repository"
	"lms_backend/internal/util"
)

// CourseService 只是薄薄的一层：课程与选课是考试引擎的外部协作方，
// 这里提供引擎依赖的 isEnrolled / ownsCourse 契约和最小的建课入口。
type CourseService struct {
	Repo *repository.CourseRepository
}

func NewCourseService(repo *repository.CourseRepository) *CourseService {
	return &CourseService{Repo: repo}
}

type CourseReq struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

func (s *CourseService) Create(teacherID uint, req CourseReq) (*model.Course, error) {
	course := &model.Course{
		TeacherID:   teacherID,
		Title:       req.Title,
		Description: req.Description,
	}
	if err := s.Repo.Create(course); err != nil {
		return nil, err
	}
	return course, nil
}

func (s *CourseService) List(page, limit int) ([]model.Course, int64, error) {
	return s.Repo.List(page, limit)
}

func (s *CourseService) Enroll(courseID, studentID uint, caller *util.Claims) error {
	course, err := s.Repo.FindByID(courseID)
	if err != nil {
		return err
	}
	if caller.Role != model.Admin && course.TeacherID != caller.UserID {
		return util.ErrPermissionDenied
	}
	return s.Repo.AddEnrollment(courseID, studentID)
}
