package controller

import (
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"lms_backend/pkg/monitoring"
	"strconv"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	Service *service.AttemptService
}

func NewAttemptController(svc *service.AttemptService) *AttemptController {
	return &AttemptController{Service: svc}
}

// @Summary 开始作答（重复调用返回同一条进行中的记录）
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /tests/{id}/attempts/start [post]
func (c *AttemptController) Start(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	attempt, err := c.Service.Start(uint(testID), claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}

	monitoring.AttemptsStarted.Inc()
	util.Success(ctx, attempt)
}

type SubmitReq struct {
	Answers []service.SubmittedAnswer `json:"answers"`
}

// @Summary 提交作答（只允许成功一次）
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Param attemptId path string true "作答ID"
// @Param body body SubmitReq true "答案列表"
// @Success 200 {object} util.Response
// @Router /tests/{id}/attempts/{attemptId}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}
	attemptID := ctx.Param("attemptId")

	var req SubmitReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.Service.Submit(uint(testID), attemptID, claims.UserID, req.Answers)
	if err != nil {
		respondError(ctx, err)
		return
	}

	monitoring.AttemptsSubmitted.Inc()
	util.Success(ctx, detail)
}

// @Summary 作答详情（学生看自己，教师看所辖课程）
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Success 200 {object} util.Response
// @Router /attempts/{id} [get]
func (c *AttemptController) GetAttempt(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	detail, err := c.Service.GetAttempt(ctx.Param("id"), claims)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}

// @Summary 某试卷的全部作答列表
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /teacher/tests/{id}/attempts [get]
func (c *AttemptController) ListByTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	testID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	details, err := c.Service.ListByTest(uint(testID), claims)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": details})
}

type GradeReq struct {
	TeacherScore *int   `json:"teacherScore"`
	Feedback     string `json:"feedback"`
}

// @Summary 教师复核评分（teacherScore 为 null 时清除覆盖）
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "作答ID"
// @Param body body GradeReq true "评分"
// @Success 200 {object} util.Response
// @Router /teacher/attempts/{id}/grade [post]
func (c *AttemptController) Grade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req GradeReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	detail, err := c.Service.Grade(ctx.Param("id"), claims, req.TeacherScore, req.Feedback)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, detail)
}
