package controller

import (
	"lms_backend/internal/model"
	"lms_backend/internal/service"
	"lms_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	Service *service.TestService
}

func NewTestController(svc *service.TestService) *TestController {
	return &TestController{Service: svc}
}

// @Summary 创建试卷
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.TestReq true "试卷信息"
// @Success 201 {object} util.Response
// @Router /teacher/tests [post]
func (c *TestController) CreateTest(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.CreateTest(claims, req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, test)
}

// @Summary 添加题目（题目与选项整体入库）
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Param body body service.QuestionReq true "题目信息"
// @Success 201 {object} util.Response
// @Router /teacher/tests/{id}/questions [post]
func (c *TestController) AddQuestion(ctx *gin.Context) {
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

	var req service.QuestionReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	question, err := c.Service.AddQuestion(claims, uint(testID), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Created(ctx, question)
}

// @Summary 更新试卷元数据（courseId 不可变更）
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Param body body service.TestReq true "试卷信息"
// @Success 200 {object} util.Response
// @Router /teacher/tests/{id} [put]
func (c *TestController) UpdateTest(ctx *gin.Context) {
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

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.Service.UpdateTest(claims, uint(testID), req)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, test)
}

type SetActiveReq struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

// @Summary 启用/停用试卷
// @Tags 测评模块
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Param body body SetActiveReq true "状态"
// @Success 200 {object} util.Response
// @Router /teacher/tests/{id}/active [patch]
func (c *TestController) SetActive(ctx *gin.Context) {
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

	var req SetActiveReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	if err := c.Service.SetActive(claims, uint(testID), *req.IsActive); err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 删除试卷（级联删除题目、选项与作答记录）
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /teacher/tests/{id} [delete]
func (c *TestController) DeleteTest(ctx *gin.Context) {
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

	if err := c.Service.DeleteTest(claims, uint(testID)); err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, nil)
}

// @Summary 试卷详情（按角色过滤答案信息）
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /tests/{id} [get]
func (c *TestController) GetTest(ctx *gin.Context) {
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

	var view *service.TestView
	if claims.Role == model.Student {
		view, err = c.Service.GetTestForStudent(ctx.Request.Context(), uint(testID), claims.UserID)
	} else {
		view, err = c.Service.GetTestForTeacher(uint(testID), claims)
	}
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, view)
}

// @Summary 课程下的试卷列表
// @Tags 测评模块
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response
// @Router /courses/{id}/tests [get]
func (c *TestController) ListByCourse(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	courseID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "invalid course id")
		return
	}

	tests, err := c.Service.ListByCourse(uint(courseID), claims)
	if err != nil {
		respondError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"items": tests})
}
