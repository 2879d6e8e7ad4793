package controller

import (
	"errors"
	"lms_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// respondError 把服务层的错误分类映射到 HTTP 状态码
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrTestNotFound),
		errors.Is(err, util.ErrAttemptNotFound),
		errors.Is(err, util.ErrCourseNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.NotFound(ctx)
	case errors.Is(err, util.ErrPermissionDenied),
		errors.Is(err, util.ErrNotEnrolled),
		errors.Is(err, util.ErrTestNotActive):
		util.Forbidden(ctx)
	case errors.Is(err, util.ErrTestAlreadySubmitted),
		errors.Is(err, util.ErrAttemptNotCompleted):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrEmailRegistered):
		util.BadRequest(ctx, err.Error())
	case util.IsValidationError(err):
		util.BadRequest(ctx, err.Error())
	default:
		util.LogInternalError(ctx, err)
	}
}
