package app

import (
	"lms_backend/docs"
	"lms_backend/internal/config"
	"lms_backend/internal/middleware"
	"lms_backend/internal/model"
	"lms_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.GetProfile)
		authGroup.GET("/courses", c.course.List)
		authGroup.GET("/courses/:id/tests", c.test.ListByCourse)
		authGroup.GET("/tests/:id", c.test.GetTest)
		authGroup.GET("/attempts/:id", c.attempt.GetAttempt)

		// 学生作答
		authGroup.POST("/tests/:id/attempts/start", c.attempt.Start)
		authGroup.POST("/tests/:id/attempts/:attemptId/submit", c.attempt.Submit)

		// 教师相关接口
		teacher := authGroup.Group("/teacher")
		teacher.Use(middleware.RoleMiddleware(model.Teacher))
		{
			teacher.POST("/courses", c.course.Create)
			teacher.POST("/courses/:id/enrollments", c.course.Enroll)
			teacher.POST("/tests", c.test.CreateTest)
			teacher.POST("/tests/:id/questions", c.test.AddQuestion)
			teacher.PUT("/tests/:id", c.test.UpdateTest)
			teacher.PATCH("/tests/:id/active", c.test.SetActive)
			teacher.DELETE("/tests/:id", c.test.DeleteTest)
			teacher.GET("/tests/:id/attempts", c.attempt.ListByTest)
			teacher.POST("/attempts/:id/grade", c.attempt.Grade)
		}
	}
}
