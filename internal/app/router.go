package app

import (
	"assessment_engine/docs"
	"assessment_engine/internal/config"
	"assessment_engine/internal/middleware"
	"assessment_engine/internal/model"
	"assessment_engine/pkg/monitoring"
	"assessment_engine/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	public := router.Group("/api")
	public.Use(security.RateLimiter(a.visitors, middleware.UserID))
	public.GET("/health", c.health.HealthCheck)

	// 2. 需要授权的路由，按用户限流
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg.JWT.Secret), security.RateLimiter(a.visitors, middleware.UserID))
	{
		a.registerStudentRoutes(authGroup, c)
		a.registerTeacherRoutes(authGroup, c)
	}
}

func (a *App) registerStudentRoutes(rg *gin.RouterGroup, c *controllers) {
	// 测验作答
	assessments := rg.Group("/assessments/:id")
	{
		assessments.POST("/attempts", c.attempt.StartAttempt)
		assessments.GET("/attempts", c.attempt.ListAttempts)
		assessments.GET("/attempt", c.attempt.GetAttempt)
		assessments.PUT("/attempt/answers", c.attempt.SubmitAnswer)
		assessments.POST("/attempt/submit", c.attempt.SubmitAttempt)
	}

	// 成长体系
	progression := rg.Group("/progression")
	{
		progression.GET("", c.progression.GetMine)
		progression.GET("/leaderboard", c.progression.Leaderboard)
	}
}

func (a *App) registerTeacherRoutes(rg *gin.RouterGroup, c *controllers) {
	teacher := rg.Group("/teacher")
	teacher.Use(middleware.RoleMiddleware(model.Teacher))
	{
		teacher.POST("/assessments", c.assessment.CreateAssessment)
		teacher.GET("/assessments", c.assessment.ListAssessments)
		teacher.GET("/assessments/:id", c.assessment.GetAssessment)
		teacher.PUT("/assessments/:id", c.assessment.UpdateAssessment)

		// 经验值与连续记录只由教师或协作服务写入
		teacher.POST("/progression/:learnerId/xp", c.progression.AwardXP)
		teacher.POST("/progression/:learnerId/streaks/:name", c.progression.UpdateStreak)
		teacher.DELETE("/progression/:learnerId/streaks/:name", c.progression.ResetStreak)
	}
}
