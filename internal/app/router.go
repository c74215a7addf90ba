package app

import (
	"time"

	"exam_portal_backend/docs"
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/middleware"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/security"
	"exam_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())

	maxRequests := cfg.RateLimit.MaxRequests
	if maxRequests <= 0 {
		maxRequests = 1000
	}
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute
	if window <= 0 {
		window = time.Minute
	}
	router.Use(security.RateLimiter(maxRequests, window))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())
	router.GET("/health", c.health.Check)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", c.auth.Register)
		auth.POST("/login", c.auth.Login)
	}

	student := api.Group("/student")
	student.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Student))
	{
		student.GET("/exams", c.studentExam.ListPublished)
		student.GET("/exams/:id", c.studentExam.GetExam)
		student.POST("/attempts", c.studentExam.SubmitAttempt)
		student.GET("/attempts", c.studentExam.ListAttempts)
		student.GET("/results/:examId", c.studentExam.GetResult)

		student.POST("/queries", c.query.Raise)
		student.GET("/queries", c.query.ListOwn)
	}

	teacher := api.Group("/teacher")
	teacher.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Faculty))
	{
		teacher.POST("/exams/essay", c.teacherExam.CreateEssayExam)
		teacher.POST("/exams/generate", c.teacherExam.GenerateExam)
		teacher.GET("/exams", c.teacherExam.ListOwn)
		teacher.GET("/exams/:id", c.teacherExam.GetExam)
		teacher.PUT("/exams/:id/publish", c.teacherExam.SetPublished)
		teacher.PUT("/exams/:id/solutions", c.teacherExam.SaveSolutions)

		teacher.GET("/exams/:id/attempts", c.teacherExam.ListAttempts)
		teacher.DELETE("/exams/:id/attempts", c.teacherExam.DeleteAllAttempts)
		teacher.DELETE("/attempts/:attemptId", c.teacherExam.DeleteAttempt)

		teacher.POST("/attempts/:attemptId/evaluate", c.evaluation.EvaluateAttempt)
		teacher.POST("/exams/:id/evaluate", c.evaluation.EvaluateAll)
		teacher.PUT("/attempts/:attemptId/evaluation", c.evaluation.UpdateEvaluation)

		teacher.POST("/attempts/:attemptId/publish", c.evaluation.PublishOne)
		teacher.POST("/exams/:id/publish-results", c.evaluation.PublishAll)

		teacher.POST("/exams/:id/plagiarism", c.teacherExam.CheckPlagiarism)

		teacher.GET("/queries", c.query.ListAssigned)
		teacher.PUT("/queries/:queryId", c.query.Respond)
	}
}
