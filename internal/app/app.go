package app

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/controller"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/service"
	"exam_portal_backend/pkg/database"
	"exam_portal_backend/pkg/logger"
	"exam_portal_backend/pkg/monitoring"
	"exam_portal_backend/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type App struct {
	Config *config.Config
	Router *gin.Engine
	DB     *gorm.DB
	Redis  *redis.Client
}

type repositories struct {
	user    *repository.UserRepository
	exam    *repository.ExamRepository
	attempt *repository.AttemptRepository
	query   *repository.QueryRepository
}

type services struct {
	auth        *service.AuthService
	exam        *service.ExamService
	attempt     *service.AttemptService
	evaluation  *service.EvaluationService
	publication *service.PublicationService
	query       *service.QueryService
	plagiarism  *service.PlagiarismService
	migration   *service.MigrationService
}

type controllers struct {
	auth        *controller.AuthController
	studentExam *controller.StudentExamController
	teacherExam *controller.TeacherExamController
	evaluation  *controller.EvaluationController
	query       *controller.QueryController
	health      *controller.HealthController
}

func initRepositories(db *gorm.DB) *repositories {
	return &repositories{
		user:    repository.NewUserRepository(db),
		exam:    repository.NewExamRepository(db),
		attempt: repository.NewAttemptRepository(db),
		query:   repository.NewQueryRepository(db),
	}
}

func initServices(repos *repositories, cfg *config.Config, db *gorm.DB, rdb *redis.Client) *services {
	storage, err := service.NewStorageProvider(cfg.Storage)
	if err != nil {
		logger.Log.Fatal("Failed to initialize storage", zap.Error(err))
	}

	evaluator := service.NewEvaluator(cfg.Evaluator)
	generator := service.NewGeneratorService(cfg.Generator)

	return &services{
		auth:        service.NewAuthService(repos.user, cfg),
		exam:        service.NewExamService(repos.exam, generator, rdb),
		attempt:     service.NewAttemptService(repos.attempt, repos.exam),
		evaluation:  service.NewEvaluationService(repos.attempt, repos.exam, evaluator),
		publication: service.NewPublicationService(repos.attempt, repos.exam),
		query:       service.NewQueryService(repos.query, repos.attempt, repos.exam),
		plagiarism:  service.NewPlagiarismService(repos.attempt, repos.exam, storage, cfg.Plagiarism),
		migration:   service.NewMigrationService(db, repos.user, cfg.Migration),
	}
}

func initControllers(s *services, db *gorm.DB, rdb *redis.Client) *controllers {
	return &controllers{
		auth:        controller.NewAuthController(s.auth),
		studentExam: controller.NewStudentExamController(s.exam, s.attempt, s.publication),
		teacherExam: controller.NewTeacherExamController(s.exam, s.attempt, s.plagiarism),
		evaluation:  controller.NewEvaluationController(s.evaluation, s.publication),
		query:       controller.NewQueryController(s.query),
		health:      controller.NewHealthController(db, rdb),
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)

	logger.Log.Info("Logger initialized successfully")

	db, err := database.InitDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal("Failed to initialize database", zap.Error(err))
	}

	rdb, err := database.InitRedis(&cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Failed to initialize redis", zap.Error(err))
	}

	app := &App{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
	}

	repos := initRepositories(db)
	services := initServices(repos, cfg, db, rdb)
	controllers := initControllers(services, db, rdb)

	if cfg.ForceMigrate {
		if err := services.migration.Run(); err != nil {
			logger.Log.Fatal("Data backfill failed", zap.Error(err))
		}
	}

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.Default()
	app.Router = router

	app.setupMiddlewares(router, cfg)

	if cfg.Tracing.Enabled {
		if _, err := tracing.InitTracer("exam-portal", cfg.Tracing.CollectorEndpoint); err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
	}

	app.registerRoutes(router, controllers, cfg)

	if cfg.Storage.Type == "local" {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	return app
}

func (a *App) Run() {
	srv := &http.Server{
		Addr:    ":" + a.Config.Server.Port,
		Handler: a.Router,
	}

	go func() {
		log.Printf("Server running on port %s", a.Config.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
