package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/genasnewdar/lever-stg/internal/config"
	"github.com/genasnewdar/lever-stg/internal/handler"
	"github.com/genasnewdar/lever-stg/internal/middleware"
	pgRepo "github.com/genasnewdar/lever-stg/internal/repository/postgres"
	redisRepo "github.com/genasnewdar/lever-stg/internal/repository/redis"
	"github.com/genasnewdar/lever-stg/internal/scheduler"
	"github.com/genasnewdar/lever-stg/internal/service"
	"github.com/genasnewdar/lever-stg/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Инициализируем репозитории
	userRepo := pgRepo.NewUserRepo(db)
	testRepo := pgRepo.NewTestRepo(db)
	questionRepo := pgRepo.NewQuestionRepo(db)
	attemptRepo := pgRepo.NewAttemptRepo(db)
	responseRepo := pgRepo.NewResponseRepo(db)
	courseRepo := pgRepo.NewCourseRepo(db)
	enrollRepo := pgRepo.NewEnrollmentRepo(db)
	progressRepo := pgRepo.NewProgressRepo(db)
	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Очередь отложенных задач дедлайнов и ее диспетчер
	taskQueue := scheduler.NewRedisTaskQueue(redisClient, cfg.Scheduler.QueueKey)
	retryPolicy := scheduler.RetryPolicy{
		MaxAttempts: cfg.Scheduler.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Scheduler.BaseBackoff) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.Scheduler.MaxBackoff) * time.Millisecond,
	}
	dispatcher := scheduler.NewDispatcher(
		taskQueue,
		cfg.Server.BaseURL+"/api/system/test/finish",
		cfg.Auth.SystemAPIKey,
		cfg.Scheduler.PollIntervalDuration(),
		time.Duration(cfg.Scheduler.RedeliverDelay)*time.Second,
	)

	// Клиент качественной обратной связи (выключен без URL)
	feedbackClient := service.NewFeedbackClient(
		cfg.Feedback.URL,
		cfg.Feedback.APIKey,
		time.Duration(cfg.Feedback.Timeout)*time.Second,
	)

	// Уведомления о завершении курса
	var notifier service.CompletionNotifier = &service.NoopCompletionNotifier{}
	if cfg.Email.APIKey != "" {
		resendNotifier, err := service.NewResendCompletionNotifier(cfg.Email.APIKey, cfg.Email.From)
		if err != nil {
			log.Printf("Failed to initialize email notifier: %v", err)
			os.Exit(1)
		}
		notifier = resendNotifier
	}

	// Инициализируем сервисы
	testService := service.NewTestService(testRepo)
	attemptService := service.NewAttemptService(
		userRepo, testRepo, questionRepo, attemptRepo, responseRepo,
		cacheRepo, taskQueue, retryPolicy, feedbackClient,
	)
	progressService := service.NewProgressService(
		userRepo, courseRepo, enrollRepo, progressRepo, notifier,
	)

	// Инициализируем обработчики
	testHandler := handler.NewTestHandler(testService, attemptService, attemptRepo)
	systemHandler := handler.NewSystemHandler(attemptService)
	progressHandler := handler.NewProgressHandler(progressService)
	authMiddleware := middleware.NewAuthMiddleware(cfg.Auth.JWTSecret, cfg.Auth.AdminSubjects)

	router := gin.Default()

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "x-api-key"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		testGroup := api.Group("/test")
		testGroup.Use(authMiddleware.RequireAuth())
		{
			testGroup.GET("/list", testHandler.ListTests)
			testGroup.GET("/user/attempts", testHandler.ListUserAttempts)

			testByID := testGroup.Group("/:id")
			testByID.Use(middleware.ExtractUUIDParam("id", "testID"))
			{
				testByID.GET("", testHandler.GetTest)
				testByID.POST("/start", testHandler.StartTest)
			}

			testGroup.POST("/response/submit", testHandler.SubmitResponse)
			testGroup.POST("/response/submit_batch", testHandler.SubmitBatch)

			attemptByID := testGroup.Group("/attempt/:id")
			attemptByID.Use(middleware.ExtractUUIDParam("id", "attemptID"))
			{
				attemptByID.GET("", testHandler.GetAttempt)
				attemptByID.POST("/finish", testHandler.FinishAttempt)
			}
		}

		courseGroup := api.Group("/course")
		courseGroup.Use(authMiddleware.RequireAuth())
		{
			lessonByID := courseGroup.Group("/lesson/:id")
			lessonByID.Use(middleware.ExtractUUIDParam("id", "lessonID"))
			{
				lessonByID.POST("/progress", progressHandler.RecordLessonProgress)
			}

			courseByID := courseGroup.Group("/:id")
			courseByID.Use(middleware.ExtractUUIDParam("id", "courseID"))
			{
				courseByID.GET("/progress", progressHandler.GetCourseProgress)
			}
		}

		// Системные маршруты: callback планировщика дедлайнов
		systemGroup := api.Group("/system")
		systemGroup.Use(middleware.RequireAPIKey(cfg.Auth.SystemAPIKey))
		{
			systemGroup.POST("/test/finish", systemHandler.FinishAttempt)
		}

		// Админские маршруты
		adminGroup := api.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAuth(), authMiddleware.RequireAdmin())
		{
			adminTest := adminGroup.Group("/test/:id")
			adminTest.Use(middleware.ExtractUUIDParam("id", "testID"))
			{
				adminTest.GET("/attempts/export", testHandler.ExportAttempts)
			}
		}
	}

	// Диспетчер отложенных задач живет, пока жив процесс
	ctx, cancel := context.WithCancel(context.Background())
	go dispatcher.Run(ctx)

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем диспетчер; недоставленные задачи остаются в Redis
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
