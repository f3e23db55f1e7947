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

	"github.com/yourusername/daily-trivia/internal/config"
	"github.com/yourusername/daily-trivia/internal/handler"
	gcsRepo "github.com/yourusername/daily-trivia/internal/repository/gcs"
	pgRepo "github.com/yourusername/daily-trivia/internal/repository/postgres"
	redisRepo "github.com/yourusername/daily-trivia/internal/repository/redis"
	"github.com/yourusername/daily-trivia/internal/service"
	"github.com/yourusername/daily-trivia/internal/service/composer"
	"github.com/yourusername/daily-trivia/pkg/database"
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

	// Инициализируем подключение к Redis с использованием унифицированной конфигурации
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}
	log.Println("Successfully connected to Redis")

	// Создаем контекст с отменой для корректного завершения работы горутин
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Инициализируем репозитории
	questionRepo := pgRepo.NewQuestionRepo(db)
	dailyQuizRepo := pgRepo.NewDailyQuizRepo(db)
	compositionLogRepo := pgRepo.NewCompositionLogRepo(db)

	cacheRepo, err := redisRepo.NewCacheRepo(redisClient)
	if err != nil {
		log.Printf("Failed to initialize CacheRepo: %v", err)
		os.Exit(1)
	}

	// Хранилище артефактов (GCS)
	artifactStore, err := gcsRepo.NewArtifactStore(ctx, cfg.Storage.Bucket, cfg.Storage.CDNDomain)
	if err != nil {
		log.Printf("Failed to initialize ArtifactStore: %v", err)
		os.Exit(1)
	}

	// Конфигурация движка составления
	composerConfig := composer.DefaultConfig()
	if cfg.Composer.TargetQuestionCount > 0 {
		composerConfig.TargetQuestionCount = cfg.Composer.TargetQuestionCount
	}
	if cfg.Composer.DefaultMode != "" {
		composerConfig.DefaultMode = cfg.Composer.DefaultMode
	}
	if cfg.Composer.OverexposureLimit > 0 {
		composerConfig.OverexposureLimit = cfg.Composer.OverexposureLimit
	}
	if cfg.Composer.DropHourUTC > 0 {
		composerConfig.DropHourUTC = cfg.Composer.DropHourUTC
	}
	if cfg.Composer.RetryBatchLimit > 0 {
		composerConfig.RetryBatchLimit = cfg.Composer.RetryBatchLimit
	}
	composerConfig.SpotlightThemes = cfg.Composer.SpotlightThemes
	composerConfig.EventTag = cfg.Composer.EventTag
	composerConfig.StatsCacheTTL = cfg.Composer.StatsCacheTTL()

	// Инициализируем сервисы
	composerService := composer.NewComposer(composerConfig, &composer.Dependencies{
		QuestionRepo:  questionRepo,
		DailyQuizRepo: dailyQuizRepo,
		LogRepo:       compositionLogRepo,
		CacheRepo:     cacheRepo,
		ArtifactStore: artifactStore,
	}, nil)
	poolService := service.NewPoolService(questionRepo)

	// Инициализируем обработчики
	composerHandler := handler.NewComposerHandler(composerService, dailyQuizRepo, compositionLogRepo)
	poolHandler := handler.NewPoolHandler(poolService)

	// Периодический retry-проход публикации: подбирает викторины, у которых
	// состав сохранен, а артефакт так и не выложен
	if cfg.Composer.RetryIntervalSec > 0 {
		go func() {
			interval := time.Duration(cfg.Composer.RetryIntervalSec) * time.Second
			ticker := time.NewTicker(interval)
			defer ticker.Stop()

			log.Printf("Запуск периодического retry-прохода публикации (каждые %s)", interval)

			for {
				select {
				case <-ticker.C:
					if _, err := composerService.RetryUnpublished(ctx); err != nil {
						log.Printf("Ошибка retry-прохода публикации: %v", err)
					}
				case <-ctx.Done():
					log.Println("Завершение работы горутины retry-прохода")
					return
				}
			}
		}()
	}

	// Инициализируем роутер Gin
	router := gin.Default()

	isProduction := gin.Mode() == gin.ReleaseMode
	if isProduction {
		// Production: не доверять прокси-заголовкам
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		// Development: доверяем localhost
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS: API внутренний, доступ только из админ-инструментов
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api/internal")
	{
		api.GET("/health", composerHandler.GetHealth)
		api.GET("/stats", composerHandler.GetStats)
		api.POST("/retry-sweep", composerHandler.RetrySweep)

		quizzes := api.Group("/quizzes/:date")
		{
			quizzes.GET("", composerHandler.GetQuizByDate)
			quizzes.GET("/preview", composerHandler.PreviewQuiz)
			quizzes.GET("/log", composerHandler.GetCompositionLog)
			quizzes.POST("/compose", composerHandler.ComposeQuiz)
		}

		questions := api.Group("/questions")
		{
			questions.POST("", poolHandler.CreateQuestion)
			questions.POST("/import", poolHandler.ImportQuestions)
			questions.GET("/stats", poolHandler.GetPoolStats)
			questions.GET("/:id", poolHandler.GetQuestion)
			questions.PUT("/:id/disable", poolHandler.DisableQuestion)
		}
	}

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

	// После получения сигнала SIGINT или SIGTERM вызываем cancel() для завершения горутин
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Отправляем сигнал завершения для всех горутин
	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server exited properly")
}
