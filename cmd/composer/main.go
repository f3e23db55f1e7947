package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/yourusername/daily-trivia/internal/config"
	gcsRepo "github.com/yourusername/daily-trivia/internal/repository/gcs"
	pgRepo "github.com/yourusername/daily-trivia/internal/repository/postgres"
	"github.com/yourusername/daily-trivia/internal/service/composer"
	"github.com/yourusername/daily-trivia/pkg/database"
)

// Одноразовый запуск составления из cron/планировщика. Без HTTP сервера:
// подключился, составил, опубликовал, вышел.
func main() {
	dateFlag := flag.String("date", "", "дата викторины в формате YYYY-MM-DD (по умолчанию - завтра)")
	modeFlag := flag.String("mode", "", "режим составления: mix|spotlight|event (по умолчанию - из конфигурации)")
	retrySweep := flag.Bool("retry-sweep", false, "вместо составления выполнить retry-проход публикации")
	flag.Parse()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	artifactStore, err := gcsRepo.NewArtifactStore(ctx, cfg.Storage.Bucket, cfg.Storage.CDNDomain)
	if err != nil {
		log.Fatalf("Failed to initialize ArtifactStore: %v", err)
	}

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

	// Кеш статистики cron-запуску не нужен, CacheRepo остается пустым
	composerService := composer.NewComposer(composerConfig, &composer.Dependencies{
		QuestionRepo:  pgRepo.NewQuestionRepo(db),
		DailyQuizRepo: pgRepo.NewDailyQuizRepo(db),
		LogRepo:       pgRepo.NewCompositionLogRepo(db),
		ArtifactStore: artifactStore,
	}, nil)

	if *retrySweep {
		published, err := composerService.RetryUnpublished(ctx)
		if err != nil {
			log.Fatalf("Retry sweep failed: %v", err)
		}
		log.Printf("Retry sweep finished, published %d", published)
		return
	}

	targetDate := time.Now().UTC().AddDate(0, 0, 1)
	if *dateFlag != "" {
		targetDate, err = time.ParseInLocation("2006-01-02", *dateFlag, time.UTC)
		if err != nil {
			log.Fatalf("Invalid -date %q: %v", *dateFlag, err)
		}
	}

	result, err := composerService.ComposeDailyQuiz(ctx, targetDate, *modeFlag, nil)
	if err != nil {
		log.Fatalf("Composition failed: %v", err)
	}

	log.Printf("Composed quiz %s for %s: v%d, %d questions, artifact %s",
		result.DailyQuiz.ID, targetDate.Format("2006-01-02"),
		result.DailyQuiz.Version, len(result.Questions), result.DailyQuiz.TemplateURL)
}
