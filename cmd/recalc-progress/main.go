package main

import (
	"context"
	"log"
	"os"

	"github.com/genasnewdar/lever-stg/internal/config"
	pgRepo "github.com/genasnewdar/lever-stg/internal/repository/postgres"
	"github.com/genasnewdar/lever-stg/internal/service"
	"github.com/genasnewdar/lever-stg/pkg/database"
)

// Служебный пересчет всех записей прогресса курсов: восстанавливает
// проценты и флаги завершения после ручных правок данных или миграций.
// Уведомления о завершении не отправляются.
func main() {
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

	progressService := service.NewProgressService(
		pgRepo.NewUserRepo(db),
		pgRepo.NewCourseRepo(db),
		pgRepo.NewEnrollmentRepo(db),
		pgRepo.NewProgressRepo(db),
		&service.NoopCompletionNotifier{},
	)

	log.Println("Пересчет прогресса всех курсов...")
	recalculated, err := progressService.RecalculateAll(context.Background())
	if err != nil {
		log.Fatalf("Recalculation failed: %v", err)
	}
	log.Printf("Готово: пересчитано записей прогресса: %d", recalculated)
}
