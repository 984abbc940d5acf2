package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"nimbusdrive/internal/config"
	"nimbusdrive/internal/queue"
	"nimbusdrive/internal/repository"
	"nimbusdrive/internal/service"
	"nimbusdrive/internal/storage/cdn"
	"nimbusdrive/internal/storage/s3"
)

// Воркер физического удаления. Запускается отдельно от HTTP-сервера и
// разбирает созревшие задания из таблицы очереди; экземпляров может
// быть несколько.
func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	var db *sqlx.DB
	for i := 0; i < 5; i++ {
		db, err = sqlx.Connect("postgres", appConfig.Database.GetDSN())
		if err == nil {
			break
		}
		log.Printf("Failed to connect to database (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	cdnConfig, err := cdn.NewConfig(".cdn.env")
	if err != nil {
		log.Fatalf("Failed to load CDN config: %v", err)
	}

	cdnClient, err := cdn.NewClient(cdnConfig)
	if err != nil {
		log.Fatalf("Failed to create CDN client: %v", err)
	}

	fileRepo := repository.NewFileRepository(db)
	directoryRepo := repository.NewDirectoryRepository(db)
	jobRepo := repository.NewJobRepository(db)

	scheduler := queue.NewJobScheduler(jobRepo)
	aggregationService := service.NewAggregationService(directoryRepo)
	trashService := service.NewTrashService(fileRepo, s3Client, cdnClient, scheduler, aggregationService, appConfig.Trash.GracePeriod)

	consumer := queue.NewConsumer(jobRepo, queue.HandlerFunc(trashService.ExecutePurge), queue.ConsumerOptions{
		Concurrency:  appConfig.Worker.Concurrency,
		RatePerSec:   int(appConfig.Worker.RatePerSec),
		PollInterval: appConfig.Worker.PollInterval,
		JobTimeout:   appConfig.Worker.JobTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down worker...")
		cancel()
	}()

	consumer.Run(ctx)
	log.Println("Worker stopped")
}
