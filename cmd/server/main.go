package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/config"
	"nimbusdrive/internal/handler"
	"nimbusdrive/internal/queue"
	"nimbusdrive/internal/repository"
	"nimbusdrive/internal/service"
	"nimbusdrive/internal/storage/cdn"
	"nimbusdrive/internal/storage/s3"
)

const sweepInterval = time.Hour

func connectWithRetry(cfg *config.DatabaseConfig, maxAttempts int, delay time.Duration) (*sqlx.DB, error) {
	// Сначала подключаемся к системной базе postgres, она существует всегда
	pgDSN := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=postgres sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.SSLMode,
	)
	pgDB, err := sqlx.Connect("postgres", pgDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres database: %v", err)
	}
	defer pgDB.Close()

	var exists bool
	err = pgDB.Get(&exists, "SELECT EXISTS(SELECT datname FROM pg_catalog.pg_database WHERE datname = $1)", cfg.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to check database existence: %v", err)
	}

	if !exists {
		log.Printf("Database %s does not exist, creating...", cfg.Name)
		if _, err = pgDB.Exec(fmt.Sprintf("CREATE DATABASE %s", cfg.Name)); err != nil {
			return nil, fmt.Errorf("failed to create database: %v", err)
		}
	}

	var db *sqlx.DB
	for i := 0; i < maxAttempts; i++ {
		db, err = sqlx.Connect("postgres", cfg.GetDSN())
		if err == nil {
			return db, nil
		}

		log.Printf("Failed to connect to database (attempt %d/%d): %v", i+1, maxAttempts, err)
		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect after %d attempts: %v", maxAttempts, err)
}

func runMigrations(cfg *config.DatabaseConfig) error {
	var m *migrate.Migrate
	var err error

	for i := 0; i < 5; i++ {
		m, err = migrate.New("file://migrations", cfg.GetURL())
		if err == nil {
			break
		}
		log.Printf("Failed to create migrate instance (attempt %d/5): %v", i+1, err)
		time.Sleep(time.Second * 5)
	}

	if err != nil {
		return fmt.Errorf("failed to create migrate instance after retries: %w", err)
	}
	defer m.Close()

	version, dirty, err := m.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		log.Printf("Found dirty database state at version %d, attempting to force version", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("failed to force version: %w", err)
		}
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func main() {
	appConfig, err := config.NewConfig(".app.env")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := connectWithRetry(&appConfig.Database, 5, time.Second*5)
	if err != nil {
		log.Fatalf("Failed to connect to database after retries: %v", err)
	}
	defer db.Close()

	if err := runMigrations(&appConfig.Database); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Хранилище объектов
	s3Config, err := s3.NewConfig(".s3.env")
	if err != nil {
		log.Fatalf("Failed to load S3 config: %v", err)
	}

	s3Client, err := s3.NewClient(s3Config)
	if err != nil {
		log.Fatalf("Failed to create S3 client: %v", err)
	}

	// CDN: подпись ссылок, куки и KeyValueStore
	cdnConfig, err := cdn.NewConfig(".cdn.env")
	if err != nil {
		log.Fatalf("Failed to load CDN config: %v", err)
	}

	cdnClient, err := cdn.NewClient(cdnConfig)
	if err != nil {
		log.Fatalf("Failed to create CDN client: %v", err)
	}

	kvsClient, err := cdn.NewKVSClient(cdnConfig)
	if err != nil {
		log.Fatalf("Failed to create KVS client: %v", err)
	}

	// Проверка токенов
	authConfig, err := auth.NewConfig(".auth.env")
	if err != nil {
		log.Fatalf("Failed to load auth config: %v", err)
	}
	verifier := auth.NewVerifier(authConfig)

	// Репозитории
	directoryRepo := repository.NewDirectoryRepository(db)
	fileRepo := repository.NewFileRepository(db)
	shareRepo := repository.NewShareRepository(db)
	jobRepo := repository.NewJobRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)

	// Сервисы
	scheduler := queue.NewJobScheduler(jobRepo)
	aggregationService := service.NewAggregationService(directoryRepo)
	quotaService := service.NewQuotaService(quotaRepo, appConfig.Quota.DefaultLimitBytes)
	directoryService := service.NewDirectoryService(directoryRepo, fileRepo, s3Client, cdnClient, aggregationService)
	fileService := service.NewFileService(fileRepo, directoryRepo, s3Client, cdnClient, scheduler, quotaService, aggregationService)
	trashService := service.NewTrashService(fileRepo, s3Client, cdnClient, scheduler, aggregationService, appConfig.Trash.GracePeriod)
	shareService := service.NewShareService(shareRepo, fileRepo, directoryRepo, cdnClient, kvsClient, cdnConfig.Domain)

	router := handler.NewRouter(handler.Handlers{
		Directory: handler.NewDirectoryHandler(directoryService, verifier),
		File:      handler.NewFileHandler(fileService, verifier),
		Trash:     handler.NewTrashHandler(trashService, verifier),
		Share:     handler.NewShareHandler(shareService, verifier),
		Quota:     handler.NewQuotaHandler(quotaService, verifier),
	})

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%s", appConfig.Server.Port),
		Handler: router,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	// Страховочный обход корзины: потерянные задания ставятся заново
	sweepCtx, stopSweep := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if err := trashService.SweepExpired(sweepCtx); err != nil {
					log.Printf("Trash sweep failed: %v", err)
				}
			}
		}
	}()

	go func() {
		log.Printf("Starting HTTP server on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	stopSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Server stopped")
}
