package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/tournament-manager/config"
	"github.com/Dosada05/tournament-manager/db"
	"github.com/Dosada05/tournament-manager/engine"
	"github.com/Dosada05/tournament-manager/events"
	"github.com/Dosada05/tournament-manager/handlers"
	"github.com/Dosada05/tournament-manager/hub"
	"github.com/Dosada05/tournament-manager/locks"
	"github.com/Dosada05/tournament-manager/repositories"
	api "github.com/Dosada05/tournament-manager/routes"
	"github.com/Dosada05/tournament-manager/services"
	"github.com/Dosada05/tournament-manager/standings"
	"github.com/Dosada05/tournament-manager/storage"
	"github.com/go-chi/chi/v5"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()
	if err := db.Migrate(ctx, dbConn); err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database connection established")

	// Redis: распределённая блокировка и поток событий. Без него всё работает в одном процессе.
	var (
		locker    locks.Locker     = locks.NewLocalLocker()
		publisher events.Publisher = events.NopPublisher{}
	)
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		defer redisClient.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Error("failed to connect to redis", slog.String("addr", cfg.RedisAddr), slog.Any("error", err))
			os.Exit(1)
		}
		locker = locks.NewRedisLocker(redisClient, cfg.RedisLockTTL)
		publisher = events.NewRedisStreamPublisher(redisClient, cfg.EventsStream)
		logger.Info("redis connected", slog.String("addr", cfg.RedisAddr), slog.String("stream", cfg.EventsStream))
	} else {
		logger.Info("REDIS_ADDR not set, using in-process locks and no event stream")
	}

	// Инициализация загрузчика файлов (Cloudflare R2)
	var uploader storage.FileUploader
	r2Config := storage.CloudflareR2UploaderConfig{
		AccountID:       cfg.R2.AccountID,
		AccessKeyID:     cfg.R2.AccessKeyID,
		SecretAccessKey: cfg.R2.SecretAccessKey,
		BucketName:      cfg.R2.BucketName,
		PublicBaseURL:   cfg.R2.PublicBaseURL,
	}
	if r2Config.Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(ctx, r2Config)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized", slog.String("bucket", r2Config.BucketName))
	} else {
		logger.Info("R2 is not configured, archiving disabled")
	}

	// Инициализация WebSocket Hub
	wsHub := hub.NewHub()
	go wsHub.Run(ctx)
	logger.Info("WebSocket Hub started")

	ranking := standings.Options{FairPlay: standings.FewerCardsFirst}
	if cfg.FairPlayMoreIsBetter {
		ranking.FairPlay = standings.MoreCardsFirst
	}
	logger.Info("fair play tiebreak", slog.String("order", ranking.FairPlay.String()))

	// Инициализация сервисов
	clock := clockwork.NewRealClock()
	authService := services.NewAuthService(cfg.AdminEmail, cfg.AdminPasswordHash)
	tournamentService := services.NewTournamentService(services.TournamentServiceDeps{
		Tx:          repositories.NewSQLTransactor(dbConn),
		Tournaments: repositories.NewPostgresTournamentRepository(dbConn),
		Actions:     repositories.NewPostgresActionLogRepository(dbConn),
		Engine:      engine.New(engine.WithStandings(ranking)),
		Locker:      locker,
		Publisher:   publisher,
		Broadcaster: wsHub,
		Uploader:    uploader,
		Clock:       clock,
		Logger:      logger,
	})
	if cfg.AdminEmail == "" {
		logger.Warn("ADMIN_EMAIL not set, organizer login is disabled")
	}
	logger.Info("Services initialized")

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(
		router,
		api.Options{JWTSecret: cfg.JWTSecretKey, AllowedOrigins: cfg.CORSAllowedOrigins},
		handlers.NewAuthHandler(authService, cfg.JWTSecretKey, clock),
		handlers.NewTournamentHandler(tournamentService),
		handlers.NewWebSocketHandler(wsHub, tournamentService, cfg.CORSAllowedOrigins),
	)
	logger.Info("Routes configured")

	// Настройка и запуск HTTP-сервера
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("server stopped gracefully")
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancelShutdown()

		logger.Info("shutting down server", slog.Duration("timeout", shutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			os.Exit(1)
		}
		logger.Info("server shutdown complete")
	}
	logger.Info("application exited")
}
