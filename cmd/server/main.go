package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SDARS-2025/discipline-service/internal/auth"
	"github.com/SDARS-2025/discipline-service/internal/cache"
	"github.com/SDARS-2025/discipline-service/internal/config"
	"github.com/SDARS-2025/discipline-service/internal/events"
	"github.com/SDARS-2025/discipline-service/internal/handlers"
	"github.com/SDARS-2025/discipline-service/internal/mailer"
	"github.com/SDARS-2025/discipline-service/internal/repositories/postgres"
	"github.com/SDARS-2025/discipline-service/internal/services"
	"github.com/SDARS-2025/discipline-service/internal/utils"
	"github.com/SDARS-2025/discipline-service/internal/validator"
	"github.com/SDARS-2025/discipline-service/pkg"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if err := postgres.AutoMigrate(db); err != nil {
		logger.Error("failed to migrate schema", "error", err)
		os.Exit(1)
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	// Redis is an accelerator, not a dependency; stats fall back to
	// direct queries when it is unreachable.
	var cacheService cache.CacheService = cache.NoopCache{}
	if redisClient, err := pkg.NewRedisClient(cfg); err != nil {
		logger.Warn("redis unavailable, running without cache", "error", err)
	} else {
		cacheService = cache.NewRedisCache(redisClient, slogger)
		defer redisClient.Close()
	}

	var publisher events.EventPublisher = events.NopEventPublisher{}
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, err := events.NewKafkaEventPublisher(events.PublisherConfig{
			KafkaBrokers: cfg.KafkaBrokers,
			TopicName:    cfg.EventTopic,
			Logger:       slogger,
		})
		if err != nil {
			logger.Error("failed to create event publisher", "error", err)
			os.Exit(1)
		}
		publisher = kafkaPublisher
	}
	defer publisher.Close()

	var mail mailer.Mailer
	if cfg.SMTPHost != "" {
		mail = mailer.NewSMTPMailer(mailer.SMTPConfig{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
			From: cfg.MailFrom,
		}, slogger)
	} else {
		logger.Warn("no SMTP host configured, confirmation links are logged only")
		mail = mailer.LogMailer{Logger: slogger}
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, cfg.EmailSecret, cfg.SessionTokenTTL, cfg.ExchangeTokenTTL)
	v := validator.New()

	authService := services.NewAuthService(repo, tokens, mail, publisher, slogger, v, cfg.EmailTokenTTL, cfg.ConfirmBaseURL)
	recordService := services.NewRecordService(repo, publisher, slogger, v)
	userService := services.NewUserService(repo, cacheService, slogger, v)
	exportService := services.NewExportService(repo, slogger)

	middleware := handlers.NewMiddleware(tokens, repo, userService, logger)
	handlerManager := handlers.NewHandlerManager(
		handlers.NewAuthHandler(authService, logger),
		handlers.NewRecordHandler(recordService, exportService, logger),
		handlers.NewUserHandler(userService, logger),
		middleware,
		cfg,
	)

	router := gin.New()
	handlerManager.SetupRoutes(router, logger)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("forced shutdown", "error", err)
	}
}
