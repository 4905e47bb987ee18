// Package main runs the event registration and check-in HTTP server.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/gatepass/backend/config"
	"github.com/gatepass/backend/internal/auth"
	"github.com/gatepass/backend/internal/checkin"
	"github.com/gatepass/backend/internal/emaillogs"
	"github.com/gatepass/backend/internal/events"
	"github.com/gatepass/backend/internal/middleware"
	"github.com/gatepass/backend/internal/realtime"
	"github.com/gatepass/backend/internal/registrations"
	"github.com/gatepass/backend/internal/worker"
	"github.com/gatepass/backend/pkg/database"
	"github.com/gatepass/backend/pkg/queue"
	"github.com/gatepass/backend/pkg/redis"
	"github.com/gatepass/backend/pkg/response"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	sessionJWT := auth.NewJWTService(cfg.SessionJWT.Secret, cfg.SessionJWT.ExpireHours)
	tokenCodec := checkin.NewTokenCodec(cfg.CheckinToken.Secret, time.Duration(cfg.CheckinToken.TTLDays)*24*time.Hour)

	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, sessionJWT, logger)

	// Events
	eventRepo := events.NewRepository(pool)
	eventHandler := events.NewHandler(eventRepo, logger)

	// Registrations and approval workflow
	jobQueue := queue.NewQueue(rdb.Client, logger)
	registrationRepo := registrations.NewRepository(pool)
	registrationHandler := registrations.NewHandler(registrationRepo, eventRepo, tokenCodec, jobQueue, hub, logger)

	// Checkpoint check-in engine
	checkinStore := checkin.NewPostgresStore(pool)
	coordinator := checkin.NewCoordinator(tokenCodec, checkinStore)
	checkinHandler := checkin.NewHandler(coordinator, hub, logger)

	// Decision notifications
	emailLogsRepo := emaillogs.NewRepository(pool)
	emailLogsHandler := emaillogs.NewHandler(emailLogsRepo)
	mailer := worker.NewDecisionMailer(emailLogsRepo, jobQueue, worker.MailConfig{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		SMTPHost:    cfg.Email.SMTPHost,
		SMTPPort:    cfg.Email.SMTPPort,
		SMTPUser:    cfg.Email.SMTPUser,
		SMTPPass:    cfg.Email.SMTPPass,
	}, logger)

	jwtValidate := func(token string) (userID, role string, err error) {
		claims, err := sessionJWT.Validate(token)
		if err != nil {
			return "", "", err
		}
		return claims.UserID.String(), claims.Role, nil
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
	}

	// Protected API (session JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(sessionJWT))
	{
		// Users (admin only; for volunteer/organizer assignment)
		api.GET("/users", middleware.RequireRole("admin"), authHandler.List)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", middleware.RequireRole("organizer", "admin"), eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PATCH("/events/:id", middleware.RequireRole("organizer", "admin"), eventHandler.Update)
		api.PUT("/events/:id/form", middleware.RequireRole("organizer", "admin"), eventHandler.UpdateForm)
		api.PUT("/events/:id/checkpoints/unlock", middleware.RequireRole("organizer", "admin"), eventHandler.UnlockCheckpoints)

		// Registrations
		api.POST("/events/:id/register", registrationHandler.Register)
		api.GET("/events/:id/registrations", middleware.RequireRole("organizer", "admin"), registrationHandler.ListByEvent)
		api.GET("/events/:id/emails", middleware.RequireRole("organizer", "admin"), emailLogsHandler.ListByEvent)
		api.GET("/registrations/:id", registrationHandler.Get)
		api.GET("/registrations/:id/checkins", registrationHandler.ListCheckIns)
		api.POST("/registrations/:id/approve", middleware.RequireRole("organizer", "admin"), registrationHandler.Approve)
		api.POST("/registrations/:id/reject", middleware.RequireRole("organizer", "admin"), registrationHandler.Reject)

		// Checkpoint check-in (scanning clients)
		api.POST("/checkin", middleware.RequireRole("volunteer", "organizer", "admin"), checkinHandler.CheckIn)
	}

	// WebSocket scan feed (token in query; no Authorization header on upgrade)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// In-process decision mailer; a dedicated worker binary exists for
	// deployments that want it separate.
	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()
	go mailer.Run(workerCtx)

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	workerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
