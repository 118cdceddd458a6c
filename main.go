package main

import (
	"context"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"board-service/internal/boardsync"
	"board-service/internal/db"
	"board-service/internal/handlers"
	"board-service/internal/middleware"
	"board-service/internal/observability"
	"board-service/internal/rabbitmq"
	"board-service/internal/repositories"
	"board-service/internal/telemetry"
	"board-service/internal/ws"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if getEnv("ENV", "dev") == "dev" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(ctx, "board-service", getEnv("OTLP_ENDPOINT", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to init tracing")
	}
	defer func() {
		_ = shutdownTracing(context.Background())
	}()

	database, err := db.Connect()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to db")
	}

	amqpURL := getEnv("AMQP_URL", "")
	exchange := getEnv("AMQP_EXCHANGE", "board_events")
	eventPublisher, err := observability.NewAMQPPublisher(amqpURL, exchange)
	if err != nil {
		log.Warn().Err(err).Msg("event publishing disabled")
	} else {
		observability.SetPublisher(eventPublisher)
		defer eventPublisher.Close()
	}

	auditPublisher := rabbitmq.NewPublisher(amqpURL, getEnv("AUDIT_EXCHANGE", "audit"))
	defer auditPublisher.Close()
	log.Info().Str("mode", rabbitmq.PublisherMode(auditPublisher)).Msg("audit publisher ready")
	audit := telemetry.NewAuditEmitter(auditPublisher, "audit_log.boards", "board-service", getEnv("ENV", "dev"))

	boardRepo := repositories.NewBoardRepo(database)

	idle := boardsync.DefaultIdleTimeout
	if raw := getEnv("BOARD_IDLE_TIMEOUT", ""); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			idle = parsed
		}
	}
	registry := boardsync.NewRegistry(boardRepo, idle)
	registry.StartJanitor(ctx)

	boardHandler := handlers.NewBoardHandler(boardRepo, registry, audit)
	boardWS := ws.NewBoardWebSocketHandler(registry)

	router := gin.New()

	// middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())
	router.Use(otelgin.Middleware("board-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware()

	router.GET("/company/boards", authMiddleware, boardHandler.ListBoards)
	router.POST("/company/boards", authMiddleware, boardHandler.CreateBoard)
	router.PATCH("/company/boards", authMiddleware, boardHandler.UpdateBoard)
	router.DELETE("/company/boards", authMiddleware, boardHandler.DeleteBoard)

	router.POST("/company/boards/room", authMiddleware, boardHandler.CreateRoom)
	router.PATCH("/company/boards/room", authMiddleware, boardHandler.PatchRoom)
	router.DELETE("/company/boards/room", authMiddleware, boardHandler.DeleteRoom)

	router.GET("/company/boards/archive", authMiddleware, boardHandler.ListArchive)
	router.POST("/company/boards/archive", authMiddleware, boardHandler.ArchiveChat)
	router.POST("/company/boards/archive/restore", authMiddleware, boardHandler.RestoreChat)

	router.POST("/company/boards/transfer", authMiddleware, boardHandler.TransferChat)

	router.GET("/company/boards/comments", authMiddleware, boardHandler.GetComments)
	router.POST("/company/boards/comment", authMiddleware, boardHandler.PostComment)
	router.DELETE("/company/boards/comment", authMiddleware, boardHandler.DeleteComment)

	router.POST("/company/boards/inbound", authMiddleware, boardHandler.Inbound)

	router.GET("/ws/boards/:board_id", boardWS.Handle)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterDebugRoutes(router, audit, getEnv("DEBUG_ROUTES", "") == "true")

	port := getEnv("PORT", "8083")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
