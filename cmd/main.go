package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/ai"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/telemetry"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/vectorstore"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/middleware"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/routes"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger.InitLogger(cfg)
	gin.SetMode(cfg.GinMode)

	if cfg.TracingEnabled {
		shutdown, err := telemetry.InitTracer("sop-ai-chatbot", cfg.OTLPEndpoint)
		if err != nil {
			logger.Warn("Tracing disabled", "error", err)
		} else {
			defer shutdown()
		}
	}

	mongoClient, err := config.ConnectMongoDB(cfg)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.DBName)

	rdb, err := config.NewRedisClient(cfg)
	if err != nil {
		log.Fatal("Failed to connect to Redis: ", err)
	}
	defer rdb.Close()

	var google *ai.GoogleClient
	if cfg.AIProvider == "google" {
		google, err = ai.NewGoogleClient(context.Background(), cfg)
		if err != nil {
			log.Fatal("Failed to initialize Google AI client: ", err)
		}
		defer google.Close()
	}

	embedder := ai.NewEmbeddingClient(cfg, google)
	generator := ai.NewGenerationClient(cfg, google)
	index := vectorstore.NewClient(cfg.ChromaURL)

	acronyms := services.NewAcronymService(cfg.AcronymTablePath)
	if err := acronyms.Reload(); err != nil {
		logger.Warn("Acronym table not loaded at startup", "error", err)
	}

	audit := services.NewAuditService(db)
	questions := services.NewQuestionStore(db)
	rag := services.NewRAGService(cfg, embedder, generator, index, acronyms, audit, questions, rdb)

	scheduler := services.NewScheduler(acronyms, audit)
	if err := scheduler.Start(); err != nil {
		logger.Warn("Scheduler failed to start", "error", err)
	}
	defer scheduler.Stop()

	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	defer taskClient.Close()

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.RateLimitMiddleware(rdb, cfg))
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := middleware.NewAuthMiddleware(cfg)

	chat := router.Group("/chat", auth.RequireAuth())
	routes.RegisterChatRoutes(chat, routes.NewChatHandler(rag, audit, questions))

	admin := router.Group("/admin", auth.RequireAuth(), auth.RequireRole("admin"))
	routes.RegisterAdminRoutes(admin, routes.NewAdminHandler(taskClient, acronyms, audit))

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced shutdown", "error", err)
	}
}
