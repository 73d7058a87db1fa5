package main

import (
	"context"
	"log"

	"github.com/hibiken/asynq"

	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/ai"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/config"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/logger"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/queue"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/internal/vectorstore"
	"github.com/SwarupSG/SOP-AI-Chatbot-sub000/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger.InitLogger(cfg)

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
	parser := services.NewSOPParser(cfg.SOPDocumentDir)
	validator := services.NewQuestionValidator(cfg, rag, generator, questions)

	redisOpt := asynq.RedisClientOpt{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}

	taskClient := asynq.NewClient(redisOpt)
	defer taskClient.Close()

	// Index rebuilds are long and exclusive of each other; concurrency
	// stays low so a rebuild does not starve validation tasks.
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 4,
		Queues: map[string]int{
			"critical": 6,
			"default":  3,
			"low":      1,
		},
		StrictPriority: true,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Task failed", "type", task.Type(), "error", err)
		}),
	})

	processor := queue.NewTaskProcessor(rag, parser, validator, taskClient)

	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.TaskRebuildIndex, processor.HandleRebuildIndex)
	mux.HandleFunc(queue.TaskValidateQuestions, processor.HandleValidateQuestions)

	logger.Info("Worker starting", "redis", cfg.RedisURL)
	if err := server.Run(mux); err != nil {
		log.Fatal("Worker failed: ", err)
	}
}
