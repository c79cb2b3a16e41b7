package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Mimic_1.0/internal/chat_service/api"
	"Mimic_1.0/internal/chat_service/service"
	"Mimic_1.0/internal/chat_service/store"
	"Mimic_1.0/internal/config"
	"Mimic_1.0/internal/database/kafka"
	"Mimic_1.0/internal/database/milvus"
	"Mimic_1.0/internal/database/mongo"
	"Mimic_1.0/internal/database/redis"
	"Mimic_1.0/internal/embedding"
	"Mimic_1.0/internal/llm"
	"Mimic_1.0/internal/memory"
	"Mimic_1.0/internal/retriever"
	"Mimic_1.0/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	flag.Parse()

	// 1. Load Configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Initialize Logger
	logger.Init(logger.ParseLevel(cfg.Logger.Level))
	appLogger := logger.New("PersonaService", "", "")
	appLogger.Info(fmt.Sprintf("Starting Persona Service %s (%s)...", cfg.App.Version, cfg.App.Environment))

	// 3. Initialize Dependencies
	mongoClient, err := mongo.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.Close(context.Background())

	memoryStore, err := memory.NewMongoStore(context.Background(), mongoClient, cfg.Databases.MongoDB.Database)
	if err != nil {
		log.Fatalf("Failed to initialize memory store: %v", err)
	}

	var traceStore *store.TraceStore
	if rdb, err := redis.GetClient(&cfg.Databases.Redis); err != nil {
		appLogger.Warn(fmt.Sprintf("Redis unavailable, trace storage disabled: %v", err))
	} else {
		traceStore = store.NewTraceStore(rdb, 24*time.Hour)
		defer redis.Close()
	}

	var publisher *kafka.TurnPublisher
	if cfg.Databases.Kafka.Enabled {
		kafkaClient, err := kafka.GetClient(&cfg.Databases.Kafka)
		if err != nil {
			appLogger.Warn(fmt.Sprintf("Kafka unavailable, turn events disabled: %v", err))
		} else {
			publisher = kafka.NewTurnPublisher(kafkaClient)
			defer publisher.Close()
			defer kafkaClient.Close()
		}
	}

	var milvusClient *milvus.MilvusClient
	if cfg.Retrieval.DenseBackend == "milvus" {
		milvusClient, err = milvus.GetClient(context.Background(), &cfg.Databases.Milvus)
		if err != nil {
			log.Fatalf("Failed to connect to Milvus: %v", err)
		}
		defer milvusClient.Close()
	}

	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("Failed to create LLM client: %v", err)
	}

	embedder, err := embedding.NewEmdModel(cfg.Embedding)
	if err != nil {
		log.Fatalf("Failed to create embedding client: %v", err)
	}

	rerankKey := cfg.Rerank.APIKey
	if rerankKey == "" {
		rerankKey = os.Getenv("COHERE_API_KEY")
	}
	if rerankKey == "" {
		appLogger.Warn("No Cohere API key configured. Reranker will not function.")
	}
	oracle := retriever.NewCohereOracle(rerankKey, cfg.Rerank.Model)

	// 4. Create the Chat Service and HTTP router
	chatService := service.NewService(cfg, llmClient, embedder, oracle, memoryStore, traceStore, publisher, milvusClient, appLogger)

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(api.NewHandler(chatService), &cfg.Middleware)

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}
	go func() {
		appLogger.Info(fmt.Sprintf("HTTP server listening at %s", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to serve HTTP: %v", err)
		}
	}()

	// 5. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(fmt.Sprintf("Forced shutdown: %v", err))
	}
	appLogger.Info("Server gracefully stopped")
}
