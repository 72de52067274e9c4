package bootstrap

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ai-storefront-be/internal/config"
	"ai-storefront-be/internal/controller"
	"ai-storefront-be/internal/pkg/logger"
	"ai-storefront-be/internal/repository/contract"
	"ai-storefront-be/internal/repository/implementation"
	"ai-storefront-be/internal/service"
	"ai-storefront-be/pkg/catalog"
	"ai-storefront-be/pkg/convo/checkpoint"
	"ai-storefront-be/pkg/convo/followup"
	"ai-storefront-be/pkg/convo/graph"
	"ai-storefront-be/pkg/convo/intent"
	"ai-storefront-be/pkg/convo/planner"
	"ai-storefront-be/pkg/convo/rank"
	"ai-storefront-be/pkg/convo/response"
	"ai-storefront-be/pkg/convo/retrieval"
	"ai-storefront-be/pkg/embedding"
	"ai-storefront-be/pkg/llm/factory"
	pkgNats "ai-storefront-be/pkg/nats"
)

type Container struct {
	// Controllers
	AssistController controller.IAssistController

	// Background Services (Exposed for main.go to run)
	ConsumerService service.IConsumerService

	// Ingestion (Exposed for cmd/ingest)
	IngestService      service.IIngestService
	CatalogStore       *catalog.Store
	DocumentRepository contract.CatalogDocumentRepository

	Logger logger.ILogger
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	convoLogger := log.New(os.Stdout, "", log.LstdFlags)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. Providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.OllamaModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.OllamaModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmBaseURL := cfg.Ai.LLMBaseURL
	if cfg.Ai.LLMProvider == "ollama" && llmBaseURL == "" {
		llmBaseURL = cfg.Ai.OllamaBaseURL
	}
	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		llmBaseURL,
		cfg.Keys.OpenAI,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Catalog
	catalogStore := catalog.NewStore(convoLogger)
	if err := catalogStore.LoadFromFile(cfg.Assist.CatalogFile); err != nil {
		log.Printf("[WARN] Catalog not loaded, recommendations will be empty: %v", err)
	}

	// 5. Infrastructure
	natsPub, err := pkgNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		natsPub = nil
	}

	sessionTTL := time.Duration(cfg.Assist.SessionTTLMin) * time.Minute
	var checkpointStore checkpoint.Store
	if cfg.Assist.SessionStore == "redis" {
		opt, err := redis.ParseURL(cfg.App.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{
				Addr: cfg.App.RedisURL,
			}
		}
		rdb := redis.NewClient(opt)
		if _, err := rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		checkpointStore = checkpoint.NewRedisStore(rdb, sessionTTL, convoLogger)
		log.Printf("[INFO] Using Session Store: REDIS")
	} else {
		checkpointStore = checkpoint.NewMemoryStore(sessionTTL)
		log.Printf("[INFO] Using Session Store: MEMORY")
	}

	// 6. Repositories
	docRepo := implementation.NewCatalogDocumentRepository(db)

	// 7. Conversation Engine
	extractor := intent.NewExtractor(llmProvider, convoLogger)
	queryPlanner := planner.NewPlanner(llmProvider, convoLogger)
	followupGen := followup.NewGenerator(llmProvider, convoLogger)
	gateway := retrieval.NewGateway(docRepo, embeddingProvider, retrieval.Config{
		TopK:           cfg.Retrieval.TopK,
		ScoreThreshold: cfg.Retrieval.ScoreThreshold,
	}, convoLogger)
	ranker := rank.NewRanker(catalogStore, convoLogger)
	composer := response.NewComposer(llmProvider, ranker, convoLogger)

	convoGraph := graph.New(
		extractor,
		queryPlanner,
		followupGen,
		gateway,
		ranker,
		composer,
		checkpointStore,
		convoLogger,
	)

	// 8. Services
	publisherService := service.NewPublisherService(cfg.Keys.IndexTopic, pubSub)
	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Keys.IndexTopic,
		docRepo,
		embeddingProvider,
	)
	ingestService := service.NewIngestService(publisherService, sysLogger)
	assistService := service.NewAssistService(convoGraph, natsPub, sysLogger)

	// 9. Controllers
	assistController := controller.NewAssistController(assistService, sysLogger)

	return &Container{
		AssistController:   assistController,
		ConsumerService:    consumerService,
		IngestService:      ingestService,
		CatalogStore:       catalogStore,
		DocumentRepository: docRepo,
		Logger:             sysLogger,
	}
}
