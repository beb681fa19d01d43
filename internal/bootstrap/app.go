package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docuchat/internal/ai"
	"docuchat/internal/config"
	"docuchat/internal/model"
	mysqlClient "docuchat/internal/platform/mysql"
	qdrantClient "docuchat/internal/platform/qdrant"
	rabbitmqClient "docuchat/internal/platform/rabbitmq"
	redisClient "docuchat/internal/platform/redis"
	"docuchat/internal/rag"
	"docuchat/internal/repository"
	"docuchat/internal/search"
	"docuchat/internal/worker"
)

type App struct {
	Config        *config.Config
	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	Qdrant        *qdrantClient.Client
	Registry      *ai.Registry
	Embedder      *ai.GoogleEmbedder
	Index         rag.VectorIndex
	Responder     *rag.Responder
	Ingestor      *rag.Ingestor
	MessageWorker *worker.MessagePersistWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.User{}, &model.Session{}, &model.Message{}, &model.UsageStat{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	qdrant := qdrantClient.NewClient(qdrantClient.Config{
		URL:        cfg.Qdrant.URL,
		APIKey:     cfg.Qdrant.APIKey,
		Collection: cfg.Qdrant.Collection,
	})
	if err := qdrant.EnsureCollection(ctx, cfg.Embedding.Dimension); err != nil {
		return nil, fmt.Errorf("ensure qdrant collection failed: %w", err)
	}

	registry, err := ai.NewRegistry(ai.Credentials{
		GoogleAPIKey:      cfg.Providers.GoogleAPIKey,
		GroqAPIKey:        cfg.Providers.GroqAPIKey,
		GroqBaseURL:       cfg.Providers.GroqBaseURL,
		OpenRouterAPIKey:  cfg.Providers.OpenRouterAPIKey,
		OpenRouterBaseURL: cfg.Providers.OpenRouterBaseURL,
	}, ai.DefaultDescriptors())
	if err != nil {
		return nil, fmt.Errorf("build model registry failed: %w", err)
	}

	embedder, err := ai.NewGoogleEmbedder(ai.EmbeddingConfig{
		APIKey: cfg.Providers.GoogleAPIKey,
		Model:  cfg.Embedding.Model,
	})
	if err != nil {
		return nil, fmt.Errorf("build embedder failed: %w", err)
	}

	index := rag.NewQdrantIndex(qdrant, uuid.NewString)
	retriever := rag.NewVectorRetriever(index, embedder)

	var webSearcher rag.WebSearcher
	if cfg.Search.TavilyAPIKey != "" {
		webSearcher = search.MarkdownSearcher{Client: search.NewTavilyClient(search.Config{
			APIKey:      cfg.Search.TavilyAPIKey,
			MaxResults:  cfg.Search.MaxResults,
			SearchDepth: cfg.Search.SearchDepth,
		})}
	}

	responder := rag.NewResponder(retriever, registry, webSearcher, rag.Policy{
		Threshold:    cfg.RAG.SimilarityThreshold,
		TopK:         cfg.RAG.TopK,
		MinDocuments: cfg.RAG.MinDocuments,
	}, cfg.RAG.DefaultModel)

	ingestor := rag.NewIngestor(index, embedder, cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)

	messageRepo := repository.NewMessageRepository(mysqlDB)
	messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, cfg.RabbitMQ.MessagePersistQueue)
	if err := messageWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start message worker failed: %w", err)
	}

	return &App{
		Config:        cfg,
		MySQL:         mysqlDB,
		Redis:         redisCli,
		MQConn:        mqConn,
		Qdrant:        qdrant,
		Registry:      registry,
		Embedder:      embedder,
		Index:         index,
		Responder:     responder,
		Ingestor:      ingestor,
		MessageWorker: messageWorker,
		StartedAt:     time.Now(),
	}, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
