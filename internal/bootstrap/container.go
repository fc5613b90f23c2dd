package bootstrap

import (
	"log"
	"os"

	"origami-be/internal/config"
	"origami-be/internal/controller"
	"origami-be/internal/handler"
	"origami-be/internal/pkg/logger"
	"origami-be/internal/repository/implementation"
	"origami-be/internal/repository/memory"
	"origami-be/internal/service"
	"origami-be/internal/websocket"
	"origami-be/pkg/embedding"
	"origami-be/pkg/ingest"
	"origami-be/pkg/llm/factory"
	"origami-be/pkg/notes"

	pktNats "origami-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	ChatController     controller.IChatController
	DocumentController controller.IDocumentController
	NoteController     controller.INoteController
	UploadController   controller.IUploadController

	// Background services, exposed for main.go to run
	ConsumerService service.IConsumerService

	// WebSockets & progress events
	ProgressHandler *handler.ProgressHandler
	WebSocketHub    *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	// 2. Event bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 3. AI providers
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(
			cfg.Ai.OllamaBaseURL,
			cfg.Ai.EmbeddingModel,
		)
		log.Printf("[INFO] Using Embedding Provider: OLLAMA (%s)", cfg.Ai.EmbeddingModel)
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Ai.GeminiAPIKey)
		log.Printf("[INFO] Using Embedding Provider: GEMINI")
	}

	llmProvider, err := factory.NewLLMProvider(
		cfg.Ai.LLMProvider,
		cfg.Ai.LLMModel,
		cfg.Ai.OllamaBaseURL,
		cfg.Ai.GeminiAPIKey,
	)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize LLM Provider: %v", err)
	}
	log.Printf("[INFO] Using LLM Provider: %s (%s)", cfg.Ai.LLMProvider, cfg.Ai.LLMModel)

	// 4. Infrastructure
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	rdb := newRedisClient(cfg.App.RedisURL)

	wsLogger := logger.NewIsolatedLogger("logs/progress.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// 5. Storage
	noteStore, err := notes.NewStore(cfg.Paths.NotesDir)
	if err != nil {
		log.Fatalf("[FATAL] Failed to open notes directory: %v", err)
	}
	chunkRepo := implementation.NewDocumentChunkRepository(db)
	uploadRepo := memory.NewUploadRepository()
	statusRepo := memory.NewIngestStatusRepository()

	// 6. Services
	publisherService := service.NewPublisherService(cfg.Ingest.TopicName, pubSub)

	pipelineLogger := log.New(os.Stdout, "", log.LstdFlags)
	pipelineCfg := ingest.Config{
		ChunkSize:      cfg.Ingest.ChunkSize,
		ChunkOverlap:   cfg.Ingest.ChunkOverlap,
		Concurrency:    int64(cfg.Ingest.Concurrency),
		DocPrefixChars: cfg.Ingest.DocPrefixChars,
	}

	var eventBus service.EventPublisher
	if natsPub != nil {
		eventBus = natsPub
	}

	consumerService := service.NewConsumerService(
		pubSub,
		cfg.Ingest.TopicName,
		chunkRepo,
		statusRepo,
		llmProvider,
		embeddingProvider,
		pipelineLogger,
		pipelineCfg,
		eventBus,
	)

	retrieverService := service.NewRetrieverService(chunkRepo, embeddingProvider, sysLogger)
	agentLogger := log.New(os.Stdout, "", log.LstdFlags)
	chatService := service.NewChatService(llmProvider, retrieverService, noteStore, agentLogger, cfg.Agent)
	noteService := service.NewNoteService(noteStore, natsPub)
	documentService := service.NewDocumentService(chunkRepo, retrieverService, sysLogger)
	uploadService := service.NewUploadService(
		cfg.Paths.UploadsDir,
		uploadRepo,
		statusRepo,
		chunkRepo,
		publisherService,
		sysLogger,
	)

	// 7. Progress bridge: NATS -> websocket clients
	progressHandler := handler.NewProgressHandler(wsHub, wsLogger)
	if err := progressHandler.Bind(natsSub); err != nil {
		log.Printf("[WARN] Failed to bind progress events: %v", err)
	}

	return &Container{
		ChatController:     controller.NewChatController(chatService),
		DocumentController: controller.NewDocumentController(documentService),
		NoteController:     controller.NewNoteController(noteService),
		UploadController:   controller.NewUploadController(uploadService),

		ConsumerService: consumerService,

		ProgressHandler: progressHandler,
		WebSocketHub:    wsHub,
	}
}

func newRedisClient(redisURL string) *redis.Client {
	if redisURL == "" {
		return nil
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{Addr: redisURL}
	}
	return redis.NewClient(opt)
}
