package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Ai       AIConfig
	Ingest   IngestConfig
	Agent    AgentConfig
	Paths    PathsConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type AIConfig struct {
	LLMProvider       string // "ollama" or "gemini"
	LLMModel          string // e.g. "qwen3:8b"
	EmbeddingProvider string // "ollama" or "gemini"
	EmbeddingModel    string
	OllamaBaseURL     string
	GeminiAPIKey      string
}

type IngestConfig struct {
	ChunkSize      int
	ChunkOverlap   int
	Concurrency    int
	DocPrefixChars int
	TopicName      string // pub/sub topic carrying ingestion jobs
}

type AgentConfig struct {
	MaxLoops     int
	TopK         int
	HistoryTurns int
}

type PathsConfig struct {
	NotesDir   string
	UploadsDir string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "qwen3:8b"),
			EmbeddingProvider: getEnv("EMBEDDING_PROVIDER", "ollama"),
			EmbeddingModel:    getEnv("EMBEDDING_MODEL", "nomic-embed-text"),
			OllamaBaseURL:     getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
			GeminiAPIKey:      getEnv("GOOGLE_GEMINI_API_KEY", ""),
		},
		Ingest: IngestConfig{
			ChunkSize:      getEnvAsInt("INGEST_CHUNK_SIZE", 1200),
			ChunkOverlap:   getEnvAsInt("INGEST_CHUNK_OVERLAP", 300),
			Concurrency:    getEnvAsInt("INGEST_CONCURRENCY", 4),
			DocPrefixChars: getEnvAsInt("INGEST_DOC_PREFIX_CHARS", 12000),
			TopicName:      getEnv("INGEST_DOCUMENT_TOPIC_NAME", "INGEST_DOCUMENT"),
		},
		Agent: AgentConfig{
			MaxLoops:     getEnvAsInt("AGENT_MAX_LOOPS", 3),
			TopK:         getEnvAsInt("AGENT_TOP_K", 5),
			HistoryTurns: getEnvAsInt("AGENT_HISTORY_TURNS", 6),
		},
		Paths: PathsConfig{
			NotesDir:   getEnv("NOTES_DIR", "./data/notes"),
			UploadsDir: getEnv("UPLOADS_DIR", "./data/uploads"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}
