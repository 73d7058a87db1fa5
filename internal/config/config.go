package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	MongoURI    string
	DBName      string
	JWTSecret   string
	Port        string
	GinMode     string
	CORSOrigins []string

	// Redis Configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// AI provider: "ollama" (default, local) or "google" (Gemini)
	AIProvider string

	// Ollama backend
	OllamaBaseURL string
	// Ordered list of embedding model names tried against /api/embeddings.
	// Naming conventions drift between Ollama versions ("nomic-embed-text"
	// vs "nomic-embed-text:latest"), so each alias is attempted in turn.
	EmbeddingModelAliases []string
	GenerationModel       string
	GenTopP               float64
	GenTemperature        float64

	// Per-call timeouts. The fallback transports get longer budgets
	// because process invocation is slower than a warm HTTP connection.
	EmbedTimeout            time.Duration
	EmbedFallbackTimeout    time.Duration
	GenerateTimeout         time.Duration
	GenerateFallbackTimeout time.Duration

	// Google provider (teacher-style provider switch)
	GeminiAPIKey          string
	GoogleEmbeddingsModel string
	GoogleGenerationModel string

	// Vector index (Chroma-style collection API)
	ChromaURL        string
	ChromaCollection string

	// Chunking constants (words)
	MaxChunkWords int
	OverlapWords  int
	MinChunkWords int

	// Retrieval
	QueryK           int // neighbors per variant on the merged path
	LegacyK          int // neighbors on the single-query legacy path
	TopResults       int // merged list truncation / context size
	MaxQueryVariants int

	// Confidence weighting. Assumes cosine-style distances in [0,1] so
	// that 1-distance is a usable confidence; if the index is ever
	// switched to euclidean or inner-product distances this mapping must
	// be re-derived empirically.
	RetrievalWeight float64
	LLMWeight       float64

	// Re-rank boosts (tuned constants, no documented derivation)
	TitleBoost   float64
	ContentBoost float64

	// Confidence thresholds (policy)
	HighConfidence      float64
	MediumConfidence    float64
	ReviewThreshold     float64
	PreferredFloor      float64
	PreferredCap        float64
	ValidationThreshold float64

	// Index build batching
	EmbedBatchSize  int
	EmbedBatchDelay time.Duration

	// Acronym reference table (.xlsx or .csv)
	AcronymTablePath string

	// SOP document directory scanned on reindex
	SOPDocumentDir string

	// Rate limiting
	RateLimitReqs   int
	RateLimitWindow int

	// Answer cache
	AnswerCacheTTL time.Duration

	// Telemetry
	TracingEnabled bool
	OTLPEndpoint   string
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017/sop_chatbot"),
		DBName:      getEnv("DB_NAME", "sop_chatbot"),
		JWTSecret:   getEnv("JWT_SECRET", ""),
		Port:        getEnv("PORT", "8080"),
		GinMode:     getEnv("GIN_MODE", "debug"),
		CORSOrigins: strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),

		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AIProvider: getEnv("AI_PROVIDER", "ollama"),

		OllamaBaseURL:         getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		EmbeddingModelAliases: strings.Split(getEnv("EMBEDDING_MODEL_ALIASES", "nomic-embed-text,nomic-embed-text:latest,all-minilm"), ","),
		GenerationModel:       getEnv("GENERATION_MODEL", "llama3.2"),
		GenTopP:               getEnvFloat64("GEN_TOP_P", 0.9),
		GenTemperature:        getEnvFloat64("GEN_TEMPERATURE", 0.3),

		EmbedTimeout:            getEnvDuration("EMBED_TIMEOUT", 30*time.Second),
		EmbedFallbackTimeout:    getEnvDuration("EMBED_FALLBACK_TIMEOUT", 60*time.Second),
		GenerateTimeout:         getEnvDuration("GENERATE_TIMEOUT", 90*time.Second),
		GenerateFallbackTimeout: getEnvDuration("GENERATE_FALLBACK_TIMEOUT", 120*time.Second),

		GeminiAPIKey:          getEnv("GEMINI_API_KEY", ""),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		GoogleGenerationModel: getEnv("GOOGLE_GENERATION_MODEL", "gemini-2.0-flash"),

		ChromaURL:        getEnv("CHROMA_URL", "http://localhost:8000"),
		ChromaCollection: getEnv("CHROMA_COLLECTION", "sop_chunks"),

		MaxChunkWords: getEnvInt("MAX_CHUNK_WORDS", 400),
		OverlapWords:  getEnvInt("OVERLAP_WORDS", 75),
		MinChunkWords: getEnvInt("MIN_CHUNK_WORDS", 50),

		QueryK:           getEnvInt("QUERY_K", 10),
		LegacyK:          getEnvInt("LEGACY_K", 5),
		TopResults:       getEnvInt("TOP_RESULTS", 5),
		MaxQueryVariants: getEnvInt("MAX_QUERY_VARIANTS", 5),

		RetrievalWeight: getEnvFloat64("RETRIEVAL_WEIGHT", 0.6),
		LLMWeight:       getEnvFloat64("LLM_WEIGHT", 0.4),

		TitleBoost:   getEnvFloat64("TITLE_BOOST", 0.15),
		ContentBoost: getEnvFloat64("CONTENT_BOOST", 0.03),

		HighConfidence:      getEnvFloat64("HIGH_CONFIDENCE", 0.7),
		MediumConfidence:    getEnvFloat64("MEDIUM_CONFIDENCE", 0.4),
		ReviewThreshold:     getEnvFloat64("REVIEW_THRESHOLD", 0.3),
		PreferredFloor:      getEnvFloat64("PREFERRED_FLOOR", 0.95),
		PreferredCap:        getEnvFloat64("PREFERRED_CAP", 0.99),
		ValidationThreshold: getEnvFloat64("VALIDATION_THRESHOLD", 0.8),

		EmbedBatchSize:  getEnvInt("EMBED_BATCH_SIZE", 10),
		EmbedBatchDelay: getEnvDuration("EMBED_BATCH_DELAY", 100*time.Millisecond),

		AcronymTablePath: getEnv("ACRONYM_TABLE_PATH", "./data/acronyms.xlsx"),
		SOPDocumentDir:   getEnv("SOP_DOCUMENT_DIR", "./data/sops"),

		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		AnswerCacheTTL: getEnvDuration("ANSWER_CACHE_TTL", 15*time.Minute),

		TracingEnabled: getEnvBool("TRACING_ENABLED", false),
		OTLPEndpoint:   getEnv("OTLP_ENDPOINT", "localhost:4317"),
	}

	// Validate required fields
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required - set it in .env file")
	}

	if cfg.AIProvider == "google" && cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=google")
	}

	if cfg.RetrievalWeight+cfg.LLMWeight != 1.0 {
		return nil, fmt.Errorf("RETRIEVAL_WEIGHT + LLM_WEIGHT must sum to 1.0")
	}

	if cfg.OverlapWords >= cfg.MaxChunkWords {
		return nil, fmt.Errorf("OVERLAP_WORDS must be smaller than MAX_CHUNK_WORDS")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
