package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// ModelOff disables the semantic tier when used as MODEL_NAME.
const ModelOff = "off"

type Config struct {
	Port string

	// Auth
	APIKey string

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Semantic model
	ModelName         string
	ModelCacheDir     string
	ModelInstances    int
	ModelShared       bool
	ModelInitTimeout  time.Duration
	ModelProbeTimeout time.Duration
	ModelRetryCap     int

	// Per-document scoring
	DocumentBudget    time.Duration
	SemanticBatchSize int
	ForceTier         int

	// Upload limits
	MaxUploadBytes int64

	// Chunking defaults
	DefaultChunkSize    int
	DefaultChunkOverlap int

	// Job state
	JobTTL time.Duration

	// PDF
	PDFFallbackRSC bool

	// Outline cache; empty disables it.
	CachePath string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		APIKey: os.Getenv("OUTLINE_API_KEY"),

		WorkerCount:  envInt("WORKER_COUNT", 4),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 100),

		ModelName:         envOr("MODEL_NAME", "BAAI/bge-small-en-v1.5"),
		ModelCacheDir:     envOr("MODEL_CACHE_DIR", "local_cache"),
		ModelInstances:    envInt("MODEL_INSTANCES", 1),
		ModelShared:       envBool("MODEL_SHARED", true),
		ModelInitTimeout:  envDuration("MODEL_INIT_TIMEOUT", 5*time.Second),
		ModelProbeTimeout: envDuration("MODEL_PROBE_TIMEOUT", 2*time.Second),
		ModelRetryCap:     envInt("MODEL_RETRY_CAP", 3),

		DocumentBudget:    envDuration("DOCUMENT_BUDGET", 10*time.Second),
		SemanticBatchSize: envInt("SEMANTIC_BATCH_SIZE", 16),
		ForceTier:         envInt("FORCE_TIER", 0),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		DefaultChunkSize:    envInt("DEFAULT_CHUNK_SIZE", 1500),
		DefaultChunkOverlap: envInt("DEFAULT_CHUNK_OVERLAP", 200),

		JobTTL: envDuration("JOB_TTL", 1*time.Hour),

		PDFFallbackRSC: envBool("PDF_FALLBACK_RSC", true),

		CachePath: os.Getenv("CACHE_PATH"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 4
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 100
	}
	if cfg.ModelInstances <= 0 {
		cfg.ModelInstances = 1
	}
	if cfg.ModelInitTimeout <= 0 {
		cfg.ModelInitTimeout = 5 * time.Second
	}
	if cfg.ModelProbeTimeout <= 0 {
		cfg.ModelProbeTimeout = 2 * time.Second
	}
	if cfg.ModelRetryCap <= 0 {
		cfg.ModelRetryCap = 3
	}
	if cfg.DocumentBudget <= 0 {
		cfg.DocumentBudget = 10 * time.Second
	}
	if cfg.SemanticBatchSize <= 0 {
		cfg.SemanticBatchSize = 16
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}
	if cfg.DefaultChunkSize <= 0 {
		cfg.DefaultChunkSize = 1500
	}
	if cfg.DefaultChunkOverlap <= 0 {
		cfg.DefaultChunkOverlap = 200
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}

	return cfg
}

// Validate checks settings shared by the server and the CLI.
func (c Config) Validate() error {
	if c.ForceTier < 0 || c.ForceTier > 3 {
		return fmt.Errorf("FORCE_TIER must be 0..3, got %d", c.ForceTier)
	}
	if c.DefaultChunkOverlap >= c.DefaultChunkSize {
		return fmt.Errorf("DEFAULT_CHUNK_OVERLAP (%d) must be smaller than DEFAULT_CHUNK_SIZE (%d)",
			c.DefaultChunkOverlap, c.DefaultChunkSize)
	}
	return nil
}

// ValidateServer additionally requires the API key.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("OUTLINE_API_KEY is required")
	}
	return nil
}

// ModelEnabled reports whether a semantic model should be loaded.
func (c Config) ModelEnabled() bool {
	return c.ModelName != "" && !strings.EqualFold(c.ModelName, ModelOff)
}

// PoolSize is the number of worker slots. A stateful model caps the pool
// at the number of instances the memory budget allows.
func (c Config) PoolSize() int {
	if c.ModelEnabled() && !c.ModelShared {
		return min(c.WorkerCount, c.ModelInstances)
	}
	return c.WorkerCount
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
