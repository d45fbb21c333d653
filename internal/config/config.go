// Package config loads service configuration from environment variables.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ServiceConfig holds process-level settings.
type ServiceConfig struct {
	Principal         string
	HTTPPort          string
	ObservabilityPort string
}

// ProviderConfig holds completion-provider settings.
type ProviderConfig struct {
	// Mode selects the adapter: "mock" or "openai".
	Mode    string
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// RealtimeConfig holds upstream speech-conversation provider settings.
type RealtimeConfig struct {
	UpstreamURL string
	APIKey      string
	Model       string
	Voice       string
	InitTimeout time.Duration
}

// KafkaConfig holds event publisher settings.
type KafkaConfig struct {
	Enabled         bool
	Brokers         []string
	TopicUsage      string
	TopicTranscript string
	Principal       string
}

// InterviewConfig holds the tunable thresholds of the interview engine.
type InterviewConfig struct {
	WarmupMinQuestions          int
	WarmupMinAvgConfidence      float64
	StandardMinQuestions        int
	StandardMinAvgAccuracy      float64
	BoundaryConfidenceThreshold float64
	MemoryKeepLastN             int
	MemoryMaxBytes              int
}

// StoreConfig holds persistence settings.
type StoreConfig struct {
	// Driver selects the repository: "sqlite" or "memory".
	Driver string
	Path   string
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string
	LogFormat string
}

// Configuration is the full service configuration.
type Configuration struct {
	Service       ServiceConfig
	Provider      ProviderConfig
	Realtime      RealtimeConfig
	Kafka         KafkaConfig
	Interview     InterviewConfig
	Store         StoreConfig
	Observability ObservabilityConfig
}

// Load reads configuration from the environment, applying defaults.
func Load() *Configuration {
	return &Configuration{
		Service: ServiceConfig{
			Principal:         envOrDefault("SERVICE_PRINCIPAL", "svc-interview-engine"),
			HTTPPort:          envOrDefault("HTTP_PORT", "8080"),
			ObservabilityPort: envOrDefault("OBSERVABILITY_PORT", "9090"),
		},
		Provider: ProviderConfig{
			Mode:    envOrDefault("COMPLETION_PROVIDER", "mock"),
			BaseURL: envOrDefault("COMPLETION_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  os.Getenv("COMPLETION_API_KEY"),
			Model:   envOrDefault("COMPLETION_MODEL", "gpt-4o-mini"),
			Timeout: envDuration("COMPLETION_TIMEOUT", 30*time.Second),
		},
		Realtime: RealtimeConfig{
			UpstreamURL: envOrDefault("REALTIME_UPSTREAM_URL", "wss://api.openai.com/v1/realtime"),
			APIKey:      os.Getenv("REALTIME_API_KEY"),
			Model:       envOrDefault("REALTIME_MODEL", "gpt-4o-realtime-preview"),
			Voice:       envOrDefault("REALTIME_VOICE", "alloy"),
			InitTimeout: envDuration("REALTIME_INIT_TIMEOUT", 10*time.Second),
		},
		Kafka: KafkaConfig{
			Enabled:         envBool("KAFKA_ENABLED", false),
			Brokers:         envList("KAFKA_BROKERS"),
			TopicUsage:      envOrDefault("KAFKA_TOPIC_USAGE", "interview.usage"),
			TopicTranscript: envOrDefault("KAFKA_TOPIC_TRANSCRIPT", "interview.transcript.final"),
			Principal:       envOrDefault("SERVICE_PRINCIPAL", "svc-interview-engine"),
		},
		Interview: InterviewConfig{
			WarmupMinQuestions:          envInt("WARMUP_MIN_QUESTIONS", 2),
			WarmupMinAvgConfidence:      envFloat("WARMUP_MIN_AVG_CONFIDENCE", 0.7),
			StandardMinQuestions:        envInt("STANDARD_MIN_QUESTIONS", 4),
			StandardMinAvgAccuracy:      envFloat("STANDARD_MIN_AVG_ACCURACY", 0.8),
			BoundaryConfidenceThreshold: envFloat("BOUNDARY_CONFIDENCE_THRESHOLD", 0.5),
			MemoryKeepLastN:             envInt("MEMORY_KEEP_LAST_N", 5),
			MemoryMaxBytes:              envInt("MEMORY_MAX_BYTES", 16*1024),
		},
		Store: StoreConfig{
			Driver: envOrDefault("STORE_DRIVER", "sqlite"),
			Path:   envOrDefault("STORE_PATH", "data/interviews.db"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  envOrDefault("LOG_LEVEL", "info"),
			LogFormat: envOrDefault("LOG_FORMAT", "json"),
		},
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
