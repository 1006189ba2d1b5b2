package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server    ServerConfig
	GRPC      GRPCConfig
	Worker    WorkerConfig
	Evaluator EvaluatorConfig
	DB        DatabaseConfig
	Mock      MockConfig
	Session   SessionConfig
	Logging   LoggingConfig
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host         string
	Port         int
	RateLimitRPS float64
	CORSOrigins  []string
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type EvaluatorConfig struct {
	Interval   time.Duration
	PolicyFile string
}

type DatabaseConfig struct {
	Path     string
	SeedDemo bool
}

// MockConfig injects artificial latency and failures in front of the
// repository so clients can exercise their loading and retry paths.
type MockConfig struct {
	Latency     time.Duration
	FailureRate float64
}

type SessionConfig struct {
	TTL time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "localhost"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			RateLimitRPS: getEnvFloat("RATE_LIMIT_RPS", 20),
			CORSOrigins:  getEnvList("CORS_ORIGINS", []string{"*"}),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		Evaluator: EvaluatorConfig{
			Interval:   getEnvDuration("EVAL_INTERVAL", 30*time.Second),
			PolicyFile: getEnv("POLICY_FILE", ""),
		},
		DB: DatabaseConfig{
			Path:     getEnv("DB_PATH", "./data/trial-monitor.db"),
			SeedDemo: getEnvBool("SEED_DEMO", true),
		},
		Mock: MockConfig{
			Latency:     getEnvDuration("MOCK_LATENCY", 0),
			FailureRate: getEnvFloat("MOCK_FAILURE_RATE", 0),
		},
		Session: SessionConfig{
			TTL: getEnvDuration("SESSION_TTL", 12*time.Hour),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid grpc port: %d", c.GRPC.Port)
	}
	if c.Server.Port == c.GRPC.Port {
		return fmt.Errorf("server and grpc ports must differ: %d", c.Server.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.Evaluator.Interval < time.Second {
		return fmt.Errorf("evaluation interval must be at least 1 second")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}
	if c.Worker.BufferSize < 0 {
		return fmt.Errorf("worker buffer size must not be negative")
	}
	if c.Mock.Latency < 0 {
		return fmt.Errorf("mock latency must not be negative")
	}
	if c.Mock.FailureRate < 0 || c.Mock.FailureRate > 1 {
		return fmt.Errorf("mock failure rate must be between 0 and 1: %g", c.Mock.FailureRate)
	}
	if c.Server.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit must be positive")
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
