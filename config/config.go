package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Observ   ObservabilityConfig
	Business BusinessConfig
	Auth     AuthConfig
	Sim      SimConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	// URL is optional; with no URL the service runs on the in-memory store
	URL string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Enabled  bool
}

type KafkaConfig struct {
	Brokers    []string
	TopicOrder string
	Enabled    bool
}

type ObservabilityConfig struct {
	JaegerEndpoint string
	PrometheusPort string
}

type BusinessConfig struct {
	OrderTimeoutSeconds int
	ExpirySweepSeconds  int
}

type AuthConfig struct {
	// TokenSpec is "token=userID:role,token2=userID2:role2"
	TokenSpec string
}

type SimConfig struct {
	Seed         int64
	LatencyDelay bool
}

func Load() *Config {
	_ = godotenv.Load()

	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	orderTimeout, _ := strconv.Atoi(getEnv("ORDER_TIMEOUT_SECONDS", "300"))
	sweepInterval, _ := strconv.Atoi(getEnv("EXPIRY_SWEEP_SECONDS", "60"))
	seed, _ := strconv.ParseInt(getEnv("SIM_SEED", "0"), 10, 64)

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
			Enabled:  getEnv("REDIS_ENABLED", "false") == "true",
		},
		Kafka: KafkaConfig{
			Brokers:    strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
			TopicOrder: getEnv("KAFKA_TOPIC_ORDER_EVENTS", "order-events"),
			Enabled:    getEnv("KAFKA_ENABLED", "false") == "true",
		},
		Observ: ObservabilityConfig{
			JaegerEndpoint: getEnv("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			PrometheusPort: getEnv("PROMETHEUS_PORT", "9090"),
		},
		Business: BusinessConfig{
			OrderTimeoutSeconds: orderTimeout,
			ExpirySweepSeconds:  sweepInterval,
		},
		Auth: AuthConfig{
			TokenSpec: getEnv("AUTH_TOKENS", "user-token=user-1:user,admin-token=admin-1:admin"),
		},
		Sim: SimConfig{
			Seed:         seed,
			LatencyDelay: getEnv("SIM_LATENCY", "true") == "true",
		},
	}

	log.Printf("Config loaded: env=%s, port=%s", cfg.Server.Env, cfg.Server.Port)
	return cfg
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}
