package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
)

type Config struct {
	AppURL                 string
	DatabaseDSN            string
	RateLimit              int
	RedisAddr              string
	RedisEventsChannel     string
	MaterializeThreshold   int
	ApprovalGraceSeconds   int
	UndoWindowSeconds      int
	RowCacheSize           int
	ShutdownTimeoutSeconds int
}

func Load() Config {
	appHost := getEnv("APP_HOST", "127.0.0.1")
	appPort := getEnv("APP_PORT", "8080")
	redisHost := getEnv("REDIS_HOST", "127.0.0.1")
	redisPort := getEnv("REDIS_PORT", "6379")

	cfg := Config{
		AppURL:                 fmt.Sprintf("%s:%s", appHost, appPort),
		DatabaseDSN:            getEnv("DATABASE_DSN", "taskgrid.db"),
		RateLimit:              getEnvAsInt("RATE_LIMIT_PER_MINUTE", 600),
		RedisAddr:              fmt.Sprintf("%s:%s", redisHost, redisPort),
		RedisEventsChannel:     getEnv("REDIS_EVENTS_CHANNEL", "task_mutations"),
		MaterializeThreshold:   getEnvAsInt("MATERIALIZE_THRESHOLD", 300),
		ApprovalGraceSeconds:   getEnvAsInt("APPROVAL_GRACE_SECONDS", 8),
		UndoWindowSeconds:      getEnvAsInt("UNDO_WINDOW_SECONDS", 30),
		RowCacheSize:           getEnvAsInt("ROW_CACHE_SIZE", 128),
		ShutdownTimeoutSeconds: getEnvAsInt("SHUTDOWN_TIMEOUT_SECONDS", 20),
	}

	validate(cfg)
	return cfg
}

func validate(cfg Config) {
	if cfg.AppURL == "" {
		log.Fatal("APP_URL must not be empty (e.g. 127.0.0.1:8080)")
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("DATABASE_DSN must not be empty")
	}
	if cfg.RateLimit <= 0 {
		log.Fatal("RATE_LIMIT_PER_MINUTE must be greater than 0")
	}
	if cfg.MaterializeThreshold <= 0 {
		log.Fatal("MATERIALIZE_THRESHOLD must be greater than 0")
	}
	if cfg.ApprovalGraceSeconds <= 0 {
		log.Fatal("APPROVAL_GRACE_SECONDS must be greater than 0")
	}
	if cfg.UndoWindowSeconds <= 0 {
		log.Fatal("UNDO_WINDOW_SECONDS must be greater than 0")
	}
	if cfg.RowCacheSize <= 0 {
		log.Fatal("ROW_CACHE_SIZE must be greater than 0")
	}
}

func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s", key)
		}
		return i
	}
	return defaultVal
}
