package config

import (
	"errors"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"windryft.app/pocket-windryft/internal/filestore"
	"windryft.app/pocket-windryft/internal/llm"
)

type Config struct {
	DatabaseURL    string
	HTTPPort       string
	LogLevel       string
	JWTSecret      string
	AllowedOrigins []string
	MaxUploadBytes int64

	AI      llm.Config
	Storage filestore.Config
}

// LoadConfig reads the environment, after loading a .env file if one exists.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	cfg := &Config{
		DatabaseURL:    getEnv("DATABASE_URL", "windryft.db"),
		HTTPPort:       getEnv("HTTP_PORT", "8080"),
		LogLevel:       strings.ToUpper(getEnv("LOG_LEVEL", "INFO")),
		JWTSecret:      getEnv("JWT_SECRET", ""),
		AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MaxUploadBytes: int64(getEnvAsInt("MAX_UPLOAD_MB", 10)) << 20,
		AI: llm.Config{
			GeminiAPIKey:     getEnv("GEMINI_API_KEY", ""),
			GeminiModel:      getEnv("GEMINI_MODEL", llm.DefaultGeminiModel),
			AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
			AnthropicModel:   getEnv("ANTHROPIC_MODEL", llm.DefaultAnthropicModel),
			AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", llm.DefaultAnthropicBaseURL),
			DeepSeekAPIKey:   getEnv("DEEPSEEK_API_KEY", ""),
			DeepSeekModel:    getEnv("DEEPSEEK_MODEL", llm.DefaultDeepSeekModel),
			DeepSeekBaseURL:  getEnv("DEEPSEEK_BASE_URL", llm.DefaultDeepSeekBaseURL),
			Timeout:          time.Duration(getEnvAsInt("AI_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Storage: filestore.Config{
			Type:         filestore.Type(getEnv("STORAGE_TYPE", string(filestore.TypeLocal))),
			LocalPath:    getEnv("STORAGE_LOCAL_PATH", "./storage/files"),
			S3Bucket:     getEnv("AWS_S3_BUCKET", ""),
			S3Region:     getEnv("AWS_REGION", "us-east-1"),
			AWSAccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
			AWSSecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
		},
	}
	cfg.AI.Debug = cfg.LogLevel == "DEBUG"

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET environment variable is required")
	}
	if cfg.Storage.Type == filestore.TypeS3 && cfg.Storage.S3Bucket == "" {
		return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
	}
	return cfg, nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
