package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Camera   CameraConfig
	Batch    BatchConfig
	Analysis AnalysisConfig
	Session  SessionConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type CameraConfig struct {
	Provider string // "sim" for now; real device backends plug in here
	FPS      float64
	Width    int
	Height   int
}

type BatchConfig struct {
	MaxItems       int
	MaxWidth       int
	MaxHeight      int
	TargetBytes    int
	SkipBelowBytes int
}

type AnalysisConfig struct {
	StreamURL          string
	FallbackURL        string
	AuthToken          string
	UploadCeilingBytes int
	RequestTimeoutSec  int
	StreamTimeoutSec   int
	IdleTimeoutSec     int
}

type SessionConfig struct {
	TTLMinutes   int
	PurgeMinutes int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Camera: CameraConfig{
			Provider: getEnv("CAMERA_PROVIDER", "sim"),
			FPS:      getEnvAsFloat("CAMERA_FPS", 15),
			Width:    getEnvAsInt("CAMERA_WIDTH", 1280),
			Height:   getEnvAsInt("CAMERA_HEIGHT", 720),
		},
		Batch: BatchConfig{
			MaxItems:       getEnvAsInt("BATCH_MAX_ITEMS", 15),
			MaxWidth:       getEnvAsInt("BATCH_COMPRESS_MAX_WIDTH", 1280),
			MaxHeight:      getEnvAsInt("BATCH_COMPRESS_MAX_HEIGHT", 1280),
			TargetBytes:    getEnvAsInt("BATCH_COMPRESS_TARGET_BYTES", 512*1024),
			SkipBelowBytes: getEnvAsInt("BATCH_COMPRESS_SKIP_BELOW_BYTES", 100*1024),
		},
		Analysis: AnalysisConfig{
			StreamURL:          getEnv("ANALYSIS_STREAM_URL", "http://localhost:8080/v1/analysis/stream"),
			FallbackURL:        getEnv("ANALYSIS_FALLBACK_URL", "http://localhost:8080/v1/analysis"),
			AuthToken:          getEnv("ANALYSIS_AUTH_TOKEN", ""),
			UploadCeilingBytes: getEnvAsInt("ANALYSIS_UPLOAD_CEILING_BYTES", 1024*1024),
			RequestTimeoutSec:  getEnvAsInt("ANALYSIS_REQUEST_TIMEOUT_SEC", 90),
			StreamTimeoutSec:   getEnvAsInt("ANALYSIS_STREAM_TIMEOUT_SEC", 120),
			IdleTimeoutSec:     getEnvAsInt("ANALYSIS_IDLE_TIMEOUT_SEC", 30),
		},
		Session: SessionConfig{
			TTLMinutes:   getEnvAsInt("SESSION_TTL_MINUTES", 60),
			PurgeMinutes: getEnvAsInt("SESSION_PURGE_MINUTES", 10),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
