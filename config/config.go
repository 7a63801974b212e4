package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageBackendS3    = "s3"
	StorageBackendMinIO = "minio"

	DefaultStorageLimitKB = 1048576
)

// Config holds every runtime setting. It is built once by Load and then
// passed by pointer to the components that need it; nothing mutates it later.
type Config struct {
	DatabaseURL string
	ServerPort  int
	LogLevel    slog.Level

	Storage StorageConfig
	Admin   AdminConfig

	RedisURL           string
	ExpoAccessToken    string
	CORSAllowedOrigins []string

	DefaultStorageLimitKB int64
}

type StorageConfig struct {
	Backend         string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	BucketName      string
	// Endpoint overrides the AWS endpoint (S3-compatible providers) or names
	// the MinIO host when Backend is "minio".
	Endpoint      string
	UseSSL        bool
	PublicBaseURL string
	UploadExpiry  time.Duration
}

type AdminConfig struct {
	Username     string
	PasswordHash string
	SecretKey    string
	TokenTTL     time.Duration
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	port, err := intFromEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, err
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}

	storageLimit, err := intFromEnv("DEFAULT_STORAGE_LIMIT_KB", DefaultStorageLimitKB)
	if err != nil {
		return nil, err
	}
	if storageLimit <= 0 {
		return nil, fmt.Errorf("DEFAULT_STORAGE_LIMIT_KB must be positive, got %d", storageLimit)
	}

	storageCfg, err := loadStorage()
	if err != nil {
		return nil, err
	}

	adminCfg := AdminConfig{
		Username:     getEnvOrDefault("ADMIN_USERNAME", "admin"),
		PasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		SecretKey:    os.Getenv("ADMIN_SECRET_KEY"),
		TokenTTL:     12 * time.Hour,
	}
	if adminCfg.PasswordHash != "" && adminCfg.SecretKey == "" {
		return nil, fmt.Errorf("ADMIN_SECRET_KEY must be set when ADMIN_PASSWORD_HASH is configured")
	}

	cfg := &Config{
		DatabaseURL:           dbURL,
		ServerPort:            port,
		LogLevel:              level,
		Storage:               storageCfg,
		Admin:                 adminCfg,
		RedisURL:              os.Getenv("REDIS_URL"),
		ExpoAccessToken:       os.Getenv("EXPO_ACCESS_TOKEN"),
		CORSAllowedOrigins:    splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "*")),
		DefaultStorageLimitKB: int64(storageLimit),
	}

	return cfg, nil
}

func loadStorage() (StorageConfig, error) {
	cfg := StorageConfig{
		Backend:         strings.ToLower(getEnvOrDefault("STORAGE_BACKEND", StorageBackendS3)),
		AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Region:          getEnvOrDefault("AWS_REGION", "ap-northeast-2"),
		BucketName:      os.Getenv("S3_BUCKET_NAME"),
		Endpoint:        os.Getenv("S3_ENDPOINT"),
		PublicBaseURL:   os.Getenv("S3_PUBLIC_BASE_URL"),
		UploadExpiry:    time.Hour,
	}

	switch cfg.Backend {
	case StorageBackendS3:
	case StorageBackendMinIO:
		cfg.Endpoint = getEnvOrDefault("MINIO_ENDPOINT", cfg.Endpoint)
		useSSL, err := strconv.ParseBool(getEnvOrDefault("MINIO_USE_SSL", "true"))
		if err != nil {
			return cfg, fmt.Errorf("invalid MINIO_USE_SSL environment variable: %w", err)
		}
		cfg.UseSSL = useSSL
		if cfg.Endpoint == "" {
			return cfg, fmt.Errorf("MINIO_ENDPOINT must be set when STORAGE_BACKEND=minio")
		}
	default:
		return cfg, fmt.Errorf("unsupported STORAGE_BACKEND %q", cfg.Backend)
	}

	if cfg.BucketName == "" {
		return cfg, fmt.Errorf("S3_BUCKET_NAME environment variable is not set")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func intFromEnv(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s environment variable: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
