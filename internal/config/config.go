package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppEnv         = "dev"
	defaultHTTPAddr       = ":8080"
	defaultPublicURL      = "http://localhost:8080"
	defaultDatabaseURL    = "file:filevault.db?_pragma=busy_timeout(5000)"
	defaultSessionSecret  = "change-me-session-secret"
	defaultStorageBackend = "disk"
	defaultDiskRoot       = "./data/objects"
	defaultS3Region       = "us-east-1"
	defaultDefaultQuota   = "5368709120" // 5 GiB
	defaultMaxUploadSize  = "104857600"  // 100 MiB
	defaultStorageTimeout = "30s"
	defaultDBTimeout      = "5s"
	defaultPresignTTL     = "1h"
	defaultLogLevel       = "info"
)

type Config struct {
	AppEnv    string
	HTTPAddr  string
	PublicURL string
	LogLevel  string

	DatabaseURL string
	DBTimeout   time.Duration

	SessionSecret string
	SessionIssuer string

	StorageBackend string
	StorageTimeout time.Duration
	PresignTTL     time.Duration
	DiskRoot       string
	S3             S3Config

	DefaultQuota  int64
	MaxUploadSize int64

	CORSOrigins []string
}

// S3Config covers both the AWS and the MinIO backend.
type S3Config struct {
	Region    string
	Bucket    string
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}
	return FromEnv()
}

// FromEnv builds the config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = defaultAppEnv
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.PublicURL = strings.TrimRight(strings.TrimSpace(getEnv("PUBLIC_URL", defaultPublicURL)), "/")
	cfg.LogLevel = strings.TrimSpace(getEnv("LOG_LEVEL", defaultLogLevel))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.SessionSecret = strings.TrimSpace(getEnv("SESSION_SECRET", defaultSessionSecret))
	cfg.SessionIssuer = strings.TrimSpace(os.Getenv("SESSION_ISSUER"))

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(getEnv("STORAGE_BACKEND", defaultStorageBackend)))
	cfg.DiskRoot = strings.TrimSpace(getEnv("DISK_ROOT", defaultDiskRoot))
	cfg.S3 = S3Config{
		Region:    strings.TrimSpace(getEnv("S3_REGION", defaultS3Region)),
		Bucket:    strings.TrimSpace(os.Getenv("S3_BUCKET")),
		Endpoint:  strings.TrimSpace(os.Getenv("S3_ENDPOINT")),
		AccessKey: strings.TrimSpace(os.Getenv("S3_ACCESS_KEY")),
		SecretKey: strings.TrimSpace(os.Getenv("S3_SECRET_KEY")),
		UseSSL:    parseBoolEnv("S3_USE_SSL", "true"),
	}

	var err error
	if cfg.DBTimeout, err = parseDurationEnv("DB_TIMEOUT", defaultDBTimeout); err != nil {
		return nil, err
	}
	if cfg.StorageTimeout, err = parseDurationEnv("STORAGE_TIMEOUT", defaultStorageTimeout); err != nil {
		return nil, err
	}
	if cfg.PresignTTL, err = parseDurationEnv("PRESIGN_TTL", defaultPresignTTL); err != nil {
		return nil, err
	}
	if cfg.DefaultQuota, err = parseInt64Env("DEFAULT_QUOTA", defaultDefaultQuota); err != nil {
		return nil, err
	}
	if cfg.MaxUploadSize, err = parseInt64Env("MAX_UPLOAD_SIZE", defaultMaxUploadSize); err != nil {
		return nil, err
	}

	for _, origin := range strings.Split(os.Getenv("CORS_ORIGINS"), ",") {
		if o := strings.TrimSpace(origin); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// IsProd reports whether the config describes a production-like deployment.
func (c *Config) IsProd() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must not be empty")
	}
	if cfg.DBTimeout <= 0 {
		return fmt.Errorf("DB_TIMEOUT must be > 0")
	}
	if cfg.StorageTimeout <= 0 {
		return fmt.Errorf("STORAGE_TIMEOUT must be > 0")
	}
	if cfg.PresignTTL <= 0 || cfg.PresignTTL > 7*24*time.Hour {
		return fmt.Errorf("PRESIGN_TTL must be between 0 and 168h")
	}
	if cfg.DefaultQuota <= 0 {
		return fmt.Errorf("DEFAULT_QUOTA must be > 0")
	}
	if cfg.MaxUploadSize <= 0 {
		return fmt.Errorf("MAX_UPLOAD_SIZE must be > 0")
	}

	switch cfg.StorageBackend {
	case "disk":
		if cfg.DiskRoot == "" {
			return fmt.Errorf("DISK_ROOT must not be empty for the disk backend")
		}
	case "s3", "minio":
		if cfg.S3.Bucket == "" {
			return fmt.Errorf("S3_BUCKET must be set for the %s backend", cfg.StorageBackend)
		}
		if cfg.StorageBackend == "minio" && cfg.S3.Endpoint == "" {
			return fmt.Errorf("S3_ENDPOINT must be set for the minio backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: disk, s3, minio")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.SessionSecret, defaultSessionSecret) {
			return fmt.Errorf("in prod/release SESSION_SECRET must be set and not default")
		}
		if cfg.StorageBackend == "disk" {
			return fmt.Errorf("in prod/release STORAGE_BACKEND must not be disk")
		}
	}

	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseInt64Env(name, fallback string) (int64, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func parseBoolEnv(name, fallback string) bool {
	value := strings.ToLower(strings.TrimSpace(getEnv(name, fallback)))
	return value == "1" || value == "true" || value == "yes" || value == "on"
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
