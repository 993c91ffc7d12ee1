package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendS3    = "s3"
	BackendMinio = "minio"
)

var ErrMissingBucket = errors.New("S3_BUCKET is required")

type Config struct {
	Source  SourceConfig
	Storage StorageConfig
	Retry   RetryConfig
	Log     LogConfig
}

type SourceConfig struct {
	ArchiveURL   string
	TargetMember string
	Timeout      time.Duration
}

type StorageConfig struct {
	Backend string
	Bucket  string
	Prefix  string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioRegion    string
	MinioUseSSL    bool
}

type RetryConfig struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      bool
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads the environment (and a .env file when present) into a fresh
// Config. It is meant to be called once per invocation so that values such
// as the bucket are picked up at call time.
func Load() *Config {
	_ = godotenv.Load()
	return fromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("GTFS_ARCHIVE_URL", "https://www.transitchicago.com/downloads/sch_data/google_transit.zip")
	v.SetDefault("GTFS_TARGET_MEMBER", "stops.txt")
	v.SetDefault("HTTP_TIMEOUT", "0s")
	v.SetDefault("STORAGE_BACKEND", BackendS3)
	v.SetDefault("S3_BUCKET", "")
	v.SetDefault("S3_PREFIX", "")
	v.SetDefault("MINIO_ENDPOINT", "")
	v.SetDefault("MINIO_ACCESS_KEY", "")
	v.SetDefault("MINIO_SECRET_KEY", "")
	v.SetDefault("MINIO_REGION", "")
	v.SetDefault("MINIO_USE_SSL", true)
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "1s")
	v.SetDefault("RETRY_MAX_DELAY", "30s")
	v.SetDefault("RETRY_JITTER", true)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// Read from environment variables
	v.AutomaticEnv()
	return v
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Source: SourceConfig{
			ArchiveURL:   strings.TrimSpace(v.GetString("GTFS_ARCHIVE_URL")),
			TargetMember: strings.TrimSpace(v.GetString("GTFS_TARGET_MEMBER")),
			Timeout:      v.GetDuration("HTTP_TIMEOUT"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(strings.TrimSpace(v.GetString("STORAGE_BACKEND"))),
			Bucket:         strings.TrimSpace(v.GetString("S3_BUCKET")),
			Prefix:         v.GetString("S3_PREFIX"),
			MinioEndpoint:  v.GetString("MINIO_ENDPOINT"),
			MinioAccessKey: v.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey: v.GetString("MINIO_SECRET_KEY"),
			MinioRegion:    v.GetString("MINIO_REGION"),
			MinioUseSSL:    v.GetBool("MINIO_USE_SSL"),
		},
		Retry: RetryConfig{
			MaxAttempts: v.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseDelay:   v.GetDuration("RETRY_BASE_DELAY"),
			MaxDelay:    v.GetDuration("RETRY_MAX_DELAY"),
			Jitter:      v.GetBool("RETRY_JITTER"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}
}

// Validate reports every problem at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Storage.Bucket == "" {
		errs = append(errs, ErrMissingBucket)
	}
	if c.Source.ArchiveURL == "" {
		errs = append(errs, errors.New("GTFS_ARCHIVE_URL must not be empty"))
	}
	if c.Source.TargetMember == "" {
		errs = append(errs, errors.New("GTFS_TARGET_MEMBER must not be empty"))
	}
	if c.Source.Timeout < 0 {
		errs = append(errs, errors.New("HTTP_TIMEOUT must be non-negative"))
	}
	switch c.Storage.Backend {
	case BackendS3:
	case BackendMinio:
		if c.Storage.MinioEndpoint == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT is required for the minio backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts))
	}
	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, errors.New("retry delays must be non-negative"))
	}
	return errors.Join(errs...)
}
