package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Inbound InboundConfig `yaml:"inbound"`
	Storage StorageConfig `yaml:"storage"`
	Notify  NotifyConfig  `yaml:"notify"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// InboundConfig holds inbound webhook and attachment settings
type InboundConfig struct {
	URLToken               string   `yaml:"url_token"`
	AllowedImageExtensions []string `yaml:"allowed_image_extensions"`
	MaxImageSizeBytes      int64    `yaml:"max_image_size_bytes"`
	PhotoUploadLimit       int64    `yaml:"photo_upload_limit"`
}

// StorageConfig holds document and object storage settings
type StorageConfig struct {
	Type          string `yaml:"type"`
	DynamoDBTable string `yaml:"dynamodb_table"`
	S3Bucket      string `yaml:"s3_bucket"`
	AWSRegion     string `yaml:"aws_region"`
	AWSProfile    string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
	CDNDomain     string `yaml:"cdn_domain"`
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// NotifyConfig holds notification email settings
type NotifyConfig struct {
	Enabled        bool   `yaml:"enabled"`
	SenderEmail    string `yaml:"sender_email"`
	SenderName     string `yaml:"sender_name"`
	BaseURL        string `yaml:"base_url"`
	AWSRegion      string `yaml:"aws_region"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c NotifyConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Inbound.AllowedImageExtensions) == 0 {
		cfg.Inbound.AllowedImageExtensions = []string{"jpg", "jpeg", "png", "gif", "webp"}
	}
	if cfg.Inbound.MaxImageSizeBytes == 0 {
		cfg.Inbound.MaxImageSizeBytes = 10 * 1024 * 1024
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "memory"
	}
	if cfg.Storage.AWSRegion == "" {
		cfg.Storage.AWSRegion = "us-west-2"
	}
	if cfg.Notify.AWSRegion == "" {
		cfg.Notify.AWSRegion = "us-west-2"
	}
	if cfg.Notify.TimeoutSeconds == 0 {
		cfg.Notify.TimeoutSeconds = 30
	}
	if cfg.Notify.SenderName == "" {
		cfg.Notify.SenderName = "MailMap"
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if token := os.Getenv("INBOUND_URL_TOKEN"); token != "" {
		cfg.Inbound.URLToken = token
	}
	if limit := os.Getenv("PHOTO_UPLOAD_LIMIT"); limit != "" {
		if n, err := strconv.ParseInt(limit, 10, 64); err == nil {
			cfg.Inbound.PhotoUploadLimit = n
		}
	}
	if table := os.Getenv("STORAGE_DYNAMODB_TABLE"); table != "" {
		cfg.Storage.DynamoDBTable = table
		cfg.Storage.Type = "aws"
	}
	if bucket := os.Getenv("STORAGE_S3_BUCKET"); bucket != "" {
		cfg.Storage.S3Bucket = bucket
	}
	if region := os.Getenv("STORAGE_AWS_REGION"); region != "" {
		cfg.Storage.AWSRegion = region
	}
	if accessKey := os.Getenv("AWS_SES_ACCESS_KEY"); accessKey != "" {
		cfg.Notify.AccessKey = accessKey
	}
	if secretKey := os.Getenv("AWS_SES_SECRET_KEY"); secretKey != "" {
		cfg.Notify.SecretKey = secretKey
	}
	if region := os.Getenv("AWS_SES_REGION"); region != "" {
		cfg.Notify.AWSRegion = region
	}
	if baseURL := os.Getenv("NOTIFY_BASE_URL"); baseURL != "" {
		cfg.Notify.BaseURL = baseURL
	}
	if email := os.Getenv("SENDER_EMAIL_ADDRESS"); email != "" {
		cfg.Notify.SenderEmail = email
		cfg.Notify.Enabled = true
	}
	if name := os.Getenv("SENDER_NAME"); name != "" {
		cfg.Notify.SenderName = name
	}

	return cfg, nil
}
