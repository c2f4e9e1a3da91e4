package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

type Config struct {
	Server struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port" validate:"gte=0,lte=65535"`
		Env  string `yaml:"env"`
	} `yaml:"server"`

	Database struct {
		Driver string `yaml:"driver" validate:"oneof=postgres sqlite"` // postgres, sqlite
		DSN    string `yaml:"url" validate:"required"`
	} `yaml:"database"`

	FleetAPI struct {
		BaseURL        string `yaml:"base_url" validate:"required,url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=0"`
	} `yaml:"fleet_api"`

	Storage struct {
		Type       string `yaml:"type" validate:"oneof=local s3 cloudflare_r2"`
		BasePath   string `yaml:"base_path"`   // local
		BaseURL    string `yaml:"base_url"`    // public URL base
		Bucket     string `yaml:"bucket"`      // S3/R2
		Region     string `yaml:"region"`      // S3
		AccessKey  string `yaml:"access_key"`  // S3/R2
		SecretKey  string `yaml:"secret_key"`  // S3/R2
		Endpoint   string `yaml:"endpoint"`    // R2 or custom S3
		UseSSL     bool   `yaml:"use_ssl"`     // S3/R2
		PublicRead bool   `yaml:"public_read"` // upload with public-read ACL
	} `yaml:"storage"`

	Upload struct {
		MaxSize      int64    `yaml:"max_size" validate:"gt=0"` // bytes
		AllowedTypes []string `yaml:"allowed_types"`
	} `yaml:"upload"`

	Console struct {
		PerPage             int `yaml:"per_page" validate:"gte=1,lte=100"`
		PreviewTTL          int `yaml:"preview_ttl_seconds" validate:"gte=1"`
		ExportMaxRows       int `yaml:"export_max_rows" validate:"gte=1"`
		SessionCookieMaxAge int `yaml:"session_cookie_max_age"`
		ThumbnailSize       int `yaml:"thumbnail_size"`
	} `yaml:"console"`

	Metrics struct {
		Enabled bool `yaml:"enabled"`
	} `yaml:"metrics"`
}

var AppConfig *Config

// Defaults returns a configuration usable for development and tests.
func Defaults() *Config {
	var cfg Config
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = 8080
	cfg.Server.Env = "development"

	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = "file:flota_console.db?_foreign_keys=on"

	cfg.FleetAPI.BaseURL = "http://localhost:5000"
	cfg.FleetAPI.TimeoutSeconds = 0

	cfg.Storage.Type = "local"
	cfg.Storage.BasePath = "./uploads"
	cfg.Storage.BaseURL = "/files"
	cfg.Storage.Bucket = "adjuntos_ordenes"

	cfg.Upload.MaxSize = 10 * 1024 * 1024 // 10MB
	cfg.Upload.AllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "application/pdf"}

	cfg.Console.PerPage = 20
	cfg.Console.PreviewTTL = 60
	cfg.Console.ExportMaxRows = 5000
	cfg.Console.SessionCookieMaxAge = 24 * 60 * 60
	cfg.Console.ThumbnailSize = 320

	cfg.Metrics.Enabled = true
	return &cfg
}

// LoadConfig reads .env, then the YAML file at CONFIG_PATH (if it exists),
// then environment overrides.
func LoadConfig() {
	cfg, err := Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	AppConfig = cfg
}

// Load is LoadConfig without the global and without exiting.
func Load(configPath string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()

	if configPath == "" {
		configPath = "config/config.yaml"
	}
	if f, err := os.Open(configPath); err == nil {
		defer f.Close()
		if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file at %s: %w", configPath, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to open config file at %s: %w", configPath, err)
	}

	applyEnv(cfg)

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("SERVER_ENV"); v != "" {
		cfg.Server.Env = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
		cfg.Database.Driver = "postgres"
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("FLEET_API_URL"); v != "" {
		cfg.FleetAPI.BaseURL = v
	}
	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		cfg.Storage.Type = v
	}
	if v := os.Getenv("STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("STORAGE_ACCESS_KEY"); v != "" {
		cfg.Storage.AccessKey = v
	}
	if v := os.Getenv("STORAGE_SECRET_KEY"); v != "" {
		cfg.Storage.SecretKey = v
	}
	if v := os.Getenv("STORAGE_BASE_URL"); v != "" {
		cfg.Storage.BaseURL = v
	}
	if v := os.Getenv("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = v == "true"
	}
}

// FleetTimeout is zero when unset, which leaves the transport default.
func (c *Config) FleetTimeout() time.Duration {
	return time.Duration(c.FleetAPI.TimeoutSeconds) * time.Second
}

func (c *Config) PreviewTTL() time.Duration {
	return time.Duration(c.Console.PreviewTTL) * time.Second
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func GetConfig() *Config {
	if AppConfig == nil {
		LoadConfig()
	}
	return AppConfig
}
