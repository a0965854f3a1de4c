package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Public base URL (canonical links, lead archive references)
	BaseURL string

	// Marks the CSRF cookie Secure. Defaults to true outside development.
	SecureCookies bool

	// Lead submission
	LeadProvider    string // "http" or "mock"
	LeadEndpointURL string
	LeadAPIKey      string
	LeadTimeout     time.Duration

	// Lead form rate limiting. When RedisURL is set the limit is shared
	// across instances, otherwise it is kept in process memory.
	LeadRateLimit  int
	LeadRateWindow time.Duration
	RedisURL       string

	// Catalog
	CatalogPath             string // Optional JSON file overriding the embedded products
	DefaultMaxOrderQuantity int    // Clamp ceiling for products without a max order quantity

	// Storage Configuration
	StorageProvider string // "local" or "r2"

	// Local Storage (development)
	LocalStoragePath string

	// R2 Storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string

	// Product image fetching
	ImageFetchTimeout time.Duration
	ImageHosts        []string // Allowed remote hosts for product photos

	// Templates are read from this directory in development so edits
	// show up without a rebuild. Empty means always use the embedded copy.
	TemplatesDir string

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		BaseURL: getEnv("BASE_URL", "http://localhost:8080"),

		// Lead submission defaults to the in-process mock for development
		LeadProvider:    getEnv("LEAD_PROVIDER", "mock"),
		LeadEndpointURL: getEnv("LEAD_ENDPOINT_URL", ""),
		LeadAPIKey:      getEnv("LEAD_API_KEY", ""),
		LeadTimeout:     getEnvDuration("LEAD_TIMEOUT", 15*time.Second),

		LeadRateLimit:  getEnvInt("LEAD_RATE_LIMIT", 5),
		LeadRateWindow: getEnvDuration("LEAD_RATE_WINDOW", 15*time.Minute),
		RedisURL:       getEnv("REDIS_URL", ""),

		CatalogPath:             getEnv("CATALOG_PATH", ""),
		DefaultMaxOrderQuantity: getEnvInt("DEFAULT_MAX_ORDER_QUANTITY", 1000),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),

		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),

		ImageFetchTimeout: getEnvDuration("IMAGE_FETCH_TIMEOUT", 10*time.Second),
		ImageHosts:        getEnvList("IMAGE_HOSTS", []string{"images.unsplash.com"}),

		TemplatesDir: getEnv("TEMPLATES_DIR", "web/templates"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	cfg.SecureCookies = getEnvBool("SECURE_COOKIES", cfg.Env != "development")

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	// Validate storage configuration
	if c.StorageProvider == "r2" {
		if c.R2AccountID == "" {
			return fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2AccessKeyID == "" {
			return fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2SecretAccessKey == "" {
			return fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if c.R2BucketName == "" {
			return fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if c.StorageProvider != "local" {
		return fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", c.StorageProvider)
	}

	// Validate lead provider configuration
	if c.LeadProvider == "http" {
		if c.LeadEndpointURL == "" {
			return fmt.Errorf("LEAD_ENDPOINT_URL is required when LEAD_PROVIDER is 'http'")
		}
	} else if c.LeadProvider != "mock" {
		return fmt.Errorf("LEAD_PROVIDER must be either 'http' or 'mock', got: %s", c.LeadProvider)
	}

	if c.LeadRateLimit <= 0 {
		return fmt.Errorf("LEAD_RATE_LIMIT must be positive, got: %d", c.LeadRateLimit)
	}
	if c.LeadRateWindow <= 0 {
		return fmt.Errorf("LEAD_RATE_WINDOW must be positive, got: %s", c.LeadRateWindow)
	}
	if c.LeadTimeout <= 0 {
		return fmt.Errorf("LEAD_TIMEOUT must be positive, got: %s", c.LeadTimeout)
	}
	if c.ImageFetchTimeout <= 0 {
		return fmt.Errorf("IMAGE_FETCH_TIMEOUT must be positive, got: %s", c.ImageFetchTimeout)
	}
	if c.DefaultMaxOrderQuantity < 1 {
		return fmt.Errorf("DEFAULT_MAX_ORDER_QUANTITY must be at least 1, got: %d", c.DefaultMaxOrderQuantity)
	}

	return nil
}

// IsDevelopment reports whether templates should be reloaded per request.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList parses a comma-separated variable, dropping empty entries.
func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(strings.ToLower(item))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
