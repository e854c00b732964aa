package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Listing delete modes.
const (
	DeleteModeClose  = "close"
	DeleteModeDelete = "delete"
)

// Config holds application configuration
type Config struct {
	// Server
	Port          string
	Env           string
	PublicBaseURL string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// JWT
	JWTSecret        string
	JWTExpirationDur time.Duration

	// Admin endpoints (category tree maintenance)
	AdminAPIKey string

	// Listings
	PageSize          int
	ListingTTL        time.Duration
	ListingDeleteMode string

	// Redis
	RedisAddr        string
	RedisPassword    string
	CategoryCacheTTL time.Duration

	// S3-compatible photo storage
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3PublicURL string
}

var appConfig *Config

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if not already loaded
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	config := &Config{
		// Server
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		// Database
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "quicksell"),
		DBPassword: getEnv("DB_PASSWORD", "quicksell"),
		DBName:     getEnv("DB_NAME", "quicksell"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", "fallback-secret-key-for-dev-only"),

		AdminAPIKey: getEnv("ADMIN_API_KEY", ""),

		// Redis
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		// S3
		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3Region:    getEnv("S3_REGION", "us-east-1"),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "quicksell-photos"),
		S3PublicURL: getEnv("S3_PUBLIC_URL", ""),
	}

	config.JWTExpirationDur = getDuration("JWT_EXPIRES_IN", 24*time.Hour)
	config.ListingTTL = getDuration("LISTING_TTL", 30*24*time.Hour)
	config.CategoryCacheTTL = getDuration("CATEGORY_CACHE_TTL", 10*time.Minute)
	config.DBConnMaxLifetime = getDuration("DB_CONN_MAX_LIFETIME", time.Hour)
	config.DBMaxOpenConns = getInt("DB_MAX_OPEN_CONNS", 100)
	config.DBMaxIdleConns = getInt("DB_MAX_IDLE_CONNS", 10)

	pageSize, err := strconv.Atoi(getEnv("PAGE_SIZE", "10"))
	if err != nil || pageSize < 1 {
		log.Printf("Warning: invalid PAGE_SIZE value, falling back to 10\n")
		pageSize = 10
	}
	config.PageSize = pageSize

	switch mode := getEnv("LISTING_DELETE_MODE", DeleteModeClose); mode {
	case DeleteModeClose, DeleteModeDelete:
		config.ListingDeleteMode = mode
	default:
		log.Printf("Warning: invalid LISTING_DELETE_MODE value '%s', falling back to %s\n", mode, DeleteModeClose)
		config.ListingDeleteMode = DeleteModeClose
	}

	appConfig = config
	return config, nil
}

// Get returns the application configuration
func Get() *Config {
	if appConfig == nil {
		var err error
		appConfig, err = Load()
		if err != nil {
			log.Fatalf("Failed to load configuration: %v", err)
		}
	}
	return appConfig
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("Warning: invalid %s value '%s', falling back to %s\n", key, raw, defaultValue)
		return defaultValue
	}
	return d
}

func getInt(key string, defaultValue int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		log.Printf("Warning: invalid %s value '%s', falling back to %d\n", key, raw, defaultValue)
		return defaultValue
	}
	return n
}
