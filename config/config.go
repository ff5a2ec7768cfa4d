package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via the environment.
type AppConfig struct {
	AppPort string
	GinMode string

	// Database
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string

	// Identity provider (Amazon Cognito)
	AWSRegion           string
	CognitoUserPoolID   string
	CognitoClientID     string
	CognitoClientSecret string
	CognitoDomain       string
	JWKSCacheTTLMinutes int

	// Hosted-UI code exchange and the cookies set by the callback
	OAuthRedirectURL string
	CookieDomain     string
	CookieSecure     bool
	DashboardURL     string

	// Object storage for cover images
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	// Redis for response caching, logout blacklist and OAuth state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string

	// CORS and throttling
	AllowedOrigins     []string
	RateLimitPerMinute int

	// Logging
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

var cfg AppConfig
var loaded bool

// Load reads the application configuration from environment variables. It should be called once during boot.
// A local .env file is honored when present so development does not need exported shell state.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	_ = godotenv.Load()

	cfg = AppConfig{
		AppPort:             getEnv("APP_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "release"),
		DatabaseURI:         getEnv("DATABASE_URI", ""),
		DBHost:              getEnv("DB_HOST", "127.0.0.1"),
		DBPort:              getEnv("DB_PORT", "5432"),
		DBUser:              getEnv("DB_USER", "postgres"),
		DBPassword:          getEnv("DB_PASSWORD", ""),
		DBName:              getEnv("DB_NAME", "inkwell"),
		DBSSLMode:           getEnv("DB_SSLMODE", "disable"),
		AWSRegion:           getEnv("AWS_REGION", ""),
		CognitoUserPoolID:   getEnv("COGNITO_USER_POOL_ID", ""),
		CognitoClientID:     getEnv("COGNITO_APP_CLIENT_ID", ""),
		CognitoClientSecret: getEnv("COGNITO_APP_CLIENT_SECRET", ""),
		CognitoDomain:       getEnv("COGNITO_DOMAIN", ""),
		JWKSCacheTTLMinutes: getEnvInt("JWKS_CACHE_TTL_MINUTES", 10),
		OAuthRedirectURL:    getEnv("OAUTH_REDIRECT_URL", "http://localhost:8080/auth/callback"),
		CookieDomain:        getEnv("COOKIE_DOMAIN", ""),
		CookieSecure:        getEnvBool("COOKIE_SECURE", isProduction()),
		DashboardURL:        getEnv("DASHBOARD_URL", "http://localhost:3000/dashboard"),
		S3Bucket:            getEnv("S3_BUCKET_NAME", ""),
		S3Region:            getEnv("S3_REGION", ""),
		S3BaseEndpoint:      getEnv("S3_BASE_ENDPOINT", ""),
		RedisHost:           getEnv("REDIS_HOST", "127.0.0.1"),
		RedisPort:           getEnvInt("REDIS_PORT", 6379),
		RedisDB:             getEnvInt("REDIS_DB", 0),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		AllowedOrigins:      readListEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogPath:             getEnv("LOG_PATH", ""),
		LogMaxSizeMB:        getEnvInt("LOG_MAX_SIZE_MB", 100),
		LogMaxBackups:       getEnvInt("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays:       getEnvInt("LOG_MAX_AGE_DAYS", 7),
		LogCompress:         getEnvBool("LOG_COMPRESS", false),
	}

	if cfg.S3Region == "" {
		cfg.S3Region = cfg.AWSRegion
	}

	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// RequireIdentityProvider aborts boot when the Cognito settings are incomplete.
// Called from main, not from Load, so tests can run with a partial environment.
func RequireIdentityProvider(c AppConfig) {
	if c.AWSRegion == "" || c.CognitoUserPoolID == "" || c.CognitoClientID == "" {
		log.Fatal("AWS_REGION, COGNITO_USER_POOL_ID and COGNITO_APP_CLIENT_ID must be set")
	}
}

// IssuerURL is the Cognito user pool issuer the tokens must carry.
func (c AppConfig) IssuerURL() string {
	return fmt.Sprintf("https://cognito-idp.%s.amazonaws.com/%s", c.AWSRegion, c.CognitoUserPoolID)
}

// JWKSURL is the published signing-key set of the user pool.
func (c AppConfig) JWKSURL() string {
	return c.IssuerURL() + "/.well-known/jwks.json"
}

func isProduction() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "production")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Fatalf("invalid integer value for %s: %v", key, err)
		}
		return i
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func readListEnv(key string, defaults []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaults
	}
	items := []string{}
	for _, item := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
