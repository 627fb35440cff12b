package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultSessionTTL       = 24 * time.Hour
	defaultMaxDocumentChars = 400000
	defaultMaxUploadBytes   = 20 << 20
	defaultLLMTimeout       = 120 * time.Second
	defaultConcurrency      = 4
	defaultModelRateLimit   = 30
)

// Config holds application configuration.
type Config struct {
	Port             string
	CORSAllowOrigin  []string
	DatabaseURL      string
	Env              string
	SessionTTL       time.Duration
	MaxDocumentChars int
	MaxUploadBytes   int64
	// Concurrency bounds in-flight model calls per analysis.
	Concurrency int
	// ModelRateLimit is analyze and chat requests per client per minute; 0 disables.
	ModelRateLimit int
	Azure          AzureOpenAI
}

// AzureOpenAI holds the provider settings. Presence is validated by the client
// constructor, not here, so that Load never fails.
type AzureOpenAI struct {
	Endpoint     string
	APIKey       string
	Deployment   string
	APIVersion   string
	AuthType     string
	TenantID     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:             getEnv("PORT", "8080"),
		CORSAllowOrigin:  splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		DatabaseURL:      dbURL,
		Env:              env,
		SessionTTL:       getDuration("SESSION_TTL", defaultSessionTTL),
		MaxDocumentChars: getInt("MAX_DOCUMENT_CHARS", defaultMaxDocumentChars),
		MaxUploadBytes:   int64(getInt("MAX_UPLOAD_BYTES", defaultMaxUploadBytes)),
		Concurrency:      getInt("ANALYSIS_CONCURRENCY", defaultConcurrency),
		ModelRateLimit:   getInt("RATE_LIMIT_MODEL_PER_MINUTE", defaultModelRateLimit),
		Azure: AzureOpenAI{
			Endpoint:     strings.TrimSpace(os.Getenv("AZURE_OPENAI_ENDPOINT")),
			APIKey:       strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_KEY")),
			Deployment:   strings.TrimSpace(os.Getenv("AZURE_OPENAI_DEPLOYMENT_NAME")),
			APIVersion:   strings.TrimSpace(os.Getenv("AZURE_OPENAI_API_VERSION")),
			AuthType:     normalizeAuthType(getEnv("AZURE_OPENAI_AUTH_TYPE", "api_key")),
			TenantID:     strings.TrimSpace(os.Getenv("AZURE_TENANT_ID")),
			ClientID:     strings.TrimSpace(os.Getenv("AZURE_CLIENT_ID")),
			ClientSecret: strings.TrimSpace(os.Getenv("AZURE_CLIENT_SECRET")),
			Timeout:      time.Duration(getInt("AZURE_OPENAI_TIMEOUT_SECONDS", int(defaultLLMTimeout/time.Second))) * time.Second,
		},
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val < 0 {
		log.Printf("config %s invalid int %q; using %d", key, raw, def)
		return def
	}
	return val
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := time.ParseDuration(raw)
	if err != nil || val <= 0 {
		log.Printf("config %s invalid duration %q; using %s", key, raw, def)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeAuthType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "entra", "entra_id", "aad", "azure_ad":
		return "entra"
	default:
		return "api_key"
	}
}

// IsDevLike reports whether env permits in-memory fallbacks.
func IsDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
