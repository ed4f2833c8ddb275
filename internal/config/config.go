package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the gateway configuration
type Config struct {
	HTTPPort   string
	PublicURL  string // origin used to build share links
	APIBaseURL string
	APIToken   string
	APITimeout time.Duration

	MongoURI      string
	MongoDatabase string
	RedisAddr     string

	ResearcherUsername string
	ResearcherPassword string
	JWTSecret          string

	MessageRatePerMinute int
	CORSAllowedOrigins   string

	Chat *ChatConfig
}

// Load reads the configuration from the environment
func Load() *Config {
	port := getEnv("PORT", "8080")
	return &Config{
		HTTPPort:   port,
		PublicURL:  strings.TrimRight(getEnv("PUBLIC_URL", "http://localhost:"+port), "/"),
		APIBaseURL: strings.TrimRight(getEnv("API_BASE_URL", "http://localhost:5000"), "/"),
		APIToken:   os.Getenv("API_TOKEN"),
		APITimeout: getEnvDuration("API_TIMEOUT", 60*time.Second),

		MongoURI:      getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnv("MONGO_DATABASE", "insightai"),
		RedisAddr:     redisAddr(getEnv("REDIS_URI", "localhost:6379")),

		ResearcherUsername: getEnv("RESEARCHER_USERNAME", "admin"),
		ResearcherPassword: getEnv("RESEARCHER_PASSWORD", "password123"),
		JWTSecret:          getEnv("JWT_SECRET", "super-secret-key-change-in-production"),

		MessageRatePerMinute: getEnvInt("MESSAGE_RATE_PER_MINUTE", 30),
		CORSAllowedOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "*"),

		Chat: DefaultChatConfig(),
	}
}

// redisAddr strips an optional redis:// scheme
func redisAddr(uri string) string {
	return strings.TrimPrefix(uri, "redis://")
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go durations ("45s") or plain milliseconds ("45000")
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(val); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultVal
}
