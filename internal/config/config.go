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
	StoreLocal  = "local"
	StoreRemote = "remote"
	StoreMemory = "memory"
)

type Config struct {
	ServerPort  string
	Environment string
	LogLevel    string
	DBPath      string
	NodeID      int64

	// Completion backend
	CompletionBackend  string
	QueryWebhookURL    string
	DocumentWebhookURL string
	CompletionTimeout  time.Duration
	SendConversationID bool
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	OpenAIModel        string

	// Chat storage
	StoreBackend     string
	RemoteStoreURL   string
	AutosaveInterval time.Duration
	MaxUploadMB      int

	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from environment variables or .env file.
func Load() *Config {
	env := os.Getenv("ENV")
	if !isProduction(env) {
		if err := godotenv.Load(); err != nil {
			log.Println("No .env file found; continuing with environment variables")
		}
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		Environment: getEnv("ENV", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		DBPath:      getEnv("DB_PATH", "juri.db"),
		NodeID:      int64(getEnvAsInt("NODE_ID", 1)),

		CompletionBackend:  getEnv("COMPLETION_BACKEND", "webhook"),
		QueryWebhookURL:    getEnv("QUERY_WEBHOOK_URL", "http://localhost:5678/webhook/juri-query"),
		DocumentWebhookURL: getEnv("DOCUMENT_WEBHOOK_URL", "http://localhost:5678/webhook/juri-document"),
		CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT", 30*time.Second),
		SendConversationID: getEnvAsBool("SEND_CONVERSATION_ID", false),
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		OpenAIModel:        getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		StoreBackend:     getEnv("STORE_BACKEND", StoreLocal),
		RemoteStoreURL:   getEnv("REMOTE_STORE_URL", ""),
		AutosaveInterval: getEnvAsDuration("AUTOSAVE_INTERVAL", 30*time.Second),
		MaxUploadMB:      getEnvAsInt("MAX_UPLOAD_MB", 10),

		RateLimitRPS:   getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvAsInt("RATE_LIMIT_BURST", 5),
	}
}

func (c *Config) IsProduction() bool {
	return isProduction(c.Environment)
}

// Validate checks values that would make the server unusable. Production additionally
// requires every backend setting to be given explicitly.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreLocal, StoreMemory:
	case StoreRemote:
		if c.RemoteStoreURL == "" {
			return fmt.Errorf("REMOTE_STORE_URL is required when STORE_BACKEND=remote")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive")
	}
	if c.NodeID < 0 || c.NodeID > 1023 {
		return fmt.Errorf("NODE_ID must be between 0 and 1023")
	}

	if c.IsProduction() {
		missing := []string{}
		switch c.CompletionBackend {
		case "openai":
			if c.OpenAIAPIKey == "" {
				missing = append(missing, "OPENAI_API_KEY")
			}
		default:
			if _, ok := os.LookupEnv("QUERY_WEBHOOK_URL"); !ok {
				missing = append(missing, "QUERY_WEBHOOK_URL")
			}
			if _, ok := os.LookupEnv("DOCUMENT_WEBHOOK_URL"); !ok {
				missing = append(missing, "DOCUMENT_WEBHOOK_URL")
			}
		}
		if len(missing) > 0 {
			return fmt.Errorf("missing required production environment variables: %v", missing)
		}
	}
	return nil
}

func isProduction(env string) bool {
	return strings.ToLower(env) == "production"
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an env var as an integer, with a fallback.
func getEnvAsInt(key string, defaultValue int) int {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as integer. Using default value.", key)
		return defaultValue
	}
	return intValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(strValue, 64)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as number. Using default value.", key)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(strValue)
	if err != nil {
		log.Printf("Warning: could not parse env var %s as boolean. Using default value.", key)
		return defaultValue
	}
	return value
}

// getEnvAsDuration accepts Go durations ("45s") or a plain number of seconds.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if strValue == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(strValue); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(secs) * time.Second
	}
	log.Printf("Warning: could not parse env var %s as duration. Using default value.", key)
	return defaultValue
}
