package config

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     string
	Env      string
	LogLevel string
	AppURL   string

	DatabaseURL string
	RedisURL    string

	// WhatsApp gateway: "evolution" or "whatsmeow"
	WhatsAppProvider  string
	EvolutionAPIURL   string
	EvolutionAPIToken string
	WhatsAppStoreURL  string

	// Completion service
	LLMProvider    string
	LLMModel       string
	DeepSeekAPIKey string
	DeepSeekAPIURL string
	OpenAIKey      string
	GroqAPIKey     string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	DefaultTimezone string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️ .env file not found, using system environment variables")
	}

	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function and fills the defaults.
func FromEnv(getenv func(string) string) *Config {
	cfg := &Config{
		Port:     getenv("PORT"),
		Env:      getenv("ENV"),
		LogLevel: getenv("LOG_LEVEL"),
		AppURL:   getenv("APP_URL"),

		DatabaseURL: getenv("DATABASE_URL"),
		RedisURL:    getenv("REDIS_URL"),

		WhatsAppProvider:  strings.ToLower(getenv("WHATSAPP_PROVIDER")),
		EvolutionAPIURL:   strings.TrimRight(getenv("EVOLUTION_API_URL"), "/"),
		EvolutionAPIToken: getenv("EVOLUTION_API_TOKEN"),
		WhatsAppStoreURL:  getenv("WHATSAPP_STORE_URL"),

		LLMProvider:    strings.ToLower(getenv("LLM_PROVIDER")),
		LLMModel:       getenv("LLM_MODEL"),
		DeepSeekAPIKey: getenv("DEEPSEEK_API_KEY"),
		DeepSeekAPIURL: getenv("DEEPSEEK_API_URL"),
		OpenAIKey:      getenv("OPENAI_API_KEY"),
		GroqAPIKey:     getenv("GROQ_API_KEY"),

		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
		GoogleRedirectURI:  getenv("GOOGLE_REDIRECT_URI"),

		DefaultTimezone: getenv("DEFAULT_TIMEZONE"),
	}

	// Default values
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.WhatsAppProvider == "" {
		cfg.WhatsAppProvider = "evolution"
	}
	if cfg.WhatsAppStoreURL == "" {
		// Default to main database if not specified
		cfg.WhatsAppStoreURL = cfg.DatabaseURL
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "deepseek"
	}
	if cfg.DeepSeekAPIURL == "" {
		cfg.DeepSeekAPIURL = "https://api.deepseek.com/v1"
	}
	if cfg.DefaultTimezone == "" {
		cfg.DefaultTimezone = "America/Sao_Paulo"
	}
	if cfg.AppURL == "" {
		cfg.AppURL = "http://localhost:" + cfg.Port
	}

	return cfg
}

// Validate reports every required variable that is missing for the
// selected providers in one error.
func (c *Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}

	require("DATABASE_URL", c.DatabaseURL)

	switch c.WhatsAppProvider {
	case "evolution":
		require("EVOLUTION_API_URL", c.EvolutionAPIURL)
		require("EVOLUTION_API_TOKEN", c.EvolutionAPIToken)
	case "whatsmeow":
	default:
		return fmt.Errorf("unsupported WHATSAPP_PROVIDER %q (use evolution or whatsmeow)", c.WhatsAppProvider)
	}

	switch c.LLMProvider {
	case "deepseek":
		require("DEEPSEEK_API_KEY", c.DeepSeekAPIKey)
	case "openai":
		require("OPENAI_API_KEY", c.OpenAIKey)
	case "groq":
		require("GROQ_API_KEY", c.GroqAPIKey)
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q (use deepseek, openai or groq)", c.LLMProvider)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %s", strings.Join(missing, ", "))
	}
	return nil
}

// GoogleCalendarEnabled is true when the OAuth client is configured.
func (c *Config) GoogleCalendarEnabled() bool {
	return c.GoogleClientID != "" && c.GoogleClientSecret != "" && c.GoogleRedirectURI != ""
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
