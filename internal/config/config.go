package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment    string
	TokenKeyBase64 string
	IMAPHost       string
	IMAPPort       string
	IMAPUseTLS     bool
	IMAPTimeout    time.Duration
	SMTPHost       string
	SMTPPort       string
	SMTPUseTLS     bool
	SentFolder     string
	DraftsFolder   string
	PageSize       int
	Port           string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("MAILBRIDGE_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:    env,
		TokenKeyBase64: os.Getenv("MAILBRIDGE_TOKEN_KEY_BASE64"),
		IMAPHost:       os.Getenv("MAILBRIDGE_IMAP_HOST"),
		IMAPPort:       getEnvOrDefault("MAILBRIDGE_IMAP_PORT", "993"),
		IMAPUseTLS:     getEnvBoolOrDefault("MAILBRIDGE_IMAP_TLS", true),
		IMAPTimeout:    getEnvDurationOrDefault("MAILBRIDGE_IMAP_TIMEOUT", 30*time.Second),
		SMTPHost:       os.Getenv("MAILBRIDGE_SMTP_HOST"),
		SMTPPort:       getEnvOrDefault("MAILBRIDGE_SMTP_PORT", "465"),
		SMTPUseTLS:     getEnvBoolOrDefault("MAILBRIDGE_SMTP_TLS", true),
		SentFolder:     getEnvOrDefault("MAILBRIDGE_SENT_FOLDER", "Sent"),
		DraftsFolder:   getEnvOrDefault("MAILBRIDGE_DRAFTS_FOLDER", "Drafts"),
		PageSize:       getEnvIntOrDefault("MAILBRIDGE_PAGE_SIZE", 10),
		Port:           getEnvOrDefault("PORT", "8080"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.TokenKeyBase64 == "" {
		return fmt.Errorf("MAILBRIDGE_TOKEN_KEY_BASE64 is required")
	}

	if c.IMAPHost == "" {
		return fmt.Errorf("MAILBRIDGE_IMAP_HOST is required")
	}

	if c.SMTPHost == "" {
		return fmt.Errorf("MAILBRIDGE_SMTP_HOST is required")
	}

	if c.PageSize <= 0 {
		return fmt.Errorf("MAILBRIDGE_PAGE_SIZE must be positive")
	}

	return nil
}

// IMAPAddress returns the host:port address of the IMAP server.
func (c *Config) IMAPAddress() string {
	return c.IMAPHost + ":" + c.IMAPPort
}

// SMTPAddress returns the host:port address of the SMTP server.
func (c *Config) SMTPAddress() string {
	return c.SMTPHost + ":" + c.SMTPPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
