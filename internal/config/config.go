package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment         string
	EncryptionKeyBase64 string
	IMAPHost            string
	IMAPPort            string
	SMTPHost            string
	SMTPPort            string
	DBHost              string
	DBPort              string
	DBUsername          string
	DBPassword          string
	DBName              string
	DBSSLMode           string
	Port                string
	Timezone            string
}

func NewConfig() (*Config, error) {
	env := os.Getenv("CRM_ENV")
	if env == "" {
		env = "development"
	}

	if env == "development" {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	config := &Config{
		Environment:         env,
		EncryptionKeyBase64: os.Getenv("CRM_ENCRYPTION_KEY_BASE64"),
		IMAPHost:            getEnvOrDefault("CRM_IMAP_HOST", "imap.gmail.com"),
		IMAPPort:            getEnvOrDefault("CRM_IMAP_PORT", "993"),
		SMTPHost:            getEnvOrDefault("CRM_SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:            getEnvOrDefault("CRM_SMTP_PORT", "587"),
		DBHost:              getEnvOrDefault("CRM_DB_HOST", "localhost"),
		DBPort:              getEnvOrDefault("CRM_DB_PORT", "5432"),
		DBUsername:          getEnvOrDefault("CRM_DB_USER", "consolegal"),
		DBPassword:          os.Getenv("CRM_DB_PASSWORD"),
		DBName:              getEnvOrDefault("CRM_DB_NAME", "consolegal"),
		DBSSLMode:           getEnvOrDefault("CRM_DB_SSLMODE", "disable"),
		Port:                getEnvOrDefault("PORT", "8080"),
		Timezone:            getEnvOrDefault("TZ", "UTC"),
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.EncryptionKeyBase64 == "" {
		return fmt.Errorf("CRM_ENCRYPTION_KEY_BASE64 is required")
	}

	if c.DBPassword == "" {
		return fmt.Errorf("CRM_DB_PASSWORD is required")
	}

	return nil
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUsername,
		c.DBPassword,
		c.DBHost,
		c.DBPort,
		c.DBName,
		c.DBSSLMode,
	)
}

// IMAPAddress returns the host:port of the IMAP server the assigned mailboxes live on.
func (c *Config) IMAPAddress() string {
	return c.IMAPHost + ":" + c.IMAPPort
}

// SMTPAddress returns the host:port of the SMTP submission server.
func (c *Config) SMTPAddress() string {
	return c.SMTPHost + ":" + c.SMTPPort
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
