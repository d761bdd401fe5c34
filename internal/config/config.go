// Package config reads runtime settings from the environment.
package config

import (
	"os"
	"strings"
	"time"
)

type Config struct {
	Port           string
	DatabaseURL    string
	BaseURL        string
	NotifyInterval time.Duration
	Email          EmailConfig
}

type EmailConfig struct {
	FromEmail    string
	ResendAPIKey string
	SMTPEnabled  bool
	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func Load() Config {
	interval, err := time.ParseDuration(getEnv("NOTIFY_INTERVAL", "30s"))
	if err != nil || interval <= 0 {
		interval = 30 * time.Second
	}
	return Config{
		Port:           getEnv("PORT", "8080"),
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/projecthub?sslmode=disable"),
		BaseURL:        strings.TrimSuffix(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		NotifyInterval: interval,
		Email: EmailConfig{
			FromEmail:    getEnv("FROM_EMAIL", "Projecthub <projecthub@resend.dev>"),
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPEnabled:  strings.EqualFold(getEnv("SMTP_ENABLED", "false"), "true"),
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPass:     getEnv("SMTP_PASS", ""),
		},
	}
}
