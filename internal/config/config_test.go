package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("NOTIFY_INTERVAL", "")
	t.Setenv("SMTP_ENABLED", "")
	cfg := Load()
	if cfg.Port != "8080" || cfg.NotifyInterval != 30*time.Second || cfg.Email.SMTPEnabled {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("BASE_URL", "https://pm.example.com/")
	t.Setenv("NOTIFY_INTERVAL", "5s")
	t.Setenv("SMTP_ENABLED", "TRUE")
	cfg := Load()
	if cfg.Port != "9000" || cfg.BaseURL != "https://pm.example.com" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if cfg.NotifyInterval != 5*time.Second || !cfg.Email.SMTPEnabled {
		t.Errorf("unexpected config: %+v", cfg)
	}

	t.Setenv("NOTIFY_INTERVAL", "soon")
	if got := Load().NotifyInterval; got != 30*time.Second {
		t.Errorf("invalid interval should fall back, got %s", got)
	}
}
