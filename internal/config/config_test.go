package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Errorf("expected default env development, got %s", cfg.Env)
	}
	if cfg.DefaultConsultationCents != 5000 {
		t.Errorf("expected default consultation price 5000, got %d", cfg.DefaultConsultationCents)
	}
	if cfg.DefaultFollowUpCents != 3000 {
		t.Errorf("expected default follow-up price 3000, got %d", cfg.DefaultFollowUpCents)
	}
	if cfg.EmailProvider != "sendgrid" {
		t.Errorf("expected default email provider sendgrid, got %s", cfg.EmailProvider)
	}
	if cfg.ReminderWindow != 24*time.Hour {
		t.Errorf("expected default reminder window 24h, got %s", cfg.ReminderWindow)
	}
	if cfg.OAuthStateTTL != 10*time.Minute {
		t.Errorf("expected default oauth state ttl 10m, got %s", cfg.OAuthStateTTL)
	}
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("EMAIL_PROVIDER", "SES")
	t.Setenv("DEFAULT_CONSULTATION_CENTS", "7500")
	t.Setenv("REMINDER_WORKER_ENABLED", "false")
	t.Setenv("REMINDER_CHECK_INTERVAL", "5m")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://sofiahealth.com, https://admin.sofiahealth.com")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.EmailProvider != "ses" {
		t.Errorf("expected provider normalized to ses, got %s", cfg.EmailProvider)
	}
	if cfg.DefaultConsultationCents != 7500 {
		t.Errorf("expected consultation price 7500, got %d", cfg.DefaultConsultationCents)
	}
	if cfg.ReminderWorkerEnabled {
		t.Error("expected reminder worker disabled")
	}
	if cfg.ReminderCheckInterval != 5*time.Minute {
		t.Errorf("expected reminder interval 5m, got %s", cfg.ReminderCheckInterval)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://admin.sofiahealth.com" {
		t.Errorf("unexpected CORS origins: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("DEFAULT_CONSULTATION_CENTS", "fifty")
	t.Setenv("REMINDER_WINDOW", "tomorrow")

	cfg := Load()

	if cfg.DefaultConsultationCents != 5000 {
		t.Errorf("expected fallback 5000, got %d", cfg.DefaultConsultationCents)
	}
	if cfg.ReminderWindow != 24*time.Hour {
		t.Errorf("expected fallback 24h, got %s", cfg.ReminderWindow)
	}
}
