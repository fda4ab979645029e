package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr != "0.0.0.0:8080" {
		t.Errorf("ListenAddr = %q, want 0.0.0.0:8080", cfg.ListenAddr)
	}
	if cfg.RateLimitBurst != 60 {
		t.Errorf("RateLimitBurst = %d, want 60", cfg.RateLimitBurst)
	}
	if cfg.RateLimitRPS != 10 {
		t.Errorf("RateLimitRPS = %v, want 10", cfg.RateLimitRPS)
	}
	if cfg.MaxMessageSize != 65536 {
		t.Errorf("MaxMessageSize = %d, want 65536", cfg.MaxMessageSize)
	}
	if cfg.JWTExpiry() != 24*time.Hour {
		t.Errorf("JWTExpiry() = %v, want 24h", cfg.JWTExpiry())
	}
	if cfg.DatabaseMaxConn != 5 {
		t.Errorf("DatabaseMaxConn = %d, want 5", cfg.DatabaseMaxConn)
	}
	if cfg.JWTSecret == "" {
		t.Error("JWTSecret should fall back to a non-empty default")
	}
	if cfg.SMTPConfigured() {
		t.Error("SMTPConfigured() = true without SMTP_HOST")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", "127.0.0.1:9999")
	t.Setenv("RATE_LIMIT_BURST", "5")
	t.Setenv("RATE_LIMIT_RPS", "2.5")
	t.Setenv("JWT_EXPIRY_HOURS", "48")
	t.Setenv("SMTP_HOST", "mail.example.com")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ListenAddr != "127.0.0.1:9999" {
		t.Errorf("ListenAddr = %q, want override", cfg.ListenAddr)
	}
	if cfg.RateLimitBurst != 5 {
		t.Errorf("RateLimitBurst = %d, want 5", cfg.RateLimitBurst)
	}
	if cfg.RateLimitRPS != 2.5 {
		t.Errorf("RateLimitRPS = %v, want 2.5", cfg.RateLimitRPS)
	}
	if cfg.JWTExpiry() != 48*time.Hour {
		t.Errorf("JWTExpiry() = %v, want 48h", cfg.JWTExpiry())
	}
	if !cfg.SMTPConfigured() {
		t.Error("SMTPConfigured() = false with SMTP_HOST set")
	}
}

func TestLoadInvalidValues(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "a-lot")
	if _, err := Load(); err == nil {
		t.Error("Load() with unparseable RATE_LIMIT_BURST succeeded, want error")
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")
	if _, err := Load(); err == nil {
		t.Error("Load() with RATE_LIMIT_RPS=0 succeeded, want error")
	}
}
