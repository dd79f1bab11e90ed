package config

import "testing"

func TestLoadRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadTool(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadRequiresJWTSecretsForServices(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadbridge")
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without JWT secrets")
	}
	if _, err := LoadTool(); err != nil {
		t.Fatalf("tool config should not need JWT secrets: %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadbridge")
	t.Setenv("JWT_ACCESS_SECRET", "a")
	t.Setenv("JWT_REFRESH_SECRET", "b")
	t.Setenv("CORS_ORIGINS", "https://app.example.cz, https://admin.example.cz")
	t.Setenv("REDIS_URL", "")
	t.Setenv("KAFKA_BROKERS", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 origins, got %v", cfg.GetCORSOrigins())
	}
	if cfg.IsSchedulerEnabled() {
		t.Fatalf("scheduler should be disabled without REDIS_URL")
	}
	if cfg.IsEventExportEnabled() {
		t.Fatalf("event export should be disabled without brokers")
	}
	if cfg.GetImportDefaultCommissionTotal() != 7000 {
		t.Fatalf("expected default commission total 7000, got %d", cfg.GetImportDefaultCommissionTotal())
	}
}

func TestEmailProviderValidation(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/leadbridge")
	t.Setenv("EMAIL_ENABLED", "true")
	t.Setenv("EMAIL_PROVIDER", "smtp")
	t.Setenv("SMTP_HOST", "")

	if _, err := LoadTool(); err == nil {
		t.Fatalf("expected error when smtp host missing")
	}

	t.Setenv("SMTP_HOST", "smtp.example.cz")
	t.Setenv("EMAIL_FROM_ADDRESS", "crm@example.cz")
	if _, err := LoadTool(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
