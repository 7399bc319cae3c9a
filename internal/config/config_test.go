package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("NATS_SUBJECT", "")
	t.Setenv("MAX_UPLOAD_BYTES", "")
	t.Setenv("MAX_PAGES", "")
	t.Setenv("INFERENCE_CONCURRENCY", "")

	cfg := LoadWithFile("")
	if cfg.APIPort != "8080" {
		t.Fatalf("expected default api port 8080, got %q", cfg.APIPort)
	}
	if cfg.NATSSubject != "notifications.events" {
		t.Fatalf("expected default subject, got %q", cfg.NATSSubject)
	}
	if cfg.MaxUploadBytes != 50<<20 {
		t.Fatalf("expected default upload cap, got %d", cfg.MaxUploadBytes)
	}
	if cfg.MaxPages != 100 {
		t.Fatalf("expected default max pages 100, got %d", cfg.MaxPages)
	}
	if cfg.InferenceConcurrency != 3 {
		t.Fatalf("expected default inference concurrency 3, got %d", cfg.InferenceConcurrency)
	}
}

func TestLoadFileOverlay(t *testing.T) {
	t.Setenv("API_PORT", "")
	t.Setenv("MAX_PAGES", "")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "api_port: \"9000\"\nmax_pages: 25\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg := LoadWithFile(path)
	if cfg.APIPort != "9000" {
		t.Fatalf("expected file api port 9000, got %q", cfg.APIPort)
	}
	if cfg.MaxPages != 25 {
		t.Fatalf("expected file max pages 25, got %d", cfg.MaxPages)
	}
}

func TestEnvWinsOverFile(t *testing.T) {
	t.Setenv("API_PORT", "7000")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9000\"\n"), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	cfg := LoadWithFile(path)
	if cfg.APIPort != "7000" {
		t.Fatalf("expected env to win, got %q", cfg.APIPort)
	}
}

func TestLoadIgnoresUnparsableOverrides(t *testing.T) {
	t.Setenv("MAX_PAGES", "not-a-number")

	cfg := LoadWithFile("")
	if cfg.MaxPages != 100 {
		t.Fatalf("expected fallback max pages 100, got %d", cfg.MaxPages)
	}
}
