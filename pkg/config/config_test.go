package config

import (
	"testing"
	"time"
)

func TestGetIntFallsBackOnInvalidValue(t *testing.T) {
	t.Setenv("REPORTDESK_TEST_INT", "not-a-number")
	if got := GetInt("REPORTDESK_TEST_INT", 7); got != 7 {
		t.Fatalf("expected fallback 7, got %d", got)
	}
}

func TestGetBoolParsesValue(t *testing.T) {
	t.Setenv("REPORTDESK_TEST_BOOL", " true ")
	if !GetBool("REPORTDESK_TEST_BOOL", false) {
		t.Fatalf("expected true")
	}
}

func TestLoadAPIConfigReadsSessionSettings(t *testing.T) {
	t.Setenv("SESSION_TTL_HOURS", "2")
	t.Setenv("SESSION_DRIVER", "memory")
	t.Setenv("SESSION_ALLOW_ORPHANED", "1")

	cfg := LoadAPIConfig()
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected session ttl: %s", cfg.SessionTTL)
	}
	if cfg.SessionDriver != DriverMemory {
		t.Fatalf("unexpected session driver: %q", cfg.SessionDriver)
	}
	if !cfg.SessionAllowOrphaned {
		t.Fatalf("expected orphaned sessions allowed")
	}
	if cfg.SessionCookieName != "session" {
		t.Fatalf("unexpected cookie name: %q", cfg.SessionCookieName)
	}
}
