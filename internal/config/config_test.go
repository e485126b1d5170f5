package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	if cfg.FirstTokenTimeoutSec != 30 {
		t.Fatalf("FirstTokenTimeoutSec = %d, want 30", cfg.FirstTokenTimeoutSec)
	}
	if cfg.StreamTimeoutSec != 240 {
		t.Fatalf("StreamTimeoutSec = %d, want 240", cfg.StreamTimeoutSec)
	}
	if cfg.SectionRecentWindowSec != 5 {
		t.Fatalf("SectionRecentWindowSec = %d, want 5", cfg.SectionRecentWindowSec)
	}
	if cfg.SectionStaleWindowSec != 60 {
		t.Fatalf("SectionStaleWindowSec = %d, want 60", cfg.SectionStaleWindowSec)
	}
	if cfg.BriefPollStableTicks != 3 {
		t.Fatalf("BriefPollStableTicks = %d, want 3", cfg.BriefPollStableTicks)
	}
	if cfg.PanelListenAddr == "" {
		t.Fatal("PanelListenAddr should have a default")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FIRST_TOKEN_TIMEOUT_SEC", "5")
	t.Setenv("STREAM_TIMEOUT_SEC", "60")
	cfg := Load()
	if cfg.FirstTokenTimeout() != 5*time.Second {
		t.Fatalf("FirstTokenTimeout = %v, want 5s", cfg.FirstTokenTimeout())
	}
	if cfg.StreamTimeout() != 60*time.Second {
		t.Fatalf("StreamTimeout = %v, want 60s", cfg.StreamTimeout())
	}
}

func TestStreamTimeout_AlwaysAboveFirstToken(t *testing.T) {
	t.Setenv("FIRST_TOKEN_TIMEOUT_SEC", "120")
	t.Setenv("STREAM_TIMEOUT_SEC", "30")
	cfg := Load()
	if cfg.StreamTimeout() <= cfg.FirstTokenTimeout() {
		t.Fatalf("StreamTimeout %v should exceed FirstTokenTimeout %v",
			cfg.StreamTimeout(), cfg.FirstTokenTimeout())
	}
}
