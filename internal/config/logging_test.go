package config

import "testing"

func TestLoadLogDefaults(t *testing.T) {
	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "info" {
		t.Fatalf("Level = %q, want info", cfg.Level)
	}
	if cfg.File != "" || cfg.Pretty {
		t.Fatalf("expected console-only defaults, got %+v", cfg)
	}
	if cfg.MaxMB != 10 {
		t.Fatalf("MaxMB = %d, want 10", cfg.MaxMB)
	}
}

func TestLoadLogOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "/tmp/pit.log")
	t.Setenv("LOG_PRETTY", "true")
	t.Setenv("LOG_MAX_MB", "25")

	cfg, err := LoadLog()
	if err != nil {
		t.Fatalf("LoadLog() error = %v", err)
	}
	if cfg.Level != "debug" || cfg.File != "/tmp/pit.log" {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
	if !cfg.Pretty || cfg.MaxMB != 25 {
		t.Fatalf("unexpected log config: %+v", cfg)
	}
}
