package tuning

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	doc := "trading:\n  fence_window_seconds: 600\n  fence_size: 10\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	tn, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if tn.Trading.FenceWindowSeconds != 600 || tn.Trading.FenceSize != 10 {
		t.Fatalf("fence = %+v", tn.Trading)
	}
	// Unset keys keep their defaults.
	if tn.Trading.ChildMarkdownPermille != 850 {
		t.Fatalf("markdown = %d, want 850", tn.Trading.ChildMarkdownPermille)
	}
	if tn.Data.Dir != "data" {
		t.Fatalf("data dir = %q", tn.Data.Dir)
	}

	cfg := tn.TradingConfig()
	if cfg.FenceWindow != 10*time.Minute {
		t.Fatalf("window = %v", cfg.FenceWindow)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadRejectsBadYaml(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.yaml")
	if err := os.WriteFile(path, []byte("trading: ["), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
