package util

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFile(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	dataDir := filepath.Join(home, "state")
	cfgFile := filepath.Join(home, "nocview.yaml")
	content := "api_url: http://backend:9000\n" +
		"data_dir: " + dataDir + "\n" +
		"role: sre\n" +
		"page_size: 0\n" +
		"history_retention: 48h\n" +
		"my_devices: [edge-1]\n"
	if err := os.WriteFile(cfgFile, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(cfgFile)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://backend:9000" || cfg.Role != "sre" {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if cfg.PageSize != 10 {
		t.Errorf("page_size 0 should fall back to 10, got %d", cfg.PageSize)
	}
	if cfg.HistoryRetention != 48*time.Hour {
		t.Errorf("history_retention = %s", cfg.HistoryRetention)
	}
	if len(cfg.MyDevices) != 1 || cfg.MyDevices[0] != "edge-1" {
		t.Errorf("my_devices = %v", cfg.MyDevices)
	}
	if info, err := os.Stat(dataDir); err != nil || !info.IsDir() {
		t.Errorf("data dir not created: %v", err)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NOCVIEW_API_URL", "http://from-env:1")

	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.APIURL != "http://from-env:1" {
		t.Fatalf("api_url = %q", cfg.APIURL)
	}
	if cfg.Role != "noc" || cfg.Period != "24h" {
		t.Fatalf("defaults lost: role=%q period=%q", cfg.Role, cfg.Period)
	}
}

func TestValidateRequiresAPIURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.APIURL = " "
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for empty api_url")
	}
}
