package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Version != CurrentVersion {
		t.Errorf("version = %d, want %d", cfg.Version, CurrentVersion)
	}
	if !cfg.Storage.CompressRawPayloads {
		t.Error("raw payload compression should default on")
	}
	if cfg.Snapshot.Expression != "daily at 02:00" {
		t.Errorf("snapshot expression = %q", cfg.Snapshot.Expression)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Version != CurrentVersion {
		t.Errorf("expected defaults, got %+v", cfg)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".ikb"), 0755); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Snapshot.Expression = "daily at 04:30"
	cfg.Storage.HistoryLimit = 7
	if err := cfg.Save(root); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadConfig(root)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Snapshot.Expression != "daily at 04:30" {
		t.Errorf("expression = %q", loaded.Snapshot.Expression)
	}
	if loaded.Storage.HistoryLimit != 7 {
		t.Errorf("historyLimit = %d", loaded.Storage.HistoryLimit)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"bad version", func(c *Config) { c.Version = 99 }, true},
		{"negative history limit", func(c *Config) { c.Storage.HistoryLimit = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
