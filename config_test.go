package zenforce

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want %q", cfg.BaseURL, DefaultBaseURL)
	}
	if cfg.AskTimeout != DefaultAskTimeout {
		t.Errorf("AskTimeout = %v, want %v", cfg.AskTimeout, DefaultAskTimeout)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenforce.yaml")
	content := "base_url: http://backend.internal:8000\nask_timeout: 40s\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.BaseURL != "http://backend.internal:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.AskTimeout != 40*time.Second {
		t.Errorf("AskTimeout = %v, want 40s", cfg.AskTimeout)
	}
}

func TestLoadConfigFromFile_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenforce.yaml")
	if err := os.WriteFile(path, []byte("base_url: http://backend.internal:8000\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFromFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.AskTimeout != DefaultAskTimeout {
		t.Errorf("AskTimeout = %v, want default %v", cfg.AskTimeout, DefaultAskTimeout)
	}
}

func TestLoadConfigFromFile_EnvOverrides(t *testing.T) {
	t.Setenv("ZENFORCE_BASE_URL", "http://override.test:8000")
	t.Setenv("ZENFORCE_ASK_TIMEOUT", "90s")

	cfg, err := LoadConfigFromFile("")
	if err != nil {
		t.Fatalf("LoadConfigFromFile() error = %v", err)
	}
	if cfg.BaseURL != "http://override.test:8000" {
		t.Errorf("BaseURL = %q", cfg.BaseURL)
	}
	if cfg.AskTimeout != 90*time.Second {
		t.Errorf("AskTimeout = %v, want 90s", cfg.AskTimeout)
	}
}

func TestLoadConfigFromFile_BadDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zenforce.yaml")
	if err := os.WriteFile(path, []byte("ask_timeout: soon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfigFromFile(path); err == nil {
		t.Error("LoadConfigFromFile() = nil error, want duration parse failure")
	}
}
