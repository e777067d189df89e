// ABOUTME: Tests for chirp configuration loading and path expansion.
// ABOUTME: Covers YAML parsing, defaults, XDG paths, path expansion, and remote detection.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/adrg/xdg"
)

// withXDG points both XDG roots at temp dirs for the duration of a test.
func withXDG(t *testing.T) (configHome, dataHome string) {
	t.Helper()
	configHome = t.TempDir()
	dataHome = t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)
	t.Setenv("XDG_DATA_HOME", dataHome)
	xdg.Reload()
	t.Cleanup(xdg.Reload)
	return configHome, dataHome
}

func TestExpandPath(t *testing.T) {
	home, _ := os.UserHomeDir()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"tilde only", "~", home},
		{"tilde slash", "~/foo/bar", filepath.Join(home, "foo", "bar")},
		{"absolute", "/tmp/foo", "/tmp/foo"},
		{"relative", "foo/bar", "foo/bar"},
		{"tilde user", "~bob/x", "~bob/x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandPath(tt.input)
			if err != nil {
				t.Fatalf("ExpandPath(%q) error: %v", tt.input, err)
			}
			if got != tt.expected {
				t.Errorf("ExpandPath(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestLoadDefaultConfig(t *testing.T) {
	withXDG(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.HasRemote() {
		t.Error("expected HasRemote() to be false for default config")
	}
	if cfg.TimelineLimit() != 10 {
		t.Errorf("TimelineLimit() = %d, want 10", cfg.TimelineLimit())
	}
	if cfg.ServeAddr() != DefaultServeAddr {
		t.Errorf("ServeAddr() = %q, want %q", cfg.ServeAddr(), DefaultServeAddr)
	}
}

func TestLoadYAMLConfig(t *testing.T) {
	configHome, _ := withXDG(t)

	configDir := filepath.Join(configHome, "chirp")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatalf("failed to create config dir: %v", err)
	}

	configData := `remote:
  api_url: "https://chirp.example.com"
  api_key: "test-key"
data:
  path: "~/chirp-data"
timeline:
  limit: 25
log:
  json: true
  level: debug
serve:
  addr: ":9000"
`
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(configData), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Remote.APIKey != "test-key" {
		t.Errorf("expected api_key 'test-key', got %q", cfg.Remote.APIKey)
	}
	if !cfg.HasRemote() {
		t.Error("expected HasRemote() to be true")
	}
	if cfg.TimelineLimit() != 25 {
		t.Errorf("TimelineLimit() = %d, want 25", cfg.TimelineLimit())
	}
	if !cfg.Log.JSON || cfg.Log.Level != "debug" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
	if cfg.ServeAddr() != ":9000" {
		t.Errorf("ServeAddr() = %q", cfg.ServeAddr())
	}

	home, _ := os.UserHomeDir()
	got, err := cfg.GetDBPath()
	if err != nil {
		t.Fatalf("GetDBPath() error: %v", err)
	}
	if want := filepath.Join(home, "chirp-data", "chirp.db"); got != want {
		t.Errorf("GetDBPath() = %q, want %q", got, want)
	}
}

func TestLoadBadYAML(t *testing.T) {
	configHome, _ := withXDG(t)
	configDir := filepath.Join(configHome, "chirp")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("remote: [oops"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(); err == nil {
		t.Error("expected parse error")
	}
}

func TestSaveAndLoad(t *testing.T) {
	withXDG(t)

	cfg := &Config{
		Remote:   RemoteConfig{APIURL: "https://saved.example.com", APIKey: "saved-key"},
		Timeline: TimelineConfig{Limit: 5},
	}
	if err := cfg.Save(); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	loaded, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if loaded.Remote.APIKey != "saved-key" {
		t.Errorf("expected api_key 'saved-key', got %q", loaded.Remote.APIKey)
	}
	if loaded.TimelineLimit() != 5 {
		t.Errorf("TimelineLimit() = %d, want 5", loaded.TimelineLimit())
	}
}

func TestDefaultDataDir(t *testing.T) {
	_, dataHome := withXDG(t)

	cfg := &Config{}
	dir, err := cfg.GetDataDir()
	if err != nil {
		t.Fatalf("GetDataDir() error: %v", err)
	}
	if want := filepath.Join(dataHome, "chirp"); dir != want {
		t.Errorf("GetDataDir() = %q, want %q", dir, want)
	}
}
