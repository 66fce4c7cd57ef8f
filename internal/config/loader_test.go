package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// setupTestHome points HOME at a temp dir and returns the portal config dir inside it.
func setupTestHome(t *testing.T) string {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)

	configDir := filepath.Join(home, ".config", "portal")
	if err := os.MkdirAll(configDir, 0700); err != nil {
		t.Fatalf("Failed to create config dir: %v", err)
	}
	return configDir
}

func writeConfig(t *testing.T, dir, content string, perm os.FileMode) string {
	t.Helper()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), perm); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadWithFile_ValidYAML(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: 9090
  http_host: 127.0.0.1
auth:
  base_url: https://auth.example.com
  api_key: s3cr3t
  timeout: 5s
registration:
  require_address: true
drafts:
  idle_ttl: 10m
`, 0600)

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("Server.Host = %q, want 127.0.0.1", cfg.Server.Host)
	}
	if cfg.Auth.BaseURL != "https://auth.example.com" {
		t.Errorf("Auth.BaseURL = %q", cfg.Auth.BaseURL)
	}
	if cfg.Auth.APIKey.Value() != "s3cr3t" {
		t.Errorf("Auth.APIKey not loaded")
	}
	if cfg.Auth.Timeout != 5*time.Second {
		t.Errorf("Auth.Timeout = %v, want 5s", cfg.Auth.Timeout)
	}
	if !cfg.Registration.RequireAddress {
		t.Error("Registration.RequireAddress = false, want true")
	}
	if cfg.Drafts.IdleTTL != 10*time.Minute {
		t.Errorf("Drafts.IdleTTL = %v, want 10m", cfg.Drafts.IdleTTL)
	}
	// Untouched sections still get defaults.
	if cfg.Registration.NotificationTTL != 6*time.Second {
		t.Errorf("Registration.NotificationTTL = %v, want 6s", cfg.Registration.NotificationTTL)
	}
}

func TestLoadWithFile_EnvironmentOverride(t *testing.T) {
	dir := setupTestHome(t)

	path := writeConfig(t, dir, `server:
  http_port: 9090
auth:
  base_url: https://auth.example.com
`, 0600)

	t.Setenv("PORTAL_SERVER_HTTP_PORT", "7777")
	t.Setenv("PORTAL_AUTH_BASE_URL", "http://auth.internal:9000")
	t.Setenv("PORTAL_EVENTS_ENABLED", "true")
	t.Setenv("PORTAL_EVENTS_URL", "nats://127.0.0.1:4222")

	cfg, err := LoadWithFile(path)
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}

	if cfg.Server.Port != 7777 {
		t.Errorf("Server.Port = %d, want 7777 (from env override)", cfg.Server.Port)
	}
	if cfg.Auth.BaseURL != "http://auth.internal:9000" {
		t.Errorf("Auth.BaseURL = %q, want env override", cfg.Auth.BaseURL)
	}
	if !cfg.Events.Enabled || cfg.Events.URL != "nats://127.0.0.1:4222" {
		t.Errorf("Events = %+v, want enabled with env URL", cfg.Events)
	}
}

func TestLoadWithFile_MissingFileUsesDefaults(t *testing.T) {
	dir := setupTestHome(t)

	cfg, err := LoadWithFile(filepath.Join(dir, "absent.yaml"))
	if err != nil {
		t.Fatalf("LoadWithFile() error = %v, want nil", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want default 8080", cfg.Server.Port)
	}
	if cfg.Drafts.IdleTTL != 30*time.Minute {
		t.Errorf("Drafts.IdleTTL = %v, want 30m", cfg.Drafts.IdleTTL)
	}
}

func TestLoadWithFile_DefaultPath(t *testing.T) {
	setupTestHome(t)

	if _, err := LoadWithFile(""); err != nil {
		t.Fatalf("LoadWithFile(\"\") error = %v, want nil", err)
	}
}

func TestLoadWithFile_InvalidYAML(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server: [unterminated", 0600)

	if _, err := LoadWithFile(path); err == nil {
		t.Error("Expected error for invalid YAML, got nil")
	}
}

func TestLoadWithFile_Validation(t *testing.T) {
	dir := setupTestHome(t)
	path := writeConfig(t, dir, `auth:
  base_url: ftp://auth.example.com
`, 0600)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("Expected validation error, got nil")
	}
	if !strings.Contains(err.Error(), "base_url") {
		t.Errorf("Expected base_url validation error, got: %v", err)
	}
}

func TestLoadWithFile_PathTraversal(t *testing.T) {
	setupTestHome(t)

	_, err := LoadWithFile("../../../../etc/passwd")
	if err == nil {
		t.Fatal("Expected error for path traversal, got nil")
	}
	if !strings.Contains(err.Error(), "must be in ~/.config/portal/ or /etc/portal/") {
		t.Errorf("Expected path validation error, got: %v", err)
	}
}

func TestLoadWithFile_InsecurePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("Skipping permission test on Windows")
	}

	dir := setupTestHome(t)
	path := writeConfig(t, dir, "server:\n  http_port: 9090\n", 0644)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("Expected error for insecure permissions, got nil")
	}
	if !strings.Contains(err.Error(), "insecure") {
		t.Errorf("Expected 'insecure permissions' error, got: %v", err)
	}
}

func TestLoadWithFile_FileTooLarge(t *testing.T) {
	dir := setupTestHome(t)
	big := "# " + strings.Repeat("x", maxConfigFileSize) + "\n"
	path := writeConfig(t, dir, big, 0600)

	_, err := LoadWithFile(path)
	if err == nil {
		t.Fatal("Expected error for oversized file, got nil")
	}
	if !strings.Contains(err.Error(), "too large") {
		t.Errorf("Expected size error, got: %v", err)
	}
}

func TestValidateConfigPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	valid := []string{
		filepath.Join(home, ".config", "portal", "config.yaml"),
		filepath.Join(home, ".config", "portal", "prod", "config.yaml"),
		"/etc/portal/config.yaml",
	}
	for _, p := range valid {
		if err := validateConfigPath(p); err != nil {
			t.Errorf("validateConfigPath(%q) = %v, want nil", p, err)
		}
	}

	invalid := []string{
		"/etc/passwd",
		"/tmp/config.yaml",
		"/etc/portal-evil/config.yaml",
		filepath.Join(home, ".config", "portal", "..", "..", "config.yaml"),
	}
	for _, p := range invalid {
		if err := validateConfigPath(p); err == nil {
			t.Errorf("validateConfigPath(%q) = nil, want error", p)
		}
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"PORTAL_SERVER_HTTP_PORT":  "server.http_port",
		"PORTAL_AUTH_BASE_URL":     "auth.base_url",
		"PORTAL_DRAFTS_IDLE_TTL":   "drafts.idle_ttl",
		"PORTAL_LOGGING_LEVEL":     "logging.level",
		"PORTAL_RATELIMIT_ENABLED": "ratelimit.enabled",
		"PORTAL_VERBOSE":           "verbose",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}
