package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.API.BaseURL != "https://admin.infokelas.com/api" {
		t.Errorf("default base url = %q", cfg.API.BaseURL)
	}
	if cfg.Cache.Retry != 1 {
		t.Errorf("default retry = %d, want 1", cfg.Cache.Retry)
	}
	if !cfg.Cache.RefetchOnAccess {
		t.Error("default refetch_on_access = false, want true")
	}
	if cfg.Cache.StaleTime != time.Minute || cfg.Cache.AnnouncementsStaleTime != 5*time.Minute {
		t.Errorf("default stale times = %v / %v", cfg.Cache.StaleTime, cfg.Cache.AnnouncementsStaleTime)
	}
	if cfg.Storage.Dir == "" {
		t.Error("default storage dir is empty")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoad_ValidFile(t *testing.T) {
	cfgPath := writeFile(t, t.TempDir(), "kelas.yaml", `
api:
  base_url: http://localhost:8080/api
  timeout: 5s
cache:
  retry: 3
  retry_delay: 250ms
  refetch_on_access: false
  profile_stale_time: 10m
storage:
  dir: /tmp/kelas
log:
  level: debug
  file: /tmp/kelas/kelas.log
`)

	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.BaseURL != "http://localhost:8080/api" || cfg.API.Timeout != 5*time.Second {
		t.Errorf("api = %+v", cfg.API)
	}
	if cfg.Cache.Retry != 3 || cfg.Cache.RetryDelay != 250*time.Millisecond || cfg.Cache.RefetchOnAccess {
		t.Errorf("cache = %+v", cfg.Cache)
	}
	if cfg.Cache.ProfileStaleTime != 10*time.Minute {
		t.Errorf("profile stale time = %v, want 10m", cfg.Cache.ProfileStaleTime)
	}
	// Unset fields keep defaults.
	if cfg.Cache.StaleTime != time.Minute {
		t.Errorf("stale time = %v, want default 1m", cfg.Cache.StaleTime)
	}
	if cfg.Storage.Dir != "/tmp/kelas" || cfg.Log.Level != "debug" || cfg.Log.File != "/tmp/kelas/kelas.log" {
		t.Errorf("storage/log = %+v / %+v", cfg.Storage, cfg.Log)
	}
}

func TestLoad_DefaultsWithoutContent(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		path string
	}{
		{name: "missing file", path: "/nonexistent/kelas.yaml"},
		{name: "empty file", path: writeFile(t, dir, "empty.yaml", "")},
		{name: "comment only", path: writeFile(t, dir, "comment.yaml", "# just a comment\n")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(tt.path)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if want := DefaultConfig(); *cfg != want {
				t.Errorf("Load() = %+v, want defaults %+v", *cfg, want)
			}
		})
	}
}

func TestLoad_Rejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{name: "invalid yaml", content: "{{invalid yaml"},
		{name: "unknown field", content: "api:\n  base_uri: http://x\n"},
		{name: "bad duration", content: "api:\n  timeout: soon\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := writeFile(t, dir, tt.name+".yaml", tt.content)
			if _, err := Load(p); err == nil {
				t.Fatal("Load() error = nil, want error")
			}
		})
	}
}

func TestLoad_LayeredPriority(t *testing.T) {
	// Given a user layer and a project layer that overlap
	userCfg := writeFile(t, t.TempDir(), "config.yaml", `
api:
  base_url: http://user.example/api
  timeout: 20s
`)
	projectCfg := writeFile(t, t.TempDir(), "kelas.yaml", `
api:
  timeout: 3s
`)

	// When both are loaded
	cfg, err := LoadLayered(userCfg, projectCfg)
	if err != nil {
		t.Fatalf("LoadLayered() error = %v", err)
	}

	// Then the project layer wins only for what it sets
	if cfg.API.BaseURL != "http://user.example/api" {
		t.Errorf("base url = %q, want user layer", cfg.API.BaseURL)
	}
	if cfg.API.Timeout != 3*time.Second {
		t.Errorf("timeout = %v, want 3s", cfg.API.Timeout)
	}
	if cfg.Cache.Retry != 1 {
		t.Errorf("retry = %d, want default", cfg.Cache.Retry)
	}
}

func TestApplyEnv(t *testing.T) {
	tests := []struct {
		name    string
		envs    map[string]string
		wantErr bool
		check   func(*testing.T, Config)
	}{
		{
			name: "KELAS_API_BASE_URL overrides base url",
			envs: map[string]string{"KELAS_API_BASE_URL": "http://127.0.0.1:8080/api"},
			check: func(t *testing.T, c Config) {
				if c.API.BaseURL != "http://127.0.0.1:8080/api" {
					t.Errorf("base url = %q", c.API.BaseURL)
				}
			},
		},
		{
			name: "KELAS_API_TIMEOUT overrides timeout",
			envs: map[string]string{"KELAS_API_TIMEOUT": "30s"},
			check: func(t *testing.T, c Config) {
				if c.API.Timeout != 30*time.Second {
					t.Errorf("timeout = %v, want 30s", c.API.Timeout)
				}
			},
		},
		{
			name: "storage and log overrides",
			envs: map[string]string{"KELAS_STORAGE_DIR": "/custom", "KELAS_LOG_LEVEL": "info", "KELAS_LOG_FILE": "/custom/log"},
			check: func(t *testing.T, c Config) {
				if c.Storage.Dir != "/custom" || c.Log.Level != "info" || c.Log.File != "/custom/log" {
					t.Errorf("storage/log = %+v / %+v", c.Storage, c.Log)
				}
			},
		},
		{
			name: "KELAS_CACHE_RETRY overrides retry",
			envs: map[string]string{"KELAS_CACHE_RETRY": "0"},
			check: func(t *testing.T, c Config) {
				if c.Cache.Retry != 0 {
					t.Errorf("retry = %d, want 0", c.Cache.Retry)
				}
			},
		},
		{
			name:    "invalid KELAS_API_TIMEOUT returns error",
			envs:    map[string]string{"KELAS_API_TIMEOUT": "notaduration"},
			wantErr: true,
		},
		{
			name:    "invalid KELAS_CACHE_RETRY returns error",
			envs:    map[string]string{"KELAS_CACHE_RETRY": "once"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.envs {
				t.Setenv(k, v)
			}
			cfg := DefaultConfig()
			err := cfg.ApplyEnv()

			if tt.wantErr {
				if err == nil {
					t.Fatal("ApplyEnv() should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ApplyEnv() error = %v", err)
			}
			tt.check(t, cfg)
		})
	}
}

func TestLoadDotenv(t *testing.T) {
	// Given a .env file and one variable already set
	dir := t.TempDir()
	envPath := writeFile(t, dir, ".env", "KELAS_LOG_LEVEL=debug\nKELAS_STORAGE_DIR=/from/dotenv\n")
	t.Setenv("KELAS_STORAGE_DIR", "/from/shell")
	t.Setenv("KELAS_LOG_LEVEL", "")
	os.Unsetenv("KELAS_LOG_LEVEL")

	// When it is loaded alongside a missing file
	if err := LoadDotenv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotenv() error = %v", err)
	}

	// Then unset variables are filled and set ones win
	if got := os.Getenv("KELAS_LOG_LEVEL"); got != "debug" {
		t.Errorf("KELAS_LOG_LEVEL = %q, want debug", got)
	}
	if got := os.Getenv("KELAS_STORAGE_DIR"); got != "/from/shell" {
		t.Errorf("KELAS_STORAGE_DIR = %q, want /from/shell", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{name: "defaults are valid", modify: func(*Config) {}},
		{name: "relative base url", modify: func(c *Config) { c.API.BaseURL = "/api" }, wantErr: true},
		{name: "non-http base url", modify: func(c *Config) { c.API.BaseURL = "ftp://x/api" }, wantErr: true},
		{name: "zero timeout", modify: func(c *Config) { c.API.Timeout = 0 }, wantErr: true},
		{name: "negative retry", modify: func(c *Config) { c.Cache.Retry = -1 }, wantErr: true},
		{name: "negative retry delay", modify: func(c *Config) { c.Cache.RetryDelay = -time.Second }, wantErr: true},
		{name: "negative stale time", modify: func(c *Config) { c.Cache.ProfileStaleTime = -1 }, wantErr: true},
		{name: "zero stale time", modify: func(c *Config) { c.Cache.StaleTime = 0 }},
		{name: "empty storage dir", modify: func(c *Config) { c.Storage.Dir = "" }, wantErr: true},
		{name: "unknown log level", modify: func(c *Config) { c.Log.Level = "loud" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
