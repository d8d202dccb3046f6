package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.PollInterval != 10*time.Second {
		t.Errorf("Expected poll interval 10s, got %s", cfg.PollInterval)
	}
	if cfg.RevealInterval != 50*time.Millisecond {
		t.Errorf("Expected reveal interval 50ms, got %s", cfg.RevealInterval)
	}
	if cfg.RecordsPath != "/auth/prescriptions" {
		t.Errorf("Expected records path /auth/prescriptions, got %s", cfg.RecordsPath)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MEDBRAIN_API_URL", "https://records.example.com/api")
	t.Setenv("MEDBRAIN_POLL_INTERVAL", "30s")
	t.Setenv("MEDBRAIN_TOKEN", "abc")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APIURL != "https://records.example.com/api" {
		t.Errorf("Expected API URL from env, got %s", cfg.APIURL)
	}
	if cfg.PollInterval != 30*time.Second {
		t.Errorf("Expected 30s, got %s", cfg.PollInterval)
	}
	if cfg.Token != "abc" {
		t.Errorf("Expected token abc, got %s", cfg.Token)
	}
}

func TestLoad_FileAndFlags(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medbrain.env")
	content := "CHAT_URL=http://chat.local/api/content\nGEO_LAT=12.97\nGEO_LNG=77.59\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("api-url", "", "")
	if err := flags.Parse([]string{"--api-url", "http://flag.local/api"}); err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	cfg, err := Load(path, flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ChatURL != "http://chat.local/api/content" {
		t.Errorf("Expected chat URL from file, got %s", cfg.ChatURL)
	}
	if cfg.APIURL != "http://flag.local/api" {
		t.Errorf("Expected API URL from flag, got %s", cfg.APIURL)
	}
	lat, lng, ok, err := cfg.StaticLocation()
	if err != nil || !ok || lat != 12.97 || lng != 77.59 {
		t.Errorf("Expected static location 12.97,77.59, got %v,%v ok=%v err=%v", lat, lng, ok, err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/non/existent/medbrain.env", nil); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	base, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad api url", func(c *Config) { c.APIURL = "ftp://x" }, "API_URL"},
		{"zero poll", func(c *Config) { c.PollInterval = 0 }, "POLL_INTERVAL"},
		{"bad size", func(c *Config) { c.AttachmentMax = "lots" }, "ATTACHMENT_MAX_SIZE"},
		{"bad latitude", func(c *Config) { c.GeoLat, c.GeoLng = "95", "0" }, "GEO_LAT"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := *base
			tt.mutate(&c)
			err := c.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}
