package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
site:
  root: https://legacy.example.com/
crawler:
  delay_ms: 250
  user_agent: harvester-agent
  timeout_seconds: 45
db:
  dsn: postgres://harvester@localhost/harvester
  max_conns: 8
archive:
  enabled: true
  backend: gcs
  gcs_bucket: snapshots
  prefix: raw
  content_type: text/plain
pubsub:
  project_id: demo-project
  topic_name: enhanced
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Site.Root != "https://legacy.example.com/" {
		t.Fatalf("expected site root override, got %q", cfg.Site.Root)
	}
	if cfg.Crawler.DelayMs != 250 || cfg.Crawler.UserAgent != "harvester-agent" {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.DB.MaxConns != 8 {
		t.Fatalf("expected db.max_conns 8, got %d", cfg.DB.MaxConns)
	}
	if !cfg.Archive.Enabled || cfg.Archive.Backend != "gcs" || cfg.Archive.GCSBucket != "snapshots" {
		t.Fatalf("expected archive overrides to apply: %+v", cfg.Archive)
	}
	if cfg.PubSub.ProjectID != "demo-project" || cfg.PubSub.TopicName != "enhanced" {
		t.Fatalf("expected pubsub overrides to apply: %+v", cfg.PubSub)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected logging.development false")
	}
	if got := cfg.Delay(); got != 250*time.Millisecond {
		t.Fatalf("expected delay 250ms, got %v", got)
	}
	if got := cfg.FetchTimeout(); got != 45*time.Second {
		t.Fatalf("expected fetch timeout 45s, got %v", got)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
site:
  root: https://legacy.example.com/
db:
  dsn: postgres://harvester@localhost/harvester
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.DelayMs != 1000 {
		t.Fatalf("expected default delay 1000ms, got %d", cfg.Crawler.DelayMs)
	}
	if cfg.Archive.Enabled {
		t.Fatalf("expected archive disabled by default")
	}
	if cfg.Archive.Prefix != "pages" {
		t.Fatalf("expected default archive prefix, got %q", cfg.Archive.Prefix)
	}
	if cfg.PubSub.TopicName != "article-ingested" {
		t.Fatalf("expected default topic, got %q", cfg.PubSub.TopicName)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Site:    SiteConfig{Root: "https://legacy.example.com/"},
		Crawler: CrawlerConfig{DelayMs: 1000, TimeoutSeconds: 15},
		DB:      DBConfig{DSN: "postgres://x"},
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"missing root", func(c *Config) { c.Site.Root = "" }},
		{"relative root", func(c *Config) { c.Site.Root = "/not/absolute" }},
		{"negative delay", func(c *Config) { c.Crawler.DelayMs = -1 }},
		{"zero timeout", func(c *Config) { c.Crawler.TimeoutSeconds = 0 }},
		{"missing dsn", func(c *Config) { c.DB.DSN = "" }},
		{"gcs without bucket", func(c *Config) {
			c.Archive = ArchiveConfig{Enabled: true, Backend: "gcs"}
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}
