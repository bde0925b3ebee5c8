package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"studyhall/internal/config"
	"studyhall/internal/model"
)

func TestLoadDefaultsWhenNoFileExists(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)
	t.Setenv("STUDYHALL_API_KEY", "env-key")

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantDB := filepath.Join(tempHome, ".local", "share", "studyhall", "studyhall.db")
	if cfg.Paths.DBPath != wantDB {
		t.Fatalf("unexpected db path: got %q want %q", cfg.Paths.DBPath, wantDB)
	}
	if cfg.LLM.APIKey != "env-key" {
		t.Fatalf("expected API key from env, got %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != config.Default().LLM.Model {
		t.Fatalf("unexpected model: %q", cfg.LLM.Model)
	}
	if cfg.Pipeline.ChunkBudget != 12000 {
		t.Fatalf("unexpected chunk budget: %d", cfg.Pipeline.ChunkBudget)
	}
	if _, ok := cfg.RateLimit.Endpoints["chat"]; !ok {
		t.Fatal("expected a default chat rate-limit policy")
	}
}

func TestLoadParsesFileAndOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[paths]
db_path = "` + filepath.Join(dir, "custom.db") + `"

[llm]
api_key = "file-key"
model = "gpt-4o"
timeout_seconds = 30

[pipeline]
chunk_budget = 500

[logging]
format = "JSON"
level = "Debug"

[ratelimit.endpoints.chat]
max_requests = 3
window_seconds = 60
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("expected %q to be used, got %q exists=%v", path, resolved, exists)
	}
	if cfg.LLM.APIKey != "file-key" {
		t.Fatalf("unexpected api key: %q", cfg.LLM.APIKey)
	}
	if cfg.LLM.Model != "gpt-4o" || cfg.LLM.TimeoutSeconds != 30 {
		t.Fatalf("unexpected llm settings: %+v", cfg.LLM)
	}
	if cfg.LLM.MaxOutputTokens != config.Default().LLM.MaxOutputTokens {
		t.Fatalf("unset field should keep default, got %d", cfg.LLM.MaxOutputTokens)
	}
	if cfg.Pipeline.ChunkBudget != 500 {
		t.Fatalf("unexpected chunk budget: %d", cfg.Pipeline.ChunkBudget)
	}
	if cfg.Logging.Format != "json" || cfg.Logging.Level != "debug" {
		t.Fatalf("expected normalized logging values, got %+v", cfg.Logging)
	}
	want := model.RateLimitPolicy{MaxRequests: 3, WindowSeconds: 60}
	if cfg.RateLimit.Endpoints["chat"] != want {
		t.Fatalf("unexpected chat policy: %+v", cfg.RateLimit.Endpoints["chat"])
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		wantSub string
	}{
		{
			name:    "zero timeout",
			content: "[llm]\ntimeout_seconds = -5\n",
			wantSub: "llm.timeout_seconds",
		},
		{
			name:    "zero chunk budget",
			content: "[pipeline]\nchunk_budget = 0\n",
			wantSub: "pipeline.chunk_budget",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			wantSub: "logging.format",
		},
		{
			name:    "bad policy",
			content: "[ratelimit.endpoints.chat]\nmax_requests = 0\nwindow_seconds = 60\n",
			wantSub: "ratelimit.endpoints.chat.max_requests",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
				t.Fatalf("expected error mentioning %q, got %v", tc.wantSub, err)
			}
		})
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load of sample failed: %v", err)
	}
	if !exists {
		t.Fatal("expected sample to exist")
	}
	if cfg.RateLimit.Endpoints["upload"].MaxRequests != 10 {
		t.Fatalf("unexpected sample upload policy: %+v", cfg.RateLimit.Endpoints["upload"])
	}
}
