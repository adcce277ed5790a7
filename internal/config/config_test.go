package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"clipflow/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default configuration is invalid: %v", err)
	}
	if cfg.Quota.DailyBudget != 10000 || cfg.Publish.CostUnits != 1600 {
		t.Fatalf("unexpected quota defaults: budget=%d cost=%d", cfg.Quota.DailyBudget, cfg.Publish.CostUnits)
	}
	if cfg.Quota.Timezone != "America/Los_Angeles" {
		t.Fatalf("unexpected default timezone: %s", cfg.Quota.Timezone)
	}
}

func TestLoadAppliesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clipflow.toml")
	content := `
[paths]
work_dir = "` + filepath.Join(dir, "work") + `"

[source]
channel_url = "https://www.youtube.com/@channel"
scan_limit = 25

[segments]
duration_seconds = 45

[quota]
daily_budget = 8000
timezone = "UTC"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !exists || resolved != path {
		t.Fatalf("unexpected resolution: exists=%v path=%s", exists, resolved)
	}
	if cfg.Source.ScanLimit != 25 {
		t.Fatalf("file value not applied: %d", cfg.Source.ScanLimit)
	}
	if cfg.Segments.DurationSeconds != 45 {
		t.Fatalf("file value not applied: %d", cfg.Segments.DurationSeconds)
	}
	if cfg.Quota.DailyBudget != 8000 {
		t.Fatalf("file value not applied: %d", cfg.Quota.DailyBudget)
	}
	// Untouched sections keep their defaults.
	if cfg.Publish.CostUnits != 1600 {
		t.Fatalf("default lost: %d", cfg.Publish.CostUnits)
	}
	// Derived directories hang off the configured work dir.
	if cfg.Paths.DownloadsDir != filepath.Join(dir, "work", "downloads") {
		t.Fatalf("derived downloads dir wrong: %s", cfg.Paths.DownloadsDir)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name    string
		content string
		detail  string
	}{
		{
			name:    "zero segment duration",
			content: "[segments]\nduration_seconds = 0\n",
			detail:  "duration_seconds",
		},
		{
			name:    "budget below publish cost",
			content: "[quota]\ndaily_budget = 100\n",
			detail:  "daily_budget",
		},
		{
			name:    "bad timezone",
			content: "[quota]\ntimezone = \"Mars/Olympus_Mons\"\n",
			detail:  "timezone",
		},
		{
			name:    "bad log format",
			content: "[logging]\nformat = \"xml\"\n",
			detail:  "logging.format",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "clipflow.toml")
			if err := os.WriteFile(path, []byte(tc.content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			_, _, _, err := config.Load(path)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.detail) {
				t.Fatalf("error %v does not mention %q", err, tc.detail)
			}
		})
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope.toml")
	cfg, _, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if exists {
		t.Fatal("expected missing file to report exists=false")
	}
	if cfg.Segments.DurationSeconds != 60 {
		t.Fatalf("defaults not applied: %d", cfg.Segments.DurationSeconds)
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config does not load cleanly: exists=%v err=%v", exists, err)
	}
}
