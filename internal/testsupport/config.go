package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"clipflow/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.WorkDir = filepath.Join(base, "work")
	cfgVal.Paths.DownloadsDir = filepath.Join(base, "work", "downloads")
	cfgVal.Paths.SegmentsDir = filepath.Join(base, "work", "segments")
	cfgVal.Paths.LogDir = filepath.Join(base, "work", "logs")
	cfgVal.Source.ChannelURL = "https://www.youtube.com/@example"
	cfgVal.Publish.Endpoint = "https://uploads.example.test/videos"
	cfgVal.Publish.Token = "test-token"
	cfgVal.Quota.Timezone = "UTC"

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	if err := builder.cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}

	return builder.cfg
}

// WithDailyBudget overrides the quota budget on the test config.
func WithDailyBudget(budget int64) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Quota.DailyBudget = budget
	}
}

// WithMaxItemsPerRun overrides the per-invocation work cap.
func WithMaxItemsPerRun(limit int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.MaxItemsPerRun = limit
	}
}

// WithRetryCeiling overrides the transient failure retry ceiling.
func WithRetryCeiling(ceiling int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Scheduler.RetryCeiling = ceiling
	}
}

// WithStubbedBinaries writes stub executables for the provided names and
// prepends them to PATH. If names is empty, the default external binaries
// are stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"yt-dlp", "ffmpeg", "ffprobe"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		if err := os.MkdirAll(binDir, 0o755); err != nil {
			b.t.Fatalf("mkdir bin dir: %v", err)
		}
		script := []byte("#!/bin/sh\nexit 0\n")
		for _, name := range names {
			target := filepath.Join(binDir, name)
			if err := os.WriteFile(target, script, 0o755); err != nil {
				b.t.Fatalf("write stub %s: %v", name, err)
			}
		}

		oldPath := os.Getenv("PATH")
		if err := os.Setenv("PATH", binDir+string(os.PathListSeparator)+oldPath); err != nil {
			b.t.Fatalf("set PATH: %v", err)
		}
		b.t.Cleanup(func() {
			_ = os.Setenv("PATH", oldPath)
		})
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.WorkDir)
}
