package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.WorkDir, err = expandPath(c.Paths.WorkDir); err != nil {
		return err
	}

	// Derived directories default to subdirectories of the work dir.
	if strings.TrimSpace(c.Paths.DownloadsDir) == "" {
		c.Paths.DownloadsDir = filepath.Join(c.Paths.WorkDir, "downloads")
	}
	if strings.TrimSpace(c.Paths.SegmentsDir) == "" {
		c.Paths.SegmentsDir = filepath.Join(c.Paths.WorkDir, "segments")
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.WorkDir, "logs")
	}

	for _, field := range []*string{&c.Paths.DownloadsDir, &c.Paths.SegmentsDir, &c.Paths.LogDir} {
		if *field, err = expandPath(*field); err != nil {
			return err
		}
	}

	c.Source.ChannelURL = strings.TrimSpace(c.Source.ChannelURL)
	c.Publish.Endpoint = strings.TrimSpace(c.Publish.Endpoint)
	c.Publish.Token = strings.TrimSpace(c.Publish.Token)
	c.Quota.Timezone = strings.TrimSpace(c.Quota.Timezone)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))

	return nil
}
