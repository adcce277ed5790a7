package media

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

var commandContext = exec.CommandContext

// ChannelEntry is one candidate video reported by a channel listing.
type ChannelEntry struct {
	ID        string
	Title     string
	URL       string
	ViewCount int64
	Duration  float64
}

// YtDlpOption configures the CLI client.
type YtDlpOption func(*YtDlp)

// WithYtDlpBinary overrides the default binary name.
func WithYtDlpBinary(binary string) YtDlpOption {
	return func(y *YtDlp) {
		if binary != "" {
			y.binary = binary
		}
	}
}

// YtDlp wraps the yt-dlp command line tool.
type YtDlp struct {
	binary string
}

// NewYtDlp constructs a client using defaults.
func NewYtDlp(opts ...YtDlpOption) *YtDlp {
	client := &YtDlp{binary: "yt-dlp"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary returns the configured executable name.
func (y *YtDlp) Binary() string {
	return y.binary
}

// flatPlaylist mirrors the JSON yt-dlp emits for --flat-playlist dumps.
type flatPlaylist struct {
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	ViewCount int64   `json:"view_count"`
	Duration  float64 `json:"duration"`
}

// ListChannel returns up to limit entries from a channel or playlist URL,
// newest first, without downloading anything.
func (y *YtDlp) ListChannel(ctx context.Context, channelURL string, limit int) ([]ChannelEntry, error) {
	if strings.TrimSpace(channelURL) == "" {
		return nil, errors.New("channel url required")
	}

	args := []string{"--flat-playlist", "--dump-single-json", "--no-warnings"}
	if limit > 0 {
		args = append(args, "--playlist-end", fmt.Sprintf("%d", limit))
	}
	args = append(args, channelURL)

	cmd := commandContext(ctx, y.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, toolError("yt-dlp", "list channel", err, stderr.String())
	}

	var playlist flatPlaylist
	if err := json.Unmarshal(stdout.Bytes(), &playlist); err != nil {
		return nil, fmt.Errorf("parse channel listing: %w", err)
	}

	entries := make([]ChannelEntry, 0, len(playlist.Entries))
	for _, entry := range playlist.Entries {
		if strings.TrimSpace(entry.ID) == "" {
			continue
		}
		url := entry.URL
		if url == "" {
			url = "https://www.youtube.com/watch?v=" + entry.ID
		}
		entries = append(entries, ChannelEntry{
			ID:        entry.ID,
			Title:     entry.Title,
			URL:       url,
			ViewCount: entry.ViewCount,
			Duration:  entry.Duration,
		})
	}
	return entries, nil
}

// Download fetches one video to the given path as MP4.
func (y *YtDlp) Download(ctx context.Context, sourceURL, outputPath string) error {
	if strings.TrimSpace(sourceURL) == "" {
		return errors.New("source url required")
	}
	if strings.TrimSpace(outputPath) == "" {
		return errors.New("output path required")
	}

	args := []string{
		"--no-warnings",
		"--no-playlist",
		"-f", "bv*[ext=mp4]+ba[ext=m4a]/b[ext=mp4]/b",
		"--merge-output-format", "mp4",
		"-o", outputPath,
		sourceURL,
	}

	cmd := commandContext(ctx, y.binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return toolError("yt-dlp", "download", err, stderr.String())
	}
	return nil
}

// unavailableMarkers are the yt-dlp error fragments that mean the source
// itself is gone; retrying cannot help.
var unavailableMarkers = []string{
	"video unavailable",
	"private video",
	"this video has been removed",
	"account associated with this video has been terminated",
}

// SourceUnavailable reports whether an error from this package indicates the
// source video can never be fetched.
func SourceUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range unavailableMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

func toolError(tool, operation string, err error, stderr string) error {
	detail := strings.TrimSpace(stderr)
	if detail != "" {
		// Keep only the tail; yt-dlp and ffmpeg front-load noise.
		lines := strings.Split(detail, "\n")
		if len(lines) > 4 {
			lines = lines[len(lines)-4:]
		}
		detail = strings.Join(lines, " | ")
		return fmt.Errorf("%s %s: %w: %s", tool, operation, err, detail)
	}
	return fmt.Errorf("%s %s: %w", tool, operation, err)
}
