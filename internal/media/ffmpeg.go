package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FFmpegOption configures the ffmpeg/ffprobe client.
type FFmpegOption func(*FFmpeg)

// WithFFmpegBinary overrides the ffmpeg executable name.
func WithFFmpegBinary(binary string) FFmpegOption {
	return func(f *FFmpeg) {
		if binary != "" {
			f.ffmpeg = binary
		}
	}
}

// WithFFprobeBinary overrides the ffprobe executable name.
func WithFFprobeBinary(binary string) FFmpegOption {
	return func(f *FFmpeg) {
		if binary != "" {
			f.ffprobe = binary
		}
	}
}

// FFmpeg wraps ffmpeg and ffprobe for segment cutting and inspection.
type FFmpeg struct {
	ffmpeg  string
	ffprobe string
}

// NewFFmpeg constructs a client using defaults.
func NewFFmpeg(opts ...FFmpegOption) *FFmpeg {
	client := &FFmpeg{ffmpeg: "ffmpeg", ffprobe: "ffprobe"}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Binary returns the configured ffmpeg executable name.
func (f *FFmpeg) Binary() string {
	return f.ffmpeg
}

// ProbeBinary returns the configured ffprobe executable name.
func (f *FFmpeg) ProbeBinary() string {
	return f.ffprobe
}

// Duration reports the container duration of a media file in seconds.
func (f *FFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	if strings.TrimSpace(path) == "" {
		return 0, errors.New("media path required")
	}

	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}
	cmd := commandContext(ctx, f.ffprobe, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return 0, toolError("ffprobe", "duration", err, stderr.String())
	}

	raw := strings.TrimSpace(stdout.String())
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return duration, nil
}

// CutSpec describes one segment extraction.
type CutSpec struct {
	Input    string
	Output   string
	Start    float64
	Duration float64
	// Overlay, when non-empty, is burned into the frame as a centered label.
	Overlay string
}

// Cut extracts one segment. With no overlay the streams are copied without
// re-encoding; an overlay forces a video re-encode for the drawtext filter.
func (f *FFmpeg) Cut(ctx context.Context, spec CutSpec) error {
	if strings.TrimSpace(spec.Input) == "" {
		return errors.New("input path required")
	}
	if strings.TrimSpace(spec.Output) == "" {
		return errors.New("output path required")
	}
	if spec.Duration <= 0 {
		return fmt.Errorf("segment duration must be positive, got %f", spec.Duration)
	}

	args := []string{
		"-y",
		"-ss", formatSeconds(spec.Start),
		"-i", spec.Input,
		"-t", formatSeconds(spec.Duration),
	}
	if overlay := strings.TrimSpace(spec.Overlay); overlay != "" {
		filter := fmt.Sprintf(
			"drawtext=text='%s':fontsize=48:fontcolor=white:borderw=3:bordercolor=black:x=(w-text_w)/2:y=h*0.08",
			escapeDrawtext(overlay),
		)
		args = append(args,
			"-vf", filter,
			"-c:v", "libx264",
			"-preset", "fast",
			"-c:a", "copy",
		)
	} else {
		args = append(args, "-c", "copy")
	}
	args = append(args, spec.Output)

	cmd := commandContext(ctx, f.ffmpeg, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return toolError("ffmpeg", "cut", err, stderr.String())
	}
	return nil
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', 3, 64)
}

// escapeDrawtext neutralizes the characters drawtext treats specially.
func escapeDrawtext(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return replacer.Replace(text)
}
