// Package media wraps the external command-line tools the pipeline drives:
// yt-dlp for listing and downloading source videos, ffprobe for inspection,
// and ffmpeg for cutting segments. Each wrapper is a thin client behind an
// exec seam so stages can be tested without the binaries installed.
package media
