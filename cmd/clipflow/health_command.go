package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"clipflow/internal/fetching"
	"clipflow/internal/logging"
	"clipflow/internal/media"
	"clipflow/internal/publishing"
	"clipflow/internal/queue"
	"clipflow/internal/stage"
	"clipflow/internal/transform"
)

const (
	ansiReset = "\x1b[0m"
	ansiRed   = "\x1b[31m"
	ansiGreen = "\x1b[32m"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the database and the external tools the pipeline needs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			healthy := true

			store, err := queue.Open(cfg)
			if err != nil {
				fmt.Fprintln(out, renderHealthLine(stage.Unhealthy("database", err.Error()), colorize))
				return exitStatus(1)
			}
			defer store.Close()

			dbHealth, err := store.CheckHealth(cmd.Context())
			switch {
			case err != nil:
				fmt.Fprintln(out, renderHealthLine(stage.Unhealthy("database", err.Error()), colorize))
				healthy = false
			case dbHealth.DatabaseExists && !dbHealth.IntegrityCheck:
				fmt.Fprintln(out, renderHealthLine(stage.Unhealthy("database", "integrity check failed"), colorize))
				healthy = false
			default:
				detail := fmt.Sprintf("%d items", dbHealth.TotalItems)
				if !dbHealth.DatabaseExists {
					detail = "not created yet"
				}
				fmt.Fprintln(out, renderHealthLine(stage.Health{Name: "database", Ready: true, Detail: detail}, colorize))
			}

			logger := logging.NewNop()
			ytdlp := media.NewYtDlp(media.WithYtDlpBinary(cfg.YtDlpBinary()))
			ffmpeg := media.NewFFmpeg(
				media.WithFFmpegBinary(cfg.FFmpegBinary()),
				media.WithFFprobeBinary(cfg.FFprobeBinary()),
			)

			checks := []stage.Health{
				fetching.NewFetcher(cfg, ytdlp, logger).HealthCheck(cmd.Context()),
				transform.NewTransformer(cfg, ffmpeg, logger).HealthCheck(cmd.Context()),
				publishing.NewPublisher(cfg, publishing.NewHTTPClient(cfg), logger).HealthCheck(cmd.Context()),
			}
			for _, health := range checks {
				fmt.Fprintln(out, renderHealthLine(health, colorize))
				if !health.Ready {
					healthy = false
				}
			}

			if !healthy {
				return exitStatus(1)
			}
			return nil
		},
	}
}

func renderHealthLine(health stage.Health, colorize bool) string {
	label := "OK"
	color := ansiGreen
	if !health.Ready {
		label = "ERROR"
		color = ansiRed
	}
	line := fmt.Sprintf("  %-12s [%s]", health.Name+":", label)
	if health.Detail != "" {
		line = fmt.Sprintf("%s %s", line, health.Detail)
	}
	if colorize {
		return color + line + ansiReset
	}
	return line
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
