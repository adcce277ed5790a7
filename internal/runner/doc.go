// Package runner is the composition root for one cron-invoked pipeline pass.
package runner
