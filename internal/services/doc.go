// Package services defines shared utilities consumed by the stage handlers
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp item IDs, stage names, and run identifiers
//     for logging and tracing.
//   - Structured error markers plus the Wrap helper that translate stage
//     failures into the retry/fail decision the scheduler applies.
//
// Use these helpers when wiring new stage logic so operational behaviour
// (error handling, observability, retries) stays uniform across the pipeline.
package services
