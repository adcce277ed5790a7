// Package logging provides slog construction and shared structured-logging
// conventions for clipflow: a human console handler, a JSON handler, attr
// helpers, standardized field keys, and context-derived logger enrichment.
package logging
