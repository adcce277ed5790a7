// Package config loads, validates, and normalizes clipflow configuration.
//
// Configuration lives in a TOML file resolved from an explicit path,
// ~/.config/clipflow/config.toml, or a project-local clipflow.toml. Every
// path field is tilde-expanded and made absolute during load, so consumers
// never deal with relative or unexpanded paths.
package config
