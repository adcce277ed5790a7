// Package publishing uploads finished segments to the configured platform.
package publishing
