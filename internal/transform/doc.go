// Package transform slices fetched videos into publishable segments.
package transform
