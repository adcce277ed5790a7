// Package fetching downloads source videos for discovered work items.
package fetching
