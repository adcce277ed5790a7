// Package discovery turns channel listings into tracked work items.
//
// The scanner never touches item lifecycle state: new candidates are inserted
// as Discovered and known ones only get their priority refreshed, so a rescan
// can never regress or duplicate in-flight work.
package discovery
