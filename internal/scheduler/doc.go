// Package scheduler selects eligible work items and drives them through the
// pipeline stages within a per-invocation budget.
//
// Each invocation is stateless: the scheduler loads the queue, advances the
// highest-priority items one stage at a time, and commits every advancement
// to the tracking store before moving on. Publish work additionally reserves
// daily quota per segment; a denied reservation halts all remaining publish
// work for the run.
package scheduler
