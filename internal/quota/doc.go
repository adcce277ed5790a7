// Package quota gates publish work against a consumable daily budget.
//
// The ledger persists through the tracking store so quota movements and item
// commits share one durable database. Day rollover happens lazily: the current
// reference-timezone date is computed on every call, so the first reservation
// after midnight lands on a fresh ledger row without any background timer.
package quota
