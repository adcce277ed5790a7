package quota

import (
	"context"
	"errors"
	"time"

	"clipflow/internal/config"
	"clipflow/internal/queue"
)

const dateLayout = "2006-01-02"

// Ledger tracks publish cost against the configured daily budget.
type Ledger struct {
	store    *queue.Store
	budget   int64
	location *time.Location

	// now is replaceable in tests to simulate day rollover.
	now func() time.Time
}

// Usage is a snapshot of the current day's consumption.
type Usage struct {
	Date          string
	ConsumedUnits int64
	DailyBudget   int64
}

// NewLedger builds a ledger over the tracking store using the configured
// budget and reference timezone.
func NewLedger(cfg *config.Config, store *queue.Store) (*Ledger, error) {
	if store == nil {
		return nil, errors.New("store is required")
	}
	location, err := cfg.QuotaLocation()
	if err != nil {
		return nil, err
	}
	return &Ledger{
		store:    store,
		budget:   cfg.Quota.DailyBudget,
		location: location,
		now:      time.Now,
	}, nil
}

// WithClock replaces the time source. Intended for tests.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	if now != nil {
		l.now = now
	}
	return l
}

// TryReserve consumes cost units from the current reference day when the
// budget allows. A denied reservation has no side effect; it is backpressure,
// not an error.
func (l *Ledger) TryReserve(ctx context.Context, cost int64) (bool, error) {
	return l.store.ReserveQuota(ctx, l.today(), cost, l.budget)
}

// Release returns cost units reserved for a publish that did not complete.
func (l *Ledger) Release(ctx context.Context, cost int64) error {
	return l.store.ReleaseQuota(ctx, l.today(), cost)
}

// Usage reports the consumption for the current reference day.
func (l *Ledger) Usage(ctx context.Context) (Usage, error) {
	date := l.today()
	consumed, err := l.store.QuotaUsage(ctx, date)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		Date:          date,
		ConsumedUnits: consumed,
		DailyBudget:   l.budget,
	}, nil
}

func (l *Ledger) today() string {
	return l.now().In(l.location).Format(dateLayout)
}
