package kpi

import (
	"strings"
	"time"

	"github.com/user/nocview/internal/model"
	"github.com/user/nocview/internal/storage"
	"github.com/user/nocview/internal/util"
)

// DefaultWindow is how far back Tracker looks for the comparison value.
const DefaultWindow = time.Hour

// Tracker attaches trends to locally computed tiles by comparing them with
// values stored on earlier cycles.
type Tracker struct {
	store  *storage.KPIStorage
	Window time.Duration
}

// NewTracker creates a tracker. store may be nil, which disables history.
func NewTracker(store *storage.KPIStorage) *Tracker {
	return &Tracker{store: store, Window: DefaultWindow}
}

// Annotate sets the trend of every card that has no trend yet from the
// most recent sample at least Window old, then records the current values.
// Storage errors are logged and leave cards without a trend.
func (t *Tracker) Annotate(role string, cards []model.KPICard, now time.Time) []model.KPICard {
	if t == nil || t.store == nil {
		return cards
	}

	before := now.Add(-t.Window)
	samples := make([]model.KPISample, 0, len(cards))
	for i := range cards {
		c := &cards[i]
		if c.Value == model.NotAvailable {
			continue
		}
		if c.Trend == nil && !strings.HasPrefix(c.ID, TrendPrefix) {
			prev, err := t.store.Previous(role, c.ID, before)
			if err != nil {
				util.Warn("Failed to read KPI history for %s/%s: %v", role, c.ID, err)
			} else if prev != nil {
				c.Trend = Compare(c.Numeric, prev.Value, HigherIsBetter(c.ID))
			}
		}
		samples = append(samples, model.KPISample{Role: role, Metric: c.ID, Value: c.Numeric, Timestamp: now})
	}

	if err := t.store.Save(samples); err != nil {
		util.Warn("Failed to record KPI samples for %s: %v", role, err)
	}
	return cards
}
