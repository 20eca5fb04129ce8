package aggregation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestBackfill_ToleratesFailedDays(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 3; i++ {
		store.add(1, 1, day.AddDate(0, 0, i).Add(time.Hour), 10, intp(40))
	}
	store.failDays["2024-01-16"] = errors.New("statement timeout")

	summary := newAggregator(store, clockwork.NewFakeClock()).Backfill(context.Background(), day, day.AddDate(0, 0, 2))

	assert.Equal(t, 3, summary.TotalDays)
	assert.Equal(t, 2, summary.DaysProcessed)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, 1, summary.Errors)
	assert.Equal(t, []string{"2024-01-16"}, summary.FailedDays)
}

func TestBackfill_RerunUpdates(t *testing.T) {
	store := newFakeStore()
	store.add(1, 1, day.Add(time.Hour), 10, intp(40))
	agg := newAggregator(store, clockwork.NewFakeClock())

	agg.Backfill(context.Background(), day, day)
	summary := agg.Backfill(context.Background(), day, day)

	assert.Equal(t, 1, summary.Updated)
	assert.Zero(t, summary.Created)
	assert.Len(t, store.stats, 1)
}

func TestBackfill_EmptyAndReversedRange(t *testing.T) {
	agg := newAggregator(newFakeStore(), clockwork.NewFakeClock())

	summary := agg.Backfill(context.Background(), day.AddDate(0, 0, 1), day)
	assert.Zero(t, summary.TotalDays)

	summary = agg.Backfill(context.Background(), day, day.Add(20*time.Hour))
	assert.Equal(t, 1, summary.TotalDays)
	assert.Equal(t, 1, summary.DaysProcessed)
}

func TestBackfill_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary := newAggregator(newFakeStore(), clockwork.NewFakeClock()).Backfill(ctx, day, day.AddDate(0, 0, 9))
	assert.Equal(t, 10, summary.TotalDays)
	assert.Zero(t, summary.DaysProcessed)
}
