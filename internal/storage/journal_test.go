package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJournal(t *testing.T) *Journal {
	t.Helper()
	j, err := NewJournal(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func TestJournalAnnouncementAndOutcomes(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	id, err := j.RecordAnnouncement(ctx, 101, "Binance Will List Foo (FOO)", 48, "listing", time.Now())
	require.NoError(t, err)
	require.Positive(t, id)

	require.NoError(t, j.RecordOutcome(ctx, Outcome{
		AnnouncementID: id,
		Base:           "FOO",
		Venue:          "kucoin",
		Symbol:         "FOOUSDTM",
		Side:           "buy",
		TakeProfit:     "1.25",
		StopLoss:       "0.95",
		Elapsed:        420 * time.Millisecond,
		TradedAt:       time.Now(),
	}))
	require.NoError(t, j.RecordOutcome(ctx, Outcome{
		AnnouncementID: id,
		Base:           "FOO",
		Venue:          "mexc",
		Symbol:         "FOOUSDT",
		Side:           "buy",
		Err:            "entry order: timeout",
		Elapsed:        5 * time.Second,
		TradedAt:       time.Now(),
	}))

	n, err := j.CountOutcomes(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestJournalMetadata(t *testing.T) {
	j := newTestJournal(t)
	ctx := context.Background()

	v, err := j.GetMetadata(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, v)

	require.NoError(t, j.UpsertMetadata(ctx, "started_at", "2026-09-01"))
	require.NoError(t, j.UpsertMetadata(ctx, "started_at", "2026-09-02"))

	v, err = j.GetMetadata(ctx, "started_at")
	require.NoError(t, err)
	assert.Equal(t, "2026-09-02", v)
}
