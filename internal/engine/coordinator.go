// Package engine drives the announcement-to-order pipeline: filter,
// decide, route, fan out to venues, report.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hprow/bnc-anc/internal/decision"
	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/execution"
	"github.com/hprow/bnc-anc/internal/infra"
	"github.com/hprow/bnc-anc/internal/notify"
	"github.com/hprow/bnc-anc/internal/storage"
)

// Coordinator turns one announcement event into a set of concurrent
// venue executions. Each (base, venue) pair runs in its own goroutine;
// a failure on one never delays or cancels the others. Results are
// reported in completion order, not submission order.
//
// Trades run on the coordinator's own lifecycle context, not the
// caller's: a shutdown signal must not cancel an order that is already
// half placed. Wait cancels the lifecycle context only after the
// drain window expires.
type Coordinator struct {
	cfg        *infra.Config
	venues     map[string]domain.Venue
	notifier   notify.Notifier
	journal    *storage.Journal // nil disables journaling
	categories map[int]bool

	runCtx  context.Context
	runStop context.CancelFunc
	wg      sync.WaitGroup
}

// New wires the coordinator. journal may be nil.
func New(cfg *infra.Config, venues map[string]domain.Venue, notifier notify.Notifier, journal *storage.Journal) *Coordinator {
	if notifier == nil {
		notifier = notify.Nop{}
	}
	runCtx, runStop := context.WithCancel(context.Background())
	return &Coordinator{
		cfg:        cfg,
		venues:     venues,
		notifier:   notifier,
		journal:    journal,
		categories: cfg.CategorySet(),
		runCtx:     runCtx,
		runStop:    runStop,
	}
}

// Handle processes one announcement end to end. It is safe to call
// concurrently; the feed dispatches each event on its own goroutine.
func (c *Coordinator) Handle(ev domain.AnnouncementEvent) {
	receivedAt := time.Now()
	ctx := c.runCtx

	if len(c.categories) > 0 && !c.categories[ev.CatalogID] {
		slog.Info("Announcement ignored (category filter)",
			"category", ev.CatalogID, "title", ev.Title)
		notify.Sendf(ctx, c.notifier, "🚫 Ignored (category %d): %s", ev.CatalogID, ev.Title)
		return
	}

	dec := decision.Decide(ev.Title)
	if dec.Kind == domain.KindNone {
		slog.Info("Announcement not actionable", "title", ev.Title)
		notify.Sendf(ctx, c.notifier, "ℹ️ No trading decision: %s", ev.Title)
		return
	}

	routed := c.cfg.RoutedFor(dec.Kind)
	slog.Info("Decision made",
		"kind", dec.Kind.String(), "bases", dec.Bases, "venues", routed)
	notify.Sendf(ctx, c.notifier, "⚡ %s detected: %v → %v\n%s",
		dec.Kind, dec.Bases, routed, ev.Title)

	annID := c.journalAnnouncement(ctx, ev, dec, receivedAt)

	side := dec.Kind.Side()
	for _, base := range dec.Bases {
		for _, name := range routed {
			venue, ok := c.venues[name]
			if !ok {
				slog.Error("Routed venue not built", "venue", name)
				continue
			}

			c.wg.Add(1)
			go func(base string, venue domain.Venue) {
				defer c.wg.Done()
				c.execute(ctx, annID, base, side, venue, receivedAt)
			}(base, venue)
		}
	}
}

// execute runs one (base, venue) trade and reports its outcome.
func (c *Coordinator) execute(ctx context.Context, annID int64, base string, side domain.Side, venue domain.Venue, receivedAt time.Time) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Trade goroutine panic recovered",
				"venue", venue.Name(), "base", base, "panic", r)
		}
	}()

	symbol := venue.SymbolFromBase(base)
	req := domain.TradeRequest{
		Symbol:   symbol,
		Side:     side,
		Position: execution.PositionFor(c.cfg, venue.Name(), side),
	}

	start := time.Now()
	res, err := venue.Trade(ctx, req)
	elapsed := time.Since(start)

	outcome := storage.Outcome{
		AnnouncementID: annID,
		Base:           base,
		Venue:          venue.Name(),
		Symbol:         symbol,
		Side:           string(side),
		Elapsed:        elapsed,
		TradedAt:       time.Now(),
	}

	switch {
	case err == nil:
		slog.Info("Trade placed",
			"venue", venue.Name(), "symbol", symbol, "side", side,
			"tp", res.TakeProfit.String(), "sl", res.StopLoss.String(),
			"elapsed", elapsed, "sinceAnnouncement", time.Since(receivedAt))
		notify.Sendf(ctx, c.notifier, "✅ %s %s %s\nTP %s / SL %s\ntrade %dms, announcement→order %dms",
			venue.Name(), side, symbol,
			res.TakeProfit.String(), res.StopLoss.String(),
			elapsed.Milliseconds(), time.Since(receivedAt).Milliseconds())
		outcome.TakeProfit = res.TakeProfit.String()
		outcome.StopLoss = res.StopLoss.String()

	case domain.IsPartialExecution(err):
		// Most severe outcome: position exists but protection is
		// incomplete. The report must be unmistakable.
		slog.Error("UNPROTECTED POSITION",
			"venue", venue.Name(), "symbol", symbol, "err", err)
		notify.Sendf(ctx, c.notifier,
			"🔥 UNPROTECTED POSITION on %s %s\nManual intervention required!\n%v",
			venue.Name(), symbol, err)
		outcome.Err = err.Error()

	default:
		slog.Error("Trade failed",
			"venue", venue.Name(), "symbol", symbol, "err", err)
		notify.Sendf(ctx, c.notifier, "❌ %s %s %s failed: %v",
			venue.Name(), side, symbol, err)
		outcome.Err = err.Error()
	}

	c.journalOutcome(ctx, outcome)
}

func (c *Coordinator) journalAnnouncement(ctx context.Context, ev domain.AnnouncementEvent, dec domain.Decision, receivedAt time.Time) int64 {
	if c.journal == nil {
		return 0
	}
	id, err := c.journal.RecordAnnouncement(ctx, ev.ID, ev.Title, ev.CatalogID, dec.Kind.String(), receivedAt)
	if err != nil {
		slog.Warn("Journal write failed (announcement)", "err", err)
		return 0
	}
	return id
}

func (c *Coordinator) journalOutcome(ctx context.Context, o storage.Outcome) {
	if c.journal == nil {
		return
	}
	if err := c.journal.RecordOutcome(ctx, o); err != nil {
		slog.Warn("Journal write failed (outcome)", "err", err)
	}
}

// Wait blocks until all in-flight trades finish, or the timeout
// expires. Either way the lifecycle context is cancelled afterwards,
// so a venue hung past the drain window gets unblocked instead of
// pinning the process forever.
func (c *Coordinator) Wait(timeout time.Duration) error {
	defer c.runStop()

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout: trades still in flight after %s", timeout)
	}
}
