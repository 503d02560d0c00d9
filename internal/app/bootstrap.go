// Package app wires the process together: config, logging, workspace,
// journal, venues, coordinator, feed.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/hprow/bnc-anc/internal/domain"
	"github.com/hprow/bnc-anc/internal/engine"
	"github.com/hprow/bnc-anc/internal/execution"
	"github.com/hprow/bnc-anc/internal/infra"
	"github.com/hprow/bnc-anc/internal/notify"
	"github.com/hprow/bnc-anc/internal/storage"
)

const shutdownGrace = 30 * time.Second

// Bootstrap owns the startup and shutdown sequence.
type Bootstrap struct {
	Config      *infra.Config
	Journal     *storage.Journal
	Notifier    notify.Notifier
	Venues      map[string]domain.Venue
	Coordinator *engine.Coordinator
	Feed        *infra.AnnouncementFeed

	unlock func()
}

// NewBootstrap creates an empty Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization: config, logger,
// workspace directories, instance lock, journal.
func (b *Bootstrap) Initialize() error {
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err
	}
	b.Config = cfg

	slog.SetDefault(infra.NewLogger(cfg))
	infra.PrintBanner(cfg)

	mode := "live"
	if cfg.Trading.TestMode {
		mode = "test"
	}

	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data", mode)
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// A second process trading the same accounts would double every
	// order, so refuse to start while the lock exists.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	dbPath := filepath.Join(dataDir, "journal.db")
	journal, err := storage.NewJournal(dbPath)
	if err != nil {
		return err
	}
	b.Journal = journal
	slog.Info("✅ Journal initialized (WAL-mode)", "path", dbPath, "mode", mode)

	b.Notifier = notify.FromConfig(cfg.Telegram.Token, cfg.Telegram.ChatID)
	return nil
}

// Start builds the venues and coordinator, then opens the feed.
func (b *Bootstrap) Start(ctx context.Context) error {
	notifyBg := func(text string) { b.Notifier.Send(context.Background(), text) }

	venues, err := execution.BuildVenues(b.Config, notifyBg)
	if err != nil {
		return err
	}
	b.Venues = venues
	for name := range venues {
		slog.Info("✅ Venue ready", "venue", name)
	}

	// The signal context governs the feed only. Trades dispatched by
	// the coordinator run on its own lifecycle context, so an interrupt
	// cannot cancel an order mid-placement; the drain window in
	// Shutdown decides when in-flight trades are cut off.
	b.Coordinator = engine.New(b.Config, venues, b.Notifier, b.Journal)
	b.Feed = infra.NewAnnouncementFeed(b.Config, b.Coordinator.Handle)
	b.Feed.Start(ctx)

	b.Journal.UpsertMetadata(ctx, "started_at", time.Now().Format(time.RFC3339))

	mode := "LIVE"
	if b.Config.Trading.TestMode {
		mode = "TEST"
	}
	notify.Sendf(ctx, b.Notifier, "🤖 %s started (%s mode)", infra.AppName, mode)
	return nil
}

// Shutdown drains in-flight trades and releases everything. The feed
// stops first so no new work arrives while draining.
func (b *Bootstrap) Shutdown() {
	slog.Info("👋 Shutting down...")

	if b.Feed != nil {
		b.Feed.Stop()
	}
	if b.Coordinator != nil {
		if err := b.Coordinator.Wait(shutdownGrace); err != nil {
			slog.Error("Shutdown drain incomplete", "err", err)
		}
	}
	for _, v := range b.Venues {
		if err := v.Close(); err != nil {
			slog.Warn("Venue close failed", "venue", v.Name(), "err", err)
		}
	}
	if b.Journal != nil {
		b.Journal.Close()
	}
	if b.unlock != nil {
		b.unlock()
	}
}
