package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/hprow/bnc-anc/internal/app"
)

func main() {
	// Secrets come from the environment; a local .env is a convenience
	// for development and its absence is not an error.
	godotenv.Load()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Start(ctx); err != nil {
		slog.Error("❌ Startup failed", slog.Any("error", err))
		bootstrap.Shutdown()
		os.Exit(1)
	}

	slog.InfoContext(ctx, "✨ Announcement bot operational. Press Ctrl+C to exit.")
	<-ctx.Done()

	bootstrap.Shutdown()
}
