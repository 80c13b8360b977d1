package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MikeSquared-Agency/callback/internal/api"
	"github.com/MikeSquared-Agency/callback/internal/bus"
	"github.com/MikeSquared-Agency/callback/internal/config"
	"github.com/MikeSquared-Agency/callback/internal/dispatch"
	"github.com/MikeSquared-Agency/callback/internal/processor"
	"github.com/MikeSquared-Agency/callback/internal/record"
	"github.com/MikeSquared-Agency/callback/internal/schedule"
	"github.com/MikeSquared-Agency/callback/internal/sms"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("callback starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Call-record sink (optional — scheduling works without it)
	var records *record.Store
	if cfg.DatabaseURL != "" {
		var err error
		records, err = record.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer records.Close()
		if err := records.EnsureSchema(ctx); err != nil {
			slog.Error("failed to prepare call_records", "error", err)
			os.Exit(1)
		}
		slog.Info("call-record sink ready")
	} else {
		slog.Warn("DATABASE_URL not set — call records will not be persisted")
	}

	// Lifecycle signal bus (optional)
	var signals *bus.Client
	if cfg.NatsURL != "" {
		var err error
		signals, err = bus.NewClient(cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer signals.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS_URL not set — lifecycle signals disabled")
	}

	// Outbound SMS
	var sender dispatch.Sender
	if cfg.TwilioSID != "" && cfg.TwilioToken != "" && cfg.FromNumber != "" {
		sender = sms.NewClient(cfg.TwilioSID, cfg.TwilioToken, cfg.FromNumber)
		slog.Info("sms client ready", "from", cfg.FromNumber)
	} else {
		sender = sms.NewDryRun(slog.Default())
		slog.Warn("twilio not configured — running in dry-run mode")
	}

	// Scheduler + dispatcher
	sched := schedule.New(slog.Default())
	disp := dispatch.New(sched, sender, signals, cfg.GraceWindow, slog.Default())
	if err := disp.Start(cfg.TickInterval); err != nil {
		slog.Error("failed to start dispatcher", "error", err)
		os.Exit(1)
	}

	// Event router
	proc := processor.New(sched, disp, records, signals, cfg.OperatorPhone, cfg.CalendarLink, slog.Default())

	// HTTP API
	srv := api.NewServer(cfg.Port, proc, sched, slog.Default())
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("callback ready", "port", cfg.Port, "tick", cfg.TickInterval.String())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	disp.Stop()
	cancel()
	slog.Info("callback stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
