// Command console serves the low-code admin console API in front of a
// generation gateway.
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	_ "modernc.org/sqlite"

	"github.com/matthewbaird/lowcode-console/internal/activity"
	"github.com/matthewbaird/lowcode-console/internal/config"
	"github.com/matthewbaird/lowcode-console/internal/console"
	"github.com/matthewbaird/lowcode-console/internal/event"
	"github.com/matthewbaird/lowcode-console/internal/eventbus"
	"github.com/matthewbaird/lowcode-console/internal/gateway"
	"github.com/matthewbaird/lowcode-console/internal/poller"
	"github.com/matthewbaird/lowcode-console/internal/schema"
	"github.com/matthewbaird/lowcode-console/internal/seed"
	"github.com/matthewbaird/lowcode-console/internal/server"
	"github.com/matthewbaird/lowcode-console/internal/session"
)

func main() {
	if err := mainImpl(); err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(os.Stderr, "console: %v\n", err)
		os.Exit(1)
	}
}

func mainImpl() error {
	configPath := flag.String("config", "", "Path to a YAML config file")
	port := flag.Int("port", 0, "Port to listen on (overrides config)")
	gatewayURL := flag.String("gateway", "", "Gateway base URL (overrides config)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	seedDemo := flag.Bool("seed-demo", false, "Create or update the demo Contact entity at startup")
	flag.Parse()
	if len(flag.Args()) > 0 {
		return fmt.Errorf("unknown arguments: %v", flag.Args())
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *gatewayURL != "" {
		cfg.GatewayURL = *gatewayURL
	}
	if *logLevel != "" {
		cfg.LogLevel = *logLevel
	}
	cfg.SeedDemo = cfg.SeedDemo || *seedDemo
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	level, _ := config.ParseLevel(cfg.LogLevel)
	ll := &slog.LevelVar{}
	ll.Set(level)
	slog.SetDefault(slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      ll,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	})))

	journal, closeJournal, err := openJournal(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer closeJournal()

	bus := eventbus.New(256)
	broadcaster := eventbus.NewBroadcaster(32)
	bus.Subscribe("log", eventbus.NewLogConsumer(slog.Default()))
	bus.Subscribe("websocket", broadcaster)
	bus.Start(ctx)
	defer bus.Stop()

	recorder := event.NewJournalRecorder(journal)
	recorder.SetPublisher(bus)

	gw := gateway.New(cfg.GatewayURL,
		gateway.WithTimeout(cfg.RequestTimeout),
		gateway.WithRateLimit(cfg.RateLimit, cfg.RateBurst),
	)

	reg := schema.NewRegistry()
	if types, err := gw.ListTypes(ctx); err != nil {
		slog.WarnContext(ctx, "console: loading field types failed; type checks skipped until /types is fetched", "err", err)
	} else {
		reg.Replace(types)
		slog.InfoContext(ctx, "console: loaded field types", "count", reg.Len())
	}

	if cfg.SeedDemo {
		if _, err := seed.CreateTestEntity(ctx, gw); err != nil {
			slog.WarnContext(ctx, "console: seeding demo entity failed", "err", err)
		}
	}

	sessions := session.NewManager(ctx, gw, reg, cfg.Sessions.MaxAge, cfg.Sessions.IdleTimeout)
	if err := sessions.StartCleanup(cfg.Sessions.Cleanup); err != nil {
		return err
	}
	defer sessions.Stop()

	h := console.NewHandler(console.Deps{
		Base:        ctx,
		Gateway:     gw,
		Registry:    reg,
		Sessions:    sessions,
		Journal:     journal,
		Broadcaster: broadcaster,
	})
	runs := poller.New(gw,
		poller.WithRecorder(recorder),
		poller.WithRefresh(h.Refresh),
		poller.WithInterval(cfg.Poll.Interval),
		poller.WithMaxAttempts(cfg.Poll.MaxAttempts),
	)
	h.SetPoller(runs)
	// Deferred after bus.Stop so it runs first: cancelled runs publish their
	// final transition on the way out.
	defer runs.Close()

	slog.InfoContext(ctx, "console: starting", "gateway", gw.BaseURL(), "port", cfg.Port)
	return server.Run(ctx, server.Config{Port: cfg.Port, Console: h})
}

// openJournal opens the SQLite generation journal, or an in-memory one when
// dsn is empty.
func openJournal(ctx context.Context, dsn string) (activity.Store, func(), error) {
	if dsn == "" {
		return activity.NewMemoryStore(), func() {}, nil
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := activity.NewSQLiteStore(db)
	if err := store.CreateTable(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("creating journal table: %w", err)
	}
	slog.InfoContext(ctx, "console: journal ready", "dsn", dsn)
	return store, func() { db.Close() }, nil
}
