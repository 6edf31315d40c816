// Command team-sync keeps a Discord guild's team roles and channels in step
// with the Polympics membership API. It:
//   - Loads configuration and initializes structured logging.
//   - Opens the record store (JSON file by default, Postgres optional).
//   - Connects to the Discord gateway and registers command/event handlers.
//   - Registers the account_team_update webhook with the membership API.
//   - Exposes an HTTP server with the webhook callback, /healthz, /readyz,
//     and /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM and on the owner restart command.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/onnwee/team-sync/bot"
	"github.com/onnwee/team-sync/config"
	"github.com/onnwee/team-sync/directory"
	"github.com/onnwee/team-sync/polympics"
	"github.com/onnwee/team-sync/server"
	"github.com/onnwee/team-sync/store"
	"github.com/onnwee/team-sync/team"
	"github.com/onnwee/team-sync/telemetry"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stdout, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateDiscordReady(); err != nil {
		slog.Error("config incomplete", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	// OpenTelemetry tracing (optional; requires OTEL_EXPORTER_OTLP_ENDPOINT)
	tracingShutdown, err := telemetry.InitTracing("team-sync", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer tracingShutdown()

	// Root context with graceful shutdown; the owner restart command cancels it too.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Record store
	var st store.Store
	var ready func(context.Context) error
	switch cfg.StoreBackend {
	case "postgres":
		pg, err := store.OpenPostgres(ctx, cfg.DBDsn)
		if err != nil {
			slog.Error("failed to open postgres store", slog.Any("err", err))
			os.Exit(1)
		}
		st = pg
		ready = pg.Ping
	default:
		fs, err := store.OpenFile(cfg.DataFile)
		if err != nil {
			slog.Error("failed to open record file", slog.String("path", cfg.DataFile), slog.Any("err", err))
			os.Exit(1)
		}
		st = fs
		ready = func(context.Context) error { return nil }
	}
	defer func() {
		if err := st.Close(); err != nil {
			slog.Error("failed to close store", slog.Any("err", err))
		}
	}()
	if n, err := st.Len(ctx); err == nil {
		telemetry.SetKnownTeams(n)
		slog.Info("record store opened", slog.String("backend", cfg.StoreBackend), slog.Int("teams", n))
	}

	// Discord gateway
	session, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		slog.Error("failed to create discord session", slog.Any("err", err))
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentGuilds |
		discordgo.IntentGuildMembers |
		discordgo.IntentGuildMessages |
		discordgo.IntentMessageContent

	dir := directory.NewDiscord(session, cfg.GuildID)
	api := &polympics.Client{BaseURL: cfg.APIBaseURL, APIUser: cfg.APIUser, APIToken: cfg.APIToken}

	prov := &team.Provisioner{
		Store:              st,
		Dir:                dir,
		AnnounceChannelID:  cfg.AnnounceChannelID,
		CategoryID:         cfg.TeamCategoryID,
		OverflowCategoryID: cfg.OverflowCategoryID,
		MutedRoleID:        cfg.MutedRoleID,
		CategoryLimit:      cfg.CategoryLimit,
	}
	rec := &team.Reconciler{Dir: dir, Prov: prov}

	b := bot.New(ctx, stop, session, cfg, dir, rec, api)
	b.Register()
	if err := session.Open(); err != nil {
		slog.Error("failed to open discord gateway", slog.Any("err", err))
		os.Exit(1)
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Error("failed to close discord gateway", slog.Any("err", err))
		}
	}()
	slog.Info("gateway connected", slog.String("guild", cfg.GuildID))

	// Register the membership webhook. Best effort: the push path is an
	// optimization over the reload/check pull commands.
	if err := cfg.ValidateCallbackReady(); err != nil {
		slog.Warn("webhook registration skipped", slog.Any("err", err))
	} else {
		regCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		if err := api.CreateCallback(regCtx, "account_team_update", cfg.CallbackURL, cfg.CallbackSecret); err != nil {
			slog.Warn("webhook registration failed", slog.Any("err", err))
		} else {
			slog.Info("webhook registered", slog.String("url", cfg.CallbackURL))
		}
		cancel()
	}

	// HTTP server (webhook callback, health, metrics)
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handlers := server.NewHandlers(rec, ready)
	go func() {
		if err := server.Start(ctx, server.NewMux(handlers, cfg.CallbackSecret), addr); err != nil {
			slog.Error("http server exited with error", slog.Any("err", err))
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")
}
