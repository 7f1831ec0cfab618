package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/udisondev/longgate/internal/config"
	"github.com/udisondev/longgate/internal/crypto"
	"github.com/udisondev/longgate/internal/db"
	"github.com/udisondev/longgate/internal/login"
	"github.com/udisondev/longgate/internal/realm"
	"github.com/udisondev/longgate/internal/realmlistener"
)

const ConfigPath = "config/loginserver.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		slog.Error("fatal", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// Load config
	cfgPath := ConfigPath
	if p := os.Getenv("LONGGATE_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadLoginServer(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Configure slog
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("longgate login server starting")
	slog.Info("config loaded", "bind", cfg.BindAddress, "port", cfg.Port, "realm_port", cfg.RealmListenPort, "realms", len(cfg.Realms))

	// Substitution tables
	var src crypto.TableSource = crypto.StandardTableSource{}
	if cfg.Cipher.SBoxFile != "" {
		src = crypto.FileTableSource{Path: cfg.Cipher.SBoxFile}
	}
	tables := crypto.NewTables(src)
	if _, err := tables.Get(); err != nil {
		return fmt.Errorf("loading substitution tables: %w", err)
	}

	// Connect to database
	database, err := db.New(ctx, cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer database.Close()
	slog.Info("database connected")

	// Run migrations
	if err := db.RunMigrations(ctx, cfg.Database.DSN()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database migrations applied")

	realms := realm.NewRegistry()
	auth := login.NewAuthenticator(login.Deps{
		Accounts: db.NewPostgresAccountRepository(database.Pool()),
		Vips:     db.NewPostgresVipRepository(database.Pool()),
		Records:  db.NewPostgresLoginRecordRepository(database.Pool()),
		Hasher:   db.SHA256Hasher{},
		Realms:   realms,
	})

	// Create login server (clients on :9958)
	loginServer, err := login.NewServer(cfg, tables, auth)
	if err != nil {
		return fmt.Errorf("creating login server: %w", err)
	}

	// Create realm listener (realms on :9865)
	realmListener, err := realmlistener.NewServer(cfg, realms, auth.Users())
	if err != nil {
		return fmt.Errorf("creating realm listener: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("starting login server")
		if err := loginServer.Run(gctx); err != nil {
			return fmt.Errorf("login server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		slog.Info("starting realm listener")
		if err := realmListener.Run(gctx); err != nil {
			return fmt.Errorf("realm listener: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		return loginServer.RunSweeper(gctx)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	snap := auth.Stats().Snapshot()
	slog.Info("login server stopped", "logins", snap.Logins, "successes", snap.Successes)
	return nil
}
