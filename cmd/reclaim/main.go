package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"

	"github.com/erazemk/reclaim/internal/api"
	"github.com/erazemk/reclaim/internal/db"
	"github.com/erazemk/reclaim/internal/obs"
	"github.com/erazemk/reclaim/internal/sealing"
	"github.com/erazemk/reclaim/internal/store"
	"github.com/erazemk/reclaim/internal/verification"
)

const usage = `Usage: reclaim [serve] [flags]
       reclaim token [flags]

Commands:
  serve        run the HTTP server (default)
  token        print a signed identity token for testing and scripting

Run "reclaim <command> -h" for the command's flags.
`

func main() {
	args := os.Args[1:]
	cmd := "serve"
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = cmdServe(args)
	case "token":
		err = cmdToken(args, os.Stdout)
	case "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n%s", cmd, usage)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		return
	}
	if err != nil {
		os.Exit(1)
	}
}

// serveConfig holds the serve command settings.
type serveConfig struct {
	dbPath     string
	addr       string
	logPath    string
	debug      bool
	jwtSecret  string
	claimRate  float64
	claimBurst int
}

// envOr returns the environment variable key, or def when it is unset.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseServeFlags(args []string) (serveConfig, error) {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)

	var cfg serveConfig
	defaultDB := envOr("RECLAIM_DB", "reclaim.sqlite3")
	fs.StringVar(&cfg.dbPath, "db", defaultDB, "")
	fs.StringVar(&cfg.dbPath, "d", defaultDB, "")

	defaultAddr := envOr("RECLAIM_ADDR", ":8080")
	fs.StringVar(&cfg.addr, "addr", defaultAddr, "")
	fs.StringVar(&cfg.addr, "a", defaultAddr, "")

	defaultLog := envOr("RECLAIM_LOG", "")
	fs.StringVar(&cfg.logPath, "log", defaultLog, "")
	fs.StringVar(&cfg.logPath, "l", defaultLog, "")

	fs.BoolVar(&cfg.debug, "v", false, "")

	fs.StringVar(&cfg.jwtSecret, "jwt-secret", envOr("RECLAIM_JWT_SECRET", ""), "")
	fs.Float64Var(&cfg.claimRate, "claim-rate", 0.2, "")
	fs.IntVar(&cfg.claimBurst, "claim-burst", 5, "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: reclaim [serve] [flags]

Flags:
  -d, -db <path>          SQLite database path (default: reclaim.sqlite3, env RECLAIM_DB)
  -a, -addr <host:port>   listen address (default: :8080, env RECLAIM_ADDR)
  -l, -log <path>         log file path (default: no file, env RECLAIM_LOG)
  -v                      debug logging
  -jwt-secret <secret>    identity-provider signing secret (env RECLAIM_JWT_SECRET,
                          default: generated and kept in the database)
  -claim-rate <n>         claims per second per claimant, 0 disables (default: 0.2)
  -claim-burst <n>        claims a claimant may submit at once (default: 5)
  -h, -help               show this help and exit
`)
	}

	if err := fs.Parse(args); err != nil {
		return cfg, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return cfg, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	if cfg.claimRate < 0 {
		return cfg, fmt.Errorf("claim-rate must not be negative")
	}
	return cfg, nil
}

func cmdServe(args []string) error {
	cfg, err := parseServeFlags(args)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
		}
		return err
	}

	level := slog.LevelInfo
	if cfg.debug {
		level = slog.LevelDebug
	}
	closeLog, err := setupLogger(cfg.logPath, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := db.Open(cfg.dbPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		return err
	}
	defer database.Close()

	// Ensure schema exists (idempotent).
	if err := db.EnsureSchema(database); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		return err
	}

	slog.Info("database ready", "path", cfg.dbPath)

	ctx := context.Background()
	key, err := store.GetSealingKey(ctx, database)
	if err != nil {
		slog.Error("failed to get sealing key", "error", err)
		return err
	}
	box, err := sealing.NewFromHex(key)
	if err != nil {
		slog.Error("invalid sealing key", "error", err)
		return err
	}

	jwtSecret := cfg.jwtSecret
	if jwtSecret == "" {
		jwtSecret, err = store.GetJWTSecret(ctx, database)
		if err != nil {
			slog.Error("failed to get JWT secret", "error", err)
			return err
		}
		slog.Info("using identity secret from database")
	}

	obs.Init()

	svc := verification.New(database, box)
	apiRouter := api.NewRouter(svc, api.Config{
		JWTSecret:  jwtSecret,
		ClaimRate:  rate.Limit(cfg.claimRate),
		ClaimBurst: cfg.claimBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiRouter)
	mux.Handle("GET /metrics", obs.Handler())

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		return err
	}

	slog.Info("server stopped, closing database")
	return nil
}
