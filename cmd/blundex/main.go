package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/park285/blundex/internal/builder"
	appcfg "github.com/park285/blundex/internal/config"
	"github.com/park285/blundex/internal/httpapi"
	"github.com/park285/blundex/internal/obslog"
)

const usage = `usage: blundex <command> [flags]

commands:
  serve     run the HTTP API
  analyze   print tactical notes for a position (-fen or -pgn)
  replay    replay a PGN file move by move
  export    write a PGN file from a move list or another PGN file
  board     render a position to a PNG file
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	cfg, err := appcfg.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	if err := obslog.InitFromEnv(); err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	logger := obslog.L()
	defer func() { _ = logger.Sync() }()

	cmd, args := os.Args[1], os.Args[2:]
	switch cmd {
	case "serve":
		err = serve(cfg, logger)
	case "analyze":
		err = runAnalyze(cfg, args, os.Stdout)
	case "replay":
		err = runReplay(cfg, args, os.Stdout)
	case "export":
		err = runExport(cfg, args, os.Stdout)
	case "board":
		err = runBoard(cfg, args, os.Stdout)
	case "help", "-h", "--help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("command_failed", zap.String("command", cmd), zap.Error(err))
		fmt.Fprintf(os.Stderr, "blundex %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func serve(cfg *appcfg.AppConfig, logger *zap.Logger) error {
	initCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	deps, err := builder.New(initCtx, cfg, logger)
	cancel()
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("backend_close_failed", zap.Error(err))
		}
	}()

	api := httpapi.New(deps.Registry, deps.Settings, logger)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http_listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	// Wait for termination
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)

	select {
	case s := <-sig:
		logger.Info("shutdown_signal", zap.String("signal", s.String()))
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info("http_stopped")
	return nil
}
