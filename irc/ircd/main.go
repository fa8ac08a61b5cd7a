// Command ircd serves the chat server over websockets.
//
// Configuration comes from the file or URL in FLEX_CONFIG, with FLEX_*
// environment overrides. .env files in the working directory and its parents
// are loaded first.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/presbrey/flex/echoprom"
	"github.com/presbrey/flex/envtree"
	"github.com/presbrey/flex/gormoize"
	"github.com/presbrey/flex/irc/config"
	"github.com/presbrey/flex/irc/history"
	"github.com/presbrey/flex/irc/server"
	"github.com/presbrey/flex/irc/transport"
	"github.com/presbrey/flex/logging"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	envtree.AutoLoad()

	cfg, err := config.Load(os.Getenv("FLEX_CONFIG"))
	if err != nil {
		logging.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	logging.Init(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	if err := run(cfg); err != nil {
		logging.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	log := logging.With("ircd")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(cfg.Storage.ConnectTimeout) * time.Second
	recorder, err := history.Dial(ctx, cfg.Storage.DSN, timeout)
	if err != nil {
		return err
	}
	defer func() {
		if err := gormoize.Instance().Close(); err != nil {
			log.Warn().Err(err).Msg("closing history store")
		}
	}()

	opts := []server.Option{server.WithRecorder(recorder)}
	var metrics *echoprom.Metrics
	if cfg.Metrics.Enabled {
		metrics = echoprom.New()
		opts = append(opts, server.WithMetrics(metrics))
	}

	srv := server.NewServer(cfg, opts...)
	hub := transport.NewHub(srv, transport.DefaultConfig())
	app := server.NewApp(srv, hub, metrics)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		addr := cfg.GetListenAddress()
		log.Info().
			Str("addr", addr).
			Str("name", cfg.Server.Name).
			Str("network", cfg.Server.Network).
			Bool("history", cfg.Storage.DSN != "").
			Bool("metrics", cfg.Metrics.Enabled).
			Msg("listening")
		if err := app.Start(addr); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		log.Info().Msg("shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err := app.Shutdown(sctx)
		hub.Close()
		return err
	})
	return g.Wait()
}
