package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coursebot/bot"
	"coursebot/metrics"

	_ "coursebot/bots/CourseReminder"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const stopOnFailure = false

const shutdownTimeout = 5 * time.Second

// validateConfig makes sure the bot is configured
func validateConfig(rec bot.Record, cfgs map[string]bot.Config) (*bot.Config, error) {
	cfg, ok := cfgs[rec.Name]
	if !ok {
		return nil, errors.Errorf("couldn't find configuration for bot %q", rec.Name)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "%v's configuration is invalid", rec.Name)
	}

	return &cfg, nil
}

func serveMetrics(ctx context.Context, addr string, logger *zap.SugaredLogger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			logger.Warnw("failed shutting down metrics server", "err", err)
		}
	}()

	logger.Infof("serving metrics on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "metrics server failed")
	}
	return nil
}

// Botfarm entry point
func main() {
	cfg, err := bot.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		panic(err)
	}

	root, err := bot.NewLogger(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer root.Sync()

	logger := root.Sugar().With("ns", "Global")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	var running int
	for _, rec := range bot.GetThemAll() {
		l := root.Sugar().With("ns", rec.Name)

		c, err := validateConfig(rec, cfg.Bots)
		if err != nil {
			l.Error(err)
			if stopOnFailure {
				return
			}
			continue
		}

		bctx, err := rec.Bot.Init(c, l)
		if err != nil {
			l.Errorw("failed initializing bot", "err", err)
			if stopOnFailure {
				return
			}
			continue
		}

		b := rec.Bot
		g.Go(func() error {
			return b.Run(gctx, bctx)
		})
		running++
	}

	if running == 0 {
		logger.Fatal("no bots to run")
	}

	if cfg.Metrics.Addr != "" {
		g.Go(func() error {
			return serveMetrics(gctx, cfg.Metrics.Addr, logger)
		})
	}

	logger.Infof("%d bot(s) are running", running)

	if err := g.Wait(); err != nil {
		logger.Errorw("botfarm stopped", "err", err)
		return
	}
	logger.Info("botfarm stopped")
}
