/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Command gavin-eval-server serves the evaluation dashboard API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arnavk-polka/gavin-ai/agents/evals"
	"github.com/arnavk-polka/gavin-ai/analyze/harness"
	"github.com/arnavk-polka/gavin-ai/analyze/server"
	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/sethvargo/go-envconfig"
	"golang.org/x/sync/errgroup"
)

type config struct {
	Port            int           `env:"PORT,default=8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=30s"`

	Harness harness.Config
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var cfg config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		clog.FatalContextf(ctx, "processing config: %v", err)
	}

	obs := evals.NewNamespacedObserver(func(ns string) *evals.MetricsObserver {
		return evals.NewMetricsObserver(ns)
	})
	h, err := harness.New(ctx, cfg.Harness, harness.Observers{
		Evaluations: obs.Child("evaluations"),
		Sessions:    obs.Child("sessions"),
	})
	if err != nil {
		clog.FatalContextf(ctx, "creating harness: %v", err)
	}

	var opts []server.Option
	if h.Archive != nil {
		opts = append(opts, server.WithArchive(h.Archive))
	}
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           server.New(h.Orchestrator, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		clog.InfoContextf(ctx, "Starting evaluation server on port %d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		clog.InfoContextf(ctx, "Shutting down")
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
		defer scancel()
		return errors.Join(srv.Shutdown(sctx), h.Close())
	})
	if err := eg.Wait(); err != nil {
		clog.FatalContextf(ctx, "server failed: %v", err)
	}
}
