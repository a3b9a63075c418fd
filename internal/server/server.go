// Package server runs the long-lived processes: the HTTP server, the gRPC
// health port, queue workers, the scheduler and the websocket hub.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/anfisaforfriends/anfisa/config"
	"github.com/anfisaforfriends/anfisa/internal/kernel"
	"github.com/anfisaforfriends/anfisa/pkg/database"
	"github.com/anfisaforfriends/anfisa/pkg/grpc"
	"github.com/anfisaforfriends/anfisa/pkg/logger"
)

const (
	shutdownTimeout = 15 * time.Second
	healthInterval  = 10 * time.Second
)

type Options struct {
	// Workers is the number of in-process queue workers; 0 leaves jobs to
	// `anfisa queue:work`.
	Workers int
	// Schedule runs the scheduler inside the server.
	Schedule bool
}

// Start serves until ctx is cancelled or a listener fails, then shuts
// everything down in reverse order.
func Start(ctx context.Context, k *kernel.Kernel, opts Options) error {
	handler, err := k.Handler()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	httpSrv := &http.Server{
		Addr:              ":" + config.AppPort(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	lis, err := net.Listen("tcp", ":"+config.GRPCPort())
	if err != nil {
		return err
	}
	grpcSrv := grpc.New(func(ctx context.Context) error { return database.Ping(ctx, k.DB) })

	var bg sync.WaitGroup
	errs := make(chan error, 2)

	bg.Add(2)
	go func() {
		defer bg.Done()
		k.Hub.Run(ctx)
	}()
	go func() {
		defer bg.Done()
		grpcSrv.Watch(ctx, healthInterval)
	}()
	go func() {
		if err := grpcSrv.Serve(lis); err != nil {
			errs <- err
		}
	}()

	var workers *sync.WaitGroup
	if opts.Workers > 0 {
		workers = k.Queue.Work(ctx, opts.Workers)
		if k.Delayed != nil {
			bg.Add(1)
			go func() {
				defer bg.Done()
				k.Delayed(ctx)
			}()
		}
	}
	if opts.Schedule {
		bg.Add(1)
		go func() {
			defer bg.Done()
			k.Scheduler.Start(ctx)
		}()
	}

	go func() {
		logger.Info("http: serving", "addr", httpSrv.Addr, "env", config.AppEnv())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("server: shutting down")
	case err = <-errs:
		logger.Error("server: listener failed", "error", err)
	}

	shutdownCtx, done := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer done()
	if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
		logger.Warn("http: shutdown", "error", serr)
	}
	grpcSrv.Stop()

	cancel()
	if workers != nil {
		workers.Wait()
	}
	bg.Wait()
	logger.Info("server: stopped")
	return err
}
