package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/freekieb7/docserve/config"
	"github.com/freekieb7/docserve/filesystem"
	"github.com/freekieb7/docserve/handler"
	"github.com/freekieb7/docserve/http"
	"github.com/freekieb7/docserve/telemetry"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Getenv); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, getenv func(string) string) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(args, getenv)
	if err != nil {
		return err
	}
	level, _ := cfg.Level()

	tel, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: config.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Level:       level,
	})
	if err != nil {
		return err
	}
	defer func() {
		// ctx is already cancelled here.
		flushCtx, cancel := context.WithTimeout(context.Background(), cfg.GracePeriod)
		defer cancel()
		err = errors.Join(err, tel.Shutdown(flushCtx))
	}()

	logger := tel.Logger

	router := http.NewRouter()
	router.Use(http.RecoverMiddleware())
	handler.New(cfg.DocRoot, filesystem.NewLocalFileSystem()).Register(&router)

	server := http.NewServer(config.ServiceName, router)
	server.Logger = logger
	server.MaxHeaderBytes = cfg.MaxHeaderBytes
	server.MaxBodyBytes = cfg.MaxBodyBytes
	server.HeaderTimeout = cfg.HeaderTimeout
	server.BodyTimeout = cfg.BodyTimeout
	server.ReusePort = cfg.ReusePort

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.ListenAndServe(ctx, cfg.Addr())
	}()

	select {
	case err := <-serverErrCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		logger.Info("shutting down", "grace_period", cfg.GracePeriod)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracePeriod)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
