package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UkralStul/posts-manager/internal/config"
	"github.com/UkralStul/posts-manager/internal/gateway"
	"github.com/UkralStul/posts-manager/internal/server"
	"github.com/UkralStul/posts-manager/internal/session"
)

func main() {
	if err := run(); err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log := cfg.NewLogger()
	slog.SetDefault(log)

	gw, err := gateway.NewHTTP(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout}, log)
	if err != nil {
		return err
	}

	srv := server.New(gw, session.Config{UserCacheSize: cfg.UserCacheSize, Logger: log})
	httpServer := &http.Server{Addr: cfg.Addr, Handler: srv.Router()}

	errc := make(chan error, 1)
	go func() {
		log.Info("session server listening", "addr", cfg.Addr, "api", cfg.APIURL)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	exit := make(chan os.Signal, 1)
	signal.Notify(exit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-exit:
		log.Info("signal caught", "sig", sig)
	case err := <-errc:
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return httpServer.Shutdown(ctx)
}
