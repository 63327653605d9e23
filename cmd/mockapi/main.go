package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/UkralStul/posts-manager/internal/config"
	"github.com/UkralStul/posts-manager/internal/mockapi"
	"github.com/UkralStul/posts-manager/internal/storage"
	"github.com/UkralStul/posts-manager/internal/storage/inmemory"
	"github.com/UkralStul/posts-manager/internal/storage/postgres"
)

func main() {
	storageType := flag.String("storage", "in-memory", "Storage type (in-memory or postgres)")
	addr := flag.String("addr", ":8081", "the address to listen on")
	seed := flag.Bool("seed", true, "fill the storage with demo data")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	log := cfg.NewLogger()

	var store storage.Storage
	log.Info("starting mock api", "storage", *storageType)
	if *storageType == "postgres" {
		if cfg.DatabaseURL == "" {
			log.Error("DATABASE_URL must be set for postgres storage")
			os.Exit(1)
		}
		store, err = postgres.New(cfg.DatabaseURL)
		if err != nil {
			log.Error("failed to connect to postgres", "err", err)
			os.Exit(1)
		}
	} else {
		store = inmemory.New()
	}

	if *seed {
		if err := mockapi.Seed(context.Background(), store); err != nil {
			log.Error("failed to seed storage", "err", err)
			os.Exit(1)
		}
	}

	router := mockapi.NewRouter(store, log)

	log.Info("mock api listening", "addr", *addr)
	if err := http.ListenAndServe(*addr, middleware.Logger(router)); err != nil {
		log.Error("server failed to start", "err", err)
		os.Exit(1)
	}
}
