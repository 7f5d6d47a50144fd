// Package main is the entry point for the phasecast prediction service.
package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/phasecast/phasecast/internal/artifact"
	"github.com/phasecast/phasecast/internal/config"
	"github.com/phasecast/phasecast/internal/prediction"
	"github.com/phasecast/phasecast/internal/server"
	"github.com/phasecast/phasecast/internal/storage"
)

func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg.LogLevel)

	store, err := storage.NewSQLiteStore(cfg.DBPath, cfg.RetentionDays)
	if err != nil {
		log.Error("opening store", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	// Model loading happens once here, outside the per-request path.
	bundle, err := artifact.LoadBundle(cfg.ModelDir)
	if err != nil {
		log.Error("loading model bundle", "error", err)
		os.Exit(1)
	}

	svc := prediction.NewService(store, bundle)
	srv := server.New(svc, log)

	log.Info("starting phasecast",
		"port", cfg.Port,
		"db", cfg.DBPath,
		"classes", bundle.Metadata.Classes,
		"features", len(bundle.Metadata.Features),
	)

	if err := http.ListenAndServe(":"+cfg.Port, srv.Router()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
}
