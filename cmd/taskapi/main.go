package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/nhle/tasklists/internal/app"
	"github.com/nhle/tasklists/internal/model"
)

func main() {
	configPath := pflag.StringP("config", "c", model.DefaultConfigPath(), "path to the YAML config file")
	writeConfig := pflag.Bool("write-config", false, "write the effective config to --config and exit")
	pflag.Parse()

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if *writeConfig {
		if err := model.SaveConfig(*configPath, cfg); err != nil {
			log.Fatalf("config: %v", err)
		}
		log.Printf("config written to %s", *configPath)
		return
	}

	log.Printf("config loaded, opening %s store...", cfg.Store.Driver)
	application, err := app.New(context.Background(), cfg)
	if err != nil {
		log.Fatalf("app init: %v", err)
	}

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      application.Router(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	go func() {
		log.Printf("HTTP server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
	if err := application.Close(); err != nil {
		log.Printf("close: %v", err)
	}
}
