package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"AlphaKit/internal/di"
	"AlphaKit/internal/domain/models"
	"AlphaKit/pkg/config"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "config/config.yaml", "config file path")
	serve := flag.Bool("serve", false, "serve the HTTP API instead of running the configured scenario once")
	out := flag.String("out", "", "write the report JSON to this file instead of stdout")
	flag.Parse()

	cfg, err := config.LoadWithEnv(*configPath)
	if err != nil {
		log.Printf("config load failed: %v", err)
		return 1
	}

	app, err := di.InitializeApp(cfg)
	if err != nil {
		log.Printf("app initialization failed: %v", err)
		return 1
	}
	defer app.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *serve {
		if err := app.Serve(ctx); err != nil {
			log.Printf("app error: %v", err)
			return 1
		}
		return 0
	}

	report, err := app.RunOnce(ctx)
	if report != nil {
		if werr := writeReport(*out, report); werr != nil {
			log.Printf("write report: %v", werr)
		}
	}
	switch {
	case err == nil:
		return 0
	case errors.Is(err, models.ErrAlignment):
		log.Printf("scenario alignment failed: %v", err)
		return 3
	default:
		log.Printf("scenario failed: %v", err)
		return 1
	}
}

func writeReport(path string, r *models.Report) error {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}
