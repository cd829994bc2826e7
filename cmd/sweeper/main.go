package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DRSN-tech/digital-vault/internal/app"
	config "github.com/DRSN-tech/digital-vault/internal/cfg"
	"github.com/DRSN-tech/digital-vault/pkg/logger"
)

func main() {
	log := logger.NewSlogLogger()

	cfg, err := config.Load(log)
	if err != nil {
		log.Errorf(err, "failed to load config")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := app.RunSweep(ctx, cfg, log)
	if err != nil {
		log.Errorf(err, "sweep failed")
		os.Exit(1)
	}

	log.Infof(
		"sweep finished: scanned=%d referenced=%d young=%d orphans=%d deleted=%d failed=%d dry_run=%t",
		res.Scanned, res.Referenced, res.Young, len(res.Orphans), len(res.Deleted), len(res.Failed), res.DryRun,
	)
	if len(res.Failed) > 0 {
		os.Exit(1)
	}
}
