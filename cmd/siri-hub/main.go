package main

import (
	"context"
	"errors"
	"flag"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	sirihub "github.com/theoremus-urban-solutions/siri-hub"
	"github.com/theoremus-urban-solutions/siri-hub/config"
	"github.com/theoremus-urban-solutions/siri-hub/ingest/kafka"
)

func main() {
	configPath := flag.String("config", "", "path to the configuration file")
	flag.Parse()

	log := sirihub.InitLogging()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Fatal("loading configuration")
	}

	hub, err := sirihub.NewHub(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("building hub")
	}
	defer hub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.RunServer(ctx) })
	g.Go(func() error { return hub.RunCleanup(ctx) })
	g.Go(func() error { return hub.Vehicles.Tracker().Run(ctx) })
	g.Go(func() error { return hub.Timetables.Tracker().Run(ctx) })
	g.Go(func() error { return hub.Situations.Tracker().Run(ctx) })
	g.Go(func() error { return hub.Production.Tracker().Run(ctx) })

	if cfg.Kafka.Enabled {
		consumer, err := kafka.NewConsumer(cfg.Kafka, log, hub.Vehicles, hub.Timetables, hub.Situations, hub.Production)
		if err != nil {
			log.WithError(err).Fatal("connecting to kafka")
		}
		defer consumer.Close()
		g.Go(func() error { return consumer.Run(ctx) })
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("shutting down")
	}
	log.Info("shutdown complete")
}
