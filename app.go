// ABOUTME: Assembles the contract service from configuration
// ABOUTME: Chooses the store, number allocator, mirror and metrics backends
package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/harperreed/grainbroker/charm"
	"github.com/harperreed/grainbroker/config"
	"github.com/harperreed/grainbroker/contracts"
	"github.com/harperreed/grainbroker/db"
	"github.com/harperreed/grainbroker/logger"
	"github.com/harperreed/grainbroker/metrics"
	"github.com/harperreed/grainbroker/postgres"
	"github.com/harperreed/grainbroker/sequence"
)

// app owns the service and everything that must be closed with it.
type app struct {
	svc      *contracts.Service
	registry *prometheus.Registry
	closers  []func()
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func openApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var (
		store   contracts.Store
		parties contracts.PartyStore
		alloc   sequence.Allocator
	)

	switch cfg.Store {
	case config.StorePostgres:
		pg, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			a.Close()
			return nil, err
		}
		store, parties, alloc = pg.Contracts(), pg.Parties(), pg.Counters()
		log.Debug("contract book opened", "store", cfg.Store)
	default:
		database, err := db.OpenDatabase(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = database.Close() })
		store = db.NewContractRepository(database)
		parties = db.NewPartyRepository(database)
		alloc = db.NewCounterRepository(database)
		log.Debug("contract book opened", "store", cfg.Store, "path", cfg.DBPath)
	}

	switch cfg.Sequence {
	case config.SequenceRedis:
		client, err := sequence.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = client.Close() })
		alloc = sequence.NewRedisAllocator(client)
	case config.SequenceBadger:
		badgerAlloc, err := sequence.OpenBadgerAllocator(cfg.BadgerDir)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, func() { _ = badgerAlloc.Close() })
		alloc = badgerAlloc
	}

	opts := []contracts.Option{
		contracts.WithLogger(log),
		contracts.WithMetrics(metrics.New(a.registry)),
		contracts.WithNumberFormat(sequence.Format{Prefix: cfg.NumberPrefix, Width: cfg.NumberWidth}),
	}

	if cfg.MirrorEnabled {
		client, err := openMirrorClient(cfg)
		if err != nil {
			// The book works without its mirror
			log.Warn("contract mirror unavailable", "error", err)
		} else {
			opts = append(opts, contracts.WithMirror(charm.NewMirror(client)))
		}
	}

	svc, err := contracts.New(store, parties, alloc, opts...)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	return a, nil
}

func openMirrorClient(cfg *config.Config) (*charm.Client, error) {
	charmCfg, err := charm.LoadConfig(cfg.CharmHost)
	if err != nil {
		return nil, err
	}
	return charm.Open(charmCfg)
}
