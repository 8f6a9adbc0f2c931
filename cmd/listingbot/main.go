package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/blockedby/listingbot/internal/api"
	"github.com/blockedby/listingbot/internal/bot"
	"github.com/blockedby/listingbot/internal/config"
	"github.com/blockedby/listingbot/internal/database"
	"github.com/blockedby/listingbot/internal/eventlog"
	"github.com/blockedby/listingbot/internal/listing"
	"github.com/blockedby/listingbot/internal/logger"
	"github.com/blockedby/listingbot/internal/nats"
	"github.com/blockedby/listingbot/internal/publisher"
	"github.com/blockedby/listingbot/internal/repository"
	"github.com/blockedby/listingbot/internal/telegram"
)

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// 2. Initialize logger
	if err := logger.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	log.Info().Msg("starting listing bot")

	policy, err := eventlog.ParsePolicy(cfg.EventLogPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid EVENT_LOG_POLICY")
	}
	strategy, err := listing.ParseKeyStrategy(cfg.ListingKeyStrategy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid LISTING_KEY_STRATEGY")
	}
	lookup, err := listing.ParseLookupPolicy(cfg.ListingLookupPolicy)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid LISTING_LOOKUP_POLICY")
	}

	// 3. Setup context with graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("received shutdown signal")
		cancel()
	}()

	// 4. Connect to database
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	listingsRepo := repository.NewListingsRepository(db.GORM, log.Component("repository"))
	if err := listingsRepo.AutoMigrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to migrate listings table")
	}

	// 5. Connect to NATS (optional)
	var mirror eventlog.Mirror
	if cfg.NatsURL != "" {
		nc, err := nats.New(ctx, cfg.NatsURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to nats, mirroring disabled")
		} else {
			defer nc.Close()
			if err := nc.EnsureStream(ctx); err != nil {
				log.Warn().Err(err).Msg("failed to ensure log stream")
			}
			mirror = publisher.NewNATSPublisher(nc.Conn)
			log.Info().Bool("connected", nc.IsConnected()).Msg("mirroring log records to nats")
		}
	}

	// 6. Open append-only logs
	openLog := func(path, component string) (*eventlog.Writer, error) {
		opts := []eventlog.Option{
			eventlog.WithPolicy(policy),
			eventlog.WithLogger(log.Component(component)),
		}
		if mirror != nil {
			opts = append(opts, eventlog.WithMirror(mirror))
		}
		return eventlog.Open(path, opts...)
	}

	eventLog, err := openLog(cfg.EventLogFile, "eventlog")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open event log")
	}
	defer eventLog.Close()

	listingLog, err := openLog(cfg.ListingLogFile, "listinglog")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open listing log")
	}
	defer listingLog.Close()

	// 7. Initialize listing aggregator
	aggOpts := []listing.Option{
		listing.WithOwner(cfg.ListingOwnerID),
		listing.WithUIDPrefix(cfg.ListingUIDPrefix),
		listing.WithKeyStrategy(strategy),
		listing.WithLookupPolicy(lookup),
		listing.WithLogger(log.Component("listing")),
	}
	if !cfg.ListingSerialize {
		log.Warn().Msg("per-listing serialization disabled, concurrent images may be lost")
		aggOpts = append(aggOpts, listing.WithoutSerialization())
	}
	throttled := repository.NewThrottled(listingsRepo, cfg.RepoRequestsPerSec, cfg.RepoBurst)
	aggregator := listing.NewAggregator(throttled, listingLog, aggOpts...)

	// 8. Load group classification
	groups, err := bot.LoadGroups(cfg.GroupsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.GroupsFile).Msg("failed to load groups")
	}
	log.Info().Int("groups", groups.Len()).Msg("group table loaded")

	handler := bot.NewHandler(eventLog, aggregator, groups, log.Component("bot"))
	if err := handler.Debug(ctx, "listingbot started"); err != nil {
		log.Fatal().Err(err).Msg("failed to write startup record")
	}

	// 9. Start API server
	server := api.NewServer(&api.Config{
		Port:        cfg.HTTPPort,
		Title:       "Listing Bot API",
		Description: "Status and listing lookup for the housing group bot",
		Version:     "dev",
	}, &api.Dependencies{
		Listings:   listingsRepo,
		Notes:      handler,
		Stats:      repository.NewStatsRepository(db.GORM),
		Health:     db,
		EventLog:   eventLog,
		ListingLog: listingLog,
	}, log.Component("api"))

	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("api server error")
			cancel()
		}
	}()

	// 10. Connect to Telegram
	updates := telegram.NewUpdates(handler, log.Component("telegram"))
	tgClient, err := telegram.NewClient(cfg, updates, log.Component("telegram"))
	switch {
	case errors.Is(err, telegram.ErrNotConfigured):
		log.Warn().Msg("telegram credentials missing, running API only")
	case err != nil:
		log.Fatal().Err(err).Msg("failed to create telegram client")
	default:
		go func() {
			if err := tgClient.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("telegram client stopped")
				cancel()
			}
		}()
	}

	// 11. Wait for shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down services...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("api shutdown failed")
	}

	log.Info().
		Int64("events_written", eventLog.Written()).
		Int64("events_dropped", eventLog.Dropped()).
		Int64("listings_written", listingLog.Written()).
		Msg("shutdown complete")
}
