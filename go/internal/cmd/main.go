package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/mcdev12/ladders/go/clients"
	"github.com/mcdev12/ladders/go/internal/broker"
	"github.com/mcdev12/ladders/go/internal/economy"
	"github.com/mcdev12/ladders/go/internal/events"
	"github.com/mcdev12/ladders/go/internal/gateway"
	"github.com/mcdev12/ladders/go/internal/sessionstore"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	cfg, err := loadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatal().Err(err).Msg("ladders stopped")
	}
	log.Info().Msg("ladders stopped")
}

func run(ctx context.Context, cfg *Config) error {
	clock := clockwork.NewRealClock()

	boards, catalog, err := loadCatalog(cfg.CatalogPath)
	if err != nil {
		return err
	}
	log.Info().Strs("boards", boards.IDs()).Int("tiers", len(catalog.List())).Msg("catalog loaded")

	// Tiers are ordered fastest first: memory, then redis, then postgres.
	memory := sessionstore.NewMemoryTier(clock)
	tiers := []sessionstore.Tier{memory}

	if cfg.RedisURL != "" {
		rdb, err := setupRedis(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer rdb.Close()
		tiers = append(tiers, sessionstore.NewRedisTier(rdb))
	}

	var pgTier *sessionstore.PostgresTier
	if cfg.DB.Enabled {
		pool, err := setupDatabase(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer pool.Close()
		pgTier = sessionstore.NewPostgresTier(pool, clock)
		tiers = append(tiers, pgTier)
	}

	store, err := sessionstore.NewStore(cfg.Store, clock, tiers...)
	if err != nil {
		return err
	}
	defer store.Close()

	var wallet Wallet
	if cfg.EconomyURL != "" {
		client := clients.NewEconomyClient(cfg.EconomyURL, cfg.EconomyAPIKey)
		client.SetTimeout(cfg.EconomyTimeout)
		wallet = client
		log.Info().Str("url", cfg.EconomyURL).Msg("using remote economy")
	} else {
		wallet = economy.NewLedger(cfg.StartingBalance)
		log.Warn().Int64("starting_balance", cfg.StartingBalance).Msg("ECONOMY_URL not set, using in-process ledger")
	}

	cm := gateway.NewConnectionManager(cfg.WebSocket)
	var (
		notifier events.Notifier = cm
		consumer *gateway.EventConsumer
	)
	if cfg.NATS.Enabled() {
		nc, js, err := broker.Connect(cfg.NATS)
		if err != nil {
			return err
		}
		defer nc.Close()

		publisher, err := broker.NewJetStreamPublisher(ctx, js, cfg.NATS)
		if err != nil {
			return err
		}
		notifier = publisher

		consumerCfg := gateway.DefaultJetStreamConsumerConfig()
		consumerCfg.StreamName = cfg.NATS.StreamName
		consumerCfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		consumerCfg.ConsumerName = "gateway-" + cfg.InstanceID
		consumer, err = gateway.NewEventConsumer(ctx, cm, js, consumerCfg)
		if err != nil {
			return err
		}
	}

	services, err := setupServices(cfg, serviceDeps{
		store:    store,
		boards:   boards,
		catalog:  catalog,
		wallet:   wallet,
		notifier: notifier,
		clock:    clock,
	})
	if err != nil {
		return err
	}

	server := setupServer(cfg.Port, services, cm)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error { return memory.Run(gctx, cfg.SweepInterval) })
	if pgTier != nil {
		g.Go(func() error { return pgTier.Run(gctx, cfg.PurgeInterval) })
	}
	g.Go(func() error { return cm.Start(gctx) })
	if consumer != nil {
		g.Go(func() error { return consumer.Start(gctx) })
	}
	g.Go(func() error { return services.Scheduler.Run(gctx) })

	g.Go(func() error {
		log.Info().
			Str("addr", server.Addr).
			Str("instance_id", cfg.InstanceID).
			Int("store_tiers", len(tiers)).
			Bool("nats", cfg.NATS.Enabled()).
			Msg("ladders server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		log.Info().Msg("shutting down server")
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
