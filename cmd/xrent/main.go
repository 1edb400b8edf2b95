package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"xrent/internal/app/middleware"
	appoutbox "xrent/internal/app/outbox"
	"xrent/internal/app/policies"
	"xrent/internal/app/service"
	"xrent/internal/app/uow"
	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
	"xrent/internal/infra/broker/kafka"
	"xrent/internal/infra/config"
	mongostore "xrent/internal/infra/db/mongo"
	ginserver "xrent/internal/infra/http/gin"
	"xrent/internal/infra/ledger"
	"xrent/internal/infra/obs"
	infraoutbox "xrent/internal/infra/outbox"
	"xrent/internal/infra/storage/memory"
	"xrent/internal/infra/storage/s3"
	"xrent/internal/infra/storage/seed"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg = config.Defaults()
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", cfg.HTTPAddr)
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application setup failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if err := app.loadListings(ctx, cfg, logger); err != nil {
		logger.Warn("listing load failed, starting with an empty catalog", "error", err)
	}
	app.startRelay(ctx, cfg, logger)

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "listings_source", cfg.ListingsSource, "settlement", cfg.SettlementMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type listingStore interface {
	domainlistings.ListingRepository
	policies.ListingSource
}

type application struct {
	handlers ginserver.Handlers
	tokens   *tokens.Registry
	listings listingStore
	mongo    *mongostore.Client
	outbox   *infraoutbox.Store
	ready    func() error
}

func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (*application, error) {
	app := &application{tokens: tokens.Default(), ready: func() error { return nil }}

	var (
		factory     uow.UoWFactory
		box         appoutbox.Outbox
		idempotency middleware.IdempotencyStore
	)
	if cfg.ListingsSource == config.ListingsFromMongo {
		client, err := mongostore.New(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		app.mongo = client
		listings := mongostore.NewListingRepository(client.DB)
		app.listings = listings
		factory = mongostore.Factory{DB: client.DB, ListingsRepo: listings, RentalsRepo: mongostore.NewRentalRepository(client.DB)}
		app.outbox = infraoutbox.NewStore(client.DB)
		box = app.outbox
		idempotency = mongostore.NewIdempotencyStore(client.DB, cfg.IdempotencyTTL)
		app.ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	} else {
		listings := memory.NewListingRepository()
		app.listings = listings
		factory = memory.Factory{ListingsRepo: listings, RentalsRepo: memory.NewRentalRepository()}
		memBox := memory.NewOutbox()
		memBox.Sink = func(_ context.Context, records []appoutbox.EventRecord) error {
			for _, rec := range records {
				logger.Info("domain event", "event", rec.Name, "aggregate", rec.Aggregate, "event_id", rec.ID)
			}
			return nil
		}
		box = memBox
		idempotency = memory.NewIdempotencyStore()
	}

	settlement, err := buildSettlement(cfg, logger)
	if err != nil {
		return nil, err
	}

	buses := service.Build(service.Dependencies{
		UoWFactory:    factory,
		Outbox:        box,
		Idempotency:   idempotency,
		Tokens:        app.tokens,
		Settlement:    settlement,
		SubmitTimeout: cfg.RentalSubmitTimeout,
		Logger:        logger,
	})
	app.handlers = ginserver.Handlers{
		Listing: ginserver.ListingHandler{Queries: buses.Queries, Commands: buses.Commands, Logger: logger},
		Rental:  ginserver.RentalHandler{Queries: buses.Queries, Commands: buses.Commands, Logger: logger},
		Token:   ginserver.TokenHandler{Queries: buses.Queries},
		Wallet:  ginserver.WalletMiddleware,
	}
	return app, nil
}

func buildSettlement(cfg config.Config, logger *slog.Logger) (policies.SettlementPort, error) {
	if cfg.SettlementMode == config.SettlementGateway {
		client, err := ledger.NewGatewayClient(cfg.SettlementURL, logger)
		if err != nil {
			return nil, fmt.Errorf("settlement gateway: %w", err)
		}
		return client, nil
	}
	return memory.SimulatedSettlement{Delay: cfg.SettlementDelay}, nil
}

// loadListings seeds the listing store. A failure leaves the catalog empty.
func (a *application) loadListings(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	fixturesPath := cfg.ListingsFixtures
	if fixturesPath == "" {
		fixturesPath = defaultListingFixturesPath()
	}
	fixtures := seed.FileSource{Path: fixturesPath, Tokens: a.tokens, Logger: logger}

	var source policies.ListingSource = fixtures
	switch cfg.ListingsSource {
	case config.ListingsFromMongo:
		existing, err := a.listings.FetchListings(ctx)
		if err != nil {
			return fmt.Errorf("%w: %w", domainlistings.ErrLoadFailed, err)
		}
		if len(existing) > 0 {
			logger.Info("listings already stored", "count", len(existing))
			return nil
		}
	case config.ListingsFromS3:
		objects, err := s3.NewListingSource(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3ListingsObject, a.tokens, logger)
		if err != nil {
			return fmt.Errorf("%w: %w", domainlistings.ErrLoadFailed, err)
		}
		if err := bootstrapObject(ctx, objects, fixturesPath, logger); err != nil {
			logger.Warn("listings object bootstrap failed", "error", err)
		}
		source = objects
	}

	stored, err := seed.Into(ctx, a.listings, source, logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("listing fixtures file not found, skipping", "path", fixturesPath)
			return nil
		}
		return fmt.Errorf("%w: %w", domainlistings.ErrLoadFailed, err)
	}
	logger.Info("listings loaded", "count", stored, "source", cfg.ListingsSource)
	return nil
}

// bootstrapObject uploads the fixtures file when the bucket has no listings yet.
func bootstrapObject(ctx context.Context, objects *s3.ListingSource, fixturesPath string, logger *slog.Logger) error {
	_, err := objects.FetchListings(ctx)
	if err == nil || !errors.Is(err, s3.ErrObjectMissing) {
		return nil
	}
	data, err := os.ReadFile(fixturesPath)
	if err != nil {
		return err
	}
	logger.Info("publishing fixtures to object storage", "path", fixturesPath)
	return objects.Publish(ctx, data)
}

// startRelay runs the outbox worker when events are persisted in Mongo and
// Kafka brokers are configured.
func (a *application) startRelay(ctx context.Context, cfg config.Config, logger *slog.Logger) {
	if a.outbox == nil || len(cfg.KafkaBrokers) == 0 {
		return
	}
	producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
	if err != nil {
		logger.Warn("kafka producer unavailable, events stay in the outbox", "error", err)
		return
	}
	worker := &infraoutbox.Worker{
		Store:       a.outbox,
		Producer:    producer,
		Interval:    cfg.OutboxPollInterval,
		TopicPrefix: cfg.KafkaTopicPrefix,
		Backoff:     cfg.RetryBackoff,
		Logger:      logger,
	}
	go func() {
		defer producer.Close()
		if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("outbox relay stopped", "error", err)
		}
	}()
	logger.Info("outbox relay started", "brokers", cfg.KafkaBrokers)
}

func (a *application) close(logger *slog.Logger) {
	if a.mongo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.mongo.Close(ctx); err != nil {
		logger.Warn("mongo disconnect failed", "error", err)
	}
}

func defaultListingFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "listings.json"),
		filepath.Join("..", "..", "data", "listings.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
