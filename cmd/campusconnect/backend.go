package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"campusconnect/internal/app/middleware"
	appoutbox "campusconnect/internal/app/outbox"
	"campusconnect/internal/app/saga"
	"campusconnect/internal/app/uow"
	domainauth "campusconnect/internal/domain/auth"
	"campusconnect/internal/domain/listings"
	domainuser "campusconnect/internal/domain/user"
	"campusconnect/internal/infra/config"
	"campusconnect/internal/infra/db/mongo"
	"campusconnect/internal/infra/obs"
	infraoutbox "campusconnect/internal/infra/outbox"
	"campusconnect/internal/infra/storage/memory"
)

// backend is one storage mode's set of stores.
type backend struct {
	factory     uow.UoWFactory
	outbox      appoutbox.Outbox
	idempotency middleware.IdempotencyStore
	users       domainuser.Repository
	listings    listings.ListingRepository
	sessions    domainauth.SessionStore
	checks      map[string]obs.Check

	// set in mongo mode only
	db    *mongodriver.Database
	queue *infraoutbox.Store

	// set in memory mode only: in-process event delivery
	subscribe func(saga.Saga)

	closers []func(context.Context) error
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger, sagas ...saga.Saga) (*backend, error) {
	switch cfg.StorageMode {
	case config.StorageMongo:
		return openMongo(ctx, cfg, logger)
	case config.StorageMemory, "":
		return openMemory(logger, sagas...), nil
	default:
		return nil, fmt.Errorf("unknown storage mode %q", cfg.StorageMode)
	}
}

func openMemory(logger *slog.Logger, sagas ...saga.Saga) *backend {
	stores := memory.NewStores()
	box := memory.NewOutbox(sagas...)
	logger.Info("storage ready", "mode", config.StorageMemory)
	return &backend{
		factory:     stores.Factory(),
		outbox:      box,
		idempotency: memory.NewIdempotencyStore(),
		users:       stores.Users,
		listings:    stores.Listings,
		sessions:    memory.NewSessionStore(),
		checks:      map[string]obs.Check{},
		subscribe:   box.Subscribe,
	}
}

func openMongo(ctx context.Context, cfg config.Config, logger *slog.Logger) (*backend, error) {
	client, err := mongo.New(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		return nil, err
	}
	b := &backend{closers: []func(context.Context) error{client.Close}}
	fail := func(err error) (*backend, error) {
		b.close()
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx); err != nil {
		return fail(fmt.Errorf("mongo: ping: %w", err))
	}
	if err := client.EnsureIndexes(ctx); err != nil {
		return fail(err)
	}
	queue, err := infraoutbox.NewStore(ctx, client.DB)
	if err != nil {
		return fail(err)
	}
	idem, err := mongo.NewIdempotencyStore(ctx, client.DB, cfg.IdempotencyTTL)
	if err != nil {
		return fail(err)
	}

	factory := mongo.NewFactory(client.DB)
	b.factory = factory
	b.outbox = queue
	b.queue = queue
	b.idempotency = idem
	b.users = factory.UsersRepo
	b.listings = factory.ListingsRepo
	b.sessions = mongo.NewSessionStore(client.DB)
	b.db = client.DB
	b.checks = map[string]obs.Check{"mongo": client.Ping}
	logger.Info("storage ready", "mode", config.StorageMongo, "database", cfg.MongoDB)
	return b, nil
}

func (b *backend) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var errList []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		errList = append(errList, b.closers[i](ctx))
	}
	if err := errors.Join(errList...); err != nil {
		slog.Default().Error("storage close failed", "error", err)
	}
}
