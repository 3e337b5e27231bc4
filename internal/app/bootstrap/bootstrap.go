// Package bootstrap assembles the command and query pipelines shared by the
// HTTP server and the background workers.
package bootstrap

import (
	"errors"
	"log/slog"

	"campusconnect/internal/app/commands"
	complaintapp "campusconnect/internal/app/handlers/complaints"
	listingapp "campusconnect/internal/app/handlers/listings"
	"campusconnect/internal/app/handlers/negotiation"
	userapp "campusconnect/internal/app/handlers/users"
	"campusconnect/internal/app/middleware"
	"campusconnect/internal/app/outbox"
	"campusconnect/internal/app/policies"
	"campusconnect/internal/app/queries"
	"campusconnect/internal/app/uow"
)

var ErrMissingDependency = errors.New("bootstrap: uow factory, outbox and idempotency store are required")

type Options struct {
	UoWFactory  uow.UoWFactory
	Outbox      outbox.Outbox
	Idempotency middleware.IdempotencyStore
	Notifier    policies.Notifier
	Clock       policies.Clock
	Logger      *slog.Logger
	NewID       func() string
}

type App struct {
	Commands commands.Bus
	Queries  queries.Bus
	Rejecter *negotiation.Rejecter
}

// Build registers every handler and wraps the registries in the middleware
// pipeline: validation, authorization, idempotency, outbox flush, transaction.
func Build(opts Options) (App, error) {
	if opts.UoWFactory == nil || opts.Outbox == nil || opts.Idempotency == nil {
		return App{}, ErrMissingDependency
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := opts.Clock
	if clock == nil {
		clock = policies.SystemClock{}
	}
	encoder := outbox.JSONEventEncoder{}

	cmdReg := commands.NewRegistry()
	queryReg := queries.NewRegistry()

	rejecter := negotiation.Register(cmdReg, queryReg, negotiation.Deps{
		UoWFactory: opts.UoWFactory,
		Outbox:     opts.Outbox,
		Encoder:    encoder,
		Notifier:   opts.Notifier,
		Clock:      clock,
		Logger:     logger.With("module", "negotiation"),
		NewID:      opts.NewID,
	})
	listingapp.Register(cmdReg, queryReg, listingapp.Deps{
		UoWFactory: opts.UoWFactory,
		Outbox:     opts.Outbox,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger.With("module", "listings"),
		NewID:      opts.NewID,
	})
	userapp.Register(cmdReg, queryReg, userapp.Deps{
		UoWFactory: opts.UoWFactory,
		Clock:      clock,
		Logger:     logger.With("module", "users"),
	})
	complaintapp.Register(cmdReg, queryReg, complaintapp.Deps{
		UoWFactory: opts.UoWFactory,
		Outbox:     opts.Outbox,
		Encoder:    encoder,
		Clock:      clock,
		Logger:     logger.With("module", "complaints"),
		NewID:      opts.NewID,
	})

	validator := middleware.NewStructValidator()
	authz := middleware.RoleAuthorizer{}
	cmdBus := middleware.ChainCommands(
		cmdReg,
		middleware.Validation(validator),
		middleware.Authorization(authz),
		middleware.Idempotency(opts.Idempotency, nil),
		middleware.OutboxFlush(opts.Outbox, logger),
		middleware.Transaction(opts.UoWFactory, nil),
	)
	queryBus := middleware.ChainQueries(
		queryReg,
		middleware.QueryValidation(validator),
		middleware.QueryAuthorization(authz),
	)
	return App{Commands: cmdBus, Queries: queryBus, Rejecter: rejecter}, nil
}
