// Package service assembles the command and query buses with their handlers
// and middleware.
package service

import (
	"log/slog"
	"time"

	"xrent/internal/app/commands"
	handlersupport "xrent/internal/app/handlers/support"
	listingapp "xrent/internal/app/handlers/listings"
	rentalapp "xrent/internal/app/handlers/rentals"
	"xrent/internal/app/middleware"
	"xrent/internal/app/outbox"
	"xrent/internal/app/policies"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	"xrent/internal/domain/tokens"
)

type Dependencies struct {
	UoWFactory    uow.UoWFactory
	Outbox        outbox.Outbox
	Idempotency   middleware.IdempotencyStore
	Tokens        *tokens.Registry
	Settlement    policies.SettlementPort
	SubmitTimeout time.Duration
	Logger        *slog.Logger
}

type Buses struct {
	Commands commands.Bus
	Queries  queries.Bus
}

// Build wires every handler. Handlers that change a listing share one guard
// so their read-modify-write cycles on the same listing never overlap.
func Build(deps Dependencies) Buses {
	encoder := outbox.JSONEventEncoder{}
	guard := handlersupport.NewListingGuard()

	commandBus := commands.NewInMemoryBus()
	commands.RegisterHandler(commandBus, listingapp.CreateListingCommand{}.Key(), &listingapp.CreateListingHandler{
		Tokens:  deps.Tokens,
		Outbox:  deps.Outbox,
		Encoder: encoder,
		Logger:  deps.Logger,
	})
	commands.RegisterHandler(commandBus, listingapp.CancelListingCommand{}.Key(), &listingapp.CancelListingHandler{
		Guard:   guard,
		Outbox:  deps.Outbox,
		Encoder: encoder,
		Logger:  deps.Logger,
	})
	commands.RegisterHandler(commandBus, rentalapp.SubmitRentalCommand{}.Key(), &rentalapp.SubmitRentalHandler{
		Settlement: deps.Settlement,
		Timeout:    deps.SubmitTimeout,
		Guard:      guard,
		Outbox:     deps.Outbox,
		Encoder:    encoder,
		Logger:     deps.Logger,
	})
	closer := rentalapp.RentalCloser{
		Guard:   guard,
		Outbox:  deps.Outbox,
		Encoder: encoder,
		Logger:  deps.Logger,
	}
	commands.RegisterHandler(commandBus, rentalapp.ReturnRentalCommand{}.Key(), &rentalapp.ReturnRentalHandler{RentalCloser: closer})
	commands.RegisterHandler(commandBus, rentalapp.ReclaimRentalCommand{}.Key(), &rentalapp.ReclaimRentalHandler{RentalCloser: closer})

	queryBus := queries.NewInMemoryBus()
	queries.RegisterHandler(queryBus, listingapp.SearchCatalogQuery{}.Key(), &listingapp.SearchCatalogHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, listingapp.GetListingQuery{}.Key(), &listingapp.GetListingHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, listingapp.QuoteRentalQuery{}.Key(), &listingapp.QuoteRentalHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, listingapp.PreviewEarningsQuery{}.Key(), &listingapp.PreviewEarningsHandler{Tokens: deps.Tokens})
	queries.RegisterHandler(queryBus, listingapp.ListTokensQuery{}.Key(), &listingapp.ListTokensHandler{Tokens: deps.Tokens})
	queries.RegisterHandler(queryBus, listingapp.ListLenderListingsQuery{}.Key(), &listingapp.ListLenderListingsHandler{UoWFactory: deps.UoWFactory})
	queries.RegisterHandler(queryBus, rentalapp.ListBorrowerRentalsQuery{}.Key(), &rentalapp.ListBorrowerRentalsHandler{
		UoWFactory: deps.UoWFactory,
		Logger:     deps.Logger,
	})
	queries.RegisterHandler(queryBus, rentalapp.ListLenderRentalsQuery{}.Key(), &rentalapp.ListLenderRentalsHandler{
		UoWFactory: deps.UoWFactory,
		Logger:     deps.Logger,
	})

	mws := []middleware.CommandMiddleware{}
	if deps.Idempotency != nil {
		mws = append(mws, middleware.Idempotency(deps.Idempotency, nil))
	}
	mws = append(mws,
		middleware.Authorization(middleware.RequireWallet{}),
		middleware.Validation(middleware.SelfValidator{}),
		middleware.Transaction(deps.UoWFactory, nil),
		middleware.OutboxFlush(deps.Outbox),
	)
	return Buses{
		Commands: middleware.ChainCommands(commandBus, mws...),
		Queries:  middleware.ChainQueries(queryBus, middleware.QueryValidation(middleware.SelfValidator{})),
	}
}
