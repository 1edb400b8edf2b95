package listings

import (
	"context"
	"log/slog"
	"time"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	"xrent/internal/app/middleware"
	"xrent/internal/app/outbox"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	"xrent/internal/domain/tokens"
)

const createListingKey = "listings.create"

type CreateListingCommand struct {
	Lender          account.Key
	Form            dto.ListingForm
	IdempotencyKeyV string
}

func (c CreateListingCommand) Key() string { return createListingKey }

func (c CreateListingCommand) Wallet() account.Key { return c.Lender }

func (c CreateListingCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c CreateListingCommand) ResultPrototype() any { return &dto.ListingCard{} }

// CreateListingHandler validates the lender form and stores a new listing
// under the next free id. Field problems surface as domainlistings.FieldErrors.
type CreateListingHandler struct {
	Tokens  *tokens.Registry
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
}

func (h *CreateListingHandler) Handle(ctx context.Context, cmd CreateListingCommand) (*dto.ListingCard, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	form := cmd.Form.Domain()
	if errs := domainlistings.ValidateForm(form, h.Tokens); len(errs) > 0 {
		return nil, errs
	}

	id, err := unit.Listings().NextID(ctx)
	if err != nil {
		return nil, err
	}
	listing, err := domainlistings.BuildListing(id, domainlistings.LenderID(cmd.Lender), form, h.Tokens, time.Now())
	if err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	pending := listing.PendingEvents()
	listing.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("listing created", "listing_id", listing.ID, "lender", cmd.Lender.Truncated(), "token", listing.TokenSymbol)
	}

	result := dto.MapListingCard(listing)
	return &result, nil
}

var _ commands.Handler[CreateListingCommand, *dto.ListingCard] = (*CreateListingHandler)(nil)
var _ middleware.IdempotentCommand = (*CreateListingCommand)(nil)
var _ middleware.WalletScoped = CreateListingCommand{}
