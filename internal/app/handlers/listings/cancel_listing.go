package listings

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/middleware"
	"xrent/internal/app/outbox"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
)

const cancelListingKey = "listings.cancel"

var ErrListingIDRequired = errors.New("listings: listing id is required")

type CancelListingCommand struct {
	Lender    account.Key
	ListingID int64
}

func (c CancelListingCommand) Key() string { return cancelListingKey }

func (c CancelListingCommand) Wallet() account.Key { return c.Lender }

func (c CancelListingCommand) Validate() error {
	if c.ListingID <= 0 {
		return ErrListingIDRequired
	}
	return nil
}

// CancelListingHandler withdraws a listing. It claims the listing in Guard so
// a cancel cannot interleave with a rental being settled.
type CancelListingHandler struct {
	Guard   *handlersupport.ListingGuard
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger

	ownGuard handlersupport.ListingGuard
}

func (h *CancelListingHandler) Handle(ctx context.Context, cmd CancelListingCommand) (*dto.ListingCard, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}

	listingID := domainlistings.ListingID(cmd.ListingID)
	guard := h.guard()
	if !guard.TryLock(listingID) {
		return nil, handlersupport.ErrListingBusy
	}
	defer guard.Unlock(listingID)

	listing, err := unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Cancel(domainlistings.LenderID(cmd.Lender), time.Now()); err != nil {
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
		h.Logger.Info("listing cancelled", "listing_id", listing.ID, "lender", cmd.Lender.Truncated())
	}
	result := dto.MapListingCard(listing)
	return &result, nil
}

func (h *CancelListingHandler) guard() *handlersupport.ListingGuard {
	if h.Guard != nil {
		return h.Guard
	}
	return &h.ownGuard
}

var _ commands.Handler[CancelListingCommand, *dto.ListingCard] = (*CancelListingHandler)(nil)
var _ middleware.WalletScoped = CancelListingCommand{}
var _ middleware.SelfValidating = CancelListingCommand{}
