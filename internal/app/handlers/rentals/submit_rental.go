package rentals

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/middleware"
	"xrent/internal/app/outbox"
	"xrent/internal/app/policies"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainrentals "xrent/internal/domain/rentals"
	"xrent/internal/domain/shared/events"
)

const (
	submitRentalKey = "rentals.submit"

	DefaultSubmitTimeout = 10 * time.Second
)

var (
	ErrListingIDRequired = errors.New("rentals: listing id is required")
	ErrDurationRequired  = errors.New("rentals: duration must be positive")
	ErrSettlementMissing = errors.New("rentals: settlement port not configured")
)

type SubmitRentalCommand struct {
	CommandID       string
	Borrower        account.Key
	ListingID       int64
	Duration        int
	IdempotencyKeyV string
}

func (c SubmitRentalCommand) Key() string { return submitRentalKey }

func (c SubmitRentalCommand) Wallet() account.Key { return c.Borrower }

func (c SubmitRentalCommand) IdempotencyKey() string { return c.IdempotencyKeyV }

func (c SubmitRentalCommand) ResultPrototype() any { return &dto.RentalReceipt{} }

func (c SubmitRentalCommand) Validate() error {
	if c.ListingID <= 0 {
		return ErrListingIDRequired
	}
	if c.Duration <= 0 {
		return ErrDurationRequired
	}
	return nil
}

// SubmitRentalHandler sends one rental request to the settlement port. The
// call is bounded by Timeout and never retried. Nothing is stored unless the
// port confirms. The listing stays claimed in Guard for the whole exchange.
type SubmitRentalHandler struct {
	Settlement policies.SettlementPort
	Timeout    time.Duration
	Guard      *handlersupport.ListingGuard
	Outbox     outbox.Outbox
	Encoder    outbox.EventEncoder
	Logger     *slog.Logger

	ownGuard handlersupport.ListingGuard
}

func (h *SubmitRentalHandler) Handle(ctx context.Context, cmd SubmitRentalCommand) (*dto.RentalReceipt, error) {
	if h.Settlement == nil {
		return nil, ErrSettlementMissing
	}
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
	rental, err := domainrentals.Request(domainrentals.RequestParams{
		ID:       domainrentals.RentalID(cmd.CommandID),
		Listing:  listing,
		Borrower: cmd.Borrower,
		Duration: cmd.Duration,
		Now:      time.Now(),
	})
	if err != nil {
		return nil, err
	}

	submitCtx, cancel := context.WithTimeout(ctx, h.timeout())
	defer cancel()
	confirmation, err := h.Settlement.SubmitRentalRequest(submitCtx, policies.SettlementRequest{
		RequestID:   string(rental.ID),
		ListingID:   listing.ID,
		Duration:    rental.Duration,
		Borrower:    rental.Borrower,
		TokenSymbol: rental.TokenSymbol,
		Total:       rental.Costs.Total,
	})
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("rental submission failed", "listing_id", listing.ID, "rental_id", rental.ID, "borrower", cmd.Borrower.Truncated(), "error", err)
		}
		return nil, fmt.Errorf("%w: %w", domainrentals.ErrSubmissionFailed, err)
	}

	// Another process may have changed the listing while settlement ran.
	listing, err = unit.Listings().ByID(ctx, listingID)
	if err != nil {
		return nil, err
	}
	if !listing.IsAvailable {
		if h.Logger != nil {
			h.Logger.Error("listing withdrawn during settlement", "listing_id", listingID, "rental_id", rental.ID, "reference", confirmation.Reference)
		}
		return nil, domainlistings.ErrNotAvailable
	}

	now := time.Now()
	if err := rental.Confirm(confirmation.Reference, now); err != nil {
		return nil, fmt.Errorf("%w: %w", domainrentals.ErrSubmissionFailed, err)
	}
	if err := listing.MarkRented(string(rental.ID), rental.Borrower.String(), rental.Duration, now); err != nil {
		return nil, err
	}
	if err := unit.Rentals().Save(ctx, rental); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	pending := append([]events.DomainEvent{}, listing.PendingEvents()...)
	pending = append(pending, rental.PendingEvents()...)
	listing.ClearEvents()
	rental.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, h.Outbox, h.Encoder, pending); err != nil {
		return nil, err
	}

	if h.Logger != nil {
		h.Logger.Info("rental confirmed", "listing_id", listing.ID, "rental_id", rental.ID, "reference", confirmation.Reference, "duration", rental.Duration)
	}
	receipt := dto.MapRentalReceipt(rental)
	return &receipt, nil
}

func (h *SubmitRentalHandler) timeout() time.Duration {
	if h.Timeout <= 0 {
		return DefaultSubmitTimeout
	}
	return h.Timeout
}

func (h *SubmitRentalHandler) guard() *handlersupport.ListingGuard {
	if h.Guard != nil {
		return h.Guard
	}
	return &h.ownGuard
}

var _ commands.Handler[SubmitRentalCommand, *dto.RentalReceipt] = (*SubmitRentalHandler)(nil)
var _ middleware.IdempotentCommand = (*SubmitRentalCommand)(nil)
var _ middleware.WalletScoped = SubmitRentalCommand{}
var _ middleware.SelfValidating = SubmitRentalCommand{}
