package rentals

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"xrent/internal/app/commands"
	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/middleware"
	"xrent/internal/app/outbox"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainrentals "xrent/internal/domain/rentals"
	"xrent/internal/domain/shared/events"
)

const (
	returnRentalKey  = "rentals.return"
	reclaimRentalKey = "rentals.reclaim"
)

var ErrRentalIDRequired = errors.New("rentals: rental id is required")

// ReturnRentalCommand is the borrower handing the tokens back.
type ReturnRentalCommand struct {
	Borrower account.Key
	RentalID string
}

func (c ReturnRentalCommand) Key() string { return returnRentalKey }

func (c ReturnRentalCommand) Wallet() account.Key { return c.Borrower }

func (c ReturnRentalCommand) Validate() error { return validateRentalID(c.RentalID) }

// ReclaimRentalCommand is the lender closing a rental whose period has ended.
type ReclaimRentalCommand struct {
	Lender   account.Key
	RentalID string
}

func (c ReclaimRentalCommand) Key() string { return reclaimRentalKey }

func (c ReclaimRentalCommand) Wallet() account.Key { return c.Lender }

func (c ReclaimRentalCommand) Validate() error { return validateRentalID(c.RentalID) }

func validateRentalID(id string) error {
	if strings.TrimSpace(id) == "" {
		return ErrRentalIDRequired
	}
	return nil
}

// RentalCloser completes confirmed rentals and puts their listing back on the
// market. It claims the listing in Guard like submissions and cancels do.
type RentalCloser struct {
	Guard   *handlersupport.ListingGuard
	Outbox  outbox.Outbox
	Encoder outbox.EventEncoder
	Logger  *slog.Logger
	Clock   func() time.Time

	ownGuard handlersupport.ListingGuard
}

type ReturnRentalHandler struct {
	RentalCloser
}

func (h *ReturnRentalHandler) Handle(ctx context.Context, cmd ReturnRentalCommand) (*dto.RentalSummary, error) {
	return h.closeRental(ctx, cmd.RentalID, func(r *domainrentals.Rental, now time.Time) error {
		return r.Return(cmd.Borrower, now)
	})
}

type ReclaimRentalHandler struct {
	RentalCloser
}

func (h *ReclaimRentalHandler) Handle(ctx context.Context, cmd ReclaimRentalCommand) (*dto.RentalSummary, error) {
	return h.closeRental(ctx, cmd.RentalID, func(r *domainrentals.Rental, now time.Time) error {
		return r.Reclaim(domainlistings.LenderID(cmd.Lender), now)
	})
}

func (c *RentalCloser) closeRental(ctx context.Context, id string, transition func(*domainrentals.Rental, time.Time) error) (*dto.RentalSummary, error) {
	unit, ok := uow.FromContext(ctx)
	if !ok {
		return nil, uow.ErrUnitOfWorkMissing
	}
	rentalID := domainrentals.RentalID(strings.TrimSpace(id))
	rental, err := unit.Rentals().ByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}

	guard := c.guard()
	if !guard.TryLock(rental.ListingID) {
		return nil, handlersupport.ErrListingBusy
	}
	defer guard.Unlock(rental.ListingID)

	// Reload under the claim so a concurrent close is observed.
	rental, err = unit.Rentals().ByID(ctx, rentalID)
	if err != nil {
		return nil, err
	}
	now := c.now()
	if err := transition(rental, now); err != nil {
		return nil, err
	}
	listing, err := unit.Listings().ByID(ctx, rental.ListingID)
	if err != nil {
		return nil, err
	}
	if err := listing.Release(string(rental.ID), now); err != nil {
		return nil, err
	}
	if err := unit.Rentals().Save(ctx, rental); err != nil {
		return nil, err
	}
	if err := unit.Listings().Save(ctx, listing); err != nil {
		return nil, err
	}

	pending := append([]events.DomainEvent{}, rental.PendingEvents()...)
	pending = append(pending, listing.PendingEvents()...)
	rental.ClearEvents()
	listing.ClearEvents()
	if err := outbox.RecordDomainEvents(ctx, c.Outbox, c.Encoder, pending); err != nil {
		return nil, err
	}

	if c.Logger != nil {
		c.Logger.Info("rental closed",
			"rental_id", rental.ID,
			"listing_id", rental.ListingID,
			"closure", rental.Closure,
			"late", rental.Late,
			"collateral_penalty", rental.Settlement.Penalty.String(),
		)
	}
	summary := dto.MapRentalSummary(rental, now)
	return &summary, nil
}

func (c *RentalCloser) now() time.Time {
	if c.Clock != nil {
		return c.Clock()
	}
	return time.Now()
}

func (c *RentalCloser) guard() *handlersupport.ListingGuard {
	if c.Guard != nil {
		return c.Guard
	}
	return &c.ownGuard
}

var _ commands.Handler[ReturnRentalCommand, *dto.RentalSummary] = (*ReturnRentalHandler)(nil)
var _ commands.Handler[ReclaimRentalCommand, *dto.RentalSummary] = (*ReclaimRentalHandler)(nil)
var _ middleware.WalletScoped = ReturnRentalCommand{}
var _ middleware.WalletScoped = ReclaimRentalCommand{}
var _ middleware.SelfValidating = ReclaimRentalCommand{}
