package listings

import (
	"context"
	"errors"

	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/middleware"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
)

const quoteRentalKey = "listings.quote"

var ErrDurationRequired = errors.New("listings: duration must be positive")

// QuoteRentalQuery prices a listing for a chosen duration in days.
type QuoteRentalQuery struct {
	ListingID int64
	Duration  int
}

func (q QuoteRentalQuery) Key() string { return quoteRentalKey }

func (q QuoteRentalQuery) Validate() error {
	if q.ListingID <= 0 {
		return ErrListingIDRequired
	}
	if q.Duration <= 0 {
		return ErrDurationRequired
	}
	return nil
}

type QuoteRentalHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *QuoteRentalHandler) Handle(ctx context.Context, q QuoteRentalQuery) (dto.CostBreakdown, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.CostBreakdown{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.CostBreakdown{}, err
	}
	costs, err := domainpricing.ComputeCosts(listing, q.Duration)
	if err != nil {
		return dto.CostBreakdown{}, err
	}
	return dto.MapCostBreakdown(int64(listing.ID), listing.TokenSymbol, costs), nil
}

var _ queries.Handler[QuoteRentalQuery, dto.CostBreakdown] = (*QuoteRentalHandler)(nil)
var _ middleware.SelfValidating = QuoteRentalQuery{}
