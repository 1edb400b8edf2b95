package listings

import (
	"context"

	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	domainlistings "xrent/internal/domain/listings"
)

const getListingKey = "listings.get"

type GetListingQuery struct {
	ListingID int64
}

func (q GetListingQuery) Key() string { return getListingKey }

func (q GetListingQuery) Validate() error {
	if q.ListingID <= 0 {
		return ErrListingIDRequired
	}
	return nil
}

type GetListingHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *GetListingHandler) Handle(ctx context.Context, q GetListingQuery) (dto.ListingCard, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCard{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	listing, err := unit.Listings().ByID(execCtx, domainlistings.ListingID(q.ListingID))
	if err != nil {
		return dto.ListingCard{}, err
	}
	return dto.MapListingCard(listing), nil
}

var _ queries.Handler[GetListingQuery, dto.ListingCard] = (*GetListingHandler)(nil)
