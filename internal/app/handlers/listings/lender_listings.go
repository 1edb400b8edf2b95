package listings

import (
	"context"
	"sort"

	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
)

const listLenderListingsKey = "me.listings.list"

// ListLenderListingsQuery returns every listing the lender created, rented or
// cancelled included.
type ListLenderListingsQuery struct {
	Lender account.Key
}

func (q ListLenderListingsQuery) Key() string { return listLenderListingsKey }

func (q ListLenderListingsQuery) Validate() error {
	if q.Lender.IsZero() {
		return account.ErrKeyRequired
	}
	return nil
}

type ListLenderListingsHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *ListLenderListingsHandler) Handle(ctx context.Context, q ListLenderListingsQuery) (dto.ListingCollection, error) {
	if err := q.Validate(); err != nil {
		return dto.ListingCollection{}, err
	}
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	all, err := unit.Listings().All(execCtx)
	if err != nil {
		return dto.ListingCollection{}, err
	}
	lender := domainlistings.LenderID(q.Lender)
	owned := make([]*domainlistings.Listing, 0, len(all))
	for _, listing := range all {
		if listing.Lender == lender {
			owned = append(owned, listing)
		}
	}
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].CreatedAt.Equal(owned[j].CreatedAt) {
			return owned[i].ID > owned[j].ID
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	out := make([]dto.ListingCard, 0, len(owned))
	for _, listing := range owned {
		out = append(out, dto.MapListingCard(listing))
	}
	return dto.ListingCollection{Items: out}, nil
}

var _ queries.Handler[ListLenderListingsQuery, dto.ListingCollection] = (*ListLenderListingsHandler)(nil)
