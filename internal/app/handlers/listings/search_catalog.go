package listings

import (
	"context"

	"xrent/internal/app/dto"
	handlersupport "xrent/internal/app/handlers/support"
	"xrent/internal/app/queries"
	"xrent/internal/app/uow"
	domainlistings "xrent/internal/domain/listings"
)

const searchCatalogKey = "listings.catalog"

// SearchCatalogQuery describes request filters.
type SearchCatalogQuery struct {
	Query  string
	Token  string
	Sort   string
	Limit  int
	Offset int
}

func (q SearchCatalogQuery) Key() string { return searchCatalogKey }

// SearchCatalogHandler runs the filter/sort pipeline over the stored listings.
type SearchCatalogHandler struct {
	UoWFactory uow.UoWFactory
}

func (h *SearchCatalogHandler) Handle(ctx context.Context, q SearchCatalogQuery) (dto.ListingCatalog, error) {
	unit, execCtx, cleanup, err := handlersupport.BeginReadOnlyUnit(ctx, h.UoWFactory)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	if cleanup != nil {
		defer cleanup()
	}

	searchParams := domainlistings.SearchParams{
		Query:  q.Query,
		Token:  q.Token,
		Sort:   domainlistings.SortKey(q.Sort),
		Limit:  q.Limit,
		Offset: q.Offset,
	}

	all, err := unit.Listings().All(execCtx)
	if err != nil {
		return dto.ListingCatalog{}, err
	}
	result := domainlistings.Search(all, searchParams)
	return dto.MapCatalog(result, searchParams), nil
}

var _ queries.Handler[SearchCatalogQuery, dto.ListingCatalog] = (*SearchCatalogHandler)(nil)
