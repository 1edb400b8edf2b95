package dto

import (
	domainlistings "xrent/internal/domain/listings"
)

// ListingCatalog is a paginated collection of listings.
type ListingCatalog struct {
	Items   []ListingCard   `json:"items"`
	Filters CatalogFilters  `json:"filters"`
	Meta    CatalogMetadata `json:"meta"`
}

// CatalogFilters echoes back the applied filters.
type CatalogFilters struct {
	Query string `json:"q"`
	Token string `json:"token"`
}

// CatalogMetadata describes pagination.
type CatalogMetadata struct {
	Total  int    `json:"total"`
	Count  int    `json:"count"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
	Sort   string `json:"sort"`
}

// MapCatalog builds a DTO collection based on a search result.
func MapCatalog(result domainlistings.SearchResult, params domainlistings.SearchParams) ListingCatalog {
	normalized := params.Normalized()
	items := make([]ListingCard, 0, len(result.Items))
	for _, listing := range result.Items {
		items = append(items, MapListingCard(listing))
	}
	return ListingCatalog{
		Items: items,
		Filters: CatalogFilters{
			Query: normalized.Query,
			Token: normalized.Token,
		},
		Meta: CatalogMetadata{
			Total:  result.Total,
			Count:  len(items),
			Limit:  normalized.Limit,
			Offset: normalized.Offset,
			Sort:   string(normalized.Sort),
		},
	}
}
