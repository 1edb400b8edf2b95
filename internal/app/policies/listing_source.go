package policies

import (
	"context"

	domainlistings "xrent/internal/domain/listings"
)

// ListingSource supplies the full listing set a browse session starts from.
type ListingSource interface {
	FetchListings(ctx context.Context) ([]*domainlistings.Listing, error)
}

// ListingSourceFunc adapts a function to ListingSource.
type ListingSourceFunc func(ctx context.Context) ([]*domainlistings.Listing, error)

func (f ListingSourceFunc) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	return f(ctx)
}
