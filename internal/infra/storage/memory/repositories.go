package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainrentals "xrent/internal/domain/rentals"
)

// ListingRepository is an in-memory implementation. Callers receive copies,
// so a listing changes only through Save.
type ListingRepository struct {
	mu     sync.RWMutex
	items  map[domainlistings.ListingID]*domainlistings.Listing
	lastID domainlistings.ListingID
}

// NewListingRepository builds an empty repository.
func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[domainlistings.ListingID]*domainlistings.Listing),
	}
}

// ByID returns a listing or an error wrapping domainlistings.ErrNotFound.
func (r *ListingRepository) ByID(ctx context.Context, id domainlistings.ListingID) (*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	listing, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: listing %d: %w", id, domainlistings.ErrNotFound)
	}
	return listing.Clone(), nil
}

// Save stores/updates a listing entry.
func (r *ListingRepository) Save(ctx context.Context, listing *domainlistings.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[listing.ID] = listing.Clone()
	if listing.ID > r.lastID {
		r.lastID = listing.ID
	}
	return nil
}

// All returns every listing ordered by id.
func (r *ListingRepository) All(ctx context.Context) ([]*domainlistings.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*domainlistings.Listing, 0, len(r.items))
	for _, listing := range r.items {
		out = append(out, listing.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// NextID reserves the id after the highest one seen.
func (r *ListingRepository) NextID(ctx context.Context) (domainlistings.ListingID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastID++
	return r.lastID, nil
}

// FetchListings lets the repository act as a browse listing source.
func (r *ListingRepository) FetchListings(ctx context.Context) ([]*domainlistings.Listing, error) {
	return r.All(ctx)
}

// RentalRepository stores rentals in memory.
type RentalRepository struct {
	mu    sync.RWMutex
	items map[domainrentals.RentalID]*domainrentals.Rental
}

func NewRentalRepository() *RentalRepository {
	return &RentalRepository{items: make(map[domainrentals.RentalID]*domainrentals.Rental)}
}

func (r *RentalRepository) ByID(ctx context.Context, id domainrentals.RentalID) (*domainrentals.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rental, ok := r.items[id]
	if !ok {
		return nil, fmt.Errorf("memory: rental %s: %w", id, domainrentals.ErrNotFound)
	}
	return rental.Clone(), nil
}

func (r *RentalRepository) Save(ctx context.Context, rental *domainrentals.Rental) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[rental.ID] = rental.Clone()
	return nil
}

func (r *RentalRepository) ListByBorrower(ctx context.Context, borrower account.Key) ([]*domainrentals.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainrentals.Rental
	for _, rental := range r.items {
		if rental.Borrower == borrower {
			out = append(out, rental.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *RentalRepository) ListByLender(ctx context.Context, lender domainlistings.LenderID) ([]*domainrentals.Rental, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*domainrentals.Rental
	for _, rental := range r.items {
		if rental.Lender == lender {
			out = append(out, rental.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

var (
	_ domainlistings.ListingRepository = (*ListingRepository)(nil)
	_ domainrentals.Repository         = (*RentalRepository)(nil)
)
