package support

import (
	"errors"
	"sync"

	domainlistings "xrent/internal/domain/listings"
)

var ErrListingBusy = errors.New("listings: another change to this listing is in progress")

// ListingGuard serializes state changes per listing within the process. A
// handler holds the listing from its first read until its writes are saved.
// The zero value is ready to use.
type ListingGuard struct {
	mu   sync.Mutex
	busy map[domainlistings.ListingID]struct{}
}

func NewListingGuard() *ListingGuard {
	return &ListingGuard{}
}

// TryLock claims id, reporting false when another change holds it.
func (g *ListingGuard) TryLock(id domainlistings.ListingID) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = make(map[domainlistings.ListingID]struct{})
	}
	if _, held := g.busy[id]; held {
		return false
	}
	g.busy[id] = struct{}{}
	return true
}

func (g *ListingGuard) Unlock(id domainlistings.ListingID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.busy, id)
}
