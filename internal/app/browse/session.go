// Package browse owns the state of one borrower's browse flow: the loaded
// listing set, the active filter and sort, and a chosen duration per listing.
package browse

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"xrent/internal/app/policies"
	"xrent/internal/domain/account"
	domainlistings "xrent/internal/domain/listings"
	domainpricing "xrent/internal/domain/pricing"
	domainrentals "xrent/internal/domain/rentals"
)

var (
	ErrClosed          = errors.New("browse: session closed")
	ErrUnknownListing  = errors.New("browse: listing not loaded")
	ErrSubmitting      = errors.New("browse: rental already being submitted for listing")
	ErrNoSettlement    = errors.New("browse: settlement port not configured")
	ErrBorrowerMissing = errors.New("browse: borrower wallet key missing")
)

const defaultSubmitTimeout = 10 * time.Second

// Outcome is the single result of a Submit.
type Outcome struct {
	ListingID    domainlistings.ListingID
	Duration     int
	Costs        domainpricing.CostBreakdown
	Confirmation policies.SettlementConfirmation
	Err          error
}

type Config struct {
	Source     policies.ListingSource
	Settlement policies.SettlementPort
	Borrower   account.Key
	Timeout    time.Duration
	Logger     *slog.Logger
}

type Session struct {
	source     policies.ListingSource
	settlement policies.SettlementPort
	borrower   account.Key
	timeout    time.Duration
	logger     *slog.Logger

	lifetime context.Context
	stop     context.CancelFunc
	wg       sync.WaitGroup

	mu         sync.Mutex
	closed     bool
	listings   []*domainlistings.Listing
	query      string
	token      string
	sort       domainlistings.SortKey
	durations  map[domainlistings.ListingID]int
	submitting map[domainlistings.ListingID]struct{}
}

func NewSession(cfg Config) *Session {
	lifetime, stop := context.WithCancel(context.Background())
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultSubmitTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		source:     cfg.Source,
		settlement: cfg.Settlement,
		borrower:   cfg.Borrower,
		timeout:    timeout,
		logger:     logger,
		lifetime:   lifetime,
		stop:       stop,
		token:      domainlistings.TokenFilterAll,
		sort:       domainlistings.SortRateLow,
		durations:  make(map[domainlistings.ListingID]int),
		submitting: make(map[domainlistings.ListingID]struct{}),
	}
}

// Load replaces the listing set. On failure the set is left empty and the
// error wraps domainlistings.ErrLoadFailed.
func (s *Session) Load(ctx context.Context) error {
	if s.isClosed() {
		return ErrClosed
	}
	var (
		items []*domainlistings.Listing
		err   error
	)
	if s.source == nil {
		err = errors.New("no listing source")
	} else {
		items, err = s.source.FetchListings(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.durations = make(map[domainlistings.ListingID]int)
	if err != nil {
		s.listings = nil
		s.logger.Error("listing load failed", "error", err)
		return fmt.Errorf("%w: %w", domainlistings.ErrLoadFailed, err)
	}
	s.listings = make([]*domainlistings.Listing, 0, len(items))
	for _, l := range items {
		if l != nil {
			s.listings = append(s.listings, l.Clone())
		}
	}
	s.logger.Debug("listings loaded", "count", len(s.listings))
	return nil
}

func (s *Session) SetQuery(q string) {
	s.mu.Lock()
	s.query = q
	s.mu.Unlock()
}

func (s *Session) SetTokenFilter(token string) {
	s.mu.Lock()
	if token == "" {
		token = domainlistings.TokenFilterAll
	}
	s.token = token
	s.mu.Unlock()
}

func (s *Session) SetSort(key domainlistings.SortKey) {
	s.mu.Lock()
	s.sort = key
	s.mu.Unlock()
}

// Visible returns the listings to display under the current selections.
func (s *Session) Visible() []*domainlistings.Listing {
	s.mu.Lock()
	defer s.mu.Unlock()
	return domainlistings.FilterAndSort(s.listings, s.query, s.token, s.sort)
}

// SelectDuration records the chosen duration for a listing. Durations the
// listing does not offer are rejected.
func (s *Session) SelectDuration(id domainlistings.ListingID, days int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing := s.find(id)
	if listing == nil {
		return ErrUnknownListing
	}
	if !listing.AcceptsDuration(days) {
		return fmt.Errorf("%w: %d not in [%d, %d]", domainpricing.ErrDurationOutOfRange, days, listing.MinDuration, listing.MaxDuration)
	}
	s.durations[id] = days
	return nil
}

// SelectedDuration defaults to the listing's minimum.
func (s *Session) SelectedDuration(id domainlistings.ListingID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing := s.find(id)
	if listing == nil {
		return 0, ErrUnknownListing
	}
	return s.selected(listing), nil
}

// Quote prices the listing at its selected duration.
func (s *Session) Quote(id domainlistings.ListingID) (domainpricing.CostBreakdown, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	listing := s.find(id)
	if listing == nil {
		return domainpricing.CostBreakdown{}, ErrUnknownListing
	}
	return domainpricing.ComputeCosts(listing, s.selected(listing))
}

// Submit sends the rental request for listing id at its selected duration
// without blocking. The channel yields exactly one Outcome, or none if the
// session is closed first; it is closed either way.
func (s *Session) Submit(ctx context.Context, id domainlistings.ListingID) (<-chan Outcome, error) {
	if s.settlement == nil {
		return nil, ErrNoSettlement
	}
	if s.borrower.IsZero() {
		return nil, ErrBorrowerMissing
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	listing := s.find(id)
	if listing == nil {
		s.mu.Unlock()
		return nil, ErrUnknownListing
	}
	if !listing.IsAvailable {
		s.mu.Unlock()
		return nil, domainlistings.ErrNotAvailable
	}
	if _, busy := s.submitting[id]; busy {
		s.mu.Unlock()
		return nil, ErrSubmitting
	}
	days := s.selected(listing)
	costs, err := domainpricing.ComputeCosts(listing, days)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.submitting[id] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	submitCtx, cancel := context.WithTimeout(ctx, s.timeout)
	stopWatch := context.AfterFunc(s.lifetime, cancel)

	req := policies.SettlementRequest{
		RequestID:   uuid.NewString(),
		ListingID:   id,
		Duration:    days,
		Borrower:    s.borrower,
		TokenSymbol: listing.TokenSymbol,
		Total:       costs.Total,
	}
	out := make(chan Outcome, 1)
	go func() {
		defer s.wg.Done()
		defer close(out)
		defer cancel()
		defer stopWatch()

		confirmation, err := s.settlement.SubmitRentalRequest(submitCtx, req)
		if err != nil {
			err = fmt.Errorf("%w: %w", domainrentals.ErrSubmissionFailed, err)
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.submitting, id)
		if s.closed {
			return
		}
		if err == nil {
			s.markRented(id)
			s.logger.Info("rental confirmed", "listing_id", id, "duration", days, "reference", confirmation.Reference)
		} else {
			s.logger.Warn("rental submission failed", "listing_id", id, "duration", days, "error", err)
		}
		out <- Outcome{ListingID: id, Duration: days, Costs: costs, Confirmation: confirmation, Err: err}
	}()
	return out, nil
}

// Close cancels in-flight submissions and waits for them to unwind. No
// Outcome is delivered after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.stop()
	s.wg.Wait()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) find(id domainlistings.ListingID) *domainlistings.Listing {
	for _, l := range s.listings {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (s *Session) selected(l *domainlistings.Listing) int {
	if d, ok := s.durations[l.ID]; ok && l.AcceptsDuration(d) {
		return d
	}
	return l.MinDuration
}

func (s *Session) markRented(id domainlistings.ListingID) {
	for i, l := range s.listings {
		if l.ID == id {
			rented := l.Clone()
			rented.IsAvailable = false
			s.listings[i] = rented
			return
		}
	}
}
