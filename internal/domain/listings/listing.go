package listings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"xrent/internal/domain/shared/events"
)

var (
	ErrIDRequired     = errors.New("listings: id is required")
	ErrLenderRequired = errors.New("listings: lender is required")
	ErrTokenRequired  = errors.New("listings: token symbol is required")
	ErrAmount         = errors.New("listings: amount must be positive")
	ErrRentalRate     = errors.New("listings: rental rate must be positive")
	ErrMinDuration    = errors.New("listings: min duration must be at least 1 day")
	ErrDurationRange  = errors.New("listings: min duration must be <= max duration")
	ErrMaxDuration    = errors.New("listings: max duration exceeds platform limit")
	ErrCollateralRate = errors.New("listings: collateral rate must be between 10 and 50")
	ErrNotAvailable   = errors.New("listings: listing is not available")
	ErrNotOwner       = errors.New("listings: listing belongs to another lender")
	ErrNotFound       = errors.New("listings: listing not found")
	ErrLoadFailed     = errors.New("listings: load failed")
	ErrNotRented      = errors.New("listings: listing is not held by this rental")
)

const (
	MaxRentalDays = 365
)

var (
	MinCollateralRate = decimal.NewFromInt(10)
	MaxCollateralRate = decimal.NewFromInt(50)
)

type ListingID int64
type LenderID string

// Listing is an offer by a lender to rent out a token balance.
type Listing struct {
	ID             ListingID
	Lender         LenderID
	TokenSymbol    string
	TokenAddress   string
	Amount         decimal.Decimal
	RentalRate     decimal.Decimal
	MinDuration    int
	MaxDuration    int
	CollateralRate decimal.Decimal
	IsAvailable    bool
	// CurrentRental is the rental holding the listing, empty when none does.
	CurrentRental  string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	events.EventRecorder
}

type ListingRepository interface {
	ByID(ctx context.Context, id ListingID) (*Listing, error)
	Save(ctx context.Context, listing *Listing) error
	All(ctx context.Context) ([]*Listing, error)
	NextID(ctx context.Context) (ListingID, error)
}

type CreateListingParams struct {
	ID             ListingID
	Lender         LenderID
	TokenSymbol    string
	TokenAddress   string
	Amount         decimal.Decimal
	RentalRate     decimal.Decimal
	MinDuration    int
	MaxDuration    int
	CollateralRate decimal.Decimal
	Now            time.Time
}

// NewListing validates params and returns an available listing.
func NewListing(params CreateListingParams) (*Listing, error) {
	if params.ID <= 0 {
		return nil, ErrIDRequired
	}
	if strings.TrimSpace(string(params.Lender)) == "" {
		return nil, ErrLenderRequired
	}
	if strings.TrimSpace(params.TokenSymbol) == "" {
		return nil, ErrTokenRequired
	}
	if err := validateTerms(params.Amount, params.RentalRate, params.MinDuration, params.MaxDuration, params.CollateralRate); err != nil {
		return nil, err
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}

	listing := &Listing{
		ID:             params.ID,
		Lender:         LenderID(strings.TrimSpace(string(params.Lender))),
		TokenSymbol:    strings.TrimSpace(params.TokenSymbol),
		TokenAddress:   strings.TrimSpace(params.TokenAddress),
		Amount:         params.Amount,
		RentalRate:     params.RentalRate,
		MinDuration:    params.MinDuration,
		MaxDuration:    params.MaxDuration,
		CollateralRate: params.CollateralRate,
		IsAvailable:    true,
		CreatedAt:      now.UTC(),
		UpdatedAt:      now.UTC(),
	}
	listing.Record(newListingCreatedEvent(listing, listing.CreatedAt))
	return listing, nil
}

func validateTerms(amount, rate decimal.Decimal, minDays, maxDays int, collateral decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrAmount
	}
	if !rate.IsPositive() {
		return ErrRentalRate
	}
	if minDays < 1 {
		return ErrMinDuration
	}
	if minDays > maxDays {
		return ErrDurationRange
	}
	if maxDays > MaxRentalDays {
		return ErrMaxDuration
	}
	if collateral.LessThan(MinCollateralRate) || collateral.GreaterThan(MaxCollateralRate) {
		return ErrCollateralRate
	}
	return nil
}

// AcceptsDuration reports whether days lies within [MinDuration, MaxDuration].
func (l *Listing) AcceptsDuration(days int) bool {
	return days >= l.MinDuration && days <= l.MaxDuration
}

// DurationOptions lists every selectable duration in days.
func (l *Listing) DurationOptions() []int {
	if l.MaxDuration < l.MinDuration {
		return nil
	}
	out := make([]int, 0, l.MaxDuration-l.MinDuration+1)
	for d := l.MinDuration; d <= l.MaxDuration; d++ {
		out = append(out, d)
	}
	return out
}

// MarkRented takes the listing off the market once a rental settles.
func (l *Listing) MarkRented(rentalID string, borrower string, days int, now time.Time) error {
	if !l.IsAvailable {
		return ErrNotAvailable
	}
	l.IsAvailable = false
	l.CurrentRental = rentalID
	l.UpdatedAt = now.UTC()
	l.Record(ListingRentedEvent{
		ListingID: l.ID,
		RentalID:  rentalID,
		Borrower:  borrower,
		Duration:  days,
		At:        l.UpdatedAt,
	})
	return nil
}

// Release puts the listing back on the market when rentalID, the rental
// holding it, is closed.
func (l *Listing) Release(rentalID string, now time.Time) error {
	if l.IsAvailable || rentalID == "" || l.CurrentRental != rentalID {
		return ErrNotRented
	}
	l.IsAvailable = true
	l.CurrentRental = ""
	l.UpdatedAt = now.UTC()
	l.Record(ListingReleasedEvent{ListingID: l.ID, RentalID: rentalID, At: l.UpdatedAt})
	return nil
}

// Cancel withdraws the listing; only its lender may do so.
func (l *Listing) Cancel(lender LenderID, now time.Time) error {
	if l.Lender != lender {
		return ErrNotOwner
	}
	if !l.IsAvailable {
		return ErrNotAvailable
	}
	l.IsAvailable = false
	l.UpdatedAt = now.UTC()
	l.Record(ListingCancelledEvent{ListingID: l.ID, Lender: l.Lender, At: l.UpdatedAt})
	return nil
}

// Clone returns a detached copy without pending events.
func (l *Listing) Clone() *Listing {
	if l == nil {
		return nil
	}
	return &Listing{
		ID:             l.ID,
		Lender:         l.Lender,
		TokenSymbol:    l.TokenSymbol,
		TokenAddress:   l.TokenAddress,
		Amount:         l.Amount,
		RentalRate:     l.RentalRate,
		MinDuration:    l.MinDuration,
		MaxDuration:    l.MaxDuration,
		CollateralRate: l.CollateralRate,
		IsAvailable:    l.IsAvailable,
		CurrentRental:  l.CurrentRental,
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	}
}

func newListingCreatedEvent(l *Listing, at time.Time) events.DomainEvent {
	return ListingCreatedEvent{
		ListingID:   l.ID,
		Lender:      l.Lender,
		TokenSymbol: l.TokenSymbol,
		Amount:      l.Amount.String(),
		RentalRate:  l.RentalRate.String(),
		At:          at,
	}
}
