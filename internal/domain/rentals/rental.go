package rentals

import (
	"context"
	"errors"
	"strings"
	"time"

	"xrent/internal/domain/account"
	"xrent/internal/domain/listings"
	"xrent/internal/domain/pricing"
	"xrent/internal/domain/shared/daterange"
	"xrent/internal/domain/shared/events"
)

var (
	ErrIDRequired          = errors.New("rentals: id is required")
	ErrBorrowerRequired    = errors.New("rentals: borrower is required")
	ErrOwnListing          = errors.New("rentals: lender cannot rent own listing")
	ErrInvalidState        = errors.New("rentals: invalid state transition")
	ErrConfirmationMissing = errors.New("rentals: confirmation reference required")
	ErrNotFound            = errors.New("rentals: not found")
	ErrSubmissionFailed    = errors.New("rentals: submission failed")
	ErrNotBorrower         = errors.New("rentals: only the borrower may return the rental")
	ErrNotLender           = errors.New("rentals: only the lender may reclaim the rental")
	ErrNotActive           = errors.New("rentals: rental is not active")
	ErrStillActive         = errors.New("rentals: rental period has not ended")
)

type RentalID string

type Status string

const (
	StatusRequested Status = "REQUESTED"
	StatusConfirmed Status = "CONFIRMED"
	StatusCompleted Status = "COMPLETED"
)

// Closure records how a completed rental ended.
type Closure string

const (
	ClosureReturned  Closure = "returned"
	ClosureReclaimed Closure = "reclaimed"
)

// Phase is the dashboard view of a rental at a point in time.
type Phase string

const (
	PhasePending   Phase = "pending"
	PhaseActive    Phase = "active"
	PhaseExpired   Phase = "expired"
	PhaseCompleted Phase = "completed"
)

// Rental is a borrower's request against one listing for a fixed number of
// days, priced when requested.
type Rental struct {
	ID              RentalID
	ListingID       listings.ListingID
	Lender          listings.LenderID
	Borrower        account.Key
	TokenSymbol     string
	Duration        int
	Costs           pricing.CostBreakdown
	Status          Status
	ConfirmationRef string
	Period          daterange.DateRange
	Closure         Closure
	ClosedAt        time.Time
	Late            bool
	Settlement      pricing.CollateralSettlement
	CreatedAt       time.Time
	UpdatedAt       time.Time
	events.EventRecorder
}

type Repository interface {
	ByID(ctx context.Context, id RentalID) (*Rental, error)
	Save(ctx context.Context, rental *Rental) error
	ListByBorrower(ctx context.Context, borrower account.Key) ([]*Rental, error)
	ListByLender(ctx context.Context, lender listings.LenderID) ([]*Rental, error)
}

type RequestParams struct {
	ID       RentalID
	Listing  *listings.Listing
	Borrower account.Key
	Duration int
	Now      time.Time
}

// Request prices a rental of params.Listing. The listing must be available
// and the duration inside its bounds.
func Request(params RequestParams) (*Rental, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrIDRequired
	}
	if params.Borrower.IsZero() {
		return nil, ErrBorrowerRequired
	}
	if params.Listing == nil {
		return nil, listings.ErrNotFound
	}
	if !params.Listing.IsAvailable {
		return nil, listings.ErrNotAvailable
	}
	if string(params.Listing.Lender) == params.Borrower.String() {
		return nil, ErrOwnListing
	}
	costs, err := pricing.ComputeCosts(params.Listing, params.Duration)
	if err != nil {
		return nil, err
	}
	now := params.Now.UTC()
	return &Rental{
		ID:          params.ID,
		ListingID:   params.Listing.ID,
		Lender:      params.Listing.Lender,
		Borrower:    params.Borrower,
		TokenSymbol: params.Listing.TokenSymbol,
		Duration:    params.Duration,
		Costs:       costs,
		Status:      StatusRequested,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Confirm records the settlement reference and starts the rental period.
func (r *Rental) Confirm(reference string, now time.Time) error {
	if r.Status != StatusRequested {
		return ErrInvalidState
	}
	if strings.TrimSpace(reference) == "" {
		return ErrConfirmationMissing
	}
	period, err := daterange.ForDays(now, r.Duration)
	if err != nil {
		return err
	}
	r.Status = StatusConfirmed
	r.ConfirmationRef = reference
	r.Period = period
	r.UpdatedAt = now.UTC()
	r.Record(RentalConfirmedEvent{
		RentalID:        r.ID,
		ListingID:       r.ListingID,
		Borrower:        r.Borrower.String(),
		Duration:        r.Duration,
		Total:           r.Costs.Total.String(),
		ConfirmationRef: reference,
		Start:           period.Start,
		End:             period.End,
		At:              r.UpdatedAt,
	})
	return nil
}

// Return closes the rental on the borrower's behalf. Returning after the
// period ends forfeits the late penalty to the lender.
func (r *Rental) Return(borrower account.Key, now time.Time) error {
	if r.Borrower != borrower {
		return ErrNotBorrower
	}
	if r.Status != StatusConfirmed {
		return ErrNotActive
	}
	late := r.OverdueAt(now)
	r.close(ClosureReturned, late, pricing.SettleReturn(r.Costs.Collateral, late), now)
	return nil
}

// Reclaim lets the lender close an expired rental, keeping the whole
// collateral.
func (r *Rental) Reclaim(lender listings.LenderID, now time.Time) error {
	if r.Lender != lender {
		return ErrNotLender
	}
	if r.Status != StatusConfirmed {
		return ErrNotActive
	}
	if !r.OverdueAt(now) {
		return ErrStillActive
	}
	r.close(ClosureReclaimed, true, pricing.SettleReclaim(r.Costs.Collateral), now)
	return nil
}

func (r *Rental) close(closure Closure, late bool, settlement pricing.CollateralSettlement, now time.Time) {
	r.Status = StatusCompleted
	r.Closure = closure
	r.Late = late
	r.Settlement = settlement
	r.ClosedAt = now.UTC()
	r.UpdatedAt = r.ClosedAt
	r.Record(RentalClosedEvent{
		RentalID:  r.ID,
		ListingID: r.ListingID,
		Closure:   closure,
		Late:      late,
		Refund:    settlement.Refund.String(),
		Penalty:   settlement.Penalty.String(),
		At:        r.ClosedAt,
	})
}

// ActiveAt reports whether a confirmed rental's period covers t.
func (r *Rental) ActiveAt(t time.Time) bool {
	return r.Status == StatusConfirmed && r.Period.ContainsDate(t)
}

// OverdueAt reports whether a confirmed rental's period ended before t.
func (r *Rental) OverdueAt(t time.Time) bool {
	return r.Status == StatusConfirmed && t.UTC().After(r.Period.End)
}

func (r *Rental) PhaseAt(t time.Time) Phase {
	switch {
	case r.Status == StatusCompleted:
		return PhaseCompleted
	case r.OverdueAt(t):
		return PhaseExpired
	case r.Status == StatusConfirmed:
		return PhaseActive
	default:
		return PhasePending
	}
}

func (r *Rental) Clone() *Rental {
	if r == nil {
		return nil
	}
	return &Rental{
		ID:              r.ID,
		ListingID:       r.ListingID,
		Lender:          r.Lender,
		Borrower:        r.Borrower,
		TokenSymbol:     r.TokenSymbol,
		Duration:        r.Duration,
		Costs:           r.Costs,
		Status:          r.Status,
		ConfirmationRef: r.ConfirmationRef,
		Period:          r.Period,
		Closure:         r.Closure,
		ClosedAt:        r.ClosedAt,
		Late:            r.Late,
		Settlement:      r.Settlement,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}
